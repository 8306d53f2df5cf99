package catalog

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stickerd/pkg/blob"
	"github.com/marmos91/stickerd/pkg/catalog/models"
	"github.com/marmos91/stickerd/pkg/catalog/store"
	"github.com/marmos91/stickerd/pkg/imaging"
	"github.com/marmos91/stickerd/pkg/vision"
)

// fakeVision is a scripted vision client.
type fakeVision struct {
	analyzeResult *vision.Result
	analyzeErr    error
	analyzeCalls  int

	classifyType string
	classifyErr  error
}

func (f *fakeVision) Analyze(ctx context.Context, frames [][]byte) (*vision.Result, error) {
	f.analyzeCalls++
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.analyzeResult, nil
}

func (f *fakeVision) Classify(ctx context.Context, frames [][]byte, accepted []string) (string, error) {
	if f.classifyErr != nil {
		return "", f.classifyErr
	}
	return f.classifyType, nil
}

func newTestCatalog(t *testing.T, vc vision.Client, opts Options) *Catalog {
	t.Helper()

	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	c := New(st, blobs, vc, opts)
	require.NoError(t, c.Init(context.Background()))
	return c
}

func pngBytes(t *testing.T, width int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, 2))))
	return buf.Bytes()
}

func TestInitSeedsCategories(t *testing.T) {
	c := newTestCatalog(t, nil, Options{SeedCategories: []string{"开心", "伤心"}})
	ctx := context.Background()

	categories, err := c.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, models.DefaultCategory, categories[0].Name)

	// Re-running Init is a no-op.
	require.NoError(t, c.Init(ctx))
	categories, err = c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 3)
}

func TestIngestBytes(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()
	data := pngBytes(t, 2)

	img, err := c.IngestBytes(ctx, IngestOptions{Name: "smile", Tags: []string{"开心", "开心", ""}}, data, false)
	require.NoError(t, err)
	assert.Equal(t, "smile", img.Name)
	assert.Equal(t, models.DefaultCategory, img.Category)
	assert.Equal(t, []string{"开心"}, img.Tags)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, int64(len(data)), img.Size)
	assert.Len(t, img.ImageHash, 64)

	// The bytes are retrievable through the blob store.
	stored, err := c.Blobs().Read(ctx, img.Path)
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	// The default category counter tracks the ingest.
	cat, err := c.Store().GetCategoryByName(ctx, models.DefaultCategory)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cat.EmojiCount)
}

func TestIngestBytesRejectsEmptyInput(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})

	_, err := c.IngestBytes(context.Background(), IngestOptions{}, nil, false)
	assert.Error(t, err)
}

func TestIngestBytesDuplicate(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()
	data := pngBytes(t, 2)

	_, err := c.IngestBytes(ctx, IngestOptions{Name: "原版"}, data, false)
	require.NoError(t, err)

	_, err = c.IngestBytes(ctx, IngestOptions{Name: "复制品"}, data, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDuplicateImage)

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "原版", dup.ExistingName)
	assert.Equal(t, "表情包已存在: 与现有表情包 原版 重复", dup.Error())
}

func TestIngestFileConsumesSource(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()
	data := pngBytes(t, 2)

	src := filepath.Join(t.TempDir(), "incoming.png")
	require.NoError(t, os.WriteFile(src, data, 0644))

	img, err := c.IngestFile(ctx, IngestOptions{Name: "moved"}, src, false)
	require.NoError(t, err)

	// The source was moved into the blob store.
	_, statErr := os.Stat(src)
	assert.True(t, os.IsNotExist(statErr))

	stored, err := c.Blobs().Read(ctx, img.Path)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestIngestFileDuplicateRemovesSource(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()
	data := pngBytes(t, 2)

	_, err := c.IngestBytes(ctx, IngestOptions{Name: "原版"}, data, false)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "incoming.png")
	require.NoError(t, os.WriteFile(src, data, 0644))

	_, err = c.IngestFile(ctx, IngestOptions{}, src, false)
	assert.ErrorIs(t, err, models.ErrDuplicateImage)

	// Upload semantics: the source is consumed even on rejection.
	_, statErr := os.Stat(src)
	assert.True(t, os.IsNotExist(statErr))
}

func TestIngestEnqueuesTask(t *testing.T) {
	c := newTestCatalog(t, nil, Options{AutoAnalyze: true, PersistTasks: true})
	ctx := context.Background()

	_, err := c.IngestBytes(ctx, IngestOptions{Name: "queued"}, pngBytes(t, 2), true)
	require.NoError(t, err)

	stats, err := c.Store().TaskStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)

	// No enrichment requested means no task.
	_, err = c.IngestBytes(ctx, IngestOptions{Name: "plain"}, pngBytes(t, 3), false)
	require.NoError(t, err)

	stats, err = c.Store().TaskStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
}

func TestIngestCacheHitSkipsQueue(t *testing.T) {
	c := newTestCatalog(t, nil, Options{AutoAnalyze: true, AutoCategorize: true, PersistTasks: true})
	ctx := context.Background()
	data := pngBytes(t, 2)

	// Seed the result cache for these exact bytes.
	hash := imaging.Hash(data)
	require.NoError(t, c.Store().PutResult(ctx, hash, `{"name":"笑死","category":"搞笑","tags":["开心"]}`))

	img, err := c.IngestBytes(ctx, IngestOptions{Name: "upload", Tags: []string{"猫"}}, data, true)
	require.NoError(t, err)

	// The returned image already carries the merge, not the pre-merge row.
	assert.Equal(t, "笑死", img.Name)
	assert.Equal(t, "搞笑", img.Category)
	assert.Equal(t, []string{"猫", "开心"}, img.Tags)

	got, err := c.Store().GetImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "笑死", got.Name)
	assert.Equal(t, "搞笑", got.Category)
	assert.Equal(t, []string{"猫", "开心"}, got.Tags)

	stats, err := c.Store().TaskStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
}

func TestIngestInlineAnalysis(t *testing.T) {
	vc := &fakeVision{analyzeResult: &vision.Result{Name: "笑死", Category: "搞笑"}}
	c := newTestCatalog(t, vc, Options{AutoAnalyze: true, AutoCategorize: true, PersistTasks: false})
	ctx := context.Background()
	data := pngBytes(t, 2)

	img, err := c.IngestBytes(ctx, IngestOptions{}, data, true)
	require.NoError(t, err)
	assert.Equal(t, 1, vc.analyzeCalls)
	assert.Equal(t, "笑死", img.Name)
	assert.Equal(t, "搞笑", img.Category)

	got, err := c.Store().GetImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "笑死", got.Name)
	assert.Equal(t, "搞笑", got.Category)

	// The inline result was written through to the cache.
	_, err = c.Store().GetResult(ctx, img.ImageHash)
	assert.NoError(t, err)
}

func TestTypeFilter(t *testing.T) {
	t.Run("rejects unaccepted type", func(t *testing.T) {
		vc := &fakeVision{classifyType: "photo"}
		c := newTestCatalog(t, vc, Options{
			EnableTypeFilter:   true,
			AcceptedImageTypes: []string{"meme"},
		})

		_, err := c.IngestBytes(context.Background(), IngestOptions{}, pngBytes(t, 2), false)
		assert.ErrorIs(t, err, ErrTypeRejected)
	})

	t.Run("accepts matching type", func(t *testing.T) {
		vc := &fakeVision{classifyType: "MEME"}
		c := newTestCatalog(t, vc, Options{
			EnableTypeFilter:   true,
			AcceptedImageTypes: []string{"meme"},
		})

		_, err := c.IngestBytes(context.Background(), IngestOptions{}, pngBytes(t, 2), false)
		assert.NoError(t, err)
	})

	t.Run("model outage does not block uploads", func(t *testing.T) {
		vc := &fakeVision{classifyErr: assert.AnError}
		c := newTestCatalog(t, vc, Options{
			EnableTypeFilter:   true,
			AcceptedImageTypes: []string{"meme"},
		})

		_, err := c.IngestBytes(context.Background(), IngestOptions{}, pngBytes(t, 2), false)
		assert.NoError(t, err)
	})
}

func TestApplyResult(t *testing.T) {
	c := newTestCatalog(t, nil, Options{AutoCategorize: true})
	ctx := context.Background()

	img, err := c.IngestBytes(ctx, IngestOptions{Name: "upload", Tags: []string{"猫"}}, pngBytes(t, 2), false)
	require.NoError(t, err)

	merged, err := c.ApplyResult(ctx, img.ID, &vision.Result{
		Name:        "笑死",
		Tags:        []string{"开心"},
		NewCategory: "新类别",
	})
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, "笑死", merged.Name)
	assert.Equal(t, "新类别", merged.Category)
	assert.Equal(t, []string{"猫", "开心"}, merged.Tags)

	// The proposed category was auto-created.
	cat, err := c.Store().GetCategoryByName(ctx, "新类别")
	require.NoError(t, err)
	assert.Equal(t, models.AutoCreatedDescription, cat.Description)
	assert.Equal(t, int64(1), cat.EmojiCount)

	// The old category counter went back down.
	old, err := c.Store().GetCategoryByName(ctx, models.DefaultCategory)
	require.NoError(t, err)
	assert.Zero(t, old.EmojiCount)
}

func TestApplyResultWithoutAutoCategorize(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()

	img, err := c.IngestBytes(ctx, IngestOptions{Name: "upload", Tags: []string{"猫"}}, pngBytes(t, 2), false)
	require.NoError(t, err)

	result := &vision.Result{
		Name:        "笑死",
		Category:    "搞笑",
		Tags:        []string{"开心"},
		NewCategory: "新类别",
	}
	merged, err := c.ApplyResult(ctx, img.ID, result)
	require.NoError(t, err)
	require.NotNil(t, merged)

	// Name and tags still merge; the category stays put.
	assert.Equal(t, "笑死", merged.Name)
	assert.Equal(t, models.DefaultCategory, merged.Category)
	assert.Equal(t, []string{"猫", "开心"}, merged.Tags)

	// The proposed category was not created.
	_, err = c.Store().GetCategoryByName(ctx, "新类别")
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)

	// The caller's result was not modified.
	assert.Equal(t, "搞笑", result.Category)
	assert.Equal(t, "新类别", result.NewCategory)
}

func TestReanalyzeImages(t *testing.T) {
	c := newTestCatalog(t, nil, Options{AutoAnalyze: true, PersistTasks: true})
	ctx := context.Background()

	first, err := c.IngestBytes(ctx, IngestOptions{Name: "one"}, pngBytes(t, 2), false)
	require.NoError(t, err)
	second, err := c.IngestBytes(ctx, IngestOptions{Name: "two"}, pngBytes(t, 3), false)
	require.NoError(t, err)

	// A stale cached result must not survive re-enqueueing.
	require.NoError(t, c.Store().PutResult(ctx, first.ImageHash, `{"name":"旧结果"}`))

	enqueued, err := c.ReanalyzeImages(ctx, []string{first.ID, second.ID, "no-such-image"})
	require.NoError(t, err)
	assert.Equal(t, 2, enqueued)

	stats, err := c.Store().TaskStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)

	_, err = c.Store().GetResult(ctx, first.ImageHash)
	assert.ErrorIs(t, err, models.ErrResultNotFound)

	// Live tasks are kept, not duplicated.
	enqueued, err = c.ReanalyzeImages(ctx, []string{first.ID})
	require.NoError(t, err)
	assert.Zero(t, enqueued)

	stats, err = c.Store().TaskStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
}

func TestApplyResultImageGone(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})

	merged, err := c.ApplyResult(context.Background(), "no-such-image", &vision.Result{Name: "x"})
	assert.NoError(t, err)
	assert.Nil(t, merged)
}

func TestDelete(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()

	img, err := c.IngestBytes(ctx, IngestOptions{Name: "doomed"}, pngBytes(t, 2), false)
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, img.ID))

	_, err = c.Store().GetImage(ctx, img.ID)
	assert.ErrorIs(t, err, models.ErrImageNotFound)

	_, err = c.Blobs().Read(ctx, img.Path)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	cat, err := c.Store().GetCategoryByName(ctx, models.DefaultCategory)
	require.NoError(t, err)
	assert.Zero(t, cat.EmojiCount)

	assert.ErrorIs(t, c.Delete(ctx, img.ID), models.ErrImageNotFound)
}

func TestUpdateOperations(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()

	img, err := c.IngestBytes(ctx, IngestOptions{Name: "before"}, pngBytes(t, 2), false)
	require.NoError(t, err)

	renamed, err := c.UpdateName(ctx, img.ID, "after")
	require.NoError(t, err)
	assert.Equal(t, "after", renamed.Name)

	moved, err := c.UpdateCategory(ctx, img.ID, "开心")
	require.NoError(t, err)
	assert.Equal(t, "开心", moved.Category)

	// Clearing the category falls back to the default.
	moved, err = c.UpdateCategory(ctx, img.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategory, moved.Category)

	tagged, err := c.UpdateTags(ctx, img.ID, []string{"a", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tagged.Tags)

	_, err = c.UpdateName(ctx, "no-such-image", "x")
	assert.ErrorIs(t, err, models.ErrImageNotFound)
}

func TestGetByIDOrName(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()

	img, err := c.IngestBytes(ctx, IngestOptions{Name: "named"}, pngBytes(t, 2), false)
	require.NoError(t, err)

	byID, err := c.Get(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.ID, byID.ID)

	byName, err := c.Get(ctx, "named")
	require.NoError(t, err)
	assert.Equal(t, img.ID, byName.ID)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrImageNotFound)
}

func TestListWithFilter(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()

	_, err := c.IngestBytes(ctx, IngestOptions{Name: "cat", Category: "动物", Tags: []string{"猫"}}, pngBytes(t, 2), false)
	require.NoError(t, err)
	_, err = c.IngestBytes(ctx, IngestOptions{Name: "dog", Category: "动物", Tags: []string{"狗"}}, pngBytes(t, 3), false)
	require.NoError(t, err)
	_, err = c.IngestBytes(ctx, IngestOptions{Name: "laugh", Tags: []string{"开心"}}, pngBytes(t, 4), false)
	require.NoError(t, err)

	all, err := c.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	animals, err := c.List(ctx, Filter{Category: "动物"})
	require.NoError(t, err)
	assert.Len(t, animals, 2)

	cats, err := c.List(ctx, Filter{Category: "动物", Tags: []string{"猫"}})
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "cat", cats[0].Name)

	// Tags match any, not all.
	either, err := c.List(ctx, Filter{Tags: []string{"猫", "开心"}})
	require.NoError(t, err)
	assert.Len(t, either, 2)
}

func TestRandomByTag(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()

	_, err := c.RandomByTag(ctx, "猫")
	assert.ErrorIs(t, err, models.ErrImageNotFound)

	img, err := c.IngestBytes(ctx, IngestOptions{Name: "cat", Tags: []string{"猫"}}, pngBytes(t, 2), false)
	require.NoError(t, err)

	got, err := c.RandomByTag(ctx, "猫")
	require.NoError(t, err)
	assert.Equal(t, img.ID, got.ID)
}

func TestListTags(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()

	tags, err := c.ListTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, err = c.IngestBytes(ctx, IngestOptions{Name: "a", Tags: []string{"b", "a"}}, pngBytes(t, 2), false)
	require.NoError(t, err)
	_, err = c.IngestBytes(ctx, IngestOptions{Name: "b", Tags: []string{"a", "c"}}, pngBytes(t, 3), false)
	require.NoError(t, err)

	tags, err = c.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tags)
}

func TestIngestPublishesEvent(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()

	events, unsubscribe := c.Events().Subscribe(4)
	defer unsubscribe()

	img, err := c.IngestBytes(ctx, IngestOptions{Name: "observed"}, pngBytes(t, 2), false)
	require.NoError(t, err)

	ev := <-events
	assert.Equal(t, EventImageAdded, ev.Type)
	assert.Equal(t, img.ID, ev.Image.ID)
}
