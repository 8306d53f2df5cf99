// Package catalog implements the image lifecycle: ingest with exact-content
// deduplication, metadata updates, deletion, search, and the application of
// AI enrichment results.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/stickerd/internal/logger"
	"github.com/marmos91/stickerd/internal/telemetry"
	"github.com/marmos91/stickerd/pkg/blob"
	"github.com/marmos91/stickerd/pkg/catalog/models"
	"github.com/marmos91/stickerd/pkg/catalog/store"
	"github.com/marmos91/stickerd/pkg/imaging"
	"github.com/marmos91/stickerd/pkg/metrics"
	"github.com/marmos91/stickerd/pkg/vision"
)

// MaxSampledFrames is how many frames of an animated input are sent to the
// vision model.
const MaxSampledFrames = 4

// ErrTypeRejected is returned by ingest when the pre-ingest type filter is
// enabled and the model classifies the image outside the accepted types.
var ErrTypeRejected = errors.New("image type not accepted")

// DuplicateError reports an ingest of bytes that are already stored, naming
// the existing image. It unwraps to models.ErrDuplicateImage.
type DuplicateError struct {
	ExistingName string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("表情包已存在: 与现有表情包 %s 重复", e.ExistingName)
}

func (e *DuplicateError) Unwrap() error {
	return models.ErrDuplicateImage
}

// Options holds the catalog behavior switches read from configuration.
type Options struct {
	// SeedCategories are created at startup if absent.
	SeedCategories []string

	// AutoAnalyze enables enrichment for ingests that request it.
	AutoAnalyze bool

	// AutoCategorize lets enrichment change an image's category and create
	// categories the model proposes. When false, applied results only
	// contribute names and tags.
	AutoCategorize bool

	// PersistTasks selects the durable queue pipeline. When false,
	// enrichment runs inline and blocks the ingest call.
	PersistTasks bool

	// EnableTypeFilter gates ingest on a model classification against
	// AcceptedImageTypes.
	EnableTypeFilter   bool
	AcceptedImageTypes []string
}

// IngestOptions are the user-supplied fields of a new image.
type IngestOptions struct {
	Name     string
	Category string
	Tags     []string
}

// Catalog owns image rows and their blobs. It is the only component that
// creates or removes files in the blob store.
type Catalog struct {
	store  *store.GORMStore
	blobs  blob.Store
	vision vision.Client
	opts   Options
	bus    *Bus
	pm     *metrics.PipelineMetrics
	now    func() time.Time
}

// New creates a catalog over the given stores and vision client.
// The vision client may be nil when AI features are disabled.
func New(st *store.GORMStore, blobs blob.Store, vc vision.Client, opts Options) *Catalog {
	return &Catalog{
		store:  st,
		blobs:  blobs,
		vision: vc,
		opts:   opts,
		bus:    NewBus(),
		now:    time.Now,
	}
}

// SetMetrics attaches pipeline metrics. A nil value keeps recording as a
// no-op.
func (c *Catalog) SetMetrics(pm *metrics.PipelineMetrics) {
	c.pm = pm
}

// Events returns the catalog's event bus.
func (c *Catalog) Events() *Bus {
	return c.bus
}

// Store exposes the metadata store for collaborators (worker, API handlers).
func (c *Catalog) Store() *store.GORMStore {
	return c.store
}

// Blobs exposes the blob store for collaborators.
func (c *Catalog) Blobs() blob.Store {
	return c.blobs
}

// Init seeds configured categories. Safe to call on every startup.
func (c *Catalog) Init(ctx context.Context) error {
	names := append([]string{models.DefaultCategory}, c.opts.SeedCategories...)
	for _, name := range names {
		if name == "" {
			continue
		}
		_, err := c.store.CreateCategory(ctx, &models.Category{Name: name})
		if err != nil && !errors.Is(err, models.ErrDuplicateCategory) {
			return fmt.Errorf("failed to seed category %q: %w", name, err)
		}
	}
	return nil
}

// ============================================
// INGEST
// ============================================

// IngestBytes stores a new image from raw bytes.
//
// Observable steps: sniff format, hash, reject duplicates with the existing
// image's name, write the blob, insert the row, bump the category counter,
// emit image-added. When enrich is requested the cached result for the hash
// is applied immediately on a hit; on a miss a PENDING task is enqueued (or,
// with task persistence disabled, the model is called inline).
func (c *Catalog) IngestBytes(ctx context.Context, opts IngestOptions, data []byte, enrich bool) (*models.Image, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanIngest)
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	format := imaging.DetectFormat(data)
	hash := imaging.Hash(data)

	if err := c.checkDuplicate(ctx, hash); err != nil {
		return nil, err
	}
	if err := c.checkType(ctx, data); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	path, err := c.blobs.Write(ctx, id, format.Ext(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	return c.finishIngest(ctx, &models.Image{
		ID:        id,
		Name:      opts.Name,
		Category:  defaultCategory(opts.Category),
		Tags:      normalizeTags(opts.Tags),
		Path:      path,
		Size:      int64(len(data)),
		MimeType:  format.MimeType(),
		ImageHash: hash,
	}, data, enrich)
}

// IngestFile stores a new image by moving an existing file into the blob
// store. The duplicate check runs before the move; on a duplicate the
// caller's temp file is deleted, matching upload semantics where the source
// is always consumed.
func (c *Catalog) IngestFile(ctx context.Context, opts IngestOptions, srcPath string, enrich bool) (*models.Image, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	format := imaging.DetectFormat(data)
	hash := imaging.Hash(data)

	if err := c.checkDuplicate(ctx, hash); err != nil {
		removeLocalFile(srcPath)
		return nil, err
	}
	if err := c.checkType(ctx, data); err != nil {
		removeLocalFile(srcPath)
		return nil, err
	}

	id := uuid.New().String()
	path, err := c.blobs.MoveIn(ctx, id, format.Ext(), srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	return c.finishIngest(ctx, &models.Image{
		ID:        id,
		Name:      opts.Name,
		Category:  defaultCategory(opts.Category),
		Tags:      normalizeTags(opts.Tags),
		Path:      path,
		Size:      int64(len(data)),
		MimeType:  format.MimeType(),
		ImageHash: hash,
	}, data, enrich)
}

// checkDuplicate fails with DuplicateError when the hash is already stored.
func (c *Catalog) checkDuplicate(ctx context.Context, hash string) error {
	existing, err := c.store.GetImageByHash(ctx, hash)
	if err == nil {
		return &DuplicateError{ExistingName: existing.Name}
	}
	if errors.Is(err, models.ErrImageNotFound) {
		return nil
	}
	return err
}

// checkType runs the optional pre-ingest model filter.
func (c *Catalog) checkType(ctx context.Context, data []byte) error {
	if !c.opts.EnableTypeFilter || c.vision == nil || len(c.opts.AcceptedImageTypes) == 0 {
		return nil
	}
	frames := imaging.PrepareFrames(data, MaxSampledFrames)
	imageType, err := c.vision.Classify(ctx, frames, c.opts.AcceptedImageTypes)
	if err != nil {
		// The filter is advisory; a model outage must not block uploads.
		logger.Warn("Type filter call failed, accepting image", "error", err)
		return nil
	}
	if !vision.TypeAccepted(imageType, c.opts.AcceptedImageTypes) {
		return fmt.Errorf("%w: %s", ErrTypeRejected, imageType)
	}
	return nil
}

// finishIngest inserts the row, maintains counters, emits the event, and
// kicks off enrichment.
func (c *Catalog) finishIngest(ctx context.Context, img *models.Image, data []byte, enrich bool) (*models.Image, error) {
	if _, err := c.store.CreateImage(ctx, img); err != nil {
		// The blob was already written; remove it so a failed insert does
		// not leave an orphan file behind.
		if delErr := c.blobs.Delete(ctx, img.Path); delErr != nil && !errors.Is(delErr, blob.ErrNotFound) {
			logger.Warn("Failed to roll back blob after insert error",
				logger.KeyPath, img.Path, "error", delErr)
		}
		if errors.Is(err, models.ErrDuplicateImage) {
			// Lost a race with a concurrent ingest of the same bytes.
			if existing, lookupErr := c.store.GetImageByHash(ctx, img.ImageHash); lookupErr == nil {
				return nil, &DuplicateError{ExistingName: existing.Name}
			}
		}
		return nil, fmt.Errorf("failed to insert image row: %w", err)
	}

	c.recountCategory(ctx, img.Category)
	c.bus.Publish(Event{Type: EventImageAdded, Image: img})

	telemetry.SetAttributes(ctx,
		telemetry.AttrImageID.String(img.ID),
		telemetry.AttrHash.String(img.ImageHash),
		telemetry.AttrCategory.String(img.Category))
	logger.Info("Image ingested",
		logger.KeyImageID, img.ID,
		logger.KeyHash, img.ImageHash,
		logger.KeySize, img.Size,
		logger.KeyMimeType, img.MimeType)

	if enrich && c.opts.AutoAnalyze {
		enriched, err := c.enrich(ctx, img, data)
		if err != nil {
			logger.Warn("Failed to start enrichment", logger.KeyImageID, img.ID, "error", err)
		} else if enriched != nil {
			// The cache-hit and inline paths already merged the result; the
			// caller gets the enriched row, not the pre-merge insert.
			img = enriched
		}
	}
	return img, nil
}

// enrich applies a cached result, enqueues a task, or runs inline analysis.
// A non-nil image is the merged row; nil means enrichment was deferred to the
// queue (or skipped).
func (c *Catalog) enrich(ctx context.Context, img *models.Image, data []byte) (*models.Image, error) {
	cached, err := c.store.GetResult(ctx, img.ImageHash)
	if err == nil {
		var result vision.Result
		if jsonErr := json.Unmarshal([]byte(cached.ResultJSON), &result); jsonErr == nil {
			c.pm.RecordCacheLookup(true)
			logger.Debug("Applying cached analysis", logger.KeyHash, img.ImageHash)
			return c.ApplyResult(ctx, img.ID, &result)
		}
		// A corrupt cache row falls through to a fresh analysis.
	} else if !errors.Is(err, models.ErrResultNotFound) {
		return nil, err
	}

	if c.opts.PersistTasks {
		_, err := c.store.EnqueueTask(ctx, img.ID, img.Path, img.ImageHash)
		if errors.Is(err, models.ErrTaskExists) {
			return nil, nil
		}
		if err == nil {
			c.pm.RecordEnqueued()
		}
		return nil, err
	}

	// Inline path: no queue rows, enrichment blocks the ingest call.
	if c.vision == nil {
		return nil, nil
	}
	return c.analyzeNow(ctx, img, data)
}

// analyzeNow performs a synchronous model call for the image, writes through
// the cache, and returns the merged row.
func (c *Catalog) analyzeNow(ctx context.Context, img *models.Image, data []byte) (*models.Image, error) {
	frames := imaging.PrepareFrames(data, MaxSampledFrames)
	result, err := c.vision.Analyze(ctx, frames)
	if err != nil {
		return nil, err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize analysis result: %w", err)
	}
	if err := c.store.PutResult(ctx, img.ImageHash, string(resultJSON)); err != nil {
		return nil, err
	}
	return c.ApplyResult(ctx, img.ID, result)
}

// AnalyzeImage re-analyzes a stored image synchronously, bypassing the queue.
// Model failures surface directly to the caller.
func (c *Catalog) AnalyzeImage(ctx context.Context, id string) (*models.Image, error) {
	if c.vision == nil {
		return nil, fmt.Errorf("vision client is not configured")
	}
	img, err := c.store.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := c.blobs.Read(ctx, img.Path)
	if err != nil {
		return nil, err
	}
	merged, err := c.analyzeNow(ctx, img, data)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		// Deleted while the model call was in flight.
		return nil, models.ErrImageNotFound
	}
	return merged, nil
}

// ReanalyzeImages drops the cached result and enqueues a fresh enrichment
// task for each given image id. Unknown ids are skipped; an image whose task
// is still PENDING or PROCESSING keeps it and is not enqueued twice.
// Returns how many tasks were enqueued.
func (c *Catalog) ReanalyzeImages(ctx context.Context, ids []string) (int, error) {
	enqueued := 0
	for _, id := range ids {
		img, err := c.store.GetImage(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrImageNotFound) {
				continue
			}
			return enqueued, err
		}

		// The cache row must go first, otherwise the worker would just
		// re-apply the stale result instead of calling the model.
		if err := c.store.DeleteResult(ctx, img.ImageHash); err != nil {
			return enqueued, err
		}

		_, err = c.store.EnqueueTask(ctx, img.ID, img.Path, img.ImageHash)
		if errors.Is(err, models.ErrTaskExists) {
			continue
		}
		if err != nil {
			return enqueued, err
		}
		c.pm.RecordEnqueued()
		enqueued++
	}
	if enqueued > 0 {
		logger.Info("Reanalysis tasks enqueued", "count", enqueued)
	}
	return enqueued, nil
}

// ============================================
// ENRICHMENT APPLICATION
// ============================================

// ApplyResult merges an AI result into an image and persists it.
//
// The image having been deleted since the result was produced is not an
// error: the update silently becomes a no-op and (nil, nil) is returned, so
// workers finishing a task for a vanished image end cleanly.
func (c *Catalog) ApplyResult(ctx context.Context, imageID string, result *vision.Result) (*models.Image, error) {
	img, err := c.store.GetImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, models.ErrImageNotFound) {
			logger.Debug("Image gone before enrichment applied", logger.KeyImageID, imageID)
			return nil, nil
		}
		return nil, err
	}

	if !c.opts.AutoCategorize {
		// Without auto-categorization the model only contributes name and
		// tags; its category suggestions are dropped before the merge.
		trimmed := *result
		trimmed.Category = ""
		trimmed.NewCategory = ""
		result = &trimmed
	} else if result.NewCategory != "" {
		if err := c.ensureCategory(ctx, result.NewCategory); err != nil {
			return nil, err
		}
		if result.Category == "" {
			result.Category = result.NewCategory
		}
	}

	oldCategory := img.Category
	merged := mergeResult(img, result)

	if err := c.store.UpdateImage(ctx, merged); err != nil {
		if errors.Is(err, models.ErrImageNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if merged.Category != oldCategory {
		c.recountCategory(ctx, oldCategory)
	}
	c.recountCategory(ctx, merged.Category)
	c.bus.Publish(Event{Type: EventImageUpdated, Image: merged})
	return merged, nil
}

// ensureCategory creates a category proposed by the model if it is missing.
func (c *Catalog) ensureCategory(ctx context.Context, name string) error {
	_, err := c.store.CreateCategory(ctx, &models.Category{
		Name:        name,
		Description: models.AutoCreatedDescription,
	})
	if err != nil && !errors.Is(err, models.ErrDuplicateCategory) {
		return err
	}
	return nil
}

// ============================================
// MUTATION
// ============================================

// Delete removes the image row and its blob and fixes the category counter.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	img, err := c.store.GetImage(ctx, id)
	if err != nil {
		return err
	}

	if err := c.blobs.Delete(ctx, img.Path); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	if err := c.store.DeleteImage(ctx, id); err != nil {
		return err
	}

	c.recountCategory(ctx, img.Category)
	c.bus.Publish(Event{Type: EventImageDeleted, Image: img})
	logger.Info("Image deleted", logger.KeyImageID, id, logger.KeyPath, img.Path)
	return nil
}

// UpdateName renames an image.
func (c *Catalog) UpdateName(ctx context.Context, id, name string) (*models.Image, error) {
	return c.updateImage(ctx, id, func(img *models.Image) {
		img.Name = name
	})
}

// UpdateCategory moves an image to another category.
func (c *Catalog) UpdateCategory(ctx context.Context, id, category string) (*models.Image, error) {
	return c.updateImage(ctx, id, func(img *models.Image) {
		img.Category = defaultCategory(category)
	})
}

// UpdateTags replaces the image's tag set.
func (c *Catalog) UpdateTags(ctx context.Context, id string, tags []string) (*models.Image, error) {
	return c.updateImage(ctx, id, func(img *models.Image) {
		img.Tags = normalizeTags(tags)
	})
}

func (c *Catalog) updateImage(ctx context.Context, id string, mutate func(*models.Image)) (*models.Image, error) {
	img, err := c.store.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}

	oldCategory := img.Category
	mutate(img)

	if err := c.store.UpdateImage(ctx, img); err != nil {
		return nil, err
	}
	if img.Category != oldCategory {
		c.recountCategory(ctx, oldCategory)
		c.recountCategory(ctx, img.Category)
	}
	c.bus.Publish(Event{Type: EventImageUpdated, Image: img})
	return img, nil
}

// recountCategory recomputes the derived counter for a category name.
// Failures only log: the counter is advisory and self-heals on the next
// mutation touching the category.
func (c *Catalog) recountCategory(ctx context.Context, name string) {
	if name == "" {
		return
	}
	count, err := c.store.CountImagesByCategory(ctx, name)
	if err != nil {
		logger.Warn("Failed to count category images", logger.KeyCategory, name, "error", err)
		return
	}
	if err := c.store.SetCategoryCount(ctx, name, count); err != nil {
		logger.Warn("Failed to update category count", logger.KeyCategory, name, "error", err)
	}
}

// ============================================
// QUERY
// ============================================

// Filter narrows List results. Zero values match everything; Tags matches
// images carrying any of the given tags.
type Filter struct {
	Category string
	Tags     []string
}

// List returns images matching the filter, oldest first.
func (c *Catalog) List(ctx context.Context, filter Filter) ([]*models.Image, error) {
	var (
		images []*models.Image
		err    error
	)
	if filter.Category != "" {
		images, err = c.store.ListImagesByCategory(ctx, filter.Category)
	} else {
		images, err = c.store.ListImages(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(filter.Tags) == 0 {
		return images, nil
	}

	matched := images[:0]
	for _, img := range images {
		for _, tag := range filter.Tags {
			if img.HasTag(tag) {
				matched = append(matched, img)
				break
			}
		}
	}
	return matched, nil
}

// Search performs a substring search over names and tags.
func (c *Catalog) Search(ctx context.Context, keyword string) ([]*models.Image, error) {
	return c.store.SearchImages(ctx, keyword)
}

// Get resolves an image by id, falling back to name lookup.
func (c *Catalog) Get(ctx context.Context, idOrName string) (*models.Image, error) {
	img, err := c.store.GetImage(ctx, idOrName)
	if err == nil {
		return img, nil
	}
	if !errors.Is(err, models.ErrImageNotFound) {
		return nil, err
	}
	return c.store.GetImageByName(ctx, idOrName)
}

// Random returns a random image, optionally from one category.
func (c *Catalog) Random(ctx context.Context, category string) (*models.Image, error) {
	return c.store.RandomImage(ctx, category)
}

// RandomByTag returns a random image carrying the tag.
func (c *Catalog) RandomByTag(ctx context.Context, tag string) (*models.Image, error) {
	images, err := c.store.ListImagesByTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, models.ErrImageNotFound
	}
	return images[rand.Intn(len(images))], nil
}

// ListCategories returns all categories.
func (c *Catalog) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return c.store.ListCategories(ctx)
}

// AddCategory creates a category.
func (c *Catalog) AddCategory(ctx context.Context, name, description string) (*models.Category, error) {
	category := &models.Category{Name: name, Description: description}
	if _, err := c.store.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category by id. Images keep their category string;
// they simply point at an unknown name afterwards.
func (c *Catalog) DeleteCategory(ctx context.Context, id string) error {
	return c.store.DeleteCategory(ctx, id)
}

// ListTags returns the distinct tags across all images, sorted.
func (c *Catalog) ListTags(ctx context.Context) ([]string, error) {
	images, err := c.store.ListImages(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, img := range images {
		for _, t := range img.Tags {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// ============================================
// HELPERS
// ============================================

func defaultCategory(category string) string {
	if category == "" {
		return models.DefaultCategory
	}
	return category
}

func normalizeTags(tags []string) []string {
	return mergeTags(tags, nil)
}

// removeLocalFile consumes an ingest source after a rejection. Errors are
// logged only; the caller already has a more useful error to return.
func removeLocalFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove source file", logger.KeyPath, path, "error", err)
	}
}
