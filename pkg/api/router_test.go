package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stickerd/internal/bytesize"
	"github.com/marmos91/stickerd/pkg/blob"
	"github.com/marmos91/stickerd/pkg/catalog"
	"github.com/marmos91/stickerd/pkg/catalog/store"
	"github.com/marmos91/stickerd/pkg/vision"
)

// fakeWorker implements handlers.WorkerControl for endpoint tests.
type fakeWorker struct {
	paused      bool
	concurrency int
	batchDelay  time.Duration
	active      int

	defaultConcurrency int
	defaultBatchDelay  time.Duration
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{
		concurrency:        3,
		batchDelay:         100 * time.Millisecond,
		defaultConcurrency: 3,
		defaultBatchDelay:  100 * time.Millisecond,
	}
}

func (f *fakeWorker) SetPaused(paused bool) { f.paused = paused }
func (f *fakeWorker) Paused() bool          { return f.paused }

func (f *fakeWorker) SetConcurrency(n int) error {
	if n < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", n)
	}
	f.concurrency = n
	return nil
}
func (f *fakeWorker) ResetConcurrency() { f.concurrency = f.defaultConcurrency }
func (f *fakeWorker) Concurrency() int  { return f.concurrency }

func (f *fakeWorker) SetBatchDelay(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("batch delay must not be negative, got %s", d)
	}
	f.batchDelay = d
	return nil
}
func (f *fakeWorker) ResetBatchDelay()         { f.batchDelay = f.defaultBatchDelay }
func (f *fakeWorker) BatchDelay() time.Duration { return f.batchDelay }
func (f *fakeWorker) Active() int               { return f.active }

type testServer struct {
	*httptest.Server
	catalog *catalog.Catalog
	worker  *fakeWorker
}

func newTestServer(t *testing.T, vc vision.Client, uploadToken string) *testServer {
	t.Helper()

	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	c := catalog.New(st, blobs, vc, catalog.Options{})
	require.NoError(t, c.Init(t.Context()))

	worker := newFakeWorker()
	cfg := Config{
		Port:          8080,
		UploadToken:   uploadToken,
		MaxUploadSize: 8 * bytesize.MiB,
	}
	cfg.ApplyDefaults()

	srv := httptest.NewServer(NewRouter(cfg, c, worker, nil))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, catalog: c, worker: worker}
}

func pngBytes(t *testing.T, width int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, 2))))
	return buf.Bytes()
}

// doJSON performs a request with an optional JSON body and decodes the
// envelope into a map.
func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

// upload posts a multipart upload and returns the status and envelope.
func upload(t *testing.T, srv *testServer, data []byte, fields map[string]string, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", "upload.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func uploadOK(t *testing.T, srv *testServer, data []byte, fields map[string]string) map[string]any {
	t.Helper()

	status, envelope := upload(t, srv, data, fields, nil)
	require.Equal(t, http.StatusOK, status, "upload failed: %v", envelope)
	return envelope["image"].(map[string]any)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil, "")

	status, envelope := doJSON(t, http.MethodGet, srv.URL+"/health/", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "healthy", envelope["status"])

	status, envelope = doJSON(t, http.MethodGet, srv.URL+"/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", envelope["status"])
	assert.Equal(t, float64(0), envelope["images"])
}

func TestUploadTokenGuard(t *testing.T) {
	srv := newTestServer(t, nil, "secret-token")

	status, envelope := upload(t, srv, pngBytes(t, 2), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, envelope["success"])

	status, _ = upload(t, srv, pngBytes(t, 2), nil, map[string]string{"x-upload-token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = upload(t, srv, pngBytes(t, 2), nil, map[string]string{"x-upload-token": "secret-token"})
	assert.Equal(t, http.StatusOK, status)

	// The Bearer form works too.
	status, _ = upload(t, srv, pngBytes(t, 3), nil, map[string]string{"Authorization": "Bearer secret-token"})
	assert.Equal(t, http.StatusOK, status)
}

func TestUploadAndServe(t *testing.T) {
	srv := newTestServer(t, nil, "")
	data := pngBytes(t, 2)

	img := uploadOK(t, srv, data, map[string]string{
		"name":     "笑死",
		"category": "搞笑",
		"tags":     `["开心","猫"]`,
	})
	assert.Equal(t, "笑死", img["name"])
	assert.Equal(t, "搞笑", img["category"])
	assert.Equal(t, []any{"开心", "猫"}, img["tags"])
	assert.Equal(t, "image/png", img["mimeType"])
	assert.Contains(t, img["url"], "/get/"+img["id"].(string))

	// Raw bytes come back with the recorded content type.
	resp, err := http.Get(srv.URL + "/get/" + img["id"].(string))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Lookup by name works on the same route.
	resp, err = http.Get(srv.URL + "/get/笑死")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Metadata endpoint.
	status, envelope := doJSON(t, http.MethodGet, srv.URL+"/info/"+img["id"].(string), nil, nil)
	assert.Equal(t, http.StatusOK, status)
	info := envelope["image"].(map[string]any)
	assert.Equal(t, "笑死", info["name"])
	assert.Len(t, info["hash"], 64)
}

func TestUploadDefaultsNameFromFilename(t *testing.T) {
	srv := newTestServer(t, nil, "")

	img := uploadOK(t, srv, pngBytes(t, 2), nil)
	assert.Equal(t, "upload", img["name"])
	// No category supplied and no AI result: the default applies.
	assert.Equal(t, "其他", img["category"])
}

func TestUploadDuplicate(t *testing.T) {
	srv := newTestServer(t, nil, "")
	data := pngBytes(t, 2)

	uploadOK(t, srv, data, map[string]string{"name": "原版"})

	status, envelope := upload(t, srv, data, map[string]string{"name": "复制品"}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "表情包已存在: 与现有表情包 原版 重复", envelope["error"])
}

func TestUploadValidation(t *testing.T) {
	srv := newTestServer(t, nil, "")

	t.Run("missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("name", "x"))
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, srv.URL+"/upload", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed tags", func(t *testing.T) {
		status, _ := upload(t, srv, pngBytes(t, 2), map[string]string{"tags": "not-json"}, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestListAndSearch(t *testing.T) {
	srv := newTestServer(t, nil, "")

	uploadOK(t, srv, pngBytes(t, 2), map[string]string{"name": "cat", "category": "动物", "tags": `["猫"]`})
	uploadOK(t, srv, pngBytes(t, 3), map[string]string{"name": "dog", "category": "动物", "tags": `["狗"]`})
	uploadOK(t, srv, pngBytes(t, 4), map[string]string{"name": "laugh", "tags": `["开心"]`})

	status, envelope := doJSON(t, http.MethodGet, srv.URL+"/list", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), envelope["count"])

	status, envelope = doJSON(t, http.MethodGet, srv.URL+"/list?category=动物", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), envelope["count"])

	status, envelope = doJSON(t, http.MethodGet, srv.URL+"/list?category=动物&tag=猫", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), envelope["count"])

	status, envelope = doJSON(t, http.MethodGet, srv.URL+"/search?keyword=do", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), envelope["count"])

	status, _ = doJSON(t, http.MethodGet, srv.URL+"/search", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRandomEndpoints(t *testing.T) {
	srv := newTestServer(t, nil, "")

	// Empty catalog: all the random routes answer 404.
	for _, path := range []string{"/random", "/categories/动物", "/tags/猫"} {
		status, envelope := doJSON(t, http.MethodGet, srv.URL+path, nil, nil)
		assert.Equal(t, http.StatusNotFound, status, path)
		assert.Equal(t, false, envelope["success"])
	}

	data := pngBytes(t, 2)
	uploadOK(t, srv, data, map[string]string{"name": "cat", "category": "动物", "tags": `["猫"]`})

	for _, path := range []string{"/random", "/categories/动物", "/tags/猫"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		got, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, readErr)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, data, got, path)
	}
}

func TestImageMutationEndpoints(t *testing.T) {
	srv := newTestServer(t, nil, "")

	img := uploadOK(t, srv, pngBytes(t, 2), map[string]string{"name": "before"})
	id := img["id"].(string)

	status, envelope := doJSON(t, http.MethodPut, srv.URL+"/images/"+id+"/name", map[string]any{"name": "after"}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "after", envelope["image"].(map[string]any)["name"])

	status, _ = doJSON(t, http.MethodPut, srv.URL+"/images/"+id+"/name", map[string]any{"name": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, envelope = doJSON(t, http.MethodPut, srv.URL+"/images/"+id+"/category", map[string]any{"category": "开心"}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "开心", envelope["image"].(map[string]any)["category"])

	status, envelope = doJSON(t, http.MethodPut, srv.URL+"/images/"+id+"/tags", map[string]any{"tags": []string{"a", "b"}}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"a", "b"}, envelope["image"].(map[string]any)["tags"])

	status, _ = doJSON(t, http.MethodPut, srv.URL+"/images/no-such-id/name", map[string]any{"name": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, envelope = doJSON(t, http.MethodDelete, srv.URL+"/images/"+id, nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, envelope["success"])

	status, _ = doJSON(t, http.MethodDelete, srv.URL+"/images/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCategoryEndpoints(t *testing.T) {
	srv := newTestServer(t, nil, "")

	// Seeded default category is present.
	status, envelope := doJSON(t, http.MethodGet, srv.URL+"/categories", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), envelope["count"])

	status, envelope = doJSON(t, http.MethodPost, srv.URL+"/categories", map[string]any{"name": "开心", "description": "快乐"}, nil)
	assert.Equal(t, http.StatusOK, status)
	created := envelope["category"].(map[string]any)
	assert.Equal(t, "开心", created["name"])

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/categories", map[string]any{"name": "开心"}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/categories", map[string]any{"name": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, http.MethodDelete, srv.URL+"/categories/"+created["id"].(string), nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, http.MethodDelete, srv.URL+"/categories/"+created["id"].(string), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTagsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, "")

	status, envelope := doJSON(t, http.MethodGet, srv.URL+"/tags", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), envelope["count"])
	assert.Equal(t, []any{}, envelope["tags"])

	uploadOK(t, srv, pngBytes(t, 2), map[string]string{"tags": `["b","a"]`})

	status, envelope = doJSON(t, http.MethodGet, srv.URL+"/tags", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"a", "b"}, envelope["tags"])
}

func TestTaskEndpoints(t *testing.T) {
	srv := newTestServer(t, nil, "")

	status, envelope := doJSON(t, http.MethodGet, srv.URL+"/tasks/stats", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	stats := envelope["stats"].(map[string]any)
	assert.Equal(t, float64(0), stats["pending"])
	worker := envelope["worker"].(map[string]any)
	assert.Equal(t, false, worker["paused"])
	assert.Equal(t, float64(3), worker["concurrency"])
	assert.Equal(t, float64(100), worker["batchDelay"])

	status, envelope = doJSON(t, http.MethodGet, srv.URL+"/tasks/failed", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, envelope["failed"])

	status, envelope = doJSON(t, http.MethodPost, srv.URL+"/tasks/retry", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), envelope["retried"])
}

func TestReanalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, "")

	first := uploadOK(t, srv, pngBytes(t, 2), map[string]string{"name": "first"})
	second := uploadOK(t, srv, pngBytes(t, 3), map[string]string{"name": "second"})

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/tasks/reanalyze",
		map[string]any{"ids": []string{first["id"].(string), second["id"].(string), "no-such-id"}}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, float64(2), envelope["enqueued"])
	assert.Equal(t, float64(3), envelope["requested"])

	stats, err := srv.catalog.Store().TaskStats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)

	// Live tasks block a second round.
	status, envelope = doJSON(t, http.MethodPost, srv.URL+"/tasks/reanalyze",
		map[string]any{"ids": []string{first["id"].(string)}}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), envelope["enqueued"])

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/tasks/reanalyze", map[string]any{"ids": []string{}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/tasks/reanalyze", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWorkerControlEndpoints(t *testing.T) {
	srv := newTestServer(t, nil, "")

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/worker/pause", map[string]any{"paused": true}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, envelope["paused"])
	assert.True(t, srv.worker.Paused())

	status, envelope = doJSON(t, http.MethodPost, srv.URL+"/worker/pause", map[string]any{"paused": false}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, envelope["paused"])

	// Override both tunables.
	status, envelope = doJSON(t, http.MethodPost, srv.URL+"/worker/config", map[string]any{"concurrency": 5, "batchDelay": 250}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5), envelope["concurrency"])
	assert.Equal(t, float64(250), envelope["batchDelay"])

	// Zero concurrency and negative delay restore the configured values.
	status, envelope = doJSON(t, http.MethodPost, srv.URL+"/worker/config", map[string]any{"concurrency": 0, "batchDelay": -1}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), envelope["concurrency"])
	assert.Equal(t, float64(100), envelope["batchDelay"])

	// Absent fields are untouched.
	require.NoError(t, srv.worker.SetConcurrency(7))
	status, envelope = doJSON(t, http.MethodPost, srv.URL+"/worker/config", map[string]any{"batchDelay": 10}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(7), envelope["concurrency"])
	assert.Equal(t, float64(10), envelope["batchDelay"])
}

func TestImportEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), pngBytes(t, 2), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), pngBytes(t, 3), 0644))

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/import", map[string]any{"path": dir}, nil)
	assert.Equal(t, http.StatusOK, status)
	stats := envelope["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["imported"])
	assert.Equal(t, float64(0), stats["failed"])

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/import", map[string]any{"path": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAnalyzeEndpointWithoutVision(t *testing.T) {
	srv := newTestServer(t, nil, "")

	img := uploadOK(t, srv, pngBytes(t, 2), nil)

	// No vision client configured: synchronous analysis cannot run.
	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/analyze/"+img["id"].(string), nil, nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, envelope["success"])
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer(t, nil, "")

	// The middleware stack must not interfere with ordinary requests.
	resp, err := http.Get(srv.URL + "/health/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))
}
