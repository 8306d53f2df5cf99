package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/stickerd/pkg/catalog"
)

// WorkerControl is the runtime control surface of the enrichment worker.
type WorkerControl interface {
	SetPaused(paused bool)
	Paused() bool
	SetConcurrency(n int) error
	ResetConcurrency()
	Concurrency() int
	SetBatchDelay(d time.Duration) error
	ResetBatchDelay()
	BatchDelay() time.Duration
	Active() int
}

// TaskHandler handles the enrichment pipeline admin endpoints.
// Worker may be nil when the queue pipeline is disabled; the worker control
// endpoints then respond 400.
type TaskHandler struct {
	catalog *catalog.Catalog
	worker  WorkerControl
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(c *catalog.Catalog, worker WorkerControl) *TaskHandler {
	return &TaskHandler{catalog: c, worker: worker}
}

// Stats handles GET /tasks/stats.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Store().TaskStats(r.Context())
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}

	fields := Envelope{"stats": stats}
	if h.worker != nil {
		fields["worker"] = Envelope{
			"paused":      h.worker.Paused(),
			"active":      h.worker.Active(),
			"concurrency": h.worker.Concurrency(),
			"batchDelay":  h.worker.BatchDelay().Milliseconds(),
		}
	}
	OK(w, fields)
}

// Failed handles GET /tasks/failed: the image ids of tasks that exhausted
// their retries.
func (h *TaskHandler) Failed(w http.ResponseWriter, r *http.Request) {
	ids, err := h.catalog.Store().ListFailedEmojiIDs(r.Context())
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	OK(w, Envelope{"failed": ids, "count": len(ids)})
}

// Retry handles POST /tasks/retry: re-enqueues every FAILED task with a
// fresh attempt budget.
func (h *TaskHandler) Retry(w http.ResponseWriter, r *http.Request) {
	n, err := h.catalog.Store().RetryFailedTasks(r.Context())
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	OK(w, Envelope{"retried": n})
}

// ReanalyzeRequest is the request body for POST /tasks/reanalyze.
type ReanalyzeRequest struct {
	IDs []string `json:"ids"`
}

// Reanalyze handles POST /tasks/reanalyze: drops the cached results and
// enqueues a fresh enrichment task per image id. Unknown ids and images with
// a live task are skipped.
func (h *TaskHandler) Reanalyze(w http.ResponseWriter, r *http.Request) {
	var req ReanalyzeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		BadRequest(w, "At least one image id is required")
		return
	}

	enqueued, err := h.catalog.ReanalyzeImages(r.Context(), req.IDs)
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	OK(w, Envelope{"enqueued": enqueued, "requested": len(req.IDs)})
}

// PauseRequest is the request body for POST /worker/pause.
type PauseRequest struct {
	Paused bool `json:"paused"`
}

// Pause handles POST /worker/pause.
func (h *TaskHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if h.worker == nil {
		BadRequest(w, "Worker is not running")
		return
	}

	var req PauseRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	h.worker.SetPaused(req.Paused)
	OK(w, Envelope{"paused": h.worker.Paused()})
}

// RuntimeConfigRequest is the request body for POST /worker/config.
//
// Positive concurrency overrides the configured default; zero or negative
// restores it. Non-negative batchDelay (milliseconds) overrides; negative
// restores. Absent fields are untouched.
type RuntimeConfigRequest struct {
	Concurrency *int   `json:"concurrency,omitempty"`
	BatchDelay  *int64 `json:"batchDelay,omitempty"`
}

// Configure handles POST /worker/config.
func (h *TaskHandler) Configure(w http.ResponseWriter, r *http.Request) {
	if h.worker == nil {
		BadRequest(w, "Worker is not running")
		return
	}

	var req RuntimeConfigRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Concurrency != nil {
		if *req.Concurrency > 0 {
			if err := h.worker.SetConcurrency(*req.Concurrency); err != nil {
				BadRequest(w, err.Error())
				return
			}
		} else {
			h.worker.ResetConcurrency()
		}
	}
	if req.BatchDelay != nil {
		if *req.BatchDelay >= 0 {
			if err := h.worker.SetBatchDelay(time.Duration(*req.BatchDelay) * time.Millisecond); err != nil {
				BadRequest(w, err.Error())
				return
			}
		} else {
			h.worker.ResetBatchDelay()
		}
	}

	OK(w, Envelope{
		"concurrency": h.worker.Concurrency(),
		"batchDelay":  h.worker.BatchDelay().Milliseconds(),
	})
}

// Analyze handles POST /analyze/{id}: synchronous re-analysis of one image,
// bypassing the queue. Model failures surface as 500.
func (h *TaskHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	img, err := h.catalog.AnalyzeImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		catalogError(w, err)
		return
	}
	OK(w, Envelope{"image": Envelope{
		"id":       img.ID,
		"name":     img.Name,
		"category": img.Category,
		"tags":     img.Tags,
	}})
}

// ImportRequest is the request body for POST /import.
type ImportRequest struct {
	Path   string `json:"path"`
	Enrich bool   `json:"aiAnalysis,omitempty"`
}

// Import handles POST /import: bulk-ingests a server-local folder.
func (h *TaskHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		BadRequest(w, "Path is required")
		return
	}

	stats, err := h.catalog.ImportFolder(r.Context(), req.Path, req.Enrich)
	if err != nil {
		catalogError(w, err)
		return
	}
	OK(w, Envelope{"stats": stats})
}
