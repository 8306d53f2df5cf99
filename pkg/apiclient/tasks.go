package apiclient

import "net/url"

// TaskStats counts enrichment tasks by status.
type TaskStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Succeeded  int64 `json:"succeeded"`
	Failed     int64 `json:"failed"`
}

// WorkerStatus is the runtime state of the enrichment worker.
type WorkerStatus struct {
	Paused      bool  `json:"paused"`
	Active      int   `json:"active"`
	Concurrency int   `json:"concurrency"`
	BatchDelay  int64 `json:"batchDelay"`
}

// PipelineStats combines queue counts with the worker snapshot.
// Worker is nil when the server runs without a queue worker.
type PipelineStats struct {
	Stats  TaskStats     `json:"stats"`
	Worker *WorkerStatus `json:"worker,omitempty"`
}

type pipelineStatsResponse struct {
	Success bool          `json:"success"`
	Stats   TaskStats     `json:"stats"`
	Worker  *WorkerStatus `json:"worker,omitempty"`
}

// TaskStats returns the queue counters and, when available, the worker state.
func (c *Client) TaskStats() (*PipelineStats, error) {
	var resp pipelineStatsResponse
	if err := c.get("/tasks/stats", &resp); err != nil {
		return nil, err
	}
	return &PipelineStats{Stats: resp.Stats, Worker: resp.Worker}, nil
}

type failedTasksResponse struct {
	Success bool     `json:"success"`
	Failed  []string `json:"failed"`
	Count   int      `json:"count"`
}

// FailedTasks returns the image ids whose enrichment exhausted its retries.
func (c *Client) FailedTasks() ([]string, error) {
	var resp failedTasksResponse
	if err := c.get("/tasks/failed", &resp); err != nil {
		return nil, err
	}
	return resp.Failed, nil
}

type retryResponse struct {
	Success bool  `json:"success"`
	Retried int64 `json:"retried"`
}

// RetryFailedTasks re-enqueues every failed task and returns how many moved.
func (c *Client) RetryFailedTasks() (int64, error) {
	var resp retryResponse
	if err := c.post("/tasks/retry", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Retried, nil
}

type reanalyzeResponse struct {
	Success   bool `json:"success"`
	Enqueued  int  `json:"enqueued"`
	Requested int  `json:"requested"`
}

// ReanalyzeImages enqueues fresh enrichment tasks for the given image ids
// and returns how many were enqueued. Ids that are unknown or already have a
// live task are skipped.
func (c *Client) ReanalyzeImages(ids []string) (int, error) {
	body := map[string]any{"ids": ids}
	var resp reanalyzeResponse
	if err := c.post("/tasks/reanalyze", body, &resp); err != nil {
		return 0, err
	}
	return resp.Enqueued, nil
}

type pauseResponse struct {
	Success bool `json:"success"`
	Paused  bool `json:"paused"`
}

// PauseWorker pauses or resumes the enrichment worker.
func (c *Client) PauseWorker(paused bool) (bool, error) {
	var resp pauseResponse
	body := map[string]bool{"paused": paused}
	if err := c.post("/worker/pause", body, &resp); err != nil {
		return false, err
	}
	return resp.Paused, nil
}

// WorkerConfig adjusts the worker at runtime. A positive Concurrency
// overrides the configured value; zero or negative restores it. A
// non-negative BatchDelay (milliseconds) overrides; negative restores.
// Nil fields are left untouched.
type WorkerConfig struct {
	Concurrency *int   `json:"concurrency,omitempty"`
	BatchDelay  *int64 `json:"batchDelay,omitempty"`
}

type workerConfigResponse struct {
	Success     bool  `json:"success"`
	Concurrency int   `json:"concurrency"`
	BatchDelay  int64 `json:"batchDelay"`
}

// ConfigureWorker applies runtime worker settings and returns the effective
// concurrency and batch delay.
func (c *Client) ConfigureWorker(cfg WorkerConfig) (concurrency int, batchDelayMs int64, err error) {
	var resp workerConfigResponse
	if err := c.post("/worker/config", cfg, &resp); err != nil {
		return 0, 0, err
	}
	return resp.Concurrency, resp.BatchDelay, nil
}

// AnalyzedImage is the enrichment outcome of a synchronous analysis call.
type AnalyzedImage struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

type analyzeResponse struct {
	Success bool          `json:"success"`
	Image   AnalyzedImage `json:"image"`
}

// AnalyzeImage runs AI analysis on one image synchronously, bypassing the
// task queue.
func (c *Client) AnalyzeImage(id string) (*AnalyzedImage, error) {
	var resp analyzeResponse
	if err := c.post("/analyze/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Image, nil
}

// ImportStats summarizes a bulk folder import.
type ImportStats struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

type importResponse struct {
	Success bool        `json:"success"`
	Stats   ImportStats `json:"stats"`
}

// ImportFolder bulk-ingests a folder on the server's filesystem.
func (c *Client) ImportFolder(path string, analyze bool) (*ImportStats, error) {
	body := map[string]any{"path": path}
	if analyze {
		body["aiAnalysis"] = true
	}

	var resp importResponse
	if err := c.post("/import", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}
