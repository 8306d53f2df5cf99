package models

import "time"

// TaskStatus is the lifecycle state of an AI enrichment task.
type TaskStatus string

const (
	// TaskPending means the task is waiting to be claimed by a worker.
	TaskPending TaskStatus = "PENDING"
	// TaskProcessing means exactly one worker owns the task.
	TaskProcessing TaskStatus = "PROCESSING"
	// TaskSucceeded is terminal: the image was enriched and the result cached.
	TaskSucceeded TaskStatus = "SUCCEEDED"
	// TaskFailed is terminal: the retry budget was exhausted.
	TaskFailed TaskStatus = "FAILED"
)

// IsTerminal reports whether the status never transitions again on its own.
// FAILED can still be flipped back to PENDING by an operator retry.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// AITask is a durable unit of enrichment work for one image.
//
// EmojiID references the image to update on success; ImagePath and ImageHash
// are captured at enqueue time so the worker does not depend on the image row
// surviving until processing. NextRetryAt of zero means eligible immediately.
//
// Invariants:
//   - at most one non-terminal task per EmojiID (enforced by the enqueue path)
//   - a PROCESSING task is owned by exactly one worker (conditional claim)
type AITask struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	EmojiID     string     `gorm:"size:36;not null;index" json:"emoji_id"`
	ImagePath   string     `gorm:"not null" json:"image_path"`
	ImageHash   string     `gorm:"size:64;not null" json:"image_hash"`
	Status      TaskStatus `gorm:"size:16;not null;index:idx_tasks_eligible,priority:1" json:"status"`
	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	NextRetryAt int64      `gorm:"default:0;index:idx_tasks_eligible,priority:2" json:"next_retry_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index:idx_tasks_eligible,priority:3" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for AITask.
func (AITask) TableName() string {
	return "ai_tasks"
}

// TaskStats summarizes the queue by status.
type TaskStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Succeeded  int64 `json:"succeeded"`
	Failed     int64 `json:"failed"`
}
