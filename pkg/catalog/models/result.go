package models

import "time"

// AIResult caches the serialized AI analysis for a given content hash.
//
// Hash shares the domain of Image.ImageHash, so identical bytes uploaded
// under a fresh id reuse the cached analysis instead of re-invoking the
// model. Rows are never mutated once written, only replaced by an idempotent
// upsert or ignored.
type AIResult struct {
	Hash       string    `gorm:"primaryKey;size:64" json:"hash"`
	ResultJSON string    `gorm:"type:text;not null" json:"result_json"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for AIResult.
func (AIResult) TableName() string {
	return "ai_results"
}
