// Package models defines the persistent records of the sticker catalog:
// images, categories, cached AI results, and the durable AI task queue.
package models

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&Image{},
		&Category{},
		&AIResult{},
		&AITask{},
	}
}
