package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/marmos91/stickerd/pkg/catalog/models"
)

// ============================================
// AI RESULT CACHE OPERATIONS
// ============================================

// GetResult returns the cached AI result for a content hash.
func (s *GORMStore) GetResult(ctx context.Context, hash string) (*models.AIResult, error) {
	return getByField[models.AIResult](s.db, ctx, "hash", hash, models.ErrResultNotFound)
}

// PutResult upserts the cached AI result for a content hash.
//
// The upsert is idempotent: re-running a task that crashed between the model
// call and the cache write simply replaces the row with equivalent content.
func (s *GORMStore) PutResult(ctx context.Context, hash, resultJSON string) error {
	result := &models.AIResult{
		Hash:       hash,
		ResultJSON: resultJSON,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"result_json"}),
		}).
		Create(result).Error
}

// DeleteResult drops the cached AI result for a content hash. Deleting a
// hash with no cached row is a no-op.
func (s *GORMStore) DeleteResult(ctx context.Context, hash string) error {
	return s.db.WithContext(ctx).
		Where("hash = ?", hash).
		Delete(&models.AIResult{}).Error
}
