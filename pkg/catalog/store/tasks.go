package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/marmos91/stickerd/pkg/catalog/models"
)

// ============================================
// AI TASK QUEUE OPERATIONS
// ============================================

// EnqueueTask inserts a PENDING task for an image.
//
// Returns models.ErrTaskExists when the image already has a PENDING or
// PROCESSING task, so arriving work is enrolled at most once while earlier
// work is still in flight.
func (s *GORMStore) EnqueueTask(ctx context.Context, emojiID, imagePath, imageHash string) (*models.AITask, error) {
	task := &models.AITask{
		EmojiID:   emojiID,
		ImagePath: imagePath,
		ImageHash: imageHash,
		Status:    models.TaskPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.AITask{}).
			Where("emoji_id = ? AND status IN ?", emojiID, []models.TaskStatus{models.TaskPending, models.TaskProcessing}).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return models.ErrTaskExists
		}
		_, err := createWithID(tx, ctx, task, func(t *models.AITask, id string) { t.ID = id }, task.ID, models.ErrTaskExists)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// FetchEligibleTasks returns PENDING tasks whose retry time has passed,
// oldest first. Callers over-fetch relative to free capacity and then race
// through TryClaim, so losing a claim on any row here is normal.
func (s *GORMStore) FetchEligibleTasks(ctx context.Context, limit int) ([]*models.AITask, error) {
	var tasks []*models.AITask
	if err := s.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", models.TaskPending, time.Now().UnixMilli()).
		Order("created_at ASC").
		Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// TryClaim atomically transitions a task from PENDING to PROCESSING.
//
// The claim is a single conditional UPDATE; it succeeds iff the row was still
// PENDING, which is what guarantees at-most-once concurrent processing even
// when several workers poll the same table. A false return just means another
// worker won the race.
func (s *GORMStore) TryClaim(ctx context.Context, taskID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.AITask{}).
		Where("id = ? AND status = ?", taskID, models.TaskPending).
		Updates(map[string]any{
			"status":     models.TaskProcessing,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TouchProcessing refreshes updated_at on a PROCESSING task. The claim
// already set the status; this only records that the worker picked it up.
func (s *GORMStore) TouchProcessing(ctx context.Context, taskID string) error {
	return s.db.WithContext(ctx).
		Model(&models.AITask{}).
		Where("id = ? AND status = ?", taskID, models.TaskProcessing).
		Update("updated_at", time.Now()).Error
}

// CompleteTaskSuccess marks a task SUCCEEDED.
func (s *GORMStore) CompleteTaskSuccess(ctx context.Context, taskID string) error {
	result := s.db.WithContext(ctx).
		Model(&models.AITask{}).
		Where("id = ?", taskID).
		Updates(map[string]any{
			"status":     models.TaskSucceeded,
			"last_error": "",
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTaskNotFound
	}
	return nil
}

// CompleteTaskFail records a failed attempt.
//
// The attempt counter is incremented; once it reaches maxAttempts the task
// goes terminal FAILED, otherwise it returns to PENDING with
// next_retry_at = now + backoffBase * 2^(attempts-1).
func (s *GORMStore) CompleteTaskFail(ctx context.Context, taskID string, taskErr error, maxAttempts int, backoffBase time.Duration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.AITask
		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			return convertNotFoundError(err, models.ErrTaskNotFound)
		}

		task.Attempts++
		updates := map[string]any{
			"attempts":   task.Attempts,
			"last_error": taskErr.Error(),
			"updated_at": time.Now(),
		}

		if task.Attempts >= maxAttempts {
			updates["status"] = models.TaskFailed
		} else {
			delay := backoffBase << (task.Attempts - 1)
			updates["status"] = models.TaskPending
			updates["next_retry_at"] = time.Now().Add(delay).UnixMilli()
		}

		return tx.Model(&models.AITask{}).Where("id = ?", taskID).Updates(updates).Error
	})
}

// CompleteTaskTerminal marks a task FAILED immediately, bypassing the retry
// budget. For failures no retry can repair, such as the image file being gone.
func (s *GORMStore) CompleteTaskTerminal(ctx context.Context, taskID string, taskErr error) error {
	result := s.db.WithContext(ctx).
		Model(&models.AITask{}).
		Where("id = ?", taskID).
		Updates(map[string]any{
			"status":     models.TaskFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": taskErr.Error(),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTaskNotFound
	}
	return nil
}

// ResetStuckTasks flips every PROCESSING row back to PENDING.
//
// Called exactly once at worker startup: PROCESSING rows at that point are
// leftovers from a crashed process and nobody owns them anymore.
func (s *GORMStore) ResetStuckTasks(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.AITask{}).
		Where("status = ?", models.TaskProcessing).
		Updates(map[string]any{
			"status":     models.TaskPending,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// RetryFailedTasks moves all FAILED tasks back to PENDING with a fresh retry
// budget. Returns the number of tasks re-enqueued.
func (s *GORMStore) RetryFailedTasks(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.AITask{}).
		Where("status = ?", models.TaskFailed).
		Updates(map[string]any{
			"status":        models.TaskPending,
			"attempts":      0,
			"next_retry_at": 0,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

// TaskStats counts tasks by status.
func (s *GORMStore) TaskStats(ctx context.Context) (*models.TaskStats, error) {
	stats := &models.TaskStats{}
	rows := []struct {
		Status models.TaskStatus
		Count  int64
	}{}
	if err := s.db.WithContext(ctx).
		Model(&models.AITask{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		switch row.Status {
		case models.TaskPending:
			stats.Pending = row.Count
		case models.TaskProcessing:
			stats.Processing = row.Count
		case models.TaskSucceeded:
			stats.Succeeded = row.Count
		case models.TaskFailed:
			stats.Failed = row.Count
		}
	}
	return stats, nil
}

// ListFailedEmojiIDs returns the image ids of all FAILED tasks.
func (s *GORMStore) ListFailedEmojiIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.AITask{}).
		Where("status = ?", models.TaskFailed).
		Order("updated_at ASC").
		Pluck("emoji_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// GetTask returns a task by id.
func (s *GORMStore) GetTask(ctx context.Context, id string) (*models.AITask, error) {
	return getByField[models.AITask](s.db, ctx, "id", id, models.ErrTaskNotFound)
}
