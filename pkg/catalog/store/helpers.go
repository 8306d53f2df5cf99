package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Generic GORM helpers shared by the catalog store files. They are unexported
// and operate on the raw *gorm.DB so individual operation files stay focused
// on domain semantics: context propagation, not-found conversion, and unique
// constraint detection live here.

// getByField retrieves a single record of type T by matching field=value,
// converting gorm.ErrRecordNotFound to the provided domain error.
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error) (*T, error) {
	var result T
	if err := db.WithContext(ctx).Where(field+" = ?", value).First(&result).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// createWithID generates a UUID for the entity if currentID is empty, then
// creates it. Unique constraint violations are converted to dupErr.
func createWithID[T any](db *gorm.DB, ctx context.Context, entity *T, idSetter func(*T, string), currentID string, dupErr error) (string, error) {
	id := currentID
	if id == "" {
		id = uuid.New().String()
		idSetter(entity, id)
	}
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", dupErr
		}
		return "", err
	}
	return id, nil
}

// deleteByField deletes records of type T matching field=value.
// Returns notFoundErr if no rows were affected.
func deleteByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error) error {
	var zero T
	result := db.WithContext(ctx).Where(field+" = ?", value).Delete(&zero)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr
	}
	return nil
}

// countByField counts records of type T matching field=value.
func countByField[T any](db *gorm.DB, ctx context.Context, field string, value any) (int64, error) {
	var zero T
	var count int64
	if err := db.WithContext(ctx).Model(&zero).Where(field+" = ?", value).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
