package store

import (
	"context"

	"github.com/marmos91/stickerd/pkg/catalog/models"
)

// ============================================
// CATEGORY OPERATIONS
// ============================================

func (s *GORMStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return getByField[models.Category](s.db, ctx, "id", id, models.ErrCategoryNotFound)
}

func (s *GORMStore) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	return getByField[models.Category](s.db, ctx, "name", name, models.ErrCategoryNotFound)
}

func (s *GORMStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *GORMStore) CreateCategory(ctx context.Context, category *models.Category) (string, error) {
	return createWithID(s.db, ctx, category, func(c *models.Category, id string) { c.ID = id }, category.ID, models.ErrDuplicateCategory)
}

func (s *GORMStore) DeleteCategory(ctx context.Context, id string) error {
	return deleteByField[models.Category](s.db, ctx, "id", id, models.ErrCategoryNotFound)
}

// SetCategoryCount overwrites the derived emoji_count for a category.
// Missing categories are ignored: counts for unknown names are meaningless.
func (s *GORMStore) SetCategoryCount(ctx context.Context, name string, count int64) error {
	return s.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("name = ?", name).
		Update("emoji_count", count).Error
}
