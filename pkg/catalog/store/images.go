package store

import (
	"context"

	"github.com/marmos91/stickerd/pkg/catalog/models"
)

// ============================================
// IMAGE OPERATIONS
// ============================================

func (s *GORMStore) GetImage(ctx context.Context, id string) (*models.Image, error) {
	return getByField[models.Image](s.db, ctx, "id", id, models.ErrImageNotFound)
}

func (s *GORMStore) GetImageByName(ctx context.Context, name string) (*models.Image, error) {
	return getByField[models.Image](s.db, ctx, "name", name, models.ErrImageNotFound)
}

// GetImageByHash looks up an image by its content hash. This is the ingest
// duplicate check: a hit means the exact bytes are already stored.
func (s *GORMStore) GetImageByHash(ctx context.Context, hash string) (*models.Image, error) {
	return getByField[models.Image](s.db, ctx, "image_hash", hash, models.ErrImageNotFound)
}

func (s *GORMStore) ListImages(ctx context.Context) ([]*models.Image, error) {
	var images []*models.Image
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// ListImagesByCategory returns all live images whose category equals name.
func (s *GORMStore) ListImagesByCategory(ctx context.Context, category string) ([]*models.Image, error) {
	var images []*models.Image
	if err := s.db.WithContext(ctx).Where("category = ?", category).Order("created_at ASC").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// ListImagesByTag returns all images carrying the given tag. Tags are stored
// as a serialized JSON array, so the match is a LIKE over the encoded form;
// exact membership is re-checked on the decoded slice.
func (s *GORMStore) ListImagesByTag(ctx context.Context, tag string) ([]*models.Image, error) {
	var images []*models.Image
	if err := s.db.WithContext(ctx).Where("tags LIKE ?", `%"`+escapeLike(tag)+`"%`).Order("created_at ASC").Find(&images).Error; err != nil {
		return nil, err
	}
	filtered := images[:0]
	for _, img := range images {
		if img.HasTag(tag) {
			filtered = append(filtered, img)
		}
	}
	return filtered, nil
}

// SearchImages performs a substring search over name and tags.
func (s *GORMStore) SearchImages(ctx context.Context, keyword string) ([]*models.Image, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	var images []*models.Image
	if err := s.db.WithContext(ctx).
		Where("name LIKE ? OR tags LIKE ?", pattern, pattern).
		Order("created_at ASC").
		Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (s *GORMStore) CreateImage(ctx context.Context, image *models.Image) (string, error) {
	return createWithID(s.db, ctx, image, func(i *models.Image, id string) { i.ID = id }, image.ID, models.ErrDuplicateImage)
}

// UpdateImage persists the mutable image fields (name, category, tags).
func (s *GORMStore) UpdateImage(ctx context.Context, image *models.Image) error {
	result := s.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("id = ?", image.ID).
		Select("Name", "Category", "Tags").
		Updates(image)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrImageNotFound
	}
	return nil
}

func (s *GORMStore) DeleteImage(ctx context.Context, id string) error {
	return deleteByField[models.Image](s.db, ctx, "id", id, models.ErrImageNotFound)
}

// CountImagesByCategory returns the number of live images in a category,
// used to recompute the derived category counters.
func (s *GORMStore) CountImagesByCategory(ctx context.Context, category string) (int64, error) {
	return countByField[models.Image](s.db, ctx, "category", category)
}

func (s *GORMStore) CountImages(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Image{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// RandomImage returns a uniformly random image, optionally constrained to a
// category. RANDOM() is supported by both SQLite and PostgreSQL.
func (s *GORMStore) RandomImage(ctx context.Context, category string) (*models.Image, error) {
	var image models.Image
	q := s.db.WithContext(ctx)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Order("RANDOM()").First(&image).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrImageNotFound)
	}
	return &image, nil
}

// escapeLike escapes LIKE metacharacters in user-supplied search input.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
