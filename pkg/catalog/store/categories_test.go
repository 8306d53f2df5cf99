package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stickerd/pkg/catalog/models"
)

func TestCreateCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateCategory(ctx, &models.Category{Name: "开心", Description: "快乐的表情"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetCategory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "开心", got.Name)
	assert.Equal(t, "快乐的表情", got.Description)

	byName, err := s.GetCategoryByName(ctx, "开心")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	// Category names are unique.
	_, err = s.CreateCategory(ctx, &models.Category{Name: "开心"})
	assert.ErrorIs(t, err, models.ErrDuplicateCategory)
}

func TestListCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)

	_, err = s.CreateCategory(ctx, &models.Category{Name: "开心"})
	require.NoError(t, err)
	_, err = s.CreateCategory(ctx, &models.Category{Name: "伤心"})
	require.NoError(t, err)

	categories, err = s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
}

func TestDeleteCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateCategory(ctx, &models.Category{Name: "开心"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategory(ctx, id))

	_, err = s.GetCategory(ctx, id)
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)

	assert.ErrorIs(t, s.DeleteCategory(ctx, id), models.ErrCategoryNotFound)
}

func TestSetCategoryCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateCategory(ctx, &models.Category{Name: "开心"})
	require.NoError(t, err)

	require.NoError(t, s.SetCategoryCount(ctx, "开心", 7))

	got, err := s.GetCategoryByName(ctx, "开心")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.EmojiCount)

	// Unknown names are silently ignored.
	require.NoError(t, s.SetCategoryCount(ctx, "不存在", 3))
}
