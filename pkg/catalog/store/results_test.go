package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stickerd/pkg/catalog/models"
)

func TestResultCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetResult(ctx, testHash("a"))
	assert.ErrorIs(t, err, models.ErrResultNotFound)

	require.NoError(t, s.PutResult(ctx, testHash("a"), `{"name":"笑死"}`))

	got, err := s.GetResult(ctx, testHash("a"))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"笑死"}`, got.ResultJSON)

	// Re-putting the same hash replaces the row instead of failing.
	require.NoError(t, s.PutResult(ctx, testHash("a"), `{"name":"哭了"}`))

	got, err = s.GetResult(ctx, testHash("a"))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"哭了"}`, got.ResultJSON)
}

func TestDeleteResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutResult(ctx, testHash("a"), `{"name":"笑死"}`))
	require.NoError(t, s.DeleteResult(ctx, testHash("a")))

	_, err := s.GetResult(ctx, testHash("a"))
	assert.ErrorIs(t, err, models.ErrResultNotFound)

	// Deleting a hash with no cached row is a no-op.
	assert.NoError(t, s.DeleteResult(ctx, testHash("never-cached")))
}
