package graph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeforge/backend/pkg/models"
)

func TestContentHash(t *testing.T) {
	t.Run("layout changes do not change the hash", func(t *testing.T) {
		f := newChainFixture()
		before, err := ContentHash(f.w)
		require.NoError(t, err)

		f.w.Operators[0].Position = models.Position{X: 120, Y: -40}
		f.w.Inputs[0].Position = models.Position{X: 3, Y: 3}
		f.w.Links[0].Path = []models.Position{{X: 1, Y: 1}, {X: 2, Y: 2}}

		after, err := ContentHash(f.w)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("structural changes change the hash", func(t *testing.T) {
		f := newChainFixture()
		before, err := ContentHash(f.w)
		require.NoError(t, err)

		f.w.Constants[0].Value = "3.0"
		after, err := ContentHash(f.w)
		require.NoError(t, err)
		assert.NotEqual(t, before, after)
	})

	t.Run("hashing does not mutate the graph", func(t *testing.T) {
		f := newChainFixture()
		f.w.Operators[0].Position = models.Position{X: 7, Y: 7}
		f.w.Links[0].Path = []models.Position{{X: 1, Y: 1}}

		_, err := ContentHash(f.w)
		require.NoError(t, err)
		assert.Equal(t, models.Position{X: 7, Y: 7}, f.w.Operators[0].Position)
		assert.Len(t, f.w.Links[0].Path, 1)
	})

	t.Run("operator identity matters", func(t *testing.T) {
		f := newChainFixture()
		before, err := ContentHash(f.w)
		require.NoError(t, err)

		f.w.Operators[0].TransformationID = uuid.New()
		after, err := ContentHash(f.w)
		require.NoError(t, err)
		assert.NotEqual(t, before, after)
	})
}
