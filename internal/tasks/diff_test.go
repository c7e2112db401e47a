package tasks

import (
	"testing"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name       string
		current    models.Snapshot
		target     models.Snapshot
		wantAdd    []models.VideoID
		wantRemove []models.VideoID
	}{
		{
			name:       "partial overlap",
			current:    snap("a", "b", "c"),
			target:     snap("c", "d"),
			wantAdd:    ids("d"),
			wantRemove: ids("a", "b"),
		},
		{
			name:       "empty current",
			current:    snap(),
			target:     snap("x", "y"),
			wantAdd:    ids("x", "y"),
			wantRemove: ids(),
		},
		{
			name:       "empty target",
			current:    snap("x", "y"),
			target:     snap(),
			wantAdd:    ids(),
			wantRemove: ids("x", "y"),
		},
		{
			name:       "same members different order",
			current:    snap("a", "b"),
			target:     snap("b", "a"),
			wantAdd:    ids(),
			wantRemove: ids(),
		},
		{
			name:       "add follows rank order and remove follows position order",
			current:    snap("z", "m", "a"),
			target:     snap("q", "p", "m"),
			wantAdd:    ids("q", "p"),
			wantRemove: ids("z", "a"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := Diff(tt.current, tt.target)
			assert.Equal(t, tt.wantAdd, cs.Add)
			assert.Equal(t, tt.wantRemove, cs.Remove)

			for _, id := range cs.Add {
				assert.NotContains(t, cs.Remove, id, "add and remove must be disjoint")
			}

			applied := tt.current.Set()
			for _, id := range cs.Remove {
				delete(applied, id)
			}
			for _, id := range cs.Add {
				applied[id] = struct{}{}
			}
			assert.Equal(t, tt.target.Set(), applied, "applying changes must yield the target membership")
		})
	}
}

func TestDecide(t *testing.T) {
	t.Run("unordered identical members skip", func(t *testing.T) {
		d := Decide(models.UnorderedDiff, snap("a", "b"), snap("b", "a"))
		assert.Equal(t, models.StatusSkipIdentical, d.Status)
		assert.False(t, d.Rebuild)
		assert.True(t, d.Changes.Empty())
	})

	t.Run("unordered with changes is planned", func(t *testing.T) {
		d := Decide(models.UnorderedDiff, snap("a", "b", "c"), snap("c", "d"))
		assert.Equal(t, models.StatusPlanned, d.Status)
		assert.Equal(t, ids("d"), d.Changes.Add)
		assert.Equal(t, ids("a", "b"), d.Changes.Remove)
	})

	t.Run("ordered identical sequence skips", func(t *testing.T) {
		d := Decide(models.OrderedRebuild, snap("a", "b"), snap("a", "b"))
		assert.Equal(t, models.StatusSkipIdentical, d.Status)
		assert.False(t, d.Rebuild)
		assert.True(t, d.Changes.Empty())
	})

	t.Run("ordered reorder rebuilds", func(t *testing.T) {
		d := Decide(models.OrderedRebuild, snap("a", "b"), snap("b", "a"))
		assert.Equal(t, models.StatusClearAndRebuild, d.Status)
		assert.True(t, d.Rebuild)
		assert.Equal(t, ids("a", "b"), d.Changes.Remove)
		assert.Equal(t, ids("b", "a"), d.Changes.Add)
	})

	t.Run("ordered empty to filled rebuilds", func(t *testing.T) {
		d := Decide(models.OrderedRebuild, snap(), snap("a"))
		assert.Equal(t, models.StatusClearAndRebuild, d.Status)
		assert.Empty(t, d.Changes.Remove)
		assert.Equal(t, ids("a"), d.Changes.Add)
	})

	t.Run("ordered duplicate entry rebuilds", func(t *testing.T) {
		d := Decide(models.OrderedRebuild, ids("a", "b", "a"), snap("a", "b"))
		assert.Equal(t, models.StatusClearAndRebuild, d.Status)
		assert.True(t, d.Rebuild)
		assert.Equal(t, ids("a", "b"), d.Changes.Remove)
		assert.Equal(t, ids("a", "b"), d.Changes.Add)
	})

	t.Run("unordered keeps duplicates of kept videos", func(t *testing.T) {
		d := Decide(models.UnorderedDiff, ids("a", "a"), snap("a"))
		assert.Equal(t, models.StatusSkipIdentical, d.Status)
		assert.True(t, d.Changes.Empty())
	})

	t.Run("ordered rebuild copies inputs", func(t *testing.T) {
		current, target := snap("a"), snap("b")
		d := Decide(models.OrderedRebuild, current, target)
		d.Changes.Add[0] = "mutated"
		assert.Equal(t, snap("b"), target)
	})
}
