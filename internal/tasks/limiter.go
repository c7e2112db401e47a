package tasks

import "github.com/desertthunder/plsync/internal/models"

// ChangeLimiter truncates unordered-diff change sets.
//
// MaxChanges applies to any direction the target's own cap leaves unset.
type ChangeLimiter struct {
	MaxChanges *int
}

// Limits returns the effective maxima for target. Nil means unlimited.
func (l ChangeLimiter) Limits(target models.PlaylistTarget) (maxAdd, maxRemove *int) {
	maxAdd, maxRemove = l.MaxChanges, l.MaxChanges
	if target.Cap != nil {
		if target.Cap.MaxAdd != nil {
			maxAdd = target.Cap.MaxAdd
		}
		if target.Cap.MaxRemove != nil {
			maxRemove = target.Cap.MaxRemove
		}
	}
	return maxAdd, maxRemove
}

// Apply keeps the first N entries of each list and reports how many were deferred.
// Ordered-rebuild targets are returned unchanged.
func (l ChangeLimiter) Apply(target models.PlaylistTarget, cs models.ChangeSet) (limited models.ChangeSet, addDeferred, removeDeferred int) {
	if target.Mode == models.OrderedRebuild {
		return cs, 0, 0
	}

	maxAdd, maxRemove := l.Limits(target)
	limited.Add, addDeferred = truncate(cs.Add, maxAdd)
	limited.Remove, removeDeferred = truncate(cs.Remove, maxRemove)
	return limited, addDeferred, removeDeferred
}

func truncate(ids []models.VideoID, limit *int) ([]models.VideoID, int) {
	if limit == nil || *limit >= len(ids) {
		return ids, 0
	}
	n := max(*limit, 0)
	return ids[:n:n], len(ids) - n
}
