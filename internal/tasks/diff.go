package tasks

import (
	"slices"

	"github.com/desertthunder/plsync/internal/models"
)

// DiffResult is the decision for one target before any cap is applied.
type DiffResult struct {
	Status  models.PlanStatus
	Changes models.ChangeSet
	Rebuild bool
}

// Diff computes add = target \ current and remove = current \ target.
//
// Add keeps target order and Remove keeps current order. Membership is compared as sets, so extra
// remote copies of a video that stays in the target are left in place.
func Diff(current, target models.Snapshot) models.ChangeSet {
	cur, tgt := current.Set(), target.Set()

	cs := models.ChangeSet{Add: []models.VideoID{}, Remove: []models.VideoID{}}
	for _, id := range target {
		if _, ok := cur[id]; !ok {
			cs.Add = append(cs.Add, id)
		}
	}
	for _, id := range current {
		if _, ok := tgt[id]; !ok {
			cs.Remove = append(cs.Remove, id)
		}
	}
	return cs
}

// Decide picks the plan status for mode. remote is the full remote sequence, duplicates included.
//
// In ordered-rebuild mode any difference in value or position, including a duplicate entry, schedules
// every current video for removal and every target item for insertion at its index.
func Decide(mode models.OrderingMode, remote []models.VideoID, target models.Snapshot) DiffResult {
	current := models.NewSnapshot(remote)
	if mode == models.OrderedRebuild {
		if slices.Equal(remote, []models.VideoID(target)) {
			return DiffResult{Status: models.StatusSkipIdentical, Changes: models.ChangeSet{Add: []models.VideoID{}, Remove: []models.VideoID{}}}
		}
		return DiffResult{
			Status:  models.StatusClearAndRebuild,
			Changes: models.ChangeSet{Add: append([]models.VideoID{}, target...), Remove: append([]models.VideoID{}, current...)},
			Rebuild: true,
		}
	}

	cs := Diff(current, target)
	if cs.Empty() {
		return DiffResult{Status: models.StatusSkipIdentical, Changes: cs}
	}
	return DiffResult{Status: models.StatusPlanned, Changes: cs}
}
