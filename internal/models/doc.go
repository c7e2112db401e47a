// Package models defines the data model shared by the reconciliation engine, the YouTube playlist service, and the persistence layer.
//
// Configuration types describe what should be kept in sync:
//   - [PlaylistTarget] : one remote playlist, its ordering mode, change cap and schedule window
//   - [ChangeCap] : optional per-run ceilings on additions and removals
//   - [ScheduleWindow] : a daily wall-clock window in a reference timezone
//
// Per-cycle types describe a single reconciliation run:
//   - [Snapshot] : an ordered, duplicate-free list of [VideoID]
//   - [ChangeSet] : disjoint add/remove lists computed from two snapshots
//   - [ReconciliationPlan] : the decision and outcome for one target
//   - [ExecutionResult] : the aggregate result for all targets, with [CallMetrics]
//
// Per-cycle values carry no identity across runs. The run history stored by the repositories package is a copy kept for reporting.
package models
