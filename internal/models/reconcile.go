package models

// ReconcileAction is the decision taken for one (ticker, date) group.
type ReconcileAction string

const (
	// ReconcileInsert: no rows exist for the group yet.
	ReconcileInsert ReconcileAction = "insert"
	// ReconcileSkipDuplicate: persisted rows are set-identical to the new
	// extraction under the composite key. The common "nothing changed since
	// last run" path.
	ReconcileSkipDuplicate ReconcileAction = "skip_duplicate"
	// ReconcileReplace: rows exist and differ; the group is fully superseded
	// by delete-then-insert.
	ReconcileReplace ReconcileAction = "replace"
)

// ReconcileDecision is an ephemeral diagnostic, never persisted. The counts
// and reason feed logging; commit is always a full-group supersede (see
// scraper.Reconciler).
type ReconcileDecision struct {
	Action        ReconcileAction `json:"action"`
	ExistingCount int             `json:"existing_count"`
	NewCount      int             `json:"new_count"`
	MatchingCount int             `json:"matching_count"`
	Reason        string          `json:"reason"`
}

// IsDuplicate reports whether the new extraction matched the persisted group
// exactly.
func (d *ReconcileDecision) IsDuplicate() bool {
	return d.Action == ReconcileSkipDuplicate
}
