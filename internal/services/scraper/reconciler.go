package scraper

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/interfaces"
	"github.com/ternarybob/etfwatch/internal/models"
)

// Reconciler compares a fresh snapshot against what the store holds for the
// same (ticker, date) group and commits it. The diagnosis is advisory: the
// commit is always a full-group supersede so a partially written group can
// never survive a re-run.
type Reconciler struct {
	holdings interfaces.HoldingStorage
	logger   arbor.ILogger
}

// NewReconciler creates a reconciler over the given holding storage.
func NewReconciler(holdings interfaces.HoldingStorage, logger arbor.ILogger) *Reconciler {
	return &Reconciler{
		holdings: holdings,
		logger:   logger,
	}
}

// Diagnose compares the snapshot against the persisted group under the
// composite key (code, name, weight, shares).
func (r *Reconciler) Diagnose(ctx context.Context, snapshot *models.HoldingsSnapshot) (*models.ReconcileDecision, error) {
	existing, err := r.holdings.GetHoldings(ctx, snapshot.ETFTicker, snapshot.Date)
	if err != nil {
		return nil, &models.StoreError{Op: "get_holdings", Cause: err}
	}

	decision := &models.ReconcileDecision{
		ExistingCount: len(existing),
		NewCount:      len(snapshot.Holdings),
	}

	if len(existing) == 0 {
		decision.Action = models.ReconcileInsert
		decision.Reason = "no existing rows for group"
		return decision, nil
	}

	existingKeys := make(map[string]bool, len(existing))
	for _, h := range existing {
		existingKeys[h.CompositeKey()] = true
	}

	for i := range snapshot.Holdings {
		if existingKeys[snapshot.Holdings[i].CompositeKey()] {
			decision.MatchingCount++
		}
	}

	if decision.MatchingCount == len(existing) && decision.MatchingCount == len(snapshot.Holdings) {
		decision.Action = models.ReconcileSkipDuplicate
		decision.Reason = "new extraction identical to persisted group"
	} else {
		decision.Action = models.ReconcileReplace
		decision.Reason = fmt.Sprintf("%d of %d new rows match %d existing rows",
			decision.MatchingCount, decision.NewCount, decision.ExistingCount)
	}

	return decision, nil
}

// Commit diagnoses and then writes the snapshot via delete-then-insert.
// Identical re-extractions are still written; the write path is idempotent
// and skipping would hide storage-level drift. force bypasses the comparison
// entirely.
func (r *Reconciler) Commit(ctx context.Context, snapshot *models.HoldingsSnapshot, force bool) (*models.ReconcileDecision, error) {
	var decision *models.ReconcileDecision
	var err error

	if force {
		decision = &models.ReconcileDecision{
			Action:   models.ReconcileReplace,
			NewCount: len(snapshot.Holdings),
			Reason:   "comparison bypassed (force)",
		}
	} else {
		decision, err = r.Diagnose(ctx, snapshot)
		if err != nil {
			return nil, err
		}
	}

	if decision.IsDuplicate() {
		r.logger.Info().
			Str("etf_ticker", snapshot.ETFTicker).
			Str("date", snapshot.Date).
			Int("rows", decision.NewCount).
			Msg("Extraction identical to stored group, rewriting anyway")
	}

	holdings := make([]*models.Holding, len(snapshot.Holdings))
	for i := range snapshot.Holdings {
		snapshot.Holdings[i].SourceFile = snapshot.SourceFile
		holdings[i] = &snapshot.Holdings[i]
	}

	inserted, err := r.holdings.ReplaceHoldings(ctx, snapshot.ETFTicker, snapshot.Date, holdings)
	if err != nil {
		return decision, &models.StoreError{Op: "replace_holdings", Cause: err}
	}

	r.logger.Info().
		Str("etf_ticker", snapshot.ETFTicker).
		Str("date", snapshot.Date).
		Str("action", string(decision.Action)).
		Int("deleted", decision.ExistingCount).
		Int("inserted", inserted).
		Msg("Holdings group committed")

	return decision, nil
}
