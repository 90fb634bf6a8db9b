package scraper

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/etfwatch/internal/common"
	"github.com/ternarybob/etfwatch/internal/interfaces"
	"github.com/ternarybob/etfwatch/internal/models"
	badgerstorage "github.com/ternarybob/etfwatch/internal/storage/badger"
)

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "reconciler-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	logger := arbor.NewLogger()
	manager, err := badgerstorage.NewManager(logger, &common.BadgerConfig{Path: tmpDir})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { manager.Close() })

	return manager
}

func testSnapshot(ticker, date string, holdings []models.Holding) *models.HoldingsSnapshot {
	return &models.HoldingsSnapshot{
		ETFTicker:   ticker,
		Date:        date,
		Holdings:    holdings,
		Method:      models.MethodCSVFile,
		ExtractedAt: time.Now(),
	}
}

// Three consecutive runs against the same (ticker, date) group: a fresh
// insert, an identical re-extraction, and a changed extraction. The store
// must hold exactly the latest snapshot after each run.
func TestReconcilerThreeRunScenario(t *testing.T) {
	storage := newTestStorage(t)
	reconciler := NewReconciler(storage.HoldingStorage(), arbor.NewLogger())
	ctx := context.Background()

	baseline := []models.Holding{
		{ETFTicker: "TEST001", Date: "2025-09-08", StockCode: "2330", StockName: "台積電", Shares: 333314781, Weight: 58.75},
		{ETFTicker: "TEST001", Date: "2025-09-08", StockCode: "2317", StockName: "鴻海", Shares: 166547825, Weight: 5.1},
	}

	// Run 1: empty store, plain insert
	decision, err := reconciler.Commit(ctx, testSnapshot("TEST001", "2025-09-08", baseline), false)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileInsert, decision.Action)
	assert.Equal(t, 0, decision.ExistingCount)
	assert.Equal(t, 2, decision.NewCount)

	count, err := storage.HoldingStorage().CountHoldings(ctx, "TEST001", "2025-09-08")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Run 2: identical extraction, flagged duplicate but still committed
	decision, err = reconciler.Commit(ctx, testSnapshot("TEST001", "2025-09-08", baseline), false)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileSkipDuplicate, decision.Action)
	assert.True(t, decision.IsDuplicate())
	assert.Equal(t, 2, decision.MatchingCount)

	count, err = storage.HoldingStorage().CountHoldings(ctx, "TEST001", "2025-09-08")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "duplicate commit must not grow the group")

	// Run 3: one weight changed, group is superseded
	changed := []models.Holding{
		{ETFTicker: "TEST001", Date: "2025-09-08", StockCode: "2330", StockName: "台積電", Shares: 333314781, Weight: 59.0},
		{ETFTicker: "TEST001", Date: "2025-09-08", StockCode: "2317", StockName: "鴻海", Shares: 166547825, Weight: 5.1},
	}
	decision, err = reconciler.Commit(ctx, testSnapshot("TEST001", "2025-09-08", changed), false)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileReplace, decision.Action)
	assert.Equal(t, 1, decision.MatchingCount)

	got, err := storage.HoldingStorage().GetHoldings(ctx, "TEST001", "2025-09-08")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 59.0, got[0].Weight, "stored group must reflect the latest extraction")
}

func TestReconcilerDiagnoseDoesNotWrite(t *testing.T) {
	storage := newTestStorage(t)
	reconciler := NewReconciler(storage.HoldingStorage(), arbor.NewLogger())
	ctx := context.Background()

	snapshot := testSnapshot("TEST001", "2025-09-08", []models.Holding{
		{ETFTicker: "TEST001", Date: "2025-09-08", StockCode: "2330", StockName: "台積電", Shares: 100, Weight: 10},
	})

	decision, err := reconciler.Diagnose(ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileInsert, decision.Action)

	count, err := storage.HoldingStorage().CountHoldings(ctx, "TEST001", "2025-09-08")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReconcilerCommitSetsSourceFile(t *testing.T) {
	storage := newTestStorage(t)
	reconciler := NewReconciler(storage.HoldingStorage(), arbor.NewLogger())
	ctx := context.Background()

	snapshot := testSnapshot("TEST001", "2025-09-08", []models.Holding{
		{ETFTicker: "TEST001", Date: "2025-09-08", StockCode: "2330", StockName: "台積電", Shares: 100, Weight: 10},
	})
	snapshot.SourceFile = "/downloads/yuanta/TEST001/export.csv"

	_, err := reconciler.Commit(ctx, snapshot, false)
	require.NoError(t, err)

	got, err := storage.HoldingStorage().GetHoldings(ctx, "TEST001", "2025-09-08")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, snapshot.SourceFile, got[0].SourceFile)
}

func TestReconcilerForceBypassesComparison(t *testing.T) {
	storage := newTestStorage(t)
	reconciler := NewReconciler(storage.HoldingStorage(), arbor.NewLogger())
	ctx := context.Background()

	baseline := []models.Holding{
		{ETFTicker: "TEST001", Date: "2025-09-08", StockCode: "2330", StockName: "台積電", Shares: 100, Weight: 10},
	}

	_, err := reconciler.Commit(ctx, testSnapshot("TEST001", "2025-09-08", baseline), false)
	require.NoError(t, err)

	// Identical snapshot with force: no duplicate diagnosis, straight replace
	decision, err := reconciler.Commit(ctx, testSnapshot("TEST001", "2025-09-08", baseline), true)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileReplace, decision.Action)
	assert.False(t, decision.IsDuplicate())

	count, err := storage.HoldingStorage().CountHoldings(ctx, "TEST001", "2025-09-08")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// Guard against badgerhold query drift: the index tags on Holding are what
// DeleteMatching relies on.
func TestHoldingIndexedQueries(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	_, err := storage.HoldingStorage().InsertHoldings(ctx, []*models.Holding{
		{ETFTicker: "0050", Date: "2025-09-08", StockCode: "2330", StockName: "台積電", Shares: 1, Weight: 1},
	})
	require.NoError(t, err)

	store, ok := storage.DB().(*badgerhold.Store)
	require.True(t, ok)

	var holdings []models.Holding
	err = store.Find(&holdings, badgerhold.Where("ETFTicker").Eq("0050").Index("ETFTicker"))
	require.NoError(t, err)
	assert.Len(t, holdings, 1)
}
