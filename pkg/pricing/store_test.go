package pricing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchprice/colgen/pkg/column"
	"github.com/branchprice/colgen/pkg/errors"
	"github.com/branchprice/colgen/pkg/testutil"
)

// mkcol builds a labelled candidate column. Obj mirrors the reduced
// cost; the store never combines the two.
func mkcol(label string, redCost float64, coeffs ...float64) *column.Dense {
	return column.NewDense(coeffs, redCost, redCost, column.WithLabel(label))
}

// countingCol wraps a Dense column and counts Release calls.
type countingCol struct {
	*column.Dense
	released *int
}

func (c *countingCol) Release() {
	*c.released++
	c.Dense.Release()
}

func newTestStore(t *testing.T, cfg *Config) (*Store, *testutil.FakeMaster) {
	t.Helper()
	master := testutil.NewFakeMaster()
	store, err := NewStore("test", cfg, master, testutil.TestLogger(t))
	require.NoError(t, err)
	return store, master
}

func TestNewStoreValidation(t *testing.T) {
	master := testutil.NewFakeMaster()

	t.Run("nil config uses defaults", func(t *testing.T) {
		store, err := NewStore("s", nil, master, nil)
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.NoError(t, store.Close())
	})

	t.Run("nil master rejected", func(t *testing.T) {
		_, err := NewStore("s", nil, nil, nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("lambda mode rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EfficacyMode = EfficacyLambda
		_, err := NewStore("s", cfg, master, nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EfficacyMode = "devex"
		_, err := NewStore("s", cfg, master, nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("negative weight rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.OrthogonalityWeight = -1
		_, err := NewStore("s", cfg, master, nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("threshold outside unit interval rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MinOrthogonality = 1.5
		_, err := NewStore("s", cfg, master, nil)
		require.Error(t, err)
	})

	t.Run("negative cap rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxColsFarkas = -1
		_, err := NewStore("s", cfg, master, nil)
		require.Error(t, err)
	})
}

func TestAddColPartition(t *testing.T) {
	store, _ := newTestStore(t, nil)

	store.AddCol(mkcol("d1", -1, 1, 0), false)
	assert.Equal(t, 1, store.NumCols())
	assert.Equal(t, 0, store.NumForced())

	store.AddCol(mkcol("f1", -1, 0, 1), true)
	assert.Equal(t, 2, store.NumCols())
	assert.Equal(t, 1, store.NumForced())

	store.AddCol(mkcol("f2", -1, 1, 1), true)
	assert.Equal(t, 3, store.NumCols())
	assert.Equal(t, 2, store.NumForced())

	assert.Equal(t, int64(3), store.TotalColumnsFound())
	assert.Equal(t, int64(3), store.ColumnsFoundThisRound())

	store.ClearCols()
	require.NoError(t, store.Close())
}

func TestAddColKeepsForcedInFront(t *testing.T) {
	// Interleave forced and discretionary admissions, then apply with a
	// cap of zero: exactly the forced columns must reach the master.
	cfg := DefaultConfig()
	cfg.MaxCols = 0
	store, master := newTestStore(t, cfg)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	store.AddCol(mkcol("d1", -9, 1, 0), false)
	store.AddCol(mkcol("f1", -1, 0, 1), true)
	store.AddCol(mkcol("d2", -8, 1, 1), false)
	store.AddCol(mkcol("f2", -1, 1, 2), true)

	applied, err := store.ApplyCols(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.ElementsMatch(t, []string{"f1", "f2"}, master.AppliedLabels())
	for _, a := range master.Applied() {
		assert.True(t, a.Forced)
	}
	assert.Equal(t, 0, store.NumCols())
	require.NoError(t, store.Close())
}

func TestDelColSwapRemoval(t *testing.T) {
	store, master := newTestStore(t, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	store.AddCol(mkcol("a", -5, 1, 0, 0), false)
	store.AddCol(mkcol("b", -4, 0, 1, 0), false)
	store.AddCol(mkcol("c", -3, 0, 0, 1), false)

	store.DelCol(1, true)
	assert.Equal(t, 2, store.NumCols())

	// Remaining set must be {a, c} regardless of order.
	applied, err := store.ApplyCols(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.ElementsMatch(t, []string{"a", "c"}, master.AppliedLabels())
	require.NoError(t, store.Close())
}

func TestDelColPreconditions(t *testing.T) {
	store, _ := newTestStore(t, nil)

	store.AddCol(mkcol("f", -1, 1), true)
	store.AddCol(mkcol("d", -1, 1), false)

	assert.Panics(t, func() { store.DelCol(0, true) }, "forced index")
	assert.Panics(t, func() { store.DelCol(2, true) }, "past the end")
	assert.Panics(t, func() { store.DelCol(-1, true) }, "negative index")

	store.ClearCols()
	require.NoError(t, store.Close())
}

func TestClearColsReleasesResidents(t *testing.T) {
	store, _ := newTestStore(t, nil)

	released := 0
	for i := 0; i < 3; i++ {
		store.AddCol(&countingCol{
			Dense:    mkcol(fmt.Sprintf("d%d", i), -1, 1, float64(i)),
			released: &released,
		}, false)
	}
	store.AddCol(&countingCol{
		Dense:    mkcol("f", -1, 0, 1),
		released: &released,
	}, true)

	store.ClearCols()

	assert.Equal(t, 4, released)
	assert.Equal(t, 0, store.NumCols())
	assert.Equal(t, 0, store.NumForced())
	assert.Equal(t, int64(0), store.ColumnsFoundThisRound())
	assert.Equal(t, int64(4), store.TotalColumnsFound())
	require.NoError(t, store.Close())
}

func TestRemoveInefficaciousCols(t *testing.T) {
	store, master := newTestStore(t, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	store.AddCol(mkcol("good", -2, 1, 0), false)
	store.AddCol(mkcol("stale", 0.5, 0, 1), false)
	store.AddCol(mkcol("borderline", -1e-12, 1, 1), false)

	removed := store.RemoveInefficaciousCols()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.NumCols())

	applied, err := store.ApplyCols(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, []string{"good"}, master.AppliedLabels())
	require.NoError(t, store.Close())
}

func TestRemoveInefficaciousColsSkipsForced(t *testing.T) {
	// Forced columns are exempt even when their reduced cost is stale.
	store, _ := newTestStore(t, nil)

	store.AddCol(mkcol("forced-stale", 3, 1, 0), true)
	assert.Equal(t, 0, store.RemoveInefficaciousCols())
	assert.Equal(t, 1, store.NumCols())

	store.ClearCols()
	require.NoError(t, store.Close())
}

func TestCloseNonEmptyPanics(t *testing.T) {
	store, _ := newTestStore(t, nil)
	store.AddCol(mkcol("d", -1, 1), false)

	assert.Panics(t, func() { _ = store.Close() })

	store.ClearCols()
	require.NoError(t, store.Close())
}

func TestStoreMetricsSnapshot(t *testing.T) {
	store, _ := newTestStore(t, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	store.AddCol(mkcol("a", -5, 1, 0), false)
	store.AddCol(mkcol("b", -3, 0, 1), false)
	_, err := store.ApplyCols(ctx, false)
	require.NoError(t, err)

	m := store.GetMetrics()
	assert.Equal(t, int64(2), m.TotalColumnsFound)
	assert.Equal(t, int64(0), m.ColumnsFoundThisRound)
	assert.Equal(t, int64(2), m.TotalColumnsApplied)
	assert.Equal(t, int64(1), m.Rounds)
	assert.Greater(t, m.Elapsed.Nanoseconds(), int64(0))
	assert.Equal(t, m.Elapsed, store.Elapsed())
	require.NoError(t, store.Close())
}

func TestStoreGrowth(t *testing.T) {
	store, master := newTestStore(t, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	// Push well past the initial capacity.
	for i := 0; i < 100; i++ {
		store.AddCol(mkcol(fmt.Sprintf("c%d", i), -1-float64(i)*0.01, float64(i+1)), false)
	}
	assert.Equal(t, 100, store.NumCols())
	assert.GreaterOrEqual(t, store.Capacity(), 100)

	applied, err := store.ApplyCols(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 100, applied)
	assert.Len(t, master.Applied(), 100)
	require.NoError(t, store.Close())
}
