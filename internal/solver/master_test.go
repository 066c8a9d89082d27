package solver

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/branchprice/colgen/pkg/column"
	"github.com/branchprice/colgen/pkg/errors"
	"github.com/branchprice/colgen/pkg/testutil"
)

func patternColumn(label string, coeffs ...float64) *column.Dense {
	return column.NewDense(coeffs, 0, 1, column.WithLabel(label))
}

func newTestMaster(t *testing.T) *Master {
	t.Helper()
	return NewMaster(tinyInstance(), testutil.TestLogger(t))
}

func TestMasterAddColumn(t *testing.T) {
	m := newTestMaster(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	accepted, err := m.AddColumn(ctx, patternColumn("1x6", 1, 0), false)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 1, m.PatternCount())

	accepted, err = m.AddColumn(ctx, patternColumn("2x4", 0, 2), true)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 2, m.PatternCount())
}

func TestMasterDeclinesDuplicatePattern(t *testing.T) {
	m := newTestMaster(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	accepted, err := m.AddColumn(ctx, patternColumn("first", 1, 1), false)
	require.NoError(t, err)
	require.True(t, accepted)

	dup := patternColumn("second", 1, 1)
	accepted, err = m.AddColumn(ctx, dup, false)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, 1, m.PatternCount())

	// declined columns stay owned by the caller
	dup.Release()
}

func TestMasterAddColumnHonorsContext(t *testing.T) {
	m := newTestMaster(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	col := patternColumn("late", 1, 0)
	accepted, err := m.AddColumn(ctx, col, false)
	assert.False(t, accepted)
	assert.ErrorIs(t, err, context.Canceled)
	col.Release()
}

func TestMasterSolveSingletons(t *testing.T) {
	m := newTestMaster(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := m.AddColumn(ctx, patternColumn("1x6", 1, 0), false)
	require.NoError(t, err)
	_, err = m.AddColumn(ctx, patternColumn("2x4", 0, 2), false)
	require.NoError(t, err)

	sol, err := m.Solve()
	require.NoError(t, err)

	// min x1+x2 with x1 >= 2 and 2*x2 >= 2
	assert.InDelta(t, 3.0, sol.Objective, 1e-8)
	require.Len(t, sol.Usage, 2)
	assert.InDelta(t, 2.0, sol.Usage[0], 1e-8)
	assert.InDelta(t, 1.0, sol.Usage[1], 1e-8)

	// dual optimum is the unique vertex (1, 0.5)
	require.Len(t, sol.Duals, 2)
	assert.InDelta(t, 1.0, sol.Duals[0], 1e-8)
	assert.InDelta(t, 0.5, sol.Duals[1], 1e-8)
}

func TestMasterSolveAfterImprovingColumn(t *testing.T) {
	m := newTestMaster(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	for _, col := range []*column.Dense{
		patternColumn("1x6", 1, 0),
		patternColumn("2x4", 0, 2),
		patternColumn("1x6+1x4", 1, 1),
	} {
		_, err := m.AddColumn(ctx, col, false)
		require.NoError(t, err)
	}

	sol, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, sol.Objective, 1e-8)
	assert.LessOrEqual(t, m.CoverageGap(sol.Usage), 1e-8)
}

func TestMasterSolveEmptyIsInfeasible(t *testing.T) {
	m := newTestMaster(t)

	_, err := m.Solve()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, lp.ErrInfeasible))
	assert.True(t, errors.IsType(err, errors.ErrorTypeNumeric))
}

func TestMasterSolveUncoveredRowIsInfeasible(t *testing.T) {
	m := newTestMaster(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := m.AddColumn(ctx, patternColumn("1x6", 1, 0), false)
	require.NoError(t, err)

	_, err = m.Solve()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, lp.ErrInfeasible))
}

func TestMasterFarkasRay(t *testing.T) {
	m := newTestMaster(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	assert.Equal(t, []float64{1, 1}, m.FarkasRay(), "empty master leaves every row uncovered")

	_, err := m.AddColumn(ctx, patternColumn("1x6", 1, 0), false)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, m.FarkasRay())

	_, err = m.AddColumn(ctx, patternColumn("2x4", 0, 2), false)
	require.NoError(t, err)
	assert.Nil(t, m.FarkasRay(), "fully covered master has no certificate")
}

func TestMasterCoverageGap(t *testing.T) {
	m := newTestMaster(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := m.AddColumn(ctx, patternColumn("1x6+1x4", 1, 1), false)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, m.CoverageGap([]float64{2}), 1e-12)
	assert.InDelta(t, 1.0, m.CoverageGap([]float64{1}), 1e-12)
	assert.InDelta(t, 2.0, m.CoverageGap([]float64{0}), 1e-12)
}

func TestMasterSnapshot(t *testing.T) {
	m := newTestMaster(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := m.AddColumn(ctx, patternColumn("1x6", 1, 0), false)
	require.NoError(t, err)

	patterns, labels := m.Snapshot()
	require.Len(t, patterns, 1)
	assert.Equal(t, []float64{1, 0}, patterns[0])
	assert.Equal(t, []string{"1x6"}, labels)

	// mutating the snapshot must not touch the master
	patterns[0][0] = 99
	again, _ := m.Snapshot()
	assert.Equal(t, []float64{1, 0}, again[0])
}
