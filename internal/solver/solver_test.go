package solver

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchprice/colgen/pkg/compression"
	"github.com/branchprice/colgen/pkg/config"
	"github.com/branchprice/colgen/pkg/errors"
	"github.com/branchprice/colgen/pkg/testutil"
	"github.com/branchprice/colgen/pkg/trace"
)

func newTestSolver(t *testing.T, cfg *config.SolveConfig) *Solver {
	t.Helper()
	s, err := New(cfg, tinyInstance(), testutil.TestLogger(t))
	require.NoError(t, err)
	return s
}

func TestSolveTinyInstance(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	s := newTestSolver(t, nil)
	result, err := s.Solve(ctx)
	require.NoError(t, err)

	// Two 6+4 cuts cover both demands; the LP bound is exactly 2 rolls.
	assert.InDelta(t, 2.0, result.Objective, 1e-6)
	assert.Equal(t, 2, result.IntegerRolls)
	assert.True(t, result.Converged)
	assert.Equal(t, 2, result.Rounds)
	assert.Equal(t, "tiny", result.Instance)
	assert.NotEmpty(t, result.Patterns)
	assert.Positive(t, result.ColumnsApplied)
	assert.Positive(t, result.Elapsed)

	usage := make(map[string]float64)
	for _, p := range result.Patterns {
		usage[p.Label] = p.Usage
	}
	assert.InDelta(t, 2.0, usage["1x6+1x4"], 1e-6)
}

func TestSolveFromEmptyMasterUsesFarkas(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	cfg := config.NewSolveConfig("farkas")
	cfg.Search.SeedSingletons = false

	s := newTestSolver(t, cfg)
	result, err := s.Solve(ctx)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, result.Objective, 1e-6)
	assert.True(t, result.Converged)
	assert.LessOrEqual(t, result.Rounds, 5)
}

func TestSolveWritesTrace(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	path := filepath.Join(env.TempDir(), "trace.jsonl")
	cfg := config.NewSolveConfig("traced")
	cfg.Trace.Enabled = true
	cfg.Trace.Path = path
	cfg.Trace.Compression = "none"

	s := newTestSolver(t, cfg)
	result, err := s.Solve(ctx)
	require.NoError(t, err)
	require.True(t, result.Converged)

	records, err := trace.ReadFile(path, compression.None)
	require.NoError(t, err)
	require.Len(t, records, result.Rounds)

	first := records[0]
	assert.Equal(t, 1, first.Round)
	assert.Equal(t, "redcost", first.Phase)
	assert.InDelta(t, 3.0, first.Objective, 1e-6, "round 1 solves the singleton master")
	assert.Positive(t, first.DualsDigest)
	assert.Equal(t, 1, first.Applied)

	last := records[len(records)-1]
	assert.Equal(t, result.Rounds, last.Round)
	assert.InDelta(t, result.Objective, last.Objective, 1e-6)
	assert.Zero(t, last.Applied, "final round applies nothing")
}

func TestSolveCompressedTrace(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	path := filepath.Join(env.TempDir(), "trace.jsonl.zst")
	cfg := config.NewSolveConfig("traced-zstd")
	cfg.Trace.Enabled = true
	cfg.Trace.Path = path
	cfg.Trace.Compression = "zstd"

	s := newTestSolver(t, cfg)
	result, err := s.Solve(ctx)
	require.NoError(t, err)

	records, err := trace.ReadFile(path, compression.Zstd)
	require.NoError(t, err)
	assert.Len(t, records, result.Rounds)
}

func TestSolveStopsAtMaxRounds(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	cfg := config.NewSolveConfig("capped")
	cfg.Search.MaxRounds = 1

	s := newTestSolver(t, cfg)
	result, err := s.Solve(ctx)
	require.NoError(t, err)

	assert.False(t, result.Converged)
	assert.Equal(t, 1, result.Rounds)
	// Round 1 admitted the improving pattern, and the final re-solve
	// already benefits from it.
	assert.InDelta(t, 2.0, result.Objective, 1e-6)
}

func TestSolveHonorsTimeLimit(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	cfg := config.NewSolveConfig("timeout")
	cfg.Search.TimeLimit = time.Nanosecond

	s := newTestSolver(t, cfg)
	_, err := s.Solve(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestNewSolverValidation(t *testing.T) {
	logger := testutil.TestLogger(t)

	_, err := New(nil, nil, logger)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	bad := tinyInstance()
	bad.RollWidth = 0
	_, err = New(nil, bad, logger)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	cfg := config.NewSolveConfig("bad-pricing")
	cfg.Pricing.EfficacyWeight = -1
	_, err = New(cfg, tinyInstance(), logger)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSolveDemoInstance(t *testing.T) {
	if testing.Short() {
		t.Skip("demo instance takes a few hundred master solves")
	}

	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	cfg := config.NewSolveConfig("demo")
	s, err := New(cfg, DemoInstance(), testutil.TestLogger(t))
	require.NoError(t, err)

	result, err := s.Solve(ctx)
	require.NoError(t, err)
	require.True(t, result.Converged)

	// Total ordered material bounds the roll count from below.
	material := 45*97 + 36*610 + 31*395 + 14*211
	lower := float64(material) / 100.0
	assert.GreaterOrEqual(t, result.Objective, lower-1e-6)
	assert.GreaterOrEqual(t, float64(result.IntegerRolls), result.Objective-1e-6)
}
