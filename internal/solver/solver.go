package solver

import (
	"context"
	stderrors "errors"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/branchprice/colgen/pkg/config"
	"github.com/branchprice/colgen/pkg/errors"
	"github.com/branchprice/colgen/pkg/metrics"
	"github.com/branchprice/colgen/pkg/observability"
	"github.com/branchprice/colgen/pkg/pricing"
	"github.com/branchprice/colgen/pkg/trace"
)

// stallLimit bounds consecutive rounds without measurable objective
// improvement before the solve gives up as degenerate.
const stallLimit = 100

// usageTol below which a pattern counts as unused in the result.
const usageTol = 1e-9

// Solver runs Gilmore-Gomory column generation on one instance: solve
// the restricted master, price new patterns against its duals, let the
// store pick which ones enter, repeat until no pattern improves.
// A Solver is single use; Solve may be called once.
type Solver struct {
	config   *config.SolveConfig
	instance *Instance
	logger   *zap.Logger
	master   *Master
	pricer   *Pricer
	store    *pricing.Store
	tracer   *observability.SolveTracer
	traceW   *trace.Writer

	lastPruned int64
}

// PatternUsage is one pattern of the final solution.
type PatternUsage struct {
	Label  string    `json:"label"`
	Counts []float64 `json:"counts"`
	// Usage is the fractional LP activity
	Usage float64 `json:"usage"`
	// Rolls is the usage rounded up to whole rolls
	Rolls int `json:"rolls"`
}

// Result summarizes a finished solve.
type Result struct {
	Instance string `json:"instance"`
	// Objective is the LP relaxation bound
	Objective float64 `json:"objective"`
	// IntegerRolls counts rolls after rounding every pattern usage up
	IntegerRolls   int            `json:"integer_rolls"`
	Rounds         int            `json:"rounds"`
	Converged      bool           `json:"converged"`
	ColumnsFound   int64          `json:"columns_found"`
	ColumnsApplied int64          `json:"columns_applied"`
	Patterns       []PatternUsage `json:"patterns"`
	Elapsed        time.Duration  `json:"elapsed_ns"`
}

// New assembles a solver for the instance. A nil config gets solve
// defaults; passing a logger is optional.
func New(cfg *config.SolveConfig, inst *Instance, logger *zap.Logger) (*Solver, error) {
	if inst == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "instance must not be nil")
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.NewSolveConfig(inst.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid solve config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("instance", inst.Name))

	master := NewMaster(inst, logger)
	store, err := pricing.NewStore(cfg.Name, &cfg.Pricing, master, logger)
	if err != nil {
		return nil, err
	}

	s := &Solver{
		config:   cfg,
		instance: inst,
		logger:   logger,
		master:   master,
		pricer:   NewPricer(inst, logger),
		store:    store,
		tracer:   observability.NewSolveTracer(inst.Name, solveID(cfg.Name)),
	}

	if cfg.Trace.IsActive() {
		wc, err := cfg.Trace.WriterConfig()
		if err != nil {
			return nil, err
		}
		s.traceW, err = trace.NewWriter(wc, logger)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func solveID(name string) string {
	return name + "-" + strconv.FormatInt(time.Now().UnixNano(), 36)
}

// Solve runs the column generation loop to optimality of the LP
// relaxation (or until the round budget, time limit, or context says
// stop) and reports the final pattern selection.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	start := time.Now()

	if s.config.Search.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Search.TimeLimit)
		defer cancel()
	}

	ctx, span := s.tracer.StartSpan(ctx, "run")
	defer span.End()
	span.SetAttribute("instance", s.instance.Name)
	span.SetAttribute("items", len(s.instance.Items))

	defer func() {
		s.store.ClearCols()
		_ = s.store.Close()
	}()
	defer func() {
		if s.traceW == nil {
			return
		}
		if err := s.traceW.Close(); err != nil {
			s.logger.Warn("trace close failed", zap.Error(err))
		}
	}()

	if s.config.Search.SeedSingletons {
		if err := s.seedSingletons(ctx); err != nil {
			return nil, err
		}
	}

	var (
		final     *Solution
		rounds    int
		converged bool
		stall     int
		lastObj   = math.Inf(1)
	)

	for round := 1; round <= s.config.Search.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "solve aborted")
		}
		rounds = round

		sol, err := s.master.Solve()
		if err != nil {
			if stderrors.Is(err, lp.ErrInfeasible) {
				if err := s.farkasRound(ctx, round); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}
		final = sol
		metrics.MasterObjective.Set(sol.Objective)

		var applied, found int
		err = s.tracer.TraceRound(ctx, round, func(ctx context.Context) error {
			cols := s.pricer.Price(sol.Duals, s.config.Pricing.RedCostTolerance)
			found = len(cols)
			for _, col := range cols {
				s.store.AddCol(col, false)
			}
			var aerr error
			applied, aerr = s.store.ApplyCols(ctx, true)
			return aerr
		})
		if err != nil {
			return nil, err
		}

		s.writeTrace(round, "redcost", found, applied, sol.Objective, sol.Duals)
		s.logger.Debug("round finished",
			zap.Int("round", round),
			zap.Float64("objective", sol.Objective),
			zap.Int("found", found),
			zap.Int("applied", applied),
		)

		if applied == 0 {
			converged = true
			break
		}

		if lastObj-sol.Objective < s.config.Search.ObjTolerance {
			stall++
			if stall >= stallLimit {
				s.logger.Warn("objective stalled, stopping",
					zap.Int("round", round),
					zap.Float64("objective", sol.Objective),
				)
				break
			}
		} else {
			stall = 0
		}
		lastObj = sol.Objective
	}

	if final == nil {
		return nil, errors.New(errors.ErrorTypeNumeric,
			"no feasible master solution within the round budget")
	}
	// Re-solve when the loop stopped after admitting columns the final
	// solution has not seen.
	if s.master.PatternCount() != len(final.Usage) {
		sol, err := s.master.Solve()
		if err != nil {
			return nil, err
		}
		final = sol
		metrics.MasterObjective.Set(sol.Objective)
	}

	result := s.buildResult(final, rounds, converged, time.Since(start))
	s.logger.Info("solve finished",
		zap.Float64("objective", result.Objective),
		zap.Int("integer_rolls", result.IntegerRolls),
		zap.Int("rounds", result.Rounds),
		zap.Bool("converged", result.Converged),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// seedSingletons primes the empty master with one trivial pattern per
// item: as many pieces of that width as fit a roll. Every demand row is
// then coverable and the first master LP is feasible.
func (s *Solver) seedSingletons(ctx context.Context) error {
	s.store.StartForceAll()
	defer s.store.EndForceAll()

	seeded := 0
	for i, item := range s.instance.Items {
		if item.Demand <= 0 {
			continue
		}
		counts := make([]int, len(s.instance.Items))
		counts[i] = s.instance.RollWidth / item.Width
		s.store.AddCol(s.pricer.newColumn(counts, 0), false)
		seeded++
	}

	applied, err := s.store.ApplyCols(ctx, true)
	if err != nil {
		return err
	}
	s.logger.Debug("master seeded",
		zap.Int("singletons", seeded),
		zap.Int("applied", applied),
	)
	return nil
}

// farkasRound restores master feasibility by pricing against an
// infeasibility certificate instead of duals.
func (s *Solver) farkasRound(ctx context.Context, round int) error {
	ray := s.master.FarkasRay()
	if ray == nil {
		return errors.New(errors.ErrorTypeNumeric,
			"master infeasible but no uncovered demand row")
	}

	s.store.StartFarkasPhase()
	defer s.store.EndFarkasPhase()

	cols := s.pricer.PriceFarkas(ray)
	if len(cols) == 0 {
		return errors.New(errors.ErrorTypeNumeric,
			"no pattern covers the infeasible demand rows")
	}
	for _, col := range cols {
		s.store.AddCol(col, false)
	}

	applied, err := s.store.ApplyCols(ctx, true)
	if err != nil {
		return err
	}
	if applied == 0 {
		return errors.New(errors.ErrorTypeNumeric,
			"farkas pricing applied no columns")
	}

	// No master objective exists in a Farkas round.
	s.writeTrace(round, "farkas", len(cols), applied, 0, ray)
	s.logger.Debug("farkas round finished",
		zap.Int("round", round),
		zap.Int("found", len(cols)),
		zap.Int("applied", applied),
	)
	return nil
}

func (s *Solver) writeTrace(round int, phase string, found, applied int, objective float64, duals []float64) {
	if s.traceW == nil {
		return
	}

	m := s.store.GetMetrics()
	pruned := m.TotalColumnsPruned - s.lastPruned
	s.lastPruned = m.TotalColumnsPruned

	rec := &trace.Record{
		Round:       round,
		Phase:       phase,
		Candidates:  found,
		Applied:     applied,
		Pruned:      int(pruned),
		Objective:   objective,
		DualsDigest: trace.Digest(duals),
		Elapsed:     s.store.Elapsed(),
	}
	if err := s.traceW.Write(rec); err != nil {
		s.logger.Warn("trace write failed", zap.Error(err))
	}
}

func (s *Solver) buildResult(final *Solution, rounds int, converged bool, elapsed time.Duration) *Result {
	patterns, labels := s.master.Snapshot()

	var selection []PatternUsage
	integerRolls := 0
	for p, usage := range final.Usage {
		if usage <= usageTol {
			continue
		}
		rolls := int(math.Ceil(usage - usageTol))
		integerRolls += rolls
		selection = append(selection, PatternUsage{
			Label:  labels[p],
			Counts: patterns[p],
			Usage:  usage,
			Rolls:  rolls,
		})
	}

	m := s.store.GetMetrics()
	return &Result{
		Instance:       s.instance.Name,
		Objective:      final.Objective,
		IntegerRolls:   integerRolls,
		Rounds:         rounds,
		Converged:      converged,
		ColumnsFound:   m.TotalColumnsFound,
		ColumnsApplied: m.TotalColumnsApplied,
		Patterns:       selection,
		Elapsed:        elapsed,
	}
}
