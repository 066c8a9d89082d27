// Package pricing implements the column admission and selection engine
// used between pricing rounds of a branch-and-price solve. Pricers feed
// candidate columns into a Store via AddCol; once per round ApplyCols
// scores the buffered candidates, applies forced columns, greedily
// selects the best discretionary ones under a per-round cap while
// pruning near-duplicates, and clears the store for the next round.
//
// The store is single-threaded by contract: all admissions for a round
// must happen before ApplyCols, from one goroutine. Columns are owned
// by the store from admission until they are either released or handed
// to the master problem on successful application.
package pricing

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/branchprice/colgen/pkg/column"
	"github.com/branchprice/colgen/pkg/errors"
	"github.com/branchprice/colgen/pkg/metrics"
)

// Master is the restricted master problem as seen by the store. On
// accepted == true ownership of the column passes to the master; the
// store no longer releases it.
type Master interface {
	// AddColumn materializes a column as a master variable. A false
	// return with nil error means the master declined the column
	// (typically a duplicate); this is not fatal.
	AddColumn(ctx context.Context, col column.Column, forced bool) (accepted bool, err error)
}

// Store buffers candidate columns between pricing rounds and decides
// which ones enter the master problem.
//
// Columns are kept in a single slice partitioned into a forced segment
// [0, nForced) and a discretionary segment [nForced, len). Order inside
// a segment is not meaningful; removal swaps the last column into the
// vacated slot. Score, orthogonality, and objective parallelism live in
// parallel slices sharing the column's index.
type Store struct {
	name   string
	config *Config
	master Master
	logger *zap.Logger

	cols          []column.Column
	objParallel   []float64
	orthogonality []float64
	score         []float64
	nForced       int
	nTotal        int

	inFarkas bool
	forceAll bool

	totalFound     int64
	foundThisRound int64
	totalApplied   int64
	totalPruned    int64
	rounds         int64
	elapsed        time.Duration
}

// Metrics is a point-in-time snapshot of the store's counters.
type Metrics struct {
	TotalColumnsFound     int64
	ColumnsFoundThisRound int64
	TotalColumnsApplied   int64
	TotalColumnsPruned    int64
	Rounds                int64
	Elapsed               time.Duration
}

// NewStore creates a price store. A nil config uses DefaultConfig; the
// config is validated and owned by the store afterwards. The master is
// required. A nil logger disables logging.
func NewStore(name string, config *Config, master Master, logger *zap.Logger) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if master == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "pricing: master problem is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		name:   name,
		config: config,
		master: master,
		logger: logger.With(
			zap.String("component", "pricestore"),
			zap.String("store", name),
		),
	}, nil
}

// AddCol admits a candidate column. The store takes ownership. A column
// is treated as forced when forced is true or a force-all section is
// active; forced columns are applied unconditionally by ApplyCols and
// never pruned.
//
// Admission is unconditional: no duplicate check is performed and the
// backing storage grows as needed.
func (s *Store) AddCol(col column.Column, forced bool) {
	start := time.Now()
	defer func() { s.elapsed += time.Since(start) }()

	forced = forced || s.forceAll

	s.grow(s.nTotal + 1)
	col.Norm() // cache now, scoring and orthogonality need it

	if forced {
		// Keep the forced segment contiguous at the front: the column
		// currently on the boundary moves to the end.
		s.cols[s.nTotal] = s.cols[s.nForced]
		s.objParallel[s.nTotal] = s.objParallel[s.nForced]
		s.orthogonality[s.nTotal] = s.orthogonality[s.nForced]
		s.score[s.nTotal] = s.score[s.nForced]

		s.cols[s.nForced] = col
		s.objParallel[s.nForced] = 1
		s.orthogonality[s.nForced] = 1
		s.score[s.nForced] = math.Inf(1)
		s.nForced++
	} else {
		s.cols[s.nTotal] = col
		if s.config.ObjParallelWeight != 0 {
			s.objParallel[s.nTotal] = col.ObjParallelism()
		} else {
			s.objParallel[s.nTotal] = 0
		}
		s.orthogonality[s.nTotal] = 1
		s.score[s.nTotal] = math.NaN() // scored by ApplyCols
	}
	s.nTotal++

	s.totalFound++
	s.foundThisRound++
	metrics.ColumnsFound.WithLabelValues(s.phase()).Inc()
	s.updateSizeGauges()

	s.logger.Debug("column admitted",
		zap.String("label", col.Label()),
		zap.Bool("forced", forced),
		zap.Float64("reduced_cost", col.ReducedCost()),
		zap.Int("resident", s.nTotal),
	)
}

// DelCol removes the discretionary column at idx, optionally releasing
// its storage. The last column is swapped into the vacated slot, so
// indices are not stable across removals. Removing a forced column or
// an out-of-range index is a programmer error and panics.
func (s *Store) DelCol(idx int, release bool) {
	if idx < s.nForced || idx >= s.nTotal {
		panic(errors.Newf(errors.ErrorTypeInternal,
			"pricing: DelCol index %d outside discretionary segment [%d, %d)",
			idx, s.nForced, s.nTotal))
	}

	if release {
		s.cols[idx].Release()
	}

	last := s.nTotal - 1
	s.cols[idx] = s.cols[last]
	s.objParallel[idx] = s.objParallel[last]
	s.orthogonality[idx] = s.orthogonality[last]
	s.score[idx] = s.score[last]
	s.cols[last] = nil
	s.nTotal = last
}

// ClearCols releases every resident column and resets the store for the
// next round. In the Farkas phase the backing storage is dropped
// entirely so the large feasibility-stage buffers do not linger.
func (s *Store) ClearCols() {
	released := 0
	for i := 0; i < s.nTotal; i++ {
		if s.cols[i] != nil {
			s.cols[i].Release()
			released++
		}
		s.cols[i] = nil
	}
	if released > 0 {
		metrics.ColumnsPruned.WithLabelValues("cleared").Add(float64(released))
	}

	s.nForced = 0
	s.nTotal = 0
	s.foundThisRound = 0

	if s.inFarkas {
		s.cols = nil
		s.objParallel = nil
		s.orthogonality = nil
		s.score = nil
	}

	s.updateSizeGauges()
	s.logger.Debug("store cleared", zap.Int("released", released))
}

// RemoveInefficaciousCols drops discretionary columns whose reduced
// cost is no longer negative beyond the dual feasibility tolerance,
// typically after external bound changes made candidates stale. It
// returns the number of columns removed.
func (s *Store) RemoveInefficaciousCols() int {
	removed := 0
	for i := s.nForced; i < s.nTotal; {
		if s.cols[i].ReducedCost() >= -s.config.RedCostTolerance {
			s.DelCol(i, true)
			removed++
			continue // swapped-in column lands at i
		}
		i++
	}

	if removed > 0 {
		s.totalPruned += int64(removed)
		metrics.ColumnsPruned.WithLabelValues("inefficacious").Add(float64(removed))
		s.updateSizeGauges()
		s.logger.Debug("removed inefficacious columns", zap.Int("removed", removed))
	}
	return removed
}

// Close verifies the store ended empty. Closing a store that still
// holds columns is a programmer error and panics: every round must end
// with ClearCols.
func (s *Store) Close() error {
	if s.nTotal != 0 {
		panic(errors.Newf(errors.ErrorTypeInternal,
			"pricing: store %q closed with %d resident columns", s.name, s.nTotal))
	}
	s.logger.Debug("store closed",
		zap.Int64("total_found", s.totalFound),
		zap.Int64("total_applied", s.totalApplied),
		zap.Duration("elapsed", s.elapsed),
	)
	return nil
}

// NumCols returns the number of resident columns, forced included.
func (s *Store) NumCols() int { return s.nTotal }

// NumForced returns the number of resident forced columns.
func (s *Store) NumForced() int { return s.nForced }

// Capacity returns the allocated slot count of the backing storage.
func (s *Store) Capacity() int { return cap(s.cols) }

// TotalColumnsFound returns the number of columns admitted over the
// store's lifetime.
func (s *Store) TotalColumnsFound() int64 { return s.totalFound }

// ColumnsFoundThisRound returns the number of columns admitted since
// the last clear.
func (s *Store) ColumnsFoundThisRound() int64 { return s.foundThisRound }

// TotalColumnsApplied returns the number of columns handed to the
// master problem over the store's lifetime.
func (s *Store) TotalColumnsApplied() int64 { return s.totalApplied }

// Elapsed returns the accumulated wall time spent inside AddCol and
// ApplyCols.
func (s *Store) Elapsed() time.Duration { return s.elapsed }

// InFarkasPhase reports whether a Farkas phase is active.
func (s *Store) InFarkasPhase() bool { return s.inFarkas }

// ForceAllActive reports whether a force-all section is active.
func (s *Store) ForceAllActive() bool { return s.forceAll }

// GetMetrics returns a snapshot of the store's lifetime counters.
func (s *Store) GetMetrics() Metrics {
	return Metrics{
		TotalColumnsFound:     s.totalFound,
		ColumnsFoundThisRound: s.foundThisRound,
		TotalColumnsApplied:   s.totalApplied,
		TotalColumnsPruned:    s.totalPruned,
		Rounds:                s.rounds,
		Elapsed:               s.elapsed,
	}
}

// grow ensures the backing slices hold at least n slots, doubling
// capacity so repeated admissions amortize to O(1).
func (s *Store) grow(n int) {
	if n <= cap(s.cols) {
		return
	}
	newCap := cap(s.cols) * 2
	if newCap < 16 {
		newCap = 16
	}
	for newCap < n {
		newCap *= 2
	}

	cols := make([]column.Column, newCap)
	objPar := make([]float64, newCap)
	ortho := make([]float64, newCap)
	score := make([]float64, newCap)
	copy(cols, s.cols[:s.nTotal])
	copy(objPar, s.objParallel[:s.nTotal])
	copy(ortho, s.orthogonality[:s.nTotal])
	copy(score, s.score[:s.nTotal])
	s.cols = cols
	s.objParallel = objPar
	s.orthogonality = ortho
	s.score = score
}

func (s *Store) phase() string {
	if s.inFarkas {
		return "farkas"
	}
	return "redcost"
}

func (s *Store) updateSizeGauges() {
	metrics.StoreColumns.WithLabelValues("forced").Set(float64(s.nForced))
	metrics.StoreColumns.WithLabelValues("discretionary").Set(float64(s.nTotal - s.nForced))
}
