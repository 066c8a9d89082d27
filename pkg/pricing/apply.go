package pricing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/branchprice/colgen/pkg/errors"
	"github.com/branchprice/colgen/pkg/metrics"
)

// roundCap returns the active per-round application cap: the Farkas cap
// during feasibility pricing, the root cap at the root node, MaxCols
// otherwise.
func (s *Store) roundCap(root bool) int {
	switch {
	case s.inFarkas:
		return s.config.MaxColsFarkas
	case root:
		return s.config.MaxColsRoot
	default:
		return s.config.MaxCols
	}
}

// ApplyCols runs one selection round: it rescores all discretionary
// columns against current LP state, applies every forced column, then
// greedily applies the best-scoring discretionary columns until the
// per-round cap is hit, the store runs out, or the best remaining
// column stops being improving. Each committed column tightens the
// orthogonality of the rest, pruning near-duplicates as it goes.
//
// The store is always cleared before ApplyCols returns, on error paths
// included, so every round ends empty. The returned count is the
// number of columns the master problem accepted.
//
// root selects the root-node cap; the caller tracks tree position.
func (s *Store) ApplyCols(ctx context.Context, root bool) (applied int, err error) {
	start := time.Now()
	defer func() { s.elapsed += time.Since(start) }()
	defer func() {
		metrics.PricingLatency.WithLabelValues("apply", s.phase()).
			Observe(float64(time.Since(start).Nanoseconds()))
	}()
	defer s.ClearCols()

	limit := s.roundCap(root)
	s.rescoreAll()

	s.logger.Debug("apply round started",
		zap.Int("forced", s.nForced),
		zap.Int("discretionary", s.nTotal-s.nForced),
		zap.Int("cap", limit),
		zap.String("phase", s.phase()),
	)

	// Forced columns go in unconditionally, cap or no cap.
	for i := 0; i < s.nForced; i++ {
		col := s.cols[i]
		accepted, aerr := s.master.AddColumn(ctx, col, true)
		if aerr != nil {
			return applied, errors.Wrap(aerr, errors.ErrorTypeInternal,
				"pricing: materializing forced column failed")
		}
		if !accepted {
			s.logger.Warn("master declined forced column",
				zap.String("label", col.Label()))
			continue
		}
		s.cols[i] = nil // master owns it now
		s.updateOrthogonality(col)
		applied++
		s.totalApplied++
		metrics.ColumnsApplied.WithLabelValues(s.phase(), "forced").Inc()
	}

	for {
		if applied >= limit {
			break
		}
		idx := s.bestDiscretionary()
		if idx < 0 {
			break
		}
		col := s.cols[idx]
		if col.ReducedCost() >= -s.config.RedCostTolerance {
			break // best candidate no longer improves the LP
		}

		accepted, aerr := s.master.AddColumn(ctx, col, false)
		if aerr != nil {
			return applied, errors.Wrap(aerr, errors.ErrorTypeInternal,
				"pricing: materializing column failed")
		}
		if !accepted {
			s.logger.Warn("master declined column",
				zap.String("label", col.Label()),
				zap.Float64("reduced_cost", col.ReducedCost()))
			s.DelCol(idx, true)
			continue
		}
		// Remove the slot before the maintenance pass so the committed
		// column is never compared against itself. The master owns it,
		// so the slot is dropped without a release.
		s.DelCol(idx, false)
		s.updateOrthogonality(col)
		applied++
		s.totalApplied++
		metrics.ColumnsApplied.WithLabelValues(s.phase(), "discretionary").Inc()
	}

	s.rounds++
	metrics.PricingRounds.WithLabelValues(s.phase()).Inc()

	s.logger.Debug("apply round finished",
		zap.Int("applied", applied),
		zap.Int64("found_this_round", s.foundThisRound),
	)
	return applied, nil
}
