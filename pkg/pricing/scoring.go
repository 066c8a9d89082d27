package pricing

import (
	"go.uber.org/zap"

	"github.com/branchprice/colgen/pkg/column"
	"github.com/branchprice/colgen/pkg/errors"
	"github.com/branchprice/colgen/pkg/metrics"
)

// efficacy maps a column's reduced cost to a positive "how much would
// this improve the LP" signal. Candidates carry negative reduced cost,
// so both modes negate it.
func (s *Store) efficacy(col column.Column) float64 {
	switch s.config.EfficacyMode {
	case EfficacyDantzig:
		return -col.ReducedCost()
	case EfficacySteepestEdge:
		norm := col.Norm()
		if norm == 0 {
			return -col.ReducedCost()
		}
		return -col.ReducedCost() / norm
	default:
		// Validate rejects anything else at construction.
		panic(errors.Newf(errors.ErrorTypeInternal,
			"pricing: efficacy mode %q reached scoring", s.config.EfficacyMode))
	}
}

// scoreAt recomputes the weighted score of the discretionary column at
// idx from its current orthogonality and cached efficacy inputs.
func (s *Store) scoreAt(idx int) {
	s.score[idx] = s.config.EfficacyWeight*s.efficacy(s.cols[idx]) +
		s.config.ObjParallelWeight*s.objParallel[idx] +
		s.config.OrthogonalityWeight*s.orthogonality[idx]
}

// rescoreAll starts a fresh selection pass: every discretionary column
// gets orthogonality reset to the no-commitments sentinel and a score
// computed from current state, clearing any admission-time placeholder.
func (s *Store) rescoreAll() {
	for i := s.nForced; i < s.nTotal; i++ {
		s.orthogonality[i] = 1
		s.scoreAt(i)
	}
}

// orthogonalityPassEnabled reports whether committing a column needs a
// maintenance pass at all. With no pruning threshold and no score
// weight the orthogonality values are never observed.
func (s *Store) orthogonalityPassEnabled() bool {
	return s.config.MinOrthogonality > 0 || s.config.OrthogonalityWeight != 0
}

// updateOrthogonality re-measures every discretionary column against a
// column just committed to the master problem. Stored orthogonality is
// a running minimum over the round's commitments, so values only
// tighten. Columns falling below the pruning threshold are removed and
// released; survivors with a tightened value are rescored.
func (s *Store) updateOrthogonality(applied column.Column) {
	if !s.orthogonalityPassEnabled() {
		return
	}

	pruned := 0
	for i := s.nForced; i < s.nTotal; {
		o := column.Orthogonality(applied, s.cols[i])
		if o >= s.orthogonality[i] {
			i++
			continue
		}
		if o < s.config.MinOrthogonality {
			s.DelCol(i, true)
			pruned++
			continue // swapped-in column lands at i
		}
		s.orthogonality[i] = o
		s.scoreAt(i)
		i++
	}

	if pruned > 0 {
		s.totalPruned += int64(pruned)
		metrics.ColumnsPruned.WithLabelValues("orthogonality").Add(float64(pruned))
		s.logger.Debug("pruned near-parallel columns", zap.Int("pruned", pruned))
	}
}

// bestDiscretionary returns the index of the highest-scoring
// discretionary column, or -1 when the segment is empty. The first
// column holding the maximum wins ties.
func (s *Store) bestDiscretionary() int {
	best := -1
	bestScore := 0.0
	for i := s.nForced; i < s.nTotal; i++ {
		if best == -1 || s.score[i] > bestScore {
			best = i
			bestScore = s.score[i]
		}
	}
	return best
}
