package solver

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/branchprice/colgen/pkg/column"
	"github.com/branchprice/colgen/pkg/errors"
)

// Master maintains the restricted master LP
//
//	min  Σ_p cost_p x_p
//	s.t. Σ_p a_p x_p ≥ d
//	     x ≥ 0
//
// over the patterns admitted so far. Solve returns both the optimal
// pattern usage and the row duals the pricer needs.
type Master struct {
	mu       sync.Mutex
	logger   *zap.Logger
	demands  []float64
	patterns [][]float64
	costs    []float64
	labels   []string
	index    map[string]int
}

// Solution is one LP solve of the restricted master.
type Solution struct {
	// Objective is the optimal restricted master value
	Objective float64
	// Duals holds one multiplier per demand row
	Duals []float64
	// Usage holds the optimal activity of each pattern
	Usage []float64
}

// NewMaster creates an empty restricted master for the instance.
func NewMaster(inst *Instance, logger *zap.Logger) *Master {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Master{
		logger:  logger.With(zap.String("component", "master")),
		demands: inst.Demands(),
		index:   make(map[string]int),
	}
}

// AddColumn admits a priced column into the restricted master. It
// implements pricing.Master: on acceptance the master copies the
// coefficients into its own storage and releases the column. Duplicate
// patterns are declined without error.
func (m *Master) AddColumn(ctx context.Context, col column.Column, forced bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	raw := col.Coefficients().RawVector().Data
	key := vectorKey(raw)
	if _, ok := m.index[key]; ok {
		m.logger.Debug("duplicate pattern declined",
			zap.String("label", col.Label()),
			zap.Bool("forced", forced),
		)
		return false, nil
	}

	pattern := make([]float64, len(raw))
	copy(pattern, raw)

	m.index[key] = len(m.patterns)
	m.patterns = append(m.patterns, pattern)
	m.costs = append(m.costs, col.Obj())
	m.labels = append(m.labels, col.Label())

	col.Release()
	return true, nil
}

// Solve optimizes the restricted master. It solves the primal for the
// objective and pattern usage, then the explicit dual for the row
// multipliers; with both optimal the two objectives agree to solver
// tolerance. An infeasible master is reported with lp.ErrInfeasible in
// the error chain so the caller can switch to Farkas pricing.
func (m *Master) Solve() (*Solution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nRows := len(m.demands)
	nPat := len(m.patterns)
	if nPat == 0 {
		return nil, errors.Wrap(lp.ErrInfeasible, errors.ErrorTypeNumeric,
			"restricted master has no columns")
	}

	// Primal standard form: variables [x; surplus].
	nVar := nPat + nRows
	a := mat.NewDense(nRows, nVar, nil)
	c := make([]float64, nVar)
	for p, pattern := range m.patterns {
		c[p] = m.costs[p]
		for i, v := range pattern {
			a.Set(i, p, v)
		}
	}
	for i := 0; i < nRows; i++ {
		a.Set(i, nPat+i, -1)
	}

	obj, primal, err := lp.Simplex(c, a, m.demands, 0, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNumeric, "restricted master solve failed")
	}

	duals, err := m.solveDual()
	if err != nil {
		return nil, err
	}

	usage := make([]float64, nPat)
	copy(usage, primal[:nPat])

	return &Solution{Objective: obj, Duals: duals, Usage: usage}, nil
}

// solveDual optimizes max d·y s.t. aᵀy ≤ cost, y ≥ 0 in standard form
// with variables [y; slack]. Caller holds the lock.
func (m *Master) solveDual() ([]float64, error) {
	nRows := len(m.demands)
	nPat := len(m.patterns)

	nVar := nRows + nPat
	a := mat.NewDense(nPat, nVar, nil)
	b := make([]float64, nPat)
	c := make([]float64, nVar)

	for p, pattern := range m.patterns {
		b[p] = m.costs[p]
		for i, v := range pattern {
			a.Set(p, i, v)
		}
		a.Set(p, nRows+p, 1)
	}
	for i, d := range m.demands {
		c[i] = -d
	}

	_, x, err := lp.Simplex(c, a, b, 0, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNumeric, "dual solve failed")
	}

	duals := make([]float64, nRows)
	copy(duals, x[:nRows])
	return duals, nil
}

// FarkasRay returns a certificate of master infeasibility: positive
// weight on every positive-demand row no admitted pattern touches.
// Existing patterns all have zero coverage on those rows, so the ray is
// a valid dual direction. Returns nil when no such row exists.
func (m *Master) FarkasRay() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ray := make([]float64, len(m.demands))
	found := false
	for i, d := range m.demands {
		if d <= 0 {
			continue
		}
		covered := false
		for _, pattern := range m.patterns {
			if pattern[i] > 0 {
				covered = true
				break
			}
		}
		if !covered {
			ray[i] = 1
			found = true
		}
	}
	if !found {
		return nil
	}
	return ray
}

// PatternCount returns how many patterns the master holds.
func (m *Master) PatternCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.patterns)
}

// Snapshot returns copies of the admitted patterns and their labels.
func (m *Master) Snapshot() ([][]float64, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	patterns := make([][]float64, len(m.patterns))
	for p, pattern := range m.patterns {
		patterns[p] = make([]float64, len(pattern))
		copy(patterns[p], pattern)
	}
	labels := make([]string, len(m.labels))
	copy(labels, m.labels)
	return patterns, labels
}

// CoverageGap returns the largest demand shortfall under the given
// usage. Non-positive means every demand is met.
func (m *Master) CoverageGap(usage []float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	gap := 0.0
	for i, d := range m.demands {
		covered := 0.0
		for p, pattern := range m.patterns {
			covered += pattern[i] * usage[p]
		}
		if short := d - covered; short > gap {
			gap = short
		}
	}
	return gap
}

func vectorKey(v []float64) string {
	var sb strings.Builder
	for _, x := range v {
		sb.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		sb.WriteByte('|')
	}
	return sb.String()
}
