package solver

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/branchprice/colgen/pkg/column"
)

// Pricer proposes cutting patterns against the master's duals. The
// pricing problem is an unbounded knapsack: pack widths into a roll so
// the packed dual value is maximal. A pattern improves the master when
// its dual value exceeds the roll cost.
type Pricer struct {
	widths   []int
	capacity int
	demands  []float64
	logger   *zap.Logger
}

// NewPricer builds a pricer for the instance.
func NewPricer(inst *Instance, logger *zap.Logger) *Pricer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pricer{
		widths:   inst.Widths(),
		capacity: inst.RollWidth,
		demands:  inst.Demands(),
		logger:   logger.With(zap.String("component", "pricer")),
	}
}

// Price solves the knapsack against the duals and returns improving
// candidate patterns, best pattern first. Besides the optimum it emits
// one variant per item that forces that item into the roll, which gives
// the store genuinely different candidates to choose between. Patterns
// with reduced cost above -tol are not returned.
func (p *Pricer) Price(duals []float64, tol float64) []*column.Dense {
	dp, choice := p.solveDP(duals)

	var cols []*column.Dense
	seen := make(map[string]bool)

	emit := func(counts []int) {
		if counts == nil {
			return
		}
		key := countsKey(counts)
		if seen[key] {
			return
		}
		seen[key] = true

		value := p.patternValue(counts, duals)
		rc := 1.0 - value
		if rc >= -tol {
			return
		}
		cols = append(cols, p.newColumn(counts, rc))
	}

	emit(p.reconstruct(p.capacity, choice))
	for i := range p.widths {
		emit(p.forcedVariant(i, choice))
	}

	if len(cols) > 0 {
		p.logger.Debug("pricing round",
			zap.Int("candidates", len(cols)),
			zap.Float64("best_value", dp[p.capacity]),
		)
	}
	return cols
}

// PriceFarkas proposes patterns that cover rows named by a Farkas ray
// of the infeasible master. There is no cost side: any pattern with
// positive ray coverage restores progress toward feasibility.
func (p *Pricer) PriceFarkas(ray []float64) []*column.Dense {
	_, choice := p.solveDP(ray)

	var cols []*column.Dense
	seen := make(map[string]bool)

	emit := func(counts []int) {
		if counts == nil {
			return
		}
		key := countsKey(counts)
		if seen[key] {
			return
		}
		seen[key] = true

		value := p.patternValue(counts, ray)
		if value <= 0 {
			return
		}
		cols = append(cols, p.newColumn(counts, -value))
	}

	emit(p.reconstruct(p.capacity, choice))
	for i := range p.widths {
		emit(p.forcedVariant(i, choice))
	}
	return cols
}

// solveDP fills the unbounded knapsack table: dp[c] is the best packed
// value within capacity c, choice[c] the item achieving it (-1 when
// leaving the capacity unused is best).
func (p *Pricer) solveDP(values []float64) (dp []float64, choice []int) {
	dp = make([]float64, p.capacity+1)
	choice = make([]int, p.capacity+1)
	for c := range choice {
		choice[c] = -1
	}

	for c := 1; c <= p.capacity; c++ {
		dp[c] = dp[c-1]
		for i, w := range p.widths {
			if w > c || values[i] <= 0 {
				continue
			}
			if v := dp[c-w] + values[i]; v > dp[c] {
				dp[c] = v
				choice[c] = i
			}
		}
	}
	return dp, choice
}

// reconstruct walks the choice table back from capacity c to counts.
func (p *Pricer) reconstruct(c int, choice []int) []int {
	counts := make([]int, len(p.widths))
	for c > 0 {
		i := choice[c]
		if i < 0 {
			c--
			continue
		}
		counts[i]++
		c -= p.widths[i]
	}
	return counts
}

// forcedVariant packs one piece of item i, then fills the remaining
// capacity optimally.
func (p *Pricer) forcedVariant(i int, choice []int) []int {
	rem := p.capacity - p.widths[i]
	if rem < 0 {
		return nil
	}
	counts := p.reconstruct(rem, choice)
	counts[i]++
	return counts
}

func (p *Pricer) patternValue(counts []int, values []float64) float64 {
	var v float64
	for i, n := range counts {
		v += float64(n) * values[i]
	}
	return v
}

func (p *Pricer) newColumn(counts []int, rc float64) *column.Dense {
	coeffs := make([]float64, len(counts))
	for i, n := range counts {
		coeffs[i] = float64(n)
	}
	return column.NewDense(coeffs, rc, 1.0,
		column.WithLabel(patternLabel(counts, p.widths)),
		column.WithObjParallelism(column.Parallelism(coeffs, p.demands)),
	)
}

// patternLabel renders counts as "2x36+1x14" style labels for logs and
// reports.
func patternLabel(counts, widths []int) string {
	var sb strings.Builder
	for i, n := range counts {
		if n == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('+')
		}
		sb.WriteString(strconv.Itoa(n))
		sb.WriteByte('x')
		sb.WriteString(strconv.Itoa(widths[i]))
	}
	if sb.Len() == 0 {
		return "empty"
	}
	return sb.String()
}

func countsKey(counts []int) string {
	var sb strings.Builder
	for _, n := range counts {
		sb.WriteString(strconv.Itoa(n))
		sb.WriteByte('|')
	}
	return sb.String()
}
