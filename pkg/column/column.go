// Package column defines the column abstraction shared by pricers and
// the price store. A column is a candidate variable for the restricted
// master problem: its constraint coefficients, objective contribution,
// and reduced cost under the duals it was priced against.
//
// Columns own pooled coefficient storage. Whoever holds a column last
// must call Release exactly once; after a column is materialized into
// the master problem the master owns it and the store must not touch
// it again.
package column

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Column is a candidate master variable produced by a pricer.
//
// Implementations are not safe for concurrent use. The coefficient
// vector returned by Coefficients aliases internal storage and is
// invalidated by Release.
type Column interface {
	// ReducedCost returns the reduced cost of the column under the dual
	// values it was priced against. Negative values improve a
	// minimization master.
	ReducedCost() float64

	// Obj returns the column's objective function coefficient.
	Obj() float64

	// Coefficients returns the column's constraint coefficients as a
	// dense vector. The returned vector aliases internal storage.
	Coefficients() *mat.VecDense

	// Norm returns the Euclidean norm of the coefficient vector. The
	// value is computed once and cached.
	Norm() float64

	// ObjParallelism reports how closely the column aligns with the
	// objective direction, in [0, 1]. Higher is more parallel.
	ObjParallelism() float64

	// Label returns an optional identifier for logging and tracing.
	Label() string

	// Release returns the column's storage to its pool. The column must
	// not be used afterwards. Release is idempotent.
	Release()
}

// Orthogonality measures how far apart two columns point, in [0, 1].
// Identical directions score 0, perpendicular directions score 1. A
// zero-norm operand scores 1 so degenerate columns never suppress
// diversity of the rest of the buffer.
func Orthogonality(a, b Column) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 1
	}
	dot := floats.Dot(a.Coefficients().RawVector().Data, b.Coefficients().RawVector().Data)
	return clamp01(1 - math.Abs(dot)/(na*nb))
}

// Parallelism measures directional alignment between a coefficient
// vector and a reference vector, in [0, 1]. Identical directions score
// 1. Pricers use it to precompute a column's objective parallelism
// against the master objective.
func Parallelism(u, v []float64) float64 {
	nu, nv := floats.Norm(u, 2), floats.Norm(v, 2)
	if nu == 0 || nv == 0 {
		return 0
	}
	return clamp01(math.Abs(floats.Dot(u, v)) / (nu * nv))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
