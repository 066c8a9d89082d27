package column

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/branchprice/colgen/pkg/pool"
)

// Dense is the standard Column implementation backed by pooled
// coefficient storage. Pricers construct one per candidate and hand
// ownership to the price store via AddCol.
type Dense struct {
	coeffs      []float64
	redCost     float64
	obj         float64
	objParallel float64
	label       string

	norm      float64
	normValid bool
	released  bool
}

// Option configures a Dense column at construction.
type Option func(*Dense)

// WithObjParallelism sets the column's precomputed objective
// parallelism. Values are clamped to [0, 1].
func WithObjParallelism(p float64) Option {
	return func(d *Dense) {
		d.objParallel = clamp01(p)
	}
}

// WithLabel attaches an identifier used in logs and trace records.
func WithLabel(label string) Option {
	return func(d *Dense) {
		d.label = label
	}
}

// NewDense creates a column with the given constraint coefficients,
// reduced cost, and objective coefficient. The coefficients are copied
// into pooled storage; the caller keeps ownership of coeffs.
func NewDense(coeffs []float64, redCost, obj float64, opts ...Option) *Dense {
	buf := pool.GetFloatSlice(len(coeffs))
	copy(buf, coeffs)
	d := &Dense{
		coeffs:  buf,
		redCost: redCost,
		obj:     obj,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ReducedCost returns the reduced cost the pricer computed for this column.
func (d *Dense) ReducedCost() float64 { return d.redCost }

// Obj returns the objective function coefficient.
func (d *Dense) Obj() float64 { return d.obj }

// Coefficients returns the constraint coefficients as a vector aliasing
// the column's pooled storage.
func (d *Dense) Coefficients() *mat.VecDense {
	return mat.NewVecDense(len(d.coeffs), d.coeffs)
}

// Norm returns the cached Euclidean norm of the coefficients.
func (d *Dense) Norm() float64 {
	if !d.normValid {
		d.norm = floats.Norm(d.coeffs, 2)
		d.normValid = true
	}
	return d.norm
}

// ObjParallelism returns the precomputed objective alignment in [0, 1].
func (d *Dense) ObjParallelism() float64 { return d.objParallel }

// Label returns the identifier set with WithLabel, or "".
func (d *Dense) Label() string { return d.label }

// Release returns the coefficient storage to the pool. Idempotent.
func (d *Dense) Release() {
	if d.released {
		return
	}
	d.released = true
	pool.PutFloatSlice(d.coeffs)
	d.coeffs = nil
}
