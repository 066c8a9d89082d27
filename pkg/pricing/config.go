package pricing

import (
	"github.com/branchprice/colgen/pkg/errors"
)

// EfficacyMode selects how a column's efficacy is derived from its
// reduced cost.
type EfficacyMode string

const (
	// EfficacyDantzig scores a column by its raw negated reduced cost.
	EfficacyDantzig EfficacyMode = "dantzig"

	// EfficacySteepestEdge scores by negated reduced cost divided by
	// the column's norm.
	EfficacySteepestEdge EfficacyMode = "steepest-edge"

	// EfficacyLambda is a reserved mode with no scoring formula.
	// Selecting it is a configuration error.
	EfficacyLambda EfficacyMode = "lambda"
)

// Config holds the selection parameters of a Store. All fields are
// immutable after the store is constructed.
type Config struct {
	// EfficacyWeight weights the reduced-cost signal in the score.
	EfficacyWeight float64 `yaml:"efficacy_weight" json:"efficacy_weight"`

	// ObjParallelWeight weights alignment with the master objective.
	ObjParallelWeight float64 `yaml:"obj_parallel_weight" json:"obj_parallel_weight"`

	// OrthogonalityWeight weights geometric diversity against columns
	// already committed this round.
	OrthogonalityWeight float64 `yaml:"orthogonality_weight" json:"orthogonality_weight"`

	// MinOrthogonality prunes a column once its orthogonality against
	// committed columns drops below this threshold. Zero disables
	// pruning.
	MinOrthogonality float64 `yaml:"min_orthogonality" json:"min_orthogonality"`

	// MaxColsRoot caps discretionary plus forced applications per round
	// at the root node.
	MaxColsRoot int `yaml:"max_cols_root" json:"max_cols_root"`

	// MaxCols caps applications per round at non-root nodes.
	MaxCols int `yaml:"max_cols" json:"max_cols"`

	// MaxColsFarkas caps applications per round during Farkas pricing.
	MaxColsFarkas int `yaml:"max_cols_farkas" json:"max_cols_farkas"`

	// EfficacyMode selects the efficacy formula.
	EfficacyMode EfficacyMode `yaml:"efficacy_mode" json:"efficacy_mode"`

	// RedCostTolerance is the dual feasibility tolerance: a column only
	// counts as improving while its reduced cost is below the negated
	// tolerance.
	RedCostTolerance float64 `yaml:"red_cost_tolerance" json:"red_cost_tolerance"`
}

// DefaultConfig returns the standard selection parameters: pure
// Dantzig pricing with no diversity pruning, a generous root cap, and
// a small Farkas cap.
func DefaultConfig() *Config {
	return &Config{
		EfficacyWeight:      1.0,
		ObjParallelWeight:   0.0,
		OrthogonalityWeight: 0.0,
		MinOrthogonality:    0.0,
		MaxColsRoot:         2000,
		MaxCols:             100,
		MaxColsFarkas:       10,
		EfficacyMode:        EfficacyDantzig,
		RedCostTolerance:    1e-7,
	}
}

// Validate checks the configuration. Selecting the reserved Lambda
// mode or an unknown mode is rejected here so the error surfaces at
// construction rather than mid-round.
func (c *Config) Validate() error {
	switch c.EfficacyMode {
	case EfficacyDantzig, EfficacySteepestEdge:
	case EfficacyLambda:
		return errors.New(errors.ErrorTypeConfig,
			"pricing: efficacy mode \"lambda\" is reserved and not implemented")
	default:
		return errors.Newf(errors.ErrorTypeConfig,
			"pricing: unknown efficacy mode %q", c.EfficacyMode)
	}

	if c.EfficacyWeight < 0 || c.ObjParallelWeight < 0 || c.OrthogonalityWeight < 0 {
		return errors.New(errors.ErrorTypeConfig,
			"pricing: score weights must be non-negative")
	}
	if c.MinOrthogonality < 0 || c.MinOrthogonality > 1 {
		return errors.Newf(errors.ErrorTypeConfig,
			"pricing: min_orthogonality %g outside [0, 1]", c.MinOrthogonality)
	}
	if c.MaxColsRoot < 0 || c.MaxCols < 0 || c.MaxColsFarkas < 0 {
		return errors.New(errors.ErrorTypeConfig,
			"pricing: per-round column caps must be non-negative")
	}
	if c.RedCostTolerance < 0 {
		return errors.Newf(errors.ErrorTypeConfig,
			"pricing: red_cost_tolerance %g must be non-negative", c.RedCostTolerance)
	}
	return nil
}
