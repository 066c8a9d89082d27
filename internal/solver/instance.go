// Package solver implements a cutting stock solver by column
// generation. A restricted master LP selects how often each known
// cutting pattern is used, and a knapsack pricer proposes new patterns
// against the master's duals. The price store in pkg/pricing decides
// which proposals enter the master.
package solver

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/branchprice/colgen/pkg/errors"
)

// Item is one ordered width with its demand.
type Item struct {
	// Width of the ordered piece
	Width int `yaml:"width" json:"width"`
	// Demand is how many pieces of this width are ordered
	Demand int `yaml:"demand" json:"demand"`
}

// Instance is a cutting stock problem: cut ordered widths out of stock
// rolls of a fixed width using as few rolls as possible.
type Instance struct {
	Name string `yaml:"name" json:"name"`
	// RollWidth is the width of the stock rolls
	RollWidth int    `yaml:"roll_width" json:"roll_width"`
	Items     []Item `yaml:"items" json:"items"`
}

// Validate checks the instance for solvability.
func (inst *Instance) Validate() error {
	if inst.RollWidth <= 0 {
		return errors.New(errors.ErrorTypeValidation, "roll width must be positive")
	}
	if len(inst.Items) == 0 {
		return errors.New(errors.ErrorTypeValidation, "instance has no items")
	}
	seen := make(map[int]bool, len(inst.Items))
	for i, item := range inst.Items {
		if item.Width <= 0 {
			return errors.Newf(errors.ErrorTypeValidation, "item %d: width must be positive", i)
		}
		if item.Width > inst.RollWidth {
			return errors.Newf(errors.ErrorTypeValidation,
				"item %d: width %d exceeds roll width %d", i, item.Width, inst.RollWidth)
		}
		if item.Demand < 0 {
			return errors.Newf(errors.ErrorTypeValidation, "item %d: demand must not be negative", i)
		}
		if seen[item.Width] {
			return errors.Newf(errors.ErrorTypeValidation, "item %d: duplicate width %d", i, item.Width)
		}
		seen[item.Width] = true
	}
	return nil
}

// Demands returns the demand vector as floats, in item order.
func (inst *Instance) Demands() []float64 {
	d := make([]float64, len(inst.Items))
	for i, item := range inst.Items {
		d[i] = float64(item.Demand)
	}
	return d
}

// Widths returns the width of each item, in item order.
func (inst *Instance) Widths() []int {
	w := make([]int, len(inst.Items))
	for i, item := range inst.Items {
		w[i] = item.Width
	}
	return w
}

// LoadInstance reads and validates an instance from a YAML file.
func LoadInstance(path string) (*Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "reading instance file")
	}

	var inst Instance
	if err := yaml.Unmarshal(data, &inst); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "parsing instance file")
	}
	if inst.Name == "" {
		inst.Name = path
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return &inst, nil
}

// DemoInstance returns the classic four-width example from Gilmore and
// Gomory's 1961 paper.
func DemoInstance() *Instance {
	return &Instance{
		Name:      "gilmore-gomory-61",
		RollWidth: 100,
		Items: []Item{
			{Width: 45, Demand: 97},
			{Width: 36, Demand: 610},
			{Width: 31, Demand: 395},
			{Width: 14, Demand: 211},
		},
	}
}
