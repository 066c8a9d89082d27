// Package testutil provides testing utilities for colgen
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/branchprice/colgen/pkg/column"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AppliedColumn records one column accepted by a FakeMaster, with the
// coefficient data copied out before the column was freed.
type AppliedColumn struct {
	Label       string
	Forced      bool
	ReducedCost float64
	Obj         float64
	Coeffs      []float64
}

// FakeMaster is a pricing.Master double that records every column
// offered to it. Accepted columns are copied into AppliedColumn records
// and released immediately, mirroring a real master that converts the
// column into its own variable representation.
type FakeMaster struct {
	mu       sync.Mutex
	applied  []AppliedColumn
	declined map[string]bool
	failWith error
}

// NewFakeMaster creates a master double that accepts every column.
func NewFakeMaster() *FakeMaster {
	return &FakeMaster{declined: make(map[string]bool)}
}

// DeclineLabel makes the master decline columns carrying the label,
// without error. Used to exercise the rejected-materialization path.
func (m *FakeMaster) DeclineLabel(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.declined[label] = true
}

// FailWith makes every subsequent AddColumn call return err.
func (m *FakeMaster) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// AddColumn implements pricing.Master.
func (m *FakeMaster) AddColumn(_ context.Context, col column.Column, forced bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return false, m.failWith
	}
	if m.declined[col.Label()] {
		return false, nil
	}

	vec := col.Coefficients()
	coeffs := make([]float64, vec.Len())
	copy(coeffs, vec.RawVector().Data)
	m.applied = append(m.applied, AppliedColumn{
		Label:       col.Label(),
		Forced:      forced,
		ReducedCost: col.ReducedCost(),
		Obj:         col.Obj(),
		Coeffs:      coeffs,
	})
	col.Release()
	return true, nil
}

// Applied returns the accepted columns in application order.
func (m *FakeMaster) Applied() []AppliedColumn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AppliedColumn, len(m.applied))
	copy(out, m.applied)
	return out
}

// AppliedLabels returns the labels of accepted columns in order.
func (m *FakeMaster) AppliedLabels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	labels := make([]string, len(m.applied))
	for i, a := range m.applied {
		labels[i] = a.Label
	}
	return labels
}

// Reset clears the recorded applications.
func (m *FakeMaster) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = nil
}
