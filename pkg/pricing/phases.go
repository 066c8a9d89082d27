package pricing

import (
	"github.com/branchprice/colgen/pkg/errors"
)

// StartFarkasPhase switches the store into Farkas (feasibility) pricing
// until EndFarkasPhase. While active, ApplyCols uses the Farkas cap and
// ClearCols drops the backing storage to bound peak memory. The store
// must be empty; toggling mid-round or re-entering is a programmer
// error and panics.
func (s *Store) StartFarkasPhase() {
	if s.inFarkas {
		panic(errors.New(errors.ErrorTypeInternal,
			"pricing: StartFarkasPhase while Farkas phase already active"))
	}
	if s.nTotal != 0 {
		panic(errors.Newf(errors.ErrorTypeInternal,
			"pricing: StartFarkasPhase with %d resident columns", s.nTotal))
	}
	s.inFarkas = true
	s.logger.Debug("farkas phase started")
}

// EndFarkasPhase returns the store to reduced-cost pricing. The store
// must be empty and a Farkas phase must be active.
func (s *Store) EndFarkasPhase() {
	if !s.inFarkas {
		panic(errors.New(errors.ErrorTypeInternal,
			"pricing: EndFarkasPhase without active Farkas phase"))
	}
	if s.nTotal != 0 {
		panic(errors.Newf(errors.ErrorTypeInternal,
			"pricing: EndFarkasPhase with %d resident columns", s.nTotal))
	}
	s.inFarkas = false
	s.logger.Debug("farkas phase ended")
}

// StartForceAll begins a section in which every admitted column is
// treated as forced regardless of the caller's flag, typically while
// seeding the initial restricted master. Sections do not nest.
func (s *Store) StartForceAll() {
	if s.forceAll {
		panic(errors.New(errors.ErrorTypeInternal,
			"pricing: StartForceAll while force-all already active"))
	}
	s.forceAll = true
	s.logger.Debug("force-all started")
}

// EndForceAll closes the force-all section opened by StartForceAll.
func (s *Store) EndForceAll() {
	if !s.forceAll {
		panic(errors.New(errors.ErrorTypeInternal,
			"pricing: EndForceAll without active force-all"))
	}
	s.forceAll = false
	s.logger.Debug("force-all ended")
}
