package pattern

import "melvingraph/common"

// Store is the dynamic array of patterns (an arena addressed by
// PatternHandle) plus the incremental indices from node id to the patterns
// that contain it and the patterns that predict it. Maintaining these
// indices is the single biggest win against the "scan every pattern every
// step" hot path (see design notes in SPEC_FULL.md).
type Store struct {
	patterns []*Pattern

	containing map[common.NodeID][]common.PatternHandle
	predicting map[common.NodeID][]common.PatternHandle

	activeSet map[common.PatternHandle]struct{}
}

// NewStore returns an empty pattern arena.
func NewStore() *Store {
	return &Store{
		containing: make(map[common.NodeID][]common.PatternHandle),
		predicting: make(map[common.NodeID][]common.PatternHandle),
		activeSet:  make(map[common.PatternHandle]struct{}),
	}
}

// Create appends a new pattern to the arena and indexes it, returning its
// handle.
func (s *Store) Create(sequence []common.NodeID, ctx common.ContextVector, port common.Port) common.PatternHandle {
	p := newPattern(sequence, ctx, port)
	handle := common.PatternHandle(len(s.patterns))
	s.patterns = append(s.patterns, p)
	s.indexContaining(handle, p)
	return handle
}

// Get returns the pattern at handle, or nil if handle is out of range or
// PatternNone. A pruned (Active==false) pattern is still returned so callers
// can read its inert zero-activation state.
func (s *Store) Get(handle common.PatternHandle) *Pattern {
	if handle == common.PatternNone || int(handle) < 0 || int(handle) >= len(s.patterns) {
		return nil
	}
	return s.patterns[handle]
}

// Len returns the number of patterns ever created (active or pruned).
func (s *Store) Len() int { return len(s.patterns) }

// Each calls fn for every pattern in the arena.
func (s *Store) Each(fn func(h common.PatternHandle, p *Pattern)) {
	for i, p := range s.patterns {
		fn(common.PatternHandle(i), p)
	}
}

// ActiveCount returns the number of patterns with Active == true and
// Strength > 0.
func (s *Store) ActiveCount() int {
	count := 0
	for _, p := range s.patterns {
		if p.Active && p.Strength > 0 {
			count++
		}
	}
	return count
}

// Containing returns the handles of patterns whose Sequence includes id
// (directly, not through Wildcard).
func (s *Store) Containing(id common.NodeID) []common.PatternHandle {
	return s.containing[id]
}

// Predicting returns the handles of patterns whose PredictedNodes includes
// id.
func (s *Store) Predicting(id common.NodeID) []common.PatternHandle {
	return s.predicting[id]
}

// RebuildPredictingIndex recomputes the predicted-node index for handle
// after its PredictedNodes slice changes.
func (s *Store) RebuildPredictingIndex(handle common.PatternHandle) {
	p := s.Get(handle)
	if p == nil {
		return
	}
	for id, handles := range s.predicting {
		s.predicting[id] = removeHandle(handles, handle)
	}
	for _, id := range p.PredictedNodes {
		s.predicting[id] = append(s.predicting[id], handle)
	}
}

func removeHandle(handles []common.PatternHandle, target common.PatternHandle) []common.PatternHandle {
	out := handles[:0]
	for _, h := range handles {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) indexContaining(handle common.PatternHandle, p *Pattern) {
	seen := make(map[common.NodeID]bool)
	for _, id := range p.Sequence {
		if id == common.Wildcard || seen[id] {
			continue
		}
		seen[id] = true
		s.containing[id] = append(s.containing[id], handle)
	}
}

// ResetFiring clears every pattern's firing memoization (HasFired,
// LastFiredStep, FiredPredictions), per the per-episode volatile-state reset
// of §4.9 step 1.
func (s *Store) ResetFiring() {
	for _, p := range s.patterns {
		p.HasFired = false
		p.LastFiredStep = 0
		p.FiredPredictions = 0
		p.Activation = 0
	}
}

// MarkActiveThisStep records that handle's pattern crossed its activation
// threshold this step, forming the active set the propagators iterate
// instead of scanning the whole arena.
func (s *Store) MarkActiveThisStep(handle common.PatternHandle) {
	s.activeSet[handle] = struct{}{}
}

// ClearActiveSet empties the per-step active set; called at the start of
// each propagation step.
func (s *Store) ClearActiveSet() {
	for k := range s.activeSet {
		delete(s.activeSet, k)
	}
}

// ActiveSet returns the handles marked active this step.
func (s *Store) ActiveSet() []common.PatternHandle {
	out := make([]common.PatternHandle, 0, len(s.activeSet))
	for h := range s.activeSet {
		out = append(out, h)
	}
	return out
}
