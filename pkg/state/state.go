// Package state tracks progress of nested multi-step operations as a tree of
// weighted scopes. Every scope owns a share of its parent's current step;
// the root reports overall percentages to a Reporter.
package state

import (
	"errors"
	"sync"
)

var (
	// ErrNoSteps is returned by Done when the scope was never divided into steps.
	ErrNoSteps = errors.New("state has no steps set")
	// ErrStepOverflow is returned by Done when every step is already complete.
	ErrStepOverflow = errors.New("state done more times than it has steps")
	// ErrInvalidWeights is returned for empty or non-positive step weights.
	ErrInvalidWeights = errors.New("state step weights must be positive")
)

// Reporter receives overall progress in percent. Values never decrease.
type Reporter func(percent int)

type tree struct {
	mu       sync.Mutex
	reporter Reporter
	last     int
}

// State is one scope of the progress tree. Parents own their children; a
// child keeps a plain back-reference to its parent.
type State struct {
	tree      *tree
	parent    *State
	weights   []float64
	completed []bool
	children  []*State
	finished  bool
}

// New returns a root scope reporting to r, which may be nil.
func New(r Reporter) *State {
	return &State{tree: &tree{reporter: r, last: -1}}
}

// Parent returns the enclosing scope, or nil for the root.
func (s *State) Parent() *State {
	return s.parent
}

// SetNumberSteps divides the scope into n equally weighted steps.
func (s *State) SetNumberSteps(n int) error {
	if n <= 0 {
		return ErrInvalidWeights
	}
	weights := make([]int, n)
	for i := range weights {
		weights[i] = 1
	}
	return s.SetSteps(weights...)
}

// SetSteps divides the scope into steps of the given relative weights,
// for example SetSteps(40, 10, 50).
func (s *State) SetSteps(weights ...int) error {
	if len(weights) == 0 {
		return ErrInvalidWeights
	}
	total := 0
	for _, w := range weights {
		if w <= 0 {
			return ErrInvalidWeights
		}
		total += w
	}

	s.tree.mu.Lock()
	s.weights = make([]float64, len(weights))
	for i, w := range weights {
		s.weights[i] = float64(w) / float64(total)
	}
	s.completed = make([]bool, len(weights))
	s.children = make([]*State, len(weights))
	s.finished = false
	s.tree.mu.Unlock()
	return nil
}

// Child returns the scope of the current step. A scope without steps is
// treated as a single step.
func (s *State) Child() *State {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	if len(s.weights) == 0 {
		s.weights = []float64{1}
		s.completed = []bool{false}
		s.children = []*State{nil}
	}
	i := s.current()
	if i < 0 {
		return &State{tree: s.tree, parent: s}
	}
	c := &State{tree: s.tree, parent: s}
	s.children[i] = c
	return c
}

// Children returns one scope per incomplete step so that steps can make
// progress concurrently. Complete steps get nil.
func (s *State) Children() []*State {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	out := make([]*State, len(s.weights))
	for i := range s.weights {
		if s.completed[i] {
			continue
		}
		c := &State{tree: s.tree, parent: s}
		s.children[i] = c
		out[i] = c
	}
	return out
}

// Done completes the current step.
func (s *State) Done() error {
	s.tree.mu.Lock()
	if len(s.weights) == 0 {
		s.tree.mu.Unlock()
		return ErrNoSteps
	}
	i := s.current()
	if i < 0 {
		s.tree.mu.Unlock()
		return ErrStepOverflow
	}
	s.completed[i] = true
	s.children[i] = nil
	s.tree.mu.Unlock()

	s.report()
	return nil
}

// Finished completes every remaining step at once.
func (s *State) Finished() error {
	s.tree.mu.Lock()
	for i := range s.completed {
		s.completed[i] = true
		s.children[i] = nil
	}
	s.finished = true
	s.tree.mu.Unlock()

	s.report()
	return nil
}

// Percentage returns the progress of this scope.
func (s *State) Percentage() int {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	return toPercent(s.fraction())
}

func (s *State) current() int {
	for i, done := range s.completed {
		if !done {
			return i
		}
	}
	return -1
}

func (s *State) fraction() float64 {
	if s.finished {
		return 1
	}
	var f float64
	for i, w := range s.weights {
		switch {
		case s.completed[i]:
			f += w
		case s.children[i] != nil:
			f += w * s.children[i].fraction()
		}
	}
	return f
}

func (s *State) root() *State {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// report runs the reporter under the tree lock; reporters must not call
// back into the tree.
func (s *State) report() {
	t := s.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	p := toPercent(s.root().fraction())
	if p <= t.last {
		return
	}
	t.last = p
	if t.reporter != nil {
		t.reporter(p)
	}
}

func toPercent(f float64) int {
	p := int(f*100 + 1e-6)
	if p > 100 {
		return 100
	}
	return p
}
