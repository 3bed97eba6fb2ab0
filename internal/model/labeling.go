package model

import (
	"fmt"

	"github.com/quotientlab/quotient/internal/bitset"
)

// InitLabel marks a model's starting states. It exists only for that purpose
// and carries no behavioral information, so the decomposition never splits
// on it.
const InitLabel = "init"

// Labeling maps label names to the sets of states carrying them.
type Labeling struct {
	stateCount int
	sets       map[string]*bitset.BitSet
	order      []string
}

// NewLabeling returns an empty labeling over stateCount states.
func NewLabeling(stateCount int) *Labeling {
	return &Labeling{
		stateCount: stateCount,
		sets:       make(map[string]*bitset.BitSet),
	}
}

// StateCount returns the number of states the labeling covers.
func (l *Labeling) StateCount() int { return l.stateCount }

// Add registers a label with an empty state set. Adding an existing label is
// a no-op.
func (l *Labeling) Add(label string) {
	if _, ok := l.sets[label]; ok {
		return
	}
	l.sets[label] = bitset.New(l.stateCount)
	l.order = append(l.order, label)
}

// AddToState attaches label to state, registering the label if needed.
func (l *Labeling) AddToState(label string, state int) {
	l.Add(label)
	l.sets[label].Set(state)
}

// Has reports whether the label is registered.
func (l *Labeling) Has(label string) bool {
	_, ok := l.sets[label]
	return ok
}

// States returns the set of states carrying the label.
func (l *Labeling) States(label string) (*bitset.BitSet, error) {
	set, ok := l.sets[label]
	if !ok {
		return nil, fmt.Errorf("unknown label %q", label)
	}
	return set, nil
}

// Labels returns all registered labels in registration order.
func (l *Labeling) Labels() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// LabelsOfState returns the labels attached to a state, in registration
// order.
func (l *Labeling) LabelsOfState(state int) []string {
	var out []string
	for _, label := range l.order {
		if l.sets[label].Get(state) {
			out = append(out, label)
		}
	}
	return out
}
