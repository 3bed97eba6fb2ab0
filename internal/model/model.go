// Package model holds the sparse representation of finite-state
// probabilistic transition systems: a compressed-row transition matrix,
// a state labeling and optional reward models. The bisimulation core reads
// models through this package and the quotient builder produces new ones.
package model

import (
	"errors"
	"fmt"

	"github.com/quotientlab/quotient/internal/bitset"
)

// Kind identifies the transition-system flavor of a model. The quotient of
// a model always has the same kind as the original.
type Kind int

const (
	DTMC Kind = iota
	CTMC
	MDP
	MA
)

func (k Kind) String() string {
	switch k {
	case DTMC:
		return "DTMC"
	case CTMC:
		return "CTMC"
	case MDP:
		return "MDP"
	case MA:
		return "MA"
	default:
		return "?"
	}
}

// Deterministic reports whether the kind has no nondeterministic choices.
func (k Kind) Deterministic() bool { return k == DTMC || k == CTMC }

// ErrNoUniqueRewardModel is returned when a unique reward model is required
// but the model has none or several.
var ErrNoUniqueRewardModel = errors.New("model does not have a unique reward model")

// Model is a finite-state probabilistic transition system.
type Model[V any] struct {
	kind         Kind
	transitions  *SparseMatrix[V]
	labeling     *Labeling
	rewardModels map[string]*StandardRewardModel[V]
	rewardOrder  []string
}

// New returns a model of the given kind. The labeling must cover exactly the
// matrix's columns.
func New[V any](kind Kind, transitions *SparseMatrix[V], labeling *Labeling) *Model[V] {
	if labeling.StateCount() != transitions.ColumnCount() {
		panic(fmt.Sprintf("model: labeling covers %d states, matrix has %d",
			labeling.StateCount(), transitions.ColumnCount()))
	}
	return &Model[V]{
		kind:         kind,
		transitions:  transitions,
		labeling:     labeling,
		rewardModels: make(map[string]*StandardRewardModel[V]),
	}
}

// Kind returns the transition-system flavor.
func (m *Model[V]) Kind() Kind { return m.kind }

// NumberOfStates returns the number of states.
func (m *Model[V]) NumberOfStates() int { return m.transitions.ColumnCount() }

// NumberOfTransitions returns the number of stored transitions.
func (m *Model[V]) NumberOfTransitions() int { return m.transitions.EntryCount() }

// Transitions returns the forward transition matrix.
func (m *Model[V]) Transitions() *SparseMatrix[V] { return m.transitions }

// BackwardTransitions computes the reverse adjacency of the transition
// matrix.
func (m *Model[V]) BackwardTransitions() *SparseMatrix[V] { return m.transitions.Transpose() }

// Labeling returns the state labeling.
func (m *Model[V]) Labeling() *Labeling { return m.labeling }

// States returns the states carrying the given label.
func (m *Model[V]) States(label string) (*bitset.BitSet, error) {
	return m.labeling.States(label)
}

// InitialStates returns the states carrying the init label, or an empty set
// if the label is absent.
func (m *Model[V]) InitialStates() *bitset.BitSet {
	set, err := m.labeling.States(InitLabel)
	if err != nil {
		return bitset.New(m.NumberOfStates())
	}
	return set
}

// AddRewardModel attaches a named reward model.
func (m *Model[V]) AddRewardModel(name string, rm *StandardRewardModel[V]) error {
	if _, ok := m.rewardModels[name]; ok {
		return fmt.Errorf("reward model %q already present", name)
	}
	m.rewardModels[name] = rm
	m.rewardOrder = append(m.rewardOrder, name)
	return nil
}

// HasRewardModel reports whether any reward model is attached.
func (m *Model[V]) HasRewardModel() bool { return len(m.rewardModels) > 0 }

// HasUniqueRewardModel reports whether exactly one reward model is attached.
func (m *Model[V]) HasUniqueRewardModel() bool { return len(m.rewardModels) == 1 }

// UniqueRewardModel returns the single attached reward model.
func (m *Model[V]) UniqueRewardModel() (string, *StandardRewardModel[V], error) {
	if len(m.rewardModels) != 1 {
		return "", nil, ErrNoUniqueRewardModel
	}
	name := m.rewardOrder[0]
	return name, m.rewardModels[name], nil
}
