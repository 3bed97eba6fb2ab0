package bisim

import (
	"sort"

	"github.com/quotientlab/quotient/internal/bitset"
	"github.com/quotientlab/quotient/internal/logic"
	"github.com/quotientlab/quotient/internal/model"
	"github.com/quotientlab/quotient/internal/prop"
)

// Type selects the bisimulation relation to compute.
type Type int

const (
	// Strong bisimulation compares the full one-step distribution of
	// every state.
	Strong Type = iota
	// Weak bisimulation abstracts from stutter steps inside a block and
	// compares conditional exit distributions instead.
	Weak
)

func (t Type) String() string {
	if t == Weak {
		return "weak"
	}
	return "strong"
}

// Options control which states the decomposition may merge and whether the
// quotient model is constructed.
//
// Options values are passed around by value; the derivation helpers return
// a new value instead of mutating their receiver.
type Options struct {
	// Type is the bisimulation relation to use. Weak bisimulation cannot
	// preserve step-bounded properties, so Weak together with Bounded is
	// rejected, and it is only available for discrete-time Markov chains.
	Type Type

	// RespectedAtomicPropositions lists the labels equivalent states must
	// agree on. A nil slice means all labels of the model.
	RespectedAtomicPropositions []string

	// KeepRewards forces equivalent states to carry identical state
	// rewards so reward properties survive the quotient.
	KeepRewards bool

	// Bounded records that a step-bounded property must be preserved,
	// which rules out collapsing prob0/prob1 regions into absorbing
	// blocks.
	Bounded bool

	// MeasureDrivenInitialPartition seeds the initial partition from the
	// prob0/prob1 precomputation of a single until-style property given
	// by PhiStates and PsiStates.
	MeasureDrivenInitialPartition bool
	PhiStates                     *bitset.BitSet
	PsiStates                     *bitset.BitSet

	// Optimality is the direction used for the prob0/prob1 precomputation
	// on nondeterministic models. Only meaningful together with the
	// measure-driven initial partition.
	Optimality *logic.OptimalityType

	// BuildQuotient controls whether the quotient model is constructed
	// after refinement.
	BuildQuotient bool
}

// NewOptions returns the default options: strong bisimulation respecting
// all labels, with quotient construction enabled.
func NewOptions() Options {
	return Options{Type: Strong, BuildQuotient: true}
}

// OptionsForFormula derives the weakest preservation requirements for a
// single formula, enabling the measure-driven initial partition when the
// formula is an (optionally bounded) until or eventually over propositional
// operands.
func OptionsForFormula[V any](m *model.Model[V], f logic.Formula) Options {
	o := NewOptions()
	info := logic.GetInfo(f)
	o.KeepRewards = info.ContainsRewardOperator
	o.Bounded = info.ContainsBoundedUntil || info.ContainsNext
	o.RespectedAtomicPropositions = respectedLabels(nil, f)
	return measureDriven(m, f, o)
}

// OptionsForFormulas derives options preserving all given formulas at once.
// With several formulas the measure-driven seeding does not apply and the
// per-formula requirements are folded together; with none, everything is
// preserved.
func OptionsForFormulas[V any](m *model.Model[V], formulas []logic.Formula) Options {
	switch len(formulas) {
	case 0:
		o := NewOptions()
		o.KeepRewards = true
		return o
	case 1:
		return OptionsForFormula(m, formulas[0])
	}
	o := NewOptions()
	for _, f := range formulas {
		o = o.PreserveFormula(f)
	}
	return o
}

// PreserveFormula folds the requirements of one more formula into the
// options. Accumulating formulas disables the measure-driven seeding, which
// is only sound for a single property.
func (o Options) PreserveFormula(f logic.Formula) Options {
	o.MeasureDrivenInitialPartition = false
	o.PhiStates, o.PsiStates, o.Optimality = nil, nil, nil
	info := logic.GetInfo(f)
	o.KeepRewards = o.KeepRewards || info.ContainsRewardOperator
	o.Bounded = o.Bounded || info.ContainsBoundedUntil || info.ContainsNext
	o.RespectedAtomicPropositions = respectedLabels(o.RespectedAtomicPropositions, f)
	return o
}

// measureDriven checks whether f is a top-level probability or reward
// operator over an until-style path formula with propositional operands and,
// if so, resolves the operand state sets. Formulas outside that fragment
// fall back to the plain label-based options.
func measureDriven[V any](m *model.Model[V], f logic.Formula, o Options) Options {
	sub := f
	switch op := f.(type) {
	case logic.ProbabilityOperator:
		o.Optimality = direction(op.Optimality, op.Bound)
		sub = op.Subformula
	case logic.RewardOperator:
		o.Optimality = direction(op.Optimality, op.Bound)
		sub = op.Subformula
	}

	var left, right logic.Formula
	switch pf := sub.(type) {
	case logic.Until:
		left, right = pf.Left, pf.Right
	case logic.BoundedUntil:
		left, right = pf.Left, pf.Right
	case logic.Eventually:
		left, right = logic.BooleanLiteral{Value: true}, pf.Subformula
	default:
		o.Optimality = nil
		return o
	}
	if !logic.IsPropositional(left) || !logic.IsPropositional(right) {
		o.Optimality = nil
		return o
	}

	phi, err := prop.Check(m, left)
	if err != nil {
		o.Optimality = nil
		return o
	}
	psi, err := prop.Check(m, right)
	if err != nil {
		o.Optimality = nil
		return o
	}
	o.MeasureDrivenInitialPartition = true
	o.PhiStates, o.PsiStates = phi, psi
	return o
}

// direction resolves the optimization direction of an operator. An explicit
// min/max wins; otherwise an upper bound (< or <=) asks whether even the
// maximum stays below the threshold, so the maximum is the relevant value,
// and a lower bound asks about the minimum.
func direction(opt *logic.OptimalityType, bound *logic.Bound) *logic.OptimalityType {
	if opt != nil {
		return logic.Opt(*opt)
	}
	if bound == nil {
		return nil
	}
	if bound.Comparison == logic.Less || bound.Comparison == logic.LessEqual {
		return logic.Opt(logic.Maximize)
	}
	return logic.Opt(logic.Minimize)
}

// respectedLabels merges the atomic labels of f into the sorted label slice.
func respectedLabels(labels []string, f logic.Formula) []string {
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		seen[l] = true
	}
	for _, atom := range logic.AtomicLabels(f) {
		if !seen[atom.Label] {
			seen[atom.Label] = true
			labels = append(labels, atom.Label)
		}
	}
	// Expression atoms are resolved as labels keyed by their textual form.
	for _, atom := range logic.AtomicExpressions(f) {
		if !seen[atom.Expression] {
			seen[atom.Expression] = true
			labels = append(labels, atom.Expression)
		}
	}
	sort.Strings(labels)
	return labels
}
