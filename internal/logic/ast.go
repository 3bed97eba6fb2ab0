// Package logic defines the temporal-logic formula AST the minimization is
// configured from, plus the static inspection the option derivation needs.
// Formulas are a closed set of variants; consumers switch exhaustively
// instead of downcasting.
package logic

import (
	"fmt"
	"strings"
)

// Formula is a state or path formula.
type Formula interface {
	isFormula()
	String() string
}

// BooleanLiteral is the constant true or false.
type BooleanLiteral struct {
	Value bool
}

func (BooleanLiteral) isFormula() {}
func (f BooleanLiteral) String() string {
	if f.Value {
		return "true"
	}
	return "false"
}

// AtomicLabel holds in exactly the states carrying the label.
type AtomicLabel struct {
	Label string
}

func (AtomicLabel) isFormula() {}
func (f AtomicLabel) String() string {
	return fmt.Sprintf("%q", f.Label)
}

// AtomicExpression is a state predicate given as an opaque expression
// string. Models expose expression atoms as labels keyed by the expression's
// textual form.
type AtomicExpression struct {
	Expression string
}

func (AtomicExpression) isFormula() {}
func (f AtomicExpression) String() string {
	return f.Expression
}

// Not negates a propositional formula.
type Not struct {
	Operand Formula
}

func (Not) isFormula() {}
func (f Not) String() string {
	return "!" + f.Operand.String()
}

// And is propositional conjunction.
type And struct {
	Left, Right Formula
}

func (And) isFormula() {}
func (f And) String() string {
	return "(" + f.Left.String() + " & " + f.Right.String() + ")"
}

// Or is propositional disjunction.
type Or struct {
	Left, Right Formula
}

func (Or) isFormula() {}
func (f Or) String() string {
	return "(" + f.Left.String() + " | " + f.Right.String() + ")"
}

// Next holds if the subformula holds after exactly one step.
type Next struct {
	Subformula Formula
}

func (Next) isFormula() {}
func (f Next) String() string {
	return "X " + f.Subformula.String()
}

// Eventually holds if the subformula eventually holds.
type Eventually struct {
	Subformula Formula
}

func (Eventually) isFormula() {}
func (f Eventually) String() string {
	return "F " + f.Subformula.String()
}

// Globally holds if the subformula holds forever.
type Globally struct {
	Subformula Formula
}

func (Globally) isFormula() {}
func (f Globally) String() string {
	return "G " + f.Subformula.String()
}

// Until holds if the right subformula eventually holds and the left one
// holds until then.
type Until struct {
	Left, Right Formula
}

func (Until) isFormula() {}
func (f Until) String() string {
	return "(" + f.Left.String() + " U " + f.Right.String() + ")"
}

// BoundedUntil is Until restricted to at most Bound steps.
type BoundedUntil struct {
	Left, Right Formula
	Bound       uint64
}

func (BoundedUntil) isFormula() {}
func (f BoundedUntil) String() string {
	return fmt.Sprintf("(%s U<=%d %s)", f.Left.String(), f.Bound, f.Right.String())
}

// OptimalityType is the optimization direction of an operator over
// nondeterministic models.
type OptimalityType int

const (
	Minimize OptimalityType = iota
	Maximize
)

func (o OptimalityType) String() string {
	if o == Maximize {
		return "max"
	}
	return "min"
}

// ComparisonType relates an operator's value to its bound threshold.
type ComparisonType int

const (
	Less ComparisonType = iota
	LessEqual
	Greater
	GreaterEqual
)

func (c ComparisonType) String() string {
	switch c {
	case Less:
		return "<"
	case LessEqual:
		return "<="
	case Greater:
		return ">"
	case GreaterEqual:
		return ">="
	default:
		return "?"
	}
}

// Bound is a comparison against a threshold, as in P<=0.1 [...].
type Bound struct {
	Comparison ComparisonType
	Threshold  float64
}

func (b Bound) String() string {
	return b.Comparison.String() + strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", b.Threshold), "0"), ".")
}

// ProbabilityOperator asks for the probability of its path subformula,
// either compared against a bound or as a plain query.
type ProbabilityOperator struct {
	Subformula Formula
	Optimality *OptimalityType
	Bound      *Bound
}

func (ProbabilityOperator) isFormula() {}
func (f ProbabilityOperator) String() string {
	return operatorString("P", f.Optimality, f.Bound, f.Subformula)
}

// RewardOperator asks for the expected reward of its path subformula.
type RewardOperator struct {
	Subformula Formula
	Optimality *OptimalityType
	Bound      *Bound
}

func (RewardOperator) isFormula() {}
func (f RewardOperator) String() string {
	return operatorString("R", f.Optimality, f.Bound, f.Subformula)
}

func operatorString(kind string, opt *OptimalityType, bound *Bound, sub Formula) string {
	var sb strings.Builder
	sb.WriteString(kind)
	if opt != nil {
		sb.WriteString(opt.String())
	}
	if bound != nil {
		sb.WriteString(bound.String())
	} else {
		sb.WriteString("=?")
	}
	sb.WriteString(" [ ")
	sb.WriteString(sub.String())
	sb.WriteString(" ]")
	return sb.String()
}

// Opt returns a pointer to the given optimality type, for operator literals.
func Opt(o OptimalityType) *OptimalityType { return &o }
