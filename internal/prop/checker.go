// Package prop evaluates the propositional fragment of the logic against a
// model, and computes probability-0/1 state sets for reachability
// objectives. The bisimulation core uses it only to seed measure-driven
// initial partitions.
package prop

import (
	"errors"
	"fmt"

	"github.com/quotientlab/quotient/internal/bitset"
	"github.com/quotientlab/quotient/internal/logic"
	"github.com/quotientlab/quotient/internal/model"
)

// ErrNotPropositional is returned by Check for formulas outside the
// propositional fragment.
var ErrNotPropositional = errors.New("formula is not propositional")

// Check returns the exact set of states satisfying a propositional formula.
// Atomic expressions are resolved as labels keyed by their textual form.
func Check[V any](m *model.Model[V], f logic.Formula) (*bitset.BitSet, error) {
	n := m.NumberOfStates()
	switch f := f.(type) {
	case logic.BooleanLiteral:
		if f.Value {
			return bitset.Full(n), nil
		}
		return bitset.New(n), nil
	case logic.AtomicLabel:
		set, err := m.States(f.Label)
		if err != nil {
			return nil, err
		}
		return set.Clone(), nil
	case logic.AtomicExpression:
		set, err := m.States(f.Expression)
		if err != nil {
			return nil, err
		}
		return set.Clone(), nil
	case logic.Not:
		set, err := Check(m, f.Operand)
		if err != nil {
			return nil, err
		}
		set.Not()
		return set, nil
	case logic.And:
		left, err := Check(m, f.Left)
		if err != nil {
			return nil, err
		}
		right, err := Check(m, f.Right)
		if err != nil {
			return nil, err
		}
		left.And(right)
		return left, nil
	case logic.Or:
		left, err := Check(m, f.Left)
		if err != nil {
			return nil, err
		}
		right, err := Check(m, f.Right)
		if err != nil {
			return nil, err
		}
		left.Or(right)
		return left, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotPropositional, f.String())
	}
}
