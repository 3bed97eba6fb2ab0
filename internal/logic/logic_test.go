package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	f := ProbabilityOperator{Subformula: Eventually{Subformula: AtomicLabel{Label: "one"}}}
	info := GetInfo(f)
	assert.False(t, info.ContainsRewardOperator)
	assert.False(t, info.ContainsBoundedUntil)
	assert.False(t, info.ContainsNext)

	g := RewardOperator{Subformula: BoundedUntil{
		Left:  BooleanLiteral{Value: true},
		Right: AtomicLabel{Label: "done"},
		Bound: 10,
	}}
	info = GetInfo(g)
	assert.True(t, info.ContainsRewardOperator)
	assert.True(t, info.ContainsBoundedUntil)

	h := Next{Subformula: AtomicLabel{Label: "a"}}
	assert.True(t, GetInfo(h).ContainsNext)
}

func TestAtomicCollection(t *testing.T) {
	f := Until{
		Left:  And{Left: AtomicLabel{Label: "a"}, Right: AtomicExpression{Expression: "x<2"}},
		Right: Or{Left: AtomicLabel{Label: "b"}, Right: Not{Operand: AtomicLabel{Label: "c"}}},
	}

	labels := AtomicLabels(f)
	require.Len(t, labels, 3)
	assert.Equal(t, "a", labels[0].Label)
	assert.Equal(t, "b", labels[1].Label)
	assert.Equal(t, "c", labels[2].Label)

	exprs := AtomicExpressions(f)
	require.Len(t, exprs, 1)
	assert.Equal(t, "x<2", exprs[0].Expression)
}

func TestIsPropositional(t *testing.T) {
	assert.True(t, IsPropositional(BooleanLiteral{Value: true}))
	assert.True(t, IsPropositional(And{
		Left:  AtomicLabel{Label: "a"},
		Right: Not{Operand: AtomicExpression{Expression: "e"}},
	}))
	assert.False(t, IsPropositional(Eventually{Subformula: AtomicLabel{Label: "a"}}))
	assert.False(t, IsPropositional(Not{Operand: Next{Subformula: BooleanLiteral{Value: true}}}))
}

func TestParseEventuallyQuery(t *testing.T) {
	f, err := ParseProperty(`Pmax=? [ F "target" ]`)
	require.NoError(t, err)

	op, ok := f.(ProbabilityOperator)
	require.True(t, ok)
	require.NotNil(t, op.Optimality)
	assert.Equal(t, Maximize, *op.Optimality)
	assert.Nil(t, op.Bound)

	ev, ok := op.Subformula.(Eventually)
	require.True(t, ok)
	assert.Equal(t, AtomicLabel{Label: "target"}, ev.Subformula)
}

func TestParseBoundedOperator(t *testing.T) {
	f, err := ParseProperty(`P>=0.5 [ "safe" U "goal" ]`)
	require.NoError(t, err)

	op, ok := f.(ProbabilityOperator)
	require.True(t, ok)
	assert.Nil(t, op.Optimality)
	require.NotNil(t, op.Bound)
	assert.Equal(t, GreaterEqual, op.Bound.Comparison)
	assert.Equal(t, 0.5, op.Bound.Threshold)

	u, ok := op.Subformula.(Until)
	require.True(t, ok)
	assert.Equal(t, AtomicLabel{Label: "safe"}, u.Left)
	assert.Equal(t, AtomicLabel{Label: "goal"}, u.Right)
}

func TestParseBarePathWithStepBound(t *testing.T) {
	f, err := ParseProperty(`true U<=50 "error"`)
	require.NoError(t, err)

	bu, ok := f.(BoundedUntil)
	require.True(t, ok)
	assert.Equal(t, uint64(50), bu.Bound)
	assert.Equal(t, BooleanLiteral{Value: true}, bu.Left)
	assert.Equal(t, AtomicLabel{Label: "error"}, bu.Right)
}

func TestParseRewardOperator(t *testing.T) {
	f, err := ParseProperty(`Rmin<=4.5 [ F "done" ]`)
	require.NoError(t, err)

	op, ok := f.(RewardOperator)
	require.True(t, ok)
	require.NotNil(t, op.Optimality)
	assert.Equal(t, Minimize, *op.Optimality)
	require.NotNil(t, op.Bound)
	assert.Equal(t, LessEqual, op.Bound.Comparison)
	assert.Equal(t, 4.5, op.Bound.Threshold)
}

func TestParsePropositionalOperands(t *testing.T) {
	f, err := ParseProperty(`F (!"a" & ("b" | ready))`)
	require.NoError(t, err)

	ev, ok := f.(Eventually)
	require.True(t, ok)

	and, ok := ev.Subformula.(And)
	require.True(t, ok)
	assert.Equal(t, Not{Operand: AtomicLabel{Label: "a"}}, and.Left)

	or, ok := and.Right.(Or)
	require.True(t, ok)
	assert.Equal(t, AtomicLabel{Label: "b"}, or.Left)
	assert.Equal(t, AtomicExpression{Expression: "ready"}, or.Right)
}

func TestParseErrors(t *testing.T) {
	_, err := ParseProperty(`P>= [ F "x" ]`)
	assert.Error(t, err)

	_, err = ParseProperty(``)
	assert.Error(t, err)
}

func TestFormulaStrings(t *testing.T) {
	f := ProbabilityOperator{
		Subformula: Until{Left: AtomicLabel{Label: "a"}, Right: AtomicLabel{Label: "b"}},
		Bound:      &Bound{Comparison: LessEqual, Threshold: 0.5},
	}
	assert.Equal(t, `P<=0.5 [ ("a" U "b") ]`, f.String())

	g := RewardOperator{Subformula: Eventually{Subformula: AtomicLabel{Label: "done"}}, Optimality: Opt(Maximize)}
	assert.Equal(t, `Rmax=? [ F "done" ]`, g.String())
}
