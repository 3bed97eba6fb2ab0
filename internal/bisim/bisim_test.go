package bisim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotientlab/quotient/internal/logic"
	"github.com/quotientlab/quotient/internal/model"
	"github.com/quotientlab/quotient/internal/numeric"
)

// buildDie constructs the 13-state Knuth-Yao die DTMC: a fair coin is
// flipped until one of the six outcome states is reached.
func buildDie(t *testing.T) *model.Model[float64] {
	t.Helper()

	b := model.NewMatrixBuilder[float64](13)
	half := func(i, j int) {
		b.AddRow(model.Entry[float64]{Column: i, Value: 0.5}, model.Entry[float64]{Column: j, Value: 0.5})
	}
	half(1, 2)   // 0
	half(3, 4)   // 1
	half(5, 6)   // 2
	half(1, 7)   // 3
	half(8, 9)   // 4
	half(10, 11) // 5
	half(2, 12)  // 6
	for s := 7; s <= 12; s++ {
		b.AddRow(model.Entry[float64]{Column: s, Value: 1})
	}

	l := model.NewLabeling(13)
	l.AddToState(model.InitLabel, 0)
	for i, name := range []string{"one", "two", "three", "four", "five", "six"} {
		l.AddToState(name, 7+i)
	}
	for s := 7; s <= 12; s++ {
		l.AddToState("done", s)
	}
	return model.New(model.DTMC, b.Build(), l)
}

func TestStrongDieAllLabels(t *testing.T) {
	m := buildDie(t)
	d, err := Decompose[float64](numeric.Float64{}, m, NewOptions())
	require.NoError(t, err)

	// Every outcome state carries its own label, so nothing can merge.
	assert.Equal(t, 13, d.NumBlocks())
	q, err := d.Quotient()
	require.NoError(t, err)
	assert.Equal(t, 13, q.NumberOfStates())
	assert.Equal(t, 20, q.NumberOfTransitions())
}

func TestStrongDieRespectOne(t *testing.T) {
	m := buildDie(t)
	opts := NewOptions()
	opts.RespectedAtomicPropositions = []string{"one"}
	d, err := Decompose[float64](numeric.Float64{}, m, opts)
	require.NoError(t, err)

	assert.Equal(t, 5, d.NumBlocks())

	// The states on the path to outcome one stay apart; everything that
	// reaches one with probability zero collapses.
	assert.Equal(t, d.BlockOf(2), d.BlockOf(4))
	assert.Equal(t, d.BlockOf(2), d.BlockOf(8))
	assert.Equal(t, d.BlockOf(2), d.BlockOf(12))
	assert.NotEqual(t, d.BlockOf(0), d.BlockOf(1))
	assert.NotEqual(t, d.BlockOf(1), d.BlockOf(3))
	assert.NotEqual(t, d.BlockOf(3), d.BlockOf(7))

	q, err := d.Quotient()
	require.NoError(t, err)
	assert.Equal(t, 5, q.NumberOfStates())
	assert.Equal(t, 8, q.NumberOfTransitions())

	one, err := q.States("one")
	require.NoError(t, err)
	assert.Equal(t, 1, one.Count())
	assert.Equal(t, 1, q.InitialStates().Count())
}

func TestWeakDieRespectOne(t *testing.T) {
	m := buildDie(t)
	opts := NewOptions()
	opts.Type = Weak
	opts.RespectedAtomicPropositions = []string{"one"}
	d, err := Decompose[float64](numeric.Float64{}, m, opts)
	require.NoError(t, err)

	assert.Equal(t, 5, d.NumBlocks())
	q, err := d.Quotient()
	require.NoError(t, err)
	assert.Equal(t, 5, q.NumberOfStates())
	assert.Equal(t, 8, q.NumberOfTransitions())
}

func TestMeasureDrivenDie(t *testing.T) {
	m := buildDie(t)
	f := logic.ProbabilityOperator{
		Subformula: logic.Eventually{Subformula: logic.AtomicLabel{Label: "one"}},
	}
	opts := OptionsForFormula(m, f)
	require.True(t, opts.MeasureDrivenInitialPartition)
	require.NotNil(t, opts.PsiStates)
	assert.Equal(t, 1, opts.PsiStates.Count())
	assert.Equal(t, []string{"one"}, opts.RespectedAtomicPropositions)

	d, err := Decompose[float64](numeric.Float64{}, m, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, d.NumBlocks())

	q, err := d.Quotient()
	require.NoError(t, err)
	assert.Equal(t, 5, q.NumberOfStates())
	assert.Equal(t, 8, q.NumberOfTransitions())

	one, err := q.States("one")
	require.NoError(t, err)
	assert.Equal(t, 1, one.Count())
}

func TestWeakDieRatExact(t *testing.T) {
	b := model.NewMatrixBuilder[numeric.Rat](13)
	h := numeric.NewRat(1, 2)
	half := func(i, j int) {
		b.AddRow(model.Entry[numeric.Rat]{Column: i, Value: h}, model.Entry[numeric.Rat]{Column: j, Value: h})
	}
	half(1, 2)
	half(3, 4)
	half(5, 6)
	half(1, 7)
	half(8, 9)
	half(10, 11)
	half(2, 12)
	for s := 7; s <= 12; s++ {
		b.AddRow(model.Entry[numeric.Rat]{Column: s, Value: numeric.RatFromInt(1)})
	}
	l := model.NewLabeling(13)
	l.AddToState(model.InitLabel, 0)
	l.AddToState("one", 7)
	m := model.New(model.DTMC, b.Build(), l)

	opts := NewOptions()
	opts.Type = Weak
	opts.RespectedAtomicPropositions = []string{"one"}
	d, err := Decompose[numeric.Rat](numeric.Rat64{}, m, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, d.NumBlocks())
}

// States that leave their block with probability one are weakly bisimilar
// no matter how many stutter steps inside the block each of them takes
// first.
func TestWeakStutterChain(t *testing.T) {
	b := model.NewMatrixBuilder[float64](3)
	b.AddRow(model.Entry[float64]{Column: 1, Value: 1})
	b.AddRow(model.Entry[float64]{Column: 2, Value: 1})
	b.AddRow(model.Entry[float64]{Column: 2, Value: 1})
	l := model.NewLabeling(3)
	l.AddToState(model.InitLabel, 0)
	l.AddToState("goal", 2)
	m := model.New(model.DTMC, b.Build(), l)

	opts := NewOptions()
	opts.Type = Weak
	opts.RespectedAtomicPropositions = []string{"goal"}
	d, err := Decompose[float64](numeric.Float64{}, m, opts)
	require.NoError(t, err)

	assert.Equal(t, 2, d.NumBlocks())
	assert.Equal(t, d.BlockOf(0), d.BlockOf(1))

	q, err := d.Quotient()
	require.NoError(t, err)
	row := q.Transitions().Row(d.BlockOf(0))
	require.Len(t, row, 1)
	assert.Equal(t, d.BlockOf(2), row[0].Column)
	assert.Equal(t, 1.0, row[0].Value)
}

// A state that can leave its block is split from a mate that strands inside
// it forever.
func TestWeakDivergenceSplits(t *testing.T) {
	b := model.NewMatrixBuilder[float64](3)
	b.AddRow(
		model.Entry[float64]{Column: 1, Value: 0.5},
		model.Entry[float64]{Column: 2, Value: 0.5})
	b.AddRow(model.Entry[float64]{Column: 1, Value: 1})
	b.AddRow(model.Entry[float64]{Column: 2, Value: 1})
	l := model.NewLabeling(3)
	l.AddToState("goal", 2)
	m := model.New(model.DTMC, b.Build(), l)

	opts := NewOptions()
	opts.Type = Weak
	opts.RespectedAtomicPropositions = []string{"goal"}
	d, err := Decompose[float64](numeric.Float64{}, m, opts)
	require.NoError(t, err)

	assert.Equal(t, 3, d.NumBlocks())
	assert.NotEqual(t, d.BlockOf(0), d.BlockOf(1))
}

// The weak quotient conditions its rows on leaving the block: a self-loop is
// silent and the remaining mass is rescaled to a full distribution.
func TestWeakQuotientConditioning(t *testing.T) {
	b := model.NewMatrixBuilder[float64](2)
	b.AddRow(
		model.Entry[float64]{Column: 0, Value: 0.5},
		model.Entry[float64]{Column: 1, Value: 0.5})
	b.AddRow(model.Entry[float64]{Column: 1, Value: 1})
	l := model.NewLabeling(2)
	l.AddToState("goal", 1)
	m := model.New(model.DTMC, b.Build(), l)

	opts := NewOptions()
	opts.Type = Weak
	opts.RespectedAtomicPropositions = []string{"goal"}
	d, err := Decompose[float64](numeric.Float64{}, m, opts)
	require.NoError(t, err)
	require.Equal(t, 2, d.NumBlocks())

	q, err := d.Quotient()
	require.NoError(t, err)
	row := q.Transitions().Row(d.BlockOf(0))
	require.Len(t, row, 1)
	assert.Equal(t, d.BlockOf(1), row[0].Column)
	assert.Equal(t, 1.0, row[0].Value)
}

func TestOptionsForFormula(t *testing.T) {
	m := buildDie(t)

	t.Run("upper bound maximizes", func(t *testing.T) {
		f := logic.ProbabilityOperator{
			Subformula: logic.Until{
				Left:  logic.BooleanLiteral{Value: true},
				Right: logic.AtomicLabel{Label: "one"},
			},
			Bound: &logic.Bound{Comparison: logic.LessEqual, Threshold: 0.5},
		}
		opts := OptionsForFormula(m, f)
		assert.True(t, opts.MeasureDrivenInitialPartition)
		require.NotNil(t, opts.Optimality)
		assert.Equal(t, logic.Maximize, *opts.Optimality)
		assert.False(t, opts.Bounded)
		assert.False(t, opts.KeepRewards)
	})

	t.Run("lower bound minimizes", func(t *testing.T) {
		f := logic.ProbabilityOperator{
			Subformula: logic.Eventually{Subformula: logic.AtomicLabel{Label: "one"}},
			Bound:      &logic.Bound{Comparison: logic.GreaterEqual, Threshold: 0.1},
		}
		opts := OptionsForFormula(m, f)
		require.NotNil(t, opts.Optimality)
		assert.Equal(t, logic.Minimize, *opts.Optimality)
	})

	t.Run("explicit direction wins", func(t *testing.T) {
		f := logic.ProbabilityOperator{
			Subformula: logic.Eventually{Subformula: logic.AtomicLabel{Label: "one"}},
			Optimality: logic.Opt(logic.Minimize),
			Bound:      &logic.Bound{Comparison: logic.LessEqual, Threshold: 0.5},
		}
		opts := OptionsForFormula(m, f)
		require.NotNil(t, opts.Optimality)
		assert.Equal(t, logic.Minimize, *opts.Optimality)
	})

	t.Run("bounded until", func(t *testing.T) {
		f := logic.ProbabilityOperator{
			Subformula: logic.BoundedUntil{
				Left:  logic.BooleanLiteral{Value: true},
				Right: logic.AtomicLabel{Label: "one"},
				Bound: 50,
			},
		}
		opts := OptionsForFormula(m, f)
		assert.True(t, opts.Bounded)
		assert.True(t, opts.MeasureDrivenInitialPartition)
	})

	t.Run("reward operator keeps rewards", func(t *testing.T) {
		f := logic.RewardOperator{
			Subformula: logic.Eventually{Subformula: logic.AtomicLabel{Label: "done"}},
		}
		opts := OptionsForFormula(m, f)
		assert.True(t, opts.KeepRewards)
		assert.True(t, opts.MeasureDrivenInitialPartition)
	})

	t.Run("nested temporal operand disables seeding", func(t *testing.T) {
		f := logic.ProbabilityOperator{
			Subformula: logic.Eventually{
				Subformula: logic.Eventually{Subformula: logic.AtomicLabel{Label: "one"}},
			},
		}
		opts := OptionsForFormula(m, f)
		assert.False(t, opts.MeasureDrivenInitialPartition)
		assert.Nil(t, opts.Optimality)
		assert.Equal(t, []string{"one"}, opts.RespectedAtomicPropositions)
	})

	t.Run("several formulas fold", func(t *testing.T) {
		fs := []logic.Formula{
			logic.ProbabilityOperator{Subformula: logic.Eventually{Subformula: logic.AtomicLabel{Label: "one"}}},
			logic.ProbabilityOperator{Subformula: logic.Next{Subformula: logic.AtomicLabel{Label: "two"}}},
		}
		opts := OptionsForFormulas(m, fs)
		assert.False(t, opts.MeasureDrivenInitialPartition)
		assert.True(t, opts.Bounded)
		assert.Equal(t, []string{"one", "two"}, opts.RespectedAtomicPropositions)
	})

	t.Run("no formulas preserve everything", func(t *testing.T) {
		opts := OptionsForFormulas(m, nil)
		assert.True(t, opts.KeepRewards)
		assert.Nil(t, opts.RespectedAtomicPropositions)
	})
}

func TestRewardSplit(t *testing.T) {
	b := model.NewMatrixBuilder[float64](3)
	for s := 0; s < 3; s++ {
		b.AddRow(model.Entry[float64]{Column: s, Value: 1})
	}
	l := model.NewLabeling(3)
	l.AddToState(model.InitLabel, 0)
	m := model.New(model.DTMC, b.Build(), l)
	require.NoError(t, m.AddRewardModel("steps", model.NewStateRewardModel([]float64{0, 1, 0})))

	opts := NewOptions()
	opts.KeepRewards = true
	d, err := Decompose[float64](numeric.Float64{}, m, opts)
	require.NoError(t, err)

	assert.Equal(t, 2, d.NumBlocks())
	assert.Equal(t, d.BlockOf(0), d.BlockOf(2))
	assert.NotEqual(t, d.BlockOf(0), d.BlockOf(1))

	q, err := d.Quotient()
	require.NoError(t, err)
	name, rm, err := q.UniqueRewardModel()
	require.NoError(t, err)
	assert.Equal(t, "steps", name)
	assert.Equal(t, 1.0, rm.StateReward(d.BlockOf(1)))
	assert.Equal(t, 0.0, rm.StateReward(d.BlockOf(0)))
}

func TestInvalidOptions(t *testing.T) {
	m := buildDie(t)

	t.Run("weak and bounded", func(t *testing.T) {
		opts := NewOptions()
		opts.Type = Weak
		opts.Bounded = true
		_, err := New[float64](numeric.Float64{}, m, opts)
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("measure-driven without state sets", func(t *testing.T) {
		opts := NewOptions()
		opts.MeasureDrivenInitialPartition = true
		_, err := New[float64](numeric.Float64{}, m, opts)
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("transition rewards", func(t *testing.T) {
		b := model.NewMatrixBuilder[float64](1)
		b.AddRow(model.Entry[float64]{Column: 0, Value: 1})
		trans := b.Build()
		m2 := model.New(model.DTMC, trans, model.NewLabeling(1))
		require.NoError(t, m2.AddRewardModel("r", model.NewRewardModel([]float64{0}, trans)))

		opts := NewOptions()
		opts.KeepRewards = true
		_, err := New[float64](numeric.Float64{}, m2, opts)
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("ambiguous reward model", func(t *testing.T) {
		b := model.NewMatrixBuilder[float64](1)
		b.AddRow(model.Entry[float64]{Column: 0, Value: 1})
		m2 := model.New(model.DTMC, b.Build(), model.NewLabeling(1))
		require.NoError(t, m2.AddRewardModel("a", model.NewStateRewardModel([]float64{0})))
		require.NoError(t, m2.AddRewardModel("b", model.NewStateRewardModel([]float64{1})))

		opts := NewOptions()
		opts.KeepRewards = true
		_, err := New[float64](numeric.Float64{}, m2, opts)
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("unknown respected label", func(t *testing.T) {
		opts := NewOptions()
		opts.RespectedAtomicPropositions = []string{"no-such-label"}
		_, err := Decompose[float64](numeric.Float64{}, m, opts)
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})
}

func TestQuotientNotBuilt(t *testing.T) {
	m := buildDie(t)

	d, err := New[float64](numeric.Float64{}, m, NewOptions())
	require.NoError(t, err)
	_, err = d.Quotient()
	assert.ErrorIs(t, err, ErrQuotientNotBuilt)

	opts := NewOptions()
	opts.BuildQuotient = false
	d, err = Decompose[float64](numeric.Float64{}, m, opts)
	require.NoError(t, err)
	assert.Equal(t, 13, d.NumBlocks())
	_, err = d.Quotient()
	assert.ErrorIs(t, err, ErrQuotientNotBuilt)
}

// TestRefinementStable re-runs the refinement loop on a finished
// decomposition and checks that the partition is a fixed point.
func TestRefinementStable(t *testing.T) {
	m := buildDie(t)
	opts := NewOptions()
	opts.RespectedAtomicPropositions = []string{"one"}
	d, err := New[float64](numeric.Float64{}, m, opts)
	require.NoError(t, err)
	require.NoError(t, d.Compute())

	before := d.partition.NumBlocks()
	d.refine()
	assert.Equal(t, before, d.partition.NumBlocks())
}

// TestSignatureStability checks the bisimulation post-condition directly:
// states in the same block move identical mass into every block.
func TestSignatureStability(t *testing.T) {
	m := buildDie(t)
	opts := NewOptions()
	opts.RespectedAtomicPropositions = []string{"one"}
	d, err := Decompose[float64](numeric.Float64{}, m, opts)
	require.NoError(t, err)

	massInto := func(s, block int) float64 {
		total := 0.0
		for _, e := range m.Transitions().Row(s) {
			if d.BlockOf(e.Column) == block {
				total += e.Value
			}
		}
		return total
	}
	for _, members := range d.Blocks() {
		for target := 0; target < d.NumBlocks(); target++ {
			want := massInto(members[0], target)
			for _, s := range members[1:] {
				assert.Equal(t, want, massInto(s, target),
					"state %d disagrees with block on mass into block %d", s, target)
			}
		}
	}
}

func TestTimings(t *testing.T) {
	m := buildDie(t)
	d, err := Decompose[float64](numeric.Float64{}, m, NewOptions())
	require.NoError(t, err)

	tm := d.Timings()
	assert.Greater(t, tm.Refinements, 0)
	assert.Greater(t, tm.Total, time.Duration(0))
	assert.NotEmpty(t, tm.String())
}

func TestMdpStrong(t *testing.T) {
	b := model.NewGroupedMatrixBuilder[float64](4)
	b.NewRowGroup() // state 0
	b.AddRow(model.Entry[float64]{Column: 2, Value: 1})
	b.AddRow(model.Entry[float64]{Column: 3, Value: 1})
	b.NewRowGroup() // state 1, same choices in the other order
	b.AddRow(model.Entry[float64]{Column: 3, Value: 1})
	b.AddRow(model.Entry[float64]{Column: 2, Value: 1})
	b.NewRowGroup() // state 2
	b.AddRow(model.Entry[float64]{Column: 2, Value: 1})
	b.NewRowGroup() // state 3
	b.AddRow(model.Entry[float64]{Column: 3, Value: 1})

	l := model.NewLabeling(4)
	l.AddToState(model.InitLabel, 0)
	l.AddToState("goal", 2)
	m := model.New(model.MDP, b.Build(), l)

	d, err := Decompose[float64](numeric.Float64{}, m, NewOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, d.NumBlocks())
	assert.Equal(t, d.BlockOf(0), d.BlockOf(1))

	q, err := d.Quotient()
	require.NoError(t, err)
	assert.Equal(t, model.MDP, q.Kind())
	assert.Equal(t, 3, q.NumberOfStates())

	start, end := q.Transitions().RowGroup(d.BlockOf(0))
	assert.Equal(t, 2, end-start)
}

func TestMdpWeakRejected(t *testing.T) {
	b := model.NewGroupedMatrixBuilder[float64](1)
	b.NewRowGroup()
	b.AddRow(model.Entry[float64]{Column: 0, Value: 1})
	m := model.New(model.MDP, b.Build(), model.NewLabeling(1))

	opts := NewOptions()
	opts.Type = Weak
	_, err := New[float64](numeric.Float64{}, m, opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

// Equivalent choices of a representative collapse to a single quotient
// choice.
func TestMdpChoiceDedup(t *testing.T) {
	b := model.NewGroupedMatrixBuilder[float64](2)
	b.NewRowGroup() // state 0, two identical choices
	b.AddRow(model.Entry[float64]{Column: 1, Value: 1})
	b.AddRow(model.Entry[float64]{Column: 1, Value: 1})
	b.NewRowGroup() // state 1
	b.AddRow(model.Entry[float64]{Column: 1, Value: 1})

	l := model.NewLabeling(2)
	l.AddToState("goal", 1)
	m := model.New(model.MDP, b.Build(), l)

	d, err := Decompose[float64](numeric.Float64{}, m, NewOptions())
	require.NoError(t, err)
	q, err := d.Quotient()
	require.NoError(t, err)

	start, end := q.Transitions().RowGroup(d.BlockOf(0))
	assert.Equal(t, 1, end-start)
}

// Per-target totals agree for every single target here; only the whole
// per-choice distributions tell the two states apart. The choice sets are
// the two 3x3 Latin squares over the absorbing targets, so no choice of one
// state matches any choice of the other.
func TestMdpLatinSquareChoices(t *testing.T) {
	choices := [2][3][3]float64{
		{{0.1, 0.2, 0.7}, {0.2, 0.7, 0.1}, {0.7, 0.1, 0.2}},
		{{0.1, 0.7, 0.2}, {0.7, 0.2, 0.1}, {0.2, 0.1, 0.7}},
	}
	b := model.NewGroupedMatrixBuilder[float64](5)
	for s := 0; s < 2; s++ {
		b.NewRowGroup()
		for _, c := range choices[s] {
			b.AddRow(
				model.Entry[float64]{Column: 2, Value: c[0]},
				model.Entry[float64]{Column: 3, Value: c[1]},
				model.Entry[float64]{Column: 4, Value: c[2]})
		}
	}
	for s := 2; s <= 4; s++ {
		b.NewRowGroup()
		b.AddRow(model.Entry[float64]{Column: s, Value: 1})
	}

	l := model.NewLabeling(5)
	l.AddToState("red", 2)
	l.AddToState("green", 3)
	l.AddToState("blue", 4)
	m := model.New(model.MDP, b.Build(), l)

	d, err := Decompose[float64](numeric.Float64{}, m, NewOptions())
	require.NoError(t, err)

	assert.Equal(t, 5, d.NumBlocks())
	assert.NotEqual(t, d.BlockOf(0), d.BlockOf(1))
}

func TestCtmcWeakRejected(t *testing.T) {
	b := model.NewMatrixBuilder[float64](2)
	b.AddRow(model.Entry[float64]{Column: 1, Value: 3})
	b.AddRow(model.Entry[float64]{Column: 1, Value: 1})
	m := model.New(model.CTMC, b.Build(), model.NewLabeling(2))

	opts := NewOptions()
	opts.Type = Weak
	_, err := New[float64](numeric.Float64{}, m, opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestCtmcRates(t *testing.T) {
	b := model.NewMatrixBuilder[float64](3)
	b.AddRow(model.Entry[float64]{Column: 2, Value: 3})
	b.AddRow(model.Entry[float64]{Column: 2, Value: 3})
	b.AddRow(model.Entry[float64]{Column: 2, Value: 1})

	l := model.NewLabeling(3)
	l.AddToState("down", 2)
	m := model.New(model.CTMC, b.Build(), l)

	d, err := Decompose[float64](numeric.Float64{}, m, NewOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, d.NumBlocks())
	assert.Equal(t, d.BlockOf(0), d.BlockOf(1))

	q, err := d.Quotient()
	require.NoError(t, err)
	assert.Equal(t, model.CTMC, q.Kind())
	row := q.Transitions().Row(d.BlockOf(0))
	require.Len(t, row, 1)
	assert.Equal(t, 3.0, row[0].Value)
}
