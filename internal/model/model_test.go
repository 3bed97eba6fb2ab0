package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T) *Model[float64] {
	t.Helper()

	// 0 -> 1 (0.5), 0 -> 2 (0.5); 1 and 2 absorbing.
	b := NewMatrixBuilder[float64](3)
	b.AddRow(Entry[float64]{Column: 1, Value: 0.5}, Entry[float64]{Column: 2, Value: 0.5})
	b.AddRow(Entry[float64]{Column: 1, Value: 1})
	b.AddRow(Entry[float64]{Column: 2, Value: 1})

	l := NewLabeling(3)
	l.AddToState(InitLabel, 0)
	l.AddToState("left", 1)
	l.AddToState("right", 2)

	return New(DTMC, b.Build(), l)
}

func TestModelBasics(t *testing.T) {
	m := buildChain(t)

	assert.Equal(t, DTMC, m.Kind())
	assert.True(t, m.Kind().Deterministic())
	assert.Equal(t, 3, m.NumberOfStates())
	assert.Equal(t, 4, m.NumberOfTransitions())
	assert.Equal(t, []int{0}, m.InitialStates().Indices())

	left, err := m.States("left")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, left.Indices())

	_, err = m.States("nope")
	assert.Error(t, err)
}

func TestTranspose(t *testing.T) {
	m := buildChain(t)
	back := m.BackwardTransitions()

	assert.Equal(t, 3, back.RowCount())
	assert.Equal(t, m.NumberOfTransitions(), back.EntryCount())

	// Predecessors of state 1 are 0 (0.5) and 1 itself (1.0).
	row := back.Row(1)
	require.Len(t, row, 2)
	assert.Equal(t, 0, row[0].Column)
	assert.Equal(t, 0.5, row[0].Value)
	assert.Equal(t, 1, row[1].Column)
	assert.Equal(t, 1.0, row[1].Value)

	// State 0 has no predecessors.
	assert.Empty(t, back.Row(0))
}

func TestRowGroups(t *testing.T) {
	b := NewGroupedMatrixBuilder[float64](2)
	b.NewRowGroup()
	b.AddRow(Entry[float64]{Column: 0, Value: 1})
	b.AddRow(Entry[float64]{Column: 1, Value: 1})
	b.NewRowGroup()
	b.AddRow(Entry[float64]{Column: 1, Value: 1})
	m := b.Build()

	assert.True(t, m.HasRowGroups())
	assert.Equal(t, 2, m.RowGroupCount())
	assert.Equal(t, 3, m.RowCount())

	start, end := m.RowGroup(0)
	assert.Equal(t, 0, start)
	assert.Equal(t, 2, end)

	assert.Equal(t, 0, m.GroupOfRow(0))
	assert.Equal(t, 0, m.GroupOfRow(1))
	assert.Equal(t, 1, m.GroupOfRow(2))

	// Transposing a grouped matrix indexes original choice rows.
	back := m.Transpose()
	assert.False(t, back.HasRowGroups())
	row := back.Row(1)
	require.Len(t, row, 2)
	assert.Equal(t, 1, row[0].Column)
	assert.Equal(t, 2, row[1].Column)
}

func TestUniqueRewardModel(t *testing.T) {
	m := buildChain(t)
	assert.False(t, m.HasRewardModel())

	_, _, err := m.UniqueRewardModel()
	assert.ErrorIs(t, err, ErrNoUniqueRewardModel)

	require.NoError(t, m.AddRewardModel("steps", NewStateRewardModel([]float64{1, 0, 0})))
	assert.True(t, m.HasUniqueRewardModel())

	name, rm, err := m.UniqueRewardModel()
	require.NoError(t, err)
	assert.Equal(t, "steps", name)
	assert.True(t, rm.HasOnlyStateRewards())
	assert.Equal(t, 1.0, rm.StateReward(0))

	assert.Error(t, m.AddRewardModel("steps", NewStateRewardModel([]float64{0, 0, 0})))

	require.NoError(t, m.AddRewardModel("energy", NewStateRewardModel([]float64{0, 0, 0})))
	assert.False(t, m.HasUniqueRewardModel())
}
