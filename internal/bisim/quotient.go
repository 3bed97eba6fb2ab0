package bisim

import (
	"fmt"
	"sort"

	"github.com/quotientlab/quotient/internal/model"
)

// buildQuotient constructs the quotient model over the extracted blocks.
// Every block contributes the transitions of one representative state,
// aggregated per target block; absorbing blocks get a self-loop of mass one
// instead of their internal structure. Respected labels are taken from the
// representative, the init label from any member, and preserved state
// rewards from the representative.
func (d *Decomposition[V]) buildQuotient() error {
	n := len(d.blocks)
	labeling := model.NewLabeling(n)

	for _, label := range d.options.RespectedAtomicPropositions {
		if label == model.InitLabel {
			continue
		}
		set, err := d.model.States(label)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		labeling.Add(label)
		for qid, h := range d.handles {
			if set.Get(d.partition.Representative(h)) {
				labeling.AddToState(label, qid)
			}
		}
	}
	if d.model.Labeling().Has(model.InitLabel) {
		labeling.Add(model.InitLabel)
		init := d.model.InitialStates()
		for qid, members := range d.blocks {
			for _, s := range members {
				if init.Get(s) {
					labeling.AddToState(model.InitLabel, qid)
					break
				}
			}
		}
	}

	var matrix *model.SparseMatrix[V]
	if d.model.Kind().Deterministic() {
		matrix = d.quotientMatrix(n)
	} else {
		matrix = d.quotientGroupedMatrix(n)
	}

	q := model.New(d.model.Kind(), matrix, labeling)
	if d.options.KeepRewards && d.model.HasRewardModel() {
		name, rm, err := d.model.UniqueRewardModel()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		rewards := make([]V, n)
		for qid, h := range d.handles {
			rewards[qid] = rm.StateReward(d.partition.Representative(h))
		}
		if err := q.AddRewardModel(name, model.NewStateRewardModel(rewards)); err != nil {
			return err
		}
	}
	d.quotient = q
	return nil
}

func (d *Decomposition[V]) quotientMatrix(n int) *model.SparseMatrix[V] {
	builder := model.NewMatrixBuilder[V](n)
	for qid, h := range d.handles {
		if d.partition.IsAbsorbing(h) {
			builder.AddRow(model.Entry[V]{Column: qid, Value: d.field.One()})
			continue
		}
		rep := d.partition.Representative(h)
		if d.options.Type == Weak {
			// Only a member that leaves the block carries the block's
			// conditional exit distribution in one step; a member whose
			// successors all stay inside does not, even at the fixed point.
			rep = d.exitingMember(qid)
			if rep < 0 {
				builder.AddRow(model.Entry[V]{Column: qid, Value: d.field.One()})
				continue
			}
		}
		row := d.aggregateRow(d.model.Transitions().Row(rep))
		if d.options.Type == Weak {
			row = d.conditionRow(qid, row)
		}
		builder.AddRow(row...)
	}
	return builder.Build()
}

// conditionRow rescales an aggregated row to the exit distribution the weak
// quotient carries: the self-block mass is silent and removed, the remainder
// is divided by one minus it.
func (d *Decomposition[V]) conditionRow(qid int, row []model.Entry[V]) []model.Entry[V] {
	silent := d.field.Zero()
	for _, e := range row {
		if e.Column == qid {
			silent = e.Value
			break
		}
	}
	if d.field.IsZero(silent) {
		return row
	}
	if d.field.IsOne(silent) {
		return []model.Entry[V]{{Column: qid, Value: d.field.One()}}
	}
	denom := d.field.Sub(d.field.One(), silent)
	out := make([]model.Entry[V], 0, len(row)-1)
	for _, e := range row {
		if e.Column == qid {
			continue
		}
		out = append(out, model.Entry[V]{Column: e.Column, Value: d.field.Div(e.Value, denom)})
	}
	return out
}

// exitingMember returns a member of the block with one-step mass out of the
// block, or -1 when the block is divergent and cannot leave itself.
func (d *Decomposition[V]) exitingMember(qid int) int {
	for _, s := range d.blocks[qid] {
		for _, e := range d.model.Transitions().Row(s) {
			if d.toBlock[e.Column] != qid {
				return s
			}
		}
	}
	return -1
}

func (d *Decomposition[V]) quotientGroupedMatrix(n int) *model.SparseMatrix[V] {
	forward := d.model.Transitions()
	builder := model.NewGroupedMatrixBuilder[V](n)
	for qid, h := range d.handles {
		builder.NewRowGroup()
		if d.partition.IsAbsorbing(h) {
			builder.AddRow(model.Entry[V]{Column: qid, Value: d.field.One()})
			continue
		}
		rep := d.partition.Representative(h)
		start, end := forward.RowGroup(rep)
		var kept [][]model.Entry[V]
		for row := start; row < end; row++ {
			agg := d.aggregateRow(forward.Row(row))
			if !d.containsRow(kept, agg) {
				kept = append(kept, agg)
				builder.AddRow(agg...)
			}
		}
	}
	return builder.Build()
}

// aggregateRow sums a transition row per target block, ordered by block id.
func (d *Decomposition[V]) aggregateRow(row []model.Entry[V]) []model.Entry[V] {
	sums := make(map[int]V, len(row))
	for _, e := range row {
		tb := d.toBlock[e.Column]
		if prev, ok := sums[tb]; ok {
			sums[tb] = d.field.Add(prev, e.Value)
		} else {
			sums[tb] = e.Value
		}
	}
	cols := make([]int, 0, len(sums))
	for c := range sums {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	out := make([]model.Entry[V], 0, len(cols))
	for _, c := range cols {
		out = append(out, model.Entry[V]{Column: c, Value: sums[c]})
	}
	return out
}

// containsRow reports whether an identical aggregated choice was already
// emitted for the current row group. Equivalent choices would carry no
// information in the quotient.
func (d *Decomposition[V]) containsRow(rows [][]model.Entry[V], row []model.Entry[V]) bool {
	for _, other := range rows {
		if len(other) != len(row) {
			continue
		}
		same := true
		for i := range row {
			if other[i].Column != row[i].Column || !d.field.Equal(other[i].Value, row[i].Value) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}
