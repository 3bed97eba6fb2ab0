package prop

import (
	"github.com/quotientlab/quotient/internal/bitset"
	"github.com/quotientlab/quotient/internal/model"
)

// Prob01 computes, for a deterministic model, the states satisfying
// "phi until psi" with probability exactly 0 and exactly 1. Only the
// backward matrix is needed.
func Prob01[V any](backward *model.SparseMatrix[V], phi, psi *bitset.BitSet) (prob0, prob1 *bitset.BitSet) {
	identity := func(column int) int { return column }

	// A state has positive probability iff it reaches psi along phi-states.
	greater0 := backwardReach(backward, psi, phi, identity)
	prob0 = greater0.Clone()
	prob0.Not()

	// A state has probability below one iff it can reach a prob-0 state
	// along (phi and not psi)-states.
	allowed := phi.Clone()
	allowed.AndNot(psi)
	less1 := backwardReach(backward, prob0, allowed, identity)
	prob1 = less1.Clone()
	prob1.Not()
	return prob0, prob1
}

// Prob01Max computes the probability-0/1 sets for "phi until psi" under the
// maximizing scheduler of a nondeterministic model. The backward matrix is
// the transpose of the grouped forward matrix, so its columns index forward
// choice rows.
func Prob01Max[V any](forward, backward *model.SparseMatrix[V], phi, psi *bitset.BitSet) (prob0, prob1 *bitset.BitSet) {
	// Max probability is 0 iff no scheduler reaches psi at all.
	greater0 := backwardReach(backward, psi, phi, forward.GroupOfRow)
	prob0 = greater0.Clone()
	prob0.Not()

	prob1 = prob1MaxFixpoint(forward, phi, psi)
	return prob0, prob1
}

// Prob01Min computes the probability-0/1 sets for "phi until psi" under the
// minimizing scheduler of a nondeterministic model.
func Prob01Min[V any](forward, backward *model.SparseMatrix[V], phi, psi *bitset.BitSet) (prob0, prob1 *bitset.BitSet) {
	n := forward.RowGroupCount()

	// Min probability is positive iff every choice keeps the positive
	// region reachable: grow from psi, adding phi-states all of whose
	// choices hit the current set.
	greater0 := psi.Clone()
	for changed := true; changed; {
		changed = false
		for s := 0; s < n; s++ {
			if greater0.Get(s) || !phi.Get(s) {
				continue
			}
			if allChoicesTouch(forward, s, greater0) {
				greater0.Set(s)
				changed = true
			}
		}
	}
	prob0 = greater0.Clone()
	prob0.Not()

	// Min probability is below 1 iff some scheduler reaches a prob-0
	// state along (phi and not psi)-states.
	allowed := phi.Clone()
	allowed.AndNot(psi)
	less1 := backwardReach(backward, prob0, allowed, forward.GroupOfRow)
	prob1 = less1.Clone()
	prob1.Not()
	return prob0, prob1
}

// backwardReach returns the states that reach the target set, where every
// intermediate (non-target) state on the path must be allowed. Targets are
// always included. owner maps a backward-matrix column to the state that
// owns it (the identity for deterministic models, the row-group lookup for
// grouped ones).
func backwardReach[V any](backward *model.SparseMatrix[V], target, allowed *bitset.BitSet, owner func(column int) int) *bitset.BitSet {
	reached := target.Clone()
	stack := target.Indices()
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range backward.Row(s) {
			pred := owner(e.Column)
			if !reached.Get(pred) && allowed.Get(pred) {
				reached.Set(pred)
				stack = append(stack, pred)
			}
		}
	}
	return reached
}

// prob1MaxFixpoint is the standard double fixpoint: start from all states
// and repeatedly shrink to the states having a choice that stays inside the
// candidate set and reaches psi through phi.
func prob1MaxFixpoint[V any](forward *model.SparseMatrix[V], phi, psi *bitset.BitSet) *bitset.BitSet {
	n := forward.RowGroupCount()
	candidate := bitset.Full(n)
	for {
		reach := psi.Clone()
		for changed := true; changed; {
			changed = false
			for s := 0; s < n; s++ {
				if reach.Get(s) || !phi.Get(s) {
					continue
				}
				if someChoiceStaysAndTouches(forward, s, candidate, reach) {
					reach.Set(s)
					changed = true
				}
			}
		}
		if reach.Equal(candidate) {
			return candidate
		}
		candidate = reach
	}
}

func allChoicesTouch[V any](forward *model.SparseMatrix[V], state int, set *bitset.BitSet) bool {
	start, end := forward.RowGroup(state)
	for row := start; row < end; row++ {
		touches := false
		for _, e := range forward.Row(row) {
			if set.Get(e.Column) {
				touches = true
				break
			}
		}
		if !touches {
			return false
		}
	}
	return true
}

func someChoiceStaysAndTouches[V any](forward *model.SparseMatrix[V], state int, stay, touch *bitset.BitSet) bool {
	start, end := forward.RowGroup(state)
	for row := start; row < end; row++ {
		inside := true
		touches := false
		for _, e := range forward.Row(row) {
			if !stay.Get(e.Column) {
				inside = false
				break
			}
			if touch.Get(e.Column) {
				touches = true
			}
		}
		if inside && touches {
			return true
		}
	}
	return false
}
