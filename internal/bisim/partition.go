package bisim

import (
	"sort"

	"github.com/quotientlab/quotient/internal/bitset"
)

// BlockIndex is a stable handle into the partition's block arena. Handles
// stay valid after their block is retired by a split; only live blocks take
// part in further refinement.
type BlockIndex int

type block struct {
	begin, end int // segment [begin, end) of the partition's state array
	alive      bool

	splitter       bool
	absorbing      bool
	representative int // -1 when unset
}

// Partition maintains a partition of the states 0..n-1 into blocks. Blocks
// live in an arena and occupy contiguous segments of a single permuted state
// array, so splitting a block is sorting its segment and cutting it.
type Partition struct {
	arena     []block
	states    []int        // permutation of 0..n-1, grouped by block
	positions []int        // positions[s] is the index of s in states
	stateTo   []BlockIndex // stateTo[s] is the live block containing s
}

// NewPartition returns the trivial partition with all n states in one block.
func NewPartition(n int) *Partition {
	p := &Partition{
		states:    make([]int, n),
		positions: make([]int, n),
		stateTo:   make([]BlockIndex, n),
	}
	for i := range p.states {
		p.states[i] = i
		p.positions[i] = i
	}
	p.alloc(0, n)
	return p
}

// NewSeededPartition returns a partition with up to three blocks: the states
// of first, the states of second, and the rest, in that segment order. Empty
// groups get no block; the corresponding returned handle is -1. The two sets
// must be disjoint.
func NewSeededPartition(n int, first, second *bitset.BitSet) (p *Partition, firstBlock, secondBlock BlockIndex) {
	p = &Partition{
		states:    make([]int, 0, n),
		positions: make([]int, n),
		stateTo:   make([]BlockIndex, n),
	}
	firstBlock, secondBlock = -1, -1

	appendGroup := func(member func(int) bool) BlockIndex {
		begin := len(p.states)
		for s := 0; s < n; s++ {
			if member(s) {
				p.states = append(p.states, s)
			}
		}
		if len(p.states) == begin {
			return -1
		}
		return p.alloc(begin, len(p.states))
	}

	firstBlock = appendGroup(first.Get)
	secondBlock = appendGroup(second.Get)
	appendGroup(func(s int) bool { return !first.Get(s) && !second.Get(s) })

	for i, s := range p.states {
		p.positions[s] = i
	}
	return p, firstBlock, secondBlock
}

// alloc creates a live block over [begin, end) and wires stateTo for its
// members.
func (p *Partition) alloc(begin, end int) BlockIndex {
	bi := BlockIndex(len(p.arena))
	p.arena = append(p.arena, block{begin: begin, end: end, alive: true, representative: -1})
	for i := begin; i < end; i++ {
		p.stateTo[p.states[i]] = bi
	}
	return bi
}

// NumStates returns the number of partitioned states.
func (p *Partition) NumStates() int { return len(p.states) }

// NumBlocks returns the number of live blocks.
func (p *Partition) NumBlocks() int {
	n := 0
	for i := range p.arena {
		if p.arena[i].alive {
			n++
		}
	}
	return n
}

// LiveBlocks returns the handles of all live blocks in allocation order.
func (p *Partition) LiveBlocks() []BlockIndex {
	out := make([]BlockIndex, 0, len(p.arena))
	for i := range p.arena {
		if p.arena[i].alive {
			out = append(out, BlockIndex(i))
		}
	}
	return out
}

// BlockOf returns the live block containing the state.
func (p *Partition) BlockOf(state int) BlockIndex { return p.stateTo[state] }

// Size returns the number of states in the block.
func (p *Partition) Size(b BlockIndex) int { return p.arena[b].end - p.arena[b].begin }

// States returns the block's states as a view into the partition's state
// array. The view is invalidated by any split.
func (p *Partition) States(b BlockIndex) []int {
	return p.states[p.arena[b].begin:p.arena[b].end]
}

// Alive reports whether the block has not been retired by a split.
func (p *Partition) Alive(b BlockIndex) bool { return p.arena[b].alive }

// IsSplitter reports whether the block is queued as a splitter.
func (p *Partition) IsSplitter(b BlockIndex) bool { return p.arena[b].splitter }

// SetSplitter marks or unmarks the block as a queued splitter.
func (p *Partition) SetSplitter(b BlockIndex, v bool) { p.arena[b].splitter = v }

// IsAbsorbing reports whether the block is exempt from refinement and gets
// a self-loop in the quotient.
func (p *Partition) IsAbsorbing(b BlockIndex) bool { return p.arena[b].absorbing }

// SetAbsorbing marks the block as absorbing.
func (p *Partition) SetAbsorbing(b BlockIndex, v bool) { p.arena[b].absorbing = v }

// Representative returns the state standing in for the block in the
// quotient, defaulting to the block's smallest state when none was pinned.
func (p *Partition) Representative(b BlockIndex) int {
	if r := p.arena[b].representative; r >= 0 {
		return r
	}
	rep := p.states[p.arena[b].begin]
	for _, s := range p.States(b) {
		if s < rep {
			rep = s
		}
	}
	return rep
}

// SetRepresentative pins the block's representative state.
func (p *Partition) SetRepresentative(b BlockIndex, state int) {
	p.arena[b].representative = state
}

// SortBlock orders the block's states ascending, for reproducible output.
func (p *Partition) SortBlock(b BlockIndex) {
	seg := p.States(b)
	sort.Ints(seg)
	for i, s := range seg {
		p.positions[s] = p.arena[b].begin + i
	}
}

// SplitBlockBy sorts the block's states by the three-way comparator and cuts
// the segment at every point where adjacent states compare unequal. If all
// states compare equal the block is left intact and nil is returned;
// otherwise the block is retired and the new sub-block handles are returned
// in segment order.
func (p *Partition) SplitBlockBy(b BlockIndex, cmp func(a, b int) int) []BlockIndex {
	begin, end := p.arena[b].begin, p.arena[b].end
	seg := p.states[begin:end]
	sort.SliceStable(seg, func(i, j int) bool { return cmp(seg[i], seg[j]) < 0 })
	for i, s := range seg {
		p.positions[s] = begin + i
	}

	cuts := []int{begin}
	for i := 1; i < len(seg); i++ {
		if cmp(seg[i-1], seg[i]) != 0 {
			cuts = append(cuts, begin+i)
		}
	}
	if len(cuts) == 1 {
		return nil
	}
	cuts = append(cuts, end)

	p.arena[b].alive = false
	out := make([]BlockIndex, 0, len(cuts)-1)
	for i := 0; i+1 < len(cuts); i++ {
		out = append(out, p.alloc(cuts[i], cuts[i+1]))
	}
	return out
}

// SplitBy splits every live non-absorbing block by the comparator and
// returns the handles of all newly created sub-blocks.
func (p *Partition) SplitBy(cmp func(a, b int) int) []BlockIndex {
	var created []BlockIndex
	for _, b := range p.LiveBlocks() {
		if p.arena[b].absorbing {
			continue
		}
		created = append(created, p.SplitBlockBy(b, cmp)...)
	}
	return created
}

// SplitStates splits every live non-absorbing block into its members inside
// and outside the given set.
func (p *Partition) SplitStates(set *bitset.BitSet) []BlockIndex {
	return p.SplitBy(func(a, b int) int {
		ia, ib := set.Get(a), set.Get(b)
		switch {
		case ia == ib:
			return 0
		case ia:
			return -1
		default:
			return 1
		}
	})
}
