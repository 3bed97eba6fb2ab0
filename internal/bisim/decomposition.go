// Package bisim computes bisimulation quotients of sparse probabilistic
// models by signature-based partition refinement. A decomposition starts
// from an initial partition that separates states any preserved property
// could tell apart, then repeatedly splits blocks whose states disagree on
// their aggregated transition mass into a splitter block, until the
// partition is stable. The resulting blocks are the equivalence classes; the
// quotient model has one state per block.
package bisim

import (
	"fmt"
	"sort"
	"time"

	"github.com/quotientlab/quotient/internal/bitset"
	"github.com/quotientlab/quotient/internal/logic"
	"github.com/quotientlab/quotient/internal/model"
	"github.com/quotientlab/quotient/internal/numeric"
	"github.com/quotientlab/quotient/internal/prop"
)

// Timings records where a decomposition spent its time.
type Timings struct {
	InitialPartition time.Duration
	Refinement       time.Duration
	Extraction       time.Duration
	Quotient         time.Duration
	Total            time.Duration

	// Refinements counts the splitter iterations of the refinement loop.
	Refinements int
}

func (t Timings) String() string {
	return fmt.Sprintf(
		"initial partition: %v, refinement: %v (%d iterations), extraction: %v, quotient: %v, total: %v",
		t.InitialPartition, t.Refinement, t.Refinements, t.Extraction, t.Quotient, t.Total)
}

// Decomposition computes the coarsest bisimulation partition for one model
// under fixed options, and optionally the quotient model.
type Decomposition[V any] struct {
	field    numeric.Field[V]
	model    *model.Model[V]
	backward *model.SparseMatrix[V]
	options  Options

	partition *Partition
	blocks    [][]int      // extracted blocks, states ascending
	handles   []BlockIndex // arena handle per extracted block
	toBlock   []int        // extracted block id per state
	quotient  *model.Model[V]
	timings   Timings
}

// New validates the options against the model and prepares a decomposition.
// Nothing is computed yet.
func New[V any](field numeric.Field[V], m *model.Model[V], opts Options) (*Decomposition[V], error) {
	if opts.Type == Weak && opts.Bounded {
		return nil, fmt.Errorf("%w: weak bisimulation cannot preserve step-bounded properties", ErrInvalidOptions)
	}
	if opts.Type == Weak && m.Kind() != model.DTMC {
		return nil, fmt.Errorf("%w: weak bisimulation is only supported for discrete-time Markov chains", ErrInvalidOptions)
	}
	if opts.MeasureDrivenInitialPartition {
		if opts.PhiStates == nil || opts.PsiStates == nil {
			return nil, fmt.Errorf("%w: measure-driven initial partition requires phi and psi state sets", ErrInvalidOptions)
		}
		if !m.Kind().Deterministic() && opts.Optimality == nil {
			return nil, fmt.Errorf("%w: measure-driven initial partition on a nondeterministic model requires an optimization direction", ErrInvalidOptions)
		}
	}
	if opts.KeepRewards && m.HasRewardModel() {
		_, rm, err := m.UniqueRewardModel()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		if !rm.HasOnlyStateRewards() {
			return nil, fmt.Errorf("%w: only state rewards can be preserved", ErrInvalidOptions)
		}
	}
	if opts.RespectedAtomicPropositions == nil {
		opts.RespectedAtomicPropositions = m.Labeling().Labels()
		sort.Strings(opts.RespectedAtomicPropositions)
	}
	return &Decomposition[V]{
		field:    field,
		model:    m,
		backward: m.BackwardTransitions(),
		options:  opts,
	}, nil
}

// Decompose validates, computes and returns the decomposition in one call.
func Decompose[V any](field numeric.Field[V], m *model.Model[V], opts Options) (*Decomposition[V], error) {
	d, err := New(field, m, opts)
	if err != nil {
		return nil, err
	}
	if err := d.Compute(); err != nil {
		return nil, err
	}
	return d, nil
}

// Compute runs the decomposition: initial partition, refinement to a fixed
// point, block extraction, and quotient construction when enabled.
func (d *Decomposition[V]) Compute() error {
	total := time.Now()

	start := time.Now()
	var err error
	if d.options.MeasureDrivenInitialPartition {
		err = d.initMeasureDrivenPartition()
	} else {
		err = d.initLabelBasedPartition()
	}
	if err != nil {
		return err
	}
	d.timings.InitialPartition = time.Since(start)

	start = time.Now()
	d.refine()
	d.timings.Refinement = time.Since(start)

	start = time.Now()
	d.extractBlocks()
	d.timings.Extraction = time.Since(start)

	if d.options.BuildQuotient {
		start = time.Now()
		if err := d.buildQuotient(); err != nil {
			return err
		}
		d.timings.Quotient = time.Since(start)
	}
	d.timings.Total = time.Since(total)
	return nil
}

// Blocks returns the extracted blocks. Block ids index this slice; states
// within a block are ascending.
func (d *Decomposition[V]) Blocks() [][]int { return d.blocks }

// NumBlocks returns the number of equivalence classes.
func (d *Decomposition[V]) NumBlocks() int { return len(d.blocks) }

// BlockOf returns the extracted block id of a state.
func (d *Decomposition[V]) BlockOf(state int) int { return d.toBlock[state] }

// Quotient returns the quotient model, or ErrQuotientNotBuilt if quotient
// construction was disabled or Compute has not run.
func (d *Decomposition[V]) Quotient() (*model.Model[V], error) {
	if d.quotient == nil {
		return nil, ErrQuotientNotBuilt
	}
	return d.quotient, nil
}

// Timings returns the phase timing breakdown of the last Compute.
func (d *Decomposition[V]) Timings() Timings { return d.timings }

// initLabelBasedPartition starts from a single block and splits it by every
// respected label, then by state rewards when those are preserved. The init
// label is skipped; initial states need not be separated, the quotient
// re-derives initiality from block membership.
func (d *Decomposition[V]) initLabelBasedPartition() error {
	d.partition = NewPartition(d.model.NumberOfStates())
	for _, label := range d.options.RespectedAtomicPropositions {
		if label == model.InitLabel {
			continue
		}
		set, err := d.model.States(label)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		d.partition.SplitStates(set)
	}
	return d.splitByRewards()
}

// initMeasureDrivenPartition seeds the partition from the prob0/prob1
// precomputation of the preserved until property. When neither step bounds
// nor rewards must survive, the prob0 and prob1 blocks are made absorbing:
// their internal structure cannot influence the preserved measure. With
// bounds or rewards in play only the goal states themselves are grouped and
// nothing is absorbing.
func (d *Decomposition[V]) initMeasureDrivenPartition() error {
	phi, psi := d.options.PhiStates, d.options.PsiStates
	var prob0, prob1 *bitset.BitSet
	if d.model.Kind().Deterministic() {
		prob0, prob1 = prop.Prob01(d.backward, phi, psi)
	} else if *d.options.Optimality == logic.Maximize {
		prob0, prob1 = prop.Prob01Max(d.model.Transitions(), d.backward, phi, psi)
	} else {
		prob0, prob1 = prop.Prob01Min(d.model.Transitions(), d.backward, phi, psi)
	}

	second := prob1
	if d.options.Bounded || d.options.KeepRewards {
		second = psi
	}

	p, zeroBlock, oneBlock := NewSeededPartition(d.model.NumberOfStates(), prob0, second)
	if oneBlock >= 0 && !psi.Empty() {
		rep := psi.First()
		if p.BlockOf(rep) == oneBlock {
			p.SetRepresentative(oneBlock, rep)
		}
	}
	if !d.options.Bounded && !d.options.KeepRewards {
		if zeroBlock >= 0 {
			p.SetAbsorbing(zeroBlock, true)
		}
		if oneBlock >= 0 {
			p.SetAbsorbing(oneBlock, true)
		}
	}
	d.partition = p
	return d.splitByRewards()
}

// splitByRewards separates states with different state rewards when rewards
// are preserved. Validation already guaranteed a unique state-reward-only
// reward model.
func (d *Decomposition[V]) splitByRewards() error {
	if !d.options.KeepRewards || !d.model.HasRewardModel() {
		return nil
	}
	_, rm, err := d.model.UniqueRewardModel()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	rewards := rm.StateRewards()
	d.partition.SplitBy(func(a, b int) int {
		return d.compare(rewards[a], rewards[b])
	})
	return nil
}

func (d *Decomposition[V]) compare(a, b V) int {
	if d.field.Less(a, b) {
		return -1
	}
	if d.field.Less(b, a) {
		return 1
	}
	return 0
}

// refine runs the splitter queue to a fixed point. Every initial block
// starts out as a splitter; smaller splitters are processed first. Whenever
// a block splits, all of its sub-blocks become splitters again, including
// sub-blocks of a block that was already queued, so no pending work is lost.
func (d *Decomposition[V]) refine() {
	p := d.partition
	queue := make([]BlockIndex, 0, p.NumBlocks())
	enqueue := func(b BlockIndex) {
		if !p.IsSplitter(b) {
			p.SetSplitter(b, true)
			queue = append(queue, b)
		}
	}
	for _, b := range p.LiveBlocks() {
		enqueue(b)
	}

	for len(queue) > 0 {
		// Retired blocks linger in the queue; their sub-blocks were
		// re-enqueued at split time.
		sort.SliceStable(queue, func(i, j int) bool {
			return p.Size(queue[i]) > p.Size(queue[j])
		})
		splitter := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if !p.Alive(splitter) {
			continue
		}
		p.SetSplitter(splitter, false)
		d.timings.Refinements++
		d.refineBySplitter(splitter, enqueue)
	}
}

// refineBySplitter splits every block whose states disagree on their
// transition mass into the splitter.
func (d *Decomposition[V]) refineBySplitter(splitter BlockIndex, enqueue func(BlockIndex)) {
	if d.model.Kind().Deterministic() {
		d.refineDeterministic(splitter, enqueue)
	} else {
		d.refineNondeterministic(splitter, enqueue)
	}
}

// refineDeterministic computes, for every predecessor of the splitter, the
// total mass it moves into the splitter, then splits each predecessor block
// by that signature. For weak bisimulation the signature is the mass into
// the splitter conditioned on leaving the own block, both closed over the
// stutter steps inside it; states that cannot leave their block at all form
// their own signature class.
func (d *Decomposition[V]) refineDeterministic(splitter BlockIndex, enqueue func(BlockIndex)) {
	p := d.partition
	splitterStates := append([]int(nil), p.States(splitter)...)

	mass := make(map[int]V, len(splitterStates))
	marked := make(map[int]bool, len(splitterStates))
	for _, t := range splitterStates {
		for _, e := range d.backward.Row(t) {
			marked[e.Column] = true
			if prev, ok := mass[e.Column]; ok {
				mass[e.Column] = d.field.Add(prev, e.Value)
			} else {
				mass[e.Column] = e.Value
			}
		}
	}

	for _, b := range d.affectedBlocks(marked) {
		if d.options.Type == Weak {
			if b == splitter {
				// Mass into the own block is silent, not a signature.
				continue
			}
			d.splitBlockWeak(b, mass, enqueue)
		} else {
			d.splitBlockStrong(b, mass, enqueue)
		}
	}
}

// affectedBlocks returns the live non-absorbing blocks containing at least
// one marked state, in allocation order.
func (d *Decomposition[V]) affectedBlocks(marked map[int]bool) []BlockIndex {
	p := d.partition
	seen := make(map[BlockIndex]bool)
	for s := range marked {
		seen[p.BlockOf(s)] = true
	}
	var out []BlockIndex
	for _, b := range p.LiveBlocks() {
		if seen[b] && !p.IsAbsorbing(b) {
			out = append(out, b)
		}
	}
	return out
}

func (d *Decomposition[V]) splitBlockStrong(b BlockIndex, mass map[int]V, enqueue func(BlockIndex)) {
	zero := d.field.Zero()
	sig := func(s int) V {
		if v, ok := mass[s]; ok {
			return v
		}
		return zero
	}
	newBlocks := d.partition.SplitBlockBy(b, func(x, y int) int {
		return d.compare(sig(x), sig(y))
	})
	for _, nb := range newBlocks {
		enqueue(nb)
	}
}

// splitBlockWeak splits b by the probability of eventually moving into the
// splitter conditioned on leaving b, where leaving may take any number of
// stutter steps inside b first. Divergent states, which cannot reach an exit
// of b at all, stay together regardless of the splitter.
func (d *Decomposition[V]) splitBlockWeak(b BlockIndex, mass map[int]V, enqueue func(BlockIndex)) {
	cond, divergent := d.weakConditionals(b, mass)

	newBlocks := d.partition.SplitBlockBy(b, func(x, y int) int {
		switch {
		case divergent[x] && divergent[y]:
			return 0
		case divergent[x]:
			return -1
		case divergent[y]:
			return 1
		default:
			return d.compare(cond[x], cond[y])
		}
	})
	for _, nb := range newBlocks {
		enqueue(nb)
	}
}

// weakConditionals computes for every state of b the probability of leaving
// b into the splitter divided by the probability of leaving b at all. Both
// close over the in-block stutter steps: the one-step quantities seed linear
// systems x = rhs + P·x over b's internal transitions. States that cannot
// reach an exit of b solve nothing and are reported as divergent instead.
func (d *Decomposition[V]) weakConditionals(b BlockIndex, mass map[int]V) (map[int]V, map[int]bool) {
	states := d.partition.States(b)
	zero := d.field.Zero()

	pos := make(map[int]int, len(states))
	for i, s := range states {
		pos[s] = i
	}

	// One-step exit mass, one-step splitter mass, and in-block edges; edge
	// columns are positions within states.
	exit := make([]V, len(states))
	into := make([]V, len(states))
	inner := make([][]model.Entry[V], len(states))
	preds := make([][]int, len(states))
	for i, s := range states {
		exit[i] = zero
		into[i] = zero
		if v, ok := mass[s]; ok {
			into[i] = v
		}
		for _, e := range d.model.Transitions().Row(s) {
			if j, ok := pos[e.Column]; ok {
				inner[i] = append(inner[i], model.Entry[V]{Column: j, Value: e.Value})
				preds[j] = append(preds[j], i)
			} else {
				exit[i] = d.field.Add(exit[i], e.Value)
			}
		}
	}

	// Backward reachability of the exits over in-block edges; everything
	// unreached is divergent.
	reach := make([]bool, len(states))
	var stack []int
	for i := range states {
		if !d.field.IsZero(exit[i]) {
			reach[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, i := range preds[j] {
			if !reach[i] {
				reach[i] = true
				stack = append(stack, i)
			}
		}
	}

	leave := d.solveInner(inner, reach, exit)
	win := d.solveInner(inner, reach, into)

	cond := make(map[int]V, len(states))
	divergent := make(map[int]bool)
	for i, s := range states {
		if !reach[i] {
			divergent[s] = true
			continue
		}
		cond[s] = d.field.Div(win[i], leave[i])
	}
	return cond, divergent
}

// solveInner solves x = rhs + P·x for the reachable positions, where P holds
// the in-block transitions. Without in-block edges among reachable states the
// right-hand side already is the solution; otherwise the dense system is
// eliminated directly, which stays exact for rational values. Restricted to
// states that can reach an exit the system is non-singular: some mass always
// escapes. Edges into divergent states contribute nothing and are dropped.
func (d *Decomposition[V]) solveInner(inner [][]model.Entry[V], reach []bool, rhs []V) []V {
	zero := d.field.Zero()
	one := d.field.One()

	idx := make([]int, len(reach))
	var rows []int
	for i, r := range reach {
		if r {
			idx[i] = len(rows)
			rows = append(rows, i)
		}
	}
	out := make([]V, len(reach))
	for i := range out {
		out[i] = zero
	}
	if len(rows) == 0 {
		return out
	}

	hasInner := false
	for _, i := range rows {
		for _, e := range inner[i] {
			if reach[e.Column] {
				hasInner = true
			}
		}
	}
	if !hasInner {
		for _, i := range rows {
			out[i] = rhs[i]
		}
		return out
	}

	n := len(rows)
	a := make([][]V, n)
	x := make([]V, n)
	for k, i := range rows {
		row := make([]V, n)
		for j := range row {
			row[j] = zero
		}
		row[k] = one
		for _, e := range inner[i] {
			if reach[e.Column] {
				j := idx[e.Column]
				row[j] = d.field.Sub(row[j], e.Value)
			}
		}
		a[k] = row
		x[k] = rhs[i]
	}

	for col := 0; col < n; col++ {
		pivot := -1
		for r := col; r < n; r++ {
			if !d.field.IsZero(a[r][col]) {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			continue
		}
		a[col], a[pivot] = a[pivot], a[col]
		x[col], x[pivot] = x[pivot], x[col]
		for r := 0; r < n; r++ {
			if r == col || d.field.IsZero(a[r][col]) {
				continue
			}
			f := d.field.Div(a[r][col], a[col][col])
			for c := col; c < n; c++ {
				a[r][c] = d.field.Sub(a[r][c], d.field.Mul(f, a[col][c]))
			}
			x[r] = d.field.Sub(x[r], d.field.Mul(f, x[col]))
		}
	}
	for k, i := range rows {
		out[i] = d.field.Div(x[k], a[k][k])
	}
	return out
}

// blockMass is one entry of an aggregated choice distribution: the total
// mass a single choice moves into one block of the current partition.
type blockMass[V any] struct {
	block BlockIndex
	value V
}

// refineNondeterministic splits the predecessors of the splitter by the set
// of their full per-choice distributions over the current partition: two
// states stay together only if every choice of one is matched by a choice of
// the other carrying the same aggregated distribution. Per-splitter totals
// alone would be blind to how a single choice spreads its mass across
// several blocks at once.
func (d *Decomposition[V]) refineNondeterministic(splitter BlockIndex, enqueue func(BlockIndex)) {
	p := d.partition
	forward := d.model.Transitions()
	splitterStates := append([]int(nil), p.States(splitter)...)

	// Backward columns index forward choice rows here.
	marked := make(map[int]bool)
	for _, t := range splitterStates {
		for _, e := range d.backward.Row(t) {
			marked[forward.GroupOfRow(e.Column)] = true
		}
	}

	sigs := make(map[int][][]blockMass[V], len(marked))
	sig := func(s int) [][]blockMass[V] {
		if v, ok := sigs[s]; ok {
			return v
		}
		v := d.choiceDistributions(s)
		sigs[s] = v
		return v
	}

	for _, b := range d.affectedBlocks(marked) {
		newBlocks := p.SplitBlockBy(b, func(x, y int) int {
			return d.compareSignatures(sig(x), sig(y))
		})
		for _, nb := range newBlocks {
			enqueue(nb)
		}
	}
}

// choiceDistributions aggregates every choice row of s by the block of its
// target states and returns the distinct distributions, sorted. Identical
// choices carry no extra information and collapse.
func (d *Decomposition[V]) choiceDistributions(s int) [][]blockMass[V] {
	forward := d.model.Transitions()
	start, end := forward.RowGroup(s)
	out := make([][]blockMass[V], 0, end-start)
	for row := start; row < end; row++ {
		sums := make(map[BlockIndex]V)
		for _, e := range forward.Row(row) {
			tb := d.partition.BlockOf(e.Column)
			if prev, ok := sums[tb]; ok {
				sums[tb] = d.field.Add(prev, e.Value)
			} else {
				sums[tb] = e.Value
			}
		}
		dist := make([]blockMass[V], 0, len(sums))
		for tb, v := range sums {
			dist = append(dist, blockMass[V]{block: tb, value: v})
		}
		sort.Slice(dist, func(i, j int) bool { return dist[i].block < dist[j].block })
		out = append(out, dist)
	}
	sort.Slice(out, func(i, j int) bool { return d.compareDistributions(out[i], out[j]) < 0 })
	dedup := out[:0]
	for i, dist := range out {
		if i == 0 || d.compareDistributions(dedup[len(dedup)-1], dist) != 0 {
			dedup = append(dedup, dist)
		}
	}
	return dedup
}

func (d *Decomposition[V]) compareDistributions(a, b []blockMass[V]) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].block != b[i].block {
			if a[i].block < b[i].block {
				return -1
			}
			return 1
		}
		if c := d.compare(a[i].value, b[i].value); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func (d *Decomposition[V]) compareSignatures(a, b [][]blockMass[V]) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := d.compareDistributions(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// extractBlocks freezes the live blocks into dense block ids with sorted
// member lists.
func (d *Decomposition[V]) extractBlocks() {
	p := d.partition
	live := p.LiveBlocks()
	d.blocks = make([][]int, 0, len(live))
	d.handles = make([]BlockIndex, 0, len(live))
	d.toBlock = make([]int, p.NumStates())
	for _, b := range live {
		p.SortBlock(b)
		states := append([]int(nil), p.States(b)...)
		for _, s := range states {
			d.toBlock[s] = len(d.blocks)
		}
		d.blocks = append(d.blocks, states)
		d.handles = append(d.handles, b)
	}
}
