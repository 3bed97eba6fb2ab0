// Package bitset provides a fixed-length dense bit set used to represent
// sets of model states. State indices are dense, so a word-packed vector is
// both the smallest and the fastest representation for the membership tests
// and sweeps the decomposition performs.
package bitset

import "math/bits"

const wordBits = 64

// BitSet is a fixed-length set of non-negative integers.
type BitSet struct {
	length int
	words  []uint64
}

// New returns an empty bit set holding values in [0, length).
func New(length int) *BitSet {
	return &BitSet{
		length: length,
		words:  make([]uint64, (length+wordBits-1)/wordBits),
	}
}

// Full returns a bit set with every value in [0, length) present.
func Full(length int) *BitSet {
	b := New(length)
	for i := range b.words {
		b.words[i] = ^uint64(0)
	}
	b.clearTail()
	return b
}

// FromIndices returns a bit set containing exactly the given values.
func FromIndices(length int, indices ...int) *BitSet {
	b := New(length)
	for _, i := range indices {
		b.Set(i)
	}
	return b
}

// Len returns the universe size of the set.
func (b *BitSet) Len() int { return b.length }

// Set adds i to the set.
func (b *BitSet) Set(i int) {
	b.words[i/wordBits] |= 1 << (uint(i) % wordBits)
}

// Unset removes i from the set.
func (b *BitSet) Unset(i int) {
	b.words[i/wordBits] &^= 1 << (uint(i) % wordBits)
}

// Get reports whether i is in the set.
func (b *BitSet) Get(i int) bool {
	return b.words[i/wordBits]&(1<<(uint(i)%wordBits)) != 0
}

// Count returns the number of elements in the set.
func (b *BitSet) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether the set has no elements.
func (b *BitSet) Empty() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// First returns the smallest element of the set, or -1 if it is empty.
func (b *BitSet) First() int {
	for i, w := range b.words {
		if w != 0 {
			return i*wordBits + bits.TrailingZeros64(w)
		}
	}
	return -1
}

// Clone returns an independent copy of the set.
func (b *BitSet) Clone() *BitSet {
	c := New(b.length)
	copy(c.words, b.words)
	return c
}

// Equal reports whether both sets have the same universe and elements.
func (b *BitSet) Equal(o *BitSet) bool {
	if b.length != o.length {
		return false
	}
	for i := range b.words {
		if b.words[i] != o.words[i] {
			return false
		}
	}
	return true
}

// And replaces b with the intersection of b and o.
func (b *BitSet) And(o *BitSet) {
	for i := range b.words {
		b.words[i] &= o.words[i]
	}
}

// Or replaces b with the union of b and o.
func (b *BitSet) Or(o *BitSet) {
	for i := range b.words {
		b.words[i] |= o.words[i]
	}
}

// AndNot removes every element of o from b.
func (b *BitSet) AndNot(o *BitSet) {
	for i := range b.words {
		b.words[i] &^= o.words[i]
	}
}

// Not replaces b with its complement within the universe.
func (b *BitSet) Not() {
	for i := range b.words {
		b.words[i] = ^b.words[i]
	}
	b.clearTail()
}

// ForEach calls fn with every element of the set in ascending order.
func (b *BitSet) ForEach(fn func(i int)) {
	for wi, w := range b.words {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			fn(wi*wordBits + bit)
			w &= w - 1
		}
	}
}

// Indices returns the elements of the set in ascending order.
func (b *BitSet) Indices() []int {
	out := make([]int, 0, b.Count())
	b.ForEach(func(i int) { out = append(out, i) })
	return out
}

func (b *BitSet) clearTail() {
	if rem := b.length % wordBits; rem != 0 && len(b.words) > 0 {
		b.words[len(b.words)-1] &= (1 << uint(rem)) - 1
	}
}
