package model

// Entry is a single column/value pair of a sparse matrix row.
type Entry[V any] struct {
	Column int
	Value  V
}

// SparseMatrix is a compressed-row matrix over the value type V.
//
// For deterministic models every row is one state. For nondeterministic
// models rows are choices and consecutive rows are grouped per state; the
// group boundaries carry the state-to-choice mapping.
type SparseMatrix[V any] struct {
	columnCount int
	rowStart    []int // len = rows+1
	rowGroups   []int // len = groups+1, nil when ungrouped
	entries     []Entry[V]
}

// RowCount returns the number of rows (choices, for grouped matrices).
func (m *SparseMatrix[V]) RowCount() int { return len(m.rowStart) - 1 }

// ColumnCount returns the number of columns.
func (m *SparseMatrix[V]) ColumnCount() int { return m.columnCount }

// EntryCount returns the number of stored entries.
func (m *SparseMatrix[V]) EntryCount() int { return len(m.entries) }

// Row returns the entries of row i. The slice aliases the matrix and must
// not be mutated.
func (m *SparseMatrix[V]) Row(i int) []Entry[V] {
	return m.entries[m.rowStart[i]:m.rowStart[i+1]]
}

// HasRowGroups reports whether rows are grouped into per-state choices.
func (m *SparseMatrix[V]) HasRowGroups() bool { return m.rowGroups != nil }

// RowGroupCount returns the number of row groups. Ungrouped matrices have
// one implicit group per row.
func (m *SparseMatrix[V]) RowGroupCount() int {
	if m.rowGroups == nil {
		return m.RowCount()
	}
	return len(m.rowGroups) - 1
}

// RowGroup returns the half-open row range [start, end) of group g.
func (m *SparseMatrix[V]) RowGroup(g int) (start, end int) {
	if m.rowGroups == nil {
		return g, g + 1
	}
	return m.rowGroups[g], m.rowGroups[g+1]
}

// GroupOfRow returns the group a row belongs to.
func (m *SparseMatrix[V]) GroupOfRow(row int) int {
	if m.rowGroups == nil {
		return row
	}
	// Binary search over the group boundaries.
	lo, hi := 0, len(m.rowGroups)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if m.rowGroups[mid+1] <= row {
			lo = mid + 1
		} else if m.rowGroups[mid] > row {
			hi = mid
		} else {
			return mid
		}
	}
	return lo
}

// Transpose returns the reverse adjacency of the matrix: entry (r, c, v)
// becomes an entry (c, r, v). Row grouping is dropped; the transposed rows
// of a grouped matrix index the original choice rows.
func (m *SparseMatrix[V]) Transpose() *SparseMatrix[V] {
	rows := m.columnCount
	rowStart := make([]int, rows+1)
	for _, e := range m.entries {
		rowStart[e.Column+1]++
	}
	for i := 1; i <= rows; i++ {
		rowStart[i] += rowStart[i-1]
	}
	entries := make([]Entry[V], len(m.entries))
	next := make([]int, rows)
	copy(next, rowStart[:rows])
	for r := 0; r < m.RowCount(); r++ {
		for _, e := range m.Row(r) {
			entries[next[e.Column]] = Entry[V]{Column: r, Value: e.Value}
			next[e.Column]++
		}
	}
	return &SparseMatrix[V]{
		columnCount: m.RowCount(),
		rowStart:    rowStart,
		entries:     entries,
	}
}

// MatrixBuilder assembles a SparseMatrix row by row.
type MatrixBuilder[V any] struct {
	columnCount int
	grouped     bool
	rowStart    []int
	rowGroups   []int
	entries     []Entry[V]
}

// NewMatrixBuilder returns a builder for an ungrouped matrix with the given
// number of columns.
func NewMatrixBuilder[V any](columns int) *MatrixBuilder[V] {
	return &MatrixBuilder[V]{
		columnCount: columns,
		rowStart:    []int{0},
	}
}

// NewGroupedMatrixBuilder returns a builder for a matrix with per-state row
// groups. Call NewRowGroup before adding the rows of each group.
func NewGroupedMatrixBuilder[V any](columns int) *MatrixBuilder[V] {
	return &MatrixBuilder[V]{
		columnCount: columns,
		grouped:     true,
		rowStart:    []int{0},
		rowGroups:   []int{},
	}
}

// NewRowGroup opens the next row group at the current row.
func (b *MatrixBuilder[V]) NewRowGroup() {
	b.rowGroups = append(b.rowGroups, len(b.rowStart)-1)
}

// AddRow appends a row with the given entries. Entries must be sorted by
// column; this is not rechecked.
func (b *MatrixBuilder[V]) AddRow(entries ...Entry[V]) {
	b.entries = append(b.entries, entries...)
	b.rowStart = append(b.rowStart, len(b.entries))
}

// Build finalizes the matrix. The builder must not be reused.
func (b *MatrixBuilder[V]) Build() *SparseMatrix[V] {
	m := &SparseMatrix[V]{
		columnCount: b.columnCount,
		rowStart:    b.rowStart,
		entries:     b.entries,
	}
	if b.grouped {
		m.rowGroups = append(b.rowGroups, len(b.rowStart)-1)
	}
	return m
}
