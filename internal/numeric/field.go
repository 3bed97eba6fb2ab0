package numeric

// Field is the arithmetic capability set the decomposition needs from a
// value type: the constants zero and one, ring operations, exact equality
// and a total order.
//
// Signature comparison during partition refinement uses Equal directly,
// never an epsilon. Two states whose signatures differ only in the last
// floating-point bit are distinguishable; tolerant comparison can make the
// refinement loop diverge or merge states it must not merge.
type Field[V any] interface {
	Zero() V
	One() V
	Add(a, b V) V
	Sub(a, b V) V
	Mul(a, b V) V
	Div(a, b V) V
	Equal(a, b V) bool
	Less(a, b V) bool
	IsZero(v V) bool
	IsOne(v V) bool
	Format(v V) string
}
