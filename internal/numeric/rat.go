package numeric

import "strconv"

// Rat is an exact rational number over int64, kept normalized: the
// denominator is positive and the fraction is fully reduced. The zero value
// of Rat denotes 0.
type Rat struct {
	num int64
	den int64
}

// NewRat returns the reduced fraction num/den. It panics on a zero
// denominator, since a rational with denominator zero has no meaning here.
func NewRat(num, den int64) Rat {
	if den == 0 {
		panic("numeric: zero denominator")
	}
	return Rat{num: num, den: den}.reduce()
}

// RatFromInt returns the rational v/1.
func RatFromInt(v int64) Rat {
	return Rat{num: v, den: 1}
}

func (r Rat) reduce() Rat {
	if r.den == 0 {
		// Zero value; canonicalize to 0/1.
		return Rat{num: 0, den: 1}
	}
	if r.den < 0 {
		r.num, r.den = -r.num, -r.den
	}
	if r.num == 0 {
		return Rat{num: 0, den: 1}
	}
	g := gcd(abs64(r.num), r.den)
	return Rat{num: r.num / g, den: r.den / g}
}

// Num returns the reduced numerator.
func (r Rat) Num() int64 { return r.reduce().num }

// Den returns the reduced denominator.
func (r Rat) Den() int64 { return r.reduce().den }

func (r Rat) String() string {
	r = r.reduce()
	if r.den == 1 {
		return strconv.FormatInt(r.num, 10)
	}
	return strconv.FormatInt(r.num, 10) + "/" + strconv.FormatInt(r.den, 10)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Rat64 implements Field over Rat.
type Rat64 struct{}

func (Rat64) Zero() Rat { return Rat{num: 0, den: 1} }

func (Rat64) One() Rat { return Rat{num: 1, den: 1} }

func (Rat64) Add(a, b Rat) Rat {
	a, b = a.reduce(), b.reduce()
	return Rat{num: a.num*b.den + b.num*a.den, den: a.den * b.den}.reduce()
}

func (Rat64) Sub(a, b Rat) Rat {
	a, b = a.reduce(), b.reduce()
	return Rat{num: a.num*b.den - b.num*a.den, den: a.den * b.den}.reduce()
}

func (Rat64) Mul(a, b Rat) Rat {
	a, b = a.reduce(), b.reduce()
	return Rat{num: a.num * b.num, den: a.den * b.den}.reduce()
}

func (Rat64) Div(a, b Rat) Rat {
	a, b = a.reduce(), b.reduce()
	if b.num == 0 {
		panic("numeric: division by zero")
	}
	return Rat{num: a.num * b.den, den: a.den * b.num}.reduce()
}

func (Rat64) Equal(a, b Rat) bool {
	a, b = a.reduce(), b.reduce()
	return a.num == b.num && a.den == b.den
}

func (Rat64) Less(a, b Rat) bool {
	a, b = a.reduce(), b.reduce()
	return a.num*b.den < b.num*a.den
}

func (Rat64) IsZero(v Rat) bool { return v.reduce().num == 0 }

func (Rat64) IsOne(v Rat) bool {
	v = v.reduce()
	return v.num == 1 && v.den == 1
}

func (Rat64) Format(v Rat) string { return v.String() }
