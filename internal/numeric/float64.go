package numeric

import "strconv"

// Float64 implements Field over float64 with exact (bitwise) comparison.
type Float64 struct{}

func (Float64) Zero() float64 { return 0 }

func (Float64) One() float64 { return 1 }

func (Float64) Add(a, b float64) float64 { return a + b }

func (Float64) Sub(a, b float64) float64 { return a - b }

func (Float64) Mul(a, b float64) float64 { return a * b }

func (Float64) Div(a, b float64) float64 { return a / b }

func (Float64) Equal(a, b float64) bool { return a == b }

func (Float64) Less(a, b float64) bool { return a < b }

func (Float64) IsZero(v float64) bool { return v == 0 }

func (Float64) IsOne(v float64) bool { return v == 1 }

func (Float64) Format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
