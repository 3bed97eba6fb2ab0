// Package quotient shrinks probabilistic models (DTMCs, CTMCs, MDPs, Markov
// automata) to their bisimulation quotient: the smallest model that is
// indistinguishable from the original under the properties the caller wants
// preserved.
//
// The typical flow is to load or build a model, derive options from the
// properties to preserve, and minimize:
//
//	m, err := quotient.ReadModel(quotient.DTMC, "die.tra", "die.lab")
//	opts, err := quotient.OptionsForProperty(m, `P=? [ F "one" ]`)
//	d, err := quotient.Minimize(m, opts)
//	q, err := d.Quotient()
package quotient

import (
	"fmt"

	"github.com/quotientlab/quotient/internal/bisim"
	"github.com/quotientlab/quotient/internal/explicit"
	"github.com/quotientlab/quotient/internal/logic"
	"github.com/quotientlab/quotient/internal/model"
	"github.com/quotientlab/quotient/internal/numeric"
)

// Core types, re-exported for callers outside the module.
type (
	// Options configure which behavior the quotient must preserve.
	Options = bisim.Options
	// Type selects strong or weak bisimulation.
	Type = bisim.Type
	// Timings is the phase time breakdown of a minimization.
	Timings = bisim.Timings
	// Kind is the model class: DTMC, CTMC, MDP or MA.
	Kind = model.Kind
	// Formula is a parsed property.
	Formula = logic.Formula

	// Model is a sparse model with float64 transition values.
	Model = model.Model[float64]
	// Decomposition is the result of minimizing a Model.
	Decomposition = bisim.Decomposition[float64]

	// Rat is an exact rational transition value.
	Rat = numeric.Rat
	// ExactModel is a sparse model with exact rational values.
	ExactModel = model.Model[numeric.Rat]
	// ExactDecomposition is the result of minimizing an ExactModel.
	ExactDecomposition = bisim.Decomposition[numeric.Rat]
)

const (
	Strong = bisim.Strong
	Weak   = bisim.Weak

	DTMC = model.DTMC
	CTMC = model.CTMC
	MDP  = model.MDP
	MA   = model.MA
)

var (
	ErrInvalidOptions   = bisim.ErrInvalidOptions
	ErrQuotientNotBuilt = bisim.ErrQuotientNotBuilt
)

// NewOptions returns the default options: strong bisimulation respecting all
// labels, with quotient construction enabled.
func NewOptions() Options { return bisim.NewOptions() }

// ParseProperty parses a PCTL-style property such as `P>=0.5 [ "safe" U
// "goal" ]`.
func ParseProperty(property string) (Formula, error) {
	return logic.ParseProperty(property)
}

// OptionsForProperty parses a property and derives the weakest options that
// preserve it on the given model.
func OptionsForProperty(m *Model, property string) (Options, error) {
	f, err := logic.ParseProperty(property)
	if err != nil {
		return Options{}, err
	}
	return bisim.OptionsForFormula(m, f), nil
}

// OptionsForProperties derives options preserving all given properties.
func OptionsForProperties(m *Model, properties []string) (Options, error) {
	formulas := make([]logic.Formula, 0, len(properties))
	for _, p := range properties {
		f, err := logic.ParseProperty(p)
		if err != nil {
			return Options{}, fmt.Errorf("property %q: %w", p, err)
		}
		formulas = append(formulas, f)
	}
	return bisim.OptionsForFormulas(m, formulas), nil
}

// Minimize computes the bisimulation decomposition of the model and, unless
// disabled in the options, its quotient.
func Minimize(m *Model, opts Options) (*Decomposition, error) {
	return bisim.Decompose[float64](numeric.Float64{}, m, opts)
}

// MinimizeExact is Minimize over exact rational arithmetic.
func MinimizeExact(m *ExactModel, opts Options) (*ExactDecomposition, error) {
	return bisim.Decompose[numeric.Rat](numeric.Rat64{}, m, opts)
}

// ReadModel loads a deterministic model from an explicit-state .tra/.lab
// file pair.
func ReadModel(kind Kind, traPath, labPath string) (*Model, error) {
	return explicit.ReadModel(kind, traPath, labPath)
}
