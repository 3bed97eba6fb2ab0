package logic

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Property syntax, PCTL-style:
//
//	P>=0.5 [ "safe" U "goal" ]
//	Pmax=? [ F "target" ]
//	R<=4.2 [ F "done" ]
//	true U<=50 "error"        (bare path formulas are allowed)
//
// Propositional operands are quoted labels, bare identifiers (atomic
// expressions), true/false, and !, &, | with the usual precedence.

var propertyLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Query", Pattern: `=\?`},
	{Name: "Compare", Pattern: `<=|>=|<|>`},
	{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[\[\]()&|!]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type propertyNode struct {
	Operator *operatorNode `parser:"@@"`
	Path     *pathNode     `parser:"| @@"`
}

type operatorNode struct {
	Kind      string    `parser:"@('P' | 'Pmin' | 'Pmax' | 'R' | 'Rmin' | 'Rmax')"`
	Query     bool      `parser:"( @Query"`
	Compare   string    `parser:"| @Compare"`
	Threshold *float64  `parser:"@Number )"`
	Path      *pathNode `parser:"'[' @@ ']'"`
}

type pathNode struct {
	Next       *stateNode `parser:"'X' @@"`
	Eventually *stateNode `parser:"| 'F' @@"`
	Globally   *stateNode `parser:"| 'G' @@"`
	Until      *untilNode `parser:"| @@"`
}

type untilNode struct {
	Left  *stateNode `parser:"@@ 'U'"`
	Bound *uint64    `parser:"('<=' @Number)?"`
	Right *stateNode `parser:"@@"`
}

type stateNode struct {
	Left *andNode   `parser:"@@"`
	Rest []*andNode `parser:"('|' @@)*"`
}

type andNode struct {
	Left *unaryNode   `parser:"@@"`
	Rest []*unaryNode `parser:"('&' @@)*"`
}

type unaryNode struct {
	Not  *unaryNode `parser:"'!' @@"`
	Atom *atomNode  `parser:"| @@"`
}

type atomNode struct {
	True  bool       `parser:"@'true'"`
	False bool       `parser:"| @'false'"`
	Label *string    `parser:"| @String"`
	Expr  *string    `parser:"| @Ident"`
	Sub   *stateNode `parser:"| '(' @@ ')'"`
}

var propertyParser = participle.MustBuild[propertyNode](
	participle.Lexer(propertyLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// ParseProperty parses a property string into a formula.
func ParseProperty(input string) (Formula, error) {
	node, err := propertyParser.ParseString("property", input)
	if err != nil {
		return nil, fmt.Errorf("parsing property: %w", err)
	}
	return node.formula()
}

func (n *propertyNode) formula() (Formula, error) {
	if n.Operator != nil {
		return n.Operator.formula()
	}
	return n.Path.formula()
}

func (n *operatorNode) formula() (Formula, error) {
	sub, err := n.Path.formula()
	if err != nil {
		return nil, err
	}

	var optimality *OptimalityType
	switch {
	case strings.HasSuffix(n.Kind, "min"):
		optimality = Opt(Minimize)
	case strings.HasSuffix(n.Kind, "max"):
		optimality = Opt(Maximize)
	}

	var bound *Bound
	if !n.Query {
		cmp, err := parseComparison(n.Compare)
		if err != nil {
			return nil, err
		}
		bound = &Bound{Comparison: cmp, Threshold: *n.Threshold}
	}

	if strings.HasPrefix(n.Kind, "P") {
		return ProbabilityOperator{Subformula: sub, Optimality: optimality, Bound: bound}, nil
	}
	return RewardOperator{Subformula: sub, Optimality: optimality, Bound: bound}, nil
}

func parseComparison(s string) (ComparisonType, error) {
	switch s {
	case "<":
		return Less, nil
	case "<=":
		return LessEqual, nil
	case ">":
		return Greater, nil
	case ">=":
		return GreaterEqual, nil
	default:
		return 0, fmt.Errorf("unknown comparison operator %q", s)
	}
}

func (n *pathNode) formula() (Formula, error) {
	switch {
	case n.Next != nil:
		sub, err := n.Next.formula()
		if err != nil {
			return nil, err
		}
		return Next{Subformula: sub}, nil
	case n.Eventually != nil:
		sub, err := n.Eventually.formula()
		if err != nil {
			return nil, err
		}
		return Eventually{Subformula: sub}, nil
	case n.Globally != nil:
		sub, err := n.Globally.formula()
		if err != nil {
			return nil, err
		}
		return Globally{Subformula: sub}, nil
	case n.Until != nil:
		left, err := n.Until.Left.formula()
		if err != nil {
			return nil, err
		}
		right, err := n.Until.Right.formula()
		if err != nil {
			return nil, err
		}
		if n.Until.Bound != nil {
			return BoundedUntil{Left: left, Right: right, Bound: *n.Until.Bound}, nil
		}
		return Until{Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("empty path formula")
	}
}

func (n *stateNode) formula() (Formula, error) {
	out, err := n.Left.formula()
	if err != nil {
		return nil, err
	}
	for _, r := range n.Rest {
		right, err := r.formula()
		if err != nil {
			return nil, err
		}
		out = Or{Left: out, Right: right}
	}
	return out, nil
}

func (n *andNode) formula() (Formula, error) {
	out, err := n.Left.formula()
	if err != nil {
		return nil, err
	}
	for _, r := range n.Rest {
		right, err := r.formula()
		if err != nil {
			return nil, err
		}
		out = And{Left: out, Right: right}
	}
	return out, nil
}

func (n *unaryNode) formula() (Formula, error) {
	if n.Not != nil {
		sub, err := n.Not.formula()
		if err != nil {
			return nil, err
		}
		return Not{Operand: sub}, nil
	}
	return n.Atom.formula()
}

func (n *atomNode) formula() (Formula, error) {
	switch {
	case n.True:
		return BooleanLiteral{Value: true}, nil
	case n.False:
		return BooleanLiteral{Value: false}, nil
	case n.Label != nil:
		return AtomicLabel{Label: *n.Label}, nil
	case n.Expr != nil:
		return AtomicExpression{Expression: *n.Expr}, nil
	case n.Sub != nil:
		return n.Sub.formula()
	default:
		return nil, fmt.Errorf("empty atom")
	}
}
