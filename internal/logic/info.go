package logic

// Info summarizes the properties of a formula the option derivation keys on.
type Info struct {
	ContainsRewardOperator bool
	ContainsBoundedUntil   bool
	ContainsNext           bool
}

func (i Info) join(o Info) Info {
	return Info{
		ContainsRewardOperator: i.ContainsRewardOperator || o.ContainsRewardOperator,
		ContainsBoundedUntil:   i.ContainsBoundedUntil || o.ContainsBoundedUntil,
		ContainsNext:           i.ContainsNext || o.ContainsNext,
	}
}

// GetInfo inspects the whole formula tree.
func GetInfo(f Formula) Info {
	switch f := f.(type) {
	case BooleanLiteral, AtomicLabel, AtomicExpression:
		return Info{}
	case Not:
		return GetInfo(f.Operand)
	case And:
		return GetInfo(f.Left).join(GetInfo(f.Right))
	case Or:
		return GetInfo(f.Left).join(GetInfo(f.Right))
	case Next:
		return GetInfo(f.Subformula).join(Info{ContainsNext: true})
	case Eventually:
		return GetInfo(f.Subformula)
	case Globally:
		return GetInfo(f.Subformula)
	case Until:
		return GetInfo(f.Left).join(GetInfo(f.Right))
	case BoundedUntil:
		return GetInfo(f.Left).join(GetInfo(f.Right)).join(Info{ContainsBoundedUntil: true})
	case ProbabilityOperator:
		return GetInfo(f.Subformula)
	case RewardOperator:
		return GetInfo(f.Subformula).join(Info{ContainsRewardOperator: true})
	default:
		return Info{}
	}
}

// AtomicLabels collects every atomic label mentioned in the formula, in
// syntactic order.
func AtomicLabels(f Formula) []AtomicLabel {
	var out []AtomicLabel
	walk(f, func(g Formula) {
		if l, ok := g.(AtomicLabel); ok {
			out = append(out, l)
		}
	})
	return out
}

// AtomicExpressions collects every atomic expression mentioned in the
// formula, in syntactic order.
func AtomicExpressions(f Formula) []AtomicExpression {
	var out []AtomicExpression
	walk(f, func(g Formula) {
		if e, ok := g.(AtomicExpression); ok {
			out = append(out, e)
		}
	})
	return out
}

// IsPropositional reports whether the formula belongs to the propositional
// fragment: boolean literals, atoms and boolean connectives only.
func IsPropositional(f Formula) bool {
	switch f := f.(type) {
	case BooleanLiteral, AtomicLabel, AtomicExpression:
		return true
	case Not:
		return IsPropositional(f.Operand)
	case And:
		return IsPropositional(f.Left) && IsPropositional(f.Right)
	case Or:
		return IsPropositional(f.Left) && IsPropositional(f.Right)
	default:
		return false
	}
}

func walk(f Formula, visit func(Formula)) {
	visit(f)
	switch f := f.(type) {
	case Not:
		walk(f.Operand, visit)
	case And:
		walk(f.Left, visit)
		walk(f.Right, visit)
	case Or:
		walk(f.Left, visit)
		walk(f.Right, visit)
	case Next:
		walk(f.Subformula, visit)
	case Eventually:
		walk(f.Subformula, visit)
	case Globally:
		walk(f.Subformula, visit)
	case Until:
		walk(f.Left, visit)
		walk(f.Right, visit)
	case BoundedUntil:
		walk(f.Left, visit)
		walk(f.Right, visit)
	case ProbabilityOperator:
		walk(f.Subformula, visit)
	case RewardOperator:
		walk(f.Subformula, visit)
	}
}
