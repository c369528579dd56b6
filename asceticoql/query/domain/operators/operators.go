package operators

type Operator string

const (
	// Comparison

	OperatorEq  Operator = "="
	OperatorNe  Operator = "<>"
	OperatorGt  Operator = ">"
	OperatorGte Operator = ">="
	OperatorLt  Operator = "<"
	OperatorLte Operator = "<="

	// Logical operators

	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
	OperatorNot Operator = "NOT"

	// Mathematical

	OperatorAdd Operator = "+"
	OperatorSub Operator = "-"
	OperatorMul Operator = "*"
	OperatorDiv Operator = "/"
	OperatorMod Operator = "%"
	OperatorNeg Operator = "-neg"

	// String

	OperatorConcat Operator = "||"
)

func (o Operator) IsComparison() bool {
	switch o {
	case OperatorEq, OperatorNe, OperatorGt, OperatorGte, OperatorLt, OperatorLte:
		return true
	}
	return false
}

func (o Operator) IsArithmetic() bool {
	switch o {
	case OperatorAdd, OperatorSub, OperatorMul, OperatorDiv, OperatorMod:
		return true
	}
	return false
}

// Negate returns the comparison holding exactly when o does not.
func (o Operator) Negate() Operator {
	switch o {
	case OperatorEq:
		return OperatorNe
	case OperatorNe:
		return OperatorEq
	case OperatorGt:
		return OperatorLte
	case OperatorGte:
		return OperatorLt
	case OperatorLt:
		return OperatorGte
	case OperatorLte:
		return OperatorGt
	}
	return o
}
