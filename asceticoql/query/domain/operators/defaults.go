package operators

import (
	"cmp"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

var errDivisionByZero = errors.New("operators: division by zero")

func registerComparison[T cmp.Ordered](reg *OperatorRegistry, k types.Kind) {
	RegisterBinary[T, T](reg, OperatorEq, k, k, func(a, b T) (any, error) { return a == b, nil })
	RegisterBinary[T, T](reg, OperatorNe, k, k, func(a, b T) (any, error) { return a != b, nil })
	RegisterBinary[T, T](reg, OperatorGt, k, k, func(a, b T) (any, error) { return a > b, nil })
	RegisterBinary[T, T](reg, OperatorGte, k, k, func(a, b T) (any, error) { return a >= b, nil })
	RegisterBinary[T, T](reg, OperatorLt, k, k, func(a, b T) (any, error) { return a < b, nil })
	RegisterBinary[T, T](reg, OperatorLte, k, k, func(a, b T) (any, error) { return a <= b, nil })
}

func registerArithmetic[T int64 | uint64 | float64](reg *OperatorRegistry, k types.Kind) {
	RegisterBinary[T, T](reg, OperatorAdd, k, k, func(a, b T) (any, error) { return a + b, nil })
	RegisterBinary[T, T](reg, OperatorSub, k, k, func(a, b T) (any, error) { return a - b, nil })
	RegisterBinary[T, T](reg, OperatorMul, k, k, func(a, b T) (any, error) { return a * b, nil })
	RegisterBinary[T, T](reg, OperatorDiv, k, k, func(a, b T) (any, error) {
		if b == 0 {
			return nil, errDivisionByZero
		}
		return a / b, nil
	})
}

func registerModulo[T int64 | uint64](reg *OperatorRegistry, k types.Kind) {
	RegisterBinary[T, T](reg, OperatorMod, k, k, func(a, b T) (any, error) {
		if b == 0 {
			return nil, errors.New("operators: modulo by zero")
		}
		return a % b, nil
	})
}

func registerDecimal(reg *OperatorRegistry) {
	k := types.KindDecimal
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorEq, k, k, func(a, b decimal.Decimal) (any, error) { return a.Equal(b), nil })
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorNe, k, k, func(a, b decimal.Decimal) (any, error) { return !a.Equal(b), nil })
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorGt, k, k, func(a, b decimal.Decimal) (any, error) { return a.GreaterThan(b), nil })
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorGte, k, k, func(a, b decimal.Decimal) (any, error) { return a.GreaterThanOrEqual(b), nil })
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorLt, k, k, func(a, b decimal.Decimal) (any, error) { return a.LessThan(b), nil })
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorLte, k, k, func(a, b decimal.Decimal) (any, error) { return a.LessThanOrEqual(b), nil })
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorAdd, k, k, func(a, b decimal.Decimal) (any, error) { return a.Add(b), nil })
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorSub, k, k, func(a, b decimal.Decimal) (any, error) { return a.Sub(b), nil })
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorMul, k, k, func(a, b decimal.Decimal) (any, error) { return a.Mul(b), nil })
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorDiv, k, k, func(a, b decimal.Decimal) (any, error) {
		if b.IsZero() {
			return nil, errDivisionByZero
		}
		return a.Div(b), nil
	})
	RegisterBinary[decimal.Decimal, decimal.Decimal](reg, OperatorMod, k, k, func(a, b decimal.Decimal) (any, error) {
		if b.IsZero() {
			return nil, errDivisionByZero
		}
		return a.Mod(b), nil
	})
	RegisterUnary[decimal.Decimal](reg, OperatorNeg, k, func(a decimal.Decimal) (any, error) { return a.Neg(), nil })
}

// NewDefaultRegistry creates a registry covering the scalar kinds of
// package types.
func NewDefaultRegistry() *OperatorRegistry {
	reg := NewOperatorRegistry()

	// bool
	RegisterBinary[bool, bool](reg, OperatorEq, types.KindBool, types.KindBool, func(a, b bool) (any, error) { return a == b, nil })
	RegisterBinary[bool, bool](reg, OperatorNe, types.KindBool, types.KindBool, func(a, b bool) (any, error) { return a != b, nil })
	RegisterUnary[bool](reg, OperatorNot, types.KindBool, func(a bool) (any, error) { return !a, nil })

	// int
	registerComparison[int64](reg, types.KindInt)
	registerArithmetic[int64](reg, types.KindInt)
	registerModulo[int64](reg, types.KindInt)
	RegisterUnary[int64](reg, OperatorNeg, types.KindInt, func(a int64) (any, error) { return -a, nil })

	// uint
	registerComparison[uint64](reg, types.KindUint)
	registerArithmetic[uint64](reg, types.KindUint)
	registerModulo[uint64](reg, types.KindUint)
	RegisterUnary[uint64](reg, OperatorNeg, types.KindUint, func(a uint64) (any, error) {
		if a > math.MaxInt64 {
			return nil, errors.New("operators: negation overflows")
		}
		return -int64(a), nil
	})

	// float
	registerComparison[float64](reg, types.KindFloat)
	registerArithmetic[float64](reg, types.KindFloat)
	RegisterUnary[float64](reg, OperatorNeg, types.KindFloat, func(a float64) (any, error) { return -a, nil })

	registerDecimal(reg)

	// string
	registerComparison[string](reg, types.KindString)
	RegisterBinary[string, string](reg, OperatorConcat, types.KindString, types.KindString, func(a, b string) (any, error) { return a + b, nil })

	// time
	k := types.KindTime
	RegisterBinary[time.Time, time.Time](reg, OperatorEq, k, k, func(a, b time.Time) (any, error) { return a.Equal(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorNe, k, k, func(a, b time.Time) (any, error) { return !a.Equal(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorGt, k, k, func(a, b time.Time) (any, error) { return a.After(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorGte, k, k, func(a, b time.Time) (any, error) { return !a.Before(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorLt, k, k, func(a, b time.Time) (any, error) { return a.Before(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorLte, k, k, func(a, b time.Time) (any, error) { return !a.After(b), nil })

	return reg
}
