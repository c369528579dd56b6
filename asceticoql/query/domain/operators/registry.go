package operators

import (
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

type BinaryOp func(left, right any) (any, error)
type UnaryOp func(operand any) (any, error)

type binaryKey struct {
	left  types.Kind
	op    Operator
	right types.Kind
}

type unaryKey struct {
	op      Operator
	operand types.Kind
}

// OperatorRegistry evaluates operators over constant values. Operands are
// normalized through the promotion lattice of package types, so one entry
// per kind serves every Go type of that kind.
type OperatorRegistry struct {
	binary map[binaryKey]BinaryOp
	unary  map[unaryKey]UnaryOp
}

func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{
		binary: make(map[binaryKey]BinaryOp),
		unary:  make(map[unaryKey]UnaryOp),
	}
}

// RegisterBinary registers fn for operands of the given kinds. L and R must
// be the normalized Go types of those kinds (int64 for KindInt, ...).
func RegisterBinary[L, R any](reg *OperatorRegistry, op Operator, left, right types.Kind, fn func(L, R) (any, error)) {
	reg.binary[binaryKey{left: left, op: op, right: right}] = func(l, r any) (any, error) {
		return fn(l.(L), r.(R))
	}
}

func RegisterUnary[T any](reg *OperatorRegistry, op Operator, kind types.Kind, fn func(T) (any, error)) {
	reg.unary[unaryKey{op: op, operand: kind}] = func(operand any) (any, error) {
		return fn(operand.(T))
	}
}

// ExecBinary executes a binary operator with SQL NULL semantics.
func (r *OperatorRegistry) ExecBinary(left any, op Operator, right any) (any, error) {
	// Three-valued logic for AND/OR
	if op == OperatorAnd {
		return execAnd(left, right)
	}
	if op == OperatorOr {
		return execOr(left, right)
	}

	// NULL propagation for all other binary operators
	if left == nil || right == nil {
		return nil, nil
	}

	lk, rk := types.KindOf(left), types.KindOf(right)
	if fn, ok := r.binary[binaryKey{left: lk, op: op, right: rk}]; ok {
		l, err := types.Convert(left, lk)
		if err != nil {
			return nil, err
		}
		rv, err := types.Convert(right, rk)
		if err != nil {
			return nil, err
		}
		return fn(l, rv)
	}

	k, ok := types.Promote(lk, rk)
	if !ok {
		return nil, errors.Errorf("operator %q is not supported for %s and %s", op, lk, rk)
	}
	fn, ok := r.binary[binaryKey{left: k, op: op, right: k}]
	if !ok {
		return nil, errors.Errorf("operator %q is not supported for %s and %s", op, lk, rk)
	}
	l, err := types.Convert(left, k)
	if err != nil {
		return nil, err
	}
	rv, err := types.Convert(right, k)
	if err != nil {
		return nil, err
	}
	return fn(l, rv)
}

// ExecUnary executes a unary operator with SQL NULL semantics.
func (r *OperatorRegistry) ExecUnary(op Operator, operand any) (any, error) {
	// NULL propagation
	if operand == nil {
		return nil, nil
	}
	k := types.KindOf(operand)
	fn, ok := r.unary[unaryKey{op: op, operand: k}]
	if !ok {
		return nil, errors.Errorf("operator %q is not supported for %s", op, k)
	}
	v, err := types.Convert(operand, k)
	if err != nil {
		return nil, err
	}
	return fn(v)
}

// Three-valued logic: NULL AND FALSE = FALSE, NULL AND TRUE = NULL
func execAnd(left, right any) (any, error) {
	if left == nil {
		if val, ok := right.(bool); ok && !val {
			return false, nil
		}
		return nil, nil
	}
	if right == nil {
		if val, ok := left.(bool); ok && !val {
			return false, nil
		}
		return nil, nil
	}
	l, ok := left.(bool)
	if !ok {
		return nil, errors.Errorf("operator \"AND\" requires bool, got %T", left)
	}
	r, ok := right.(bool)
	if !ok {
		return nil, errors.Errorf("operator \"AND\" requires bool, got %T", right)
	}
	return l && r, nil
}

// Three-valued logic: NULL OR TRUE = TRUE, NULL OR FALSE = NULL
func execOr(left, right any) (any, error) {
	if left == nil {
		if val, ok := right.(bool); ok && val {
			return true, nil
		}
		return nil, nil
	}
	if right == nil {
		if val, ok := left.(bool); ok && val {
			return true, nil
		}
		return nil, nil
	}
	l, ok := left.(bool)
	if !ok {
		return nil, errors.Errorf("operator \"OR\" requires bool, got %T", left)
	}
	r, ok := right.(bool)
	if !ok {
		return nil, errors.Errorf("operator \"OR\" requires bool, got %T", right)
	}
	return l || r, nil
}
