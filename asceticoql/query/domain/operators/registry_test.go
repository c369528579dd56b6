package operators

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestExecBinarySameKind(t *testing.T) {
	reg := NewDefaultRegistry()

	result, err := reg.ExecBinary(2, OperatorAdd, int64(3))
	if err != nil {
		t.Fatalf("ExecBinary failed: %v", err)
	}
	if result != int64(5) {
		t.Errorf("Expected 5, got %v", result)
	}

	result, err = reg.ExecBinary("a", OperatorConcat, "b")
	if err != nil {
		t.Fatalf("ExecBinary failed: %v", err)
	}
	if result != "ab" {
		t.Errorf("Expected ab, got %v", result)
	}
}

func TestExecBinaryPromotes(t *testing.T) {
	reg := NewDefaultRegistry()

	result, err := reg.ExecBinary(1, OperatorLt, 1.5)
	if err != nil {
		t.Fatalf("ExecBinary failed: %v", err)
	}
	if result != true {
		t.Errorf("Expected true, got %v", result)
	}

	result, err = reg.ExecBinary(decimal.RequireFromString("1.10"), OperatorAdd, 2)
	if err != nil {
		t.Fatalf("ExecBinary failed: %v", err)
	}
	if !result.(decimal.Decimal).Equal(decimal.RequireFromString("3.1")) {
		t.Errorf("Expected 3.1, got %v", result)
	}

	result, err = reg.ExecBinary(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), OperatorEq, "2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("ExecBinary failed: %v", err)
	}
	if result != true {
		t.Errorf("Expected true, got %v", result)
	}
}

func TestExecBinaryUnsupported(t *testing.T) {
	reg := NewDefaultRegistry()
	if _, err := reg.ExecBinary(true, OperatorAdd, "x"); err == nil {
		t.Error("Expected error for bool + string")
	}
	if _, err := reg.ExecBinary(1, OperatorDiv, 0); err == nil {
		t.Error("Expected division by zero")
	}
}

func TestNullSemantics(t *testing.T) {
	reg := NewDefaultRegistry()

	result, _ := reg.ExecBinary(nil, OperatorEq, 1)
	if result != nil {
		t.Errorf("Expected NULL, got %v", result)
	}
	result, _ = reg.ExecBinary(nil, OperatorAnd, false)
	if result != false {
		t.Errorf("Expected false, got %v", result)
	}
	result, _ = reg.ExecBinary(nil, OperatorOr, true)
	if result != true {
		t.Errorf("Expected true, got %v", result)
	}
	result, _ = reg.ExecUnary(OperatorNeg, nil)
	if result != nil {
		t.Errorf("Expected NULL, got %v", result)
	}
}

func TestExecUnary(t *testing.T) {
	reg := NewDefaultRegistry()
	result, err := reg.ExecUnary(OperatorNeg, 4)
	if err != nil {
		t.Fatalf("ExecUnary failed: %v", err)
	}
	if result != int64(-4) {
		t.Errorf("Expected -4, got %v", result)
	}
	result, _ = reg.ExecUnary(OperatorNot, true)
	if result != false {
		t.Errorf("Expected false, got %v", result)
	}
}

func TestNegate(t *testing.T) {
	pairs := map[Operator]Operator{
		OperatorEq:  OperatorNe,
		OperatorGt:  OperatorLte,
		OperatorGte: OperatorLt,
	}
	for op, want := range pairs {
		if got := op.Negate(); got != want {
			t.Errorf("%s.Negate() = %s, want %s", op, got, want)
		}
		if got := want.Negate(); got != op {
			t.Errorf("%s.Negate() = %s, want %s", want, got, op)
		}
	}
}
