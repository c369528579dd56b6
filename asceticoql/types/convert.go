package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/constraints"
)

// ObjectID identifies a persistent object by the values of its primary key
// columns. It is what relation-valued projections decode to.
type ObjectID struct {
	Class  string
	Values []any
}

// String renders the id as Class(k1, k2).
func (id ObjectID) String() string {
	keys := make([]string, len(id.Values))
	for i, v := range id.Values {
		keys[i] = fmt.Sprint(v)
	}
	return id.Class + "(" + strings.Join(keys, ", ") + ")"
}

// ConversionError reports a value that has no conversion path to a kind.
type ConversionError struct {
	Value any
	From  Kind
	To    Kind
}

func (e *ConversionError) Error() string {
	return "types: cannot convert " + e.From.String() + " value to " + e.To.String()
}

func conversionError(v any, to Kind) error {
	return errors.WithStack(&ConversionError{Value: v, From: KindOf(v), To: to})
}

// KindOf classifies a Go value without reflection. Unrecognized values are
// KindUnknown.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case uint, uint8, uint16, uint32, uint64:
		return KindUint
	case int, int8, int16, int32, int64:
		return KindInt
	case float32, float64:
		return KindFloat
	case decimal.Decimal:
		return KindDecimal
	case string, ulid.ULID:
		return KindString
	case time.Time:
		return KindTime
	case []byte:
		return KindBytes
	case uuid.UUID:
		return KindUUID
	case ObjectID:
		return KindObject
	case map[string]any:
		return KindMap
	}
	if _, ok := Elements(v); ok {
		return KindCollection
	}
	return KindUnknown
}

func toAny[T any](s []T) []any {
	out := make([]any, len(s))
	for i := range s {
		out[i] = s[i]
	}
	return out
}

// Elements expands the slice types a query parameter or literal may carry.
func Elements(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []int:
		return toAny(s), true
	case []int32:
		return toAny(s), true
	case []int64:
		return toAny(s), true
	case []uint64:
		return toAny(s), true
	case []float64:
		return toAny(s), true
	case []string:
		return toAny(s), true
	case []bool:
		return toAny(s), true
	case []time.Time:
		return toAny(s), true
	case []uuid.UUID:
		return toAny(s), true
	case []ulid.ULID:
		return toAny(s), true
	case []decimal.Decimal:
		return toAny(s), true
	case []ObjectID:
		return toAny(s), true
	}
	return nil, false
}

func int64Of[T constraints.Integer](n T) int64 {
	return int64(n)
}

func signedFromUnsigned[T constraints.Unsigned](n T) (int64, bool) {
	if uint64(n) > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func floatOf[T constraints.Integer | constraints.Float](n T) float64 {
	return float64(n)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64Of(n), true
	case int8:
		return int64Of(n), true
	case int16:
		return int64Of(n), true
	case int32:
		return int64Of(n), true
	case int64:
		return n, true
	case uint:
		return signedFromUnsigned(n)
	case uint8:
		return signedFromUnsigned(n)
	case uint16:
		return signedFromUnsigned(n)
	case uint32:
		return signedFromUnsigned(n)
	case uint64:
		return signedFromUnsigned(n)
	case float32:
		if float32(int64(n)) == n {
			return int64(n), true
		}
	case float64:
		if float64(int64(n)) == n {
			return int64(n), true
		}
	case decimal.Decimal:
		if n.Equal(n.Truncate(0)) {
			return n.IntPart(), true
		}
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return floatOf(n), true
	case float64:
		return n, true
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, true
	case uint64:
		return floatOf(n), true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// Coerce converts v to kind to unless to is a narrower numeric kind than
// the kind of v. Such values are returned unchanged so no precision is
// lost.
func Coerce(v any, to Kind) (any, error) {
	if Narrows(KindOf(v), to) {
		return v, nil
	}
	return Convert(v, to)
}

// Narrows reports whether converting a numeric kind from to the numeric
// kind to can lose information.
func Narrows(from, to Kind) bool {
	if !from.IsNumeric() || !to.IsNumeric() {
		return false
	}
	wider, _ := Promote(from, to)
	return wider != to
}

// Convert coerces v to the given kind following the promotion lattice.
// nil converts to nil for every kind.
func Convert(v any, to Kind) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch to {
	case KindUnknown, KindNull, KindObject, KindCollection, KindMap:
		return v, nil
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, conversionError(v, to)
			}
			return parsed, nil
		}
		if i, ok := asInt64(v); ok && (i == 0 || i == 1) {
			return i == 1, nil
		}
	case KindUint:
		if s, ok := v.(string); ok {
			u, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, conversionError(v, to)
			}
			return u, nil
		}
		if u, ok := v.(uint64); ok {
			return u, nil
		}
		if i, ok := asInt64(v); ok && i >= 0 {
			return uint64(i), nil
		}
	case KindInt:
		if s, ok := v.(string); ok {
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, conversionError(v, to)
			}
			return i, nil
		}
		if i, ok := asInt64(v); ok {
			return i, nil
		}
	case KindFloat:
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, conversionError(v, to)
			}
			return f, nil
		}
		if f, ok := asFloat64(v); ok {
			return f, nil
		}
	case KindDecimal:
		switch n := v.(type) {
		case decimal.Decimal:
			return n, nil
		case string:
			d, err := decimal.NewFromString(n)
			if err != nil {
				return nil, conversionError(v, to)
			}
			return d, nil
		case float32:
			return decimal.NewFromFloat32(n), nil
		case float64:
			return decimal.NewFromFloat(n), nil
		case uint64:
			return decimal.RequireFromString(strconv.FormatUint(n, 10)), nil
		}
		if i, ok := asInt64(v); ok {
			return decimal.NewFromInt(i), nil
		}
	case KindString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		case uuid.UUID:
			return s.String(), nil
		case ulid.ULID:
			return s.String(), nil
		case decimal.Decimal:
			return s.String(), nil
		case time.Time:
			return s.Format(time.RFC3339Nano), nil
		case bool:
			return strconv.FormatBool(s), nil
		case float64:
			return strconv.FormatFloat(s, 'g', -1, 64), nil
		}
		if i, ok := asInt64(v); ok {
			return strconv.FormatInt(i, 10), nil
		}
	case KindTime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly} {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed, nil
				}
			}
			return nil, conversionError(v, to)
		}
	case KindBytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
	case KindUUID:
		switch u := v.(type) {
		case uuid.UUID:
			return u, nil
		case [16]byte:
			return uuid.UUID(u), nil
		case []byte:
			parsed, err := uuid.FromBytes(u)
			if err != nil {
				return nil, conversionError(v, to)
			}
			return parsed, nil
		case string:
			parsed, err := uuid.Parse(u)
			if err != nil {
				return nil, conversionError(v, to)
			}
			return parsed, nil
		}
	}
	return nil, conversionError(v, to)
}

// Zero is the value an aggregate over zero rows decodes to when NULL is not
// wanted.
func Zero(k Kind) any {
	switch k {
	case KindBool:
		return false
	case KindUint:
		return uint64(0)
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindDecimal:
		return decimal.Zero
	case KindString:
		return ""
	}
	return nil
}
