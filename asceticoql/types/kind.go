package types

// Kind is the closed set of value kinds a query value can take.
//
// Numeric kinds are ordered by the promotion lattice:
// KindBool < KindUint < KindInt < KindFloat < KindDecimal.
type Kind int

const (
	KindUnknown Kind = iota
	KindNull
	KindBool
	KindUint
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindTime
	KindBytes
	KindUUID
	KindObject
	KindCollection
	KindMap
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown",
	KindNull:       "null",
	KindBool:       "bool",
	KindUint:       "uint",
	KindInt:        "int",
	KindFloat:      "float",
	KindDecimal:    "decimal",
	KindString:     "string",
	KindTime:       "time",
	KindBytes:      "bytes",
	KindUUID:       "uuid",
	KindObject:     "object",
	KindCollection: "collection",
	KindMap:        "map",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return KindUnknown, false
}

func (k Kind) IsNumeric() bool {
	return k >= KindUint && k <= KindDecimal
}

// IsScalar reports whether values of the kind occupy a single column.
func (k Kind) IsScalar() bool {
	return k != KindObject && k != KindCollection && k != KindMap
}

// numericRank positions bool and the numeric kinds on the lattice.
func numericRank(k Kind) int {
	switch k {
	case KindBool:
		return 0
	case KindUint:
		return 1
	case KindInt:
		return 2
	case KindFloat:
		return 3
	case KindDecimal:
		return 4
	}
	return -1
}

// Promote returns the kind both operands are converted to before they are
// compared or combined. The second result is false when no conversion path
// exists.
func Promote(a, b Kind) (Kind, bool) {
	switch {
	case a == b:
		return a, true
	case a == KindUnknown || a == KindNull:
		return b, true
	case b == KindUnknown || b == KindNull:
		return a, true
	}
	ra, rb := numericRank(a), numericRank(b)
	if ra > 0 && rb > 0 {
		if ra > rb {
			return a, true
		}
		return b, true
	}
	if pair(a, b, KindString, KindUUID) {
		return KindUUID, true
	}
	if pair(a, b, KindString, KindTime) {
		return KindTime, true
	}
	if pair(a, b, KindString, KindBytes) {
		return KindBytes, true
	}
	if pair(a, b, KindString, KindDecimal) {
		return KindDecimal, true
	}
	return KindUnknown, false
}

func pair(a, b, x, y Kind) bool {
	return (a == x && b == y) || (a == y && b == x)
}
