package query

import (
	"strconv"

	"github.com/krew-solutions/ascetic-oql/asceticoql/query/domain/operators"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

func Lit(value any) LiteralNode {
	return LiteralNode{value: value}
}

func Null() LiteralNode {
	return LiteralNode{}
}

// LiteralNode is a constant. A slice value is a constant collection.
type LiteralNode struct {
	value any
}

func (n LiteralNode) Value() any {
	return n.value
}

func (n LiteralNode) IsNull() bool {
	return n.value == nil
}

func (n LiteralNode) Accept(v Visitor) error {
	return v.VisitLiteral(n)
}

// Param references the execution-time parameter name.
func Param(name string) ParamNode {
	return ParamNode{key: name}
}

// Positional references the 1-based positional parameter n.
func Positional(n int) ParamNode {
	return ParamNode{key: strconv.Itoa(n), positional: true}
}

type ParamNode struct {
	key        string
	positional bool
}

// Key is the parameter name, or the decimal position.
func (n ParamNode) Key() string {
	return n.key
}

func (n ParamNode) IsPositional() bool {
	return n.positional
}

func (n ParamNode) Accept(v Visitor) error {
	return v.VisitParam(n)
}

func newArith(op operators.Operator, left, right Value) ArithNode {
	return ArithNode{operator: op, left: left, right: right}
}

func Add(left, right Value) ArithNode {
	return newArith(operators.OperatorAdd, left, right)
}

func Sub(left, right Value) ArithNode {
	return newArith(operators.OperatorSub, left, right)
}

func Mul(left, right Value) ArithNode {
	return newArith(operators.OperatorMul, left, right)
}

func Div(left, right Value) ArithNode {
	return newArith(operators.OperatorDiv, left, right)
}

func Mod(left, right Value) ArithNode {
	return newArith(operators.OperatorMod, left, right)
}

type ArithNode struct {
	operator operators.Operator
	left     Value
	right    Value
}

func (n ArithNode) Operator() operators.Operator {
	return n.operator
}

func (n ArithNode) Left() Value {
	return n.left
}

func (n ArithNode) Right() Value {
	return n.right
}

func (n ArithNode) Accept(v Visitor) error {
	return v.VisitArith(n)
}

// Func names a single-argument scalar function.
type Func string

const (
	FuncNeg    Func = "neg"
	FuncAbs    Func = "abs"
	FuncSqrt   Func = "sqrt"
	FuncLower  Func = "lower"
	FuncUpper  Func = "upper"
	FuncLength Func = "length"
)

func Neg(arg Value) FuncNode {
	return FuncNode{fn: FuncNeg, arg: arg}
}

func Abs(arg Value) FuncNode {
	return FuncNode{fn: FuncAbs, arg: arg}
}

func Sqrt(arg Value) FuncNode {
	return FuncNode{fn: FuncSqrt, arg: arg}
}

func Lower(arg Value) FuncNode {
	return FuncNode{fn: FuncLower, arg: arg}
}

func Upper(arg Value) FuncNode {
	return FuncNode{fn: FuncUpper, arg: arg}
}

func Length(arg Value) FuncNode {
	return FuncNode{fn: FuncLength, arg: arg}
}

type FuncNode struct {
	fn  Func
	arg Value
}

func (n FuncNode) Func() Func {
	return n.fn
}

func (n FuncNode) Arg() Value {
	return n.arg
}

func (n FuncNode) Accept(v Visitor) error {
	return v.VisitFunc(n)
}

// Concat concatenates the values left to right.
func Concat(first, second Value, rest ...Value) ConcatNode {
	n := ConcatNode{left: first, right: second}
	for _, r := range rest {
		n = ConcatNode{left: n, right: r}
	}
	return n
}

type ConcatNode struct {
	left  Value
	right Value
}

func (n ConcatNode) Left() Value {
	return n.left
}

func (n ConcatNode) Right() Value {
	return n.right
}

func (n ConcatNode) Accept(v Visitor) error {
	return v.VisitConcat(n)
}

// Substring takes the text of str from the 1-based position start.
func Substring(str, start Value) SubstringNode {
	return SubstringNode{str: str, start: start}
}

// SubstringFor takes length characters of str from the 1-based position
// start.
func SubstringFor(str, start, length Value) SubstringNode {
	return SubstringNode{str: str, start: start, length: length}
}

type SubstringNode struct {
	str    Value
	start  Value
	length Value
}

func (n SubstringNode) Str() Value {
	return n.str
}

func (n SubstringNode) Start() Value {
	return n.start
}

// Length is nil when the substring runs to the end.
func (n SubstringNode) Length() Value {
	return n.length
}

func (n SubstringNode) Accept(v Visitor) error {
	return v.VisitSubstring(n)
}

type TrimSpec int

const (
	TrimBoth TrimSpec = iota
	TrimLeading
	TrimTrailing
)

// Trim removes whitespace, or char when it is not nil, from str.
func Trim(str Value, spec TrimSpec, char Value) TrimNode {
	return TrimNode{str: str, spec: spec, char: char}
}

type TrimNode struct {
	str  Value
	spec TrimSpec
	char Value
}

func (n TrimNode) Str() Value {
	return n.str
}

func (n TrimNode) Spec() TrimSpec {
	return n.spec
}

func (n TrimNode) Char() Value {
	return n.char
}

func (n TrimNode) Accept(v Visitor) error {
	return v.VisitTrim(n)
}

// IndexOf returns the 1-based position of sub in str, 0 when absent.
func IndexOf(str, sub Value) IndexOfNode {
	return IndexOfNode{str: str, sub: sub}
}

// IndexOfFrom searches from the 1-based position start.
func IndexOfFrom(str, sub, start Value) IndexOfNode {
	return IndexOfNode{str: str, sub: sub, start: start}
}

type IndexOfNode struct {
	str   Value
	sub   Value
	start Value
}

func (n IndexOfNode) Str() Value {
	return n.str
}

func (n IndexOfNode) Sub() Value {
	return n.sub
}

func (n IndexOfNode) Start() Value {
	return n.start
}

func (n IndexOfNode) Accept(v Visitor) error {
	return v.VisitIndexOf(n)
}

type AggregateFunc string

const (
	AggregateCount AggregateFunc = "COUNT"
	AggregateSum   AggregateFunc = "SUM"
	AggregateAvg   AggregateFunc = "AVG"
	AggregateMin   AggregateFunc = "MIN"
	AggregateMax   AggregateFunc = "MAX"
)

func Count(arg Value) AggregateNode {
	return AggregateNode{fn: AggregateCount, arg: arg}
}

func CountDistinct(arg Value) AggregateNode {
	return AggregateNode{fn: AggregateCount, arg: arg, distinct: true}
}

func Sum(arg Value) AggregateNode {
	return AggregateNode{fn: AggregateSum, arg: arg}
}

func Avg(arg Value) AggregateNode {
	return AggregateNode{fn: AggregateAvg, arg: arg}
}

func Min(arg Value) AggregateNode {
	return AggregateNode{fn: AggregateMin, arg: arg}
}

func Max(arg Value) AggregateNode {
	return AggregateNode{fn: AggregateMax, arg: arg}
}

type AggregateNode struct {
	fn       AggregateFunc
	arg      Value
	distinct bool
}

func (n AggregateNode) Func() AggregateFunc {
	return n.fn
}

func (n AggregateNode) Arg() Value {
	return n.arg
}

func (n AggregateNode) IsDistinct() bool {
	return n.distinct
}

// Distinct returns the aggregate over distinct values.
func (n AggregateNode) Distinct() AggregateNode {
	n.distinct = true
	return n
}

func (n AggregateNode) Accept(v Visitor) error {
	return v.VisitAggregate(n)
}

// When is one branch of a CASE. Searched cases test Cond, simple cases
// compare the operand with Match.
type When struct {
	Cond   Exp
	Match  Value
	Result Value
}

// SearchedCase returns the result of the first branch whose condition
// holds.
func SearchedCase(otherwise Value, whens ...When) CaseNode {
	return CaseNode{whens: whens, otherwise: otherwise}
}

// SimpleCase returns the result of the first branch whose match equals
// operand.
func SimpleCase(operand Value, otherwise Value, whens ...When) CaseNode {
	return CaseNode{operand: operand, whens: whens, otherwise: otherwise}
}

type CaseNode struct {
	operand   Value
	whens     []When
	otherwise Value
}

// Operand is nil for searched cases.
func (n CaseNode) Operand() Value {
	return n.operand
}

func (n CaseNode) Whens() []When {
	return n.whens
}

// Else is nil when unmatched rows yield NULL.
func (n CaseNode) Else() Value {
	return n.otherwise
}

func (n CaseNode) Accept(v Visitor) error {
	return v.VisitCase(n)
}

func Coalesce(values ...Value) CoalesceNode {
	return CoalesceNode{values: values}
}

type CoalesceNode struct {
	values []Value
}

func (n CoalesceNode) Values() []Value {
	return n.values
}

func (n CoalesceNode) Accept(v Visitor) error {
	return v.VisitCoalesce(n)
}

func NullIf(left, right Value) NullIfNode {
	return NullIfNode{left: left, right: right}
}

type NullIfNode struct {
	left  Value
	right Value
}

func (n NullIfNode) Left() Value {
	return n.left
}

func (n NullIfNode) Right() Value {
	return n.right
}

func (n NullIfNode) Accept(v Visitor) error {
	return v.VisitNullIf(n)
}

// SubQuery uses the single projection of query as a value.
func SubQuery(query Query) SubQueryNode {
	return SubQueryNode{query: query}
}

type SubQueryNode struct {
	query Query
}

func (n SubQueryNode) Query() Query {
	return n.query
}

func (n SubQueryNode) Accept(v Visitor) error {
	return v.VisitSubQuery(n)
}

// TypeOf is the runtime class of the object at path.
func TypeOf(path PathNode) TypeOfNode {
	return TypeOfNode{path: path}
}

type TypeOfNode struct {
	path PathNode
}

func (n TypeOfNode) Path() PathNode {
	return n.path
}

func (n TypeOfNode) Accept(v Visitor) error {
	return v.VisitTypeOf(n)
}

// Type is a class used as a value, compared against TypeOf.
func Type(class string) TypeLiteralNode {
	return TypeLiteralNode{class: class}
}

type TypeLiteralNode struct {
	class string
}

func (n TypeLiteralNode) Class() string {
	return n.class
}

func (n TypeLiteralNode) Accept(v Visitor) error {
	return v.VisitTypeLiteral(n)
}

// Size counts the elements of the collection at path.
func Size(path PathNode) SizeNode {
	return SizeNode{path: path}
}

type SizeNode struct {
	path PathNode
}

func (n SizeNode) Path() PathNode {
	return n.path
}

func (n SizeNode) Accept(v Visitor) error {
	return v.VisitSize(n)
}

type Current int

const (
	CurrentDate Current = iota
	CurrentTime
	CurrentTimestamp
)

func Now(what Current) CurrentNode {
	return CurrentNode{what: what}
}

type CurrentNode struct {
	what Current
}

func (n CurrentNode) What() Current {
	return n.what
}

func (n CurrentNode) Accept(v Visitor) error {
	return v.VisitCurrent(n)
}

func Cast(value Value, kind types.Kind) CastNode {
	return CastNode{value: value, kind: kind}
}

type CastNode struct {
	value Value
	kind  types.Kind
}

func (n CastNode) Value() Value {
	return n.value
}

func (n CastNode) Kind() types.Kind {
	return n.kind
}

func (n CastNode) Accept(v Visitor) error {
	return v.VisitCast(n)
}

func (LiteralNode) isValue()     {}
func (ParamNode) isValue()       {}
func (ArithNode) isValue()       {}
func (FuncNode) isValue()        {}
func (ConcatNode) isValue()      {}
func (SubstringNode) isValue()   {}
func (TrimNode) isValue()        {}
func (IndexOfNode) isValue()     {}
func (AggregateNode) isValue()   {}
func (CaseNode) isValue()        {}
func (CoalesceNode) isValue()    {}
func (NullIfNode) isValue()      {}
func (SubQueryNode) isValue()    {}
func (TypeOfNode) isValue()      {}
func (TypeLiteralNode) isValue() {}
func (SizeNode) isValue()        {}
func (CurrentNode) isValue()     {}
func (CastNode) isValue()        {}
