package query

import (
	"github.com/krew-solutions/ascetic-oql/asceticoql/query/domain/operators"
)

func newCompare(op operators.Operator, left, right Value) CompareNode {
	return CompareNode{operator: op, left: left, right: right}
}

func Equal(left, right Value) CompareNode {
	return newCompare(operators.OperatorEq, left, right)
}

func NotEqual(left, right Value) CompareNode {
	return newCompare(operators.OperatorNe, left, right)
}

func GreaterThan(left, right Value) CompareNode {
	return newCompare(operators.OperatorGt, left, right)
}

func GreaterThanEqual(left, right Value) CompareNode {
	return newCompare(operators.OperatorGte, left, right)
}

func LessThan(left, right Value) CompareNode {
	return newCompare(operators.OperatorLt, left, right)
}

func LessThanEqual(left, right Value) CompareNode {
	return newCompare(operators.OperatorLte, left, right)
}

func IsNull(operand Value) CompareNode {
	return Equal(operand, Null())
}

func IsNotNull(operand Value) CompareNode {
	return NotEqual(operand, Null())
}

type CompareNode struct {
	operator operators.Operator
	left     Value
	right    Value
}

func (n CompareNode) Operator() operators.Operator {
	return n.operator
}

func (n CompareNode) Left() Value {
	return n.left
}

func (n CompareNode) Right() Value {
	return n.right
}

func (n CompareNode) Accept(v Visitor) error {
	return v.VisitCompare(n)
}

func foldRights[T Exp](combine func(Exp, ...Exp) T, left Exp, rights ...Exp) (Exp, Exp) {
	for len(rights) > 1 {
		left = combine(left, rights[0])
		rights = rights[1:]
	}
	return left, rights[0]
}

func And(left Exp, rights ...Exp) AndNode {
	if len(rights) == 0 {
		return AndNode{left: left, right: True()}
	}
	l, r := foldRights(And, left, rights...)
	return AndNode{left: l, right: r}
}

type AndNode struct {
	left  Exp
	right Exp
}

func (n AndNode) Left() Exp {
	return n.left
}

func (n AndNode) Right() Exp {
	return n.right
}

func (n AndNode) Accept(v Visitor) error {
	return v.VisitAnd(n)
}

func Or(left Exp, rights ...Exp) OrNode {
	if len(rights) == 0 {
		return OrNode{left: left, right: False()}
	}
	l, r := foldRights(Or, left, rights...)
	return OrNode{left: l, right: r}
}

type OrNode struct {
	left  Exp
	right Exp
}

func (n OrNode) Left() Exp {
	return n.left
}

func (n OrNode) Right() Exp {
	return n.right
}

func (n OrNode) Accept(v Visitor) error {
	return v.VisitOr(n)
}

func Not(operand Exp) NotNode {
	return NotNode{operand: operand}
}

type NotNode struct {
	operand Exp
}

func (n NotNode) Operand() Exp {
	return n.operand
}

func (n NotNode) Accept(v Visitor) error {
	return v.VisitNot(n)
}

func True() ConstNode {
	return ConstNode{value: true}
}

func False() ConstNode {
	return ConstNode{value: false}
}

type ConstNode struct {
	value bool
}

func (n ConstNode) Value() bool {
	return n.value
}

func (n ConstNode) Accept(v Visitor) error {
	return v.VisitConst(n)
}

// Contains tests whether the collection at path holds element.
func Contains(collection PathNode, element Value) ContainsNode {
	return ContainsNode{collection: collection, element: element}
}

// ContainsKey tests whether the map at path has the key element.
func ContainsKey(collection PathNode, element Value) ContainsNode {
	return ContainsNode{collection: collection, element: element, key: true}
}

type ContainsNode struct {
	collection PathNode
	element    Value
	key        bool
}

func (n ContainsNode) Collection() PathNode {
	return n.collection
}

func (n ContainsNode) Element() Value {
	return n.element
}

func (n ContainsNode) IsKey() bool {
	return n.key
}

func (n ContainsNode) Accept(v Visitor) error {
	return v.VisitContains(n)
}

// BindVariable binds variable to the elements of the collection at path.
// Paths rooted at the variable navigate from the bound element.
func BindVariable(variable string, collection PathNode) BindVariableNode {
	return BindVariableNode{variable: variable, collection: collection}
}

type BindVariableNode struct {
	variable   string
	collection PathNode
}

func (n BindVariableNode) Variable() string {
	return n.variable
}

func (n BindVariableNode) Collection() PathNode {
	return n.collection
}

func (n BindVariableNode) Accept(v Visitor) error {
	return v.VisitBindVariable(n)
}

// In tests membership of value in list, a constant collection or a
// collection-valued parameter.
func In(value, list Value) InNode {
	return InNode{value: value, list: list}
}

func NotIn(value, list Value) InNode {
	return InNode{value: value, list: list, not: true}
}

// InValues is In over a constant list.
func InValues(value Value, values ...any) InNode {
	return In(value, Lit(values))
}

type InNode struct {
	value Value
	list  Value
	not   bool
}

func (n InNode) Value() Value {
	return n.value
}

func (n InNode) List() Value {
	return n.list
}

func (n InNode) IsNot() bool {
	return n.not
}

func (n InNode) Accept(v Visitor) error {
	return v.VisitIn(n)
}

func InSubQuery(value Value, query Query) InSubQueryNode {
	return InSubQueryNode{value: value, query: query}
}

func NotInSubQuery(value Value, query Query) InSubQueryNode {
	return InSubQueryNode{value: value, query: query, not: true}
}

type InSubQueryNode struct {
	value Value
	query Query
	not   bool
}

func (n InSubQueryNode) Value() Value {
	return n.value
}

func (n InSubQueryNode) Query() Query {
	return n.query
}

func (n InSubQueryNode) IsNot() bool {
	return n.not
}

func (n InSubQueryNode) Accept(v Visitor) error {
	return v.VisitInSubQuery(n)
}

func Exists(query Query) ExistsNode {
	return ExistsNode{query: query}
}

func NotExists(query Query) ExistsNode {
	return ExistsNode{query: query, not: true}
}

type ExistsNode struct {
	query Query
	not   bool
}

func (n ExistsNode) Query() Query {
	return n.query
}

func (n ExistsNode) IsNot() bool {
	return n.not
}

func (n ExistsNode) Accept(v Visitor) error {
	return v.VisitExists(n)
}

// InstanceOf tests whether the object at path is of class or one of its
// subclasses.
func InstanceOf(path PathNode, class string) InstanceOfNode {
	return InstanceOfNode{path: path, class: class}
}

func NotInstanceOf(path PathNode, class string) InstanceOfNode {
	return InstanceOfNode{path: path, class: class, not: true}
}

type InstanceOfNode struct {
	path  PathNode
	class string
	not   bool
}

func (n InstanceOfNode) Path() PathNode {
	return n.path
}

func (n InstanceOfNode) Class() string {
	return n.class
}

func (n InstanceOfNode) IsNot() bool {
	return n.not
}

func (n InstanceOfNode) Accept(v Visitor) error {
	return v.VisitInstanceOf(n)
}

// Like matches value against an SQL pattern using % and _.
func Like(value, pattern Value) LikeNode {
	return LikeNode{value: value, pattern: pattern}
}

func NotLike(value, pattern Value) LikeNode {
	return LikeNode{value: value, pattern: pattern, not: true}
}

type LikeNode struct {
	value           Value
	pattern         Value
	escape          string
	caseInsensitive bool
	not             bool
}

func (n LikeNode) Value() Value {
	return n.value
}

func (n LikeNode) Pattern() Value {
	return n.pattern
}

// Escape returns the match with ch escaping wildcards in the pattern.
func (n LikeNode) Escape(ch string) LikeNode {
	n.escape = ch
	return n
}

func (n LikeNode) EscapeChar() string {
	return n.escape
}

// IgnoreCase returns the case-insensitive match.
func (n LikeNode) IgnoreCase() LikeNode {
	n.caseInsensitive = true
	return n
}

func (n LikeNode) IsCaseInsensitive() bool {
	return n.caseInsensitive
}

func (n LikeNode) IsNot() bool {
	return n.not
}

func (n LikeNode) Accept(v Visitor) error {
	return v.VisitLike(n)
}

func IsEmpty(collection PathNode) IsEmptyNode {
	return IsEmptyNode{collection: collection}
}

func IsNotEmpty(collection PathNode) IsEmptyNode {
	return IsEmptyNode{collection: collection, not: true}
}

type IsEmptyNode struct {
	collection PathNode
	not        bool
}

func (n IsEmptyNode) Collection() PathNode {
	return n.collection
}

func (n IsEmptyNode) IsNot() bool {
	return n.not
}

func (n IsEmptyNode) Accept(v Visitor) error {
	return v.VisitIsEmpty(n)
}

// Holds uses a boolean value as a predicate.
func Holds(value Value) ValueExpNode {
	return ValueExpNode{value: value}
}

type ValueExpNode struct {
	value Value
}

func (n ValueExpNode) Value() Value {
	return n.value
}

func (n ValueExpNode) Accept(v Visitor) error {
	return v.VisitValueExp(n)
}

func (CompareNode) isExp()      {}
func (AndNode) isExp()          {}
func (OrNode) isExp()           {}
func (NotNode) isExp()          {}
func (ConstNode) isExp()        {}
func (ContainsNode) isExp()     {}
func (BindVariableNode) isExp() {}
func (InNode) isExp()           {}
func (InSubQueryNode) isExp()   {}
func (ExistsNode) isExp()       {}
func (InstanceOfNode) isExp()   {}
func (LikeNode) isExp()         {}
func (IsEmptyNode) isExp()      {}
func (ValueExpNode) isExp()     {}
