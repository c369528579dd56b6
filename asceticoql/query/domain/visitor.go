package query

type Visitable interface {
	Accept(Visitor) error
}

// Value is a node producing a scalar or a column tuple. The family is
// closed: only the node types of this package implement it.
type Value interface {
	Visitable
	isValue()
}

// Exp is a node producing a boolean predicate.
type Exp interface {
	Visitable
	isExp()
}

type Visitor interface {
	VisitPath(PathNode) error
	VisitLiteral(LiteralNode) error
	VisitParam(ParamNode) error
	VisitArith(ArithNode) error
	VisitFunc(FuncNode) error
	VisitConcat(ConcatNode) error
	VisitSubstring(SubstringNode) error
	VisitTrim(TrimNode) error
	VisitIndexOf(IndexOfNode) error
	VisitAggregate(AggregateNode) error
	VisitCase(CaseNode) error
	VisitCoalesce(CoalesceNode) error
	VisitNullIf(NullIfNode) error
	VisitSubQuery(SubQueryNode) error
	VisitTypeOf(TypeOfNode) error
	VisitTypeLiteral(TypeLiteralNode) error
	VisitSize(SizeNode) error
	VisitCurrent(CurrentNode) error
	VisitCast(CastNode) error

	VisitCompare(CompareNode) error
	VisitAnd(AndNode) error
	VisitOr(OrNode) error
	VisitNot(NotNode) error
	VisitConst(ConstNode) error
	VisitContains(ContainsNode) error
	VisitBindVariable(BindVariableNode) error
	VisitIn(InNode) error
	VisitInSubQuery(InSubQueryNode) error
	VisitExists(ExistsNode) error
	VisitInstanceOf(InstanceOfNode) error
	VisitLike(LikeNode) error
	VisitIsEmpty(IsEmptyNode) error
	VisitValueExp(ValueExpNode) error
}
