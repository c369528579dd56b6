package query

import (
	"regexp"
	"strings"

	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/query/domain/operators"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

type compiledOrder struct {
	value     value
	ascending bool
}

// compiledQuery is a query with every name resolved against the mapping.
type compiledQuery struct {
	candidate   *mapping.ClassMapping
	alias       string
	from        *pathValue
	filter      expression
	projections []value
	grouping    []value
	having      expression
	ordering    []compiledOrder
	distinct    bool
}

// scope resolves the path roots visible in one query.
type scope struct {
	alias     string
	candidate *mapping.ClassMapping
	// bindings maps variables bound by a contains test to the collection
	// they range over.
	bindings map[string]q.PathNode
	unbound  map[string]*mapping.ClassMapping
	parent   *scope
}

var xpathElement = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*(/[A-Za-z_][A-Za-z0-9_.-]*)*$`)

// maxBindingDepth bounds the rewriting of paths through variables bound
// to paths rooted at other variables.
const maxBindingDepth = 32

func (c *Compiler) classMapping(name string) (*mapping.ClassMapping, error) {
	cls, err := c.resolver.ClassMapping(name)
	if err != nil {
		return nil, q.WrapUser(err, "cannot resolve class "+name)
	}
	return cls, nil
}

// lower resolves query against the mapping. parent is the scope of the
// enclosing query of a subquery.
func (c *Compiler) lower(query q.Query, parent *scope) (*compiledQuery, error) {
	cq := &compiledQuery{alias: query.Alias, distinct: query.Distinct}
	if query.From != nil {
		if parent == nil {
			return nil, q.UserErrorf("only subqueries can range over a path")
		}
		from, err := (&lowerVisitor{compiler: c, scope: parent}).lowerPath(*query.From, 0)
		if err != nil {
			return nil, err
		}
		if from.class == nil {
			return nil, q.UserErrorf("%s does not reach objects", from)
		}
		cq.from = from
		cq.candidate = from.class
	} else {
		cls, err := c.classMapping(query.Candidate)
		if err != nil {
			return nil, err
		}
		cq.candidate = cls
	}
	if cq.alias == "" {
		cq.alias = strings.ToLower(cq.candidate.Name)
	}

	sc := &scope{
		alias:     cq.alias,
		candidate: cq.candidate,
		bindings:  make(map[string]q.PathNode),
		unbound:   make(map[string]*mapping.ClassMapping),
		parent:    parent,
	}
	if query.Filter != nil {
		collectBindings(query.Filter, sc.bindings)
	}
	for _, v := range query.Variables {
		if _, ok := sc.bindings[v.Name]; ok {
			continue
		}
		cls, err := c.classMapping(v.Class)
		if err != nil {
			return nil, err
		}
		sc.unbound[v.Name] = cls
	}

	l := &lowerVisitor{compiler: c, scope: sc}
	var err error
	if query.Filter != nil {
		if cq.filter, err = l.lowerExp(query.Filter); err != nil {
			return nil, err
		}
	}
	for _, p := range query.Projections {
		v, err := l.lowerValue(p)
		if err != nil {
			return nil, err
		}
		cq.projections = append(cq.projections, v)
	}
	for _, g := range query.Grouping {
		v, err := l.lowerValue(g)
		if err != nil {
			return nil, err
		}
		cq.grouping = append(cq.grouping, v)
	}
	if query.Having != nil {
		if cq.having, err = l.lowerExp(query.Having); err != nil {
			return nil, err
		}
	}
	for _, o := range query.Ordering {
		v, err := l.lowerValue(o.Value)
		if err != nil {
			return nil, err
		}
		cq.ordering = append(cq.ordering, compiledOrder{value: v, ascending: o.Ascending})
	}
	return cq, nil
}

// collectBindings records the variables bound by contains tests reachable
// through AND, OR and NOT.
func collectBindings(e q.Exp, into map[string]q.PathNode) {
	switch n := e.(type) {
	case q.BindVariableNode:
		if _, ok := into[n.Variable()]; !ok {
			into[n.Variable()] = n.Collection()
		}
	case q.AndNode:
		collectBindings(n.Left(), into)
		collectBindings(n.Right(), into)
	case q.OrNode:
		collectBindings(n.Left(), into)
		collectBindings(n.Right(), into)
	case q.NotNode:
		collectBindings(n.Operand(), into)
	}
}

// lowerVisitor turns domain nodes into compiled nodes. Each Visit method
// leaves its result in value or exp.
type lowerVisitor struct {
	compiler *Compiler
	scope    *scope
	value    value
	exp      expression
}

func (l *lowerVisitor) lowerValue(v q.Value) (value, error) {
	if v == nil {
		return nil, nil
	}
	l.value = nil
	if err := v.Accept(l); err != nil {
		return nil, err
	}
	if l.value == nil {
		return nil, q.Invariantf(nil, "%T did not lower to a value", v)
	}
	return l.value, nil
}

func (l *lowerVisitor) lowerExp(e q.Exp) (expression, error) {
	l.exp = nil
	if err := e.Accept(l); err != nil {
		return nil, err
	}
	if l.exp == nil {
		return nil, q.Invariantf(nil, "%T did not lower to an expression", e)
	}
	return l.exp, nil
}

func (l *lowerVisitor) lowerQuery(query q.Query) (*compiledQuery, error) {
	return l.compiler.lower(query, l.scope)
}

// resolveRoot finds what the root of p names: a query alias, a bound
// variable or an unbound one. It returns the actions still to resolve,
// or a finished path when the root is a bound variable.
func (l *lowerVisitor) resolveRoot(p q.PathNode, depth int) (*pathValue, []q.Action, bool, error) {
	actions := p.Actions()
	if len(actions) > 0 && actions[0].Op == q.OpUnboundVar {
		cls, err := l.compiler.classMapping(actions[0].Class)
		if err != nil {
			return nil, nil, false, err
		}
		return &pathValue{expr: p, schemaAlias: l.scope.alias, candidate: cls}, actions, false, nil
	}
	for s := l.scope; s != nil; s = s.parent {
		if p.Root() == s.alias {
			return &pathValue{expr: p, schemaAlias: s.alias, candidate: s.candidate}, actions, false, nil
		}
		if binding, ok := s.bindings[p.Root()]; ok {
			if depth >= maxBindingDepth {
				return nil, nil, false, q.UserErrorf("variable %s is bound through a cycle", p.Root())
			}
			rewritten := binding.Var(p.Root()).Append(actions...)
			outer := &lowerVisitor{compiler: l.compiler, scope: s}
			pv, err := outer.lowerPath(rewritten, depth+1)
			if err != nil {
				return nil, nil, false, err
			}
			pv.expr = p
			return pv, nil, true, nil
		}
		if cls, ok := s.unbound[p.Root()]; ok {
			unbound := append([]q.Action{{Op: q.OpUnboundVar, Name: p.Root(), Class: cls.Name}}, actions...)
			return &pathValue{expr: p, schemaAlias: s.alias, candidate: cls}, unbound, false, nil
		}
	}
	return nil, nil, false, q.WrapUser(q.ErrUnknownAlias, p.Root())
}

// lowerPath resolves every field of p statically.
func (l *lowerVisitor) lowerPath(p q.PathNode, depth int) (*pathValue, error) {
	pv, actions, done, err := l.resolveRoot(p, depth)
	if err != nil || done {
		return pv, err
	}
	cls := pv.candidate
	kind := types.KindObject
	var xml bool
	var xpath []string
	for _, a := range actions {
		switch a.Op {
		case q.OpGet, q.OpGetOuter, q.OpGetKey:
			if a.Name == "" && a.Op == q.OpGetKey {
				if err := markKey(pv); err != nil {
					return nil, err
				}
				cls, kind = reached(pv.lastField().Key)
				continue
			}
			if xml {
				return nil, q.UserErrorf("%s: cannot traverse %s inside an XML field", p, a.Name)
			}
			if cls == nil {
				return nil, q.UserErrorf("%s: cannot traverse %s from a value", p, a.Name)
			}
			f, err := l.compiler.resolver.FieldMapping(cls, a.Name)
			if err != nil {
				return nil, q.WrapUser(err, p.String())
			}
			if f.Transient {
				return nil, q.UserErrorf("%s: field %s is not persistent", p, f)
			}
			if a.Op == q.OpGetKey && f.Kind != mapping.FieldMap {
				return nil, q.UserErrorf("%s: %s is not a map", p, f)
			}
			pv.actions = append(pv.actions, pathAction{op: a.Op, field: f})
			cls, kind = reached(f.ValueMapping(a.Op == q.OpGetKey))
			xml = f.Kind == mapping.FieldXML
		case q.OpVar, q.OpSubquery:
			pv.actions = append(pv.actions, pathAction{op: a.Op, name: a.Name})
		case q.OpUnboundVar:
			target, err := l.compiler.classMapping(a.Class)
			if err != nil {
				return nil, err
			}
			pv.actions = append(pv.actions, pathAction{op: a.Op, name: a.Name, class: target})
			cls = target
			kind = types.KindObject
		case q.OpCast:
			target, err := l.compiler.classMapping(a.Class)
			if err != nil {
				return nil, err
			}
			if cls == nil || !cls.IsAssignableFrom(target) {
				return nil, q.UserErrorf("%s: cannot treat as %s", p, a.Class)
			}
			pv.actions = append(pv.actions, pathAction{op: a.Op, class: target})
			cls = target
		case q.OpGetXPath:
			if !xml {
				return nil, q.UserErrorf("%s: %s is not inside an XML field", p, a.Name)
			}
			if !xpathElement.MatchString(a.Name) {
				return nil, q.UserErrorf("%s: invalid XML element name %q", p, a.Name)
			}
			xpath = append(xpath, a.Name)
			kind = types.KindString
		}
	}
	pv.class = cls
	pv.kind = kind
	pv.xpath = strings.Join(xpath, "/")
	return pv, nil
}

func reached(vm mapping.ValueMapping) (*mapping.ClassMapping, types.Kind) {
	if vm.Related != nil {
		return vm.Related, types.KindObject
	}
	return nil, vm.Kind
}

// markKey turns the last field traversal of pv into a key traversal.
func markKey(pv *pathValue) error {
	for i := len(pv.actions) - 1; i >= 0; i-- {
		if pv.actions[i].field != nil {
			if pv.actions[i].field.Kind != mapping.FieldMap {
				return q.UserErrorf("%s: %s is not a map", pv, pv.actions[i].field)
			}
			pv.actions[i].op = q.OpGetKey
			return nil
		}
	}
	return q.UserErrorf("%s: KEY requires a map field", pv)
}

func (l *lowerVisitor) VisitPath(n q.PathNode) error {
	pv, err := l.lowerPath(n, 0)
	if err != nil {
		return err
	}
	l.value = pv
	return nil
}

func (l *lowerVisitor) lowerPathNode(n q.PathNode) (*pathValue, error) {
	return l.lowerPath(n, 0)
}

func (l *lowerVisitor) VisitLiteral(n q.LiteralNode) error {
	l.value = newLiteral(n.Value())
	return nil
}

func (l *lowerVisitor) VisitParam(n q.ParamNode) error {
	l.value = &paramValue{ref: sql.NewParamRef(n.Key())}
	return nil
}

// fold evaluates an operator over constant operands.
func (l *lowerVisitor) fold(left any, op operators.Operator, right any) (value, error) {
	v, err := l.compiler.registry.ExecBinary(left, op, right)
	if err != nil {
		return nil, q.WrapUser(err, "cannot evaluate constant "+string(op))
	}
	return newLiteral(v), nil
}

func constant(v value) (any, bool) {
	lit, ok := v.(*literalValue)
	if !ok || lit.value == nil {
		return nil, false
	}
	if _, ok := lit.value.(types.ObjectID); ok {
		return nil, false
	}
	return lit.value, true
}

func (l *lowerVisitor) VisitArith(n q.ArithNode) error {
	left, err := l.lowerValue(n.Left())
	if err != nil {
		return err
	}
	right, err := l.lowerValue(n.Right())
	if err != nil {
		return err
	}
	lc, lok := constant(left)
	rc, rok := constant(right)
	if lok && rok {
		l.value, err = l.fold(lc, n.Operator(), rc)
		return err
	}
	l.value = &arithValue{op: n.Operator(), left: left, right: right}
	return nil
}

func (l *lowerVisitor) VisitFunc(n q.FuncNode) error {
	arg, err := l.lowerValue(n.Arg())
	if err != nil {
		return err
	}
	if c, ok := constant(arg); ok && n.Func() == q.FuncNeg {
		v, err := l.compiler.registry.ExecUnary(operators.OperatorNeg, c)
		if err != nil {
			return q.WrapUser(err, "cannot negate constant")
		}
		l.value = newLiteral(v)
		return nil
	}
	l.value = &funcValue{fn: n.Func(), arg: arg}
	return nil
}

func (l *lowerVisitor) VisitConcat(n q.ConcatNode) error {
	left, err := l.lowerValue(n.Left())
	if err != nil {
		return err
	}
	right, err := l.lowerValue(n.Right())
	if err != nil {
		return err
	}
	lc, lok := constant(left)
	rc, rok := constant(right)
	if lok && rok {
		l.value, err = l.fold(lc, operators.OperatorConcat, rc)
		return err
	}
	l.value = &concatValue{left: left, right: right}
	return nil
}

func (l *lowerVisitor) VisitSubstring(n q.SubstringNode) error {
	str, err := l.lowerValue(n.Str())
	if err != nil {
		return err
	}
	start, err := l.lowerValue(n.Start())
	if err != nil {
		return err
	}
	count, err := l.lowerValue(n.Length())
	if err != nil {
		return err
	}
	l.value = &substringValue{str: str, start: start, count: count}
	return nil
}

func (l *lowerVisitor) VisitTrim(n q.TrimNode) error {
	str, err := l.lowerValue(n.Str())
	if err != nil {
		return err
	}
	char, err := l.lowerValue(n.Char())
	if err != nil {
		return err
	}
	l.value = &trimValue{str: str, spec: n.Spec(), char: char}
	return nil
}

func (l *lowerVisitor) VisitIndexOf(n q.IndexOfNode) error {
	str, err := l.lowerValue(n.Str())
	if err != nil {
		return err
	}
	sub, err := l.lowerValue(n.Sub())
	if err != nil {
		return err
	}
	start, err := l.lowerValue(n.Start())
	if err != nil {
		return err
	}
	l.value = &indexOfValue{str: str, sub: sub, start: start}
	return nil
}

func (l *lowerVisitor) VisitAggregate(n q.AggregateNode) error {
	arg, err := l.lowerValue(n.Arg())
	if err != nil {
		return err
	}
	l.value = &aggregateValue{fn: n.Func(), arg: arg, distinct: n.IsDistinct()}
	return nil
}

func (l *lowerVisitor) VisitCase(n q.CaseNode) error {
	operand, err := l.lowerValue(n.Operand())
	if err != nil {
		return err
	}
	otherwise, err := l.lowerValue(n.Else())
	if err != nil {
		return err
	}
	c := &caseValue{operand: operand, otherwise: otherwise}
	for _, w := range n.Whens() {
		var cw caseWhen
		switch {
		case operand == nil && w.Cond != nil:
			if cw.cond, err = l.lowerExp(w.Cond); err != nil {
				return err
			}
		case operand != nil && w.Match != nil:
			if cw.match, err = l.lowerValue(w.Match); err != nil {
				return err
			}
		default:
			return q.UserErrorf("CASE branch needs a condition for searched and a match for simple cases")
		}
		if cw.result, err = l.lowerValue(w.Result); err != nil {
			return err
		}
		if cw.result == nil {
			return q.UserErrorf("CASE branch without result")
		}
		c.whens = append(c.whens, cw)
	}
	if len(c.whens) == 0 {
		return q.UserErrorf("CASE without branches")
	}
	l.value = c
	return nil
}

func (l *lowerVisitor) VisitCoalesce(n q.CoalesceNode) error {
	c := &coalesceValue{}
	for _, v := range n.Values() {
		lv, err := l.lowerValue(v)
		if err != nil {
			return err
		}
		c.values = append(c.values, lv)
	}
	if len(c.values) == 0 {
		return q.UserErrorf("COALESCE without values")
	}
	l.value = c
	return nil
}

func (l *lowerVisitor) VisitNullIf(n q.NullIfNode) error {
	left, err := l.lowerValue(n.Left())
	if err != nil {
		return err
	}
	right, err := l.lowerValue(n.Right())
	if err != nil {
		return err
	}
	l.value = &nullIfValue{left: left, right: right}
	return nil
}

func (l *lowerVisitor) VisitSubQuery(n q.SubQueryNode) error {
	if len(n.Query().Projections) != 1 {
		return q.UserErrorf("a subquery value must select exactly one value")
	}
	cq, err := l.lowerQuery(n.Query())
	if err != nil {
		return err
	}
	l.value = &subQueryValue{query: cq}
	return nil
}

func (l *lowerVisitor) VisitTypeOf(n q.TypeOfNode) error {
	pv, err := l.lowerPathNode(n.Path())
	if err != nil {
		return err
	}
	l.value = &typeOfValue{path: pv}
	return nil
}

func (l *lowerVisitor) VisitTypeLiteral(n q.TypeLiteralNode) error {
	cls, err := l.compiler.classMapping(n.Class())
	if err != nil {
		return err
	}
	l.value = &typeLiteralValue{class: cls}
	return nil
}

func (l *lowerVisitor) VisitSize(n q.SizeNode) error {
	pv, err := l.lowerPathNode(n.Path())
	if err != nil {
		return err
	}
	l.value = &sizeValue{path: pv}
	return nil
}

func (l *lowerVisitor) VisitCurrent(n q.CurrentNode) error {
	l.value = &currentValue{what: n.What()}
	return nil
}

func (l *lowerVisitor) VisitCast(n q.CastNode) error {
	arg, err := l.lowerValue(n.Value())
	if err != nil {
		return err
	}
	if !n.Kind().IsScalar() || n.Kind() == types.KindUnknown || n.Kind() == types.KindNull {
		return q.UserErrorf("cannot cast to %s", n.Kind())
	}
	l.value = &castValue{arg: arg, kind: n.Kind()}
	return nil
}

func (l *lowerVisitor) VisitCompare(n q.CompareNode) error {
	left, err := l.lowerValue(n.Left())
	if err != nil {
		return err
	}
	right, err := l.lowerValue(n.Right())
	if err != nil {
		return err
	}
	op := n.Operator()
	if !op.IsComparison() {
		return q.Invariantf(nil, "%s is not a comparison", op)
	}
	if t, ok := typeCompare(op, left, right); ok {
		l.exp = t
		return nil
	}
	lc, lok := constant(left)
	rc, rok := constant(right)
	if lok && rok {
		// Kinds the registry cannot compare are left to the database.
		if v, err := l.compiler.registry.ExecBinary(lc, op, rc); err == nil {
			b, _ := v.(bool)
			l.exp = &constExp{value: b}
			return nil
		}
	}
	l.exp = &compareExp{op: op, left: left, right: right}
	return nil
}

// typeCompare recognizes TYPE(path) compared with a class.
func typeCompare(op operators.Operator, left, right value) (*typeCompareExp, bool) {
	if _, ok := left.(*typeLiteralValue); ok {
		left, right = right, left
	}
	t, ok := left.(*typeOfValue)
	if !ok {
		return nil, false
	}
	lit, ok := right.(*typeLiteralValue)
	if !ok {
		return nil, false
	}
	return &typeCompareExp{op: op, path: t.path, class: lit.class}, true
}

func (l *lowerVisitor) VisitAnd(n q.AndNode) error {
	left, err := l.lowerExp(n.Left())
	if err != nil {
		return err
	}
	right, err := l.lowerExp(n.Right())
	if err != nil {
		return err
	}
	l.exp = &andExp{left: left, right: right}
	return nil
}

func (l *lowerVisitor) VisitOr(n q.OrNode) error {
	left, err := l.lowerExp(n.Left())
	if err != nil {
		return err
	}
	right, err := l.lowerExp(n.Right())
	if err != nil {
		return err
	}
	l.exp = &orExp{left: left, right: right}
	return nil
}

func (l *lowerVisitor) VisitNot(n q.NotNode) error {
	operand, err := l.lowerExp(n.Operand())
	if err != nil {
		return err
	}
	if c, ok := operand.(*constExp); ok {
		l.exp = &constExp{value: !c.value}
		return nil
	}
	l.exp = &notExp{operand: operand}
	return nil
}

func (l *lowerVisitor) VisitConst(n q.ConstNode) error {
	l.exp = &constExp{value: n.Value()}
	return nil
}

func (l *lowerVisitor) VisitContains(n q.ContainsNode) error {
	path := n.Collection()
	if n.IsKey() {
		path = path.Key()
	}
	pv, err := l.lowerPathNode(path)
	if err != nil {
		return err
	}
	if f := pv.lastField(); f == nil || !f.IsToMany() {
		return q.UserErrorf("%s is not a collection", pv)
	}
	element, err := l.lowerValue(n.Element())
	if err != nil {
		return err
	}
	l.exp = &containsExp{collection: pv, element: element}
	return nil
}

func (l *lowerVisitor) VisitBindVariable(n q.BindVariableNode) error {
	pv, err := l.lowerPathNode(n.Collection().Var(n.Variable()))
	if err != nil {
		return err
	}
	if f := pv.lastField(); f == nil || !f.IsToMany() {
		return q.UserErrorf("variable %s is bound to %s which is not a collection", n.Variable(), n.Collection())
	}
	l.exp = &bindVariableExp{variable: n.Variable(), collection: pv}
	return nil
}

func (l *lowerVisitor) VisitIn(n q.InNode) error {
	v, err := l.lowerValue(n.Value())
	if err != nil {
		return err
	}
	list, err := l.lowerValue(n.List())
	if err != nil {
		return err
	}
	switch list.(type) {
	case *literalValue, *paramValue:
	default:
		return q.UserErrorf("IN requires a constant list or a parameter")
	}
	l.exp = &inExp{value: v, list: list, not: n.IsNot()}
	return nil
}

func (l *lowerVisitor) VisitInSubQuery(n q.InSubQueryNode) error {
	v, err := l.lowerValue(n.Value())
	if err != nil {
		return err
	}
	if len(n.Query().Projections) != 1 {
		return q.UserErrorf("an IN subquery must select exactly one value")
	}
	cq, err := l.lowerQuery(n.Query())
	if err != nil {
		return err
	}
	l.exp = &inSubQueryExp{value: v, query: cq, not: n.IsNot()}
	return nil
}

func (l *lowerVisitor) VisitExists(n q.ExistsNode) error {
	cq, err := l.lowerQuery(n.Query())
	if err != nil {
		return err
	}
	l.exp = &existsExp{query: cq, not: n.IsNot()}
	return nil
}

func (l *lowerVisitor) VisitInstanceOf(n q.InstanceOfNode) error {
	pv, err := l.lowerPathNode(n.Path())
	if err != nil {
		return err
	}
	if pv.class == nil {
		return q.UserErrorf("%s is not an object", pv)
	}
	cls, err := l.compiler.classMapping(n.Class())
	if err != nil {
		return err
	}
	l.exp = &instanceOfExp{path: pv, class: cls, not: n.IsNot()}
	return nil
}

func (l *lowerVisitor) VisitLike(n q.LikeNode) error {
	v, err := l.lowerValue(n.Value())
	if err != nil {
		return err
	}
	pattern, err := l.lowerValue(n.Pattern())
	if err != nil {
		return err
	}
	if esc := n.EscapeChar(); len([]rune(esc)) > 1 {
		return q.UserErrorf("LIKE escape %q must be a single character", esc)
	}
	l.exp = &likeExp{
		value:      v,
		pattern:    pattern,
		escape:     n.EscapeChar(),
		ignoreCase: n.IsCaseInsensitive(),
		not:        n.IsNot(),
	}
	return nil
}

func (l *lowerVisitor) VisitIsEmpty(n q.IsEmptyNode) error {
	pv, err := l.lowerPathNode(n.Collection())
	if err != nil {
		return err
	}
	l.exp = &isEmptyExp{collection: pv, not: n.IsNot()}
	return nil
}

func (l *lowerVisitor) VisitValueExp(n q.ValueExpNode) error {
	v, err := l.lowerValue(n.Value())
	if err != nil {
		return err
	}
	l.exp = &valueExp{value: v}
	return nil
}
