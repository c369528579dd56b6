package query

import (
	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/query/domain/operators"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// initChildren initializes the operands of a composite node and ANDs
// their joins. Nil operands are skipped.
func initChildren(owner any, sel *sql.Select, ctx *expContext, fl flags, vs ...value) (*expState, error) {
	joins := sel.NewJoins()
	children := make([]*expState, len(vs))
	for i, v := range vs {
		if v == nil {
			continue
		}
		st, err := v.initialize(sel, ctx, fl)
		if err != nil {
			return nil, err
		}
		children[i] = st
		joins = sel.And(joins, st.joins)
	}
	st := newState(owner, ctx, joins)
	st.children = children
	return st, nil
}

// calculateChildren calculates every operand on its own.
func calculateChildren(sel *sql.Select, ctx *expContext, st *expState, vs ...value) error {
	for i, v := range vs {
		if v == nil {
			continue
		}
		if err := v.calculateValue(sel, ctx, st.child(i), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// appendTemplate renders the operands as function arguments into the
// dialect template for f.
func appendTemplate(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, f dialect.Func, vs ...value) error {
	tmpl, err := ctx.dialect.Template(f)
	if err != nil {
		return err
	}
	args := make([]*sql.Buffer, 0, len(vs))
	for i, v := range vs {
		if v == nil {
			continue
		}
		arg := sql.NewBuffer()
		if err := appendArg(sel, ctx, v, st.child(i), arg); err != nil {
			return err
		}
		args = append(args, arg)
	}
	return buf.AppendTemplate(tmpl, args...)
}

func scalarLength(owner any, ctx *expContext, st *expState) (int, error) {
	if err := check(owner, ctx, st); err != nil {
		return 0, err
	}
	return 1, nil
}

// literalValue is a constant. It binds as a parameter unless literals
// are inlined and the dialect can render it.
type literalValue struct {
	value any
	kind  types.Kind
}

func newLiteral(v any) *literalValue {
	return &literalValue{value: v, kind: types.KindOf(v)}
}

func (l *literalValue) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	st := newState(l, ctx, sel.NewJoins())
	st.kind = l.kind
	st.value = l.value
	return st, nil
}

// calculateValue adopts the columns of the compared value so the literal
// binds with their types.
func (l *literalValue) calculateValue(_ *sql.Select, ctx *expContext, st *expState, other value, otherState *expState) error {
	if err := check(l, ctx, st); err != nil {
		return err
	}
	if other != nil && otherState != nil {
		st.columns = comparedColumns(other, otherState)
	}
	return nil
}

func (l *literalValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	if err := check(l, ctx, st); err != nil {
		return 0, err
	}
	if id, ok := l.value.(types.ObjectID); ok {
		return len(id.Values), nil
	}
	if _, ok := types.Elements(l.value); ok {
		return 0, q.WrapUser(q.ErrCollectionUsed, "literal")
	}
	return 1, nil
}

func (l *literalValue) component(st *expState, index int) (any, error) {
	v := l.value
	if id, ok := v.(types.ObjectID); ok {
		if index >= len(id.Values) {
			return nil, q.Invariantf(nil, "component %d of %d requested", index, len(id.Values))
		}
		v = id.Values[index]
	}
	return convertFor(v, st.column(index))
}

// convertFor converts v to the kind of the column it is compared with.
// Numbers wider than the column keep their kind.
func convertFor(v any, col *mapping.Column) (any, error) {
	if v == nil || col == nil || col.Kind == types.KindUnknown || !col.Kind.IsScalar() {
		return v, nil
	}
	out, err := types.Coerce(v, col.Kind)
	if err != nil {
		return nil, q.WrapUser(err, "value incompatible with column "+col.String())
	}
	return out, nil
}

// appendPlaceholder writes the placeholder bind appends. A number wider
// than col is cast to its own kind on dialects typing parameters from
// their context, so the server does not narrow it to the column type.
func appendPlaceholder(ctx *expContext, buf *sql.Buffer, v any, col *mapping.Column, bind func(*sql.Buffer)) error {
	kind := types.KindOf(v)
	if col == nil || !types.Narrows(kind, col.Kind) || !ctx.dialect.CastsParameters() {
		bind(buf)
		return nil
	}
	typ, err := ctx.dialect.CastType(kind)
	if err != nil {
		return err
	}
	tmpl, err := ctx.dialect.Template(dialect.FuncCast)
	if err != nil {
		return err
	}
	ph := sql.NewBuffer()
	bind(ph)
	return buf.AppendTemplate(tmpl, ph, sql.NewBuffer().Append(typ))
}

func (l *literalValue) appendTo(_ *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, index int) error {
	if err := check(l, ctx, st); err != nil {
		return err
	}
	if l.value == nil {
		buf.Append("NULL")
		return nil
	}
	v, err := l.component(st, index)
	if err != nil {
		return err
	}
	if ctx.compiler.inlineLiterals {
		if s, ok := ctx.dialect.Literal(v); ok {
			buf.Append(s)
			return nil
		}
	}
	col := st.column(index)
	return appendPlaceholder(ctx, buf, v, col, func(b *sql.Buffer) { b.AppendValue(v, col) })
}

func (l *literalValue) isBound(ctx *expContext, st *expState) bool {
	if l.value == nil {
		return false
	}
	if !ctx.compiler.inlineLiterals {
		return true
	}
	_, ok := ctx.dialect.Literal(l.value)
	return !ok
}

// paramValue is an execution-time parameter. Its compile-time value
// decides its shape: object ids bind per component.
type paramValue struct {
	ref sql.ParamRef
}

func (p *paramValue) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	v, err := ctx.param(p.ref.Key)
	if err != nil {
		return nil, err
	}
	st := newState(p, ctx, sel.NewJoins())
	st.value = v
	st.kind = types.KindOf(v)
	return st, nil
}

func (p *paramValue) calculateValue(_ *sql.Select, ctx *expContext, st *expState, other value, otherState *expState) error {
	if err := check(p, ctx, st); err != nil {
		return err
	}
	if other != nil && otherState != nil {
		st.columns = comparedColumns(other, otherState)
	}
	return nil
}

func (p *paramValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	if err := check(p, ctx, st); err != nil {
		return 0, err
	}
	if id, ok := st.value.(types.ObjectID); ok {
		return len(id.Values), nil
	}
	if _, ok := types.Elements(st.value); ok {
		return 0, q.WrapUser(q.ErrCollectionUsed, p.ref.String())
	}
	return 1, nil
}

func (p *paramValue) appendTo(_ *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, index int) error {
	if err := check(p, ctx, st); err != nil {
		return err
	}
	if id, ok := st.value.(types.ObjectID); ok {
		if index >= len(id.Values) {
			return q.Invariantf(nil, "component %d of %s requested", index, p.ref)
		}
		col := st.column(index)
		return appendPlaceholder(ctx, buf, id.Values[index], col, func(b *sql.Buffer) {
			b.AppendParam(p.ref.WithComponent(index), id.Values[index], col)
		})
	}
	if _, ok := types.Elements(st.value); ok {
		return q.WrapUser(q.ErrCollectionUsed, p.ref.String())
	}
	col := st.column(index)
	return appendPlaceholder(ctx, buf, st.value, col, func(b *sql.Buffer) { b.AppendParam(p.ref, st.value, col) })
}

func (p *paramValue) isBound(*expContext, *expState) bool {
	return true
}

// arithValue renders (left op right), or the modulo template.
type arithValue struct {
	op          operators.Operator
	left, right value
}

func (a *arithValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(a, sel, ctx, fl, a.left, a.right)
	if err != nil {
		return nil, err
	}
	kind, ok := types.Promote(st.child(0).kind, st.child(1).kind)
	if !ok {
		return nil, q.UserErrorf("cannot apply %s to %s and %s", a.op, st.child(0).kind, st.child(1).kind)
	}
	st.kind = kind
	return st, nil
}

func (a *arithValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(a, ctx, st); err != nil {
		return err
	}
	if err := a.left.calculateValue(sel, ctx, st.child(0), a.right, st.child(1)); err != nil {
		return err
	}
	return a.right.calculateValue(sel, ctx, st.child(1), a.left, st.child(0))
}

func (a *arithValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(a, ctx, st)
}

func (a *arithValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(a, ctx, st); err != nil {
		return err
	}
	if a.op == operators.OperatorMod {
		return appendTemplate(sel, ctx, st, buf, dialect.FuncMod, a.left, a.right)
	}
	buf.Append("(")
	if err := appendArg(sel, ctx, a.left, st.child(0), buf); err != nil {
		return err
	}
	buf.Append(" " + string(a.op) + " ")
	if err := appendArg(sel, ctx, a.right, st.child(1), buf); err != nil {
		return err
	}
	buf.Append(")")
	return nil
}

var funcTemplates = map[q.Func]dialect.Func{
	q.FuncAbs:    dialect.FuncAbs,
	q.FuncSqrt:   dialect.FuncSqrt,
	q.FuncLower:  dialect.FuncLower,
	q.FuncUpper:  dialect.FuncUpper,
	q.FuncLength: dialect.FuncLength,
}

// funcValue is a single-argument scalar function.
type funcValue struct {
	fn  q.Func
	arg value
}

func (f *funcValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(f, sel, ctx, fl, f.arg)
	if err != nil {
		return nil, err
	}
	switch f.fn {
	case q.FuncSqrt:
		st.kind = types.KindFloat
	case q.FuncLower, q.FuncUpper:
		st.kind = types.KindString
	case q.FuncLength:
		st.kind = types.KindInt
	default:
		st.kind = st.child(0).kind
	}
	return st, nil
}

func (f *funcValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(f, ctx, st); err != nil {
		return err
	}
	return calculateChildren(sel, ctx, st, f.arg)
}

func (f *funcValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(f, ctx, st)
}

func (f *funcValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(f, ctx, st); err != nil {
		return err
	}
	if f.fn == q.FuncNeg {
		buf.Append("(-")
		if err := appendArg(sel, ctx, f.arg, st.child(0), buf); err != nil {
			return err
		}
		buf.Append(")")
		return nil
	}
	tmpl, ok := funcTemplates[f.fn]
	if !ok {
		return q.Unsupported(string(f.fn), ctx.dialect.Name())
	}
	return appendTemplate(sel, ctx, st, buf, tmpl, f.arg)
}

// concatValue joins two strings.
type concatValue struct {
	left, right value
}

func (c *concatValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(c, sel, ctx, fl, c.left, c.right)
	if err != nil {
		return nil, err
	}
	st.kind = types.KindString
	return st, nil
}

func (c *concatValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	return calculateChildren(sel, ctx, st, c.left, c.right)
}

func (c *concatValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(c, ctx, st)
}

func (c *concatValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	return appendTemplate(sel, ctx, st, buf, dialect.FuncConcat, c.left, c.right)
}

// substringValue takes length characters from the 1-based start, or the
// rest of the string when length is nil.
type substringValue struct {
	str, start, count value
}

func (s *substringValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(s, sel, ctx, fl, s.str, s.start, s.count)
	if err != nil {
		return nil, err
	}
	st.kind = types.KindString
	return st, nil
}

func (s *substringValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(s, ctx, st); err != nil {
		return err
	}
	return calculateChildren(sel, ctx, st, s.str, s.start, s.count)
}

func (s *substringValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(s, ctx, st)
}

func (s *substringValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(s, ctx, st); err != nil {
		return err
	}
	if s.count == nil {
		return appendTemplate(sel, ctx, st, buf, dialect.FuncSubstringFrom, s.str, s.start)
	}
	return appendTemplate(sel, ctx, st, buf, dialect.FuncSubstring, s.str, s.start, s.count)
}

var trimTemplates = map[q.TrimSpec][2]dialect.Func{
	q.TrimBoth:     {dialect.FuncTrimBoth, dialect.FuncTrimBothChar},
	q.TrimLeading:  {dialect.FuncTrimLeading, dialect.FuncTrimLeadingChar},
	q.TrimTrailing: {dialect.FuncTrimTrailing, dialect.FuncTrimTrailingChar},
}

// trimValue strips whitespace, or char when set.
type trimValue struct {
	str  value
	spec q.TrimSpec
	char value
}

func (t *trimValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(t, sel, ctx, fl, t.str, t.char)
	if err != nil {
		return nil, err
	}
	st.kind = types.KindString
	return st, nil
}

func (t *trimValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(t, ctx, st); err != nil {
		return err
	}
	return calculateChildren(sel, ctx, st, t.str, t.char)
}

func (t *trimValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(t, ctx, st)
}

func (t *trimValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(t, ctx, st); err != nil {
		return err
	}
	fns := trimTemplates[t.spec]
	if t.char == nil {
		return appendTemplate(sel, ctx, st, buf, fns[0], t.str)
	}
	return appendTemplate(sel, ctx, st, buf, fns[1], t.str, t.char)
}

// indexOfValue is the 1-based position of sub in str, 0 when absent.
type indexOfValue struct {
	str, sub, start value
}

func (x *indexOfValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(x, sel, ctx, fl, x.str, x.sub, x.start)
	if err != nil {
		return nil, err
	}
	st.kind = types.KindInt
	return st, nil
}

func (x *indexOfValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(x, ctx, st); err != nil {
		return err
	}
	return calculateChildren(sel, ctx, st, x.str, x.sub, x.start)
}

func (x *indexOfValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(x, ctx, st)
}

func (x *indexOfValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(x, ctx, st); err != nil {
		return err
	}
	if x.start == nil {
		return appendTemplate(sel, ctx, st, buf, dialect.FuncLocate, x.str, x.sub)
	}
	return appendTemplate(sel, ctx, st, buf, dialect.FuncLocateFrom, x.str, x.sub, x.start)
}

var currentTemplates = map[q.Current]dialect.Func{
	q.CurrentDate:      dialect.FuncCurrentDate,
	q.CurrentTime:      dialect.FuncCurrentTime,
	q.CurrentTimestamp: dialect.FuncCurrentTimestamp,
}

type currentValue struct {
	what q.Current
}

func (c *currentValue) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	st := newState(c, ctx, sel.NewJoins())
	st.kind = types.KindTime
	return st, nil
}

func (c *currentValue) calculateValue(_ *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	return check(c, ctx, st)
}

func (c *currentValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(c, ctx, st)
}

func (c *currentValue) appendTo(_ *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	tmpl, err := ctx.dialect.Template(currentTemplates[c.what])
	if err != nil {
		return err
	}
	buf.Append(tmpl)
	return nil
}

// castValue converts its argument with CAST(v AS type).
type castValue struct {
	arg  value
	kind types.Kind
}

func (c *castValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(c, sel, ctx, fl, c.arg)
	if err != nil {
		return nil, err
	}
	st.kind = c.kind
	return st, nil
}

func (c *castValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	return calculateChildren(sel, ctx, st, c.arg)
}

func (c *castValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(c, ctx, st)
}

func (c *castValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	arg := sql.NewBuffer()
	if err := appendScalar(sel, ctx, c.arg, st.child(0), arg); err != nil {
		return err
	}
	return appendCast(ctx, buf, arg, c.kind)
}

// sizeValue counts the elements of a collection.
type sizeValue struct {
	path *pathValue
}

func (s *sizeValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(s, sel, ctx, fl|flagNullCmp, s.path)
	if err != nil {
		return nil, err
	}
	st.kind = types.KindInt
	return st, nil
}

func (s *sizeValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(s, ctx, st); err != nil {
		return err
	}
	return calculateChildren(sel, ctx, st, s.path)
}

func (s *sizeValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(s, ctx, st)
}

func (s *sizeValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(s, ctx, st); err != nil {
		return err
	}
	count, err := s.path.countSubselect(sel, ctx, st.child(0))
	if err != nil {
		return err
	}
	buf.AppendBuffer(count)
	return nil
}
