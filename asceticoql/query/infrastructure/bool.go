package query

import (
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
)

const (
	sqlTrue  = "1 = 1"
	sqlFalse = "1 <> 1"
)

// renderExp renders e into a new buffer.
func renderExp(sel *sql.Select, ctx *expContext, e expression, st *expState) (*sql.Buffer, error) {
	buf := sql.NewBuffer()
	if err := e.appendTo(sel, ctx, st, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

type andExp struct {
	left, right expression
}

func (a *andExp) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	lst, err := a.left.initialize(sel, ctx, fl)
	if err != nil {
		return nil, err
	}
	rst, err := a.right.initialize(sel, ctx, fl)
	if err != nil {
		return nil, err
	}
	st := newState(a, ctx, sel.And(lst.joins, rst.joins))
	st.children = []*expState{lst, rst}
	return st, nil
}

// appendTo skips operands rendering nothing, such as variable bindings.
func (a *andExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(a, ctx, st); err != nil {
		return err
	}
	lb, err := renderExp(sel, ctx, a.left, st.child(0))
	if err != nil {
		return err
	}
	rb, err := renderExp(sel, ctx, a.right, st.child(1))
	if err != nil {
		return err
	}
	switch {
	case lb.IsEmpty():
		appendOperand(buf, rb, true)
	case rb.IsEmpty():
		appendOperand(buf, lb, true)
	default:
		appendOperand(buf, lb, false)
		buf.Append(" AND ")
		appendOperand(buf, rb, false)
	}
	return nil
}

// appendOperand renders an AND operand, parenthesizing disjunctions
// unless the operand stands alone. A lone disjunction keeps buf a
// disjunction for the enclosing conjunction.
func appendOperand(buf *sql.Buffer, rendered *sql.Buffer, alone bool) {
	switch {
	case !rendered.IsDisjunction():
		buf.AppendBuffer(rendered)
	case alone:
		buf.AppendBuffer(rendered).MarkDisjunction()
	default:
		buf.Append("(").AppendBuffer(rendered).Append(")")
	}
}

func (a *andExp) hasContains() bool {
	return hasContains(a.left) || hasContains(a.right)
}

// orExp initializes each branch in its own context so contains tests of
// the branches navigate through distinct aliases.
type orExp struct {
	left, right expression
}

func (o *orExp) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	tag := ctx.nextTag()
	lctx, rctx := ctx.branch(tag+"l"), ctx.branch(tag+"r")
	lst, err := o.left.initialize(sel, lctx, fl)
	if err != nil {
		return nil, err
	}
	rst, err := o.right.initialize(sel, rctx, fl)
	if err != nil {
		return nil, err
	}
	ctx.merge(lctx, rctx)
	st := newState(o, ctx, sel.Or(lst.joins, rst.joins))
	st.children = []*expState{lst, rst}
	return st, nil
}

func (o *orExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(o, ctx, st); err != nil {
		return err
	}
	lb, err := renderExp(sel, ctx, o.left, st.child(0))
	if err != nil {
		return err
	}
	rb, err := renderExp(sel, ctx, o.right, st.child(1))
	if err != nil {
		return err
	}
	if lb.IsEmpty() {
		lb.Append(sqlTrue)
	}
	if rb.IsEmpty() {
		rb.Append(sqlTrue)
	}
	buf.AppendBuffer(lb).Append(" OR ").AppendBuffer(rb).MarkDisjunction()
	return nil
}

func (o *orExp) hasContains() bool {
	return hasContains(o.left) || hasContains(o.right)
}

// notExp negates its operand. A negated contains test becomes a count of
// candidate rows matching it, so every element is checked rather than
// one.
type notExp struct {
	operand expression
}

func (n *notExp) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	if !hasContains(n.operand) {
		ost, err := n.operand.initialize(sel, ctx, fl)
		if err != nil {
			return nil, err
		}
		st := newState(n, ctx, ost.joins)
		st.children = []*expState{ost}
		return st, nil
	}

	sub := sel.NewSubselect().SetRoot(sel.RootTable(), sel.SchemaAlias())
	ost, err := n.operand.initialize(sub, ctx, fl)
	if err != nil {
		return nil, err
	}
	cond, err := renderExp(sub, ctx, n.operand, ost)
	if err != nil {
		return nil, err
	}
	sub.Where(cond, ost.joins)
	corr := sql.NewBuffer()
	for i, pk := range sel.RootTable().PrimaryKey {
		if i > 0 {
			corr.Append(" AND ")
		}
		corr.AppendColumn(sub.RootAlias(), pk).Append(" = ").AppendColumn(sel.RootAlias(), pk)
	}
	sub.Where(corr, sub.NewJoins())
	sub.Select(sql.NewBuffer().Append("COUNT(*)"), sub.NewJoins())

	st := newState(n, ctx, sel.NewJoins())
	st.sub = sub
	return st, nil
}

func (n *notExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(n, ctx, st); err != nil {
		return err
	}
	if st.sub != nil {
		buf.Append("0 = (").AppendBuffer(st.sub.Render()).Append(")")
		return nil
	}
	ob, err := renderExp(sel, ctx, n.operand, st.child(0))
	if err != nil {
		return err
	}
	if ob.IsEmpty() {
		buf.Append(sqlFalse)
		return nil
	}
	buf.Append("NOT (").AppendBuffer(ob).Append(")")
	return nil
}

type constExp struct {
	value bool
}

func (c *constExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	return newState(c, ctx, sel.NewJoins()), nil
}

func (c *constExp) appendTo(_ *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	if c.value {
		buf.Append(sqlTrue)
	} else {
		buf.Append(sqlFalse)
	}
	return nil
}

// valueExp tests a boolean value.
type valueExp struct {
	value value
}

func (v *valueExp) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	vst, err := v.value.initialize(sel, ctx, fl)
	if err != nil {
		return nil, err
	}
	st := newState(v, ctx, vst.joins)
	st.children = []*expState{vst}
	return st, nil
}

func (v *valueExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(v, ctx, st); err != nil {
		return err
	}
	vb, err := render(sel, ctx, v.value, st.child(0), nil, nil)
	if err != nil {
		return err
	}
	buf.AppendBuffer(vb).Append(" = " + ctx.dialect.BoolLiteral(true))
	return nil
}
