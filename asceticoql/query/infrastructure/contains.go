package query

import (
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
)

// containsExp tests whether a collection holds a value. Each test joins
// the collection under its own variable so that two tests over the same
// collection may match different elements.
type containsExp struct {
	collection *pathValue
	element    value
}

func (c *containsExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	variable := ""
	if !c.collection.expr.EndsInVar() {
		variable = ctx.containsVariable(c.collection.String(), c.collection.lastField())
	}
	cst, err := c.collection.resolve(sel, ctx, 0, variable)
	if err != nil {
		return nil, err
	}
	est, err := c.element.initialize(sel, ctx, 0)
	if err != nil {
		return nil, err
	}
	st := newState(c, ctx, sel.And(cst.joins, est.joins))
	st.children = []*expState{cst, est}
	return st, nil
}

func (c *containsExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	cst, est := st.child(0), st.child(1)
	if err := c.element.calculateValue(sel, ctx, est, c.collection, cst); err != nil {
		return err
	}
	if err := c.collection.calculateValue(sel, ctx, cst, c.element, est); err != nil {
		return err
	}
	if isNull(c.element, est) {
		return c.collection.appendIsNull(sel, ctx, cst, buf, false)
	}
	cn, err := c.collection.length(sel, ctx, cst)
	if err != nil {
		return err
	}
	en, err := c.element.length(sel, ctx, est)
	if err != nil {
		return err
	}
	if cn != en {
		return q.UserErrorf("%s holds %d column values, got %d", c.collection, cn, en)
	}
	if cn > 1 {
		buf.Append("(")
	}
	for i := 0; i < cn; i++ {
		if i > 0 {
			buf.Append(" AND ")
		}
		if err := c.collection.appendTo(sel, ctx, cst, buf, i); err != nil {
			return err
		}
		buf.Append(" = ")
		if err := c.element.appendTo(sel, ctx, est, buf, i); err != nil {
			return err
		}
	}
	if cn > 1 {
		buf.Append(")")
	}
	return nil
}

func (c *containsExp) hasContains() bool {
	return true
}

// bindVariableExp joins a collection under a variable. Paths rooted at
// the variable reuse the join; the test itself renders nothing.
type bindVariableExp struct {
	variable   string
	collection *pathValue
}

func (b *bindVariableExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	cst, err := b.collection.initialize(sel, ctx, 0)
	if err != nil {
		return nil, err
	}
	st := newState(b, ctx, cst.joins)
	st.children = []*expState{cst}
	return st, nil
}

func (b *bindVariableExp) appendTo(_ *sql.Select, ctx *expContext, st *expState, _ *sql.Buffer) error {
	return check(b, ctx, st)
}

func (b *bindVariableExp) hasContains() bool {
	return true
}

// isEmptyExp counts the elements of a collection.
type isEmptyExp struct {
	collection *pathValue
	not        bool
}

func (e *isEmptyExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	cst, err := e.collection.initialize(sel, ctx, flagNullCmp)
	if err != nil {
		return nil, err
	}
	st := newState(e, ctx, cst.joins)
	st.children = []*expState{cst}
	return st, nil
}

func (e *isEmptyExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(e, ctx, st); err != nil {
		return err
	}
	cst := st.child(0)
	if !needsCount(cst.path.field, cst.path.key) {
		return e.collection.appendIsNull(sel, ctx, cst, buf, e.not)
	}
	return e.collection.appendIsEmpty(sel, ctx, cst, buf, e.not)
}
