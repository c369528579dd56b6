package query

import (
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

type caseWhen struct {
	cond   expression
	match  value
	result value
}

// caseValue is a simple CASE when operand is set, a searched one
// otherwise. Children are stored as operand, else, then per branch the
// condition or match followed by the result.
type caseValue struct {
	operand   value
	whens     []caseWhen
	otherwise value
}

func (c *caseValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(c, sel, ctx, fl, c.operand, c.otherwise)
	if err != nil {
		return nil, err
	}
	kind := types.KindUnknown
	if c.otherwise != nil {
		kind = st.child(1).kind
	}
	for _, w := range c.whens {
		var test *expState
		if w.cond != nil {
			test, err = w.cond.initialize(sel, ctx, fl)
		} else {
			test, err = w.match.initialize(sel, ctx, fl)
		}
		if err != nil {
			return nil, err
		}
		res, err := w.result.initialize(sel, ctx, fl)
		if err != nil {
			return nil, err
		}
		st.children = append(st.children, test, res)
		st.joins = sel.And(st.joins, sel.And(test.joins, res.joins))
		promoted, ok := types.Promote(kind, res.kind)
		if !ok {
			return nil, q.UserErrorf("CASE branches of kinds %s and %s", kind, res.kind)
		}
		kind = promoted
	}
	st.kind = kind
	return st, nil
}

func (c *caseValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, other value, otherState *expState) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	if c.operand != nil {
		if err := c.operand.calculateValue(sel, ctx, st.child(0), nil, nil); err != nil {
			return err
		}
	}
	if c.otherwise != nil {
		if err := c.otherwise.calculateValue(sel, ctx, st.child(1), other, otherState); err != nil {
			return err
		}
	}
	for i, w := range c.whens {
		if w.match != nil {
			if err := w.match.calculateValue(sel, ctx, st.child(2+2*i), c.operand, st.child(0)); err != nil {
				return err
			}
		}
		if err := w.result.calculateValue(sel, ctx, st.child(3+2*i), other, otherState); err != nil {
			return err
		}
	}
	return nil
}

func (c *caseValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(c, ctx, st)
}

func (c *caseValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	buf.Append("CASE")
	if c.operand != nil {
		buf.Append(" ")
		if err := appendScalar(sel, ctx, c.operand, st.child(0), buf); err != nil {
			return err
		}
	}
	for i, w := range c.whens {
		buf.Append(" WHEN ")
		test := st.child(2 + 2*i)
		var err error
		if w.cond != nil {
			err = w.cond.appendTo(sel, ctx, test, buf)
		} else {
			err = appendScalar(sel, ctx, w.match, test, buf)
		}
		if err != nil {
			return err
		}
		buf.Append(" THEN ")
		if err := appendScalar(sel, ctx, w.result, st.child(3+2*i), buf); err != nil {
			return err
		}
	}
	if c.otherwise != nil {
		buf.Append(" ELSE ")
		if err := appendScalar(sel, ctx, c.otherwise, st.child(1), buf); err != nil {
			return err
		}
	}
	buf.Append(" END")
	return nil
}

// coalesceValue is the first of its values that is not NULL.
type coalesceValue struct {
	values []value
}

func (c *coalesceValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(c, sel, ctx, fl, c.values...)
	if err != nil {
		return nil, err
	}
	kind := types.KindUnknown
	for _, ch := range st.children {
		promoted, ok := types.Promote(kind, ch.kind)
		if !ok {
			return nil, q.UserErrorf("COALESCE of kinds %s and %s", kind, ch.kind)
		}
		kind = promoted
	}
	st.kind = kind
	return st, nil
}

func (c *coalesceValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, other value, otherState *expState) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	for i, v := range c.values {
		if err := v.calculateValue(sel, ctx, st.child(i), other, otherState); err != nil {
			return err
		}
	}
	return nil
}

func (c *coalesceValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(c, ctx, st)
}

func (c *coalesceValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	buf.Append("COALESCE(")
	for i, v := range c.values {
		if i > 0 {
			buf.Append(", ")
		}
		if err := appendScalar(sel, ctx, v, st.child(i), buf); err != nil {
			return err
		}
	}
	buf.Append(")")
	return nil
}

// nullIfValue is NULL when both values are equal, left otherwise.
type nullIfValue struct {
	left, right value
}

func (n *nullIfValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(n, sel, ctx, fl, n.left, n.right)
	if err != nil {
		return nil, err
	}
	st.kind = st.child(0).kind
	return st, nil
}

func (n *nullIfValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(n, ctx, st); err != nil {
		return err
	}
	if err := n.left.calculateValue(sel, ctx, st.child(0), n.right, st.child(1)); err != nil {
		return err
	}
	return n.right.calculateValue(sel, ctx, st.child(1), n.left, st.child(0))
}

func (n *nullIfValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(n, ctx, st)
}

func (n *nullIfValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(n, ctx, st); err != nil {
		return err
	}
	buf.Append("NULLIF(")
	if err := appendScalar(sel, ctx, n.left, st.child(0), buf); err != nil {
		return err
	}
	buf.Append(", ")
	if err := appendScalar(sel, ctx, n.right, st.child(1), buf); err != nil {
		return err
	}
	buf.Append(")")
	return nil
}
