package query

import (
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/query/domain/operators"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// staticNull reports whether v is NULL before initialization, so the
// other side can skip joining the compared relation.
func staticNull(ctx *expContext, v value) bool {
	switch x := v.(type) {
	case *literalValue:
		return x.value == nil
	case *paramValue:
		val, ok := ctx.params[x.ref.Key]
		return ok && val == nil
	}
	return false
}

// appendIsNull renders an IS [NOT] NULL test of every column of v.
func appendIsNull(sel *sql.Select, ctx *expContext, v value, st *expState, buf *sql.Buffer, negate bool) error {
	if p, ok := v.(*pathValue); ok {
		return p.appendIsNull(sel, ctx, st, buf, negate)
	}
	n, err := v.length(sel, ctx, st)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.Append(" AND ")
		}
		if err := v.appendTo(sel, ctx, st, buf, i); err != nil {
			return err
		}
		if negate {
			buf.Append(" IS NOT NULL")
		} else {
			buf.Append(" IS NULL")
		}
	}
	return nil
}

// compareExp is a binary comparison. NULL operands turn equality into
// IS [NOT] NULL tests and compound values compare column by column.
type compareExp struct {
	op          operators.Operator
	left, right value
}

func (c *compareExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	var lf, rf flags
	if staticNull(ctx, c.right) {
		lf = flagNullCmp
	}
	if staticNull(ctx, c.left) {
		rf = flagNullCmp
	}
	lst, err := c.left.initialize(sel, ctx, lf)
	if err != nil {
		return nil, err
	}
	rst, err := c.right.initialize(sel, ctx, rf)
	if err != nil {
		return nil, err
	}
	if lst.kind.IsScalar() && rst.kind.IsScalar() {
		if _, ok := types.Promote(lst.kind, rst.kind); !ok {
			return nil, q.UserErrorf("cannot compare %s with %s", lst.kind, rst.kind)
		}
	}
	st := newState(c, ctx, sel.And(lst.joins, rst.joins))
	st.children = []*expState{lst, rst}
	return st, nil
}

func (c *compareExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(c, ctx, st); err != nil {
		return err
	}
	lst, rst := st.child(0), st.child(1)
	if err := c.left.calculateValue(sel, ctx, lst, c.right, rst); err != nil {
		return err
	}
	if err := c.right.calculateValue(sel, ctx, rst, c.left, lst); err != nil {
		return err
	}

	lnull, rnull := isNull(c.left, lst), isNull(c.right, rst)
	switch {
	case lnull && rnull:
		if c.op == operators.OperatorEq {
			buf.Append(sqlTrue)
		} else {
			buf.Append(sqlFalse)
		}
		return nil
	case lnull || rnull:
		v, vst := c.left, lst
		if lnull {
			v, vst = c.right, rst
		}
		switch c.op {
		case operators.OperatorEq:
			return appendIsNull(sel, ctx, v, vst, buf, false)
		case operators.OperatorNe:
			return appendIsNull(sel, ctx, v, vst, buf, true)
		}
		buf.Append(sqlFalse)
		return nil
	}

	ln, err := c.left.length(sel, ctx, lst)
	if err != nil {
		return err
	}
	rn, err := c.right.length(sel, ctx, rst)
	if err != nil {
		return err
	}
	if ln != rn {
		return q.UserErrorf("cannot compare %d columns with %d", ln, rn)
	}
	if ln == 1 {
		return c.appendPair(sel, ctx, lst, rst, buf, 0)
	}
	join := " AND "
	switch c.op {
	case operators.OperatorEq:
	case operators.OperatorNe:
		join = " OR "
	default:
		return q.UserErrorf("%s is not defined for compound values", c.op)
	}
	buf.Append("(")
	for i := 0; i < ln; i++ {
		if i > 0 {
			buf.Append(join)
		}
		if err := c.appendPair(sel, ctx, lst, rst, buf, i); err != nil {
			return err
		}
	}
	buf.Append(")")
	return nil
}

func (c *compareExp) appendPair(sel *sql.Select, ctx *expContext, lst, rst *expState, buf *sql.Buffer, i int) error {
	if err := c.left.appendTo(sel, ctx, lst, buf, i); err != nil {
		return err
	}
	buf.Append(" " + string(c.op) + " ")
	return c.right.appendTo(sel, ctx, rst, buf, i)
}
