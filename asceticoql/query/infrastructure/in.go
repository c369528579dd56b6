package query

import (
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// inExp tests a value against a constant list or a collection-valued
// parameter. Lists longer than the IN clause limit are split into
// groups.
type inExp struct {
	value value
	list  value
	not   bool
}

func (e *inExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	vst, err := e.value.initialize(sel, ctx, 0)
	if err != nil {
		return nil, err
	}
	lst, err := e.list.initialize(sel, ctx, 0)
	if err != nil {
		return nil, err
	}
	st := newState(e, ctx, vst.joins)
	st.children = []*expState{vst, lst}
	return st, nil
}

func (e *inExp) elements(st *expState) []any {
	v := st.child(1).value
	if elems, ok := types.Elements(v); ok {
		return elems
	}
	return []any{v}
}

// appendElement renders component j of element i of the list.
func (e *inExp) appendElement(ctx *expContext, buf *sql.Buffer, elem any, i, j int, col *mapping.Column) error {
	v := elem
	id, compound := elem.(types.ObjectID)
	if compound {
		if j >= len(id.Values) {
			return q.UserErrorf("IN element %d has %d key values, %d required", i, len(id.Values), j+1)
		}
		v = id.Values[j]
	}
	if p, ok := e.list.(*paramValue); ok {
		ref := p.ref.WithElement(i)
		if compound {
			ref = ref.WithComponent(j)
		}
		return appendPlaceholder(ctx, buf, v, col, func(b *sql.Buffer) { b.AppendParam(ref, v, col) })
	}
	cv, err := convertFor(v, col)
	if err != nil {
		return err
	}
	if ctx.compiler.inlineLiterals {
		if s, ok := ctx.dialect.Literal(cv); ok {
			buf.Append(s)
			return nil
		}
	}
	return appendPlaceholder(ctx, buf, cv, col, func(b *sql.Buffer) { b.AppendValue(cv, col) })
}

func (e *inExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(e, ctx, st); err != nil {
		return err
	}
	vst := st.child(0)
	if err := e.value.calculateValue(sel, ctx, vst, nil, nil); err != nil {
		return err
	}
	cols := comparedColumns(e.value, vst)
	n, err := e.value.length(sel, ctx, vst)
	if err != nil {
		return err
	}
	elems := e.elements(st)
	if len(elems) == 0 {
		if e.not {
			buf.Append(sqlTrue)
		} else {
			buf.Append(sqlFalse)
		}
		return nil
	}
	column := func(j int) *mapping.Column {
		if j < len(cols) {
			return cols[j]
		}
		return nil
	}

	if n > 1 {
		return e.appendCompound(sel, ctx, vst, buf, elems, n, column)
	}

	lhs := sql.NewBuffer()
	if err := e.value.appendTo(sel, ctx, vst, lhs, 0); err != nil {
		return err
	}
	limit := ctx.inClauseLimit()
	if limit <= 0 {
		limit = len(elems)
	}
	groups := (len(elems) + limit - 1) / limit
	op, join := " IN (", " OR "
	if e.not {
		op, join = " NOT IN (", " AND "
	}
	if groups > 1 {
		buf.Append("(")
	}
	for g := 0; g < groups; g++ {
		if g > 0 {
			buf.Append(join)
		}
		buf.AppendBuffer(lhs.Clone()).Append(op)
		end := min((g+1)*limit, len(elems))
		for i := g * limit; i < end; i++ {
			if i > g*limit {
				buf.Append(", ")
			}
			if err := e.appendElement(ctx, buf, elems[i], i, 0, column(0)); err != nil {
				return err
			}
		}
		buf.Append(")")
	}
	if groups > 1 {
		buf.Append(")")
	}
	return nil
}

// appendCompound renders ((a = ? AND b = ?) OR ...) for compound values.
func (e *inExp) appendCompound(sel *sql.Select, ctx *expContext, vst *expState, buf *sql.Buffer, elems []any, n int, column func(int) *mapping.Column) error {
	lhs := make([]*sql.Buffer, n)
	for j := range lhs {
		lhs[j] = sql.NewBuffer()
		if err := e.value.appendTo(sel, ctx, vst, lhs[j], j); err != nil {
			return err
		}
	}
	if e.not {
		buf.Append("NOT ")
	}
	buf.Append("(")
	for i, elem := range elems {
		id, ok := elem.(types.ObjectID)
		if !ok || len(id.Values) != n {
			return q.UserErrorf("IN element %d must be an object id of %d values", i, n)
		}
		if i > 0 {
			buf.Append(" OR ")
		}
		buf.Append("(")
		for j := 0; j < n; j++ {
			if j > 0 {
				buf.Append(" AND ")
			}
			buf.AppendBuffer(lhs[j].Clone()).Append(" = ")
			if err := e.appendElement(ctx, buf, elem, i, j, column(j)); err != nil {
				return err
			}
		}
		buf.Append(")")
	}
	buf.Append(")")
	return nil
}
