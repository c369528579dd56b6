package query

import (
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
)

// buildSubselect assembles query as a select nested in sel.
func buildSubselect(sel *sql.Select, ctx *expContext, query *compiledQuery) (*selection, error) {
	sub := sel.NewSubselect()
	return ctx.compiler.buildSelect(sub, ctx, query, false)
}

// subQueryValue is a scalar subquery.
type subQueryValue struct {
	query *compiledQuery
}

func (s *subQueryValue) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	built, err := buildSubselect(sel, ctx, s.query)
	if err != nil {
		return nil, err
	}
	if len(built.kinds) != 1 || len(built.sel.Items()) != 1 {
		return nil, q.UserErrorf("subquery over %s must select exactly one column", s.query.alias)
	}
	st := newState(s, ctx, sel.NewJoins())
	st.sub = built.sel
	st.kind = built.kinds[0]
	return st, nil
}

func (s *subQueryValue) calculateValue(_ *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	return check(s, ctx, st)
}

func (s *subQueryValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(s, ctx, st)
}

func (s *subQueryValue) appendTo(_ *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(s, ctx, st); err != nil {
		return err
	}
	buf.Append("(").AppendBuffer(st.sub.Render()).Append(")")
	return nil
}

// inSubQueryExp tests a single column value against a subquery.
type inSubQueryExp struct {
	value value
	query *compiledQuery
	not   bool
}

func (e *inSubQueryExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	vst, err := e.value.initialize(sel, ctx, 0)
	if err != nil {
		return nil, err
	}
	built, err := buildSubselect(sel, ctx, e.query)
	if err != nil {
		return nil, err
	}
	st := newState(e, ctx, vst.joins)
	st.children = []*expState{vst}
	st.sub = built.sel
	return st, nil
}

func (e *inSubQueryExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(e, ctx, st); err != nil {
		return err
	}
	vst := st.child(0)
	if err := e.value.calculateValue(sel, ctx, vst, nil, nil); err != nil {
		return err
	}
	n, err := e.value.length(sel, ctx, vst)
	if err != nil {
		return err
	}
	if n != 1 {
		return q.UserErrorf("IN subquery requires a single column value, got %d columns", n)
	}
	if err := e.value.appendTo(sel, ctx, vst, buf, 0); err != nil {
		return err
	}
	if e.not {
		buf.Append(" NOT")
	}
	buf.Append(" IN (").AppendBuffer(st.sub.Render()).Append(")")
	return nil
}

// existsExp counts the rows of a subquery.
type existsExp struct {
	query *compiledQuery
	not   bool
}

func (e *existsExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	built, err := buildSubselect(sel, ctx, e.query)
	if err != nil {
		return nil, err
	}
	st := newState(e, ctx, sel.NewJoins())
	st.sub = built.sel
	return st, nil
}

func (e *existsExp) appendTo(_ *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(e, ctx, st); err != nil {
		return err
	}
	if e.not {
		buf.Append("0 = ")
	} else {
		buf.Append("0 < ")
	}
	sub := st.sub
	sub.ClearOrderBy()
	if sub.IsGrouped() {
		buf.Append("(SELECT COUNT(*) FROM (").AppendBuffer(sub.Render()).Append(") grp)")
		return nil
	}
	sub.ClearItems()
	sub.SetDistinct(false)
	sub.Select(sql.NewBuffer().Append("COUNT(*)"), sub.NewJoins())
	buf.Append("(").AppendBuffer(sub.Render()).Append(")")
	return nil
}
