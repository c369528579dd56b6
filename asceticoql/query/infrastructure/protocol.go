package query

import (
	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// value is a compiled value node. initialize discovers joins and returns
// the state every later call of the same pass must be given.
// calculateValue runs right before appendTo and length and may adapt the
// rendering to the value it is compared with.
type value interface {
	initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error)
	calculateValue(sel *sql.Select, ctx *expContext, st *expState, other value, otherState *expState) error
	appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, index int) error
	length(sel *sql.Select, ctx *expContext, st *expState) (int, error)
}

// expression is a compiled predicate.
type expression interface {
	initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error)
	appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error
}

// columnar values render stored columns.
type columnar interface {
	columns(st *expState) []*mapping.Column
}

// bound values may render as placeholders.
type bound interface {
	isBound(ctx *expContext, st *expState) bool
}

// containsTest is implemented by predicates whose subtree tests
// collection membership.
type containsTest interface {
	hasContains() bool
}

func hasContains(e expression) bool {
	c, ok := e.(containsTest)
	return ok && c.hasContains()
}

// comparedColumns returns the columns of v when it renders stored
// columns.
func comparedColumns(v value, st *expState) []*mapping.Column {
	if c, ok := v.(columnar); ok {
		return c.columns(st)
	}
	return nil
}

// isNull reports whether v is statically NULL after calculateValue.
func isNull(v value, st *expState) bool {
	switch x := v.(type) {
	case *literalValue:
		return x.value == nil
	case *paramValue:
		return st.value == nil
	}
	return false
}

// appendAll renders every element of v separated by ", ".
func appendAll(sel *sql.Select, ctx *expContext, v value, st *expState, buf *sql.Buffer) error {
	n, err := v.length(sel, ctx, st)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.Append(", ")
		}
		if err := v.appendTo(sel, ctx, st, buf, i); err != nil {
			return err
		}
	}
	return nil
}

// appendScalar renders a single element value, failing for compound
// ones.
func appendScalar(sel *sql.Select, ctx *expContext, v value, st *expState, buf *sql.Buffer) error {
	n, err := v.length(sel, ctx, st)
	if err != nil {
		return err
	}
	if n != 1 {
		return q.UserErrorf("a single column value is required, got %d columns", n)
	}
	return v.appendTo(sel, ctx, st, buf, 0)
}

// appendArg renders a function argument. Bound parameters get an
// explicit cast on dialects that cannot type them.
func appendArg(sel *sql.Select, ctx *expContext, v value, st *expState, buf *sql.Buffer) error {
	b, ok := v.(bound)
	if !ok || !b.isBound(ctx, st) || !ctx.dialect.CastsParameters() || !st.kind.IsScalar() || st.kind == types.KindUnknown || st.kind == types.KindNull {
		return appendScalar(sel, ctx, v, st, buf)
	}
	arg := sql.NewBuffer()
	if err := appendScalar(sel, ctx, v, st, arg); err != nil {
		return err
	}
	return appendCast(ctx, buf, arg, st.kind)
}

func appendCast(ctx *expContext, buf, arg *sql.Buffer, kind types.Kind) error {
	tmpl, err := ctx.dialect.Template(dialect.FuncCast)
	if err != nil {
		return err
	}
	typ, err := ctx.dialect.CastType(kind)
	if err != nil {
		return err
	}
	return buf.AppendTemplate(tmpl, arg, sql.NewBuffer().Append(typ))
}

// render calculates v against other and renders it into a new buffer.
func render(sel *sql.Select, ctx *expContext, v value, st *expState, other value, otherState *expState) (*sql.Buffer, error) {
	if err := v.calculateValue(sel, ctx, st, other, otherState); err != nil {
		return nil, err
	}
	buf := sql.NewBuffer()
	if err := appendScalar(sel, ctx, v, st, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// loader decodes the columns selected for a projection.
type loader func(row []any) (any, error)

// selectValue adds v to the select list and returns its loader.
func selectValue(sel *sql.Select, ctx *expContext, v value, st *expState) (loader, error) {
	if p, ok := v.(*pathValue); ok {
		return p.selectColumns(sel, ctx, st)
	}
	if err := v.calculateValue(sel, ctx, st, nil, nil); err != nil {
		return nil, err
	}
	n, err := v.length(sel, ctx, st)
	if err != nil {
		return nil, err
	}
	pos := make([]int, n)
	for i := 0; i < n; i++ {
		buf := sql.NewBuffer()
		if err := v.appendTo(sel, ctx, st, buf, i); err != nil {
			return nil, err
		}
		pos[i] = sel.Select(buf, st.joins)
	}
	if a, ok := v.(*aggregateValue); ok {
		return a.loader(ctx, st, pos), nil
	}
	kind := st.kind
	return func(row []any) (any, error) {
		if n == 1 {
			return loadColumn(row, pos[0], kind)
		}
		values := make([]any, n)
		for i, p := range pos {
			x, err := loadColumn(row, p, types.KindUnknown)
			if err != nil {
				return nil, err
			}
			values[i] = x
		}
		return values, nil
	}, nil
}

// groupValue adds v to the GROUP BY list.
func groupValue(sel *sql.Select, ctx *expContext, v value, st *expState) error {
	if p, ok := v.(*pathValue); ok {
		return p.groupBy(sel, ctx, st)
	}
	if err := v.calculateValue(sel, ctx, st, nil, nil); err != nil {
		return err
	}
	n, err := v.length(sel, ctx, st)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		buf := sql.NewBuffer()
		if err := v.appendTo(sel, ctx, st, buf, i); err != nil {
			return err
		}
		sel.GroupBy(buf, st.joins)
	}
	return nil
}

// orderValue adds v to the ORDER BY list and returns the rendered keys.
func orderValue(sel *sql.Select, ctx *expContext, v value, st *expState, asc bool) ([]*sql.Buffer, error) {
	if p, ok := v.(*pathValue); ok {
		return p.orderBy(sel, ctx, st, asc)
	}
	if err := v.calculateValue(sel, ctx, st, nil, nil); err != nil {
		return nil, err
	}
	n, err := v.length(sel, ctx, st)
	if err != nil {
		return nil, err
	}
	keys := make([]*sql.Buffer, n)
	for i := 0; i < n; i++ {
		buf := sql.NewBuffer()
		if err := v.appendTo(sel, ctx, st, buf, i); err != nil {
			return nil, err
		}
		sel.OrderBy(buf, asc, st.joins.Outer())
		keys[i] = buf
	}
	return keys, nil
}

func loadColumn(row []any, pos int, kind types.Kind) (any, error) {
	if pos >= len(row) {
		return nil, q.Invariantf(nil, "row has %d columns, column %d requested", len(row), pos)
	}
	v := row[pos]
	if v == nil || kind == types.KindUnknown || !kind.IsScalar() {
		return v, nil
	}
	return types.Convert(v, kind)
}
