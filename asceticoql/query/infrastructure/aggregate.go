package query

import (
	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// distinctSeparator keeps concatenated key columns apart when a dialect
// cannot count distinct column lists.
const distinctSeparator = "|"

type aggregateValue struct {
	fn       q.AggregateFunc
	arg      value
	distinct bool
}

func (a *aggregateValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(a, sel, ctx, fl|flagJoinRel, a.arg)
	if err != nil {
		return nil, err
	}
	switch a.fn {
	case q.AggregateCount:
		st.kind = types.KindInt
	case q.AggregateAvg:
		st.kind = types.KindFloat
	default:
		st.kind = st.child(0).kind
	}
	return st, nil
}

func (a *aggregateValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(a, ctx, st); err != nil {
		return err
	}
	if err := calculateChildren(sel, ctx, st, a.arg); err != nil {
		return err
	}
	n, err := a.arg.length(sel, ctx, st.child(0))
	if err != nil {
		return err
	}
	st.wrapDistinct = false
	if n > 1 && a.fn == q.AggregateCount && a.distinct &&
		!ctx.dialect.SupportsCountDistinctMultiColumn() && ctx.sole && ctx.dialect.SupportsSubselect() {
		st.wrapDistinct = true
	}
	return nil
}

func (a *aggregateValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(a, ctx, st)
}

func (a *aggregateValue) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(a, ctx, st); err != nil {
		return err
	}
	arg := st.child(0)
	n, err := a.arg.length(sel, ctx, arg)
	if err != nil {
		return err
	}
	if n == 1 {
		buf.Append(string(a.fn) + "(")
		if a.distinct {
			buf.Append("DISTINCT ")
		}
		if err := a.arg.appendTo(sel, ctx, arg, buf, 0); err != nil {
			return err
		}
		buf.Append(")")
		return nil
	}
	if a.fn != q.AggregateCount {
		return q.UserErrorf("%s of a compound value", a.fn)
	}
	if !a.distinct {
		// Rows of a compound key are counted through its first column.
		buf.Append("COUNT(")
		if err := a.arg.appendTo(sel, ctx, arg, buf, 0); err != nil {
			return err
		}
		buf.Append(")")
		return nil
	}
	switch {
	case ctx.dialect.SupportsCountDistinctMultiColumn():
		buf.Append("COUNT(DISTINCT ")
		if err := appendAll(sel, ctx, a.arg, arg, buf); err != nil {
			return err
		}
		buf.Append(")")
	case st.wrapDistinct:
		st.distinctColumns = make([]*sql.Buffer, n)
		for i := 0; i < n; i++ {
			col := sql.NewBuffer()
			if err := a.arg.appendTo(sel, ctx, arg, col, i); err != nil {
				return err
			}
			st.distinctColumns[i] = col
		}
		buf.Append("COUNT(*)")
	default:
		key, err := a.concatKey(sel, ctx, arg, n)
		if err != nil {
			return err
		}
		buf.Append("COUNT(DISTINCT ").AppendBuffer(key).Append(")")
	}
	return nil
}

// concatKey renders the columns of the argument as one string.
func (a *aggregateValue) concatKey(sel *sql.Select, ctx *expContext, arg *expState, n int) (*sql.Buffer, error) {
	castTmpl, err := ctx.dialect.Template(dialect.FuncConcatCast)
	if err != nil {
		return nil, err
	}
	concatTmpl, err := ctx.dialect.Template(dialect.FuncConcat)
	if err != nil {
		return nil, err
	}
	var key *sql.Buffer
	for i := 0; i < n; i++ {
		col := sql.NewBuffer()
		if err := a.arg.appendTo(sel, ctx, arg, col, i); err != nil {
			return nil, err
		}
		cast := sql.NewBuffer()
		if err := cast.AppendTemplate(castTmpl, col); err != nil {
			return nil, err
		}
		if key == nil {
			key = cast
			continue
		}
		sep := sql.NewBuffer()
		if err := sep.AppendTemplate(concatTmpl, key, sql.NewBuffer().Append("'"+distinctSeparator+"'")); err != nil {
			return nil, err
		}
		next := sql.NewBuffer()
		if err := next.AppendTemplate(concatTmpl, sep, cast); err != nil {
			return nil, err
		}
		key = next
	}
	return key, nil
}

// loader decodes the aggregate. COUNT is never NULL; the others decode
// an empty set as NULL or as the zero value of their kind.
func (a *aggregateValue) loader(ctx *expContext, st *expState, pos []int) loader {
	kind := st.kind
	nullOnEmpty := ctx.compiler.nullOnEmptyAggregate
	fn := a.fn
	return func(row []any) (any, error) {
		v, err := loadColumn(row, pos[0], kind)
		if err != nil || v != nil {
			return v, err
		}
		if fn == q.AggregateCount {
			return int64(0), nil
		}
		if nullOnEmpty {
			return nil, nil
		}
		return types.Zero(kind), nil
	}
}
