package query

import (
	"context"
	"io"
	"log/slog"

	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/query/domain/operators"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

type CompilerOption func(*Compiler)

func WithDialect(d dialect.Dialect) CompilerOption {
	return func(c *Compiler) {
		c.dialect = d
	}
}

func WithLogger(logger *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// InlineLiterals renders constants as SQL literals where the dialect can.
func InlineLiterals(inline bool) CompilerOption {
	return func(c *Compiler) {
		c.inlineLiterals = inline
	}
}

// NullOnEmptyAggregate decodes SUM, AVG, MIN and MAX over no rows as
// NULL rather than the zero value of their kind.
func NullOnEmptyAggregate(null bool) CompilerOption {
	return func(c *Compiler) {
		c.nullOnEmptyAggregate = null
	}
}

// InClauseLimit overrides the IN list limit of the dialect.
func InClauseLimit(limit int) CompilerOption {
	return func(c *Compiler) {
		c.inClauseLimit = limit
	}
}

// PlaceholderOffset numbers placeholders after offset, for statements
// embedded after other parameters.
func PlaceholderOffset(offset int) CompilerOption {
	return func(c *Compiler) {
		c.placeholderOffset = offset
	}
}

// Compiler translates object queries to SQL for one mapping and dialect.
// It holds no per-statement state and may be shared.
type Compiler struct {
	resolver             mapping.Resolver
	dialect              dialect.Dialect
	logger               *slog.Logger
	registry             *operators.OperatorRegistry
	inlineLiterals       bool
	nullOnEmptyAggregate bool
	inClauseLimit        int
	placeholderOffset    int
}

func NewCompiler(resolver mapping.Resolver, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		resolver:             resolver,
		dialect:              dialect.Postgres,
		logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry:             operators.NewDefaultRegistry(),
		nullOnEmptyAggregate: true,
	}
	for i := range opts {
		opts[i](c)
	}
	return c
}

func (c *Compiler) Dialect() dialect.Dialect {
	return c.dialect
}

// Compile translates query, resolving parameters against params.
// Parameter values are needed while compiling because NULL and object id
// parameters change the shape of the SQL.
func (c *Compiler) Compile(query q.Query, params Params) (*Result, error) {
	if query.From != nil {
		return nil, q.UserErrorf("a top level query cannot range over a path")
	}
	cq, err := c.lower(query, nil)
	if err != nil {
		return nil, err
	}
	ctx := newExpContext(c, params)
	stmt := sql.NewStatement()
	sel := stmt.NewSelect(sql.NoSelect)
	built, err := c.buildSelect(sel, ctx, cq, true)
	if err != nil {
		return nil, err
	}

	buf := sel.Render()
	columns := max(len(sel.Items()), 1)
	if built.wrapDistinct != nil {
		buf = wrapCountDistinct(sel, built.wrapDistinct)
		columns = 1
	}
	text, err := dialect.FormatPlaceholders(c.dialect, buf.String(), c.placeholderOffset)
	if err != nil {
		return nil, err
	}
	res := &Result{
		SQL:      text,
		Columns:  columns,
		Params:   buf.Params(),
		Joins:    sel.Joins(),
		Extent:   built.extent,
		Distinct: sel.IsDistinct(),
		Kinds:    built.kinds,
		loaders:  built.loaders,
	}
	c.logger.LogAttrs(context.Background(), slog.LevelDebug, "statement_compiled",
		slog.String("dialect", c.dialect.Name()),
		slog.String("candidate", cq.candidate.Name),
		slog.String("sql", text),
		slog.Int("params", len(res.Params)),
	)
	return res, nil
}

// wrapCountDistinct counts distinct column lists through a derived
// table: SELECT COUNT(*) FROM (SELECT DISTINCT ...) t.
func wrapCountDistinct(sel *sql.Select, st *expState) *sql.Buffer {
	from, where := sel.RenderFrom()
	buf := sql.NewBuffer().Append("SELECT COUNT(*) FROM (SELECT DISTINCT ")
	for i, col := range st.distinctColumns {
		if i > 0 {
			buf.Append(", ")
		}
		buf.AppendBuffer(col)
	}
	buf.Append(" FROM ").AppendBuffer(from)
	if !where.IsEmpty() {
		buf.Append(" WHERE ").AppendBuffer(where)
	}
	return buf.Append(") t")
}

// selection is what assembling one select produced.
type selection struct {
	sel          *sql.Select
	loaders      []loader
	kinds        []types.Kind
	extent       bool
	wrapDistinct *expState
}

// buildSelect assembles cq into sel. Clauses are compiled in order, each
// in its own pass: where, group by, having, select list, order by.
func (c *Compiler) buildSelect(sel *sql.Select, ctx *expContext, cq *compiledQuery, top bool) (*selection, error) {
	sole := ctx.sole
	ctx.sole = false
	defer func() { ctx.sole = sole }()

	if cq.from != nil {
		var st *expState
		err := ctx.inPass("from", func() (err error) {
			st, err = cq.from.initialize(sel, ctx, flagJoinRel)
			return err
		})
		if err != nil {
			return nil, err
		}
		sel.SetCorrelatedRoot(st.joins, cq.alias)
	} else {
		sel.SetRoot(cq.candidate.Table, cq.alias)
	}
	if err := restrictSubclass(sel, cq.candidate); err != nil {
		return nil, err
	}

	out := &selection{sel: sel}
	multiple := false
	if cq.filter != nil {
		err := ctx.inPass("where", func() error {
			st, err := cq.filter.initialize(sel, ctx, 0)
			if err != nil {
				return err
			}
			// Rendering may join more tables from these.
			sel.AddJoins(st.joins)
			buf, err := renderExp(sel, ctx, cq.filter, st)
			if err != nil {
				return err
			}
			sel.Where(buf, st.joins)
			multiple = st.joins.IsMultiple()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(cq.grouping) > 0 {
		err := ctx.inPass("group", func() error {
			for _, g := range cq.grouping {
				st, err := g.initialize(sel, ctx, flagJoinRel)
				if err != nil {
					return err
				}
				if err := groupValue(sel, ctx, g, st); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if cq.having != nil {
		err := ctx.inPass("having", func() error {
			st, err := cq.having.initialize(sel, ctx, 0)
			if err != nil {
				return err
			}
			sel.AddJoins(st.joins)
			buf, err := renderExp(sel, ctx, cq.having, st)
			if err != nil {
				return err
			}
			sel.Having(buf, st.joins)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	aggregate := false
	err := ctx.inPass("select", func() error {
		if len(cq.projections) == 0 {
			out.loaders = append(out.loaders, selectCandidate(sel, cq.candidate))
			out.kinds = append(out.kinds, types.KindObject)
			return nil
		}
		// Only an ungrouped, unordered single projection can be counted
		// through a derived table.
		countable := top && len(cq.projections) == 1 && len(cq.grouping) == 0 &&
			cq.having == nil && len(cq.ordering) == 0
		for _, p := range cq.projections {
			ctx.sole = countable
			st, err := p.initialize(sel, ctx, flagJoinRel)
			if err != nil {
				return err
			}
			ld, err := selectValue(sel, ctx, p, st)
			if err != nil {
				return err
			}
			if _, ok := p.(*aggregateValue); ok {
				aggregate = true
			}
			if st.wrapDistinct {
				out.wrapDistinct = st
			}
			out.loaders = append(out.loaders, ld)
			out.kinds = append(out.kinds, st.kind)
		}
		ctx.sole = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cq.distinct || (multiple && !aggregate && len(cq.grouping) == 0) {
		sel.SetDistinct(true)
	}

	if len(cq.ordering) > 0 {
		err := ctx.inPass("order", func() error {
			for _, o := range cq.ordering {
				st, err := o.value.initialize(sel, ctx, 0)
				if err != nil {
					return err
				}
				keys, err := orderValue(sel, ctx, o.value, st, o.ascending)
				if err != nil {
					return err
				}
				if sel.IsDistinct() {
					for _, k := range keys {
						sel.Select(k.Clone(), st.joins.Outer())
					}
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	out.extent = isConstTrue(cq.filter) && len(cq.projections) == 0 &&
		len(cq.grouping) == 0 && cq.having == nil
	return out, nil
}

func isConstTrue(e expression) bool {
	if e == nil {
		return true
	}
	c, ok := e.(*constExp)
	return ok && c.value
}

// restrictSubclass limits a candidate sharing its table with other
// classes to the rows carrying its discriminator values.
func restrictSubclass(sel *sql.Select, cls *mapping.ClassMapping) error {
	if cls.Superclass == nil || cls.Strategy != mapping.StrategyFlat {
		return nil
	}
	col := discriminatorColumn(cls)
	if col == nil {
		return q.UserErrorf("class %s shares its table and has no discriminator", cls.Name)
	}
	values := discriminatorValues(cls)
	buf := sql.NewBuffer().AppendColumn(sel.RootAlias(), col).Append(" IN (")
	for i, v := range values {
		if i > 0 {
			buf.Append(", ")
		}
		cv, err := convertFor(v, col)
		if err != nil {
			return err
		}
		buf.AppendValue(cv, col)
	}
	buf.Append(")")
	sel.Where(buf, sel.NewJoins())
	return nil
}

// selectCandidate selects the primary key of the candidate, and the
// discriminator when it lives in the candidate table.
func selectCandidate(sel *sql.Select, cls *mapping.ClassMapping) loader {
	joins := sel.NewJoins()
	pos := sel.SelectColumns(cls.PrimaryKeyColumns(), joins)
	disc := -1
	if col := discriminatorColumn(cls); col != nil && col.Table == cls.Table {
		disc = sel.SelectColumns([]*mapping.Column{col}, joins)[0]
	}
	return objectLoader(cls, pos, disc)
}
