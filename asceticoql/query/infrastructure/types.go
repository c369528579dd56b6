package query

import (
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/query/domain/operators"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// discriminatorColumn returns the column distinguishing the classes of
// the hierarchy of cls, or nil.
func discriminatorColumn(cls *mapping.ClassMapping) *mapping.Column {
	root := cls.Root()
	for _, c := range append([]*mapping.ClassMapping{root}, root.AllSubclasses()...) {
		if c.Discriminator != nil {
			return c.Discriminator.Column
		}
	}
	return nil
}

// discriminatorValues returns the discriminator values of cls and its
// subclasses.
func discriminatorValues(cls *mapping.ClassMapping) []any {
	var out []any
	for _, c := range append([]*mapping.ClassMapping{cls}, cls.AllSubclasses()...) {
		if c.Discriminator != nil {
			out = append(out, c.Discriminator.Value)
		}
	}
	return out
}

// pathClass returns the class reached by the path state.
func pathClass(p *pathValue, st *expState) *mapping.ClassMapping {
	if cls := p.objectClass(st); cls != nil {
		return cls
	}
	return p.class
}

// typeOfValue renders the discriminator of the object reached by a path.
type typeOfValue struct {
	path *pathValue
}

func (t *typeOfValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	st, err := initChildren(t, sel, ctx, fl|flagJoinRel, t.path)
	if err != nil {
		return nil, err
	}
	cls := pathClass(t.path, st.child(0))
	if cls == nil {
		return nil, q.UserErrorf("TYPE of %s which is not an object", t.path)
	}
	col := discriminatorColumn(cls)
	if col == nil {
		return nil, q.UserErrorf("TYPE of %s whose class %s has no discriminator", t.path, cls.Name)
	}
	st.columns = []*mapping.Column{col}
	st.kind = col.Kind
	return st, nil
}

func (t *typeOfValue) columns(st *expState) []*mapping.Column {
	return st.columns
}

func (t *typeOfValue) calculateValue(sel *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	if err := check(t, ctx, st); err != nil {
		return err
	}
	return calculateChildren(sel, ctx, st, t.path)
}

func (t *typeOfValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(t, ctx, st)
}

func (t *typeOfValue) appendTo(_ *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(t, ctx, st); err != nil {
		return err
	}
	col := st.columns[0]
	buf.AppendColumn(st.child(0).joins.AliasOf(col), col)
	return nil
}

// typeLiteralValue is a class used as a value: its discriminator value,
// or its name when the class has none.
type typeLiteralValue struct {
	class *mapping.ClassMapping
}

func (t *typeLiteralValue) discriminator() any {
	if t.class.Discriminator != nil {
		return t.class.Discriminator.Value
	}
	return t.class.Name
}

func (t *typeLiteralValue) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	st := newState(t, ctx, sel.NewJoins())
	st.value = t.discriminator()
	st.kind = types.KindOf(st.value)
	return st, nil
}

func (t *typeLiteralValue) calculateValue(_ *sql.Select, ctx *expContext, st *expState, other value, otherState *expState) error {
	if err := check(t, ctx, st); err != nil {
		return err
	}
	if other != nil && otherState != nil {
		st.columns = comparedColumns(other, otherState)
	}
	return nil
}

func (t *typeLiteralValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	return scalarLength(t, ctx, st)
}

func (t *typeLiteralValue) appendTo(_ *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, _ int) error {
	if err := check(t, ctx, st); err != nil {
		return err
	}
	v, err := convertFor(st.value, st.column(0))
	if err != nil {
		return err
	}
	if ctx.compiler.inlineLiterals {
		if s, ok := ctx.dialect.Literal(v); ok {
			buf.Append(s)
			return nil
		}
	}
	buf.AppendValue(v, st.column(0))
	return nil
}

// typeCompareExp tests the exact class of the object reached by a path.
// Vertical hierarchies without discriminator test which subclass tables
// hold a row.
type typeCompareExp struct {
	op    operators.Operator
	path  *pathValue
	class *mapping.ClassMapping
}

func (t *typeCompareExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	st, err := initChildren(t, sel, ctx, flagJoinRel, t.path)
	if err != nil {
		return nil, err
	}
	cls := pathClass(t.path, st.child(0))
	if cls == nil {
		return nil, q.UserErrorf("TYPE of %s which is not an object", t.path)
	}
	if t.op != operators.OperatorEq && t.op != operators.OperatorNe {
		return nil, q.UserErrorf("types can only be compared with = and <>")
	}
	if t.class.Discriminator == nil && cls.IsAssignableFrom(t.class) && t.class != cls &&
		t.class.Strategy == mapping.StrategyVertical && t.op == operators.OperatorEq {
		st.joins = joinSubclass(st.joins, cls, t.class, true)
	}
	if t.class.Discriminator == nil && t.class == cls && t.op == operators.OperatorNe {
		for _, s := range cls.Subclasses() {
			if s.Strategy == mapping.StrategyVertical {
				st.joins = joinSubclass(st.joins, cls, s, true)
			}
		}
	}
	return st, nil
}

func (t *typeCompareExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(t, ctx, st); err != nil {
		return err
	}
	cls := pathClass(t.path, st.child(0))
	eq := t.op == operators.OperatorEq
	related := cls.IsAssignableFrom(t.class) || t.class.IsAssignableFrom(cls)
	if !related {
		if eq {
			buf.Append(sqlFalse)
		} else {
			buf.Append(sqlTrue)
		}
		return nil
	}

	if col := discriminatorColumn(cls); col != nil && t.class.Discriminator != nil {
		buf.AppendColumn(st.child(0).joins.AliasOf(col), col).Append(" " + string(t.op) + " ")
		v, err := convertFor(t.class.Discriminator.Value, col)
		if err != nil {
			return err
		}
		buf.AppendValue(v, col)
		return nil
	}
	if t.class.Strategy == mapping.StrategyFlat {
		return q.UserErrorf("class %s shares its table and has no discriminator", t.class.Name)
	}
	if !cls.IsAssignableFrom(t.class) {
		// The path class is a subclass of the tested one: only a proper
		// superclass type can never match.
		if eq {
			buf.Append(sqlFalse)
		} else {
			buf.Append(sqlTrue)
		}
		return nil
	}

	if eq {
		if t.class == cls {
			buf.Append(sqlTrue)
		} else {
			pk := t.class.PrimaryKeyColumns()[0]
			buf.AppendColumn(st.joins.AliasOf(pk), pk).Append(" IS NOT NULL")
		}
		t.excludeSubclasses(sel, st, t.class)
		return nil
	}

	if t.class == cls {
		var tests []*sql.Buffer
		for _, s := range cls.Subclasses() {
			if s.Strategy != mapping.StrategyVertical {
				continue
			}
			pk := s.PrimaryKeyColumns()[0]
			tests = append(tests, sql.NewBuffer().AppendColumn(st.joins.AliasOf(pk), pk).Append(" IS NOT NULL"))
		}
		if len(tests) == 0 {
			buf.Append(sqlFalse)
			return nil
		}
		if len(tests) > 1 {
			buf.Append("(")
		}
		for i, x := range tests {
			if i > 0 {
				buf.Append(" OR ")
			}
			buf.AppendBuffer(x)
		}
		if len(tests) > 1 {
			buf.Append(")")
		}
		return nil
	}
	super := t.class.Superclass
	alias := st.child(0).joins.AliasOf(super.PrimaryKeyColumns()[0])
	sel.ExcludeSubclass(alias, t.class.Table, super.PrimaryKeyColumns(), t.class.PrimaryKeyColumns())
	buf.Append(sqlTrue)
	return nil
}

// excludeSubclasses keeps only rows without a row in a direct vertical
// subclass table of cls.
func (t *typeCompareExp) excludeSubclasses(sel *sql.Select, st *expState, cls *mapping.ClassMapping) {
	pks := cls.PrimaryKeyColumns()
	alias := st.joins.AliasOf(pks[0])
	for _, s := range cls.Subclasses() {
		if s.Strategy == mapping.StrategyVertical {
			sel.ExcludeSubclass(alias, s.Table, pks, s.PrimaryKeyColumns())
		}
	}
}

// instanceOfExp tests whether the object reached by a path is an
// instance of a class or one of its subclasses.
type instanceOfExp struct {
	path  *pathValue
	class *mapping.ClassMapping
	not   bool
}

func (x *instanceOfExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	st, err := initChildren(x, sel, ctx, flagJoinRel, x.path)
	if err != nil {
		return nil, err
	}
	cls := pathClass(x.path, st.child(0))
	if cls == nil {
		return nil, q.UserErrorf("%s is not an object", x.path)
	}
	if cls != x.class && cls.IsAssignableFrom(x.class) && discriminatorColumn(cls) == nil {
		if x.class.Strategy == mapping.StrategyFlat {
			return nil, q.UserErrorf("class %s shares its table and has no discriminator", x.class.Name)
		}
		st.joins = joinSubclass(st.joins, cls, x.class, true)
	}
	return st, nil
}

func (x *instanceOfExp) appendTo(_ *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(x, ctx, st); err != nil {
		return err
	}
	cls := pathClass(x.path, st.child(0))
	holds, never := sqlTrue, sqlFalse
	if x.not {
		holds, never = never, holds
	}
	switch {
	case x.class.IsAssignableFrom(cls):
		buf.Append(holds)
		return nil
	case !cls.IsAssignableFrom(x.class):
		buf.Append(never)
		return nil
	}

	if col := discriminatorColumn(cls); col != nil {
		values := discriminatorValues(x.class)
		if len(values) == 0 {
			buf.Append(never)
			return nil
		}
		buf.AppendColumn(st.child(0).joins.AliasOf(col), col)
		if x.not {
			buf.Append(" NOT")
		}
		buf.Append(" IN (")
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
		return nil
	}

	pk := x.class.PrimaryKeyColumns()[0]
	buf.AppendColumn(st.joins.AliasOf(pk), pk)
	if x.not {
		buf.Append(" IS NULL")
	} else {
		buf.Append(" IS NOT NULL")
	}
	return nil
}
