package query

import (
	"fmt"

	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// pathAction is a traversal step with its mapping resolved.
type pathAction struct {
	op    q.Op
	field *mapping.FieldMapping
	name  string
	class *mapping.ClassMapping
}

// pathValue navigates from a query root, a subquery root or a variable.
type pathValue struct {
	expr        q.PathNode
	schemaAlias string
	candidate   *mapping.ClassMapping
	actions     []pathAction
	// class is the class of the object reached, nil for scalar paths.
	class *mapping.ClassMapping
	kind  types.Kind
	// xpath is the element path inside an XML field.
	xpath string
}

// pathState is what a path derived while initializing.
type pathState struct {
	field *mapping.FieldMapping
	// cmpfield is the related field whose columns the foreign key of field
	// already holds.
	cmpfield  *mapping.FieldMapping
	class     *mapping.ClassMapping
	key       bool
	joinedRel bool
	cols      []*mapping.Column
}

func (p *pathValue) String() string {
	return p.expr.String()
}

// lastField returns the field traversed last, nil for object roots.
func (p *pathValue) lastField() *mapping.FieldMapping {
	for i := len(p.actions) - 1; i >= 0; i-- {
		if p.actions[i].field != nil {
			return p.actions[i].field
		}
	}
	return nil
}

func (p *pathValue) isKey() bool {
	for i := len(p.actions) - 1; i >= 0; i-- {
		if p.actions[i].field != nil {
			return p.actions[i].op == q.OpGetKey
		}
	}
	return false
}

func (p *pathValue) initialize(sel *sql.Select, ctx *expContext, fl flags) (*expState, error) {
	return p.resolve(sel, ctx, fl, "")
}

// resolve replays the actions. A pending field is traversed when the next
// action needs its related object; the last field is traversed unless the
// value is compared with NULL. variable scopes the last traversal.
func (p *pathValue) resolve(sel *sql.Select, ctx *expContext, fl flags, variable string) (*expState, error) {
	target := sel.Find(p.schemaAlias)
	if target == nil {
		return nil, q.WrapUser(q.ErrUnknownAlias, p.schemaAlias)
	}
	joins := sel.NewJoins()
	if target != sel {
		joins = sel.CorrelatedJoins(target)
	}
	ps := &pathState{class: p.candidate}
	rel := p.candidate
	forceOuter := false

loop:
	for i, a := range p.actions {
		last := i == len(p.actions)-1
		switch a.op {
		case q.OpVar:
			joins = joins.SetVariable(a.name)
		case q.OpSubquery:
			joins = joins.SetSubselect(a.name)
		case q.OpUnboundVar:
			rel = a.class
			ps.class = a.class
			joins = joins.CrossJoin(a.name, a.class.Table)
		case q.OpCast:
			if ps.field != nil {
				rel, joins = traverseField(ps, joins, forceOuter, false)
				ps.field = nil
			}
			joins = joinSubclass(joins, rel, a.class, forceOuter)
			rel = a.class
			ps.class = a.class
		default:
			if ps.field != nil {
				if last && fl&flagJoinRel == 0 && isJoinedField(ps.field, ps.key, a.field) {
					ps.cmpfield = a.field
					break loop
				}
				rel, joins = traverseField(ps, joins, forceOuter, false)
			}
			ps.key = a.op == q.OpGetKey
			forceOuter = forceOuter || a.op == q.OpGetOuter
			ps.field = a.field
			joins = joinOwner(joins, rel, a.field.Owner, forceOuter)
		}
	}

	if variable != "" {
		joins = joins.SetVariable(variable)
	}
	if fl&flagNullCmp == 0 {
		_, joins = traverseField(ps, joins, forceOuter, true)
	}
	ps.joinedRel = false
	if fl&flagJoinRel != 0 {
		joins = joinRelation(ps, joins, forceOuter || fl&flagForceOuter != 0)
	}

	st := newState(p, ctx, joins)
	st.path = ps
	st.kind = p.kind
	return st, nil
}

// traverseField joins into the storage of the pending field and, unless it
// is the last one, into its related table. It returns the related class.
func traverseField(ps *pathState, joins sql.Joins, outer, last bool) (*mapping.ClassMapping, sql.Joins) {
	f := ps.field
	if f == nil {
		return ps.class, joins
	}
	joins = joinStorage(joins, f, outer)
	if !last {
		joins = joinRelation(ps, joins, outer)
	}
	return f.ValueMapping(ps.key).Related, joins
}

// joinStorage joins the table holding the field value: the join table of
// collections and maps, or the related table of inverse relations.
// Forward relations and basic fields live at the current position.
func joinStorage(joins sql.Joins, f *mapping.FieldMapping, outer bool) sql.Joins {
	switch {
	case f.JoinTable != nil:
		return joins.JoinForeignKey(f.Name, f.JoinForeignKey, true, outer, true)
	case f.IsToMany():
		if fk := f.Element.InverseForeignKey(); fk != nil {
			return joins.JoinForeignKey(f.Name, fk, true, outer, true)
		}
	case f.Kind == mapping.FieldRelation && !f.Value.IsForward():
		if fk := f.Value.InverseForeignKey(); fk != nil {
			return joins.JoinForeignKey(f.Name, fk, true, outer, false)
		}
	}
	return joins
}

// joinRelation joins the related table through a foreign key held at the
// current position.
func joinRelation(ps *pathState, joins sql.Joins, outer bool) sql.Joins {
	f := ps.field
	if f == nil {
		return joins
	}
	vm := f.ValueMapping(ps.key)
	if vm.Related != nil && vm.IsForward() {
		step := f.Name
		if f.JoinTable != nil {
			step = "element"
			if ps.key {
				step = "key"
			}
		}
		joins = joins.JoinForeignKey(step, vm.ForeignKey, false, outer, false)
	}
	ps.joinedRel = true
	return joins
}

// joinOwner moves from the table of rel to the table declaring a field of
// owner when they differ in a vertical hierarchy.
func joinOwner(joins sql.Joins, rel, owner *mapping.ClassMapping, outer bool) sql.Joins {
	if rel == nil || owner == nil || rel == owner {
		return joins
	}
	if rel.IsAssignableFrom(owner) {
		return joinSubclass(joins, rel, owner, outer)
	}
	for c := rel; c != nil && c != owner; c = c.Superclass {
		if c.Strategy == mapping.StrategyVertical && c.SuperclassJoin != nil {
			joins = joins.JoinForeignKey("super:"+c.Superclass.Name, c.SuperclassJoin, false, outer, false)
		}
	}
	return joins
}

// joinSubclass joins down from the table of from to the table of sub by
// primary key, one vertical level at a time.
func joinSubclass(joins sql.Joins, from, sub *mapping.ClassMapping, outer bool) sql.Joins {
	var chain []*mapping.ClassMapping
	for c := sub; c != nil && c != from; c = c.Superclass {
		chain = append(chain, c)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]
		if c.Strategy == mapping.StrategyVertical && c.SuperclassJoin != nil {
			joins = joins.JoinForeignKey("sub:"+c.Name, c.SuperclassJoin, true, outer, false)
		}
	}
	return joins
}

// isJoinedField reports whether the foreign key of src references exactly
// the columns of target.
func isJoinedField(src *mapping.FieldMapping, key bool, target *mapping.FieldMapping) bool {
	vm := src.ValueMapping(key)
	if !vm.IsForward() {
		return false
	}
	rels := vm.ForeignKey.Columns
	pks := target.Columns()
	if len(rels) != len(pks) {
		return false
	}
	for i, c := range rels {
		if vm.ForeignKey.PrimaryKeyColumn(c) != pks[i] {
			return false
		}
	}
	return true
}

func (p *pathValue) columns(st *expState) []*mapping.Column {
	ps := st.path
	if ps.cols == nil {
		ps.cols = calculateColumns(ps)
	}
	return ps.cols
}

func calculateColumns(ps *pathState) []*mapping.Column {
	f := ps.field
	if f == nil {
		if ps.class == nil {
			return nil
		}
		return ps.class.PrimaryKeyColumns()
	}
	if ps.key {
		if ps.joinedRel && f.Key.Related != nil {
			return f.Key.Related.PrimaryKeyColumns()
		}
		return f.Key.Columns
	}
	switch f.Kind {
	case mapping.FieldCollection, mapping.FieldMap:
		if ps.joinedRel && f.Element.Related != nil {
			return f.Element.Related.PrimaryKeyColumns()
		}
		if len(f.Element.Columns) > 0 {
			return f.Element.Columns
		}
	case mapping.FieldRelation:
		if ps.joinedRel {
			return f.Value.Related.PrimaryKeyColumns()
		}
	}
	return f.Columns()
}

// objectClass returns the class of the object the state reached, or nil
// when the path renders plain columns.
func (p *pathValue) objectClass(st *expState) *mapping.ClassMapping {
	ps := st.path
	if ps.field == nil {
		return ps.class
	}
	if !ps.joinedRel {
		return nil
	}
	return ps.field.ValueMapping(ps.key).Related
}

func (p *pathValue) calculateValue(_ *sql.Select, ctx *expContext, st *expState, _ value, _ *expState) error {
	return check(p, ctx, st)
}

func (p *pathValue) length(_ *sql.Select, ctx *expContext, st *expState) (int, error) {
	if err := check(p, ctx, st); err != nil {
		return 0, err
	}
	if p.xpath != "" {
		return 1, nil
	}
	return len(p.columns(st)), nil
}

func (p *pathValue) appendTo(_ *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, index int) error {
	if err := check(p, ctx, st); err != nil {
		return err
	}
	cols := p.columns(st)
	if index < 0 || index >= len(cols) {
		return q.Invariantf(nil, "column %d of %d requested from %s", index, len(cols), p)
	}
	col := cols[index]
	if p.xpath == "" {
		buf.AppendColumn(st.joins.AliasOf(col), col)
		return nil
	}
	tmpl, err := ctx.dialect.Template(dialect.FuncXPath)
	if err != nil {
		return err
	}
	return buf.AppendTemplate(tmpl,
		sql.NewBuffer().AppendColumn(st.joins.AliasOf(col), col),
		sql.NewBuffer().Append(p.xpath))
}

// needsCount reports whether testing the field for NULL or emptiness
// needs a count of the rows referencing the owner.
func needsCount(f *mapping.FieldMapping, key bool) bool {
	if f == nil {
		return false
	}
	return f.IsToMany() || (f.Kind == mapping.FieldRelation && !f.ValueMapping(key).IsForward())
}

// appendIsNull renders a NULL test. Paths whose value is stored in other
// rows count them instead.
func (p *pathValue) appendIsNull(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, negate bool) error {
	if err := check(p, ctx, st); err != nil {
		return err
	}
	ps := st.path
	if ps.field == nil && ps.cmpfield == nil {
		if negate {
			buf.Append(sqlTrue)
		} else {
			buf.Append(sqlFalse)
		}
		return nil
	}
	if ps.cmpfield == nil && needsCount(ps.field, ps.key) {
		return p.appendIsEmpty(sel, ctx, st, buf, negate)
	}
	cols := p.columns(st)
	for i, col := range cols {
		if i > 0 {
			buf.Append(" AND ")
		}
		buf.AppendColumn(st.joins.AliasOf(col), col)
		if negate {
			buf.Append(" IS NOT NULL")
		} else {
			buf.Append(" IS NULL")
		}
	}
	return nil
}

// appendIsEmpty renders 0 = (count) or, negated, 0 < (count).
func (p *pathValue) appendIsEmpty(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer, negate bool) error {
	count, err := p.countSubselect(sel, ctx, st)
	if err != nil {
		return err
	}
	if negate {
		buf.Append("0 < ")
	} else {
		buf.Append("0 = ")
	}
	buf.AppendBuffer(count)
	return nil
}

// countSubselect renders a correlated count of the rows holding the value
// of the last field.
func (p *pathValue) countSubselect(sel *sql.Select, ctx *expContext, st *expState) (*sql.Buffer, error) {
	if err := check(p, ctx, st); err != nil {
		return nil, err
	}
	f := st.path.field
	if f == nil {
		return nil, q.UserErrorf("%s is not a collection", p)
	}
	var fk *mapping.ForeignKey
	switch {
	case f.JoinTable != nil:
		fk = f.JoinForeignKey
	case f.IsToMany():
		fk = f.Element.InverseForeignKey()
	case f.Kind == mapping.FieldRelation:
		fk = f.Value.InverseForeignKey()
	}
	if fk == nil {
		return nil, q.UserErrorf("%s is not stored in other rows", p)
	}
	owner := st.joins.AliasOf(fk.PrimaryKeyColumns[0])
	sub := sel.NewSubselect().SetRoot(fk.Table(), "#count:"+f.String())
	cond := sql.NewBuffer()
	for i := range fk.Columns {
		if i > 0 {
			cond.Append(" AND ")
		}
		cond.AppendColumn(sub.RootAlias(), fk.Columns[i]).Append(" = ").AppendColumn(owner, fk.PrimaryKeyColumns[i])
	}
	sub.Where(cond, sub.NewJoins())
	sub.Select(sql.NewBuffer().Append("COUNT(*)"), sub.NewJoins())
	return sql.NewBuffer().Append("(").AppendBuffer(sub.Render()).Append(")"), nil
}

func (p *pathValue) selectColumns(sel *sql.Select, ctx *expContext, st *expState) (loader, error) {
	if err := check(p, ctx, st); err != nil {
		return nil, err
	}
	cls := p.objectClass(st)
	if cls == nil || p.xpath != "" {
		n, err := p.length(sel, ctx, st)
		if err != nil {
			return nil, err
		}
		pos := make([]int, n)
		for i := range pos {
			buf := sql.NewBuffer()
			if err := p.appendTo(sel, ctx, st, buf, i); err != nil {
				return nil, err
			}
			pos[i] = sel.Select(buf, st.joins)
		}
		kind := p.kind
		if n == 1 {
			return func(row []any) (any, error) {
				return loadColumn(row, pos[0], kind)
			}, nil
		}
		return func(row []any) (any, error) {
			values := make([]any, len(pos))
			for i, x := range pos {
				values[i] = row[x]
			}
			return values, nil
		}, nil
	}

	joins := st.joins.Outer()
	pos := sel.SelectColumns(cls.PrimaryKeyColumns(), joins)
	disc := -1
	if col := discriminatorColumn(cls); col != nil && col.Table == cls.Table {
		disc = sel.SelectColumns([]*mapping.Column{col}, joins)[0]
	}
	return objectLoader(cls, pos, disc), nil
}

// objectLoader decodes an object id. The discriminator, when selected,
// picks the concrete class.
func objectLoader(cls *mapping.ClassMapping, pos []int, disc int) loader {
	return func(row []any) (any, error) {
		values := make([]any, len(pos))
		null := true
		for i, x := range pos {
			if x >= len(row) {
				return nil, q.Invariantf(nil, "row has %d columns, column %d requested", len(row), x)
			}
			values[i] = row[x]
			null = null && row[x] == nil
		}
		if null {
			return nil, nil
		}
		name := cls.Name
		if disc >= 0 && disc < len(row) {
			name = discriminatedClass(cls, row[disc]).Name
		}
		return types.ObjectID{Class: name, Values: values}, nil
	}
}

func discriminatedClass(cls *mapping.ClassMapping, v any) *mapping.ClassMapping {
	if v == nil {
		return cls
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	want := fmt.Sprint(v)
	for _, c := range append([]*mapping.ClassMapping{cls}, cls.AllSubclasses()...) {
		if c.Discriminator != nil && fmt.Sprint(c.Discriminator.Value) == want {
			return c
		}
	}
	return cls
}

func (p *pathValue) groupBy(sel *sql.Select, ctx *expContext, st *expState) error {
	if err := check(p, ctx, st); err != nil {
		return err
	}
	cols := p.columns(st)
	if cls := p.objectClass(st); cls != nil {
		cols = cls.PrimaryKeyColumns()
	}
	joins := st.joins.Outer()
	for _, col := range cols {
		sel.GroupBy(sql.NewBuffer().AppendColumn(joins.AliasOf(col), col), joins)
	}
	return nil
}

func (p *pathValue) orderBy(sel *sql.Select, ctx *expContext, st *expState, asc bool) ([]*sql.Buffer, error) {
	n, err := p.length(sel, ctx, st)
	if err != nil {
		return nil, err
	}
	joins := st.joins.Outer()
	keys := make([]*sql.Buffer, n)
	for i := 0; i < n; i++ {
		buf := sql.NewBuffer()
		if err := p.appendTo(sel, ctx, st, buf, i); err != nil {
			return nil, err
		}
		sel.OrderBy(buf, asc, joins)
		keys[i] = buf
	}
	return keys, nil
}
