package sql

import (
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
)

type orderItem struct {
	buf *Buffer
	asc bool
}

// Select accumulates the clauses and joins of one SELECT of a Statement.
type Select struct {
	stmt        *Statement
	id          SelectID
	parent      SelectID
	schemaAlias string
	rootAlias   string
	rootTable   *mapping.Table
	fromRoot    bool
	aliases     map[string]string
	local       map[string]bool
	joins       []Join
	joinIndex   map[string]int
	where       []*Buffer
	having      []*Buffer
	items       []*Buffer
	groupBy     []*Buffer
	orderBy     []orderItem
	distinct    bool
	excluded    map[string]bool
}

func newSelect(stmt *Statement, id, parent SelectID) *Select {
	return &Select{
		stmt:      stmt,
		id:        id,
		parent:    parent,
		aliases:   make(map[string]string),
		local:     make(map[string]bool),
		joinIndex: make(map[string]int),
		excluded:  make(map[string]bool),
	}
}

func (s *Select) ID() SelectID {
	return s.id
}

func (s *Select) Statement() *Statement {
	return s.stmt
}

// Parent returns the enclosing select, or nil.
func (s *Select) Parent() *Select {
	if s.parent == NoSelect {
		return nil
	}
	return s.stmt.Select(s.parent)
}

// NewSubselect creates a select nested in s.
func (s *Select) NewSubselect() *Select {
	return s.stmt.NewSelect(s.id)
}

// SetRoot makes table, under the query alias schemaAlias, the first FROM
// item.
func (s *Select) SetRoot(table *mapping.Table, schemaAlias string) *Select {
	s.schemaAlias = schemaAlias
	s.rootTable = table
	s.rootAlias = s.aliasFor("", table)
	s.fromRoot = true
	return s
}

// SetCorrelatedRoot roots s at the position reached by joins navigating
// from an enclosing select.
func (s *Select) SetCorrelatedRoot(joins Joins, schemaAlias string) *Select {
	s.schemaAlias = schemaAlias
	s.rootTable = joins.table
	s.rootAlias = joins.alias
	s.aliases["@"+joins.table.Name] = joins.alias
	s.fromRoot = false
	s.AddJoins(joins)
	return s
}

func (s *Select) SchemaAlias() string {
	return s.schemaAlias
}

func (s *Select) RootAlias() string {
	return s.rootAlias
}

func (s *Select) RootTable() *mapping.Table {
	return s.rootTable
}

// Find returns the nearest select, starting from s and moving outwards,
// whose query alias is schemaAlias.
func (s *Select) Find(schemaAlias string) *Select {
	for x := s; x != nil; x = x.Parent() {
		if x.schemaAlias == schemaAlias {
			return x
		}
	}
	return nil
}

// IsLocal reports whether alias was minted by s.
func (s *Select) IsLocal(alias string) bool {
	return s.local[alias]
}

// HasAlias reports whether a join over path into table was already made.
func (s *Select) HasAlias(path string, table *mapping.Table) (string, bool) {
	a, ok := s.aliases[path+"@"+table.Name]
	return a, ok
}

func (s *Select) aliasFor(path string, table *mapping.Table) string {
	key := path + "@" + table.Name
	if a, ok := s.aliases[key]; ok {
		return a
	}
	a := s.stmt.newAlias(table)
	s.aliases[key] = a
	s.local[a] = true
	return a
}

// NewJoins returns empty joins positioned at the root.
func (s *Select) NewJoins() Joins {
	return Joins{sel: s, alias: s.rootAlias, table: s.rootTable}
}

// CorrelatedJoins returns empty joins positioned at the root of outer, an
// enclosing select, for navigation from inside s.
func (s *Select) CorrelatedJoins(outer *Select) Joins {
	return Joins{
		sel:        s,
		alias:      outer.rootAlias,
		table:      outer.rootTable,
		path:       "^" + outer.rootAlias,
		correlated: outer.schemaAlias,
	}
}

// And combines joins required together. A join inner on either side stays
// inner.
func (s *Select) And(a, b Joins) Joins {
	if b.IsEmpty() && !b.multiple {
		return a
	}
	if a.IsEmpty() && !a.multiple {
		return b
	}
	n := a
	n.list = mergeJoins(a.list, b.list, false)
	n.multiple = a.multiple || b.multiple
	return n
}

// Or combines joins of alternative branches. A join missing from one
// branch becomes outer so the other branch can still match.
func (s *Select) Or(a, b Joins) Joins {
	n := a
	n.list = mergeJoins(a.list, b.list, true)
	n.multiple = a.multiple || b.multiple
	n.outer = a.outer || b.outer
	return n
}

// AddJoins registers joins in the FROM clause.
func (s *Select) AddJoins(joins Joins) {
	for _, j := range joins.list {
		if i, ok := s.joinIndex[j.Alias]; ok {
			s.joins[i].Kind = combineKind(s.joins[i].Kind, j.Kind, false)
			continue
		}
		s.joinIndex[j.Alias] = len(s.joins)
		s.joins = append(s.joins, j)
	}
}

func (s *Select) Joins() []Join {
	return s.joins
}

// Where adds a condition, ANDed with the others.
func (s *Select) Where(buf *Buffer, joins Joins) {
	s.AddJoins(joins)
	if buf != nil && !buf.IsEmpty() {
		s.where = append(s.where, buf)
	}
}

func (s *Select) Having(buf *Buffer, joins Joins) {
	s.AddJoins(joins)
	if buf != nil && !buf.IsEmpty() {
		s.having = append(s.having, buf)
	}
}

// Select adds a select list item and returns its position. Identical
// parameterless items share a position.
func (s *Select) Select(buf *Buffer, joins Joins) int {
	s.AddJoins(joins)
	if len(buf.params) == 0 {
		for i, item := range s.items {
			if len(item.params) == 0 && item.String() == buf.String() {
				return i
			}
		}
	}
	s.items = append(s.items, buf)
	return len(s.items) - 1
}

// SelectColumns selects alias.col for each column and returns their
// positions.
func (s *Select) SelectColumns(cols []*mapping.Column, joins Joins) []int {
	pos := make([]int, len(cols))
	for i, c := range cols {
		pos[i] = s.Select(NewBuffer().AppendColumn(joins.AliasOf(c), c), joins)
	}
	return pos
}

// Items returns the select list.
func (s *Select) Items() []*Buffer {
	return s.items
}

// ClearItems empties the select list.
func (s *Select) ClearItems() {
	s.items = nil
}

// ClearOrderBy drops the ordering, for selects only counted.
func (s *Select) ClearOrderBy() {
	s.orderBy = nil
}

func (s *Select) GroupBy(buf *Buffer, joins Joins) {
	s.AddJoins(joins)
	s.groupBy = append(s.groupBy, buf)
}

func (s *Select) OrderBy(buf *Buffer, asc bool, joins Joins) {
	s.AddJoins(joins)
	s.orderBy = append(s.orderBy, orderItem{buf: buf, asc: asc})
}

func (s *Select) IsGrouped() bool {
	return len(s.groupBy) > 0
}

func (s *Select) HasWhere() bool {
	return len(s.where) > 0
}

func (s *Select) SetDistinct(distinct bool) {
	s.distinct = distinct
}

func (s *Select) IsDistinct() bool {
	return s.distinct
}

// ExcludeSubclass removes rows that also have a row in a subclass table:
// the subclass table is outer joined and its key required to be NULL.
// left holds columns of fromAlias, right the parallel subclass columns.
func (s *Select) ExcludeSubclass(fromAlias string, sub *mapping.Table, left, right []*mapping.Column) string {
	key := "exclude:" + fromAlias + ">" + sub.Name
	alias := s.aliasFor(key, sub)
	if s.excluded[alias] {
		return alias
	}
	s.excluded[alias] = true
	s.AddJoins(Joins{list: []Join{{
		Kind:      JoinOuter,
		Alias:     alias,
		Table:     sub,
		FromAlias: fromAlias,
		Left:      left,
		Right:     right,
	}}})
	s.where = append(s.where, NewBuffer().AppendColumn(alias, right[0]).Append(" IS NULL"))
	return alias
}

// Render writes the complete SELECT.
func (s *Select) Render() *Buffer {
	b := NewBuffer().Append("SELECT ")
	if s.distinct {
		b.Append("DISTINCT ")
	}
	if len(s.items) == 0 {
		b.Append("1")
	}
	for i, item := range s.items {
		if i > 0 {
			b.Append(", ")
		}
		b.AppendBuffer(item)
	}
	from, conds := s.renderFrom()
	b.Append(" FROM ").AppendBuffer(from)
	appendConjunction(b, " WHERE ", append(conds, s.where...))
	if len(s.groupBy) > 0 {
		b.Append(" GROUP BY ")
		for i, g := range s.groupBy {
			if i > 0 {
				b.Append(", ")
			}
			b.AppendBuffer(g)
		}
	}
	appendConjunction(b, " HAVING ", s.having)
	if len(s.orderBy) > 0 {
		b.Append(" ORDER BY ")
		for i, o := range s.orderBy {
			if i > 0 {
				b.Append(", ")
			}
			b.AppendBuffer(o.buf)
			if o.asc {
				b.Append(" ASC")
			} else {
				b.Append(" DESC")
			}
		}
	}
	return b
}

// RenderFrom writes the FROM items and WHERE conditions only, for callers
// building their own select list.
func (s *Select) RenderFrom() (*Buffer, *Buffer) {
	from, conds := s.renderFrom()
	where := NewBuffer()
	appendConjunction(where, "", append(conds, s.where...))
	return from, where
}

func (s *Select) renderFrom() (*Buffer, []*Buffer) {
	b := NewBuffer()
	var conds []*Buffer
	first := true
	if s.fromRoot {
		b.Append(s.rootTable.FullName() + " " + s.rootAlias)
		first = false
	}
	for _, j := range s.joins {
		item := j.Table.FullName() + " " + j.Alias
		correlated := j.Kind != JoinCross && !s.local[j.FromAlias]
		switch {
		case first:
			b.Append(item)
		case j.Kind == JoinCross || correlated:
			b.Append(" CROSS JOIN " + item)
		default:
			b.Append(" " + j.Kind.String() + " " + item + " ON ")
			b.AppendBuffer(onCondition(j))
		}
		if correlated {
			conds = append(conds, onCondition(j))
		}
		first = false
	}
	return b, conds
}

func onCondition(j Join) *Buffer {
	b := NewBuffer()
	for i := range j.Left {
		if i > 0 {
			b.Append(" AND ")
		}
		b.AppendColumn(j.FromAlias, j.Left[i]).Append(" = ").AppendColumn(j.Alias, j.Right[i])
	}
	return b
}

func appendConjunction(b *Buffer, keyword string, conds []*Buffer) {
	if len(conds) == 0 {
		return
	}
	b.Append(keyword)
	wrap := len(conds) > 1
	for i, c := range conds {
		if i > 0 {
			b.Append(" AND ")
		}
		if wrap && c.IsDisjunction() {
			b.Append("(").AppendBuffer(c).Append(")")
		} else {
			b.AppendBuffer(c)
		}
	}
}

