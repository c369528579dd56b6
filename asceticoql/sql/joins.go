package sql

import (
	"slices"

	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
)

type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinOuter
	JoinCross
)

func (k JoinKind) String() string {
	switch k {
	case JoinOuter:
		return "LEFT OUTER JOIN"
	case JoinCross:
		return "CROSS JOIN"
	}
	return "INNER JOIN"
}

// Join is one table joined into a select. Left holds columns of FromAlias
// and Right the parallel columns of Alias. Cross joins have no columns.
type Join struct {
	Kind      JoinKind
	Alias     string
	Table     *mapping.Table
	FromAlias string
	Left      []*mapping.Column
	Right     []*mapping.Column
}

// Joins is an immutable set of joins plus the position reached by the last
// one. Every method returns a new value.
type Joins struct {
	sel        *Select
	alias      string
	table      *mapping.Table
	path       string
	list       []Join
	variable   string
	correlated string
	subselect  string
	outer      bool
	multiple   bool
}

// Join joins table from the current position. The alias is shared by
// every join reaching the same table over the same path within the select.
func (j Joins) Join(step string, table *mapping.Table, left, right []*mapping.Column, outer, toMany bool) Joins {
	key := j.path + "." + step
	alias := j.sel.aliasFor(key, table)
	kind := JoinInner
	if outer {
		kind = JoinOuter
	}
	n := j
	n.list = append(slices.Clip(j.list), Join{
		Kind:      kind,
		Alias:     alias,
		Table:     table,
		FromAlias: j.alias,
		Left:      left,
		Right:     right,
	})
	n.alias = alias
	n.table = table
	n.path = key
	n.outer = j.outer || outer
	n.multiple = j.multiple || toMany
	n.variable = ""
	return n
}

// JoinForeignKey joins through fk. A forward key lives at the current
// position and references the target; an inverse key lives in the target
// and references the current position.
func (j Joins) JoinForeignKey(step string, fk *mapping.ForeignKey, inverse, outer, toMany bool) Joins {
	if inverse {
		return j.Join(step, fk.Table(), fk.PrimaryKeyColumns, fk.Columns, outer, toMany)
	}
	return j.Join(step, fk.PrimaryKeyTable(), fk.Columns, fk.PrimaryKeyColumns, outer, toMany)
}

// CrossJoin positions the joins on a table cross joined for an unbound
// variable.
func (j Joins) CrossJoin(variable string, table *mapping.Table) Joins {
	key := "var:" + variable
	alias := j.sel.aliasFor(key, table)
	n := j
	n.list = append(slices.Clip(j.list), Join{Kind: JoinCross, Alias: alias, Table: table})
	n.alias = alias
	n.table = table
	n.path = key
	n.variable = variable
	return n
}

// SetVariable scopes the next join to a variable, so each variable gets its
// own alias for the same relation.
func (j Joins) SetVariable(name string) Joins {
	if name == "" {
		return j
	}
	n := j
	n.path = j.path + "[" + name + "]"
	n.variable = name
	return n
}

// SetCorrelatedVariable marks the joins as navigating from the root of an
// enclosing select.
func (j Joins) SetCorrelatedVariable(name string) Joins {
	n := j
	n.correlated = name
	return n
}

// SetSubselect marks the joins as rooted at a subquery candidate.
func (j Joins) SetSubselect(alias string) Joins {
	n := j
	n.subselect = alias
	return n
}

// Outer returns the joins with every inner join made outer.
func (j Joins) Outer() Joins {
	n := j
	n.list = make([]Join, len(j.list))
	for i, x := range j.list {
		if x.Kind == JoinInner {
			x.Kind = JoinOuter
		}
		n.list[i] = x
	}
	n.outer = true
	return n
}

func (j Joins) Select() *Select {
	return j.sel
}

// Alias returns the alias of the current position.
func (j Joins) Alias() string {
	return j.alias
}

func (j Joins) Table() *mapping.Table {
	return j.table
}

func (j Joins) Path() string {
	return j.path
}

func (j Joins) List() []Join {
	return j.list
}

func (j Joins) Variable() string {
	return j.variable
}

func (j Joins) CorrelatedVariable() string {
	return j.correlated
}

func (j Joins) Subselect() string {
	return j.subselect
}

func (j Joins) IsEmpty() bool {
	return len(j.list) == 0
}

func (j Joins) IsOuter() bool {
	return j.outer
}

// IsMultiple reports whether the joins traverse a to-many relation.
func (j Joins) IsMultiple() bool {
	return j.multiple
}

// AliasOf returns the alias qualifying col: the current position when it
// holds the column, otherwise the latest join of the column's table.
func (j Joins) AliasOf(col *mapping.Column) string {
	if j.table == col.Table {
		return j.alias
	}
	for i := len(j.list) - 1; i >= 0; i-- {
		if j.list[i].Table == col.Table {
			return j.list[i].Alias
		}
	}
	if j.sel != nil {
		for s := j.sel; s != nil; s = s.Parent() {
			if s.rootTable == col.Table {
				return s.rootAlias
			}
		}
	}
	return j.alias
}

func mergeJoins(a, b []Join, or bool) []Join {
	out := make([]Join, 0, len(a)+len(b))
	index := make(map[string]int, len(a)+len(b))
	inB := make(map[string]bool, len(b))
	for _, x := range b {
		inB[x.Alias] = true
	}
	for _, x := range a {
		if _, ok := index[x.Alias]; ok {
			continue
		}
		if or && !inB[x.Alias] && x.Kind == JoinInner {
			x.Kind = JoinOuter
		}
		index[x.Alias] = len(out)
		out = append(out, x)
	}
	for _, x := range b {
		i, ok := index[x.Alias]
		if !ok {
			if or && x.Kind == JoinInner {
				x.Kind = JoinOuter
			}
			index[x.Alias] = len(out)
			out = append(out, x)
			continue
		}
		out[i].Kind = combineKind(out[i].Kind, x.Kind, or)
	}
	return out
}

func combineKind(a, b JoinKind, or bool) JoinKind {
	if a == JoinCross || b == JoinCross {
		return JoinCross
	}
	if or {
		if a == JoinOuter || b == JoinOuter {
			return JoinOuter
		}
		return JoinInner
	}
	if a == JoinInner || b == JoinInner {
		return JoinInner
	}
	return JoinOuter
}
