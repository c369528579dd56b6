package sql

import (
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
)

// SelectID indexes a select within its Statement.
type SelectID int

// NoSelect is the parent of a top level select.
const NoSelect SelectID = -1

// Statement is the arena holding a top level select and its subselects.
// Subselects refer to their enclosing select by id. Aliases are unique
// across the whole statement so correlated references never collide.
type Statement struct {
	selects []*Select
	next    int
}

func NewStatement() *Statement {
	return &Statement{}
}

// NewSelect adds a select nested in parent, or a top level one for
// NoSelect.
func (s *Statement) NewSelect(parent SelectID) *Select {
	sel := newSelect(s, SelectID(len(s.selects)), parent)
	s.selects = append(s.selects, sel)
	return sel
}

func (s *Statement) Select(id SelectID) *Select {
	if id < 0 || int(id) >= len(s.selects) {
		return nil
	}
	return s.selects[id]
}

// Root returns the first top level select.
func (s *Statement) Root() *Select {
	if len(s.selects) == 0 {
		return nil
	}
	return s.selects[0]
}

func (s *Statement) Len() int {
	return len(s.selects)
}

func (s *Statement) newAlias(table *mapping.Table) string {
	a := AliasBase(table) + "_" + strconv.Itoa(s.next)
	s.next++
	return a
}

// AliasBase is the singular, lower case table name used to prefix aliases.
func AliasBase(table *mapping.Table) string {
	return inflection.Singular(strings.ToLower(table.Name))
}
