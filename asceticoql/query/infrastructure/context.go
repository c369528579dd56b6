package query

import (
	"maps"
	"strconv"

	"github.com/jinzhu/inflection"

	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// flags pass intent down through initialize.
type flags uint8

const (
	// flagNullCmp marks a value compared with NULL: the final relation is
	// not joined, only its existence matters.
	flagNullCmp flags = 1 << iota
	// flagJoinRel joins into the related table of a relation path.
	flagJoinRel
	// flagForceOuter makes the final relation join outer.
	flagForceOuter
)

// clausePass is the identity of one clause rendering. States are only
// valid inside the pass that created them.
type clausePass struct {
	name string
}

// expContext is threaded through every protocol call of one statement
// compilation.
type expContext struct {
	compiler *Compiler
	dialect  dialect.Dialect
	params   Params
	pass     *clausePass
	// counts numbers the contains variables minted per collection path.
	// OR branches work on copies merged back by max.
	counts map[string]int
	// tag scopes contains variables to an OR branch.
	tag  string
	tags *int
	// sole is set while the only projection of a select is compiled.
	sole bool
}

func newExpContext(c *Compiler, params Params) *expContext {
	if params == nil {
		params = Params{}
	}
	return &expContext{
		compiler: c,
		dialect:  c.dialect,
		params:   params,
		pass:     &clausePass{name: "init"},
		counts:   make(map[string]int),
		tags:     new(int),
	}
}

// inPass runs fn inside a fresh clause pass.
func (c *expContext) inPass(name string, fn func() error) error {
	prev := c.pass
	c.pass = &clausePass{name: name}
	defer func() { c.pass = prev }()
	return fn()
}

// branch returns a context for one OR branch with its own copy of the
// contains counters.
func (c *expContext) branch(tag string) *expContext {
	n := *c
	n.counts = maps.Clone(c.counts)
	n.tag = c.tag + tag
	return &n
}

// merge takes the highest count of every path seen by the branches.
func (c *expContext) merge(branches ...*expContext) {
	for _, b := range branches {
		for k, v := range b.counts {
			if v > c.counts[k] {
				c.counts[k] = v
			}
		}
	}
}

// nextTag numbers OR expressions across the statement.
func (c *expContext) nextTag() string {
	n := *c.tags
	*c.tags++
	return strconv.Itoa(n)
}

// containsVariable mints the variable name scoping one contains test over
// the collection at path.
func (c *expContext) containsVariable(path string, field *mapping.FieldMapping) string {
	n := c.counts[path]
	c.counts[path] = n + 1
	base := "element"
	if field != nil {
		base = inflection.Singular(field.Name)
	}
	return "#" + c.tag + ":" + base + strconv.Itoa(n)
}

func (c *expContext) inClauseLimit() int {
	if c.compiler.inClauseLimit > 0 {
		return c.compiler.inClauseLimit
	}
	return c.dialect.InClauseLimit()
}

func (c *expContext) param(key string) (any, error) {
	v, ok := c.params[key]
	if !ok {
		return nil, q.WrapUser(q.ErrMissingParam, key)
	}
	return v, nil
}

// expState is the per-pass record of one node: the joins its subtree
// needs and whatever the node derived while initializing.
type expState struct {
	owner    any
	pass     *clausePass
	joins    sql.Joins
	kind     types.Kind
	children []*expState

	path *pathState

	// value is the compile-time value of constants and parameters.
	value any
	// columns are the columns of the value this one is compared with.
	columns []*mapping.Column

	sub *sql.Select

	// wrapDistinct asks the assembler to count distinct rows of a
	// subselect; distinctColumns are its select list.
	wrapDistinct    bool
	distinctColumns []*sql.Buffer
}

func newState(owner any, ctx *expContext, joins sql.Joins) *expState {
	return &expState{owner: owner, pass: ctx.pass, joins: joins}
}

// check fails when st was not created by owner in the current pass.
func check(owner any, ctx *expContext, st *expState) error {
	if st == nil {
		return q.Invariantf(q.ErrStateMismatch, "%T used without state", owner)
	}
	if st.owner != owner {
		return q.Invariantf(q.ErrStateMismatch, "%T used with the state of %T", owner, st.owner)
	}
	if st.pass != ctx.pass {
		return q.Invariantf(q.ErrStateMismatch, "%T state of pass %q used in pass %q", owner, st.pass.name, ctx.pass.name)
	}
	return nil
}

func (st *expState) child(i int) *expState {
	if i < len(st.children) {
		return st.children[i]
	}
	return nil
}

// column returns the compared-with column for element i, or nil.
func (st *expState) column(i int) *mapping.Column {
	if i < len(st.columns) {
		return st.columns[i]
	}
	return nil
}
