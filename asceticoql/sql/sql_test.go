package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

type shop struct {
	customers, addresses, orders *mapping.Table
	address, customerOrders      *mapping.ForeignKey
}

func newShop() shop {
	customers := mapping.NewTable("customers")
	customers.AddColumn("id", types.KindInt)
	customers.AddColumn("name", types.KindString)
	addressID := customers.AddColumn("address_id", types.KindInt)
	customers.WithPrimaryKey("id")

	addresses := mapping.NewTable("addresses")
	addresses.AddColumn("id", types.KindInt)
	addresses.AddColumn("city", types.KindString)
	addresses.WithPrimaryKey("id")

	orders := mapping.NewTable("orders")
	orders.AddColumn("id", types.KindInt)
	customerID := orders.AddColumn("customer_id", types.KindInt)
	orders.WithPrimaryKey("id")

	return shop{
		customers:      customers,
		addresses:      addresses,
		orders:         orders,
		address:        mapping.MustForeignKey([]*mapping.Column{addressID}, addresses.PrimaryKey),
		customerOrders: mapping.MustForeignKey([]*mapping.Column{customerID}, customers.PrimaryKey),
	}
}

func TestRenderJoinedSelect(t *testing.T) {
	s := newShop()
	sel := NewStatement().NewSelect(NoSelect).SetRoot(s.customers, "c")
	j := sel.NewJoins().JoinForeignKey("address", s.address, false, false, false)
	city := s.addresses.Column("city")
	sel.Where(NewBuffer().AppendColumn(j.AliasOf(city), city).Append(" = ").AppendValue("Paris", city), j)
	sel.SelectColumns(s.customers.PrimaryKey, sel.NewJoins())

	got := sel.Render()
	assert.Equal(t,
		"SELECT customer_0.id FROM customers customer_0 INNER JOIN addresses address_1 ON customer_0.address_id = address_1.id WHERE address_1.city = ?",
		got.String())
	require.Len(t, got.Params(), 1)
	assert.Equal(t, "Paris", got.Params()[0].Value)
	assert.Same(t, city, got.Params()[0].Column)
}

func TestSamePathSharesAlias(t *testing.T) {
	s := newShop()
	sel := NewStatement().NewSelect(NoSelect).SetRoot(s.customers, "c")
	a := sel.NewJoins().JoinForeignKey("address", s.address, false, false, false)
	b := sel.NewJoins().JoinForeignKey("address", s.address, false, true, false)
	assert.Equal(t, a.Alias(), b.Alias())
	assert.True(t, b.IsOuter())
	assert.False(t, a.IsOuter())
}

func TestVariablesGetOwnAliases(t *testing.T) {
	s := newShop()
	sel := NewStatement().NewSelect(NoSelect).SetRoot(s.customers, "c")
	x := sel.NewJoins().SetVariable("x").JoinForeignKey("orders", s.customerOrders, true, false, true)
	y := sel.NewJoins().SetVariable("y").JoinForeignKey("orders", s.customerOrders, true, false, true)
	assert.NotEqual(t, x.Alias(), y.Alias())
	assert.True(t, x.IsMultiple())
	assert.Equal(t, "", x.Variable())

	or := sel.Or(x, y)
	require.Len(t, or.List(), 2)
	for _, j := range or.List() {
		assert.Equal(t, JoinOuter, j.Kind)
	}

	and := sel.And(or, x)
	assert.Equal(t, JoinInner, and.List()[0].Kind)
	assert.Equal(t, JoinOuter, and.List()[1].Kind)
}

func TestOrKeepsSharedJoinsInner(t *testing.T) {
	s := newShop()
	sel := NewStatement().NewSelect(NoSelect).SetRoot(s.customers, "c")
	a := sel.NewJoins().JoinForeignKey("address", s.address, false, false, false)
	b := sel.NewJoins().JoinForeignKey("address", s.address, false, false, false)
	or := sel.Or(a, b)
	require.Len(t, or.List(), 1)
	assert.Equal(t, JoinInner, or.List()[0].Kind)
}

func TestCorrelatedSubselect(t *testing.T) {
	s := newShop()
	sel := NewStatement().NewSelect(NoSelect).SetRoot(s.customers, "c")
	sub := sel.NewSubselect()
	assert.Same(t, sel, sub.Parent())

	j := sub.CorrelatedJoins(sel).JoinForeignKey("orders", s.customerOrders, true, false, true)
	assert.Equal(t, "c", j.CorrelatedVariable())
	sub.SetCorrelatedRoot(j, "o")
	sub.Select(NewBuffer().Append("COUNT(*)"), sub.NewJoins())

	assert.Equal(t,
		"SELECT COUNT(*) FROM orders order_1 WHERE customer_0.id = order_1.customer_id",
		sub.Render().String())
	assert.Same(t, sub, sub.Find("o"))
	assert.Same(t, sel, sub.Find("c"))
	assert.Nil(t, sub.Find("z"))
}

func TestExcludeSubclass(t *testing.T) {
	people := mapping.NewTable("people")
	people.AddColumn("id", types.KindInt)
	people.WithPrimaryKey("id")
	customers := mapping.NewTable("customers")
	customers.AddColumn("id", types.KindInt)
	customers.WithPrimaryKey("id")

	sel := NewStatement().NewSelect(NoSelect).SetRoot(people, "p")
	a := sel.ExcludeSubclass(sel.RootAlias(), customers, people.PrimaryKey, customers.PrimaryKey)
	b := sel.ExcludeSubclass(sel.RootAlias(), customers, people.PrimaryKey, customers.PrimaryKey)
	assert.Equal(t, a, b)
	sel.Where(NewBuffer().Append("1 = 1"), sel.NewJoins())

	assert.Equal(t,
		"SELECT 1 FROM people person_0 LEFT OUTER JOIN customers customer_1 ON person_0.id = customer_1.id WHERE customer_1.id IS NULL AND 1 = 1",
		sel.Render().String())
}

func TestSelectClauses(t *testing.T) {
	s := newShop()
	sel := NewStatement().NewSelect(NoSelect).SetRoot(s.customers, "c")
	name := s.customers.Column("name")
	root := sel.NewJoins()
	assert.Equal(t, []int{0}, sel.SelectColumns([]*mapping.Column{name}, root))
	assert.Equal(t, []int{0}, sel.SelectColumns([]*mapping.Column{name}, root))
	sel.Select(NewBuffer().Append("COUNT(*)"), root)
	sel.GroupBy(NewBuffer().AppendColumn(root.Alias(), name), root)
	sel.Having(NewBuffer().Append("COUNT(*) > ").AppendValue(int64(1), nil), root)
	sel.OrderBy(NewBuffer().AppendColumn(root.Alias(), name), false, root)
	sel.Where(NewBuffer().Append("a = 1 OR b = 2").MarkDisjunction(), root)
	sel.Where(NewBuffer().Append("c = 3"), root)
	sel.SetDistinct(true)

	assert.Equal(t,
		"SELECT DISTINCT customer_0.name, COUNT(*) FROM customers customer_0 WHERE (a = 1 OR b = 2) AND c = 3 GROUP BY customer_0.name HAVING COUNT(*) > ? ORDER BY customer_0.name DESC",
		sel.Render().String())
}

func TestWhereParenthesizesOnlyDisjunctions(t *testing.T) {
	s := newShop()
	sel := NewStatement().NewSelect(NoSelect).SetRoot(s.customers, "c")
	root := sel.NewJoins()
	sel.Where(NewBuffer().Append("customer_0.name = 'a OR b'"), root)
	sel.Where(NewBuffer().Append("customer_0.id > 1"), root)
	assert.Equal(t,
		"SELECT 1 FROM customers customer_0 WHERE customer_0.name = 'a OR b' AND customer_0.id > 1",
		sel.Render().String())

	sel = NewStatement().NewSelect(NoSelect).SetRoot(s.customers, "c")
	sel.Where(NewBuffer().Append("a = 1 OR b = 2").MarkDisjunction(), sel.NewJoins())
	assert.Equal(t, "SELECT 1 FROM customers customer_0 WHERE a = 1 OR b = 2", sel.Render().String())

	cond := NewBuffer().Append("a = 1 OR b = 2").MarkDisjunction()
	assert.True(t, cond.Clone().IsDisjunction())
	assert.False(t, NewBuffer().AppendBuffer(cond).IsDisjunction())
}

func TestAppendTemplate(t *testing.T) {
	str := NewBuffer().AppendValue("abc", nil)
	sub := NewBuffer().AppendValue("b", nil)
	b := NewBuffer()
	require.NoError(t, b.AppendTemplate("POSITION({1} IN {0})", str, sub))
	assert.Equal(t, "POSITION(? IN ?)", b.String())
	assert.Equal(t, "b", b.Params()[0].Value)
	assert.Equal(t, "abc", b.Params()[1].Value)

	assert.Error(t, NewBuffer().AppendTemplate("F({2})", str))
	assert.Error(t, NewBuffer().AppendTemplate("F({0", str))
}

func TestParamRefString(t *testing.T) {
	assert.Equal(t, "?1", NewParamRef("1").String())
	assert.Equal(t, ":ids[2]", NewParamRef("ids").WithElement(2).String())
	assert.Equal(t, ":key.1", NewParamRef("key").WithComponent(1).String())
}

func TestAliasBase(t *testing.T) {
	assert.Equal(t, "customer_tag", AliasBase(mapping.NewTable("customer_tags")))
	assert.Equal(t, "person", AliasBase(mapping.NewTable("People")))
}
