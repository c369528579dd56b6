package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

const shopYAML = `
tables:
  - name: people
    primary_key: [id]
    columns:
      - {name: id, kind: int}
      - {name: kind, kind: string}
      - {name: name, kind: string}
  - name: customers
    primary_key: [id]
    columns:
      - {name: id, kind: int}
  - name: addresses
    primary_key: [id]
    columns:
      - {name: id, kind: int}
  - name: orders
    primary_key: [id]
    columns:
      - {name: id, kind: int}
  - name: customer_tags
    columns: []
classes:
  - name: Person
    table: people
    discriminator: {column: kind, value: P}
    fields:
      - {name: name, type: string}
  - name: Customer
    table: customers
    extends: Person
    strategy: vertical
    fields:
      - {name: address, kind: relation, related: Address, columns: [address_id]}
      - {name: orders, kind: collection, related: Order, mapped_by: customer}
      - {name: tags, kind: collection, join_table: customer_tags, join_columns: [customer_id], element_type: string, element_columns: [tag]}
  - name: Employee
    extends: Person
    strategy: flat
    discriminator: {column: kind, value: E}
    fields:
      - {name: salary, type: decimal}
  - name: Address
    table: addresses
    fields:
      - {name: city, type: string}
  - name: Order
    table: orders
    fields:
      - {name: customer, kind: relation, related: Customer, columns: [customer_id]}
      - {name: total, type: decimal}
`

func TestLoadYAML(t *testing.T) {
	repo, err := LoadYAML(strings.NewReader(shopYAML))
	require.NoError(t, err)

	customer, err := repo.ClassMapping("Customer")
	require.NoError(t, err)
	assert.Equal(t, StrategyVertical, customer.Strategy)
	require.NotNil(t, customer.SuperclassJoin)
	assert.Equal(t, "people", customer.SuperclassJoin.PrimaryKeyTable().Name)

	name, err := repo.FieldMapping(customer, "name")
	require.NoError(t, err)
	assert.Equal(t, "Person", name.Owner.Name)
	assert.Equal(t, types.KindString, name.Value.Kind)

	orders := customer.Field("orders")
	require.NotNil(t, orders)
	assert.True(t, orders.IsToMany())
	fk := orders.ElementForeignKey()
	require.NotNil(t, fk)
	assert.Equal(t, "orders", fk.Table().Name)
	assert.Equal(t, "customer_id", fk.Columns[0].Name)
	assert.Equal(t, "orders", orders.ElementTable().Name)

	tags := customer.Field("tags")
	assert.Equal(t, "customer_tags", tags.ElementTable().Name)
	assert.Equal(t, "tag", tags.Columns()[0].Name)

	employee, err := repo.ClassMapping("Employee")
	require.NoError(t, err)
	assert.Same(t, employee.Table, employee.Superclass.Table)
	assert.Equal(t, "E", employee.Discriminator.Value)

	person, _ := repo.ClassMapping("Person")
	assert.True(t, person.IsAssignableFrom(customer))
	assert.False(t, customer.IsAssignableFrom(person))
	assert.Len(t, person.AllSubclasses(), 2)
}

func TestLoadYAMLReportsAllErrors(t *testing.T) {
	doc := `
tables:
  - name: things
    primary_key: [id]
    columns: [{name: id, kind: int}]
classes:
  - name: Thing
    table: things
    fields:
      - {name: owner, kind: relation, related: Nobody, columns: [owner_id]}
      - {name: stuff, kind: teleport}
`
	_, err := LoadYAML(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestUnknownLookups(t *testing.T) {
	repo := NewRepository()
	_, err := repo.ClassMapping("Missing")
	assert.ErrorIs(t, err, ErrUnknownClass)

	table := NewTable("widgets")
	table.AddColumn("id", types.KindInt)
	table.WithPrimaryKey("id")
	widget := repo.Register(NewClassMapping("Widget", table))
	_, err = repo.FieldMapping(widget, "colour")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestForeignKeyPrimaryKeyColumn(t *testing.T) {
	a := NewTable("a")
	b := NewTable("b")
	a1, a2 := a.AddColumn("b_x", types.KindInt), a.AddColumn("b_y", types.KindInt)
	b1, b2 := b.AddColumn("x", types.KindInt), b.AddColumn("y", types.KindInt)
	fk, err := NewForeignKey([]*Column{a1, a2}, []*Column{b1, b2})
	require.NoError(t, err)
	assert.Same(t, b2, fk.PrimaryKeyColumn(a2))
	assert.Nil(t, fk.PrimaryKeyColumn(b1))

	_, err = NewForeignKey([]*Column{a1}, []*Column{b1, b2})
	assert.ErrorIs(t, err, ErrInvalidForeignKey)
}
