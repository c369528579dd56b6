package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// newShopRepository maps a small shop:
//
//	Person (people, discriminated by kind)
//	  Employee (flat, kind = E)
//	  Customer (vertical, customers, kind = C)
//	Address, Order, LineItem, Product, Shipment (compound key)
//	Vehicle > Car > SportsCar (vertical, no discriminator)
func newShopRepository() *mapping.Repository {
	repo := mapping.NewRepository()

	people := mapping.NewTable("people")
	people.AddColumn("id", types.KindInt)
	kind := people.AddColumn("kind", types.KindString)
	people.WithPrimaryKey("id")
	person := repo.Register(mapping.NewClassMapping("Person", people)).WithDiscriminator(kind, "P")
	person.AddBasic("name", "name", types.KindString)
	person.AddXML("profile", "profile")

	employee := repo.Register(mapping.NewClassMapping("Employee", nil)).
		Extends(person, mapping.StrategyFlat).
		WithDiscriminator(kind, "E")
	employee.AddBasic("salary", "salary", types.KindDecimal)

	addresses := mapping.NewTable("addresses")
	addresses.AddColumn("id", types.KindInt)
	addresses.WithPrimaryKey("id")
	address := repo.Register(mapping.NewClassMapping("Address", addresses))
	address.AddBasic("city", "city", types.KindString)

	customers := mapping.NewTable("customers")
	customers.AddColumn("id", types.KindInt)
	customers.WithPrimaryKey("id")
	customer := repo.Register(mapping.NewClassMapping("Customer", customers)).
		Extends(person, mapping.StrategyVertical).
		WithDiscriminator(kind, "C")
	customer.AddRelation("address", address, "address_id")
	customer.AddBasic("rating", "rating", types.KindInt)
	customer.AddField(&mapping.FieldMapping{Name: "cart", Transient: true})

	tags := mapping.NewTable("customer_tags")
	repo.AddTable(tags)
	customer.AddCollectionTable("tags", tags, []string{"customer_id"}, nil, types.KindString, "tag")

	attributes := mapping.NewTable("customer_attributes")
	repo.AddTable(attributes)
	customer.AddMapTable("attributes", attributes, []string{"customer_id"},
		nil, types.KindString, []string{"name"},
		nil, types.KindString, []string{"value"})

	shipments := mapping.NewTable("shipments")
	shipments.AddColumn("region", types.KindString)
	shipments.AddColumn("number", types.KindInt)
	shipments.WithPrimaryKey("region", "number")
	shipment := repo.Register(mapping.NewClassMapping("Shipment", shipments))
	shipment.AddBasic("carrier", "carrier", types.KindString)

	orders := mapping.NewTable("orders")
	orders.AddColumn("id", types.KindInt)
	orders.WithPrimaryKey("id")
	order := repo.Register(mapping.NewClassMapping("Order", orders))
	order.AddRelation("customer", customer, "customer_id")
	order.AddRelation("shipment", shipment, "shipment_region", "shipment_number")
	order.AddBasic("total", "total", types.KindDecimal)
	order.AddBasic("status", "status", types.KindString)
	order.AddBasic("placed", "placed_at", types.KindTime)
	customer.AddInverseCollection("orders", order, "customer")

	products := mapping.NewTable("products")
	products.AddColumn("id", types.KindInt)
	products.WithPrimaryKey("id")
	product := repo.Register(mapping.NewClassMapping("Product", products))
	product.AddBasic("name", "name", types.KindString)
	product.AddBasic("price", "price", types.KindDecimal)

	lines := mapping.NewTable("line_items")
	lines.AddColumn("id", types.KindInt)
	lines.WithPrimaryKey("id")
	line := repo.Register(mapping.NewClassMapping("LineItem", lines))
	line.AddRelation("order", order, "order_id")
	line.AddRelation("product", product, "product_id")
	line.AddBasic("quantity", "quantity", types.KindInt)
	order.AddInverseCollection("lines", line, "order")

	vehicles := mapping.NewTable("vehicles")
	vehicles.AddColumn("id", types.KindInt)
	vehicles.WithPrimaryKey("id")
	vehicle := repo.Register(mapping.NewClassMapping("Vehicle", vehicles))
	vehicle.AddBasic("wheels", "wheels", types.KindInt)

	cars := mapping.NewTable("cars")
	cars.AddColumn("id", types.KindInt)
	cars.WithPrimaryKey("id")
	car := repo.Register(mapping.NewClassMapping("Car", cars)).Extends(vehicle, mapping.StrategyVertical)
	car.AddBasic("doors", "doors", types.KindInt)

	sports := mapping.NewTable("sports_cars")
	sports.AddColumn("id", types.KindInt)
	sports.WithPrimaryKey("id")
	sportsCar := repo.Register(mapping.NewClassMapping("SportsCar", sports)).Extends(car, mapping.StrategyVertical)
	sportsCar.AddBasic("topSpeed", "top_speed", types.KindInt)

	return repo
}

func newTestCompiler(opts ...CompilerOption) *Compiler {
	return NewCompiler(newShopRepository(), opts...)
}

func compile(t *testing.T, query q.Query, params Params, opts ...CompilerOption) *Result {
	t.Helper()
	res, err := newTestCompiler(opts...).Compile(query, params)
	require.NoError(t, err)
	return res
}

func compileIn(t *testing.T, d dialect.Dialect, query q.Query, params Params) *Result {
	t.Helper()
	return compile(t, query, params, WithDialect(d))
}

func paramValues(res *Result) []any {
	out := make([]any, len(res.Params))
	for i, p := range res.Params {
		out[i] = p.Value
	}
	return out
}
