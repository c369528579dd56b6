package query

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

func TestCompileFieldComparison(t *testing.T) {
	res := compile(t, q.Select("Order", "o").Where(q.Equal(q.Path("o", "total"), q.Lit(100))), nil)

	assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE order_0.total = $1", res.SQL)
	require.Len(t, res.Params, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(res.Params[0].Value.(decimal.Decimal)))
	assert.False(t, res.Extent)
	assert.Equal(t, []types.Kind{types.KindObject}, res.Kinds)
}

func TestCompileExtent(t *testing.T) {
	res := compile(t, q.Select("Order", "o"), nil)

	assert.Equal(t, "SELECT order_0.id FROM orders order_0", res.SQL)
	assert.True(t, res.Extent)
	assert.Empty(t, res.Params)
}

func TestCompileRelationTraversal(t *testing.T) {
	res := compile(t, q.Select("Order", "o").Where(q.Equal(q.Path("o", "customer", "name"), q.Lit("Ann"))), nil)

	assert.Equal(t, "SELECT order_0.id FROM orders order_0"+
		" INNER JOIN customers customer_1 ON order_0.customer_id = customer_1.id"+
		" INNER JOIN people person_2 ON customer_1.id = person_2.id"+
		" WHERE person_2.name = $1", res.SQL)
	assert.Equal(t, []any{"Ann"}, paramValues(res))
	require.Len(t, res.Joins, 2)
	assert.Equal(t, sql.JoinInner, res.Joins[0].Kind)
}

func TestCompileNullComparisons(t *testing.T) {
	cases := []struct {
		name   string
		filter q.Exp
		params Params
		where  string
	}{
		{
			name:   "forward relation",
			filter: q.IsNull(q.Path("o", "customer")),
			where:  "order_0.customer_id IS NULL",
		},
		{
			name:   "null parameter",
			filter: q.Equal(q.Path("o", "status"), q.Param("s")),
			params: Params{"s": nil},
			where:  "order_0.status IS NULL",
		},
		{
			name:   "not null",
			filter: q.IsNotNull(q.Path("o", "status")),
			where:  "order_0.status IS NOT NULL",
		},
		{
			name:   "candidate is never null",
			filter: q.IsNull(q.Path("o")),
			where:  "1 <> 1",
		},
		{
			name:   "null equals null",
			filter: q.Equal(q.Null(), q.Null()),
			where:  "1 = 1",
		},
		{
			name:   "null differs from null",
			filter: q.NotEqual(q.Null(), q.Param("s")),
			params: Params{"s": nil},
			where:  "1 <> 1",
		},
		{
			name:   "ordering against null",
			filter: q.GreaterThan(q.Path("o", "total"), q.Null()),
			where:  "1 <> 1",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := compile(t, q.Select("Order", "o").Where(c.filter), c.params)
			assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE "+c.where, res.SQL)
			assert.Empty(t, res.Params)
		})
	}
}

func TestCompileNotNullThroughRelation(t *testing.T) {
	res := compile(t, q.Select("Order", "o").Where(q.IsNotNull(q.Path("o", "customer", "name"))), nil)

	assert.Equal(t, "SELECT order_0.id FROM orders order_0"+
		" INNER JOIN customers customer_1 ON order_0.customer_id = customer_1.id"+
		" INNER JOIN people person_2 ON customer_1.id = person_2.id"+
		" WHERE person_2.name IS NOT NULL", res.SQL)
}

func TestCompileEmptyCollection(t *testing.T) {
	res := compile(t, q.Select("Customer", "c").Where(q.IsEmpty(q.Path("c", "orders"))), nil)
	assert.Equal(t, "SELECT customer_0.id FROM customers customer_0"+
		" WHERE 0 = (SELECT COUNT(*) FROM orders order_1 WHERE order_1.customer_id = customer_0.id)", res.SQL)

	res = compile(t, q.Select("Customer", "c").Where(q.IsNotEmpty(q.Path("c", "orders"))), nil)
	assert.Equal(t, "SELECT customer_0.id FROM customers customer_0"+
		" WHERE 0 < (SELECT COUNT(*) FROM orders order_1 WHERE order_1.customer_id = customer_0.id)", res.SQL)
}

func TestCompileBoundVariable(t *testing.T) {
	query := q.Select("Customer", "c").
		Declare("o", "Order").
		Where(q.And(
			q.BindVariable("o", q.Path("c", "orders")),
			q.GreaterThan(q.Path("o", "total"), q.Lit(100)),
		))

	res := compile(t, query, nil)

	assert.Equal(t, "SELECT DISTINCT customer_0.id FROM customers customer_0"+
		" INNER JOIN orders order_1 ON customer_0.id = order_1.customer_id"+
		" WHERE order_1.total > $1", res.SQL)
	assert.True(t, res.Distinct)
}

func TestCompileContainsMintsAliasPerTest(t *testing.T) {
	query := q.Select("Customer", "c").Where(q.And(
		q.Contains(q.Path("c", "tags"), q.Lit("vip")),
		q.Contains(q.Path("c", "tags"), q.Lit("gold")),
	))

	res := compile(t, query, nil)

	assert.Equal(t, "SELECT DISTINCT customer_0.id FROM customers customer_0"+
		" INNER JOIN customer_tags customer_tag_1 ON customer_0.id = customer_tag_1.customer_id"+
		" INNER JOIN customer_tags customer_tag_2 ON customer_0.id = customer_tag_2.customer_id"+
		" WHERE customer_tag_1.tag = $1 AND customer_tag_2.tag = $2", res.SQL)
	assert.Equal(t, []any{"vip", "gold"}, paramValues(res))
}

func TestCompileOrBranchesUseOuterJoins(t *testing.T) {
	query := q.Select("Customer", "c").Where(q.Or(
		q.Contains(q.Path("c", "tags"), q.Lit("vip")),
		q.Contains(q.Path("c", "tags"), q.Lit("gold")),
	))

	res := compile(t, query, nil)

	assert.Equal(t, "SELECT DISTINCT customer_0.id FROM customers customer_0"+
		" LEFT OUTER JOIN customer_tags customer_tag_1 ON customer_0.id = customer_tag_1.customer_id"+
		" LEFT OUTER JOIN customer_tags customer_tag_2 ON customer_0.id = customer_tag_2.customer_id"+
		" WHERE customer_tag_1.tag = $1 OR customer_tag_2.tag = $2", res.SQL)
}

func TestCompileNotContainsUsesSubselect(t *testing.T) {
	query := q.Select("Customer", "c").Where(q.Not(q.Contains(q.Path("c", "tags"), q.Lit("vip"))))

	res := compile(t, query, nil)

	assert.Equal(t, "SELECT customer_0.id FROM customers customer_0"+
		" WHERE 0 = (SELECT COUNT(*) FROM customers customer_1"+
		" INNER JOIN customer_tags customer_tag_2 ON customer_1.id = customer_tag_2.customer_id"+
		" WHERE customer_tag_2.tag = $1 AND customer_1.id = customer_0.id)", res.SQL)
	assert.False(t, res.Distinct)
}

func TestCompileContainsKey(t *testing.T) {
	query := q.Select("Customer", "c").Where(q.ContainsKey(q.Path("c", "attributes"), q.Lit("color")))

	res := compile(t, query, nil)

	assert.Equal(t, "SELECT DISTINCT customer_0.id FROM customers customer_0"+
		" INNER JOIN customer_attributes customer_attribute_1 ON customer_0.id = customer_attribute_1.customer_id"+
		" WHERE customer_attribute_1.name = $1", res.SQL)
}

func TestCompileInList(t *testing.T) {
	base := "SELECT order_0.id FROM orders order_0 WHERE "

	res := compile(t, q.Select("Order", "o").Where(q.InValues(q.Path("o", "status"), "new", "paid", "sent")),
		nil, InClauseLimit(2))
	assert.Equal(t, base+"(order_0.status IN ($1, $2) OR order_0.status IN ($3))", res.SQL)
	assert.Equal(t, []any{"new", "paid", "sent"}, paramValues(res))

	res = compile(t, q.Select("Order", "o").Where(q.NotIn(q.Path("o", "status"), q.Lit([]any{"new", "paid", "sent"}))),
		nil, InClauseLimit(2))
	assert.Equal(t, base+"(order_0.status NOT IN ($1, $2) AND order_0.status NOT IN ($3))", res.SQL)

	res = compile(t, q.Select("Order", "o").Where(q.InValues(q.Path("o", "status"))), nil)
	assert.Equal(t, base+"1 <> 1", res.SQL)
}

func TestCompileInListParameter(t *testing.T) {
	query := q.Select("Order", "o").Where(q.In(q.Path("o", "status"), q.Param("statuses")))

	res := compile(t, query, Params{"statuses": []string{"new", "paid"}})
	assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE order_0.status IN ($1, $2)", res.SQL)

	args, err := res.Args(Params{"statuses": []string{"sent", "lost"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"sent", "lost"}, args)
}

func TestCompileCompoundKey(t *testing.T) {
	id := types.ObjectID{Class: "Shipment", Values: []any{"EU", 7}}
	base := "SELECT order_0.id FROM orders order_0 WHERE "

	res := compile(t, q.Select("Order", "o").Where(q.Equal(q.Path("o", "shipment"), q.Param("s"))), Params{"s": id})
	assert.Equal(t, base+"(order_0.shipment_region = $1 AND order_0.shipment_number = $2)", res.SQL)
	args, err := res.Args(Params{"s": id})
	require.NoError(t, err)
	assert.Equal(t, []any{"EU", int64(7)}, args)

	res = compile(t, q.Select("Order", "o").Where(q.NotEqual(q.Path("o", "shipment"), q.Param("s"))), Params{"s": id})
	assert.Equal(t, base+"(order_0.shipment_region <> $1 OR order_0.shipment_number <> $2)", res.SQL)

	res = compile(t, q.Select("Order", "o").Where(q.Equal(q.Path("o", "shipment"), q.Param("s"))), Params{"s": nil})
	assert.Equal(t, base+"order_0.shipment_region IS NULL AND order_0.shipment_number IS NULL", res.SQL)
}

func TestCompileCompoundIn(t *testing.T) {
	ids := []types.ObjectID{
		{Class: "Shipment", Values: []any{"EU", 7}},
		{Class: "Shipment", Values: []any{"US", 9}},
	}
	query := q.Select("Order", "o").Where(q.In(q.Path("o", "shipment"), q.Param("ids")))

	res := compile(t, query, Params{"ids": ids})

	assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE"+
		" ((order_0.shipment_region = $1 AND order_0.shipment_number = $2)"+
		" OR (order_0.shipment_region = $3 AND order_0.shipment_number = $4))", res.SQL)
	args, err := res.Args(Params{"ids": ids})
	require.NoError(t, err)
	assert.Equal(t, []any{"EU", int64(7), "US", int64(9)}, args)
}

func TestCompileAggregates(t *testing.T) {
	res := compile(t, q.Select("Order", "o").Project(q.Count(q.Path("o"))), nil)
	assert.Equal(t, "SELECT COUNT(order_0.id) FROM orders order_0", res.SQL)
	assert.Equal(t, []types.Kind{types.KindInt}, res.Kinds)
	assert.False(t, res.Extent)

	row, err := res.Load([]any{nil})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0)}, row)

	res = compile(t, q.Select("Order", "o").Project(q.Sum(q.Path("o", "total"))), nil)
	assert.Equal(t, "SELECT SUM(order_0.total) FROM orders order_0", res.SQL)
	row, err = res.Load([]any{nil})
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, row)

	res = compile(t, q.Select("Order", "o").Project(q.Sum(q.Path("o", "total"))), nil, NullOnEmptyAggregate(false))
	row, err = res.Load([]any{nil})
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(row[0].(decimal.Decimal)))
}

func TestCompileGroupingAndHaving(t *testing.T) {
	query := q.Select("Order", "o").
		Project(q.Path("o", "status"), q.Count(q.Path("o"))).
		GroupBy(q.Path("o", "status")).
		HavingCond(q.GreaterThan(q.Count(q.Path("o")), q.Lit(1)))

	res := compile(t, query, nil)

	assert.Equal(t, "SELECT order_0.status, COUNT(order_0.id) FROM orders order_0"+
		" GROUP BY order_0.status HAVING COUNT(order_0.id) > $1", res.SQL)
	assert.Equal(t, []types.Kind{types.KindString, types.KindInt}, res.Kinds)
}

func TestCompileCountDistinctCompound(t *testing.T) {
	query := q.Select("Order", "o").Project(q.CountDistinct(q.Path("o", "shipment")))

	res := compileIn(t, dialect.Postgres, query, nil)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT DISTINCT shipment_1.region, shipment_1.number FROM orders order_0"+
		" INNER JOIN shipments shipment_1 ON order_0.shipment_region = shipment_1.region"+
		" AND order_0.shipment_number = shipment_1.number) t", res.SQL)

	res = compileIn(t, dialect.MySQL, query, nil)
	assert.Contains(t, res.SQL, "COUNT(DISTINCT shipment_1.region, shipment_1.number)")
}

func TestCompileOrdering(t *testing.T) {
	query := q.Select("Order", "o").OrderBy(q.Desc(q.Path("o", "placed")), q.Asc(q.Path("o", "status")))

	res := compile(t, query, nil)

	assert.Equal(t, "SELECT order_0.id FROM orders order_0 ORDER BY order_0.placed_at DESC, order_0.status ASC", res.SQL)
}

func TestCompileFlatSubclass(t *testing.T) {
	res := compile(t, q.Select("Employee", "e").Where(q.GreaterThan(q.Path("e", "salary"), q.Lit(10))), nil)
	assert.Equal(t, "SELECT person_0.id, person_0.kind FROM people person_0"+
		" WHERE person_0.kind IN ($1) AND person_0.salary > $2", res.SQL)
	assert.Equal(t, "E", res.Params[0].Value)

	res = compile(t, q.Select("Person", "p").Where(q.InstanceOf(q.Path("p"), "Employee")), nil)
	assert.Equal(t, "SELECT person_0.id, person_0.kind FROM people person_0 WHERE person_0.kind IN ($1)", res.SQL)
	assert.Equal(t, []any{"E"}, paramValues(res))

	res = compile(t, q.Select("Person", "p").Where(q.Equal(q.TypeOf(q.Path("p")), q.Type("Employee"))), nil)
	assert.Equal(t, "SELECT person_0.id, person_0.kind FROM people person_0 WHERE person_0.kind = $1", res.SQL)
}

func TestCompileVerticalSubclass(t *testing.T) {
	res := compile(t, q.Select("Vehicle", "v").Where(q.InstanceOf(q.Path("v"), "Car")), nil)
	assert.Equal(t, "SELECT vehicle_0.id FROM vehicles vehicle_0"+
		" LEFT OUTER JOIN cars car_1 ON vehicle_0.id = car_1.id"+
		" WHERE car_1.id IS NOT NULL", res.SQL)

	res = compile(t, q.Select("Vehicle", "v").Where(q.Equal(q.TypeOf(q.Path("v")), q.Type("Car"))), nil)
	assert.Equal(t, "SELECT vehicle_0.id FROM vehicles vehicle_0"+
		" LEFT OUTER JOIN cars car_1 ON vehicle_0.id = car_1.id"+
		" LEFT OUTER JOIN sports_cars sports_car_2 ON car_1.id = sports_car_2.id"+
		" WHERE sports_car_2.id IS NULL AND car_1.id IS NOT NULL", res.SQL)
}

func TestCompileLike(t *testing.T) {
	query := q.Select("Order", "o").Where(q.Like(q.Path("o", "status"), q.Lit("pa%")).IgnoreCase())

	res := compileIn(t, dialect.Postgres, query, nil)
	assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE order_0.status ILIKE $1", res.SQL)

	res = compileIn(t, dialect.SQLite, query, nil)
	assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE LOWER(order_0.status) LIKE LOWER(?)", res.SQL)

	res = compile(t, q.Select("Order", "o").Where(q.NotLike(q.Path("o", "status"), q.Lit("pa!%")).Escape("!")), nil)
	assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE order_0.status NOT LIKE $1 ESCAPE '!'", res.SQL)

	_, err := newTestCompiler().Compile(
		q.Select("Order", "o").Where(q.Like(q.Path("o", "status"), q.Lit("x")).Escape("!!")), nil)
	assert.True(t, q.IsUserError(err))
}

func TestCompileSubqueries(t *testing.T) {
	exists := q.Select("Customer", "c").Where(q.Exists(
		q.Select("Order", "o").Where(q.Equal(q.Path("o", "customer"), q.Path("c")))))
	res := compile(t, exists, nil)
	assert.Equal(t, "SELECT customer_0.id FROM customers customer_0"+
		" WHERE 0 < (SELECT COUNT(*) FROM orders order_1 WHERE order_1.customer_id = customer_0.id)", res.SQL)

	in := q.Select("Order", "o").Where(q.InSubQuery(q.Path("o", "status"),
		q.Select("Order", "p").Project(q.Path("p", "status")).Where(q.GreaterThan(q.Path("p", "total"), q.Lit(10)))))
	res = compile(t, in, nil)
	assert.Equal(t, "SELECT order_0.id FROM orders order_0"+
		" WHERE order_0.status IN (SELECT order_1.status FROM orders order_1 WHERE order_1.total > $1)", res.SQL)

	scalar := q.Select("Order", "o").Where(q.GreaterThan(q.Path("o", "total"),
		q.SubQuery(q.Select("Order", "p").Project(q.Avg(q.Path("p", "total"))))))
	res = compile(t, scalar, nil)
	assert.Equal(t, "SELECT order_0.id FROM orders order_0"+
		" WHERE order_0.total > (SELECT AVG(order_1.total) FROM orders order_1)", res.SQL)
}

func TestCompileSubqueryOverCollection(t *testing.T) {
	sub := q.Query{Alias: "x"}.Over(q.Path("c", "orders")).Where(q.GreaterThan(q.Path("x", "total"), q.Lit(5)))

	res := compile(t, q.Select("Customer", "c").Where(q.Exists(sub)), nil)

	assert.Equal(t, "SELECT customer_0.id FROM customers customer_0"+
		" WHERE 0 < (SELECT COUNT(*) FROM orders order_1"+
		" WHERE customer_0.id = order_1.customer_id AND order_1.total > $1)", res.SQL)
}

func TestCompileXPath(t *testing.T) {
	query := q.Select("Person", "p").Where(q.Equal(q.Path("p", "profile").XPath("nickname"), q.Lit("Bo")))

	res := compile(t, query, nil)
	assert.Equal(t, "SELECT person_0.id, person_0.kind FROM people person_0"+
		" WHERE (xpath('/*/nickname/text()', person_0.profile))[1]::text = $1", res.SQL)

	_, err := newTestCompiler(WithDialect(dialect.SQLite)).Compile(query, nil)
	assert.True(t, q.IsUnsupported(err))
}

func TestCompileInlineLiterals(t *testing.T) {
	query := q.Select("Order", "o").Where(q.Equal(q.Path("o", "status"), q.Lit("paid")))

	res := compile(t, query, nil, InlineLiterals(true))
	assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE order_0.status = 'paid'", res.SQL)
	assert.Empty(t, res.Params)

	res = compile(t, q.Select("Order", "o").Where(q.Equal(q.Path("o", "status"), q.Lit("why?"))), nil, InlineLiterals(true))
	assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE order_0.status = $1", res.SQL)
}

func TestCompileFoldsConstants(t *testing.T) {
	res := compile(t, q.Select("Order", "o").Where(q.Equal(q.Add(q.Lit(1), q.Lit(2)), q.Lit(3))), nil)

	assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE 1 = 1", res.SQL)
	assert.True(t, res.Extent)
}

func TestCompilePlaceholderOffset(t *testing.T) {
	res := compile(t, q.Select("Order", "o").Where(q.Equal(q.Path("o", "status"), q.Lit("paid"))), nil, PlaceholderOffset(2))

	assert.Equal(t, "SELECT order_0.id FROM orders order_0 WHERE order_0.status = $3", res.SQL)
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name   string
		query  q.Query
		params Params
		target error
	}{
		{"unknown alias", q.Select("Order", "o").Where(q.IsNull(q.Path("x", "total"))), nil, q.ErrUnknownAlias},
		{"unknown field", q.Select("Order", "o").Where(q.IsNull(q.Path("o", "nope"))), nil, mapping.ErrUnknownField},
		{"unknown class", q.Select("Nope", "n"), nil, mapping.ErrUnknownClass},
		{"missing parameter", q.Select("Order", "o").Where(q.Equal(q.Path("o", "status"), q.Param("s"))), nil, q.ErrMissingParam},
		{
			"collection parameter as scalar",
			q.Select("Order", "o").Where(q.Equal(q.Path("o", "status"), q.Param("s"))),
			Params{"s": []string{"a"}},
			q.ErrCollectionUsed,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := newTestCompiler().Compile(c.query, c.params)
			require.Error(t, err)
			assert.True(t, q.IsUserError(err), "%v", err)
			assert.True(t, errors.Is(err, c.target), "%v", err)
		})
	}

	_, err := newTestCompiler().Compile(q.Select("Customer", "c").Where(q.IsNull(q.Path("c", "cart"))), nil)
	assert.True(t, q.IsUserError(err))

	_, err = newTestCompiler().Compile(q.Select("Order", "o").Where(q.IsNull(q.Path("o", "status", "length"))), nil)
	assert.True(t, q.IsUserError(err))
}

func TestCompileUnsupportedFunction(t *testing.T) {
	_, err := newTestCompiler(WithDialect(dialect.Oracle)).Compile(
		q.Select("Order", "o").Project(q.Now(q.CurrentTime)), nil)

	require.Error(t, err)
	assert.True(t, q.IsUnsupported(err))
}

func TestStateUsedInAnotherPass(t *testing.T) {
	c := newTestCompiler()
	ctx := newExpContext(c, nil)
	sel := sql.NewStatement().NewSelect(sql.NoSelect)
	lit := newLiteral(1)

	var st *expState
	require.NoError(t, ctx.inPass("where", func() (err error) {
		st, err = lit.initialize(sel, ctx, 0)
		return err
	}))
	err := ctx.inPass("select", func() error {
		return lit.appendTo(sel, ctx, st, sql.NewBuffer(), 0)
	})

	require.Error(t, err)
	assert.True(t, q.IsInvariant(err))
	assert.True(t, errors.Is(err, q.ErrStateMismatch))

	other := newLiteral(2)
	err = ctx.inPass("where", func() error {
		return other.appendTo(sel, ctx, st, sql.NewBuffer(), 0)
	})
	assert.True(t, q.IsInvariant(err))
}

func TestCompileNestedDisjunctionIsParenthesized(t *testing.T) {
	query := q.Select("Customer", "c").
		Declare("o", "Order").
		Where(q.And(
			q.BindVariable("o", q.Path("c", "orders")),
			q.Or(
				q.GreaterThan(q.Path("o", "total"), q.Lit(1)),
				q.Equal(q.Path("o", "status"), q.Lit("x")),
			),
			q.Equal(q.Path("c", "rating"), q.Lit(3)),
		))

	res := compile(t, query, nil)

	assert.True(t, strings.HasSuffix(res.SQL,
		" WHERE (order_1.total > $1 OR order_1.status = $2) AND customer_0.rating = $3"), res.SQL)

	res = compile(t, q.Select("Customer", "c").
		Declare("o", "Order").
		Where(q.And(
			q.BindVariable("o", q.Path("c", "orders")),
			q.Or(
				q.GreaterThan(q.Path("o", "total"), q.Lit(1)),
				q.Equal(q.Path("o", "status"), q.Lit("x")),
			),
		)), nil)

	assert.True(t, strings.HasSuffix(res.SQL, " WHERE order_1.total > $1 OR order_1.status = $2"), res.SQL)
}

func TestCompileDisjunctionAfterSubclassRestriction(t *testing.T) {
	res := compile(t, q.Select("Employee", "e").Where(q.Or(
		q.GreaterThan(q.Path("e", "salary"), q.Lit(10)),
		q.Equal(q.Path("e", "name"), q.Lit("a OR b")),
	)), nil)

	assert.Equal(t, "SELECT person_0.id, person_0.kind FROM people person_0"+
		" WHERE person_0.kind IN ($1) AND (person_0.salary > $2 OR person_0.name = $3)", res.SQL)
}

func TestCompileCountDistinctCompoundGrouped(t *testing.T) {
	query := q.Select("Order", "o").
		Project(q.CountDistinct(q.Path("o", "shipment"))).
		GroupBy(q.Path("o", "status")).
		HavingCond(q.GreaterThan(q.Count(q.Path("o")), q.Lit(1)))

	res := compileIn(t, dialect.Postgres, query, nil)

	assert.NotContains(t, res.SQL, "FROM (SELECT DISTINCT")
	assert.True(t, strings.HasPrefix(res.SQL, "SELECT COUNT(DISTINCT "), res.SQL)
	assert.True(t, strings.HasSuffix(res.SQL, " GROUP BY order_0.status HAVING COUNT(order_0.id) > $1"), res.SQL)
	assert.Equal(t, 1, res.Columns)

	res = compileIn(t, dialect.Postgres, q.Select("Order", "o").
		Project(q.CountDistinct(q.Path("o", "shipment"))).
		OrderBy(q.Asc(q.Count(q.Path("o")))), nil)
	assert.NotContains(t, res.SQL, "FROM (SELECT DISTINCT")
	assert.Contains(t, res.SQL, " ORDER BY ")
}

func TestCompileWiderNumbersAgainstNarrowColumn(t *testing.T) {
	cases := []struct {
		name    string
		d       dialect.Dialect
		right   q.Value
		params  Params
		where   string
		binding any
	}{
		{
			name:    "float literal",
			d:       dialect.Postgres,
			right:   q.Lit(2.5),
			where:   "line_item_0.quantity > CAST($1 AS DOUBLE PRECISION)",
			binding: 2.5,
		},
		{
			name:    "decimal literal",
			d:       dialect.Postgres,
			right:   q.Lit(decimal.RequireFromString("2.5")),
			where:   "line_item_0.quantity > CAST($1 AS NUMERIC)",
			binding: decimal.RequireFromString("2.5"),
		},
		{
			name:    "float parameter",
			d:       dialect.Postgres,
			right:   q.Param("p"),
			params:  Params{"p": 2.5},
			where:   "line_item_0.quantity > CAST($1 AS DOUBLE PRECISION)",
			binding: 2.5,
		},
		{
			name:    "int literal",
			d:       dialect.Postgres,
			right:   q.Lit(2),
			where:   "line_item_0.quantity > $1",
			binding: int64(2),
		},
		{
			name:    "float literal on sqlite",
			d:       dialect.SQLite,
			right:   q.Lit(2.5),
			where:   "line_item_0.quantity > ?",
			binding: 2.5,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			query := q.Select("LineItem", "l").Where(q.GreaterThan(q.Path("l", "quantity"), c.right))

			res := compileIn(t, c.d, query, c.params)

			assert.Equal(t, "SELECT line_item_0.id FROM line_items line_item_0 WHERE "+c.where, res.SQL)
			args, err := res.Args(c.params)
			require.NoError(t, err)
			assert.Equal(t, []any{c.binding}, args)
		})
	}

	res := compile(t, q.Select("LineItem", "l").Where(q.In(q.Path("l", "quantity"), q.Param("qs"))),
		Params{"qs": []any{1, 2.5}})
	assert.Equal(t, "SELECT line_item_0.id FROM line_items line_item_0"+
		" WHERE line_item_0.quantity IN ($1, CAST($2 AS DOUBLE PRECISION))", res.SQL)
	args, err := res.Args(Params{"qs": []any{1, 2.5}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), 2.5}, args)
}

func TestCompileExistsIgnoresSubqueryOrdering(t *testing.T) {
	sub := q.Select("Order", "x").
		Where(q.Equal(q.Path("x", "customer"), q.Path("c"))).
		OrderBy(q.Asc(q.Path("x", "total")))

	res := compile(t, q.Select("Customer", "c").Where(q.Exists(sub)), nil)

	assert.Equal(t, "SELECT customer_0.id FROM customers customer_0"+
		" WHERE 0 < (SELECT COUNT(*) FROM orders order_1 WHERE order_1.customer_id = customer_0.id)", res.SQL)
}

func TestCompileContainsAliasesAcrossOrAndSibling(t *testing.T) {
	tags := q.Path("c", "tags")
	query := q.Select("Customer", "c").Where(q.And(
		q.Or(q.Contains(tags, q.Lit("x")), q.Contains(tags, q.Lit("y"))),
		q.Contains(tags, q.Lit("z")),
	))

	res := compile(t, query, nil)

	assert.Equal(t, 3, strings.Count(res.SQL, "JOIN customer_tags "), res.SQL)
	for _, alias := range []string{"customer_tag_1", "customer_tag_2", "customer_tag_3"} {
		assert.Contains(t, res.SQL, "customer_tags "+alias+" ON")
	}
	assert.True(t, strings.HasSuffix(res.SQL,
		" WHERE (customer_tag_1.tag = $1 OR customer_tag_2.tag = $2) AND customer_tag_3.tag = $3"), res.SQL)
}

func TestCompileSamePathInWhereAndOrderBy(t *testing.T) {
	carrier := q.Path("o", "shipment", "carrier")
	query := q.Select("Order", "o").
		Where(q.Equal(carrier, q.Lit("dhl"))).
		OrderBy(q.Asc(carrier))

	res := compile(t, query, nil)

	assert.Equal(t, "SELECT order_0.id FROM orders order_0"+
		" INNER JOIN shipments shipment_1 ON order_0.shipment_region = shipment_1.region"+
		" AND order_0.shipment_number = shipment_1.number"+
		" WHERE shipment_1.carrier = $1 ORDER BY shipment_1.carrier ASC", res.SQL)
}

func TestCompileComplementaryComparisons(t *testing.T) {
	pairs := []struct {
		name       string
		build, neg func(l, r q.Value) q.CompareNode
		op, negOp  string
	}{
		{"equality", q.Equal, q.NotEqual, "=", "<>"},
		{"less than", q.LessThan, q.GreaterThanEqual, "<", ">="},
		{"greater than", q.GreaterThan, q.LessThanEqual, ">", "<="},
	}
	base := "SELECT order_0.id FROM orders order_0 WHERE "
	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			l, r := q.Path("o", "status"), q.Param("s")
			params := Params{"s": "paid"}

			res := compile(t, q.Select("Order", "o").Where(p.build(l, r)), params)
			assert.Equal(t, base+"order_0.status "+p.op+" $1", res.SQL)

			res = compile(t, q.Select("Order", "o").Where(p.neg(l, r)), params)
			assert.Equal(t, base+"order_0.status "+p.negOp+" $1", res.SQL)
		})
	}
}

func TestCompileNegatedCompoundKey(t *testing.T) {
	id := types.ObjectID{Class: "Shipment", Values: []any{"EU", 7}}
	other := types.ObjectID{Class: "Shipment", Values: []any{"US", 9}}
	base := "SELECT order_0.id FROM orders order_0 WHERE "

	res := compile(t, q.Select("Order", "o").Where(q.NotIn(q.Path("o", "shipment"), q.Param("ids"))),
		Params{"ids": []types.ObjectID{id, other}})
	assert.Equal(t, base+"NOT ((order_0.shipment_region = $1 AND order_0.shipment_number = $2)"+
		" OR (order_0.shipment_region = $3 AND order_0.shipment_number = $4))", res.SQL)

	res = compile(t, q.Select("Order", "o").Where(q.Not(q.Equal(q.Path("o", "shipment"), q.Param("s")))),
		Params{"s": id})
	assert.Equal(t, base+"NOT ((order_0.shipment_region = $1 AND order_0.shipment_number = $2))", res.SQL)
}
