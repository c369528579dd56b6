package pgx

import (
	"context"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	query "github.com/krew-solutions/ascetic-oql/asceticoql/query/infrastructure"
	"github.com/krew-solutions/ascetic-oql/asceticoql/query/runner"
	"github.com/krew-solutions/ascetic-oql/asceticoql/session"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

func TestUnwrapValues(t *testing.T) {
	var num, plain any
	num = pgtype.Numeric{Int: big.NewInt(12050), Exp: -2, Valid: true}
	plain = int64(7)
	var typed int64

	require.NoError(t, unwrapValues([]any{&num, &plain, &typed}))

	s, ok := num.(string)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("120.5").Equal(decimal.RequireFromString(s)))
	assert.Equal(t, int64(7), plain)
}

func newShopRepository() *mapping.Repository {
	repo := mapping.NewRepository()

	customers := mapping.NewTable("pg_customers")
	customers.AddColumn("id", types.KindInt)
	customers.WithPrimaryKey("id")
	customer := repo.Register(mapping.NewClassMapping("Customer", customers))
	customer.AddBasic("name", "name", types.KindString)

	orders := mapping.NewTable("pg_orders")
	orders.AddColumn("id", types.KindInt)
	orders.WithPrimaryKey("id")
	order := repo.Register(mapping.NewClassMapping("Order", orders))
	order.AddRelation("customer", customer, "customer_id")
	order.AddBasic("total", "total", types.KindDecimal)
	customer.AddInverseCollection("orders", order, "customer")
	return repo
}

// TestRunOnPostgres needs a database configured through DB_HOST and the
// related variables.
func TestRunOnPostgres(t *testing.T) {
	if !session.IsConfigured() {
		t.Skip("DB_HOST is not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, session.ConnConfigFromEnv())
	require.NoError(t, err)
	defer pool.Close()

	compiler := query.NewCompiler(newShopRepository(), query.WithDialect(dialect.Postgres))
	r := runner.New(compiler)
	rollback := assert.AnError

	err = pool.Session(ctx, func(s session.Session) error {
		return s.Atomic(func(s session.Session) error {
			db := s.(session.DbSession)
			for _, stmt := range []string{
				"CREATE TEMP TABLE pg_customers (id BIGINT PRIMARY KEY, name TEXT) ON COMMIT DROP",
				"CREATE TEMP TABLE pg_orders (id BIGINT PRIMARY KEY, customer_id BIGINT, total NUMERIC) ON COMMIT DROP",
				"INSERT INTO pg_customers VALUES (1, 'Ann'), (2, 'Bob')",
				"INSERT INTO pg_orders VALUES (10, 1, 120.50), (11, 1, 30), (12, 2, 80)",
			} {
				if _, err := db.Connection().Exec(stmt); err != nil {
					return err
				}
			}

			oq := q.Select("Order", "o").
				Project(q.Path("o", "customer", "name"), q.Sum(q.Path("o", "total"))).
				GroupBy(q.Path("o", "customer", "name")).
				OrderBy(q.Asc(q.Path("o", "customer", "name")))
			rows, err := r.Run(db, oq, nil)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "Ann", rows[0][0])
			assert.True(t, decimal.RequireFromString("150.5").Equal(rows[0][1].(decimal.Decimal)))

			oq = q.Select("Customer", "c").
				Where(q.Exists(q.Select("Order", "x").
					Where(q.And(
						q.Equal(q.Path("x", "customer"), q.Path("c")),
						q.GreaterThan(q.Path("x", "total"), q.Param("min")),
					))))
			rows, err = r.Run(db, oq, query.Params{"min": 100})
			require.NoError(t, err)
			assert.Equal(t, [][]any{{types.ObjectID{Class: "Customer", Values: []any{int64(1)}}}}, rows)

			return rollback
		})
	})
	assert.ErrorIs(t, err, rollback)
}
