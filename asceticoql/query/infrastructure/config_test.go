package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`
dialect: mysql
inline_literals: true
null_on_empty_aggregate: false
in_clause_limit: 2
`))
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Dialect)
	require.NotNil(t, cfg.NullOnEmptyAggregate)
	assert.False(t, *cfg.NullOnEmptyAggregate)

	opts, err := cfg.Options()
	require.NoError(t, err)
	c := newTestCompiler(opts...)
	assert.Equal(t, "mysql", c.Dialect().Name())

	res, err := c.Compile(q.Select("Order", "o").Where(q.InValues(q.Path("o", "status"), "a", "b", "c")), nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT order_0.id FROM orders order_0"+
		" WHERE (order_0.status IN ('a', 'b') OR order_0.status IN ('c'))", res.SQL)
}

func TestLoadConfigEmpty(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestLoadConfigRejects(t *testing.T) {
	_, err := LoadConfig(strings.NewReader("dialekt: mysql\n"))
	assert.Error(t, err)

	_, err = Config{Dialect: "db2"}.Options()
	assert.Error(t, err)

	_, err = Config{InClauseLimit: -1}.Options()
	assert.Error(t, err)
}
