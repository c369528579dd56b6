package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlsession "github.com/krew-solutions/ascetic-oql/asceticoql/session/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileCommand(t *testing.T) {
	out, err := execute(t, "compile",
		"--mapping", "testdata/shop.yaml",
		"--query", "testdata/orders_by_status.yaml",
		"--params", "testdata/params.yaml")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "SELECT order_0.id FROM orders order_0 WHERE order_0.status IN ($1, $2) AND "))
	assert.True(t, strings.HasSuffix(lines[0], " ORDER BY order_0.total ASC"))
	assert.Equal(t, "  1: paid", lines[1])
	assert.Equal(t, "  2: new", lines[2])
	assert.Equal(t, "  3: 1", lines[3])
}

func TestCompileCommandJSON(t *testing.T) {
	out, err := execute(t, "compile", "--json",
		"--mapping", "testdata/shop.yaml",
		"--config", "testdata/mysql.yaml",
		"--query", "testdata/orders_by_status.yaml",
		"--params", "testdata/params.yaml")
	require.NoError(t, err)

	var got compiled
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got.SQL, "(order_0.status IN (?) OR order_0.status IN (?))")
	assert.Equal(t, []string{"object"}, got.Kinds)
	assert.Len(t, got.Args, 3)
}

func TestCompileCommandDialectFlagWins(t *testing.T) {
	out, err := execute(t, "compile", "--dialect", "sqlite",
		"--mapping", "testdata/shop.yaml",
		"--config", "testdata/mysql.yaml",
		"--query", "testdata/totals.yaml")

	require.NoError(t, err)
	assert.Contains(t, out, "SELECT customer_1.name, SUM(order_0.total) FROM orders order_0")
}

func TestCompileCommandErrors(t *testing.T) {
	_, err := execute(t, "compile", "--mapping", "testdata/shop.yaml", "--query", "testdata/missing.yaml")
	assert.Error(t, err)

	_, err = execute(t, "compile", "--mapping", "testdata/shop.yaml", "--query", "testdata/orders_by_status.yaml")
	assert.ErrorContains(t, err, "missing parameter")

	_, err = execute(t, "compile", "--query", "testdata/totals.yaml")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "shop.db")
	db, err := sqlsession.Open("sqlite", dsn)
	require.NoError(t, err)
	s := sqlsession.NewSession(context.Background(), db)
	for _, stmt := range []string{
		"CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER, status TEXT, total NUMERIC)",
		"INSERT INTO customers (id, name) VALUES (1, 'Ann'), (2, 'Bob')",
		"INSERT INTO orders (id, customer_id, status, total) VALUES (10, 1, 'paid', 120), (11, 1, 'new', 30), (12, 2, 'paid', 80)",
	} {
		_, err := s.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	out, err := execute(t, "run", "--dialect", "sqlite", "--dsn", dsn,
		"--mapping", "testdata/shop.yaml",
		"--query", "testdata/orders_by_status.yaml",
		"--params", "testdata/params.yaml")

	require.NoError(t, err)
	assert.Equal(t, "Order(11)\nOrder(10)\n", out)

	out, err = execute(t, "run", "--dialect", "sqlite", "--dsn", dsn,
		"--mapping", "testdata/shop.yaml",
		"--query", "testdata/totals.yaml")

	require.NoError(t, err)
	assert.Equal(t, "Ann\t150\nBob\t80\n", out)
}

func TestDecodeParams(t *testing.T) {
	params, err := decodeParams(strings.NewReader(`
ids: [{class: Shipment, id: [EU, 7]}]
one: {class: Order, id: 3}
name: Ann
`))
	require.NoError(t, err)
	assert.Equal(t, []any{types.ObjectID{Class: "Shipment", Values: []any{"EU", 7}}}, params["ids"])
	assert.Equal(t, types.ObjectID{Class: "Order", Values: []any{3}}, params["one"])
	assert.Equal(t, "Ann", params["name"])

	_, err = decodeParams(strings.NewReader("bad: {class: Order}\n"))
	assert.Error(t, err)
}
