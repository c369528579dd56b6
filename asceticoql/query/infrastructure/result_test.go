package query

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

func TestResultLoadsDiscriminatedCandidate(t *testing.T) {
	res := compile(t, q.Select("Person", "p"), nil)

	row, err := res.Load([]any{int64(4), []byte("E")})
	require.NoError(t, err)
	assert.Equal(t, types.ObjectID{Class: "Employee", Values: []any{int64(4)}}, row[0])

	row, err = res.Load([]any{nil, nil})
	require.NoError(t, err)
	assert.Nil(t, row[0])

	_, err = res.Load([]any{})
	assert.True(t, q.IsInvariant(err))
}

func TestResultArgs(t *testing.T) {
	query := q.Select("Order", "o").Where(q.And(
		q.Equal(q.Path("o", "status"), q.Param("status")),
		q.GreaterThan(q.Path("o", "total"), q.Lit(5)),
	))
	res := compile(t, query, Params{"status": "new"})

	args, err := res.Args(Params{"status": "paid"})
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, "paid", args[0])

	_, err = res.Args(Params{})
	assert.True(t, errors.Is(err, q.ErrMissingParam))
}

func TestResultArgsChecksShape(t *testing.T) {
	query := q.Select("Order", "o").Where(q.In(q.Path("o", "status"), q.Param("statuses")))
	res := compile(t, query, Params{"statuses": []string{"a", "b"}})

	_, err := res.Args(Params{"statuses": []string{"a"}})
	assert.True(t, q.IsUserError(err))

	_, err = res.Args(Params{"statuses": "a"})
	assert.True(t, q.IsUserError(err))
}
