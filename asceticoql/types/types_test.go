package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		value any
		kind  Kind
	}{
		{nil, KindNull},
		{true, KindBool},
		{uint8(3), KindUint},
		{int32(3), KindInt},
		{2.5, KindFloat},
		{decimal.NewFromInt(4), KindDecimal},
		{"x", KindString},
		{ulid.Make(), KindString},
		{time.Now(), KindTime},
		{[]byte("x"), KindBytes},
		{uuid.New(), KindUUID},
		{ObjectID{Class: "Customer"}, KindObject},
		{[]int{1, 2}, KindCollection},
		{map[string]any{}, KindMap},
		{struct{}{}, KindUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, KindOf(c.value), "%#v", c.value)
	}
}

func TestPromote(t *testing.T) {
	cases := []struct {
		a, b   Kind
		result Kind
		ok     bool
	}{
		{KindInt, KindInt, KindInt, true},
		{KindUint, KindInt, KindInt, true},
		{KindInt, KindFloat, KindFloat, true},
		{KindFloat, KindDecimal, KindDecimal, true},
		{KindNull, KindString, KindString, true},
		{KindString, KindUUID, KindUUID, true},
		{KindTime, KindString, KindTime, true},
		{KindString, KindInt, KindUnknown, false},
		{KindBool, KindInt, KindUnknown, false},
	}
	for _, c := range cases {
		result, ok := Promote(c.a, c.b)
		assert.Equal(t, c.ok, ok, "%s/%s", c.a, c.b)
		assert.Equal(t, c.result, result, "%s/%s", c.a, c.b)
	}
}

func TestConvertNumeric(t *testing.T) {
	v, err := Convert(int8(5), KindInt)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = Convert(3, KindFloat)
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)

	v, err = Convert("1.25", KindDecimal)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.25").Equal(v.(decimal.Decimal)))

	v, err = Convert(2.0, KindInt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = Convert(2.5, KindInt)
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, KindFloat, convErr.From)

	_, err = Convert(-1, KindUint)
	assert.Error(t, err)
}

func TestCoerceKeepsWiderNumbers(t *testing.T) {
	assert.True(t, Narrows(KindFloat, KindInt))
	assert.True(t, Narrows(KindDecimal, KindFloat))
	assert.False(t, Narrows(KindInt, KindFloat))
	assert.False(t, Narrows(KindString, KindInt))

	v, err := Coerce(2.5, KindInt)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	d := decimal.RequireFromString("2.5")
	v, err = Coerce(d, KindInt)
	require.NoError(t, err)
	assert.Equal(t, d, v)

	v, err = Coerce(int32(4), KindDecimal)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(v.(decimal.Decimal)))

	v, err = Coerce(int8(7), KindInt)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestConvertStringLike(t *testing.T) {
	id := uuid.New()
	v, err := Convert(id.String(), KindUUID)
	require.NoError(t, err)
	assert.Equal(t, id, v)

	v, err = Convert(id, KindString)
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)

	v, err = Convert("2024-03-01", KindTime)
	require.NoError(t, err)
	assert.Equal(t, 2024, v.(time.Time).Year())

	v, err = Convert(nil, KindInt)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestElements(t *testing.T) {
	elems, ok := Elements([]string{"a", "b"})
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, elems)

	_, ok = Elements("a")
	assert.False(t, ok)
}

func TestZero(t *testing.T) {
	assert.Equal(t, int64(0), Zero(KindInt))
	assert.Equal(t, "", Zero(KindString))
	assert.Nil(t, Zero(KindTime))
}

func TestObjectIDString(t *testing.T) {
	assert.Equal(t, "Shipment(EU, 7)", ObjectID{Class: "Shipment", Values: []any{"EU", 7}}.String())
}
