package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_String(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{150000, "1500.00"},
		{150050, "1500.50"},
		{-1999, "-19.99"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.in.String())
	}
}

func TestParse(t *testing.T) {
	a, err := Parse("1500.5")
	require.NoError(t, err)
	assert.Equal(t, Amount(150050), a)

	a, err = Parse("12")
	require.NoError(t, err)
	assert.Equal(t, Amount(1200), a)

	_, err = Parse("1.005")
	assert.Error(t, err)

	_, err = Parse("abc")
	assert.Error(t, err)
}

func TestAmount_DivRound(t *testing.T) {
	// 1000.00 / 30 = 33.333.. -> 33.33
	assert.Equal(t, Amount(3333), Amount(100000).DivRound(30))
	// 0.05 / 2 = 0.025 -> 0.03
	assert.Equal(t, Amount(3), Amount(5).DivRound(2))
	assert.Equal(t, Amount(0), Amount(100).DivRound(0))
}

func TestAmount_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Net Amount `json:"net"`
	}{Net: 123456})
	require.NoError(t, err)
	assert.JSONEq(t, `{"net":"1234.56"}`, string(b))

	var got struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"10.10","b":20.5}`), &got))
	assert.Equal(t, Amount(1010), got.A)
	assert.Equal(t, Amount(2050), got.B)
}

func TestSum(t *testing.T) {
	assert.Equal(t, Amount(60), Sum(10, 20, 30))
	assert.Equal(t, Zero, Sum())
}
