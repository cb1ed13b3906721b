package money_test

import (
	"testing"

	"github.com/estateops/agentledger/internal/utils/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected int64
	}{
		{name: "whole amount", input: "150", expected: 15000},
		{name: "two decimal places", input: "50.01", expected: 5001},
		{name: "rounds half up", input: "10.005", expected: 1001},
		{name: "rounds down below half", input: "10.004", expected: 1000},
		{name: "negative amount", input: "-20.50", expected: -2050},
		{name: "zero", input: "0", expected: 0},
		{name: "float artifact", input: "99.99999999999999", expected: 10000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tc.input)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, money.ToMinorUnits(d))
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.Equal(t, "150.00", money.FromMinorUnits(15000).StringFixed(2))
	assert.Equal(t, "0.01", money.FromMinorUnits(1).StringFixed(2))
	assert.Equal(t, "-20.50", money.FromMinorUnits(-2050).StringFixed(2))
	assert.Equal(t, "0.00", money.FromMinorUnits(0).StringFixed(2))
}

func TestRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 5001, 15000, -999999} {
		assert.Equal(t, v, money.ToMinorUnits(money.FromMinorUnits(v)))
	}
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, money.WithinTolerance(10000, 10000))
	assert.True(t, money.WithinTolerance(10000, 10001))
	assert.True(t, money.WithinTolerance(10001, 10000))
	assert.False(t, money.WithinTolerance(10000, 10002))
	assert.False(t, money.WithinTolerance(10002, 10000))
}
