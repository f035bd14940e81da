package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString(" 120.50 ")
	require.NoError(t, err)
	assert.True(t, MustMoney("120.5").Equal(m))

	_, err = NewMoneyFromString("")
	assert.Error(t, err)

	_, err = NewMoneyFromString("12,5")
	assert.Error(t, err)
}

func TestMinAndSum(t *testing.T) {
	assert.True(t, MustMoney("20").Equal(MinMoney(MustMoney("20"), MustMoney("50"))))
	assert.True(t, MustMoney("20").Equal(MinMoney(MustMoney("50"), MustMoney("20"))))
	assert.True(t, MustMoney("150.25").Equal(SumMoney(MustMoney("100"), MustMoney("50.25"))))
	assert.True(t, SumMoney().IsZero())
}

func TestHasMoneyScale(t *testing.T) {
	assert.True(t, HasMoneyScale(MustMoney("10.25")))
	assert.True(t, HasMoneyScale(MustMoney("10")))
	assert.False(t, HasMoneyScale(MustMoney("10.255")))
}

func TestInMoneyRange(t *testing.T) {
	assert.True(t, InMoneyRange(MustMoney("999999999999.99")))
	assert.True(t, InMoneyRange(MustMoney("-999999999999.99")))
	assert.False(t, InMoneyRange(MustMoney("1000000000000")))
	assert.False(t, InMoneyRange(MustMoney("999999999999.995")))
}
