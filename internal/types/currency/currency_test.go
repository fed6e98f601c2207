package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTip(t *testing.T) {
	fee, net := SplitTip(100)
	assert.Equal(t, 25, fee)
	assert.Equal(t, 75, net)

	fee, net = SplitTip(10)
	assert.Equal(t, 2, fee)
	assert.Equal(t, 8, net)

	// fee rounds down, recipient keeps the remainder
	fee, net = SplitTip(7)
	assert.Equal(t, 1, fee)
	assert.Equal(t, 6, net)

	fee, net = SplitTip(1)
	assert.Equal(t, 0, fee)
	assert.Equal(t, 1, net)
}

func TestSplitTipConserves(t *testing.T) {
	for amount := 1; amount <= 500; amount++ {
		fee, net := SplitTip(amount)
		assert.Equal(t, amount, fee+net, "amount %d", amount)
		assert.GreaterOrEqual(t, net, 0)
		assert.GreaterOrEqual(t, fee, 0)
	}
}
