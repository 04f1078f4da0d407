package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	assert.Equal(t, "1.09350", Price(1.0935))
	assert.Equal(t, "0.00000", Price(math.NaN()))
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "1000.00", Amount(1000))
	assert.Equal(t, "1020.57", Amount(1020.565))
}

func TestSignedAmount(t *testing.T) {
	assert.Equal(t, "+12.50", SignedAmount(12.5))
	assert.Equal(t, "-3.20", SignedAmount(-3.2))
	assert.Equal(t, "+0.00", SignedAmount(0))
}

func TestSignedPercent(t *testing.T) {
	assert.Equal(t, "+2.06", SignedPercent(2.06)[:5])
	assert.Equal(t, "-1.50%", SignedPercent(-1.5))
}

func TestUnits(t *testing.T) {
	assert.Equal(t, "40", Units(40.0))
	assert.Equal(t, "45.7874", Units(45.78739))
}
