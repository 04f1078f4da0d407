package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse("eur/usd")
	require.NoError(t, err)
	assert.Equal(t, "EUR", p.Base)
	assert.Equal(t, "USD", p.Quote)
	assert.Equal(t, "EUR/USD", p.Slash())
	assert.Equal(t, "EURUSD", p.Compact())

	for _, bad := range []string{"", "EURUSD", "EUR/", "/USD", "EUR/USD/JPY"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestSourceFormats(t *testing.T) {
	p, err := Parse("EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, "EURUSD=X", p.Yahoo())
	assert.Equal(t, "EURUSDT", p.Binance())

	p, err = Parse("gbp/jpy")
	require.NoError(t, err)
	assert.Equal(t, "GBPJPY=X", p.Yahoo())
	assert.Equal(t, "GBPJPY", p.Binance())
}
