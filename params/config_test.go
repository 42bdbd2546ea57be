package params

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/daidex/pkg/app/widget"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "1000000000000000", cfg.Book.MinVolumeEth.String())
	assert.Equal(t, 2, cfg.Book.MaxTransactionOrders)
	assert.Equal(t, 0.005, cfg.Widget.FeePercentage)
	assert.Equal(t, DefaultDAI, cfg.Chain.DAI)
	assert.Equal(t, "http", cfg.Feed.Mode)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("FEED_MODE=ws\nMAX_TRANSACTION_ORDERS=3\n"), 0o644))

	// env beats .env
	t.Setenv("MAX_TRANSACTION_ORDERS", "4")
	t.Setenv("MIN_VOLUME_ETH_WEI", "5000")
	t.Setenv("FEE_PERCENTAGE", "0.01")
	t.Setenv("GAS_PRICE_FAST", "40")
	t.Setenv("FEED_POLL_MS", "250")
	t.Setenv("DEXDEX_ADDRESS", "0x0000000000000000000000000000000000000042")
	t.Setenv("CORS_ORIGINS", "http://a, http://b,")
	t.Setenv("CHAIN_ID", "not-a-number")

	cfg := LoadFromEnv(envPath)
	t.Cleanup(func() { os.Unsetenv("FEED_MODE") })

	assert.Equal(t, "ws", cfg.Feed.Mode)
	assert.Equal(t, 4, cfg.Book.MaxTransactionOrders)
	assert.Equal(t, "5000", cfg.Book.MinVolumeEth.String())
	assert.Equal(t, 0.01, cfg.Widget.FeePercentage)
	assert.Equal(t, 40.0, cfg.Widget.GasPrices.Fast)
	assert.Equal(t, 250*time.Millisecond, cfg.Feed.Poll)
	assert.Equal(t, common.HexToAddress("0x42"), cfg.Chain.Dexdex)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	assert.Equal(t, int64(1), cfg.Chain.ChainID)
}

func TestLoadTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	doc := `
feePercentage: 0.003
widgets: [main]
tokens:
  - symbol: ZRX
    decimals: 18
    address: "0xE41d2489571d322189246DaFA5ebDe1F4699F498"
  - symbol: MKR
    decimals: 18
    address: "0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg := Default()
	require.NoError(t, LoadTokens(&cfg, path))

	require.Len(t, cfg.Widget.Tokens, 2)
	assert.Equal(t, widget.Token{
		Symbol:   "ZRX",
		Decimals: 18,
		Address:  common.HexToAddress("0xe41d2489571d322189246dafa5ebde1f4699f498"),
	}, cfg.Widget.Tokens[0])
	assert.Equal(t, 0.003, cfg.Widget.FeePercentage)
	assert.Equal(t, []string{"main"}, cfg.Widget.WidgetIDs)
	assert.Equal(t, Default().Widget.GasPrices, cfg.Widget.GasPrices)

	wc := cfg.WidgetConfig()
	assert.Equal(t, 0.003, wc.FeePercentage)
	assert.Equal(t, 2, wc.Book.MaxTransactionOrders)
}

func TestLoadTokens_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"no address": "tokens:\n  - symbol: ZRX\n    decimals: 18\n",
		"bad yaml":   "tokens: [",
		"decimals":   "tokens:\n  - symbol: ZRX\n    decimals: -1\n    address: \"0xE41d2489571d322189246DaFA5ebDe1F4699F498\"\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
			cfg := Default()
			assert.Error(t, LoadTokens(&cfg, path))
		})
	}

	cfg := Default()
	assert.Error(t, LoadTokens(&cfg, filepath.Join(dir, "missing.yaml")))
}
