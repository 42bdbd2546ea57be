package params

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethparams "github.com/ethereum/go-ethereum/params"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/app/widget"
)

// Mainnet addresses the widget trades against by default.
var (
	DefaultWETH           = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	DefaultDAI            = common.HexToAddress("0x89d24a6b4ccb1b6faa2625fe562bdd9a23260359")
	DefaultMatchingMarket = common.HexToAddress("0x14FBCA95be7e99C15Cc2996c6C9d841e54B79425")
)

type Book struct {
	// MinVolumeEth is the smallest trade counter-value, in wei
	MinVolumeEth         *big.Int
	MaxTransactionOrders int
}

type Widget struct {
	FeePercentage float64
	EthersToUSD   float64
	GasPrices     widget.GasPrices // gwei
	Tokens        []widget.Token
	WidgetIDs     []string
}

type Chain struct {
	RPCURL         string
	ChainID        int64
	Dexdex         common.Address
	WETH           common.Address
	DAI            common.Address
	MatchingMarket common.Address
	PrivateKey     string
}

type Feed struct {
	URL  string
	Mode string // "http" or "ws"
	Poll time.Duration
}

type Runtime struct {
	WalletPoll time.Duration
	FeedRetry  time.Duration
}

type Server struct {
	Addr        string
	StorePath   string // empty keeps books in memory
	EventLog    string
	CORSOrigins []string
	GasURL      string
	PriceURL    string
	MarketPoll  time.Duration
}

type Config struct {
	Book       Book
	Widget     Widget
	Chain      Chain
	Feed       Feed
	Runtime    Runtime
	Server     Server
	LogFile    string
	TokensFile string
}

func Default() Config {
	return Config{
		Book: Book{
			MinVolumeEth:         new(big.Int).Div(big.NewInt(ethparams.Ether), big.NewInt(1000)),
			MaxTransactionOrders: 2,
		},
		Widget: Widget{
			FeePercentage: 0.005,
			EthersToUSD:   0,
			GasPrices:     widget.GasPrices{Slow: 1, Normal: 2, Fast: 5},
		},
		Chain: Chain{
			RPCURL:         "http://localhost:8545",
			ChainID:        1,
			WETH:           DefaultWETH,
			DAI:            DefaultDAI,
			MatchingMarket: DefaultMatchingMarket,
		},
		Feed: Feed{
			URL:  "http://localhost:8080",
			Mode: "http",
			Poll: 5 * time.Second,
		},
		Runtime: Runtime{
			WalletPoll: 5 * time.Second,
			FeedRetry:  2 * time.Second,
		},
		Server: Server{
			Addr:       ":8080",
			MarketPoll: time.Minute,
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if v := os.Getenv("MIN_VOLUME_ETH_WEI"); v != "" {
		if n, ok := new(big.Int).SetString(v, 10); ok && n.Sign() > 0 {
			cfg.Book.MinVolumeEth = n
		}
	}
	if v := os.Getenv("MAX_TRANSACTION_ORDERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Book.MaxTransactionOrders = n
		}
	}

	setFloat(&cfg.Widget.FeePercentage, "FEE_PERCENTAGE")
	setFloat(&cfg.Widget.EthersToUSD, "ETH_USD_RATE")
	setFloat(&cfg.Widget.GasPrices.Slow, "GAS_PRICE_SLOW")
	setFloat(&cfg.Widget.GasPrices.Normal, "GAS_PRICE_NORMAL")
	setFloat(&cfg.Widget.GasPrices.Fast, "GAS_PRICE_FAST")
	if ids := os.Getenv("WIDGET_IDS"); ids != "" {
		cfg.Widget.WidgetIDs = splitList(ids)
	}

	cfg.Chain.RPCURL = getEnv("RPC_URL", cfg.Chain.RPCURL)
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Chain.ChainID = n
		}
	}
	setAddress(&cfg.Chain.Dexdex, "DEXDEX_ADDRESS")
	setAddress(&cfg.Chain.WETH, "WETH_ADDRESS")
	setAddress(&cfg.Chain.DAI, "DAI_ADDRESS")
	setAddress(&cfg.Chain.MatchingMarket, "DAI_MARKET_ADDRESS")
	cfg.Chain.PrivateKey = getEnv("WALLET_PRIVATE_KEY", cfg.Chain.PrivateKey)

	cfg.Feed.URL = getEnv("FEED_URL", cfg.Feed.URL)
	cfg.Feed.Mode = strings.ToLower(getEnv("FEED_MODE", cfg.Feed.Mode))
	setMillis(&cfg.Feed.Poll, "FEED_POLL_MS")
	setMillis(&cfg.Runtime.WalletPoll, "WALLET_POLL_MS")
	setMillis(&cfg.Runtime.FeedRetry, "FEED_RETRY_MS")

	cfg.Server.Addr = getEnv("API_ADDR", cfg.Server.Addr)
	cfg.Server.StorePath = getEnv("STORE_PATH", cfg.Server.StorePath)
	cfg.Server.EventLog = getEnv("EVENT_LOG", cfg.Server.EventLog)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	cfg.Server.GasURL = getEnv("GAS_PRICE_URL", cfg.Server.GasURL)
	cfg.Server.PriceURL = getEnv("ETH_PRICE_URL", cfg.Server.PriceURL)
	setMillis(&cfg.Server.MarketPoll, "MARKET_POLL_MS")

	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.TokensFile = getEnv("TOKENS_FILE", cfg.TokensFile)

	return cfg
}

// TokenList is the YAML document listing the widget's tokens. Fields left
// out keep their env or default values.
type TokenList struct {
	FeePercentage *float64          `yaml:"feePercentage"`
	GasPrices     *widget.GasPrices `yaml:"gasprices"`
	Widgets       []string          `yaml:"widgets"`
	Tokens        []widget.Token    `yaml:"tokens"`
}

// LoadTokens reads a token list from path into cfg.
func LoadTokens(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tokens file: %w", err)
	}
	var list TokenList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse tokens file %s: %w", path, err)
	}
	for i, t := range list.Tokens {
		if t.Symbol == "" || t.Address == (common.Address{}) {
			return fmt.Errorf("tokens file %s: entry %d needs symbol and address", path, i)
		}
		if t.Decimals < 0 || t.Decimals > 36 {
			return fmt.Errorf("tokens file %s: %s has invalid decimals %d", path, t.Symbol, t.Decimals)
		}
	}
	cfg.Widget.Tokens = list.Tokens
	if list.FeePercentage != nil {
		cfg.Widget.FeePercentage = *list.FeePercentage
	}
	if list.GasPrices != nil {
		cfg.Widget.GasPrices = *list.GasPrices
	}
	if len(list.Widgets) > 0 {
		cfg.Widget.WidgetIDs = list.Widgets
	}
	return nil
}

// WidgetConfig is the static part of what the server hands a widget.
func (c Config) WidgetConfig() widget.Config {
	return widget.Config{
		FeePercentage: c.Widget.FeePercentage,
		EthersToUSD:   c.Widget.EthersToUSD,
		GasPrices:     c.Widget.GasPrices,
		Tokens:        append([]widget.Token(nil), c.Widget.Tokens...),
		Book:          c.BookConfig(),
	}
}

func (c Config) BookConfig() orderbook.Config {
	return orderbook.Config{
		MinVolumeEth:         new(big.Int).Set(c.Book.MinVolumeEth),
		MaxTransactionOrders: c.Book.MaxTransactionOrders,
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setMillis(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
}

func setAddress(dst *common.Address, key string) {
	if v := os.Getenv(key); common.IsHexAddress(v) {
		*dst = common.HexToAddress(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
