// Package market tracks network gas prices and the ETH/USD rate.
package market

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uhyunpark/daidex/pkg/app/widget"
	"github.com/uhyunpark/daidex/pkg/poller"
	"github.com/uhyunpark/daidex/pkg/util"
)

const (
	DefaultGasURL   = "https://dev.blockscale.net/api/gasexpress.json"
	DefaultPriceURL = "https://api.coinmarketcap.com/v1/ticker/ethereum/?convert=USD"
	DefaultPollWait = time.Minute
)

type Config struct {
	GasURL   string
	PriceURL string
	PollWait time.Duration

	// used until the first successful fetch
	FallbackGas    widget.GasPrices
	FallbackEthUSD float64
}

// gasexpress reports gwei per speed tier.
type gasExpress struct {
	SafeLow float64 `json:"safeLow"`
	Fast    float64 `json:"fast"`
	Fastest float64 `json:"fastest"`
}

type ticker struct {
	PriceUSD string `json:"price_usd"`
}

type Market struct {
	cfg    Config
	client *resty.Client
	gas    *poller.Poller[widget.GasPrices]
	ethUSD *poller.Poller[float64]
	log    *zap.SugaredLogger
}

func New(cfg Config, clock util.Clock, log *zap.SugaredLogger) *Market {
	if cfg.GasURL == "" {
		cfg.GasURL = DefaultGasURL
	}
	if cfg.PriceURL == "" {
		cfg.PriceURL = DefaultPriceURL
	}
	if cfg.PollWait <= 0 {
		cfg.PollWait = DefaultPollWait
	}
	m := &Market{
		cfg:    cfg,
		client: resty.New().SetTimeout(15 * time.Second).SetRetryCount(2).SetRetryWaitTime(time.Second),
		log:    log,
	}
	m.gas = poller.New("gas_prices", m.FetchGasPrices, cfg.PollWait, clock, log)
	m.ethUSD = poller.New("eth_usd", m.FetchEthUSD, cfg.PollWait, clock, log)
	return m
}

func (m *Market) FetchGasPrices(ctx context.Context) (widget.GasPrices, error) {
	var body gasExpress
	resp, err := m.client.R().SetContext(ctx).SetResult(&body).Get(m.cfg.GasURL)
	if err != nil {
		return widget.GasPrices{}, fmt.Errorf("gas prices: %w", err)
	}
	if resp.IsError() {
		return widget.GasPrices{}, fmt.Errorf("gas prices: http %d", resp.StatusCode())
	}
	return widget.GasPrices{Slow: body.SafeLow, Normal: body.Fast, Fast: body.Fastest}, nil
}

func (m *Market) FetchEthUSD(ctx context.Context) (float64, error) {
	var body []ticker
	resp, err := m.client.R().SetContext(ctx).SetResult(&body).Get(m.cfg.PriceURL)
	if err != nil {
		return 0, fmt.Errorf("eth price: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("eth price: http %d", resp.StatusCode())
	}
	if len(body) == 0 {
		return 0, errors.New("eth price: empty ticker")
	}
	price, err := strconv.ParseFloat(body[0].PriceUSD, 64)
	if err != nil {
		return 0, fmt.Errorf("eth price: %w", err)
	}
	return price, nil
}

// Run polls both sources until ctx ends.
func (m *Market) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.gas.Run(ctx) })
	g.Go(func() error { return m.ethUSD.Run(ctx) })
	return g.Wait()
}

func (m *Market) GasPrices() widget.GasPrices {
	v, err := m.gas.Current()
	if err != nil {
		return m.cfg.FallbackGas
	}
	return v
}

func (m *Market) EthUSD() float64 {
	v, err := m.ethUSD.Current()
	if err != nil {
		return m.cfg.FallbackEthUSD
	}
	return v
}

// Apply fills the live market fields of a widget config.
func (m *Market) Apply(cfg widget.Config) widget.Config {
	cfg.GasPrices = m.GasPrices()
	cfg.EthersToUSD = m.EthUSD()
	return cfg
}
