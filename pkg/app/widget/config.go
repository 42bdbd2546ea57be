package widget

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/units"
)

// Token is a tradeable ERC20 listed by the widget.
type Token struct {
	Symbol   string         `json:"symbol" yaml:"symbol"`
	Decimals int            `json:"decimals" yaml:"decimals"`
	Address  common.Address `json:"address" yaml:"address"`
}

// GasPrice is the user's speed choice.
type GasPrice string

const (
	GasSlow   GasPrice = "Slow"
	GasNormal GasPrice = "Normal"
	GasFast   GasPrice = "Fast"
)

// GasPrices are in gwei.
type GasPrices struct {
	Slow   float64 `json:"slow" yaml:"slow"`
	Normal float64 `json:"normal" yaml:"normal"`
	Fast   float64 `json:"fast" yaml:"fast"`
}

// Config is what the server hands the widget at start.
type Config struct {
	FeePercentage float64   `json:"feePercentage" yaml:"feePercentage"`
	EthersToUSD   float64   `json:"ethers2usdER" yaml:"ethers2usdER"`
	GasPrices     GasPrices `json:"gasprices" yaml:"gasprices"`
	Tokens        []Token   `json:"tokens" yaml:"tokens"`

	Book orderbook.Config `json:"-" yaml:"-"`
}

// ComputeGasPrice converts the selected level to wei.
func ComputeGasPrice(prices GasPrices, level GasPrice) (*big.Int, error) {
	switch level {
	case GasSlow:
		return units.ToWei(prices.Slow, units.GWei), nil
	case GasNormal:
		return units.ToWei(prices.Normal, units.GWei), nil
	case GasFast:
		return units.ToWei(prices.Fast, units.GWei), nil
	}
	return nil, fmt.Errorf("invalid gas price %q", level)
}
