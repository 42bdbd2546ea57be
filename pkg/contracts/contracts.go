package contracts

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
)

// NoAffiliate is the zero address sent when a trade has no referrer.
var NoAffiliate = common.Address{}

// OrdersData decodes the concatenated order payload into call bytes.
// Each order carries unprefixed hex, so only one leading 0x is tolerated.
func OrdersData(params string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(params, "0x"))
	if err != nil {
		return nil, fmt.Errorf("contracts: orders data is not hex: %w", err)
	}
	return b, nil
}

// TradeCall is a packed dexdex call plus the ether it must carry.
type TradeCall struct {
	Data  []byte
	Value *big.Int
}

// PackBuy builds dexdex.buy for tx. The call carries the upper bound of the
// ether volume; the contract refunds what the orders did not use.
func PackBuy(token common.Address, tx *obmath.TransactionInfo, daiVolume *big.Int) (*TradeCall, error) {
	ordersData, err := OrdersData(tx.OrderParameters())
	if err != nil {
		return nil, err
	}
	upper := tx.CurrentVolumeEthUpperBound()
	data, err := DexdexABI.Pack("buy", token, tx.CurrentVolume(), daiVolume, upper, ordersData)
	if err != nil {
		return nil, fmt.Errorf("contracts: pack buy: %w", err)
	}
	return &TradeCall{Data: data, Value: upper}, nil
}

// PackSell builds dexdex.sell for tx. Sells carry no ether.
func PackSell(token common.Address, tx *obmath.TransactionInfo, daiVolume *big.Int) (*TradeCall, error) {
	ordersData, err := OrdersData(tx.OrderParameters())
	if err != nil {
		return nil, err
	}
	data, err := DexdexABI.Pack("sell", token, tx.CurrentVolume(), daiVolume, tx.CurrentVolumeEth(), ordersData)
	if err != nil {
		return nil, fmt.Errorf("contracts: pack sell: %w", err)
	}
	return &TradeCall{Data: data, Value: new(big.Int)}, nil
}

func PackApprove(spender common.Address, volume *big.Int) ([]byte, error) {
	data, err := ERC20ABI.Pack("approve", spender, volume)
	if err != nil {
		return nil, fmt.Errorf("contracts: pack approve: %w", err)
	}
	return data, nil
}

func PackBalanceOf(owner common.Address) ([]byte, error) {
	data, err := ERC20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("contracts: pack balanceOf: %w", err)
	}
	return data, nil
}

func UnpackBalanceOf(result []byte) (*big.Int, error) {
	return unpackUint(ERC20ABI, "balanceOf", result)
}

// PackGetPayAmount asks how much payGem buys buyAmt of buyGem.
func PackGetPayAmount(payGem, buyGem common.Address, buyAmt *big.Int) ([]byte, error) {
	data, err := MatchingMarketABI.Pack("getPayAmount", payGem, buyGem, buyAmt)
	if err != nil {
		return nil, fmt.Errorf("contracts: pack getPayAmount: %w", err)
	}
	return data, nil
}

// PackGetBuyAmount asks how much buyGem payAmt of payGem buys.
func PackGetBuyAmount(buyGem, payGem common.Address, payAmt *big.Int) ([]byte, error) {
	data, err := MatchingMarketABI.Pack("getBuyAmount", buyGem, payGem, payAmt)
	if err != nil {
		return nil, fmt.Errorf("contracts: pack getBuyAmount: %w", err)
	}
	return data, nil
}

func UnpackMarketAmount(method string, result []byte) (*big.Int, error) {
	return unpackUint(MatchingMarketABI, method, result)
}

func unpackUint(a *abi.ABI, method string, result []byte) (*big.Int, error) {
	out, err := a.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("contracts: unpack %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("contracts: unpack %s: %d outputs", method, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("contracts: unpack %s: unexpected %T", method, out[0])
	}
	return v, nil
}
