// Package contracts packs and unpacks calls to the settlement contracts the
// widget talks to: the dexdex proxy, ERC20 tokens and the DAI matching market.
package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const dexdexABIJSON = `[
  {"constant":false,"inputs":[
    {"name":"tokenToBuy","type":"address"},
    {"name":"volumeTokenToBuy","type":"uint256"},
    {"name":"volumeDai","type":"uint256"},
    {"name":"volumeEth","type":"uint256"},
    {"name":"ordersData","type":"bytes"}],
   "name":"buy","outputs":[],"payable":true,"stateMutability":"payable","type":"function"},
  {"constant":false,"inputs":[
    {"name":"tokenToSell","type":"address"},
    {"name":"volumeTokenToSell","type":"uint256"},
    {"name":"volumeDai","type":"uint256"},
    {"name":"volumeEth","type":"uint256"},
    {"name":"ordersData","type":"bytes"}],
   "name":"sell","outputs":[],"payable":false,"stateMutability":"nonpayable","type":"function"}
]`

const erc20ABIJSON = `[
  {"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],
   "name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"}],
   "name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
   "name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const matchingMarketABIJSON = `[
  {"constant":true,"inputs":[
    {"name":"buy_gem","type":"address"},
    {"name":"pay_gem","type":"address"},
    {"name":"pay_amt","type":"uint256"}],
   "name":"getBuyAmount","outputs":[{"name":"fill_amt","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[
    {"name":"pay_gem","type":"address"},
    {"name":"buy_gem","type":"address"},
    {"name":"buy_amt","type":"uint256"}],
   "name":"getPayAmount","outputs":[{"name":"fill_amt","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

func parseABI(name, s string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("failed to parse %s abi: %v", name, err))
	}
	return &parsed
}

var (
	DexdexABI         = parseABI("dexdex", dexdexABIJSON)
	ERC20ABI          = parseABI("erc20", erc20ABIJSON)
	MatchingMarketABI = parseABI("matching market", matchingMarketABIJSON)
)
