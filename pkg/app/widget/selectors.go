package widget

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/daidex/pkg/units"
)

// NotAvailable is shown in place of a quantity that cannot be computed yet.
const NotAvailable = "--"

func withFee(st State, v *big.Int) string {
	return units.FromWeiFixed(units.Percentage(1+st.Config.FeePercentage, v), units.Ether, 4)
}

// TxEtherRange is the ether the trade costs, fee included, from the current
// volume up to the slippage bound.
func TxEtherRange(st State) (min, max string) {
	tx := st.CurrentTransaction
	if tx == nil {
		return NotAvailable, NotAvailable
	}
	return withFee(st, tx.CurrentVolumeEth()), withFee(st, tx.CurrentVolumeEthUpperBound())
}

// TxDAIVolume is the DAI counter-volume, fee included.
func TxDAIVolume(st State) string {
	if st.CurrentTransactionDAI == nil {
		return NotAvailable
	}
	return withFee(st, st.CurrentTransactionDAI)
}

// NetworkFee estimates gas cost in ether (4 places) and USD (2 places).
func NetworkFee(st State) (ether, usd string) {
	tx := st.CurrentTransaction
	if tx == nil {
		return NotAvailable, NotAvailable
	}
	gasPrice, err := ComputeGasPrice(st.Config.GasPrices, st.GasPrice)
	if err != nil {
		return NotAvailable, NotAvailable
	}
	cost := new(big.Int).Mul(tx.RequiredGas(), gasPrice)
	ether = units.FromWeiFixed(cost, units.Ether, 4)

	rounded, err := decimal.NewFromString(ether)
	if err != nil {
		return ether, NotAvailable
	}
	usd = rounded.Mul(decimal.NewFromFloat(st.Config.EthersToUSD)).StringFixed(2)
	return ether, usd
}
