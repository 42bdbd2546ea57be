package contracts

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

var token = common.HexToAddress("0x89d24a6b4ccb1b6faa2625fe562bdd9a23260359")

func testTransaction(t *testing.T) *obmath.TransactionInfo {
	t.Helper()
	orders := []*order.Order{
		order.New("a", true, big.NewInt(1000), big.NewInt(100), "aabb"),
		order.New("b", true, big.NewInt(1000), big.NewInt(200), "ccdd"),
	}
	tx, err := obmath.GetTransactionFor(orders, 2, big.NewInt(1500))
	require.NoError(t, err)
	tx, err = tx.ChangeVolume(big.NewInt(1600))
	require.NoError(t, err)
	return tx
}

func TestOrdersData(t *testing.T) {
	b, err := OrdersData("0xaabbccdd")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd}, b)

	_, err = OrdersData("0xaa0xbb")
	assert.Error(t, err)
}

func TestPackBuy(t *testing.T) {
	tx := testTransaction(t)
	dai := big.NewInt(777)

	call, err := PackBuy(token, tx, dai)
	require.NoError(t, err)

	method := DexdexABI.Methods["buy"]
	require.True(t, bytes.Equal(method.ID, call.Data[:4]), "selector mismatch")

	args, err := method.Inputs.Unpack(call.Data[4:])
	require.NoError(t, err)
	require.Len(t, args, 5)

	assert.Equal(t, token, args[0].(common.Address))
	assert.Equal(t, "1600", args[1].(*big.Int).String())
	assert.Equal(t, "777", args[2].(*big.Int).String())
	assert.Equal(t, tx.CurrentVolumeEthUpperBound().String(), args[3].(*big.Int).String())
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd}, args[4].([]byte))
	assert.Equal(t, tx.CurrentVolumeEthUpperBound(), call.Value)
}

func TestPackSell(t *testing.T) {
	tx := testTransaction(t)

	call, err := PackSell(token, tx, big.NewInt(5))
	require.NoError(t, err)

	method := DexdexABI.Methods["sell"]
	args, err := method.Inputs.Unpack(call.Data[4:])
	require.NoError(t, err)

	assert.Equal(t, tx.CurrentVolumeEth().String(), args[3].(*big.Int).String())
	assert.Equal(t, 0, call.Value.Sign())
}

func TestBalanceOfRoundTrip(t *testing.T) {
	data, err := PackBalanceOf(token)
	require.NoError(t, err)
	assert.Len(t, data, 4+32)

	out, err := ERC20ABI.Methods["balanceOf"].Outputs.Pack(big.NewInt(42))
	require.NoError(t, err)

	got, err := UnpackBalanceOf(out)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Int64())
}

func TestMarketAmount(t *testing.T) {
	_, err := PackGetPayAmount(token, token, big.NewInt(1))
	require.NoError(t, err)
	_, err = PackGetBuyAmount(token, token, big.NewInt(1))
	require.NoError(t, err)

	out, err := MatchingMarketABI.Methods["getPayAmount"].Outputs.Pack(big.NewInt(9))
	require.NoError(t, err)
	got, err := UnpackMarketAmount("getPayAmount", out)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Int64())

	_, err = UnpackMarketAmount("getPayAmount", []byte{1})
	assert.Error(t, err)
}
