// Command obquote sizes a trade against an order-book snapshot and can sign
// the resulting settlement transaction offline.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/urfave/cli/v2"

	"github.com/uhyunpark/daidex/params"
	"github.com/uhyunpark/daidex/pkg/api"
	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/contracts"
	"github.com/uhyunpark/daidex/pkg/crypto"
	"github.com/uhyunpark/daidex/pkg/units"
)

func main() {
	app := &cli.App{
		Name:  "obquote",
		Usage: "size a trade against an order-book snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "book", Aliases: []string{"b"}, Value: "-", Usage: "snapshot JSON as served by /api/v1/orderbook/{token}, - for stdin"},
			&cli.StringFlag{Name: "side", Value: "buy", Usage: "buy or sell the token"},
			&cli.StringFlag{Name: "amount", Required: true, Usage: "token amount, e.g. 12.5"},
			&cli.IntFlag{Name: "decimals", Value: 18, Usage: "token decimals"},
			&cli.IntFlag{Name: "max-orders", Value: params.Default().Book.MaxTransactionOrders, Usage: "max orders per transaction"},
		},
		Action: quote,
		Commands: []*cli.Command{
			{
				Name:  "sign",
				Usage: "build and sign the dexdex call for the quoted trade",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", EnvVars: []string{"WALLET_PRIVATE_KEY"}, Usage: "hex private key; a fresh one is generated if empty"},
					&cli.StringFlag{Name: "dexdex", EnvVars: []string{"DEXDEX_ADDRESS"}, Required: true},
					&cli.Uint64Flag{Name: "nonce"},
					&cli.Uint64Flag{Name: "gas-limit", Value: 0, Usage: "defaults to 500000 per order"},
					&cli.Float64Flag{Name: "gas-price", Value: 2, Usage: "gwei"},
					&cli.Int64Flag{Name: "chain-id", Value: 1},
					&cli.StringFlag{Name: "dai-volume", Value: "0", Usage: "DAI counter-volume in wei"},
				},
				Action: sign,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type quoteOutput struct {
	Token          common.Address `json:"token"`
	Side           string         `json:"side"`
	Orders         []string       `json:"orders"`
	Volume         string         `json:"volume"`
	MaxVolume      string         `json:"maxVolume"`
	VolumeEth      string         `json:"volumeEth"`
	VolumeEthUpper string         `json:"volumeEthUpperBound"`
	RequiredGas    string         `json:"requiredGas"`
	OrdersData     string         `json:"ordersData"`
}

// load reads the snapshot and sizes the trade.
func load(c *cli.Context) (*api.OrderBookResponse, orderbook.Operation, *obmath.TransactionInfo, error) {
	var r io.Reader = os.Stdin
	if path := c.String("book"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, nil, err
		}
		defer f.Close()
		r = f
	}
	var book api.OrderBookResponse
	if err := json.NewDecoder(r).Decode(&book); err != nil {
		return nil, 0, nil, fmt.Errorf("decode snapshot: %w", err)
	}

	op, err := orderbook.ParseOperation(c.String("side"))
	if err != nil {
		return nil, 0, nil, err
	}
	volume, err := units.ToTokenDecimals(c.String("amount"), c.Int("decimals"))
	if err != nil {
		return nil, 0, nil, fmt.Errorf("amount: %w", err)
	}

	cfg := params.Default().BookConfig()
	cfg.MaxTransactionOrders = c.Int("max-orders")
	ob, err := orderbook.New(cfg, book.Token).Apply(book.SnapshotEvent())
	if err != nil {
		return nil, 0, nil, err
	}
	if side := ob.Side(op); !side.IsValidVolume(volume) {
		return nil, 0, nil, fmt.Errorf("amount outside tradeable range [%s, %s]",
			units.FromTokenDecimals(side.MinVolume(), c.Int("decimals")),
			units.FromTokenDecimals(side.MaxVolume(), c.Int("decimals")))
	}
	tx, err := ob.ComputeTransaction(op, volume)
	if err != nil {
		return nil, 0, nil, err
	}
	return &book, op, tx, nil
}

func quote(c *cli.Context) error {
	book, op, tx, err := load(c)
	if err != nil {
		return err
	}
	decimals := c.Int("decimals")
	out := quoteOutput{
		Token:          book.Token,
		Side:           op.String(),
		Orders:         tx.OrderIDs(),
		Volume:         units.FromTokenDecimals(tx.CurrentVolume(), decimals),
		MaxVolume:      units.FromTokenDecimals(tx.MaxAvailableVolume(), decimals),
		VolumeEth:      units.FromWei(tx.CurrentVolumeEth(), units.Ether),
		VolumeEthUpper: units.FromWei(tx.CurrentVolumeEthUpperBound(), units.Ether),
		RequiredGas:    tx.RequiredGas().String(),
		OrdersData:     tx.OrderParameters(),
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func sign(c *cli.Context) error {
	// Step 1: Load or generate key
	var (
		signer *crypto.Signer
		err    error
	)
	if key := c.String("key"); key != "" {
		signer, err = crypto.FromPrivateKeyHex(key)
	} else {
		fmt.Fprintln(c.App.ErrWriter, "Generating new keypair...")
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "Address: %s\n", signer.Address().Hex())

	// Step 2: Size the trade
	book, op, tx, err := load(c)
	if err != nil {
		return err
	}
	daiVolume, ok := new(big.Int).SetString(c.String("dai-volume"), 10)
	if !ok {
		return fmt.Errorf("invalid dai volume %q", c.String("dai-volume"))
	}

	// Step 3: Pack the dexdex call
	var call *contracts.TradeCall
	if op == orderbook.Buy {
		call, err = contracts.PackBuy(book.Token, tx, daiVolume)
	} else {
		call, err = contracts.PackSell(book.Token, tx, daiVolume)
	}
	if err != nil {
		return err
	}

	gasLimit := c.Uint64("gas-limit")
	if gasLimit == 0 {
		gasLimit = tx.RequiredGas().Uint64()
	}
	dexdex := common.HexToAddress(c.String("dexdex"))
	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    c.Uint64("nonce"),
		To:       &dexdex,
		Value:    call.Value,
		Gas:      gasLimit,
		GasPrice: units.ToWei(c.Float64("gas-price"), units.GWei),
		Data:     call.Data,
	})

	// Step 4: Sign
	signed, err := signer.SignTx(unsigned, big.NewInt(c.Int64("chain-id")))
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Orders: %v\nValue: %s ETH\nTx hash: %s\n",
		tx.OrderIDs(), units.FromWei(call.Value, units.Ether), signed.Hash().Hex())
	fmt.Fprintf(c.App.Writer, "0x%s\n", hex.EncodeToString(raw))
	return nil
}
