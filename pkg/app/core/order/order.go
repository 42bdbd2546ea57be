package order

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNegativeRemaining reports an order whose filled volume exceeds its volume.
// The feed never produces such orders; seeing one means the book is corrupt.
var ErrNegativeRemaining = errors.New("order: filled volume exceeds volume")

// Order is a resting order on one side of the book.
// Orders are immutable: an update arrives as a new Order with the same ID.
type Order struct {
	ID     string `json:"id"`
	IsSell bool   `json:"isSell"`

	// Volume is expressed in token base units (token decimals)
	Volume *big.Int `json:"volume"`
	// VolumeEth is the counter-value of Volume in wei
	VolumeEth    *big.Int `json:"volumeEth"`
	FilledVolume *big.Int `json:"filledVolume"`

	// OrdersData is the settlement payload for this order; it is never interpreted
	OrdersData string `json:"ordersData"`

	Token common.Address `json:"token"`
	Maker common.Address `json:"maker,omitempty"`
}

// New builds an order with zero filled volume.
func New(id string, isSell bool, volume, volumeEth *big.Int, ordersData string) *Order {
	return &Order{
		ID:           id,
		IsSell:       isSell,
		Volume:       volume,
		VolumeEth:    volumeEth,
		FilledVolume: new(big.Int),
		OrdersData:   ordersData,
	}
}

// WithFilled returns a copy of o with a different filled volume.
func (o *Order) WithFilled(filled *big.Int) *Order {
	cp := *o
	cp.FilledVolume = new(big.Int).Set(filled)
	return &cp
}

func (o *Order) filled() *big.Int {
	if o.FilledVolume == nil {
		return new(big.Int)
	}
	return o.FilledVolume
}

// Validate checks the integrity invariants of an order coming from the feed.
func (o *Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("order: missing id")
	}
	if o.Volume == nil || o.VolumeEth == nil {
		return fmt.Errorf("order %s: missing volume", o.ID)
	}
	if o.Volume.Sign() < 0 || o.VolumeEth.Sign() < 0 || o.filled().Sign() < 0 {
		return fmt.Errorf("order %s: negative amount", o.ID)
	}
	if o.filled().Cmp(o.Volume) > 0 {
		return fmt.Errorf("order %s: %w", o.ID, ErrNegativeRemaining)
	}
	return nil
}

// RemainingVolume returns Volume - FilledVolume.
// It panics on a negative result: the book is corrupt and nothing downstream can recover.
func RemainingVolume(o *Order) *big.Int {
	rem := new(big.Int).Sub(o.Volume, o.filled())
	if rem.Sign() < 0 {
		panic(fmt.Errorf("order %s: %w", o.ID, ErrNegativeRemaining))
	}
	return rem
}

// RemainingVolumeEth returns the counter-value of the remaining volume,
// VolumeEth * remaining / Volume with floor division.
func RemainingVolumeEth(o *Order) *big.Int {
	rem := RemainingVolume(o)
	if o.filled().Sign() == 0 {
		return new(big.Int).Set(o.VolumeEth)
	}
	if o.Volume.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(o.VolumeEth, rem)
	return out.Quo(out, o.Volume)
}
