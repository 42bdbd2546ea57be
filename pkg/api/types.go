package api

import (
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/daidex/pkg/app/core/order"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
)

// API types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// OrderBookResponse is the resting orders of one token, best price first.
type OrderBookResponse struct {
	Token     common.Address `json:"token"`
	Buys      []*order.Order `json:"buys"`
	Sells     []*order.Order `json:"sells"`
	Timestamp int64          `json:"timestamp"` // Unix milliseconds
}

// SnapshotEvent turns the response into the first event a feed emits.
func (r *OrderBookResponse) SnapshotEvent() orderbook.Event {
	return orderbook.SnapshotEvent(r.Token, r.Buys, r.Sells)
}

// EventResponse acknowledges a posted order-book event.
type EventResponse struct {
	Status string `json:"status"` // "applied" or "ignored"
	Buys   int    `json:"buys"`
	Sells  int    `json:"sells"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

const (
	WSTypeOrderbook = "orderbook"
)

// WSMessage is the envelope of every message the hub sends.
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
	Digest  *BookDigest `json:"digest,omitempty"`
}

// WSInbound is how clients decode a WSMessage.
type WSInbound struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	Digest  *BookDigest     `json:"digest,omitempty"`
}

// BookDigest is the content hash of both sides once a message is applied.
// Only the last message of a batch of events carries it.
type BookDigest struct {
	Buys  common.Hash `json:"buys"`
	Sells common.Hash `json:"sells"`
}

func DigestBook(buys, sells []*order.Order) *BookDigest {
	return &BookDigest{Buys: orderbook.DigestOf(buys), Sells: orderbook.DigestOf(sells)}
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g. ["orderbook:0x89d2..."]
}

// OrderBookChannel is the hub channel carrying token's book events.
func OrderBookChannel(token common.Address) string {
	return WSTypeOrderbook + ":" + strings.ToLower(token.Hex())
}

// TokenFromChannel parses an order-book channel name.
func TokenFromChannel(channel string) (common.Address, bool) {
	rest, ok := strings.CutPrefix(channel, WSTypeOrderbook+":")
	if !ok || !common.IsHexAddress(rest) {
		return common.Address{}, false
	}
	return common.HexToAddress(rest), true
}
