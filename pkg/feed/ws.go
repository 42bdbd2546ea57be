package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/api"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
)

// ErrReplicaDiverged means the book rebuilt from the stream no longer matches
// the digest the server published. The caller resubscribes for a snapshot.
var ErrReplicaDiverged = errors.New("feed: replica diverged from server book")

// WSFeed streams a token's book from the server hub.
type WSFeed struct {
	url    string
	dialer *websocket.Dialer
	log    *zap.SugaredLogger
}

func NewWSFeed(url string, log *zap.SugaredLogger) *WSFeed {
	return &WSFeed{url: url, dialer: websocket.DefaultDialer, log: log}
}

// Subscribe dials the hub and forwards events for token. Events that arrive
// before the first snapshot are dropped. The feed replays what it forwards
// and returns ErrReplicaDiverged once a published digest disagrees.
func (f *WSFeed) Subscribe(ctx context.Context, token common.Address, emit Emit) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.url, err)
	}
	defer conn.Close()

	channel := api.OrderBookChannel(token)
	if err := conn.WriteJSON(api.WSSubscribeRequest{Op: "subscribe", Channels: []string{channel}}); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	f.log.Infow("ws_subscribed", "channel", channel)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var replica *orderbook.OrderBook
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read %s: %w", channel, err)
		}

		// the hub may batch several messages into one frame
		dec := json.NewDecoder(bytes.NewReader(frame))
		for {
			var msg api.WSInbound
			if err := dec.Decode(&msg); err != nil {
				if !errors.Is(err, io.EOF) {
					f.log.Warnw("ws_bad_message", "channel", channel, "err", err)
				}
				break
			}
			if msg.Type != api.WSTypeOrderbook || msg.Channel != channel {
				continue
			}
			var ev orderbook.Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				f.log.Warnw("ws_bad_event", "channel", channel, "err", err)
				continue
			}
			if ev.Token != token {
				continue
			}
			if replica == nil {
				if ev.Kind != orderbook.Snapshot {
					continue
				}
				replica = orderbook.New(orderbook.DefaultConfig(), token)
			}
			next, err := replica.Apply(ev)
			if err != nil {
				return fmt.Errorf("replay %s event on %s: %w", ev.Kind, channel, err)
			}
			replica = next
			emit(ev)

			if msg.Digest != nil && !matches(replica, msg.Digest) {
				f.log.Warnw("ws_replica_diverged", "channel", channel, "kind", ev.Kind.String())
				return fmt.Errorf("%w: %s", ErrReplicaDiverged, channel)
			}
		}
	}
}

func matches(book *orderbook.OrderBook, d *api.BookDigest) bool {
	return book.Buys.Digest() == d.Buys && book.Sells.Digest() == d.Sells
}
