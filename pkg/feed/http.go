package feed

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/api"
	"github.com/uhyunpark/daidex/pkg/app/widget"
)

// HTTPFeed polls the order-book endpoint and diffs consecutive snapshots.
type HTTPFeed struct {
	client   *resty.Client
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewHTTPFeed(baseURL string, interval time.Duration, log *zap.SugaredLogger) *HTTPFeed {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	return &HTTPFeed{client: client, interval: interval, log: log}
}

// Fetch returns the current book of token.
func (f *HTTPFeed) Fetch(ctx context.Context, token common.Address) (*api.OrderBookResponse, error) {
	var out api.OrderBookResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v1/orderbook/" + token.Hex())
	if err != nil {
		return nil, fmt.Errorf("fetch orderbook %s: %w", token.Hex(), err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch orderbook %s: http %d", token.Hex(), resp.StatusCode())
	}
	if out.Token != token {
		return nil, fmt.Errorf("fetch orderbook %s: got book of %s", token.Hex(), out.Token.Hex())
	}
	return &out, nil
}

// WidgetConfig loads the configuration the server publishes for widgetID.
// The book limits are not part of the payload and stay zero.
func (f *HTTPFeed) WidgetConfig(ctx context.Context, widgetID string) (widget.Config, error) {
	var out widget.Config
	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v1/widget/" + widgetID)
	if err != nil {
		return widget.Config{}, fmt.Errorf("fetch widget %s: %w", widgetID, err)
	}
	if resp.IsError() {
		return widget.Config{}, fmt.Errorf("fetch widget %s: http %d", widgetID, resp.StatusCode())
	}
	return out, nil
}

// Subscribe polls every interval. A tick that lands while the previous request
// is still outstanding is skipped rather than queued.
func (f *HTTPFeed) Subscribe(ctx context.Context, token common.Address, emit Emit) error {
	results := make(chan *api.OrderBookResponse, 1)
	var inFlight atomic.Bool

	poll := func() {
		if !inFlight.CompareAndSwap(false, true) {
			f.log.Debugw("orderbook_poll_skipped", "token", token.Hex())
			return
		}
		go func() {
			defer inFlight.Store(false)
			book, err := f.Fetch(ctx, token)
			if err != nil {
				if ctx.Err() == nil {
					f.log.Warnw("orderbook_poll_failed", "token", token.Hex(), "err", err)
				}
				return
			}
			select {
			case results <- book:
			case <-ctx.Done():
			}
		}()
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	poll()

	var prev *api.OrderBookResponse
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			poll()
		case book := <-results:
			if prev == nil {
				emit(book.SnapshotEvent())
				f.log.Infow("orderbook_snapshot", "token", token.Hex(), "buys", len(book.Buys), "sells", len(book.Sells))
			} else {
				for _, ev := range Diff(token, prev.Buys, prev.Sells, book.Buys, book.Sells) {
					emit(ev)
				}
			}
			prev = book
		}
	}
}
