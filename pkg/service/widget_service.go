package service

import (
	"github.com/uhyunpark/daidex/pkg/api"
	"github.com/uhyunpark/daidex/pkg/app/widget"
)

// MarketData supplies the live parts of a widget config.
type MarketData interface {
	Apply(cfg widget.Config) widget.Config
}

// WidgetService builds widget configs from a base config and live market data.
type WidgetService struct {
	base    widget.Config
	market  MarketData
	widgets map[string]struct{}
}

// NewWidgetService serves base to the given widget ids, or to any id when
// none are given.
func NewWidgetService(base widget.Config, market MarketData, widgetIDs ...string) *WidgetService {
	ws := &WidgetService{base: base, market: market}
	if len(widgetIDs) > 0 {
		ws.widgets = make(map[string]struct{}, len(widgetIDs))
		for _, id := range widgetIDs {
			ws.widgets[id] = struct{}{}
		}
	}
	return ws
}

func (ws *WidgetService) WidgetConfig(widgetID string) (widget.Config, error) {
	if widgetID == "" {
		return widget.Config{}, api.ErrWidgetNotFound
	}
	if ws.widgets != nil {
		if _, ok := ws.widgets[widgetID]; !ok {
			return widget.Config{}, api.ErrWidgetNotFound
		}
	}
	cfg := ws.base
	cfg.Tokens = append([]widget.Token(nil), ws.base.Tokens...)
	if ws.market != nil {
		cfg = ws.market.Apply(cfg)
	}
	return cfg, nil
}

func (ws *WidgetService) Tokens() []widget.Token {
	return append([]widget.Token(nil), ws.base.Tokens...)
}

var _ api.Catalog = (*WidgetService)(nil)
var _ api.Books = (*BookService)(nil)
