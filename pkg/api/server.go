package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/app/core/order"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/app/widget"
)

// ErrWidgetNotFound is returned by a Catalog for an unknown widget id.
var ErrWidgetNotFound = errors.New("widget not found")

// Books is the order-book side of the server.
type Books interface {
	Book(token common.Address) (buys, sells []*order.Order, ok bool)
	Apply(ev orderbook.Event) (bool, error)
}

// Catalog serves widget configs and the listed tokens.
type Catalog interface {
	WidgetConfig(widgetID string) (widget.Config, error)
	Tokens() []widget.Token
}

// Server handles REST API and WebSocket connections
type Server struct {
	books   Books
	catalog Catalog
	router  *mux.Router
	hub     *Hub // WebSocket hub
	origins []string
	log     *zap.SugaredLogger
}

// NewServer creates a new API server
func NewServer(books Books, catalog Catalog, hub *Hub, origins []string, log *zap.SugaredLogger) *Server {
	s := &Server{
		books:   books,
		catalog: catalog,
		router:  mux.NewRouter(),
		hub:     hub,
		origins: origins,
		log:     log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Widget endpoints
	api.HandleFunc("/widget/{id}", s.handleGetWidget).Methods("GET")
	api.HandleFunc("/tokens", s.handleGetTokens).Methods("GET")

	// Order book endpoints
	api.HandleFunc("/orderbook/{token}", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/orderbook/{token}/events", s.handlePostEvent).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler is the router wrapped in CORS.
func (s *Server) Handler() http.Handler {
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Run serves on addr until ctx ends.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Infow("api_listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cfg, err := s.catalog.WidgetConfig(id)
	if errors.Is(err, ErrWidgetNotFound) {
		respondError(w, http.StatusNotFound, "widget not found", id)
		return
	}
	if err != nil {
		s.log.Errorw("widget_config_failed", "widget", id, "err", err)
		respondError(w, http.StatusInternalServerError, "widget config unavailable", err.Error())
		return
	}
	respondJSON(w, cfg)
}

func (s *Server) handleGetTokens(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.catalog.Tokens())
}

// resolveToken accepts a token address or a listed symbol.
func (s *Server) resolveToken(ref string) (common.Address, bool) {
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref), true
	}
	for _, t := range s.catalog.Tokens() {
		if strings.EqualFold(t.Symbol, ref) {
			return t.Address, true
		}
	}
	return common.Address{}, false
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["token"]
	token, ok := s.resolveToken(ref)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown token", ref)
		return
	}

	// a token without orders still has a (empty) book
	buys, sells, _ := s.books.Book(token)
	respondJSON(w, OrderBookResponse{
		Token:     token,
		Buys:      buys,
		Sells:     sells,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["token"]
	token, ok := s.resolveToken(ref)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown token", ref)
		return
	}

	var ev orderbook.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondError(w, http.StatusBadRequest, "invalid event", err.Error())
		return
	}
	if ev.Token == (common.Address{}) {
		ev.Token = token
	}
	if ev.Token != token {
		respondError(w, http.StatusBadRequest, "token mismatch", ev.Token.Hex())
		return
	}

	applied, err := s.books.Apply(ev)
	if err != nil {
		respondError(w, http.StatusBadRequest, "event rejected", err.Error())
		return
	}

	status := "ignored"
	if applied {
		status = "applied"
	}
	buys, sells, _ := s.books.Book(token)
	respondJSON(w, EventResponse{Status: status, Buys: len(buys), Sells: len(sells)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{"status": "ok", "ws_clients": s.hub.ClientCount()})
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
