package net

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"sleipnir/internal/book"
	"sleipnir/internal/common"
	"sleipnir/internal/engine"
)

const (
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Engine is the interface the RPC shell needs from the core.
type Engine interface {
	Submit(symbol string, order common.Order) (uint64, []common.Fill, error)
	TopOfBook(symbol string) (bidPrice, bidQty, askPrice, askQty int64)
	Depth(symbol string, levels int) (bids, asks []book.Level)
	RecentTrades(symbol string, afterTradeID uint64, limit int) ([]common.Trade, uint64)
}

// Server is the HTTP JSON shell over the engine core. It does request
// decoding, symbol normalization and error-code mapping; everything else
// is the engine's.
type Server struct {
	addr   string
	engine Engine
	srv    *http.Server
	cancel context.CancelFunc
}

func New(addr string, eng Engine) *Server {
	s := &Server{
		addr:   addr,
		engine: eng,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/v1/orders", s.handleSubmitOrder).Methods(http.MethodPost)
	router.HandleFunc("/v1/book/top", s.handleTopOfBook).Methods(http.MethodGet)
	router.HandleFunc("/v1/book/depth", s.handleBookDepth).Methods(http.MethodGet)
	router.HandleFunc("/v1/trades", s.handleRecentTrades).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}
	return s
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

// Run serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.Shutdown()
	t, ctx := tomb.WithContext(ctx)

	t.Go(func() error {
		log.Info().Str("addr", s.addr).Msg("server running")
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	t.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	})

	return t.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	side, err := req.Validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Blank client order ids get a server-side one so every WAL entry
	// carries a usable id.
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	seq, fills, err := s.engine.Submit(req.Symbol, common.Order{
		Side:          side,
		Price:         req.Price,
		Qty:           req.Qty,
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, SubmitOrderResponse{
		AcceptedSeq: seq,
		Fills:       fillMessages(fills),
	})
}

func (s *Server) handleTopOfBook(w http.ResponseWriter, r *http.Request) {
	symbol, err := symbolParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	bidPrice, bidQty, askPrice, askQty := s.engine.TopOfBook(symbol)
	writeJSON(w, http.StatusOK, TopOfBookResponse{
		BestBidPrice: bidPrice,
		BestBidQty:   bidQty,
		BestAskPrice: askPrice,
		BestAskQty:   askQty,
	})
}

func (s *Server) handleBookDepth(w http.ResponseWriter, r *http.Request) {
	symbol, err := symbolParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	levels, _ := strconv.Atoi(r.URL.Query().Get("levels"))

	bids, asks := s.engine.Depth(symbol, levels)
	writeJSON(w, http.StatusOK, BookDepthResponse{
		Bids: levelMessages(bids),
		Asks: levelMessages(asks),
	})
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	symbol, err := symbolParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	after, _ := strconv.ParseUint(r.URL.Query().Get("after_trade_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	trades, lastID := s.engine.RecentTrades(symbol, after, limit)
	writeJSON(w, http.StatusOK, RecentTradesResponse{
		Trades:      tradeMessages(trades),
		LastTradeID: lastID,
	})
}

func symbolParam(r *http.Request) (string, error) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		return "", ErrEmptySymbol
	}
	return symbol, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("unable to write response")
	}
}
