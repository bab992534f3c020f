package net

import (
	"errors"
	"strings"

	"sleipnir/internal/book"
	"sleipnir/internal/common"
)

var (
	ErrEmptySymbol = errors.New("symbol must not be empty")
	ErrBadQty      = errors.New("qty must be positive")
	ErrBadPrice    = errors.New("price must not be negative")
)

// SubmitOrderRequest is the SubmitOrder payload. Side uses the wire
// spelling "BUY" | "SELL".
type SubmitOrderRequest struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Price         int64  `json:"price"`
	Qty           int64  `json:"qty"`
	ClientOrderID string `json:"client_order_id"`
}

// Validate normalizes the symbol and checks the matching invariants the
// engine relies on. Deeper validation stays the engine's duty.
func (r *SubmitOrderRequest) Validate() (common.Side, error) {
	r.Symbol = strings.TrimSpace(r.Symbol)
	if r.Symbol == "" {
		return common.Buy, ErrEmptySymbol
	}
	side, err := common.ParseSide(r.Side)
	if err != nil {
		return common.Buy, err
	}
	if r.Qty <= 0 {
		return common.Buy, ErrBadQty
	}
	if r.Price < 0 {
		return common.Buy, ErrBadPrice
	}
	return side, nil
}

type FillMessage struct {
	MakerSeq uint64 `json:"maker_seq"`
	TakerSeq uint64 `json:"taker_seq"`
	Price    int64  `json:"price"`
	Qty      int64  `json:"qty"`
}

type SubmitOrderResponse struct {
	AcceptedSeq uint64        `json:"accepted_seq"`
	Fills       []FillMessage `json:"fills"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type TopOfBookResponse struct {
	BestBidPrice int64 `json:"best_bid_price"`
	BestBidQty   int64 `json:"best_bid_qty"`
	BestAskPrice int64 `json:"best_ask_price"`
	BestAskQty   int64 `json:"best_ask_qty"`
}

type PriceLevelMessage struct {
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"`
}

type BookDepthResponse struct {
	Bids []PriceLevelMessage `json:"bids"`
	Asks []PriceLevelMessage `json:"asks"`
}

type TradeMessage struct {
	TradeID   uint64 `json:"trade_id"`
	Symbol    string `json:"symbol"`
	Price     int64  `json:"price"`
	Qty       int64  `json:"qty"`
	MakerSeq  uint64 `json:"maker_seq"`
	TakerSeq  uint64 `json:"taker_seq"`
	TakerSide string `json:"taker_side"`
}

type RecentTradesResponse struct {
	Trades      []TradeMessage `json:"trades"`
	LastTradeID uint64         `json:"last_trade_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func fillMessages(fills []common.Fill) []FillMessage {
	out := make([]FillMessage, 0, len(fills))
	for _, f := range fills {
		out = append(out, FillMessage{
			MakerSeq: f.MakerSeq,
			TakerSeq: f.TakerSeq,
			Price:    f.Price,
			Qty:      f.Qty,
		})
	}
	return out
}

func levelMessages(levels []book.Level) []PriceLevelMessage {
	out := make([]PriceLevelMessage, 0, len(levels))
	for _, l := range levels {
		out = append(out, PriceLevelMessage{Price: l.Price, Qty: l.Qty})
	}
	return out
}

func tradeMessages(trades []common.Trade) []TradeMessage {
	out := make([]TradeMessage, 0, len(trades))
	for _, t := range trades {
		out = append(out, TradeMessage{
			TradeID:   t.TradeID,
			Symbol:    t.Symbol,
			Price:     t.Price,
			Qty:       t.Qty,
			MakerSeq:  t.MakerSeq,
			TakerSeq:  t.TakerSeq,
			TakerSide: t.TakerSide.String(),
		})
	}
	return out
}
