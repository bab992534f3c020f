// Package engine owns the engine state aggregate: the global sequence
// counter, the per-symbol books and trade tapes, and the single write
// lock that serializes every mutation against the WAL-then-apply
// protocol.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"sleipnir/internal/book"
	"sleipnir/internal/common"
	"sleipnir/internal/metrics"
	"sleipnir/internal/wal"
)

const (
	// TradeTapeCapacity bounds each symbol's tape; overflow evicts the
	// oldest trade.
	TradeTapeCapacity = 10_000

	DefaultDepthLevels = 10
	MaxDepthLevels     = 100

	DefaultTradeLimit = 50
	MaxTradeLimit     = 1000
)

var (
	ErrInvalidOrder = errors.New("invalid order")
	ErrUnavailable  = errors.New("order log unavailable")
)

// Log is the durability surface the engine needs; *wal.WAL satisfies it.
type Log interface {
	Append(wal.Entry) error
	Truncate() error
	WriteSnapshot(wal.Snapshot) error
	ReadSnapshot() (*wal.Snapshot, error)
	ReplayAfter(afterSeq uint64, apply func(wal.Entry) error) (int, error)
}

// Engine serializes all writers behind one lock. Readers take the same
// lock briefly and return copies, so nothing observable ever precedes its
// WAL entry.
type Engine struct {
	mu  sync.Mutex
	wal Log

	seq         uint64
	nextTradeID uint64
	books       map[string]*book.OrderBook
	tapes       map[string]*tape
}

func New(w Log) *Engine {
	return &Engine{
		wal:   w,
		books: make(map[string]*book.OrderBook),
		tapes: make(map[string]*tape),
	}
}

// Submit runs the accept protocol for one order: assign the next seq,
// append to the WAL, and only then mutate the book and the trade tape.
// A failed append releases the seq again, so the counter stays gap-free
// across accepted orders.
//
// The order's Seq field is ignored; the engine assigns it.
func (e *Engine) Submit(symbol string, order common.Order) (uint64, []common.Fill, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || order.Qty <= 0 || order.Price < 0 {
		metrics.OrdersRejected.Inc()
		return 0, nil, ErrInvalidOrder
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		// A writer that aborts mid-mutation may leave a book half updated;
		// no further writes are safe on top of it, so the process exits.
		if r := recover(); r != nil {
			log.Fatal().Interface("panic", r).Msg("engine writer aborted")
		}
	}()

	e.seq++
	order.Seq = e.seq

	entry := wal.Entry{
		Seq:           order.Seq,
		Symbol:        symbol,
		Side:          order.Side.String(),
		Price:         order.Price,
		Qty:           order.Qty,
		ClientOrderID: order.ClientOrderID,
	}
	if err := e.wal.Append(entry); err != nil {
		// The order was never durable, so the seq it would have taken is
		// released and reused by the next submit.
		e.seq--
		metrics.WalAppendFailures.Inc()
		log.Error().Err(err).Str("symbol", symbol).Msg("wal append failed")
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fills := e.bookFor(symbol).Add(order)
	for _, fill := range fills {
		e.nextTradeID++
		e.tapeFor(symbol).push(common.Trade{
			TradeID:   e.nextTradeID,
			Symbol:    symbol,
			Price:     fill.Price,
			Qty:       fill.Qty,
			MakerSeq:  fill.MakerSeq,
			TakerSeq:  fill.TakerSeq,
			TakerSide: order.Side,
		})
	}

	metrics.OrdersAccepted.Inc()
	metrics.FillsEmitted.Add(float64(len(fills)))
	return order.Seq, fills, nil
}

// TopOfBook returns best bid/ask price and the aggregated quantity at
// those prices, zeros per side when empty or the symbol is unknown.
func (e *Engine) TopOfBook(symbol string) (bidPrice, bidQty, askPrice, askQty int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bk, ok := e.books[symbol]
	if !ok {
		return 0, 0, 0, 0
	}
	return bk.TopOfBook()
}

// Depth returns up to levels aggregated entries per side, best-first.
// A non-positive levels defaults to DefaultDepthLevels; requests are
// capped at MaxDepthLevels regardless.
func (e *Engine) Depth(symbol string, levels int) (bids, asks []book.Level) {
	if levels <= 0 {
		levels = DefaultDepthLevels
	}
	levels = min(levels, MaxDepthLevels)

	e.mu.Lock()
	defer e.mu.Unlock()

	bk, ok := e.books[symbol]
	if !ok {
		return nil, nil
	}
	return bk.Depth(levels)
}

// RecentTrades returns the first min(limit, MaxTradeLimit) trades with
// trade id greater than afterTradeID, and the id of the last trade
// returned (afterTradeID when none match). The tape is a bounded ring; a
// client lagging by more than the capacity misses the evicted trades.
func (e *Engine) RecentTrades(symbol string, afterTradeID uint64, limit int) ([]common.Trade, uint64) {
	if limit <= 0 {
		limit = DefaultTradeLimit
	}
	limit = min(limit, MaxTradeLimit)

	e.mu.Lock()
	defer e.mu.Unlock()

	tp, ok := e.tapes[symbol]
	if !ok {
		return nil, afterTradeID
	}
	return tp.after(afterTradeID, limit)
}

// Shutdown snapshots the current state and, only on success, truncates
// the WAL. The two form the log-compaction transaction; truncating first
// would lose everything past the previous snapshot on a crash.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snapshotLocked()
	if err := e.wal.WriteSnapshot(snap); err != nil {
		return fmt.Errorf("shutdown snapshot failed: %w", err)
	}
	if err := e.wal.Truncate(); err != nil {
		return fmt.Errorf("wal truncate after snapshot failed: %w", err)
	}

	log.Info().
		Uint64("seq", snap.Seq).
		Int("books", len(snap.Books)).
		Msg("shutdown snapshot written, wal truncated")
	return nil
}

func (e *Engine) snapshotLocked() wal.Snapshot {
	symbols := make([]string, 0, len(e.books))
	for symbol := range e.books {
		symbols = append(symbols, symbol)
	}
	// Map order is arbitrary; a stable document is easier to diff.
	sort.Strings(symbols)

	snap := wal.Snapshot{Seq: e.seq}
	for _, symbol := range symbols {
		bk := e.books[symbol]
		snap.Books = append(snap.Books, wal.SnapshotBook{
			Symbol: symbol,
			Bids:   snapshotSide(bk.RestingBids()),
			Asks:   snapshotSide(bk.RestingAsks()),
		})
	}
	return snap
}

func snapshotSide(resting []common.Order) []wal.SnapshotOrder {
	out := make([]wal.SnapshotOrder, 0, len(resting))
	for _, o := range resting {
		out = append(out, wal.SnapshotOrder{
			Seq:           o.Seq,
			Side:          o.Side.String(),
			Price:         o.Price,
			Qty:           o.Qty,
			ClientOrderID: o.ClientOrderID,
		})
	}
	return out
}

func (e *Engine) bookFor(symbol string) *book.OrderBook {
	bk, ok := e.books[symbol]
	if !ok {
		bk = book.New()
		e.books[symbol] = bk
		metrics.ActiveBooks.Inc()
	}
	return bk
}

func (e *Engine) tapeFor(symbol string) *tape {
	tp, ok := e.tapes[symbol]
	if !ok {
		tp = &tape{}
		e.tapes[symbol] = tp
	}
	return tp
}
