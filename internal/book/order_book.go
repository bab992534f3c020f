package book

import (
	"github.com/rs/zerolog/log"
	"github.com/tidwall/btree"

	"sleipnir/internal/common"
)

// PriceLevel holds the FIFO queue of resting orders sitting at one price.
// Orders within a level are in arrival order (ascending seq), as they are
// only ever push-back'd.
type PriceLevel struct {
	Price  int64
	Orders []*common.RestingOrder
}

type PriceLevels = btree.BTreeG[*PriceLevel]

// Level is one aggregated depth entry.
type Level struct {
	Price int64
	Qty   int64
}

// OrderBook is a per-symbol price-level book with FIFO queues at each
// price. Best bid is the greatest bid price, best ask the smallest ask
// price; both trees are sorted best-first so Min always yields the top.
// Levels are deleted eagerly once their queue empties, so every level
// present in a tree is non-empty.
type OrderBook struct {
	bids *PriceLevels
	asks *PriceLevels
}

func New() *OrderBook {
	// Sorted greatest first.
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price
	})
	// Sorted least first.
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price
	})
	return &OrderBook{
		bids: bids,
		asks: asks,
	}
}

// Add matches the incoming order against the opposite side as far as its
// limit price crosses, in price-time priority, and rests any remainder at
// its limit price. Returns the fills in emission order: sweep order across
// levels, ascending maker seq within a level.
//
// Validation is the caller's duty; a non-positive quantity or negative
// price is dropped here without fills.
func (book *OrderBook) Add(order common.Order) []common.Fill {
	if order.Qty <= 0 || order.Price < 0 {
		log.Warn().
			Uint64("seq", order.Seq).
			Int64("price", order.Price).
			Int64("qty", order.Qty).
			Msg("dropping malformed order at book boundary")
		return nil
	}

	var fills []common.Fill
	remaining := order.Qty

	opposite := book.asks
	crosses := func(levelPrice int64) bool { return order.Price >= levelPrice }
	if order.Side == common.Sell {
		opposite = book.bids
		crosses = func(levelPrice int64) bool { return order.Price <= levelPrice }
	}

	// Sweep the opposite side one best level at a time. The level queue is
	// consumed front-first; fully filled makers are sliced off in one go
	// once the level is done with.
	for remaining > 0 {
		level, ok := opposite.MinMut()
		if !ok || !crosses(level.Price) {
			break
		}

		var consumed int
		for consumed < len(level.Orders) && remaining > 0 {
			maker := level.Orders[consumed]

			if maker.RemainingQty <= 0 {
				// Only reachable through a bug or a corrupt replay.
				// Discard the entry and keep matching.
				log.Warn().
					Uint64("makerSeq", maker.Seq).
					Int64("price", level.Price).
					Int64("remainingQty", maker.RemainingQty).
					Msg("discarding maker with non-positive remaining quantity")
				consumed++
				continue
			}

			traded := min(remaining, maker.RemainingQty)
			remaining -= traded
			maker.RemainingQty -= traded

			fills = append(fills, common.Fill{
				MakerSeq: maker.Seq,
				TakerSeq: order.Seq,
				Price:    level.Price,
				Qty:      traded,
			})

			if maker.RemainingQty == 0 {
				consumed++
			}
		}

		if consumed > 0 {
			level.Orders = level.Orders[consumed:]
		}
		if len(level.Orders) == 0 {
			opposite.Delete(level)
		}
	}

	if remaining > 0 {
		book.rest(&common.RestingOrder{
			Seq:           order.Seq,
			Side:          order.Side,
			Price:         order.Price,
			RemainingQty:  remaining,
			ClientOrderID: order.ClientOrderID,
		})
	}
	return fills
}

// Restore pushes a resting order straight into its price level, bypassing
// matching. Snapshots are trusted to be non-crossing by construction, and
// they preserve FIFO order within a level, so a plain push-back rebuilds
// the exact queue.
func (book *OrderBook) Restore(ro common.RestingOrder) {
	book.rest(&ro)
}

func (book *OrderBook) rest(ro *common.RestingOrder) {
	side := book.bids
	if ro.Side == common.Sell {
		side = book.asks
	}

	// Comparators only look at price, so a bare price is enough for the
	// level search.
	if level, ok := side.GetMut(&PriceLevel{Price: ro.Price}); ok {
		level.Orders = append(level.Orders, ro)
		return
	}
	side.Set(&PriceLevel{
		Price:  ro.Price,
		Orders: []*common.RestingOrder{ro},
	})
}

// TopOfBook returns the best price and the aggregated remaining quantity
// at that price for each side, zeros for an empty side.
func (book *OrderBook) TopOfBook() (bidPrice, bidQty, askPrice, askQty int64) {
	if level, ok := book.bids.Min(); ok {
		bidPrice, bidQty = level.Price, levelQty(level)
	}
	if level, ok := book.asks.Min(); ok {
		askPrice, askQty = level.Price, levelQty(level)
	}
	return bidPrice, bidQty, askPrice, askQty
}

// Depth returns up to levels aggregated entries per side, best-first.
func (book *OrderBook) Depth(levels int) (bids, asks []Level) {
	if levels <= 0 {
		return nil, nil
	}
	collect := func(side *PriceLevels) []Level {
		out := make([]Level, 0, min(levels, side.Len()))
		side.Scan(func(level *PriceLevel) bool {
			out = append(out, Level{Price: level.Price, Qty: levelQty(level)})
			return len(out) < levels
		})
		return out
	}
	return collect(book.bids), collect(book.asks)
}

// RestingBids returns every resting bid in ascending price order, FIFO
// within each level. The quantity carried is the remaining quantity.
func (book *OrderBook) RestingBids() []common.Order {
	// Bids are sorted greatest-first, so ascending price is the reverse.
	return flatten(book.bids, true)
}

// RestingAsks returns every resting ask in ascending price order, FIFO
// within each level.
func (book *OrderBook) RestingAsks() []common.Order {
	return flatten(book.asks, false)
}

func flatten(side *PriceLevels, reverse bool) []common.Order {
	var out []common.Order
	iter := func(level *PriceLevel) bool {
		for _, ro := range level.Orders {
			out = append(out, common.Order{
				Seq:           ro.Seq,
				Side:          ro.Side,
				Price:         ro.Price,
				Qty:           ro.RemainingQty,
				ClientOrderID: ro.ClientOrderID,
			})
		}
		return true
	}
	if reverse {
		side.Reverse(iter)
	} else {
		side.Scan(iter)
	}
	return out
}

func levelQty(level *PriceLevel) int64 {
	var qty int64
	for _, ro := range level.Orders {
		qty += ro.RemainingQty
	}
	return qty
}
