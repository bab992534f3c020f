package book

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleipnir/internal/common"
)

// --- Setup & Helpers --------------------------------------------------------

func o(seq uint64, side common.Side, price, qty int64) common.Order {
	return common.Order{
		Seq:           seq,
		Side:          side,
		Price:         price,
		Qty:           qty,
		ClientOrderID: fmt.Sprintf("c%d", seq),
	}
}

func fill(makerSeq, takerSeq uint64, price, qty int64) common.Fill {
	return common.Fill{MakerSeq: makerSeq, TakerSeq: takerSeq, Price: price, Qty: qty}
}

// rested sums the remaining quantity the given seq holds in the book.
func rested(book *OrderBook, seq uint64) int64 {
	var total int64
	for _, side := range [][]common.Order{book.RestingBids(), book.RestingAsks()} {
		for _, ro := range side {
			if ro.Seq == seq {
				total += ro.Qty
			}
		}
	}
	return total
}

// --- Tests ------------------------------------------------------------------

func TestAdd_RestingOrderProducesNoFills(t *testing.T) {
	book := New()

	fills := book.Add(o(1, common.Buy, 100, 5))
	assert.Empty(t, fills)

	bidPrice, bidQty, askPrice, askQty := book.TopOfBook()
	assert.Equal(t, [4]int64{100, 5, 0, 0}, [4]int64{bidPrice, bidQty, askPrice, askQty})

	bids := book.RestingBids()
	require.Len(t, bids, 1)
	assert.Equal(t, uint64(1), bids[0].Seq)
	assert.Equal(t, int64(5), bids[0].Qty)
}

func TestAdd_BuySweepsAsksAcrossLevels(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Sell, 101, 4)))
	assert.Empty(t, book.Add(o(2, common.Sell, 102, 2)))

	// Taker sweeps 101 fully and 102 partially, in ascending price order.
	fills := book.Add(o(3, common.Buy, 102, 5))
	assert.Equal(t, []common.Fill{
		fill(1, 3, 101, 4),
		fill(2, 3, 102, 1),
	}, fills)

	// Taker fully filled, so nothing rests on the bid side.
	assert.Empty(t, book.RestingBids())

	asks := book.RestingAsks()
	require.Len(t, asks, 1)
	assert.Equal(t, uint64(2), asks[0].Seq)
	assert.Equal(t, int64(1), asks[0].Qty)

	bidPrice, bidQty, askPrice, askQty := book.TopOfBook()
	assert.Equal(t, [4]int64{0, 0, 102, 1}, [4]int64{bidPrice, bidQty, askPrice, askQty})
}

func TestAdd_SellSweepsBidsDescending(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Buy, 100, 3)))
	assert.Empty(t, book.Add(o(2, common.Buy, 99, 4)))

	// Taker hits 100 fully and 99 partially, in descending price order.
	fills := book.Add(o(3, common.Sell, 99, 5))
	assert.Equal(t, []common.Fill{
		fill(1, 3, 100, 3),
		fill(2, 3, 99, 2),
	}, fills)

	assert.Empty(t, book.RestingAsks())

	bids := book.RestingBids()
	require.Len(t, bids, 1)
	assert.Equal(t, uint64(2), bids[0].Seq)
	assert.Equal(t, int64(2), bids[0].Qty)
}

func TestAdd_FIFOWithinPriceLevel(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Sell, 101, 2)))
	assert.Empty(t, book.Add(o(2, common.Sell, 101, 2)))

	fills := book.Add(o(3, common.Buy, 101, 3))
	assert.Equal(t, []common.Fill{
		fill(1, 3, 101, 2),
		fill(2, 3, 101, 1),
	}, fills)

	// The residual maker is the later arrival, seq=2, with qty 1 left.
	asks := book.RestingAsks()
	require.Len(t, asks, 1)
	assert.Equal(t, uint64(2), asks[0].Seq)
	assert.Equal(t, int64(1), asks[0].Qty)
}

func TestAdd_LeftoverRestsAfterPartialFill(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Sell, 101, 2)))

	fills := book.Add(o(2, common.Buy, 101, 5))
	assert.Equal(t, []common.Fill{fill(1, 2, 101, 2)}, fills)

	assert.Empty(t, book.RestingAsks())
	bids := book.RestingBids()
	require.Len(t, bids, 1)
	assert.Equal(t, uint64(2), bids[0].Seq)
	assert.Equal(t, int64(3), bids[0].Qty)
}

func TestAdd_NonCrossingTakerRestsImmediately(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Sell, 105, 4)))
	assert.Empty(t, book.Add(o(2, common.Buy, 104, 4)))

	// Both sides populated, never crossed at rest.
	bidPrice, _, askPrice, _ := book.TopOfBook()
	assert.Less(t, bidPrice, askPrice)
}

func TestAdd_MakerPriceDominates(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Sell, 101, 4)))

	// Taker willing to pay 110 still trades at the maker's 101.
	fills := book.Add(o(2, common.Buy, 110, 4))
	require.Len(t, fills, 1)
	assert.Equal(t, int64(101), fills[0].Price)
}

func TestAdd_ConservationOfQuantity(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Sell, 101, 4)))
	assert.Empty(t, book.Add(o(2, common.Sell, 102, 2)))

	order := o(3, common.Buy, 102, 9)
	fills := book.Add(order)

	var filled int64
	for _, f := range fills {
		filled += f.Qty
	}
	assert.Equal(t, order.Qty, filled+rested(book, 3))
}

func TestAdd_RejectsMalformedOrders(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Buy, 100, 0)))
	assert.Empty(t, book.Add(o(2, common.Buy, 100, -3)))
	assert.Empty(t, book.Add(o(3, common.Sell, -1, 5)))

	assert.Empty(t, book.RestingBids())
	assert.Empty(t, book.RestingAsks())
}

func TestAdd_ZeroPriceIsAccepted(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Buy, 100, 5)))

	// A zero-price sell crosses any bid from below.
	fills := book.Add(o(2, common.Sell, 0, 5))
	assert.Equal(t, []common.Fill{fill(1, 2, 100, 5)}, fills)
}

func TestAdd_DiscardsCorruptMakerAndContinues(t *testing.T) {
	book := New()

	// A zero-remaining maker can only exist via a bug or corrupt replay;
	// Restore bypasses matching so we can plant one.
	book.Restore(common.RestingOrder{Seq: 1, Side: common.Sell, Price: 101, RemainingQty: 0})
	book.Restore(common.RestingOrder{Seq: 2, Side: common.Sell, Price: 101, RemainingQty: 3})

	fills := book.Add(o(3, common.Buy, 101, 3))
	assert.Equal(t, []common.Fill{fill(2, 3, 101, 3)}, fills)
	assert.Empty(t, book.RestingAsks())
}

func TestTopOfBook_AggregatesQuantityAtBestLevel(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Buy, 99, 100)))
	assert.Empty(t, book.Add(o(2, common.Buy, 99, 90)))
	assert.Empty(t, book.Add(o(3, common.Buy, 98, 50)))
	assert.Empty(t, book.Add(o(4, common.Sell, 100, 10)))

	bidPrice, bidQty, askPrice, askQty := book.TopOfBook()
	assert.Equal(t, [4]int64{99, 190, 100, 10}, [4]int64{bidPrice, bidQty, askPrice, askQty})
}

func TestDepth_BestFirstAndCapped(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Buy, 99, 10)))
	assert.Empty(t, book.Add(o(2, common.Buy, 98, 20)))
	assert.Empty(t, book.Add(o(3, common.Buy, 97, 30)))
	assert.Empty(t, book.Add(o(4, common.Sell, 100, 5)))
	assert.Empty(t, book.Add(o(5, common.Sell, 101, 15)))

	bids, asks := book.Depth(2)
	assert.Equal(t, []Level{{Price: 99, Qty: 10}, {Price: 98, Qty: 20}}, bids)
	assert.Equal(t, []Level{{Price: 100, Qty: 5}, {Price: 101, Qty: 15}}, asks)

	bids, asks = book.Depth(10)
	assert.Len(t, bids, 3)
	assert.Len(t, asks, 2)
}

func TestRestingSides_AscendingPriceFIFOWithin(t *testing.T) {
	book := New()

	assert.Empty(t, book.Add(o(1, common.Buy, 99, 10)))
	assert.Empty(t, book.Add(o(2, common.Buy, 98, 20)))
	assert.Empty(t, book.Add(o(3, common.Buy, 99, 5)))

	bids := book.RestingBids()
	require.Len(t, bids, 3)
	// Ascending price; FIFO (ascending seq) within the 99 level.
	assert.Equal(t, uint64(2), bids[0].Seq)
	assert.Equal(t, uint64(1), bids[1].Seq)
	assert.Equal(t, uint64(3), bids[2].Seq)
}
