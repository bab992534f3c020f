package engine

import (
	"sort"

	"sleipnir/internal/common"
)

// tape is one symbol's bounded record of recent trades, ordered by
// ascending trade id. It is ephemeral: restores start with an empty tape.
type tape struct {
	trades []common.Trade
}

func (t *tape) push(tr common.Trade) {
	t.trades = append(t.trades, tr)
	if len(t.trades) > TradeTapeCapacity {
		// Evict oldest-first. Copying keeps the backing array from
		// pinning evicted entries forever.
		t.trades = append(t.trades[:0:0], t.trades[1:]...)
	}
}

// after returns up to limit trades with id strictly greater than
// afterTradeID, plus the id of the last one returned (afterTradeID when
// none match).
func (t *tape) after(afterTradeID uint64, limit int) ([]common.Trade, uint64) {
	// Trade ids are strictly increasing along the tape.
	start := sort.Search(len(t.trades), func(i int) bool {
		return t.trades[i].TradeID > afterTradeID
	})
	if start == len(t.trades) {
		return nil, afterTradeID
	}

	end := min(start+limit, len(t.trades))
	out := make([]common.Trade, end-start)
	copy(out, t.trades[start:end])
	return out, out[len(out)-1].TradeID
}
