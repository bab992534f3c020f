package common

import "fmt"

// Trade is the externally visible record derived from a Fill. TradeID is
// a monotonic counter of its own, independent of order seq numbers.
type Trade struct {
	TradeID   uint64
	Symbol    string
	Price     int64
	Qty       int64
	MakerSeq  uint64
	TakerSeq  uint64
	TakerSide Side
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"trade %d %s %d@%d (maker %d, taker %d, taker side %s)",
		t.TradeID,
		t.Symbol,
		t.Qty,
		t.Price,
		t.MakerSeq,
		t.TakerSeq,
		t.TakerSide,
	)
}
