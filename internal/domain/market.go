package domain

import (
	"fmt"
	"strings"

	"book_replay/pkg/quant"
)

// Level is one row of a market snapshot: the n-th best bid and ask.
type Level struct {
	BidQty   int64             `json:"bid_qty"`
	BidPrice quant.PriceMicros `json:"bid_price"`
	AskQty   int64             `json:"ask_qty"`
	AskPrice quant.PriceMicros `json:"ask_price"`
}

// Market is a bounded-depth view of one instrument's book, best level first.
// It is stale until the book refreshes it; published copies never alias book state.
type Market struct {
	InstrumentID InstrumentID      `json:"instrument_id"`
	LastQty      int64             `json:"last_qty"`
	LastPrice    quant.PriceMicros `json:"last_price"`
	Levels       []Level           `json:"levels"`
}

// NewMarket creates an empty snapshot with a fixed number of levels.
func NewMarket(iid InstrumentID, depth int) *Market {
	return &Market{
		InstrumentID: iid,
		Levels:       make([]Level, depth),
	}
}

// Depth returns the fixed number of levels.
func (m *Market) Depth() int {
	return len(m.Levels)
}

// FillTrade records the last trade.
func (m *Market) FillTrade(qty int64, price quant.PriceMicros) {
	m.LastQty = qty
	m.LastPrice = price
}

// FillLevel overwrites level i. It panics when i is out of range.
func (m *Market) FillLevel(i int, lev Level) {
	m.Levels[i] = lev
}

// Level returns level i, or an empty level when i is out of range.
func (m *Market) Level(i int) Level {
	if i < 0 || i >= len(m.Levels) {
		return Level{}
	}
	return m.Levels[i]
}

func (m *Market) BidQty(i int) int64               { return m.Level(i).BidQty }
func (m *Market) BidPrice(i int) quant.PriceMicros { return m.Level(i).BidPrice }
func (m *Market) AskQty(i int) int64               { return m.Level(i).AskQty }
func (m *Market) AskPrice(i int) quant.PriceMicros { return m.Level(i).AskPrice }

// Clone returns a deep copy suitable for handing off to another goroutine.
func (m *Market) Clone() Market {
	c := *m
	c.Levels = make([]Level, len(m.Levels))
	copy(c.Levels, m.Levels)
	return c
}

// String renders the snapshot as three lines. Bids run worst to best so that the
// best bid and best ask meet at the separator.
func (m *Market) String() string {
	var sb strings.Builder
	depth := len(m.Levels)

	fmt.Fprintf(&sb, "product: %d last %d@%s\nPRC: ", m.InstrumentID, m.LastQty, m.LastPrice)
	for i := depth; i > 0; i-- {
		fmt.Fprintf(&sb, "%8s", m.Levels[i-1].BidPrice)
	}
	sb.WriteString(" | ")
	for i := 0; i < depth; i++ {
		fmt.Fprintf(&sb, "%8s", m.Levels[i].AskPrice)
	}

	sb.WriteString("\nQTY: ")
	for i := depth; i > 0; i-- {
		fmt.Fprintf(&sb, "%8d", m.Levels[i-1].BidQty)
	}
	sb.WriteString(" | ")
	for i := 0; i < depth; i++ {
		fmt.Fprintf(&sb, "%8d", m.Levels[i].AskQty)
	}

	return sb.String()
}
