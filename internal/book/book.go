package book

import (
	"log/slog"

	"book_replay/internal/domain"
	"book_replay/pkg/quant"

	"github.com/google/btree"
)

const treeDegree = 16

// level is the signed net quantity resting at one price. A level with qty <= 0
// is a placeholder for a reduction that has not met its add yet and is never
// liquidity; ranking code filters on qty, never on presence.
type level struct {
	price quant.PriceMicros
	qty   int64
}

// Book aggregates net quantity per price for one instrument. Bids rank by
// descending price, asks by ascending price, so the tree minimum is the best level.
type Book struct {
	iid  domain.InstrumentID
	bids *btree.BTreeG[level]
	asks *btree.BTreeG[level]

	lastQty   int64
	lastPrice quant.PriceMicros

	times int // mutations since the last successful extraction

	logger *slog.Logger
}

// NewBook creates an empty book.
func NewBook(iid domain.InstrumentID, logger *slog.Logger) *Book {
	return &Book{
		iid:    iid,
		bids:   btree.NewG(treeDegree, func(a, b level) bool { return a.price > b.price }),
		asks:   btree.NewG(treeDegree, func(a, b level) bool { return a.price < b.price }),
		logger: logger,
	}
}

func (b *Book) side(s domain.Side) *btree.BTreeG[level] {
	switch s {
	case domain.SideBuy:
		return b.bids
	case domain.SideSell:
		return b.asks
	default:
		return nil
	}
}

// Add adds delta to the level at price, creating it when absent. The level
// stays even when its net is zero; only Cancel and Amend remove levels.
func (b *Book) Add(s domain.Side, delta int64, price quant.PriceMicros) int {
	b.times++

	if tree := b.side(s); tree != nil {
		lev, _ := tree.Get(level{price: price})
		tree.ReplaceOrInsert(level{price: price, qty: lev.qty + delta})
	}
	return b.times
}

// Cancel subtracts qty from the level at price. An absent level becomes a
// placeholder holding -qty.
func (b *Book) Cancel(s domain.Side, qty int64, price quant.PriceMicros) int {
	b.times++

	if tree := b.side(s); tree != nil {
		lev, ok := tree.Get(level{price: price})
		if !ok {
			tree.ReplaceOrInsert(level{price: price, qty: -qty})
		} else {
			apply(tree, price, lev.qty-qty)
		}
	}
	return b.times
}

// Amend subtracts delta from an existing level. Unlike Cancel it never creates
// a placeholder: an amend on an absent level is dropped.
func (b *Book) Amend(s domain.Side, delta int64, price quant.PriceMicros) int {
	b.times++

	if tree := b.side(s); tree != nil {
		if lev, ok := tree.Get(level{price: price}); ok {
			apply(tree, price, lev.qty-delta)
		}
	}
	return b.times
}

// Execute records the last trade. No level is touched.
func (b *Book) Execute(qty int64, price quant.PriceMicros) int {
	b.times++

	b.lastQty = qty
	b.lastPrice = price
	return b.times
}

// Times returns the mutation counter.
func (b *Book) Times() int {
	return b.times
}

// Verify is a throttled sanity check. While the counter is at or below
// tolerance it always succeeds. Otherwise the best depth levels of each side
// must all hold positive quantity; on failure the counter is reset.
func (b *Book) Verify(depth, tolerance int) bool {
	if b.times <= tolerance {
		return true
	}

	sides := [...]struct {
		name string
		tree *btree.BTreeG[level]
	}{{"bid", b.bids}, {"ask", b.asks}}

	for _, sd := range sides {
		bad, found := firstNonPositive(sd.tree, depth)
		if found {
			b.logger.Warn("Incomplete level",
				slog.Uint64("instrument", uint64(b.iid)),
				slog.String("side", sd.name),
				slog.String("price", bad.price.String()),
				slog.Int64("qty", bad.qty))
			b.times = 0
			return false
		}
	}
	return true
}

// TryExtract fills m from the book. A crossed book leaves both m and the
// counter untouched and returns false.
func (b *Book) TryExtract(m *domain.Market) bool {
	bestBid, hasBid := best(b.bids)
	bestAsk, hasAsk := best(b.asks)
	if hasBid && hasAsk && bestBid.price >= bestAsk.price {
		b.logger.Debug("Book is crossing",
			slog.Uint64("instrument", uint64(b.iid)),
			slog.String("bid", bestBid.price.String()),
			slog.String("ask", bestAsk.price.String()))
		return false
	}

	depth := m.Depth()
	levels := make([]domain.Level, depth)
	i := 0
	b.bids.Ascend(func(lev level) bool {
		if i >= depth {
			return false
		}
		if lev.qty > 0 {
			levels[i].BidQty = lev.qty
			levels[i].BidPrice = lev.price
			i++
		}
		return true
	})
	i = 0
	b.asks.Ascend(func(lev level) bool {
		if i >= depth {
			return false
		}
		if lev.qty > 0 {
			levels[i].AskQty = lev.qty
			levels[i].AskPrice = lev.price
			i++
		}
		return true
	})

	m.FillTrade(b.lastQty, b.lastPrice)
	for i, lev := range levels {
		m.FillLevel(i, lev)
	}

	b.times = 0
	return true
}

// Crossed reports whether the best positive bid is at or above the best positive ask.
func (b *Book) Crossed() bool {
	bid, okBid := best(b.bids)
	ask, okAsk := best(b.asks)
	return okBid && okAsk && bid.price >= ask.price
}

// NetQty returns the signed net quantity at price, zero when no level exists.
func (b *Book) NetQty(s domain.Side, price quant.PriceMicros) (int64, bool) {
	tree := b.side(s)
	if tree == nil {
		return 0, false
	}
	lev, ok := tree.Get(level{price: price})
	return lev.qty, ok
}

// Levels returns the number of price levels on each side, placeholders included.
func (b *Book) Levels() (bids, asks int) {
	return b.bids.Len(), b.asks.Len()
}

// apply stores qty at price, removing the level when it lands exactly on zero.
func apply(tree *btree.BTreeG[level], price quant.PriceMicros, qty int64) {
	if qty == 0 {
		tree.Delete(level{price: price})
		return
	}
	tree.ReplaceOrInsert(level{price: price, qty: qty})
}

// best returns the best level holding positive quantity.
func best(tree *btree.BTreeG[level]) (level, bool) {
	var found level
	ok := false
	tree.Ascend(func(lev level) bool {
		if lev.qty > 0 {
			found, ok = lev, true
			return false
		}
		return true
	})
	return found, ok
}

// firstNonPositive scans the first depth levels in rank order.
func firstNonPositive(tree *btree.BTreeG[level], depth int) (level, bool) {
	var found level
	ok := false
	n := 0
	tree.Ascend(func(lev level) bool {
		if n >= depth {
			return false
		}
		n++
		if lev.qty <= 0 {
			found, ok = lev, true
			return false
		}
		return true
	})
	return found, ok
}
