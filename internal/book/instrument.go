package book

import (
	"log/slog"

	"book_replay/internal/domain"
)

// Instrument owns the book and the published snapshot of one symbol.
type Instrument struct {
	ID     domain.InstrumentID
	Book   *Book
	Market *domain.Market
}

func newInstrument(iid domain.InstrumentID, depth int, logger *slog.Logger) Instrument {
	return Instrument{
		ID:     iid,
		Book:   NewBook(iid, logger),
		Market: domain.NewMarket(iid, depth),
	}
}
