package feed

import (
	"log/slog"

	"book_replay/internal/arena"
	"book_replay/internal/domain"
	"book_replay/internal/event"
	"book_replay/internal/infra"
	"book_replay/pkg/quant"
)

// PriceTolerance is the largest price difference still treated as the same price.
const PriceTolerance quant.PriceMicros = 1

// Processor reconciles the lifecycle of every order seen on the feed and emits
// normalized notifications to a single Handler.
//
// It is not safe for concurrent use. Notifications are delivered synchronously
// and reuse the same structs, so a Handler must not retain them.
type Processor struct {
	orders *arena.Arena[domain.OrderID, domain.Order]
	trades *arena.Arena[domain.TradeID, domain.Trade]

	nextTradeID domain.TradeID
	tolerant    bool

	sink   event.Handler
	logger *slog.Logger

	// reused per delivery
	add     event.Add
	cancel  event.Cancel
	amend   event.Amend
	execute event.Execute
}

// NewProcessor creates a processor delivering to sink. In tolerant mode side and
// price reassertions are accepted without checking.
func NewProcessor(sink event.Handler, tolerant bool, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Processor{
		orders:      arena.New(domain.NewOrder),
		trades:      arena.New(domain.NewTrade),
		nextTradeID: 1,
		tolerant:    tolerant,
		sink:        sink,
		logger:      logger,
	}
}

// Apply consumes one record. A non-nil error means the record was dropped; it is
// a *domain.FieldError, a *domain.StateError, or a *domain.LogicError when the
// trade id space runs out, and never leaves the processor in an inconsistent state.
func (p *Processor) Apply(rec *event.Record) error {
	if !rec.Action.IsValid() {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldAction}
	}
	switch rec.Action {
	case domain.ActionNew:
		return p.handleNew(rec)
	case domain.ActionCancel:
		return p.handleCancel(rec)
	case domain.ActionAmend:
		return p.handleAmend(rec)
	case domain.ActionExecute:
		return p.handleExecute(rec)
	}
	return nil
}

// Order returns the current state of an order, if any message for it was seen.
func (p *Processor) Order(id domain.OrderID) (domain.Order, bool) {
	o, ok := p.orders.Find(id)
	if !ok {
		return domain.Order{}, false
	}
	return *o, true
}

// Trade returns an assigned trade.
func (p *Processor) Trade(id domain.TradeID) (domain.Trade, bool) {
	t, ok := p.trades.Find(id)
	if !ok {
		return domain.Trade{}, false
	}
	return *t, true
}

// Stats reports arena occupancy.
func (p *Processor) Stats() (orders, trades int) {
	return p.orders.Len(), p.trades.Len()
}

func (p *Processor) handleNew(rec *event.Record) error {
	if err := validate(rec, true, true); err != nil {
		return err
	}

	o, ok := p.orders.Retrieve(rec.OrderID)
	if !ok {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldOrderID, Err: domain.ErrIDSpaceExhausted}
	}

	switch {
	case o.Qty > 0:
		return p.reject(rec, domain.ErrDuplicated)
	case o.Qty < 0:
		return p.reject(rec, domain.ErrCorrupted)
	}

	if o.CanQty > rec.Qty {
		o.Poison()
		return p.reject(rec, domain.ErrOverCancel)
	}
	if o.BookQty > rec.Qty {
		o.Poison()
		return p.reject(rec, domain.ErrOverAmend)
	}

	o.InstrumentID = rec.InstrumentID
	o.Qty = rec.Qty // the only assignment of Qty
	if o.Untouched() {
		o.Side = rec.Side
		o.Price = rec.Price
		o.BookQty = rec.Qty
	}

	if err := p.checkConsistency(o, rec); err != nil {
		return err
	}

	p.add = event.Add{Base: event.Base{Line: rec.Line}, Order: o}
	p.sink.Handle(&p.add)
	return nil
}

func (p *Processor) handleCancel(rec *event.Record) error {
	if err := validate(rec, false, true); err != nil {
		return err
	}

	o, ok := p.orders.Retrieve(rec.OrderID)
	if !ok {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldOrderID, Err: domain.ErrIDSpaceExhausted}
	}

	switch {
	case o.CanQty > 0:
		return p.reject(rec, domain.ErrDuplicatedCancel)
	case o.Qty < 0:
		return p.reject(rec, domain.ErrCorrupted)
	}

	if !o.Confirmed() {
		if o.Untouched() {
			p.logger.Warn("PARSING_WARN", slog.Uint64("line", rec.Line), slog.String("field", "can_before_add"))
			o.Side = rec.Side
			o.Price = rec.Price
		}
		if err := p.checkConsistency(o, rec); err != nil {
			return err
		}
		o.CanQty = rec.Qty
		return nil
	}

	if err := p.checkConsistency(o, rec); err != nil {
		return err
	}
	o.CanQty = rec.Qty

	p.cancel = event.Cancel{Base: event.Base{Line: rec.Line}, Order: o, Qty: rec.Qty}
	p.sink.Handle(&p.cancel)
	return nil
}

func (p *Processor) handleAmend(rec *event.Record) error {
	if err := validate(rec, false, false); err != nil {
		return err
	}

	o, ok := p.orders.Retrieve(rec.OrderID)
	if !ok {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldOrderID, Err: domain.ErrIDSpaceExhausted}
	}

	if o.Qty < 0 {
		return p.reject(rec, domain.ErrCorrupted)
	}

	if !o.Confirmed() {
		if o.Untouched() {
			p.logger.Warn("PARSING_WARN", slog.Uint64("line", rec.Line), slog.String("field", "amd_before_add"))
			o.Side = rec.Side
			o.Price = rec.Price
		}
		if err := p.checkConsistency(o, rec); err != nil {
			return err
		}
		o.BookQty = amendedQty(o.BookQty, rec.Qty)
		return nil
	}

	if err := p.checkConsistency(o, rec); err != nil {
		return err
	}
	old := o.BookQty
	o.BookQty = amendedQty(o.BookQty, rec.Qty)

	p.amend = event.Amend{Base: event.Base{Line: rec.Line}, Order: o, OldBookQty: old}
	p.sink.Handle(&p.amend)
	return nil
}

func (p *Processor) handleExecute(rec *event.Record) error {
	if rec.InstrumentID == 0 {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldInstrument}
	}
	if rec.Qty <= 0 {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldQty}
	}
	if rec.Price <= 0 {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldPrice}
	}

	t, ok := p.trades.Create(p.nextTradeID)
	if !ok {
		return &domain.LogicError{Op: "trade_id", Err: domain.ErrIDSpaceExhausted}
	}
	p.nextTradeID++

	t.InstrumentID = rec.InstrumentID
	t.Qty = rec.Qty
	t.Price = rec.Price
	t.Side = domain.SideUnknown

	p.execute = event.Execute{Base: event.Base{Line: rec.Line}, Trade: t}
	p.sink.Handle(&p.execute)
	return nil
}

// checkConsistency compares a reasserted side and price with the recorded ones
// and poisons the order on mismatch.
func (p *Processor) checkConsistency(o *domain.Order, rec *event.Record) error {
	if p.tolerant {
		return nil
	}
	if o.Side != rec.Side {
		o.Poison()
		return p.reject(rec, domain.ErrInconsistentSide)
	}
	if o.Price.Diff(rec.Price) > PriceTolerance {
		o.Poison()
		return p.reject(rec, domain.ErrInconsistentPrice)
	}
	return nil
}

func (p *Processor) reject(rec *event.Record, reason error) error {
	return &domain.StateError{Line: rec.Line, OrderID: rec.OrderID, Reason: reason}
}

// validate checks the ranges of an order message. Amend accepts a zero quantity.
func validate(rec *event.Record, withInstrument, positiveQty bool) error {
	if withInstrument && rec.InstrumentID == 0 {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldInstrument}
	}
	if rec.OrderID == 0 {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldOrderID}
	}
	if rec.Side != domain.SideBuy && rec.Side != domain.SideSell {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldSide}
	}
	if rec.Qty < 0 || (positiveQty && rec.Qty == 0) {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldQty}
	}
	if rec.Price <= 0 {
		return &domain.FieldError{Line: rec.Line, Field: domain.FieldPrice}
	}
	return nil
}

// amendedQty never lets an amend raise an established booked quantity.
func amendedQty(bookQty, qty int64) int64 {
	if bookQty > 0 {
		return min(qty, bookQty)
	}
	return qty
}
