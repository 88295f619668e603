package domain

import (
	"fmt"

	"book_replay/pkg/quant"
)

// OrderID identifies an order in the feed.
type OrderID uint32

// TradeID identifies an execution assigned by the processor.
type TradeID uint32

// InstrumentID identifies a tradable symbol.
type InstrumentID uint32

// Side of an order. SideUnknown is used for aggregate trade prints.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
	SideUnknown
)

// ParseSide maps the feed side code ('B' or 'S').
func ParseSide(code byte) (Side, bool) {
	switch code {
	case 'B':
		return SideBuy, true
	case 'S':
		return SideSell, true
	default:
		return SideUnknown, false
	}
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "B"
	case SideSell:
		return "S"
	default:
		return "U"
	}
}

// Action is the feed action code.
type Action byte

const (
	ActionNew     Action = 'N'
	ActionCancel  Action = 'R'
	ActionAmend   Action = 'M'
	ActionExecute Action = 'X'
	ActionComment Action = '#'
)

// IsValid reports whether a is one of the order actions or a comment.
func (a Action) IsValid() bool {
	switch a {
	case ActionNew, ActionCancel, ActionAmend, ActionExecute, ActionComment:
		return true
	}
	return false
}

// Order is one resting or pending order as reconstructed from the feed.
//
// Qty is assigned exactly once, by the first accepted new message.
// Qty < 0 marks the record poisoned; Qty == 0 means only an early cancel or
// amend has been seen so far.
type Order struct {
	ID           OrderID
	InstrumentID InstrumentID
	Side         Side
	Price        quant.PriceMicros

	Qty     int64 // total quantity from the new message
	BookQty int64 // currently booked quantity, never increases once set
	CanQty  int64 // pending cancel quantity
}

// NewOrder is the arena constructor for orders.
func NewOrder(id OrderID) Order {
	return Order{ID: id, Side: SideUnknown}
}

// Poisoned reports whether the order was marked corrupted.
func (o *Order) Poisoned() bool {
	return o.Qty < 0
}

// Poison marks the order permanently corrupted.
func (o *Order) Poison() {
	o.Qty = -1
}

// Confirmed reports whether the new message for this order has been seen.
func (o *Order) Confirmed() bool {
	return o.Qty > 0
}

// Untouched reports whether no message has recorded quantities for this order yet.
func (o *Order) Untouched() bool {
	return o.BookQty == 0 && o.CanQty == 0
}

func (o *Order) String() string {
	return fmt.Sprintf("ODR(%d) [%s %d %d(%d) @ %s]", o.ID, o.Side, o.InstrumentID, o.Qty, -o.CanQty, o.Price)
}

// Trade is one execution print. It is not attributed to a resting order.
type Trade struct {
	ID           TradeID
	InstrumentID InstrumentID
	Side         Side
	Qty          int64
	Price        quant.PriceMicros
}

// NewTrade is the arena constructor for trades.
func NewTrade(id TradeID) Trade {
	return Trade{ID: id, Side: SideUnknown}
}

func (t *Trade) String() string {
	return fmt.Sprintf("TRD(%d) [%s %d %d @ %s]", t.ID, t.Side, t.InstrumentID, t.Qty, t.Price)
}
