package event

import (
	"book_replay/internal/domain"
	"book_replay/pkg/quant"
)

// Record is one parsed feed line. Fields not carried by the action are zero.
type Record struct {
	Line         uint64
	Action       domain.Action
	InstrumentID domain.InstrumentID
	OrderID      domain.OrderID
	Side         domain.Side
	Qty          int64
	Price        quant.PriceMicros
	Comment      string
}

// Type defines the type of lifecycle notification.
type Type uint16

const (
	EvAdd Type = iota + 1
	EvCancel
	EvAmend
	EvExecute
)

func (t Type) String() string {
	switch t {
	case EvAdd:
		return "add"
	case EvCancel:
		return "cancel"
	case EvAmend:
		return "amend"
	case EvExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Notification is the closed set of lifecycle notifications emitted by the
// processor: *Add, *Cancel, *Amend and *Execute. The referenced records are
// read-only and valid only for the duration of the delivery call.
type Notification interface {
	GetType() Type
	GetLine() uint64
}

// Handler receives notifications synchronously, in feed order.
type Handler interface {
	Handle(n Notification)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(n Notification)

func (f HandlerFunc) Handle(n Notification) { f(n) }

// Base carries the feed line that produced a notification.
type Base struct {
	Line uint64
}

func (b Base) GetLine() uint64 { return b.Line }

// Add announces a newly confirmed order.
type Add struct {
	Base
	Order *domain.Order
}

func (Add) GetType() Type { return EvAdd }

// Cancel announces a cancel against a confirmed order.
type Cancel struct {
	Base
	Order *domain.Order
	Qty   int64
}

func (Cancel) GetType() Type { return EvCancel }

// Amend announces a booked quantity change; Order.BookQty holds the new value.
type Amend struct {
	Base
	Order      *domain.Order
	OldBookQty int64
}

func (Amend) GetType() Type { return EvAmend }

// Execute announces a trade print.
type Execute struct {
	Base
	Trade *domain.Trade
}

func (Execute) GetType() Type { return EvExecute }
