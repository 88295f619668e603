package book

import (
	"fmt"
	"log/slog"

	"book_replay/internal/arena"
	"book_replay/internal/domain"
	"book_replay/internal/event"
	"book_replay/internal/infra"
)

// PublishFunc receives a copy of every freshly extracted snapshot together
// with the feed line that triggered it.
type PublishFunc func(line uint64, m domain.Market)

// Manager drives one Book per instrument from lifecycle notifications and
// throttles snapshot extraction.
type Manager struct {
	instruments *arena.Arena[domain.InstrumentID, Instrument]

	depth     int
	interval  int
	tolerance int

	publish PublishFunc
	logger  *slog.Logger
	metrics *infra.Metrics
}

// NewManager creates a manager. publish may be nil.
func NewManager(depth, interval, tolerance int, publish PublishFunc, logger *slog.Logger, metrics *infra.Metrics) *Manager {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	if metrics == nil {
		metrics = &infra.Metrics{}
	}

	m := &Manager{
		depth:     depth,
		interval:  interval,
		tolerance: tolerance,
		publish:   publish,
		logger:    logger,
		metrics:   metrics,
	}
	m.instruments = arena.New(func(iid domain.InstrumentID) Instrument {
		return newInstrument(iid, depth, logger)
	})
	return m
}

// Handle implements event.Handler.
func (m *Manager) Handle(n event.Notification) {
	switch e := n.(type) {
	case *event.Add:
		m.onAdd(e)
	case *event.Cancel:
		m.onCancel(e)
	case *event.Amend:
		m.onAmend(e)
	case *event.Execute:
		m.onExecute(e)
	}
}

func (m *Manager) onAdd(e *event.Add) {
	o := e.Order
	if o.Qty <= 0 || o.Qty < o.BookQty || o.Qty < o.CanQty {
		panic(fmt.Sprintf("LOGIC [add_invariant] line %d: %s book=%d", e.Line, o.String(), o.BookQty))
	}

	m.logger.Debug("New", slog.Uint64("line", e.Line), slog.String("order", o.String()))

	inst, ok := m.instruments.Retrieve(o.InstrumentID)
	if !ok {
		m.logicError(e.Line, "unknown_add", o.String())
		return
	}

	times := inst.Book.Add(o.Side, o.Qty-o.CanQty, o.Price)
	if o.CanQty == 0 {
		m.update(e.Line, times, inst)
	}
}

func (m *Manager) onCancel(e *event.Cancel) {
	o := e.Order
	m.logger.Debug("Can", slog.Uint64("line", e.Line), slog.String("order", o.String()), slog.Int64("qty", e.Qty))

	inst, ok := m.instruments.Find(o.InstrumentID)
	if !ok {
		m.logicError(e.Line, "unknown_can", o.String())
		return
	}

	times := inst.Book.Cancel(o.Side, e.Qty, o.Price)
	if o.CanQty == o.BookQty {
		m.update(e.Line, times, inst)
	}
}

func (m *Manager) onAmend(e *event.Amend) {
	o := e.Order
	m.logger.Debug("Amd", slog.Uint64("line", e.Line), slog.String("order", o.String()),
		slog.Int64("old", e.OldBookQty), slog.Int64("new", o.BookQty))

	inst, ok := m.instruments.Find(o.InstrumentID)
	if !ok {
		m.logicError(e.Line, "unknown_amd", o.String())
		return
	}

	times := inst.Book.Amend(o.Side, e.OldBookQty-o.BookQty, o.Price)
	m.update(e.Line, times, inst)
}

func (m *Manager) onExecute(e *event.Execute) {
	t := e.Trade

	inst, ok := m.instruments.Find(t.InstrumentID)
	if !ok {
		m.logicError(e.Line, "unknown_exe", t.String())
		return
	}

	inst.Book.Execute(t.Qty, t.Price)
	m.logger.Info("Exe", slog.Uint64("line", e.Line), slog.String("trade", t.String()))
}

func (m *Manager) update(line uint64, times int, inst *Instrument) {
	if times < m.interval {
		return
	}

	if !inst.Book.Verify(m.depth, m.tolerance) {
		m.metrics.RecordVerifyFailure()
		return
	}

	if !inst.Book.TryExtract(inst.Market) {
		m.metrics.RecordCrossed()
		return
	}

	m.metrics.RecordSnapshot()
	m.logger.Info("Market", slog.Uint64("line", line), slog.String("snapshot", inst.Market.String()))
	if m.publish != nil {
		m.publish(line, inst.Market.Clone())
	}
}

func (m *Manager) logicError(line uint64, op, subject string) {
	m.metrics.RecordLogicError()
	err := &domain.LogicError{Op: op, Err: domain.ErrUnknownInstrument}
	m.logger.Error("LOGIC_ERR", slog.Uint64("line", line), slog.Any("error", err), slog.String("subject", subject))
}

// Market returns a copy of the last extracted snapshot for an instrument.
func (m *Manager) Market(iid domain.InstrumentID) (domain.Market, bool) {
	inst, ok := m.instruments.Find(iid)
	if !ok {
		return domain.Market{}, false
	}
	return inst.Market.Clone(), true
}

// Book returns the live book of an instrument. Only the owning goroutine may use it.
func (m *Manager) Book(iid domain.InstrumentID) (*Book, bool) {
	inst, ok := m.instruments.Find(iid)
	if !ok {
		return nil, false
	}
	return inst.Book, true
}

// Markets returns copies of the last extracted snapshot of every instrument.
func (m *Manager) Markets() map[domain.InstrumentID]domain.Market {
	out := make(map[domain.InstrumentID]domain.Market, m.instruments.Len())
	m.instruments.Range(func(iid domain.InstrumentID, inst *Instrument) bool {
		out[iid] = inst.Market.Clone()
		return true
	})
	return out
}
