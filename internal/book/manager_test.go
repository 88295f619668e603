package book

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"book_replay/internal/domain"
	"book_replay/internal/event"
	"book_replay/internal/feed"
	"book_replay/internal/infra"
)

type published struct {
	line   uint64
	market domain.Market
}

type harness struct {
	mgr     *Manager
	proc    *feed.Processor
	metrics *infra.Metrics
	logs    *bytes.Buffer
	out     []published
	line    uint64
}

func newHarness(t *testing.T, depth, interval, tolerance int) *harness {
	t.Helper()
	h := &harness{metrics: &infra.Metrics{}, logs: &bytes.Buffer{}}
	logger := slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h.mgr = NewManager(depth, interval, tolerance, func(line uint64, m domain.Market) {
		h.out = append(h.out, published{line: line, market: m})
	}, logger, h.metrics)
	h.proc = feed.NewProcessor(h.mgr, false, logger)
	return h
}

func (h *harness) feed(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		h.line++
		rec, err := feed.ParseLine(line, h.line)
		if err != nil {
			t.Fatalf("ParseLine(%q) failed: %v", line, err)
		}
		if err := h.proc.Apply(rec); err != nil {
			t.Fatalf("Apply(%q) failed: %v", line, err)
		}
	}
}

func TestManager_NewOrderPublishes(t *testing.T) {
	h := newHarness(t, 5, 1, 0)
	h.feed(t, "N,7,1,B,100,10.00")

	if len(h.out) != 1 {
		t.Fatalf("Expected 1 snapshot, got %d", len(h.out))
	}
	m := h.out[0].market
	if m.BidQty(0) != 100 || m.BidPrice(0) != px(10) {
		t.Errorf("Unexpected best bid: %s", m.String())
	}
	if m.Depth() != 5 {
		t.Errorf("Expected depth 5, got %d", m.Depth())
	}
	if h.metrics.Snapshot().SnapshotsPublished != 1 {
		t.Error("Expected snapshot to be counted")
	}
}

func TestManager_PartialCancelDefersUpdate(t *testing.T) {
	h := newHarness(t, 5, 1, 0)
	h.feed(t, "N,7,1,B,100,10.00", "R,1,B,40,10.00")

	b, ok := h.mgr.Book(7)
	if !ok {
		t.Fatal("Expected instrument 7")
	}
	if qty, _ := b.NetQty(domain.SideBuy, px(10)); qty != 60 {
		t.Errorf("Expected net 60, got %d", qty)
	}
	if len(h.out) != 1 {
		t.Errorf("Partial cancel must not trigger an update, got %d snapshots", len(h.out))
	}
}

func TestManager_FullCancelUpdates(t *testing.T) {
	h := newHarness(t, 5, 1, 0)
	h.feed(t, "N,7,1,B,100,10.00", "N,7,2,B,20,9.00", "R,1,B,100,10.00")

	if len(h.out) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(h.out))
	}
	m := h.out[2].market
	if m.BidPrice(0) != px(9) || m.BidQty(0) != 20 {
		t.Errorf("Expected 20@9 at the top, got %s", m.String())
	}
}

func TestManager_CancelBeforeNew(t *testing.T) {
	h := newHarness(t, 5, 1, 0)
	h.feed(t, "R,2,B,30,9.50", "N,7,2,B,30,9.50")

	b, ok := h.mgr.Book(7)
	if !ok {
		t.Fatal("Add must create the instrument")
	}
	qty, ok := b.NetQty(domain.SideBuy, 9500000)
	if !ok || qty != 0 {
		t.Errorf("Expected a zero level at 9.50, got qty=%d present=%v", qty, ok)
	}
	if len(h.out) != 0 {
		t.Errorf("Add with a pending cancel must not trigger an update, got %d", len(h.out))
	}

	// the zero level ranks first, so the next update is deferred by verify
	h.feed(t, "N,7,3,B,10,9.00")
	if len(h.out) != 0 {
		t.Errorf("Expected no snapshot while a zero level is in depth, got %d", len(h.out))
	}
	if got := h.metrics.Snapshot().VerifyFailures; got != 1 {
		t.Errorf("Expected 1 verify failure, got %d", got)
	}
}

func TestManager_AmendAlwaysUpdates(t *testing.T) {
	h := newHarness(t, 5, 1, 0)
	h.feed(t, "N,7,1,B,100,10.00", "M,1,B,60,10.00", "M,1,B,200,10.00")

	if len(h.out) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(h.out))
	}
	if q := h.out[2].market.BidQty(0); q != 60 {
		t.Errorf("Expected 60 after the no-op amend, got %d", q)
	}
}

func TestManager_ExecuteKeepsLevels(t *testing.T) {
	h := newHarness(t, 5, 1, 0)
	h.feed(t, "N,7,1,B,100,10.00", "X,7,50,10.00", "N,7,2,S,10,11.00")

	m := h.out[len(h.out)-1].market
	if m.LastQty != 50 || m.LastPrice != px(10) {
		t.Errorf("Expected last 50@10, got %d@%s", m.LastQty, m.LastPrice)
	}
	if m.BidQty(0) != 100 {
		t.Errorf("Execute must not touch levels, got %s", m.String())
	}
	if !strings.Contains(h.logs.String(), "TRD(1)") {
		t.Error("Expected execute to be logged")
	}
}

func TestManager_UnknownInstrument(t *testing.T) {
	h := newHarness(t, 5, 1, 0)
	h.feed(t, "X,9,50,10.00")

	if _, ok := h.mgr.Market(9); ok {
		t.Error("Execute must not create an instrument")
	}
	if h.metrics.Snapshot().LogicErrors != 1 {
		t.Error("Expected a logic error")
	}
	if !strings.Contains(h.logs.String(), "unknown_exe") {
		t.Error("Expected unknown_exe in log")
	}

	h.mgr.Handle(&event.Cancel{Order: &domain.Order{ID: 1, InstrumentID: 9, Qty: 10, BookQty: 10}, Qty: 5})
	h.mgr.Handle(&event.Amend{Order: &domain.Order{ID: 1, InstrumentID: 9, Qty: 10, BookQty: 5}, OldBookQty: 10})
	if got := h.metrics.Snapshot().LogicErrors; got != 3 {
		t.Errorf("Expected 3 logic errors, got %d", got)
	}
}

func TestManager_Interval(t *testing.T) {
	h := newHarness(t, 5, 3, 0)
	h.feed(t, "N,7,1,B,100,10", "N,7,2,B,100,9")
	if len(h.out) != 0 {
		t.Fatalf("Expected no snapshot before interval, got %d", len(h.out))
	}
	h.feed(t, "N,7,3,S,100,11")
	if len(h.out) != 1 {
		t.Fatalf("Expected snapshot at interval, got %d", len(h.out))
	}
}

func TestManager_CrossedIsDeferred(t *testing.T) {
	h := newHarness(t, 5, 1, 0)
	h.feed(t, "N,7,1,B,100,10", "N,7,2,S,50,10")

	if len(h.out) != 1 {
		t.Fatalf("Crossed book must not publish, got %d snapshots", len(h.out))
	}
	if h.metrics.Snapshot().CrossedDeferrals != 1 {
		t.Error("Expected a crossed deferral")
	}

	h.feed(t, "N,7,3,S,20,12", "R,2,S,50,10")
	last := h.out[len(h.out)-1].market
	if last.AskPrice(0) != px(12) {
		t.Errorf("Expected uncrossed book after cancel, got %s", last.String())
	}
}

func TestManager_VerifyFailure(t *testing.T) {
	h := newHarness(t, 5, 1, 0)
	h.feed(t, "N,7,1,B,100,10")

	// a cancel on a price with no level leaves a placeholder in the top levels
	h.mgr.Handle(&event.Cancel{Order: &domain.Order{ID: 2, InstrumentID: 7, Side: domain.SideBuy, Price: px(11), Qty: 30, BookQty: 30, CanQty: 30}, Qty: 30})

	if h.metrics.Snapshot().VerifyFailures != 1 {
		t.Errorf("Expected a verify failure, got %+v", h.metrics.Snapshot())
	}
	if len(h.out) != 1 {
		t.Errorf("Verify failure must skip extraction, got %d snapshots", len(h.out))
	}
}

func TestManager_AddInvariantPanics(t *testing.T) {
	h := newHarness(t, 5, 1, 0)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic on add invariant violation")
		}
	}()
	h.mgr.Handle(&event.Add{Order: &domain.Order{ID: 1, InstrumentID: 7, Qty: 10, BookQty: 20}})
}

func TestManager_Markets(t *testing.T) {
	h := newHarness(t, 2, 1, 0)
	h.feed(t, "N,7,1,B,100,10", "N,8,2,S,5,3")

	markets := h.mgr.Markets()
	if len(markets) != 2 {
		t.Fatalf("Expected 2 markets, got %d", len(markets))
	}
	m := markets[8]
	if m.AskQty(0) != 5 {
		t.Errorf("Unexpected market 8: %s", m.String())
	}
}
