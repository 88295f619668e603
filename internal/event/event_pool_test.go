package event

import (
	"testing"

	"book_replay/internal/domain"
)

func TestRecordPool(t *testing.T) {
	// Acquire and use
	rec := AcquireRecord()
	rec.Line = 42
	rec.Action = domain.ActionNew
	rec.Comment = "hello"

	if rec.Line != 42 {
		t.Error("Line not set")
	}

	// Release
	ReleaseRecord(rec)

	// Acquire again - should be reset
	rec2 := AcquireRecord()
	if rec2.Line != 0 || rec2.Action != 0 || rec2.Comment != "" {
		t.Errorf("Record should be reset after release, got %+v", *rec2)
	}
	ReleaseRecord(rec2)

	// Releasing nil is a no-op.
	ReleaseRecord(nil)
}

func TestNotificationTypes(t *testing.T) {
	o := &domain.Order{ID: 1}
	tr := &domain.Trade{ID: 1}

	tests := []struct {
		n    Notification
		want Type
	}{
		{&Add{Base: Base{Line: 1}, Order: o}, EvAdd},
		{&Cancel{Base: Base{Line: 2}, Order: o, Qty: 5}, EvCancel},
		{&Amend{Base: Base{Line: 3}, Order: o, OldBookQty: 9}, EvAmend},
		{&Execute{Base: Base{Line: 4}, Trade: tr}, EvExecute},
	}

	for i, tt := range tests {
		if tt.n.GetType() != tt.want {
			t.Errorf("notification %d: type %v, want %v", i, tt.n.GetType(), tt.want)
		}
		if tt.n.GetLine() != uint64(i+1) {
			t.Errorf("notification %d: line %d", i, tt.n.GetLine())
		}
	}
}

func TestHandlerFunc(t *testing.T) {
	var got Type
	var h Handler = HandlerFunc(func(n Notification) { got = n.GetType() })

	h.Handle(&Execute{})
	if got != EvExecute {
		t.Errorf("HandlerFunc did not forward, got %v", got)
	}
}

// BenchmarkWithoutPool measures allocation without pool
func BenchmarkWithoutPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rec := &Record{Line: uint64(i), Action: domain.ActionNew}
		_ = rec
	}
}

// BenchmarkWithPool measures allocation with pool
func BenchmarkWithPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rec := AcquireRecord()
		rec.Line = uint64(i)
		rec.Action = domain.ActionNew
		ReleaseRecord(rec)
	}
}
