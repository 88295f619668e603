package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"book_replay/internal/domain"
	"book_replay/internal/event"
	"book_replay/internal/infra"
)

// Applier consumes parsed feed records. *feed.Processor implements it.
type Applier interface {
	Apply(rec *event.Record) error
}

// MarketSource exposes the last extracted snapshots for post-mortem dumps.
// *book.Manager implements it.
type MarketSource interface {
	Markets() map[domain.InstrumentID]domain.Market
}

// Sequencer is the core single-threaded event processor.
type Sequencer struct {
	inbox    chan *event.Record
	proc     Applier
	markets  MarketSource
	lastLine uint64

	metrics *infra.Metrics
	logger  *slog.Logger

	// DumpPath is where the state goes when the hotpath panics.
	DumpPath string
}

// NewSequencer creates a new sequencer instance.
func NewSequencer(inboxSize int, proc Applier, markets MarketSource, metrics *infra.Metrics, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &Sequencer{
		inbox:    make(chan *event.Record, inboxSize),
		proc:     proc,
		markets:  markets,
		metrics:  metrics,
		logger:   logger,
		DumpPath: "panic_dump.json",
	}
}

// Inbox returns the record channel. The feeder sends records here and closes
// it at end of feed.
func (s *Sequencer) Inbox() chan<- *event.Record {
	return s.inbox
}

// Run starts the main event loop. This MUST be run in a single goroutine.
// It returns when the inbox is closed and drained or when ctx is done.
func (s *Sequencer) Run(ctx context.Context) {
	s.logger.Info("Sequencer started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r), slog.Uint64("line", s.lastLine))
			s.DumpState(s.DumpPath)
			// halt after dump
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sequencer stopping...", slog.Uint64("line", s.lastLine))
			return
		case rec, ok := <-s.inbox:
			if !ok {
				s.logger.Info("Sequencer drained", slog.Uint64("line", s.lastLine))
				return
			}
			s.Process(rec)
		}
	}
}

// Process applies one record synchronously and returns it to the pool.
func (s *Sequencer) Process(rec *event.Record) {
	defer event.ReleaseRecord(rec)

	// Line order check: replays never go backwards
	if rec.Line <= s.lastLine {
		s.logger.Warn("Out-of-order record ignored",
			slog.Uint64("line", rec.Line), slog.Uint64("last", s.lastLine))
		return
	}

	start := time.Now()
	err := s.proc.Apply(rec)
	s.lastLine = rec.Line
	s.metrics.RecordProcessed(rec.Line, time.Since(start).Nanoseconds())

	if err != nil {
		s.report(err)
	}
}

func (s *Sequencer) report(err error) {
	var fe *domain.FieldError
	var se *domain.StateError

	switch {
	case errors.As(err, &fe):
		s.metrics.RecordParseError()
		s.logger.Error("PARSING_ERR", slog.Uint64("line", fe.Line), slog.String("field", fe.Field), slog.Any("error", err))
	case errors.As(err, &se):
		s.metrics.RecordStateError()
		s.logger.Error("STATE_ERR", slog.Uint64("line", se.Line), slog.Uint64("order", uint64(se.OrderID)),
			slog.Bool("poisoned", domain.IsPoisoning(err)), slog.Any("error", err))
	default:
		s.metrics.RecordLogicError()
		s.logger.Error("LOGIC_ERR", slog.Any("error", err))
	}
}

// LastLine returns the line number of the last applied record.
func (s *Sequencer) LastLine() uint64 {
	return s.lastLine
}

// Stats returns a snapshot of the replay counters.
func (s *Sequencer) Stats() infra.MetricsSnapshot {
	return s.metrics.Snapshot()
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	s.logger.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		LastLine uint64                                `json:"last_line"`
		Metrics  infra.MetricsSnapshot                 `json:"metrics"`
		Markets  map[domain.InstrumentID]domain.Market `json:"markets"`
	}{
		LastLine: s.lastLine,
		Metrics:  s.metrics.Snapshot(),
	}
	if s.markets != nil {
		data.Markets = s.markets.Markets()
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		s.logger.Error("Failed to write state dump", slog.Any("error", err))
	}
}
