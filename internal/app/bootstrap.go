package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"book_replay/internal/book"
	"book_replay/internal/domain"
	"book_replay/internal/engine"
	"book_replay/internal/event"
	"book_replay/internal/feed"
	"book_replay/internal/infra"
	"book_replay/internal/infra/storage"
)

const snapshotQueueSize = 256

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string
	Config     *infra.Config
	Logger     *slog.Logger
	Metrics    *infra.Metrics
	Storage    *storage.Storage
	RunID      string
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize loads the configuration, installs the logger and opens storage.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping book replay...", slog.String("config", b.ConfigPath))

	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)

	b.Metrics = infra.GlobalMetrics

	// 3. Initialize Storage (DB)
	if cfg.Storage.Enabled {
		store, err := storage.NewStorage(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Storage = store
		b.Logger.Info("✅ Database initialized")
	}

	return nil
}

// Replay runs the feed file through the processor and the book manager until
// end of feed or until ctx is done.
func (b *Bootstrap) Replay(ctx context.Context) error {
	cfg := b.Config
	logger := b.Logger

	if b.Storage != nil {
		id, err := b.Storage.StartRun(cfg.Feed.Path, cfg.Feed.Tolerant, cfg.Book.Depth)
		if err != nil {
			return err
		}
		b.RunID = id
		logger.Info("Run started", slog.String("run", id))
	}
	runID := b.RunID

	// Snapshots are copied out of the hotpath and persisted by a single writer.
	snapshots := make(chan publishedMarket, snapshotQueueSize)
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		b.writeSnapshots(runID, snapshots)
	}()

	mgr := book.NewManager(cfg.Book.Depth, cfg.Book.Interval, cfg.Book.Tolerance,
		func(line uint64, m domain.Market) {
			if b.Storage != nil {
				snapshots <- publishedMarket{line: line, market: m}
			}
		}, logger, b.Metrics)
	proc := feed.NewProcessor(mgr, cfg.Feed.Tolerant, logger)
	seq := engine.NewSequencer(cfg.Feed.InboxSize, proc, mgr, b.Metrics, logger)

	event.Warmup()

	seqDone := make(chan struct{})
	go func() {
		defer close(seqDone)
		seq.Run(ctx)
	}()
	logger.Info("✅ Sequencer (Hotpath) started",
		slog.Bool("tolerant", cfg.Feed.Tolerant), slog.Int("depth", cfg.Book.Depth))

	feeder := feed.NewFileFeeder(cfg.Feed.Path, cfg.Feed.LogComment, logger, b.Metrics)
	feedErr := feeder.Run(ctx, seq.Inbox())

	// end of feed triggers shutdown
	close(seq.Inbox())
	<-seqDone
	close(snapshots)
	writer.Wait()

	stats := seq.Stats()
	logger.Info("✨ Replay finished",
		slog.Uint64("records", stats.RecordsProcessed),
		slog.Uint64("errors", stats.Errors()),
		slog.Uint64("snapshots", stats.SnapshotsPublished),
		slog.Uint64("crossed", stats.CrossedDeferrals),
		slog.Uint64("verify_failures", stats.VerifyFailures),
		slog.Int64("avg_latency_ns", stats.AvgLatencyNs))

	if b.Storage != nil {
		if err := b.Storage.FinishRun(runID, stats.RecordsProcessed, stats.Errors(), stats.SnapshotsPublished); err != nil {
			logger.Error("Failed to finish run", slog.String("run", runID), slog.Any("error", err))
		}
	}

	if errors.Is(feedErr, context.Canceled) {
		return nil
	}
	return feedErr
}

// Close releases storage.
func (b *Bootstrap) Close() error {
	if b.Storage == nil {
		return nil
	}
	return b.Storage.Close()
}

type publishedMarket struct {
	line   uint64
	market domain.Market
}

func (b *Bootstrap) writeSnapshots(runID string, in <-chan publishedMarket) {
	for pm := range in {
		if err := b.Storage.SaveSnapshot(runID, pm.line, pm.market); err != nil {
			b.Logger.Error("Failed to save snapshot",
				slog.Uint64("line", pm.line),
				slog.Uint64("instrument", uint64(pm.market.InstrumentID)),
				slog.Any("error", err))
		}
	}
}
