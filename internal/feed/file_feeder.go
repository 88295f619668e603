package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"book_replay/internal/domain"
	"book_replay/internal/event"
	"book_replay/internal/infra"
)

const maxLineSize = 64 * 1024

// FileFeeder replays a feed file line by line into the sequencer inbox.
type FileFeeder struct {
	path       string
	logComment bool
	logger     *slog.Logger
	metrics    *infra.Metrics
}

// NewFileFeeder creates a feeder for the file at path.
func NewFileFeeder(path string, logComment bool, logger *slog.Logger, metrics *infra.Metrics) *FileFeeder {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &FileFeeder{
		path:       path,
		logComment: logComment,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run opens the file and feeds it to out. It returns nil at EOF and ctx.Err()
// when stopped; the record in flight is always delivered or released first.
func (f *FileFeeder) Run(ctx context.Context, out chan<- *event.Record) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open market data for replay: %w", err)
	}
	defer file.Close()

	f.logger.Info("Feeder starting", slog.String("path", f.path))
	err = f.Feed(ctx, file, out)
	f.logger.Warn("Feeder stopped", slog.String("path", f.path), slog.Any("reason", err))
	return err
}

// Feed reads records from r. Malformed lines are logged and counted, never
// forwarded; a line of maxLineSize bytes or more is skipped the same way.
func (f *FileFeeder) Feed(ctx context.Context, r io.Reader, out chan<- *event.Record) error {
	reader := bufio.NewReaderSize(r, maxLineSize)

	var lineNum uint64
	for {
		// cooperative stop, checked once per record
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		lineNum++

		if isPrefix {
			for isPrefix && err == nil {
				_, isPrefix, err = reader.ReadLine()
			}
			f.metrics.RecordParseError()
			f.logger.Error("PARSING_ERR", slog.Uint64("line", lineNum), slog.Any("error", domain.ErrLineTooLong))
			if err != nil && err != io.EOF {
				return err
			}
			continue
		}

		line := strings.TrimRight(string(raw), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec := event.AcquireRecord()
		if err := ParseInto(rec, line, lineNum); err != nil {
			event.ReleaseRecord(rec)
			f.metrics.RecordParseError()
			f.logger.Error("PARSING_ERR", slog.Uint64("line", lineNum), slog.Any("error", err))
			continue
		}

		if rec.Action == domain.ActionComment {
			if f.logComment {
				f.logger.Info("COMMENT", slog.Uint64("line", lineNum), slog.String("text", rec.Comment))
			}
			event.ReleaseRecord(rec)
			continue
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			event.ReleaseRecord(rec)
			return ctx.Err()
		}
	}
}
