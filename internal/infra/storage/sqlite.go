package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"book_replay/internal/domain"
	"book_replay/pkg/quant"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists replay runs and the snapshots they publish.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at path.
// An empty path resolves to the per-user data directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.RunRecord{}, &domain.SnapshotRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "BookReplay", "data", "replay.db"), nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Run Operations
// ======================================================================================

// StartRun registers a new replay and returns its id.
func (s *Storage) StartRun(feedPath string, tolerant bool, depth int) (string, error) {
	run := domain.RunRecord{
		ID:        uuid.NewString(),
		FeedPath:  feedPath,
		Tolerant:  tolerant,
		Depth:     depth,
		StartedAt: time.Now(),
	}
	if err := s.db.Create(&run).Error; err != nil {
		return "", err
	}
	return run.ID, nil
}

// FinishRun stores the final counters of a replay.
func (s *Storage) FinishRun(runID string, records, errs, snapshots uint64) error {
	return s.db.Model(&domain.RunRecord{}).Where("id = ?", runID).Updates(map[string]any{
		"records":     records,
		"errors":      errs,
		"snapshots":   snapshots,
		"finished_at": time.Now(),
	}).Error
}

// GetRun retrieves a run by id
func (s *Storage) GetRun(runID string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := s.db.First(&run, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &run, err
}

// ======================================================================================
// Snapshot Operations
// ======================================================================================

// SaveSnapshot persists one published market.
func (s *Storage) SaveSnapshot(runID string, line uint64, m domain.Market) error {
	levels, err := json.Marshal(m.Levels)
	if err != nil {
		return fmt.Errorf("failed to encode levels: %w", err)
	}

	rec := domain.SnapshotRecord{
		ID:           uuid.NewString(),
		RunID:        runID,
		Line:         line,
		InstrumentID: m.InstrumentID,
		LastQty:      m.LastQty,
		LastPrice:    int64(m.LastPrice),
		Depth:        m.Depth(),
		Levels:       string(levels),
		CreatedAt:    time.Now(),
	}
	return s.db.Create(&rec).Error
}

// ListSnapshots returns the snapshots of a run in feed order.
func (s *Storage) ListSnapshots(runID string) ([]domain.SnapshotRecord, error) {
	var recs []domain.SnapshotRecord
	err := s.db.Where("run_id = ?", runID).Order("line asc").Find(&recs).Error
	return recs, err
}

// LatestSnapshot returns the most recent market published for an instrument
// across all runs, or nil when none exists.
func (s *Storage) LatestSnapshot(iid domain.InstrumentID) (*domain.Market, error) {
	var rec domain.SnapshotRecord
	err := s.db.Where("instrument_id = ?", iid).Order("created_at desc, line desc").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(rec)
}

// DecodeSnapshot rebuilds a Market from its persisted form.
func DecodeSnapshot(rec domain.SnapshotRecord) (*domain.Market, error) {
	m := domain.NewMarket(rec.InstrumentID, rec.Depth)
	if err := json.Unmarshal([]byte(rec.Levels), &m.Levels); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", rec.ID, err)
	}
	m.FillTrade(rec.LastQty, quant.PriceMicros(rec.LastPrice))
	return m, nil
}
