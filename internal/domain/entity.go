package domain

import (
	"time"
)

// SnapshotRecord is a published market snapshot as persisted by storage.
type SnapshotRecord struct {
	ID           string       `gorm:"primaryKey" json:"id"`
	RunID        string       `gorm:"index" json:"run_id"`
	Line         uint64       `json:"line"` // feed line that triggered the publication
	InstrumentID InstrumentID `gorm:"index" json:"instrument_id"`
	LastQty      int64        `json:"last_qty"`
	LastPrice    int64        `json:"last_price"` // PriceMicros
	Depth        int          `json:"depth"`
	Levels       string       `json:"levels"` // JSON encoded []Level
	CreatedAt    time.Time    `json:"created_at"`
}

// RunRecord describes one replay of a feed file.
type RunRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	FeedPath   string    `json:"feed_path"`
	Tolerant   bool      `json:"tolerant"`
	Depth      int       `json:"depth"`
	Records    uint64    `json:"records"`
	Errors     uint64    `json:"errors"`
	Snapshots  uint64    `json:"snapshots"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
