package event

import (
	"sync"
)

// recordPool provides sync.Pool for parsed feed records.
// Use this to reduce GC pressure in the hotpath.
//
// Usage:
//
//	rec := AcquireRecord()
//	rec.Line = 12
//	// ... hand to the sequencer ...
//	ReleaseRecord(rec)  // Return to pool after processing
var recordPool = sync.Pool{
	New: func() interface{} {
		return &Record{}
	},
}

// AcquireRecord gets a Record from the pool.
// The returned record has zero values and must be initialized.
func AcquireRecord() *Record {
	return recordPool.Get().(*Record)
}

// ReleaseRecord returns a Record to the pool.
// The record is reset to zero values before being pooled.
func ReleaseRecord(rec *Record) {
	if rec == nil {
		return
	}
	*rec = Record{}

	recordPool.Put(rec)
}

// Warmup pre-allocates records to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 1000

	recs := make([]*Record, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		recs = append(recs, AcquireRecord())
	}
	for _, rec := range recs {
		ReleaseRecord(rec)
	}
}
