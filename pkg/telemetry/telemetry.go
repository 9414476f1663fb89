// Package telemetry records per-request retrieval outcomes to Parquet files
// for offline analysis.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// RequestRecord is one completed (or failed) retrieval request.
type RequestRecord struct {
	ID             string    `parquet:"id"`
	Timestamp      time.Time `parquet:"timestamp"`
	Query          string    `parquet:"query"`
	Strategy       string    `parquet:"strategy"`
	Outcome        string    `parquet:"outcome"` // complete, error
	ErrorKind      string    `parquet:"error_kind"`
	FusedResults   int       `parquet:"fused_results"`
	DegradedAgents int       `parquet:"degraded_agents"`
	Confidence     float64   `parquet:"confidence"`
	ElapsedMillis  int64     `parquet:"elapsed_millis"`
}

// Recorder accepts request records. Implementations must be safe for
// concurrent use and must never fail the request path.
type Recorder interface {
	Record(rec RequestRecord)
	Close() error
}

// ParquetRecorder buffers records and writes them out in batches, one
// Parquet file per flush.
type ParquetRecorder struct {
	outputDir string
	mu        sync.Mutex
	buffer    []RequestRecord
	batchSize int
}

// NewParquetRecorder creates a recorder writing under outputDir.
func NewParquetRecorder(outputDir string) (*ParquetRecorder, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	return &ParquetRecorder{
		outputDir: outputDir,
		batchSize: 100,
		buffer:    make([]RequestRecord, 0, 100),
	}, nil
}

// Record implements Recorder.
func (r *ParquetRecorder) Record(rec RequestRecord) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, rec)
	if len(r.buffer) >= r.batchSize {
		r.flush()
	}
}

// flush writes the current buffer to a new Parquet file.
// Caller must hold the lock.
func (r *ParquetRecorder) flush() {
	if len(r.buffer) == 0 {
		return
	}

	filename := fmt.Sprintf("requests_%s_%d.parquet", time.Now().Format("20060102_150405"), time.Now().UnixNano())
	path := filepath.Join(r.outputDir, filename)

	if err := parquet.WriteFile(path, r.buffer); err != nil {
		// Telemetry must never take down the request path.
		fmt.Fprintf(os.Stderr, "failed to write telemetry parquet file: %v\n", err)
		return
	}

	r.buffer = r.buffer[:0]
}

// Close implements Recorder, flushing any buffered records.
func (r *ParquetRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flush()
	return nil
}

// NopRecorder discards all records. Used when telemetry is not configured.
type NopRecorder struct{}

func (NopRecorder) Record(rec RequestRecord) {}
func (NopRecorder) Close() error             { return nil }

var (
	_ Recorder = (*ParquetRecorder)(nil)
	_ Recorder = NopRecorder{}
)
