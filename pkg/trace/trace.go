// Package trace records per-round solve progress as line-delimited JSON.
//
// Each pricing round appends one Record with candidate counts, the
// master objective, and a digest of the dual vector. Traces from two
// runs of the same instance can be diffed line by line to localize
// where the runs departed.
//
// Records are buffered in memory and written on Close. With a
// compression algorithm configured the whole stream is compressed in
// one shot, which compresses far better than per-record framing.
package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/branchprice/colgen/pkg/compression"
	"github.com/branchprice/colgen/pkg/errors"
	"github.com/branchprice/colgen/pkg/json"
)

// Record is one pricing round in the trace.
type Record struct {
	Round       int           `json:"round"`
	Phase       string        `json:"phase"`
	Candidates  int           `json:"candidates"`
	Applied     int           `json:"applied"`
	Pruned      int           `json:"pruned"`
	Objective   float64       `json:"objective"`
	DualsDigest float64       `json:"duals_digest"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Time        time.Time     `json:"ts"`
}

// Digest reduces a dual vector to a single comparable number. Two
// rounds with different duals almost surely differ in digest, which is
// all trace diffing needs.
func Digest(duals []float64) float64 {
	if len(duals) == 0 {
		return 0
	}
	return floats.Norm(duals, 2)
}

// Config controls where and how a trace is written.
type Config struct {
	Path        string                `yaml:"path" json:"path"`
	Compression compression.Algorithm `yaml:"compression" json:"compression"`
	Level       compression.Level     `yaml:"level" json:"level"`
}

// DefaultConfig returns a trace configuration writing zstd-compressed
// records to solve_trace.jsonl.zst in the working directory.
func DefaultConfig() *Config {
	return &Config{
		Path:        "solve_trace.jsonl.zst",
		Compression: compression.Zstd,
		Level:       compression.Default,
	}
}

// Writer accumulates round records and persists them on Close.
// Safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	config  *Config
	logger  *zap.Logger
	buf     bytes.Buffer
	enc     *json.StreamingEncoder
	records int
	closed  bool
}

// NewWriter creates a trace writer. Nothing touches the filesystem
// until Close.
func NewWriter(config *Config, logger *zap.Logger) (*Writer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Path == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "trace path must not be empty")
	}
	if _, err := compression.ParseAlgorithm(string(config.Compression)); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid trace compression")
	}

	w := &Writer{
		config: config,
		logger: logger.With(zap.String("component", "trace")),
	}
	w.enc = json.NewStreamingEncoder(&w.buf, false)
	return w, nil
}

// Write appends one round record. The timestamp is filled in when the
// caller left it zero.
func (w *Writer) Write(rec *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New(errors.ErrorTypeIO, "trace writer is closed")
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}
	if err := w.enc.Encode(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "encoding trace record")
	}
	w.records++
	return nil
}

// Records returns the number of records written so far.
func (w *Writer) Records() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Close compresses the buffered records if configured and writes them
// to the trace path. Closing twice is an error; closing an empty trace
// still produces a (possibly empty) file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New(errors.ErrorTypeIO, "trace writer already closed")
	}
	w.closed = true

	if err := w.enc.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "finalizing trace encoder")
	}

	payload := w.buf.Bytes()
	if w.config.Compression != compression.None && w.config.Compression != "" {
		comp, err := compression.NewCompressor(&compression.Config{
			Algorithm: w.config.Compression,
			Level:     w.config.Level,
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "building trace compressor")
		}
		payload, err = comp.Compress(payload)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "compressing trace")
		}
	}

	if dir := filepath.Dir(w.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "creating trace directory")
		}
	}
	if err := os.WriteFile(w.config.Path, payload, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "writing trace file")
	}

	w.logger.Debug("trace written",
		zap.String("path", w.config.Path),
		zap.Int("records", w.records),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

// ReadFile loads a trace written by Writer, decompressing with the
// given algorithm. Use compression.None for plain traces.
func ReadFile(path string, algo compression.Algorithm) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "reading trace file")
	}

	if algo != compression.None && algo != "" {
		comp, err := compression.NewCompressor(&compression.Config{Algorithm: algo})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "building trace decompressor")
		}
		data, err = comp.Decompress(data)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "decompressing trace")
		}
	}

	var records []Record
	dec := json.GetDecoder(bytes.NewReader(data))
	defer json.PutDecoder(dec)
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "decoding trace record")
		}
		records = append(records, rec)
	}
	return records, nil
}
