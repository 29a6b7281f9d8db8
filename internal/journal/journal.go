// Package journal keeps a compressed JSONL record of every transaction the
// UI core settled. It is a debugging aid for desync reports, never a source
// of inventory state.
package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Outcome is one settled transaction.
type Outcome struct {
	Time      time.Time `json:"time"`
	Seq       uint64    `json:"seq"`
	RequestID string    `json:"request_id,omitempty"`
	Kind      string    `json:"kind"`
	Source    string    `json:"source"`
	Target    string    `json:"target,omitempty"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
}

// segmentLayout names one file per UTC hour.
const segmentLayout = "2006-01-02-15"

// TransactionLog writes one JSON line per settled transaction into hourly
// zstd segments under dir. Each entry is flushed through the encoder to the
// file before WriteOutcome returns.
type TransactionLog struct {
	dir  string
	name string
	now  func() time.Time

	mu      sync.Mutex
	segment string
	file    *os.File
	zw      *zstd.Encoder
	lines   *json.Encoder
}

func NewTransactionLog(dir string) *TransactionLog {
	return &TransactionLog{dir: dir, name: "transactions", now: time.Now}
}

// WriteOutcome appends o to the segment for the current hour.
func (l *TransactionLog) WriteOutcome(o Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seg := l.now().UTC().Format(segmentLayout); seg != l.segment {
		if err := l.open(seg); err != nil {
			return fmt.Errorf("failed to open journal segment %s: %w", seg, err)
		}
	}
	if err := l.lines.Encode(o); err != nil {
		return err
	}
	return l.zw.Flush()
}

// Close finishes the current zstd frame.
func (l *TransactionLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finish()
}

// Path returns the segment file for the hour containing t.
func (l *TransactionLog) Path(t time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s-%s.jsonl.zst", l.name, t.UTC().Format(segmentLayout)))
}

func (l *TransactionLog) open(seg string) error {
	if err := l.finish(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	at, err := time.Parse(segmentLayout, seg)
	if err != nil {
		return err
	}
	// Appending starts a new frame; ReadFile reads all of them.
	f, err := os.OpenFile(l.Path(at), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return err
	}
	l.file, l.zw, l.lines, l.segment = f, zw, json.NewEncoder(zw), seg
	return nil
}

func (l *TransactionLog) finish() error {
	if l.file == nil {
		return nil
	}
	err := l.zw.Close()
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file, l.zw, l.lines, l.segment = nil, nil, nil, ""
	return err
}

// ReadFile decodes every line of a journal file. A file that was appended
// to across restarts holds several zstd frames; all of them are read.
func ReadFile(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress journal: %w", err)
	}

	var out []json.RawMessage
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		out = append(out, json.RawMessage(line))
	}
	return out, nil
}
