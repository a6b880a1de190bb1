package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONL journals every sink call as one JSON line.
type JSONL struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewJSONL(path string) *JSONL {
	return &JSONL{path: path, now: time.Now}
}

func (s *JSONL) Track(_ context.Context, distinctID, label string, props map[string]any) error {
	return s.append(Record{Op: OpTrack, ID: distinctID, Label: label, Properties: props})
}

func (s *JSONL) SetOnce(_ context.Context, entityID string, props map[string]any) error {
	return s.append(Record{Op: OpSetOnce, ID: entityID, Properties: props})
}

func (s *JSONL) Set(_ context.Context, entityID string, props map[string]any) error {
	return s.append(Record{Op: OpSet, ID: entityID, Properties: props})
}

func (s *JSONL) Increment(_ context.Context, entityID string, counters map[string]float64) error {
	return s.append(Record{Op: OpIncrement, ID: entityID, Counters: counters})
}

func (s *JSONL) Union(_ context.Context, entityID string, sets map[string][]string) error {
	return s.append(Record{Op: OpUnion, ID: entityID, Sets: sets})
}

// append writes one record to the end of the journal.
func (s *JSONL) append(record Record) error {
	if s.path == "" {
		return fmt.Errorf("jsonl path is empty")
	}
	record.RecordedAt = s.now().UTC()

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", record.Op, err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write %s record: %w", record.Op, err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
