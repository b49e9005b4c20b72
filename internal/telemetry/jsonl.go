package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"contentpilot/internal/safeio"
)

// JSONLSink appends records to one <runId>.jsonl file per run.
type JSONLSink struct {
	dir *safeio.Dir
	mu  sync.Mutex
}

func DefaultJSONLDir() string {
	return filepath.Join("tmp", "debug_records")
}

func NewJSONLSink(dir string) (*JSONLSink, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultJSONLDir()
	}
	d, err := safeio.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}
	return &JSONLSink{dir: d}, nil
}

func fileName(runID string) string {
	return sanitizeRunID(runID) + ".jsonl"
}

func (s *JSONLSink) Write(_ context.Context, rec Record) error {
	raw, err := json.Marshal(stamp(rec))
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	raw = append(raw, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.dir.OpenAppend(fileName(rec.RunID))
	if err != nil {
		return fmt.Errorf("open debug file: %w", err)
	}
	defer f.Close()
	_, err = f.Write(raw)
	return err
}

func (s *JSONLSink) Read(_ context.Context, runID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.dir.OpenRead(fileName(runID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("open debug file: %w", err)
	}
	defer f.Close()

	out := make([]Record, 0, 32)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan debug file: %w", err)
	}
	return out, nil
}
