package telemetry

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultMemoryRuns    = 256
	defaultRecordsPerRun = 512
)

// MemorySink keeps the most recent records of the most recently used runs.
type MemorySink struct {
	mu     sync.Mutex
	runs   *lru.Cache[string, []Record]
	perRun int
}

// NewMemorySink keeps up to maxRuns runs and perRun records per run.
func NewMemorySink(maxRuns, perRun int) (*MemorySink, error) {
	if maxRuns <= 0 {
		maxRuns = defaultMemoryRuns
	}
	if perRun <= 0 {
		perRun = defaultRecordsPerRun
	}
	cache, err := lru.New[string, []Record](maxRuns)
	if err != nil {
		return nil, err
	}
	return &MemorySink{runs: cache, perRun: perRun}, nil
}

func (m *MemorySink) Write(_ context.Context, rec Record) error {
	rec = stamp(rec)
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, _ := m.runs.Get(rec.RunID)
	recs = append(recs, rec)
	if len(recs) > m.perRun {
		recs = append([]Record(nil), recs[len(recs)-m.perRun:]...)
	}
	m.runs.Add(rec.RunID, recs)
	return nil
}

func (m *MemorySink) Read(_ context.Context, runID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, ok := m.runs.Peek(runID)
	if !ok {
		return []Record{}, nil
	}
	return append([]Record(nil), recs...), nil
}

// Runs lists the retained run ids, oldest first.
func (m *MemorySink) Runs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs.Keys()
}
