package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Async forwards records to next from a single background goroutine.
// Write never blocks: when the buffer is full the record is dropped and
// counted.
type Async struct {
	next    Sink
	logger  *slog.Logger
	ch      chan Record
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewAsync(next Sink, buffer int, logger *slog.Logger) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Async{
		next:   next,
		logger: logger,
		ch:     make(chan Record, buffer),
		done:   make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer close(a.done)
	for rec := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.next.Write(ctx, rec); err != nil {
			a.logger.Warn("telemetry sink write failed", "run_id", rec.RunID, "stage", rec.Stage, "error", err)
		}
		cancel()
	}
}

func (a *Async) Write(_ context.Context, rec Record) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return nil
	}
	select {
	case a.ch <- stamp(rec):
	default:
		if n := a.dropped.Add(1); n == 1 || n%100 == 0 {
			a.logger.Warn("telemetry buffer full, dropping records", "dropped", n)
		}
	}
	return nil
}

// Dropped returns how many records were discarded.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting records and waits for the buffer to drain or ctx
// to end.
func (a *Async) Close(ctx context.Context) error {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()
	})
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
