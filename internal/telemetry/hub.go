package telemetry

import (
	"context"
	"sync"
)

const hubBuffer = 64

// Hub broadcasts records to live subscribers, e.g. websocket clients.
// Slow subscribers lose records instead of stalling writers.
type Hub struct {
	mu   sync.RWMutex
	subs map[*hubSub]struct{}
}

type hubSub struct {
	runID string
	ch    chan Record
}

func NewHub() *Hub {
	return &Hub{subs: map[*hubSub]struct{}{}}
}

func (h *Hub) Write(_ context.Context, rec Record) error {
	rec = stamp(rec)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.runID != "" && s.runID != rec.RunID {
			continue
		}
		select {
		case s.ch <- rec:
		default:
		}
	}
	return nil
}

// Subscribe streams records for runID (all runs when empty) until ctx
// ends, then closes the channel.
func (h *Hub) Subscribe(ctx context.Context, runID string) <-chan Record {
	s := &hubSub{runID: runID, ch: make(chan Record, hubBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, s)
		close(s.ch)
		h.mu.Unlock()
	}()
	return s.ch
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
