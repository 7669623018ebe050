// Package scheduler drives the pipeline's periodic work: source
// ingestion, rewrite dispatch, and channel publication.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newsrelay/internal/ingest"
	"newsrelay/internal/model"
	"newsrelay/internal/publish"
	"newsrelay/internal/rewrite"
	"newsrelay/internal/storage"
)

const rewriteBatchSize = 100

// Scheduler is a single coordinator that sweeps once per tick and
// launches due units of work. Per-source and per-channel cadence comes
// from interval-based due-queries, so each channel publishes on its own
// schedule regardless of the sweep period. Every due unit runs in its
// own goroutine behind an in-flight key: a unit still running when it
// comes due again is skipped, which serializes ticks per channel and
// keeps one slow external call from stalling the rest.
type Scheduler struct {
	store      storage.Storage
	ingester   *ingest.Runner
	dispatcher *rewrite.Dispatcher
	publisher  *publish.Publisher
	log        *slog.Logger
	tick       time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// New creates a Scheduler sweeping once per minute.
func New(store storage.Storage, ingester *ingest.Runner, dispatcher *rewrite.Dispatcher, publisher *publish.Publisher, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:      store,
		ingester:   ingester,
		dispatcher: dispatcher,
		publisher:  publisher,
		log:        log,
		tick:       time.Minute,
		inflight:   make(map[string]struct{}),
	}
}

// SetTickInterval overrides the default 1-minute sweep interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the sweep loop, blocking until ctx is cancelled. No new
// units start after cancellation; in-flight units are awaited.
func (s *Scheduler) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	s.sweepSources(ctx)

	s.spawn("rewrite", func() {
		s.dispatcher.ProcessAllPending(ctx, rewriteBatchSize)
	})

	s.sweepChannels(ctx)
}

func (s *Scheduler) sweepSources(ctx context.Context) {
	sources, err := s.store.ListDueSources(ctx)
	if err != nil {
		s.log.Error("list due sources", "error", err)
		return
	}

	for _, src := range sources {
		src := src
		s.spawn(fmt.Sprintf("source:%d", src.ID), func() {
			s.ingestSource(ctx, &src)
		})
	}
}

func (s *Scheduler) ingestSource(ctx context.Context, src *model.Source) {
	s.log.Debug("checking source", "source_id", src.ID, "type", src.Type)
	count, err := s.ingester.Ingest(ctx, src)
	if err != nil {
		s.log.Error("ingest source", "source_id", src.ID, "error", err)
		return
	}
	if count > 0 {
		s.log.Info("ingested new messages", "source_id", src.ID, "count", count)
	}
}

func (s *Scheduler) sweepChannels(ctx context.Context) {
	channels, err := s.store.ListDueChannels(ctx)
	if err != nil {
		s.log.Error("list due channels", "error", err)
		return
	}

	for _, ch := range channels {
		ch := ch
		s.spawn(fmt.Sprintf("channel:%d", ch.ID), func() {
			s.publisher.Tick(ctx, ch.ID)
		})
	}
}

// spawn runs fn in its own goroutine unless a unit with the same key is
// still in flight, in which case this occurrence is skipped.
func (s *Scheduler) spawn(key string, fn func()) {
	s.mu.Lock()
	if _, busy := s.inflight[key]; busy {
		s.mu.Unlock()
		s.log.Debug("unit still running, skipping", "key", key)
		return
	}
	s.inflight[key] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
			s.wg.Done()
		}()
		fn()
	}()
}
