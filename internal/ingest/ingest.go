// Package ingest pulls new items from external sources and stores them
// as raw messages, skipping items that were already seen.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"newsrelay/internal/model"
	"newsrelay/internal/storage"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Ingestor fetches a source's current items and stores the unseen ones,
// returning how many new raw messages were created. Implementations are
// idempotent per run: an unchanged upstream yields 0 the second time.
type Ingestor interface {
	Ingest(ctx context.Context, src *model.Source) (int, error)
}

// Runner dispatches ingestion to the ingestor matching the source type.
type Runner struct {
	store     storage.Storage
	log       *slog.Logger
	ingestors map[model.SourceType]Ingestor
}

// NewRunner creates a Runner with one ingestor per source type, all
// sharing the given HTTP client.
func NewRunner(store storage.Storage, client HTTPClient, log *slog.Logger) *Runner {
	return &Runner{
		store: store,
		log:   log,
		ingestors: map[model.SourceType]Ingestor{
			model.SourceRSS:      newRSSIngestor(store, client, log),
			model.SourceTelegram: newTelegramIngestor(store, client, log),
			model.SourceWebsite:  &websiteIngestor{store: store, log: log},
		},
	}
}

// Ingest runs the source through its type's ingestor. Inactive sources
// are skipped. A fetch-level failure returns 0 and leaves the source's
// timestamps unchanged.
func (r *Runner) Ingest(ctx context.Context, src *model.Source) (int, error) {
	if !src.IsActive {
		r.log.Debug("source inactive, skipping", "source_id", src.ID)
		return 0, nil
	}

	ing, ok := r.ingestors[src.Type]
	if !ok {
		return 0, fmt.Errorf("unknown source type %q", src.Type)
	}
	return ing.Ingest(ctx, src)
}

// markChecked records that the source was checked now, keeping whatever
// last-seen marker the ingestor put on the struct.
func markChecked(ctx context.Context, store storage.Storage, src *model.Source, log *slog.Logger) {
	now := time.Now().UTC()
	src.LastCheckedAt = &now
	if err := store.UpdateSource(ctx, src); err != nil {
		log.Error("update last checked", "source_id", src.ID, "error", err)
	}
}
