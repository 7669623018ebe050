package ingest

import (
	"context"
	"log/slog"

	"newsrelay/internal/model"
	"newsrelay/internal/storage"
)

// websiteIngestor is a placeholder. Generic website scraping needs
// per-site extraction rules that are not defined yet, so it always
// reports zero new items. The check still counts: the source's
// last-checked timestamp advances so the scheduler redispatches it on
// its interval rather than on every sweep.
type websiteIngestor struct {
	store storage.Storage
	log   *slog.Logger
}

func (w *websiteIngestor) Ingest(ctx context.Context, src *model.Source) (int, error) {
	w.log.Warn("website ingestion not implemented", "source_id", src.ID)
	markChecked(ctx, w.store, src, w.log)
	return 0, nil
}
