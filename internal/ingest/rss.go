package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"newsrelay/internal/content"
	"newsrelay/internal/model"
	"newsrelay/internal/storage"
)

// rssIngestor ingests entries from an RSS or Atom feed.
type rssIngestor struct {
	store  storage.Storage
	client HTTPClient
	log    *slog.Logger
	limit  int
}

func newRSSIngestor(store storage.Storage, client HTTPClient, log *slog.Logger) *rssIngestor {
	return &rssIngestor{
		store:  store,
		client: client,
		log:    log,
		limit:  50,
	}
}

// Ingest fetches the feed and stores every entry not seen before. The
// dedup gate is a (owner, source, external id) existence check performed
// before each insert. Per-entry failures are logged and skipped; a feed
// fetch or parse failure aborts the run with the source untouched.
func (g *rssIngestor) Ingest(ctx context.Context, src *model.Source) (int, error) {
	if src.URL == "" {
		return 0, fmt.Errorf("rss source %d has no URL", src.ID)
	}

	feed, err := g.fetch(ctx, src.URL)
	if err != nil {
		return 0, fmt.Errorf("fetch feed: %w", err)
	}

	items := feed.Items
	if len(items) > g.limit {
		items = items[:g.limit]
	}

	newCount := 0
	for _, item := range items {
		stored, err := g.ingestItem(ctx, src, item)
		if err != nil {
			g.log.Error("process rss entry", "source_id", src.ID, "title", item.Title, "error", err)
			continue
		}
		if stored {
			newCount++
		}
	}

	markChecked(ctx, g.store, src, g.log)

	g.log.Info("rss ingestion complete", "source_id", src.ID, "new", newCount)
	return newCount, nil
}

func (g *rssIngestor) ingestItem(ctx context.Context, src *model.Source, item *gofeed.Item) (bool, error) {
	text := entryText(item)
	if text == "" {
		return false, nil
	}

	externalID := item.GUID
	if externalID == "" {
		externalID = item.Link
	}
	if externalID == "" {
		externalID = content.Hash(text, "")
	}

	exists, err := g.store.MessageExists(ctx, src.ID, externalID, src.OwnerID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	msg := &model.RawMessage{
		OwnerID:           src.OwnerID,
		SourceID:          src.ID,
		ExternalID:        externalID,
		Text:              text,
		MediaURLs:         entryMedia(item),
		ContentHash:       content.Hash(text, ""),
		PublishedAtSource: item.PublishedParsed,
	}
	if err := g.store.CreateRawMessage(ctx, msg); err != nil {
		return false, err
	}
	return true, nil
}

// entryText assembles the entry's plain text: title, then the stripped
// summary and content bodies, then the link.
func entryText(item *gofeed.Item) string {
	var parts []string
	if item.Title != "" {
		parts = append(parts, item.Title)
	}
	if body := content.ExtractText(item.Description); body != "" {
		parts = append(parts, body)
	}
	if body := content.ExtractText(item.Content); body != "" && item.Content != item.Description {
		parts = append(parts, body)
	}
	if len(parts) == 0 {
		return ""
	}
	if item.Link != "" {
		parts = append(parts, item.Link)
	}
	return strings.Join(parts, "\n\n")
}

func entryMedia(item *gofeed.Item) []string {
	var urls []string
	if item.Image != nil && item.Image.URL != "" {
		urls = append(urls, item.Image.URL)
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			urls = append(urls, enc.URL)
		}
	}
	return urls
}

func (g *rssIngestor) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsRelayBot/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}
