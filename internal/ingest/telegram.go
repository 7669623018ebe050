package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"newsrelay/internal/content"
	"newsrelay/internal/model"
	"newsrelay/internal/storage"
)

var backgroundImageRe = regexp.MustCompile(`background-image:\s*url\('([^']+)'\)`)

// telegramIngestor ingests posts from a public Telegram channel via its
// t.me/s/<handle> web preview. The preview page carries roughly the
// last twenty posts in chronological order.
type telegramIngestor struct {
	store  storage.Storage
	client HTTPClient
	log    *slog.Logger
}

func newTelegramIngestor(store storage.Storage, client HTTPClient, log *slog.Logger) *telegramIngestor {
	return &telegramIngestor{
		store:  store,
		client: client,
		log:    log,
	}
}

// previewItem is one message parsed out of the channel preview page.
type previewItem struct {
	ExternalID string // "handle/123" from the data-post attribute
	Text       string
	PhotoURLs  []string
}

// Ingest fetches the channel preview and stores every unseen post,
// oldest first. The source's last-seen marker advances to the newest
// post on the page; the last-checked timestamp updates even when no new
// posts were found. A page fetch failure leaves the source untouched.
func (g *telegramIngestor) Ingest(ctx context.Context, src *model.Source) (int, error) {
	if src.Handle == "" {
		return 0, fmt.Errorf("telegram source %d has no handle", src.ID)
	}

	items, err := g.fetchPreview(ctx, src.Handle)
	if err != nil {
		return 0, fmt.Errorf("fetch channel preview: %w", err)
	}

	newCount := 0
	var lastSeen string
	for _, item := range items {
		if item.ExternalID != "" {
			lastSeen = item.ExternalID
		}

		stored, err := g.ingestItem(ctx, src, item)
		if err != nil {
			g.log.Error("process telegram post", "source_id", src.ID, "post", item.ExternalID, "error", err)
			continue
		}
		if stored {
			newCount++
		}
	}

	if lastSeen != "" {
		src.LastSeenItem = lastSeen
	}
	markChecked(ctx, g.store, src, g.log)

	g.log.Info("telegram ingestion complete", "source_id", src.ID, "handle", src.Handle, "new", newCount)
	return newCount, nil
}

func (g *telegramIngestor) ingestItem(ctx context.Context, src *model.Source, item previewItem) (bool, error) {
	if item.Text == "" && len(item.PhotoURLs) == 0 {
		return false, nil
	}

	externalID := item.ExternalID
	if externalID == "" {
		externalID = content.Hash(item.Text, strings.Join(item.PhotoURLs, ","))
	}

	exists, err := g.store.MessageExists(ctx, src.ID, externalID, src.OwnerID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	msg := &model.RawMessage{
		OwnerID:     src.OwnerID,
		SourceID:    src.ID,
		ExternalID:  externalID,
		Text:        item.Text,
		MediaURLs:   item.PhotoURLs,
		ContentHash: content.Hash(item.Text, strings.Join(item.PhotoURLs, ",")),
	}
	if err := g.store.CreateRawMessage(ctx, msg); err != nil {
		return false, err
	}
	return true, nil
}

func (g *telegramIngestor) fetchPreview(ctx context.Context, handle string) ([]previewItem, error) {
	url := "https://t.me/s/" + strings.TrimPrefix(handle, "@")
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

	body := io.LimitReader(resp.Body, 5*1024*1024)
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse preview page: %w", err)
	}

	return parsePreview(doc), nil
}

// parsePreview extracts posts from a channel preview document in page
// order, which is oldest first.
func parsePreview(doc *goquery.Document) []previewItem {
	var items []previewItem
	doc.Find(".tgme_widget_message").Each(func(_ int, sel *goquery.Selection) {
		var item previewItem

		if post, ok := sel.Attr("data-post"); ok {
			item.ExternalID = post
		}

		item.Text = content.Clean(sel.Find(".tgme_widget_message_text").First().Text())

		sel.Find(".tgme_widget_message_photo_wrap").Each(func(_ int, photo *goquery.Selection) {
			style, ok := photo.Attr("style")
			if !ok {
				return
			}
			if m := backgroundImageRe.FindStringSubmatch(style); m != nil {
				item.PhotoURLs = append(item.PhotoURLs, m[1])
			}
		})

		items = append(items, item)
	})
	return items
}
