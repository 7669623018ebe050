// Package publish delivers ready posts to their channels on each
// channel's independent cadence.
package publish

import (
	"context"
	"log/slog"
	"time"

	"newsrelay/internal/content"
	"newsrelay/internal/storage"
)

// MaxMessageLength is the Telegram message size limit, enforced before
// delivery.
const MaxMessageLength = 4096

// Sender delivers one message to a destination chat and returns the
// platform's message ID.
type Sender interface {
	SendText(chatID int64, text string) (int64, error)
	SendMedia(chatID int64, text string, mediaURLs []string) (int64, error)
}

// Publisher publishes the oldest ready post of a channel per tick.
type Publisher struct {
	store  storage.Storage
	sender Sender
	log    *slog.Logger
}

// New creates a Publisher over the given store and sender.
func New(store storage.Storage, sender Sender, log *slog.Logger) *Publisher {
	return &Publisher{
		store:  store,
		sender: sender,
		log:    log,
	}
}

// Tick runs one publish attempt for the channel: load it, pick the
// oldest ready post (FIFO by creation time), deliver, and transition
// the post's status. An inactive or missing channel, or an empty queue,
// is a no-op. A failed delivery marks the post failed with its error
// and bumps the retry count; failed posts are not re-queued. Every
// attempt, failed ones included, advances the channel's attempt
// timestamp so the channel waits a full interval before the next post
// instead of draining its queue at sweep rate.
func (p *Publisher) Tick(ctx context.Context, channelID int64) {
	ch, err := p.store.GetChannelByID(ctx, channelID)
	if err != nil {
		p.log.Error("channel not found", "channel_id", channelID, "error", err)
		return
	}
	if !ch.IsActive {
		p.log.Debug("channel inactive, skipping", "channel_id", channelID)
		return
	}

	post, err := p.store.NextReadyPost(ctx, channelID)
	if err != nil {
		p.log.Error("next ready post", "channel_id", channelID, "error", err)
		return
	}
	if post == nil {
		p.log.Debug("no ready posts", "channel_id", channelID)
		return
	}

	text := FormatPost(post.Text)

	var messageID int64
	if len(post.MediaURLs) > 0 {
		messageID, err = p.sender.SendMedia(ch.TelegramID, text, post.MediaURLs)
	} else {
		messageID, err = p.sender.SendText(ch.TelegramID, text)
	}

	now := time.Now().UTC()
	ch.LastAttemptAt = &now

	if err != nil {
		p.log.Error("publish failed", "post_id", post.ID, "channel_id", channelID, "error", err)
		if err := p.store.MarkFailed(ctx, post.ID, err.Error()); err != nil {
			p.log.Error("mark failed", "post_id", post.ID, "error", err)
		}
		if err := p.store.UpdateChannel(ctx, ch); err != nil {
			p.log.Error("update last attempt", "channel_id", channelID, "error", err)
		}
		return
	}

	if err := p.store.MarkPublished(ctx, post.ID, messageID); err != nil {
		p.log.Error("mark published", "post_id", post.ID, "error", err)
		return
	}

	ch.LastPublishedAt = &now
	if err := p.store.UpdateChannel(ctx, ch); err != nil {
		p.log.Error("update last published", "channel_id", channelID, "error", err)
	}

	p.log.Info("post published", "post_id", post.ID, "channel_id", channelID, "message_id", messageID)
}

// FormatPost normalizes post text and truncates it to the platform's
// message size limit.
func FormatPost(text string) string {
	return content.Truncate(content.Normalize(text), MaxMessageLength)
}
