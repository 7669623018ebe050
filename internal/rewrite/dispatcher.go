package rewrite

import (
	"context"
	"log/slog"

	"newsrelay/internal/model"
	"newsrelay/internal/storage"
)

const (
	defaultStyle       = "neutral"
	defaultTemperature = 0.7
)

// Dispatcher fans raw messages out into ready-to-publish posts.
type Dispatcher struct {
	store  storage.Storage
	engine Engine
	log    *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given store and engine.
func NewDispatcher(store storage.Storage, engine Engine, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		engine: engine,
		log:    log,
	}
}

// Process rewrites one raw message for every active binding of its
// source and creates one ready post per target channel. The message is
// marked processed exactly once after all bindings were attempted,
// whether or not any post was created, so permanently failing content
// is never reprocessed. Processing an already-processed message is a
// no-op.
func (d *Dispatcher) Process(ctx context.Context, messageID, ownerID int64) error {
	msg, err := d.store.GetRawMessage(ctx, messageID, ownerID)
	if err != nil {
		d.log.Error("raw message not found", "message_id", messageID, "error", err)
		return nil
	}
	if msg.IsProcessed {
		d.log.Debug("message already processed", "message_id", messageID)
		return nil
	}

	if ok, reason := Moderate(msg.Text); !ok {
		d.log.Warn("message failed moderation", "message_id", messageID, "reason", reason)
		return d.markProcessed(ctx, messageID)
	}

	bindings, err := d.store.BindingsForSource(ctx, msg.SourceID)
	if err != nil {
		return err
	}
	if len(bindings) == 0 {
		d.log.Debug("no bindings for source", "source_id", msg.SourceID)
		return d.markProcessed(ctx, messageID)
	}

	for _, sb := range bindings {
		if !sb.Binding.IsActive || !sb.Channel.IsActive {
			continue
		}
		d.rewriteForChannel(ctx, msg, &sb.Channel)
	}

	return d.markProcessed(ctx, messageID)
}

// rewriteForChannel produces one post for one channel. A failure is
// logged and contained so the remaining channels still get theirs.
func (d *Dispatcher) rewriteForChannel(ctx context.Context, msg *model.RawMessage, ch *model.Channel) {
	rewritten, err := d.engine.Rewrite(ctx, Request{
		Text:        msg.Text,
		Style:       defaultStyle,
		Language:    ch.Language,
		Extra:       ch.StylePrompt,
		Temperature: defaultTemperature,
	})
	if err != nil {
		d.log.Error("rewrite failed", "message_id", msg.ID, "channel_id", ch.ID, "error", err)
		return
	}

	post := &model.Post{
		OwnerID:      msg.OwnerID,
		ChannelID:    ch.ID,
		RawMessageID: &msg.ID,
		Text:         rewritten,
		MediaURLs:    msg.MediaURLs,
		Status:       model.StatusReady,
	}
	if err := d.store.CreatePost(ctx, post); err != nil {
		d.log.Error("create post", "message_id", msg.ID, "channel_id", ch.ID, "error", err)
		return
	}

	d.log.Info("post created", "post_id", post.ID, "channel_id", ch.ID, "message_id", msg.ID)
}

func (d *Dispatcher) markProcessed(ctx context.Context, messageID int64) error {
	if err := d.store.MarkProcessed(ctx, messageID); err != nil {
		d.log.Error("mark processed", "message_id", messageID, "error", err)
		return err
	}
	return nil
}

// ProcessAllPending sweeps the oldest unprocessed messages globally, up
// to limit, isolating failures per message.
func (d *Dispatcher) ProcessAllPending(ctx context.Context, limit int) {
	msgs, err := d.store.ListUnprocessed(ctx, limit)
	if err != nil {
		d.log.Error("list unprocessed", "error", err)
		return
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			return
		}
		if err := d.Process(ctx, msg.ID, msg.OwnerID); err != nil {
			d.log.Error("process message", "message_id", msg.ID, "error", err)
		}
	}
}
