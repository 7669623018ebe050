package bot

import (
	"context"
	"fmt"
	"strings"

	"newsrelay/internal/model"
	"newsrelay/internal/storage"
)

const helpText = `Commands:

Channels
/addchannel <chat_id> <title> - register a publish channel
/channels - list your channels
/channel <id> - show channel details
/removechannel <id> - delete a channel and its posts
/pausechannel <id> / /resumechannel <id> - toggle publishing
/interval <id> <minutes> - set publish interval
/language <id> <code> - set rewrite language (uk, en, ru, de)
/style <id> <text> - set extra style instructions

Sources
/addsource rss <url> [title] - add an RSS feed
/addsource telegram <@name> [title] - add a Telegram channel
/addsource website <url> [title] - add a website
/sources - list your sources
/removesource <id> - delete a source and its raw content
/pausesource <id> / /resumesource <id> - toggle ingestion
/checkinterval <id> <minutes> - set ingestion interval
/ingest <id> - check a source right now

Bindings
/bind <source_id> <channel_id> - route a source to a channel
/unbind <source_id> <channel_id> - remove the route
/pausebind <source_id> <channel_id> / /resumebind <source_id> <channel_id> - toggle the route
/bindings <channel_id> - list sources feeding a channel

Posts
/posts <channel_id> [status] - list posts (ready, published, failed)`

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, "Hi! I relay content from your sources to your Telegram channels.\n\nUse /help to see the available commands.")
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, helpText)
}

func (b *Bot) handleAddChannel(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	tgID, title, err := parseAddChannel(args)
	if err != nil {
		b.reply(chatID, "Usage: /addchannel <chat_id> <title>\n\nAdd the bot as an administrator of the channel first.")
		return
	}

	ch := &model.Channel{
		OwnerID:         owner.ID,
		TelegramID:      tgID,
		Title:           title,
		IsActive:        true,
		IntervalMinutes: b.cfg.DefaultPublishIntervalMinutes,
		Language:        "uk",
	}
	if err := b.store.CreateChannel(ctx, ch); err != nil {
		b.log.Error("create channel", "owner_id", owner.ID, "error", err)
		b.reply(chatID, "Failed to add the channel. It may already be registered.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Channel %q added with id %d. Publishing every %d min.", ch.Title, ch.ID, ch.IntervalMinutes))
}

func (b *Bot) handleChannels(ctx context.Context, owner *model.Owner, chatID int64) {
	channels, err := b.store.ListChannels(ctx, owner.ID)
	if err != nil {
		b.log.Error("list channels", "owner_id", owner.ID, "error", err)
		b.reply(chatID, "Failed to list channels.")
		return
	}
	b.reply(chatID, formatChannelList(channels))
}

func (b *Bot) handleChannelInfo(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	id, err := parseID(args)
	if err != nil {
		b.reply(chatID, "Usage: /channel <id>")
		return
	}

	ch, err := b.store.GetChannel(ctx, id, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", id))
		return
	}
	bindings, err := b.store.BindingsForChannel(ctx, ch.ID)
	if err != nil {
		b.log.Error("list bindings", "channel_id", ch.ID, "error", err)
		b.reply(chatID, "Failed to load channel details.")
		return
	}
	b.reply(chatID, formatChannelInfo(ch, bindings))
}

func (b *Bot) handleRemoveChannel(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	id, err := parseID(args)
	if err != nil {
		b.reply(chatID, "Usage: /removechannel <id>")
		return
	}

	if err := b.store.DeleteChannel(ctx, id, owner.ID); err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", id))
		return
	}
	b.reply(chatID, fmt.Sprintf("Channel %d removed.", id))
}

func (b *Bot) handleToggleChannel(ctx context.Context, owner *model.Owner, chatID int64, args string, active bool) {
	id, err := parseID(args)
	if err != nil {
		b.reply(chatID, "Usage: /pausechannel <id> or /resumechannel <id>")
		return
	}

	ch, err := b.store.GetChannel(ctx, id, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", id))
		return
	}
	ch.IsActive = active
	if err := b.store.UpdateChannel(ctx, ch); err != nil {
		b.log.Error("update channel", "channel_id", ch.ID, "error", err)
		b.reply(chatID, "Failed to update the channel.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Channel %q is now %s.", ch.Title, activeMark(active)))
}

func (b *Bot) handleInterval(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	id, minutes, err := parseIDInterval(args)
	if err != nil {
		b.reply(chatID, "Usage: /interval <channel_id> <minutes>")
		return
	}

	ch, err := b.store.GetChannel(ctx, id, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", id))
		return
	}
	ch.IntervalMinutes = minutes
	if err := b.store.UpdateChannel(ctx, ch); err != nil {
		b.log.Error("update channel", "channel_id", ch.ID, "error", err)
		b.reply(chatID, "Failed to update the channel.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Channel %q publishes every %d min now.", ch.Title, minutes))
}

func (b *Bot) handleLanguage(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.reply(chatID, "Usage: /language <channel_id> <code>")
		return
	}
	id, err := parseID(fields[0])
	if err != nil {
		b.reply(chatID, "Usage: /language <channel_id> <code>")
		return
	}

	ch, err := b.store.GetChannel(ctx, id, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", id))
		return
	}
	ch.Language = strings.ToLower(fields[1])
	if err := b.store.UpdateChannel(ctx, ch); err != nil {
		b.log.Error("update channel", "channel_id", ch.ID, "error", err)
		b.reply(chatID, "Failed to update the channel.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Channel %q language set to %s.", ch.Title, ch.Language))
}

func (b *Bot) handleStyle(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(fields) < 1 || fields[0] == "" {
		b.reply(chatID, "Usage: /style <channel_id> <text>\n\nPass only the id to clear the style.")
		return
	}
	id, err := parseID(fields[0])
	if err != nil {
		b.reply(chatID, "Usage: /style <channel_id> <text>")
		return
	}

	ch, err := b.store.GetChannel(ctx, id, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", id))
		return
	}
	if len(fields) == 2 {
		ch.StylePrompt = strings.TrimSpace(fields[1])
	} else {
		ch.StylePrompt = ""
	}
	if err := b.store.UpdateChannel(ctx, ch); err != nil {
		b.log.Error("update channel", "channel_id", ch.ID, "error", err)
		b.reply(chatID, "Failed to update the channel.")
		return
	}
	if ch.StylePrompt == "" {
		b.reply(chatID, fmt.Sprintf("Style cleared for channel %q.", ch.Title))
		return
	}
	b.reply(chatID, fmt.Sprintf("Style updated for channel %q.", ch.Title))
}

func (b *Bot) handleAddSource(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	src, err := parseAddSource(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("%s\n\nUsage: /addsource <rss|telegram|website> <address> [title]", capitalize(err.Error())))
		return
	}

	src.OwnerID = owner.ID
	src.IntervalMinutes = b.cfg.DefaultCheckIntervalMinutes
	if err := b.store.CreateSource(ctx, src); err != nil {
		b.log.Error("create source", "owner_id", owner.ID, "error", err)
		b.reply(chatID, "Failed to add the source. It may already exist.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Source %q added with id %d. Checking every %d min.\n\nUse /bind %d <channel_id> to route it.", src.Title, src.ID, src.IntervalMinutes, src.ID))
}

func (b *Bot) handleSources(ctx context.Context, owner *model.Owner, chatID int64) {
	sources, err := b.store.ListSources(ctx, owner.ID, storage.SourceFilter{})
	if err != nil {
		b.log.Error("list sources", "owner_id", owner.ID, "error", err)
		b.reply(chatID, "Failed to list sources.")
		return
	}
	b.reply(chatID, formatSourceList(sources))
}

func (b *Bot) handleRemoveSource(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	id, err := parseID(args)
	if err != nil {
		b.reply(chatID, "Usage: /removesource <id>")
		return
	}

	if err := b.store.DeleteSource(ctx, id, owner.ID); err != nil {
		b.reply(chatID, fmt.Sprintf("Source %d not found.", id))
		return
	}
	b.reply(chatID, fmt.Sprintf("Source %d removed.", id))
}

func (b *Bot) handleToggleSource(ctx context.Context, owner *model.Owner, chatID int64, args string, active bool) {
	id, err := parseID(args)
	if err != nil {
		b.reply(chatID, "Usage: /pausesource <id> or /resumesource <id>")
		return
	}

	src, err := b.store.GetSource(ctx, id, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Source %d not found.", id))
		return
	}
	src.IsActive = active
	if err := b.store.UpdateSource(ctx, src); err != nil {
		b.log.Error("update source", "source_id", src.ID, "error", err)
		b.reply(chatID, "Failed to update the source.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Source %q is now %s.", src.Title, activeMark(active)))
}

func (b *Bot) handleCheckInterval(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	id, minutes, err := parseIDInterval(args)
	if err != nil {
		b.reply(chatID, "Usage: /checkinterval <source_id> <minutes>")
		return
	}

	src, err := b.store.GetSource(ctx, id, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Source %d not found.", id))
		return
	}
	src.IntervalMinutes = minutes
	if err := b.store.UpdateSource(ctx, src); err != nil {
		b.log.Error("update source", "source_id", src.ID, "error", err)
		b.reply(chatID, "Failed to update the source.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Source %q checked every %d min now.", src.Title, minutes))
}

func (b *Bot) handleBind(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	sourceID, channelID, err := parseIDPair(args)
	if err != nil {
		b.reply(chatID, "Usage: /bind <source_id> <channel_id>")
		return
	}

	src, err := b.store.GetSource(ctx, sourceID, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Source %d not found.", sourceID))
		return
	}
	ch, err := b.store.GetChannel(ctx, channelID, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", channelID))
		return
	}

	bnd := &model.Binding{SourceID: src.ID, ChannelID: ch.ID, IsActive: true}
	if err := b.store.CreateBinding(ctx, bnd); err != nil {
		b.reply(chatID, fmt.Sprintf("%q is already bound to %q.", src.Title, ch.Title))
		return
	}
	b.reply(chatID, fmt.Sprintf("Bound %q to %q.", src.Title, ch.Title))
}

func (b *Bot) handleUnbind(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	sourceID, channelID, err := parseIDPair(args)
	if err != nil {
		b.reply(chatID, "Usage: /unbind <source_id> <channel_id>")
		return
	}

	if _, err := b.store.GetSource(ctx, sourceID, owner.ID); err != nil {
		b.reply(chatID, fmt.Sprintf("Source %d not found.", sourceID))
		return
	}
	if _, err := b.store.GetChannel(ctx, channelID, owner.ID); err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", channelID))
		return
	}

	if err := b.store.DeleteBinding(ctx, sourceID, channelID); err != nil {
		b.reply(chatID, "These entities are not bound.")
		return
	}
	b.reply(chatID, "Binding removed.")
}

func (b *Bot) handleToggleBinding(ctx context.Context, owner *model.Owner, chatID int64, args string, active bool) {
	sourceID, channelID, err := parseIDPair(args)
	if err != nil {
		b.reply(chatID, "Usage: /pausebind <source_id> <channel_id> or /resumebind <source_id> <channel_id>")
		return
	}

	src, err := b.store.GetSource(ctx, sourceID, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Source %d not found.", sourceID))
		return
	}
	ch, err := b.store.GetChannel(ctx, channelID, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", channelID))
		return
	}

	bindings, err := b.store.BindingsForSource(ctx, src.ID)
	if err != nil {
		b.log.Error("list bindings", "source_id", src.ID, "error", err)
		b.reply(chatID, "Failed to update the binding.")
		return
	}
	for _, bnd := range bindings {
		if bnd.Channel.ID != ch.ID {
			continue
		}
		bnd.Binding.IsActive = active
		if err := b.store.UpdateBinding(ctx, &bnd.Binding); err != nil {
			b.log.Error("update binding", "binding_id", bnd.Binding.ID, "error", err)
			b.reply(chatID, "Failed to update the binding.")
			return
		}
		b.reply(chatID, fmt.Sprintf("Binding %q -> %q is now %s.", src.Title, ch.Title, activeMark(active)))
		return
	}
	b.reply(chatID, "These entities are not bound.")
}

func (b *Bot) handleBindings(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	id, err := parseID(args)
	if err != nil {
		b.reply(chatID, "Usage: /bindings <channel_id>")
		return
	}

	ch, err := b.store.GetChannel(ctx, id, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", id))
		return
	}
	bindings, err := b.store.BindingsForChannel(ctx, ch.ID)
	if err != nil {
		b.log.Error("list bindings", "channel_id", ch.ID, "error", err)
		b.reply(chatID, "Failed to list bindings.")
		return
	}
	b.reply(chatID, formatBindingList(ch.Title, bindings))
}

func (b *Bot) handlePosts(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 1 || len(fields) > 2 {
		b.reply(chatID, "Usage: /posts <channel_id> [ready|published|failed|skipped]")
		return
	}
	id, err := parseID(fields[0])
	if err != nil {
		b.reply(chatID, "Usage: /posts <channel_id> [status]")
		return
	}

	ch, err := b.store.GetChannel(ctx, id, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Channel %d not found.", id))
		return
	}

	f := storage.PostFilter{ChannelID: ch.ID, Limit: 10}
	if len(fields) == 2 {
		f.Status = model.PostStatus(strings.ToLower(fields[1]))
	}
	posts, err := b.store.ListPosts(ctx, owner.ID, f)
	if err != nil {
		b.log.Error("list posts", "channel_id", ch.ID, "error", err)
		b.reply(chatID, "Failed to list posts.")
		return
	}
	b.reply(chatID, formatPostList(posts))
}

func (b *Bot) handleIngest(ctx context.Context, owner *model.Owner, chatID int64, args string) {
	id, err := parseID(args)
	if err != nil {
		b.reply(chatID, "Usage: /ingest <source_id>")
		return
	}

	src, err := b.store.GetSource(ctx, id, owner.ID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Source %d not found.", id))
		return
	}

	count, err := b.ingester.Ingest(ctx, src)
	if err != nil {
		b.log.Error("manual ingest", "source_id", src.ID, "error", err)
		b.reply(chatID, fmt.Sprintf("Check of %q failed: %s", src.Title, err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Checked %q, %d new items.", src.Title, count))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
