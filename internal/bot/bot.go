// Package bot implements the Telegram admin surface used to configure
// channels, sources, and bindings.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsrelay/internal/config"
	"newsrelay/internal/ingest"
	"newsrelay/internal/model"
	"newsrelay/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that handles configuration commands.
type Bot struct {
	api      telegramAPI
	store    storage.Storage
	cfg      *config.Config
	ingester *ingest.Runner
	log      *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store storage.Storage, cfg *config.Config, ingester *ingest.Runner, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:      api,
		store:    store,
		cfg:      cfg,
		ingester: ingester,
		log:      log,
	}, nil
}

// API exposes the underlying bot client so the publisher can share the
// same authorized session.
func (b *Bot) API() *tgbotapi.BotAPI {
	api, _ := b.api.(*tgbotapi.BotAPI)
	return api
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}

// ownerFor resolves the owner row for the user issuing a command. Every
// handler goes through it so all data stays scoped per owner.
func (b *Bot) ownerFor(ctx context.Context, from *tgbotapi.User) (*model.Owner, error) {
	owner := &model.Owner{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	}
	if err := b.store.GetOrCreateOwner(ctx, owner); err != nil {
		return nil, err
	}
	return owner, nil
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	owner, err := b.ownerFor(ctx, msg.From)
	if err != nil {
		b.log.Error("resolve owner", "user_id", msg.From.ID, "error", err)
		b.reply(chatID, "Internal error, try again later.")
		return
	}

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "addchannel":
		b.handleAddChannel(ctx, owner, chatID, args)
	case "channels":
		b.handleChannels(ctx, owner, chatID)
	case "channel":
		b.handleChannelInfo(ctx, owner, chatID, args)
	case "removechannel":
		b.handleRemoveChannel(ctx, owner, chatID, args)
	case "pausechannel":
		b.handleToggleChannel(ctx, owner, chatID, args, false)
	case "resumechannel":
		b.handleToggleChannel(ctx, owner, chatID, args, true)
	case "interval":
		b.handleInterval(ctx, owner, chatID, args)
	case "language":
		b.handleLanguage(ctx, owner, chatID, args)
	case "style":
		b.handleStyle(ctx, owner, chatID, args)
	case "addsource":
		b.handleAddSource(ctx, owner, chatID, args)
	case "sources":
		b.handleSources(ctx, owner, chatID)
	case "removesource":
		b.handleRemoveSource(ctx, owner, chatID, args)
	case "pausesource":
		b.handleToggleSource(ctx, owner, chatID, args, false)
	case "resumesource":
		b.handleToggleSource(ctx, owner, chatID, args, true)
	case "checkinterval":
		b.handleCheckInterval(ctx, owner, chatID, args)
	case "bind":
		b.handleBind(ctx, owner, chatID, args)
	case "unbind":
		b.handleUnbind(ctx, owner, chatID, args)
	case "pausebind":
		b.handleToggleBinding(ctx, owner, chatID, args, false)
	case "resumebind":
		b.handleToggleBinding(ctx, owner, chatID, args, true)
	case "bindings":
		b.handleBindings(ctx, owner, chatID, args)
	case "posts":
		b.handlePosts(ctx, owner, chatID, args)
	case "ingest":
		b.handleIngest(ctx, owner, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
