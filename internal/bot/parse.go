package bot

import (
	"fmt"
	"strconv"
	"strings"

	"newsrelay/internal/content"
	"newsrelay/internal/model"
)

func parseID(args string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args)
	}
	return id, nil
}

func parseIDPair(args string) (int64, int64, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two ids, got %d arguments", len(fields))
	}
	first, err := parseID(fields[0])
	if err != nil {
		return 0, 0, err
	}
	second, err := parseID(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}

func parseIDInterval(args string) (int64, int, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected id and minutes, got %d arguments", len(fields))
	}
	id, err := parseID(fields[0])
	if err != nil {
		return 0, 0, err
	}
	minutes, err := strconv.Atoi(fields[1])
	if err != nil || minutes < 1 {
		return 0, 0, fmt.Errorf("invalid interval %q, expected minutes >= 1", fields[1])
	}
	return id, minutes, nil
}

// parseAddChannel parses "<telegram_chat_id> <title...>".
func parseAddChannel(args string) (int64, string, error) {
	fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
		return 0, "", fmt.Errorf("expected chat id and title")
	}
	chatID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || chatID == 0 {
		return 0, "", fmt.Errorf("invalid chat id %q", fields[0])
	}
	return chatID, strings.TrimSpace(fields[1]), nil
}

// parseAddSource parses "<type> <locator> [title...]". The locator is a
// feed URL for rss and website sources and a channel username for
// telegram sources.
func parseAddSource(args string) (*model.Source, error) {
	fields := strings.SplitN(strings.TrimSpace(args), " ", 3)
	if len(fields) < 2 {
		return nil, fmt.Errorf("expected source type and address")
	}

	src := &model.Source{IsActive: true}
	switch model.SourceType(fields[0]) {
	case model.SourceRSS:
		src.Type = model.SourceRSS
		src.URL = fields[1]
	case model.SourceWebsite:
		src.Type = model.SourceWebsite
		src.URL = fields[1]
	case model.SourceTelegram:
		src.Type = model.SourceTelegram
		handle := content.ExtractChannelUsername(fields[1])
		if handle == "" {
			return nil, fmt.Errorf("invalid channel %q, expected @name or t.me/name", fields[1])
		}
		src.Handle = handle
	default:
		return nil, fmt.Errorf("unknown source type %q, expected rss, telegram, or website", fields[0])
	}

	if src.URL != "" && !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
		return nil, fmt.Errorf("invalid url %q", src.URL)
	}

	if len(fields) == 3 {
		src.Title = strings.TrimSpace(fields[2])
	}
	if src.Title == "" {
		if src.Handle != "" {
			src.Title = "@" + src.Handle
		} else {
			src.Title = src.URL
		}
	}
	return src, nil
}
