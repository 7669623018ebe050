package bot

import (
	"fmt"
	"strings"

	"newsrelay/internal/content"
	"newsrelay/internal/model"
)

const listTimeLayout = "2006-01-02 15:04"

func activeMark(active bool) string {
	if active {
		return "active"
	}
	return "paused"
}

func formatChannelList(channels []model.Channel) string {
	if len(channels) == 0 {
		return "No channels yet. Use /addchannel to add one."
	}

	var sb strings.Builder
	sb.WriteString("Your channels:\n")
	for _, ch := range channels {
		fmt.Fprintf(&sb, "\n[%d] %s (%s)\n", ch.ID, ch.Title, activeMark(ch.IsActive))
		fmt.Fprintf(&sb, "  chat: %d, every %d min, language: %s\n", ch.TelegramID, ch.IntervalMinutes, ch.Language)
	}
	return sb.String()
}

func formatChannelInfo(ch *model.Channel, bindings []model.ChannelBinding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Channel [%d] %s\n", ch.ID, ch.Title)
	fmt.Fprintf(&sb, "Chat: %d\n", ch.TelegramID)
	fmt.Fprintf(&sb, "Status: %s\n", activeMark(ch.IsActive))
	fmt.Fprintf(&sb, "Publish interval: %d min\n", ch.IntervalMinutes)
	fmt.Fprintf(&sb, "Language: %s\n", ch.Language)
	if ch.StylePrompt != "" {
		fmt.Fprintf(&sb, "Style: %s\n", ch.StylePrompt)
	}
	if ch.LastPublishedAt != nil {
		fmt.Fprintf(&sb, "Last published: %s\n", ch.LastPublishedAt.UTC().Format(listTimeLayout))
	}

	if len(bindings) == 0 {
		sb.WriteString("\nNo sources bound. Use /bind to connect one.")
		return sb.String()
	}
	sb.WriteString("\nBound sources:\n")
	for _, bnd := range bindings {
		fmt.Fprintf(&sb, "  [%d] %s (%s)\n", bnd.Source.ID, bnd.Source.Title, activeMark(bnd.Binding.IsActive))
	}
	return sb.String()
}

func sourceLocator(src *model.Source) string {
	if src.Handle != "" {
		return "@" + src.Handle
	}
	return src.URL
}

func formatSourceList(sources []model.Source) string {
	if len(sources) == 0 {
		return "No sources yet. Use /addsource to add one."
	}

	var sb strings.Builder
	sb.WriteString("Your sources:\n")
	for i := range sources {
		src := &sources[i]
		fmt.Fprintf(&sb, "\n[%d] %s (%s, %s)\n", src.ID, src.Title, src.Type, activeMark(src.IsActive))
		fmt.Fprintf(&sb, "  %s, checked every %d min\n", sourceLocator(src), src.IntervalMinutes)
		if src.LastCheckedAt != nil {
			fmt.Fprintf(&sb, "  last checked: %s\n", src.LastCheckedAt.UTC().Format(listTimeLayout))
		}
	}
	return sb.String()
}

func formatBindingList(channelTitle string, bindings []model.ChannelBinding) string {
	if len(bindings) == 0 {
		return fmt.Sprintf("No sources bound to %s.", channelTitle)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sources bound to %s:\n", channelTitle)
	for _, bnd := range bindings {
		fmt.Fprintf(&sb, "\n[%d] %s (%s, binding %s)\n", bnd.Source.ID, bnd.Source.Title, bnd.Source.Type, activeMark(bnd.Binding.IsActive))
	}
	return sb.String()
}

func formatPostList(posts []model.Post) string {
	if len(posts) == 0 {
		return "No posts found."
	}

	var sb strings.Builder
	sb.WriteString("Posts:\n")
	for i := range posts {
		p := &posts[i]
		fmt.Fprintf(&sb, "\n[%d] %s, %s\n", p.ID, p.Status, p.CreatedAt.UTC().Format(listTimeLayout))
		excerpt := content.Truncate(content.Normalize(p.Text), 120)
		if excerpt != "" {
			fmt.Fprintf(&sb, "  %s\n", excerpt)
		}
		if p.Status == model.StatusFailed && p.ErrorMessage != "" {
			fmt.Fprintf(&sb, "  error: %s\n", p.ErrorMessage)
		}
	}
	return sb.String()
}
