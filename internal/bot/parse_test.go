package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"newsrelay/internal/model"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    int64
		wantErr bool
	}{
		{"valid", "42", 42, false},
		{"with spaces", "  7  ", 7, false},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseID(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseID(%q) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseIDPair(t *testing.T) {
	first, second, err := parseIDPair("3 9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != 3 || second != 9 {
		t.Errorf("got (%d, %d), want (3, 9)", first, second)
	}

	for _, args := range []string{"", "1", "1 2 3", "a b"} {
		if _, _, err := parseIDPair(args); err == nil {
			t.Errorf("expected error for %q", args)
		}
	}
}

func TestParseIDInterval(t *testing.T) {
	id, minutes, err := parseIDInterval("4 15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 4 || minutes != 15 {
		t.Errorf("got (%d, %d), want (4, 15)", id, minutes)
	}

	for _, args := range []string{"", "4", "4 0", "4 -5", "4 soon"} {
		if _, _, err := parseIDInterval(args); err == nil {
			t.Errorf("expected error for %q", args)
		}
	}
}

func TestParseAddChannel(t *testing.T) {
	chatID, title, err := parseAddChannel("-100123 My News Channel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chatID != -100123 {
		t.Errorf("expected chat id -100123, got %d", chatID)
	}
	if title != "My News Channel" {
		t.Errorf("expected multi-word title, got %q", title)
	}

	for _, args := range []string{"", "-100123", "abc Title", "0 Title"} {
		if _, _, err := parseAddChannel(args); err == nil {
			t.Errorf("expected error for %q", args)
		}
	}
}

func TestParseAddSource(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    *model.Source
		wantErr bool
	}{
		{
			name: "rss with title",
			args: "rss https://a.com/rss City Feed",
			want: &model.Source{Type: model.SourceRSS, URL: "https://a.com/rss", Title: "City Feed", IsActive: true},
		},
		{
			name: "rss title defaults to url",
			args: "rss https://a.com/rss",
			want: &model.Source{Type: model.SourceRSS, URL: "https://a.com/rss", Title: "https://a.com/rss", IsActive: true},
		},
		{
			name: "telegram at form",
			args: "telegram @citynews",
			want: &model.Source{Type: model.SourceTelegram, Handle: "citynews", Title: "@citynews", IsActive: true},
		},
		{
			name: "telegram link form",
			args: "telegram https://t.me/citynews Local News",
			want: &model.Source{Type: model.SourceTelegram, Handle: "citynews", Title: "Local News", IsActive: true},
		},
		{
			name: "website",
			args: "website https://example.com/news",
			want: &model.Source{Type: model.SourceWebsite, URL: "https://example.com/news", Title: "https://example.com/news", IsActive: true},
		},
		{"unknown type", "pigeon https://a.com", nil, true},
		{"missing address", "rss", nil, true},
		{"bad url", "rss ftp://a.com/rss", nil, true},
		{"bad handle", "telegram not-a-handle!", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAddSource(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseAddSource mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatChannelInfo(t *testing.T) {
	published := time.Date(2026, 8, 20, 12, 30, 0, 0, time.UTC)
	ch := &model.Channel{
		ID: 1, TelegramID: -100123, Title: "City News", IsActive: true,
		IntervalMinutes: 60, Language: "uk", StylePrompt: "upbeat",
		LastPublishedAt: &published,
	}
	bindings := []model.ChannelBinding{
		{
			Binding: model.Binding{ID: 1, IsActive: true},
			Source:  model.Source{ID: 7, Title: "Feed A", Type: model.SourceRSS},
		},
	}

	got := formatChannelInfo(ch, bindings)
	for _, want := range []string{"City News", "Chat: -100123", "60 min", "uk", "upbeat", "2026-08-20 12:30", "Feed A"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected info to contain %q, got:\n%s", want, got)
		}
	}

	empty := formatChannelInfo(ch, nil)
	if !strings.Contains(empty, "No sources bound") {
		t.Errorf("expected empty-bindings hint, got:\n%s", empty)
	}
}

func TestFormatSourceList(t *testing.T) {
	if got := formatSourceList(nil); !strings.Contains(got, "No sources yet") {
		t.Errorf("expected empty hint, got %q", got)
	}

	sources := []model.Source{
		{ID: 1, Title: "Feed A", Type: model.SourceRSS, URL: "https://a.com/rss", IsActive: true, IntervalMinutes: 10},
		{ID: 2, Title: "@citynews", Type: model.SourceTelegram, Handle: "citynews", IsActive: false, IntervalMinutes: 5},
	}
	got := formatSourceList(sources)
	for _, want := range []string{"Feed A", "https://a.com/rss", "@citynews", "paused"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected list to contain %q, got:\n%s", want, got)
		}
	}
}

func TestFormatPostList(t *testing.T) {
	if got := formatPostList(nil); !strings.Contains(got, "No posts") {
		t.Errorf("expected empty hint, got %q", got)
	}

	posts := []model.Post{
		{ID: 1, Status: model.StatusPublished, Text: "a published story", CreatedAt: time.Now()},
		{ID: 2, Status: model.StatusFailed, Text: "a failed story", ErrorMessage: "chat not found", CreatedAt: time.Now()},
	}
	got := formatPostList(posts)
	for _, want := range []string{"published", "a published story", "failed", "error: chat not found"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected list to contain %q, got:\n%s", want, got)
		}
	}

	long := []model.Post{{ID: 3, Status: model.StatusReady, Text: strings.Repeat("x", 500), CreatedAt: time.Now()}}
	if lines := formatPostList(long); strings.Contains(lines, strings.Repeat("x", 200)) {
		t.Error("expected long post text to be truncated in the list")
	}
}
