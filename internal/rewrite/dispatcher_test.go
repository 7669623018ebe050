package rewrite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"newsrelay/internal/model"
	"newsrelay/internal/storage"
)

type mockEngine struct {
	failFor map[string]bool // language codes that should fail
	calls   []Request
}

func (m *mockEngine) Rewrite(_ context.Context, req Request) (string, error) {
	m.calls = append(m.calls, req)
	if m.failFor[req.Language] {
		return "", errors.New("model unavailable")
	}
	return "rewritten: " + req.Text, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *storage.SQLite
	owner    *model.Owner
	src      *model.Source
	channels int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	owner := &model.Owner{TelegramID: 1}
	if err := s.GetOrCreateOwner(ctx, owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}
	src := &model.Source{OwnerID: owner.ID, Type: model.SourceRSS, URL: "https://a.com/rss", Title: "Feed", IsActive: true, IntervalMinutes: 10}
	if err := s.CreateSource(ctx, src); err != nil {
		t.Fatalf("create source: %v", err)
	}
	return &fixture{store: s, owner: owner, src: src}
}

func (f *fixture) addChannel(t *testing.T, title, language string, active bool) *model.Channel {
	t.Helper()
	f.channels++
	ch := &model.Channel{
		OwnerID: f.owner.ID, TelegramID: int64(100 + f.channels), Title: title,
		IsActive: active, IntervalMinutes: 60, Language: language,
	}
	if err := f.store.CreateChannel(context.Background(), ch); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	return ch
}

func (f *fixture) bind(t *testing.T, ch *model.Channel, active bool) {
	t.Helper()
	bnd := &model.Binding{SourceID: f.src.ID, ChannelID: ch.ID, IsActive: active}
	if err := f.store.CreateBinding(context.Background(), bnd); err != nil {
		t.Fatalf("create binding: %v", err)
	}
}

func (f *fixture) addMessage(t *testing.T, text string) *model.RawMessage {
	t.Helper()
	msg := &model.RawMessage{
		OwnerID: f.owner.ID, SourceID: f.src.ID,
		ExternalID: text, Text: text,
		MediaURLs: []string{"https://cdn.example.com/a.jpg"},
	}
	if err := f.store.CreateRawMessage(context.Background(), msg); err != nil {
		t.Fatalf("create raw message: %v", err)
	}
	return msg
}

func TestProcessFansOutToBoundChannels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chUK := f.addChannel(t, "Ukrainian", "uk", true)
	chEN := f.addChannel(t, "English", "en", true)
	f.bind(t, chUK, true)
	f.bind(t, chEN, true)

	msg := f.addMessage(t, "a story long enough to pass moderation")

	engine := &mockEngine{}
	d := NewDispatcher(f.store, engine, testLogger())

	if err := d.Process(ctx, msg.ID, f.owner.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(engine.calls) != 2 {
		t.Fatalf("expected 2 rewrite calls, got %d", len(engine.calls))
	}

	for _, ch := range []*model.Channel{chUK, chEN} {
		posts, err := f.store.ListPosts(ctx, f.owner.ID, storage.PostFilter{ChannelID: ch.ID})
		if err != nil {
			t.Fatalf("list posts: %v", err)
		}
		if len(posts) != 1 {
			t.Fatalf("expected 1 post for channel %s, got %d", ch.Title, len(posts))
		}
		p := posts[0]
		if p.Status != model.StatusReady {
			t.Errorf("expected status ready, got %s", p.Status)
		}
		if p.RawMessageID == nil || *p.RawMessageID != msg.ID {
			t.Errorf("expected post linked to message %d, got %v", msg.ID, p.RawMessageID)
		}
		if len(p.MediaURLs) != 1 {
			t.Errorf("expected media urls carried over, got %v", p.MediaURLs)
		}
	}

	got, _ := f.store.GetRawMessage(ctx, msg.ID, f.owner.ID)
	if !got.IsProcessed {
		t.Error("expected message to be marked processed")
	}
}

func TestProcessSkipsInactiveTargets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	active := f.addChannel(t, "Active", "uk", true)
	paused := f.addChannel(t, "Paused", "uk", false)
	unboundActive := f.addChannel(t, "Suspended", "uk", true)
	f.bind(t, active, true)
	f.bind(t, paused, true)
	f.bind(t, unboundActive, false)

	msg := f.addMessage(t, "a story long enough to pass moderation")

	engine := &mockEngine{}
	d := NewDispatcher(f.store, engine, testLogger())
	if err := d.Process(ctx, msg.ID, f.owner.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(engine.calls) != 1 {
		t.Fatalf("expected 1 rewrite call, got %d", len(engine.calls))
	}
	posts, _ := f.store.ListPosts(ctx, f.owner.ID, storage.PostFilter{})
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].ChannelID != active.ID {
		t.Errorf("expected post for active channel %d, got %d", active.ID, posts[0].ChannelID)
	}
}

func TestProcessPartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chUK := f.addChannel(t, "Ukrainian", "uk", true)
	chEN := f.addChannel(t, "English", "en", true)
	f.bind(t, chUK, true)
	f.bind(t, chEN, true)

	msg := f.addMessage(t, "a story long enough to pass moderation")

	// The engine fails for Ukrainian; English must still get its post
	// and the message still ends up processed.
	engine := &mockEngine{failFor: map[string]bool{"uk": true}}
	d := NewDispatcher(f.store, engine, testLogger())
	if err := d.Process(ctx, msg.ID, f.owner.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	posts, _ := f.store.ListPosts(ctx, f.owner.ID, storage.PostFilter{})
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].ChannelID != chEN.ID {
		t.Errorf("expected post for channel %d, got %d", chEN.ID, posts[0].ChannelID)
	}

	got, _ := f.store.GetRawMessage(ctx, msg.ID, f.owner.ID)
	if !got.IsProcessed {
		t.Error("expected message to be marked processed despite the failure")
	}
}

func TestProcessModerationRejection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ch := f.addChannel(t, "Chan", "uk", true)
	f.bind(t, ch, true)

	msg := f.addMessage(t, "short")

	engine := &mockEngine{}
	d := NewDispatcher(f.store, engine, testLogger())
	if err := d.Process(ctx, msg.ID, f.owner.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(engine.calls) != 0 {
		t.Errorf("expected no rewrite calls, got %d", len(engine.calls))
	}
	posts, _ := f.store.ListPosts(ctx, f.owner.ID, storage.PostFilter{})
	if len(posts) != 0 {
		t.Errorf("expected no posts, got %d", len(posts))
	}
	got, _ := f.store.GetRawMessage(ctx, msg.ID, f.owner.ID)
	if !got.IsProcessed {
		t.Error("expected rejected message to be marked processed")
	}
}

func TestProcessAlreadyProcessed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ch := f.addChannel(t, "Chan", "uk", true)
	f.bind(t, ch, true)

	msg := f.addMessage(t, "a story long enough to pass moderation")

	engine := &mockEngine{}
	d := NewDispatcher(f.store, engine, testLogger())

	if err := d.Process(ctx, msg.ID, f.owner.ID); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if err := d.Process(ctx, msg.ID, f.owner.ID); err != nil {
		t.Fatalf("second process: %v", err)
	}

	if len(engine.calls) != 1 {
		t.Errorf("expected 1 rewrite call across both runs, got %d", len(engine.calls))
	}
	posts, _ := f.store.ListPosts(ctx, f.owner.ID, storage.PostFilter{})
	if len(posts) != 1 {
		t.Errorf("expected 1 post, got %d", len(posts))
	}
}

func TestProcessNoBindings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	msg := f.addMessage(t, "a story long enough to pass moderation")

	engine := &mockEngine{}
	d := NewDispatcher(f.store, engine, testLogger())
	if err := d.Process(ctx, msg.ID, f.owner.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(engine.calls) != 0 {
		t.Errorf("expected no rewrite calls, got %d", len(engine.calls))
	}
	got, _ := f.store.GetRawMessage(ctx, msg.ID, f.owner.ID)
	if !got.IsProcessed {
		t.Error("expected unroutable message to be marked processed")
	}
}

func TestProcessAllPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ch := f.addChannel(t, "Chan", "uk", true)
	f.bind(t, ch, true)

	for _, text := range []string{
		"first story long enough to pass moderation",
		"second story long enough to pass moderation",
		"third story long enough to pass moderation",
	} {
		f.addMessage(t, text)
	}

	engine := &mockEngine{}
	d := NewDispatcher(f.store, engine, testLogger())
	d.ProcessAllPending(ctx, 100)

	posts, _ := f.store.ListPosts(ctx, f.owner.ID, storage.PostFilter{ChannelID: ch.ID})
	if len(posts) != 3 {
		t.Errorf("expected 3 posts, got %d", len(posts))
	}
	remaining, _ := f.store.ListUnprocessed(ctx, 10)
	if len(remaining) != 0 {
		t.Errorf("expected 0 unprocessed messages, got %d", len(remaining))
	}
}
