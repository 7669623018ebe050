package scheduler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"newsrelay/internal/ingest"
	"newsrelay/internal/model"
	"newsrelay/internal/publish"
	"newsrelay/internal/rewrite"
	"newsrelay/internal/storage"
)

type mockHTTP struct {
	body string
}

func (m *mockHTTP) Do(_ *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

type mockEngine struct{}

func (mockEngine) Rewrite(_ context.Context, req rewrite.Request) (string, error) {
	return "rewritten: " + req.Text, nil
}

type mockSender struct {
	mu     sync.Mutex
	sent   []string
	nextID int64
}

func (m *mockSender) SendText(_ int64, text string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	m.nextID++
	return m.nextID, nil
}

func (m *mockSender) SendMedia(chatID int64, text string, _ []string) (int64, error) {
	return m.SendText(chatID, text)
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/feed.xml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func newTestScheduler(store *storage.SQLite, sender publish.Sender, body string) *Scheduler {
	log := testLogger()
	ingester := ingest.NewRunner(store, &mockHTTP{body: body}, log)
	dispatcher := rewrite.NewDispatcher(store, mockEngine{}, log)
	publisher := publish.New(store, sender, log)
	return New(store, ingester, dispatcher, publisher, log)
}

func TestSchedulerPipeline(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	owner := &model.Owner{TelegramID: 1}
	if err := store.GetOrCreateOwner(ctx, owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}
	src := &model.Source{OwnerID: owner.ID, Type: model.SourceRSS, URL: "https://citynews.example.com/rss", Title: "Feed", IsActive: true, IntervalMinutes: 10}
	if err := store.CreateSource(ctx, src); err != nil {
		t.Fatalf("create source: %v", err)
	}
	ch := &model.Channel{OwnerID: owner.ID, TelegramID: -100555, Title: "Chan", IsActive: true, IntervalMinutes: 60, Language: "uk"}
	if err := store.CreateChannel(ctx, ch); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	bnd := &model.Binding{SourceID: src.ID, ChannelID: ch.ID, IsActive: true}
	if err := store.CreateBinding(ctx, bnd); err != nil {
		t.Fatalf("create binding: %v", err)
	}

	sender := &mockSender{}
	sched := newTestScheduler(store, sender, loadFixture(t))

	// The stages run in independent goroutines, so three sweeps carry
	// an item through ingest, rewrite, and publish.
	for i := 0; i < 3; i++ {
		sched.sweep(ctx)
		sched.wg.Wait()
	}

	if sender.count() != 1 {
		t.Fatalf("expected 1 published message, got %d", sender.count())
	}

	published, err := store.ListPosts(ctx, owner.ID, storage.PostFilter{Status: model.StatusPublished})
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(published) != 1 {
		t.Errorf("expected 1 published post, got %d", len(published))
	}

	// The channel just published, so it is no longer due and further
	// sweeps send nothing.
	sched.sweep(ctx)
	sched.wg.Wait()
	if sender.count() != 1 {
		t.Errorf("expected publish cadence to hold, got %d sends", sender.count())
	}
}

func TestSpawnSkipsBusyUnit(t *testing.T) {
	sched := New(newTestStore(t), nil, nil, nil, testLogger())

	release := make(chan struct{})
	started := make(chan struct{})
	var runs int32

	sched.spawn("unit", func() {
		close(started)
		runs++
		<-release
	})
	<-started

	// Same key while the first run is still in flight: skipped.
	sched.spawn("unit", func() { runs++ })

	close(release)
	sched.wg.Wait()

	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}

	// After completion the key is free again.
	sched.spawn("unit", func() { runs++ })
	sched.wg.Wait()
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	sender := &mockSender{}
	sched := newTestScheduler(store, sender, "")
	sched.SetTickInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
