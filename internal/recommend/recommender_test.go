package recommend

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"slack-emoji-bot/internal/database"
	"slack-emoji-bot/internal/models"
	"slack-emoji-bot/internal/vector"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

type fakeIndex struct {
	matches []vector.Match
	err     error
	gotVec  []float32
	gotOpts vector.QueryOptions
}

func (f *fakeIndex) Insert(ctx context.Context, entries []vector.Entry) error { return nil }

func (f *fakeIndex) Query(ctx context.Context, values []float32, opts vector.QueryOptions) ([]vector.Match, error) {
	f.gotVec = values
	f.gotOpts = opts
	return f.matches, f.err
}

type fakeReactor struct {
	added   []string
	failFor map[string]error
}

func (f *fakeReactor) AddReaction(ctx context.Context, channel, timestamp, name string) error {
	if err, ok := f.failFor[name]; ok {
		return err
	}
	f.added = append(f.added, name)
	return nil
}

func openTestStore(t *testing.T) *database.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := gormDB.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := gormDB.AutoMigrate(&models.User{}, &models.Emoji{}, &models.Message{}, &models.Reaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &database.DB{DB: gormDB}
}

func named(name string, score float64) vector.Match {
	return vector.Match{Score: score, Metadata: map[string]string{vector.MetadataName: name}}
}

func testEvent() MessageEvent {
	return MessageEvent{
		Channel:   "C1",
		Timestamp: "1700000000.000100",
		Text:      "great job everyone",
		UserID:    "U1",
	}
}

func TestHandleMessage_DeduplicatesAndKeepsRankOrder(t *testing.T) {
	store := openTestStore(t)
	embedder := &fakeEmbedder{vec: []float32{0.1, 0.2}}
	index := &fakeIndex{matches: []vector.Match{
		named("tada", 0.9),
		named("+1", 0.8),
		named("tada", 0.7),
	}}
	reactor := &fakeReactor{}

	r := NewRecommender(store, embedder, index, reactor, zap.NewNop())
	r.HandleMessage(context.Background(), testEvent())

	want := []string{"tada", "+1"}
	if len(reactor.added) != len(want) {
		t.Fatalf("expected reactions %v, got %v", want, reactor.added)
	}
	for i := range want {
		if reactor.added[i] != want[i] {
			t.Fatalf("expected reactions %v in rank order, got %v", want, reactor.added)
		}
	}

	if index.gotOpts.Namespace != vector.NamespaceEmoji || index.gotOpts.TopK != 3 || !index.gotOpts.ReturnMetadata {
		t.Fatalf("unexpected query options: %+v", index.gotOpts)
	}
}

func TestHandleMessage_EmbeddingFailureDegrades(t *testing.T) {
	store := openTestStore(t)
	embedder := &fakeEmbedder{err: errors.New("boom")}
	index := &fakeIndex{}
	reactor := &fakeReactor{}

	r := NewRecommender(store, embedder, index, reactor, zap.NewNop())
	r.HandleMessage(context.Background(), testEvent())

	if len(reactor.added) != 3 {
		t.Fatalf("expected 3 fallback reactions, got %d (%v)", len(reactor.added), reactor.added)
	}
	seen := map[string]bool{}
	for _, name := range reactor.added {
		if seen[name] {
			t.Fatalf("fallback produced duplicate %q: %v", name, reactor.added)
		}
		seen[name] = true
	}
}

func TestHandleMessage_QueryFailureDegrades(t *testing.T) {
	store := openTestStore(t)
	embedder := &fakeEmbedder{vec: []float32{1}}
	index := &fakeIndex{err: errors.New("index down")}
	reactor := &fakeReactor{}

	r := NewRecommender(store, embedder, index, reactor, zap.NewNop())
	r.HandleMessage(context.Background(), testEvent())

	if len(reactor.added) != 3 {
		t.Fatalf("expected 3 fallback reactions, got %d", len(reactor.added))
	}
}

func TestHandleMessage_GuardsSkipPipeline(t *testing.T) {
	tests := []struct {
		name string
		ev   MessageEvent
	}{
		{"bot message subtype", MessageEvent{Channel: "C1", Timestamp: "1", Text: "hi", Subtype: "bot_message"}},
		{"bot authored", MessageEvent{Channel: "C1", Timestamp: "1", Text: "hi", BotID: "B1"}},
		{"missing channel", MessageEvent{Timestamp: "1", Text: "hi"}},
		{"missing timestamp", MessageEvent{Channel: "C1", Text: "hi"}},
		{"missing text", MessageEvent{Channel: "C1", Timestamp: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := openTestStore(t)
			embedder := &fakeEmbedder{vec: []float32{1}}
			reactor := &fakeReactor{}

			r := NewRecommender(store, embedder, &fakeIndex{}, reactor, zap.NewNop())
			r.HandleMessage(context.Background(), tt.ev)

			if embedder.calls != 0 {
				t.Fatal("guard should have stopped before embedding")
			}
			if len(reactor.added) != 0 {
				t.Fatalf("guard should have stopped before reacting, got %v", reactor.added)
			}
		})
	}
}

func TestHandleMessage_ReactionFailureDoesNotAbortRest(t *testing.T) {
	store := openTestStore(t)
	embedder := &fakeEmbedder{vec: []float32{1}}
	index := &fakeIndex{matches: []vector.Match{
		named("bad_emoji", 0.9),
		named("+1", 0.8),
		named("eyes", 0.7),
	}}
	reactor := &fakeReactor{failFor: map[string]error{"bad_emoji": errors.New("invalid_name")}}

	r := NewRecommender(store, embedder, index, reactor, zap.NewNop())
	r.HandleMessage(context.Background(), testEvent())

	want := []string{"+1", "eyes"}
	if len(reactor.added) != len(want) || reactor.added[0] != want[0] || reactor.added[1] != want[1] {
		t.Fatalf("expected %v after one failed attempt, got %v", want, reactor.added)
	}
}

func TestHandleMessage_PersistsUserAndMessage(t *testing.T) {
	store := openTestStore(t)
	embedder := &fakeEmbedder{vec: []float32{1}}
	reactor := &fakeReactor{}

	r := NewRecommender(store, embedder, &fakeIndex{}, reactor, zap.NewNop())
	ev := testEvent()
	r.HandleMessage(context.Background(), ev)

	var userCount, msgCount int64
	store.Model(&models.User{}).Count(&userCount)
	store.Model(&models.Message{}).Count(&msgCount)
	if userCount != 1 || msgCount != 1 {
		t.Fatalf("expected 1 user and 1 message persisted, got %d/%d", userCount, msgCount)
	}

	var msg models.Message
	store.First(&msg, "id = ?", ev.MessageID())
	if msg.Text != ev.Text || msg.ChannelID != ev.Channel {
		t.Fatalf("unexpected message row: %+v", msg)
	}
}

func TestFallbackMatches_BoundedAndDistinct(t *testing.T) {
	matches := FallbackMatches(3)
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	seen := map[string]bool{}
	for _, m := range matches {
		name := m.Metadata[vector.MetadataName]
		if name == "" {
			t.Fatal("fallback match missing name metadata")
		}
		if seen[name] {
			t.Fatalf("duplicate fallback emoji %q", name)
		}
		seen[name] = true
		if m.Score != 1 {
			t.Fatalf("expected uniform placeholder score, got %v", m.Score)
		}
	}

	// Asking for more than the curated list holds stays bounded.
	if got := len(FallbackMatches(100)); got != len(fallbackEmojis) {
		t.Fatalf("expected %d matches, got %d", len(fallbackEmojis), got)
	}
}
