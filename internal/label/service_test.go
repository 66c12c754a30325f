package label

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
	texts []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	return f.vec, f.err
}

type fakeIndex struct {
	inserted []vector.Entry
	err      error
}

func (f *fakeIndex) Insert(ctx context.Context, entries []vector.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, entries...)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, values []float32, opts vector.QueryOptions) ([]vector.Match, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *database.DB, *fakeEmbedder, *fakeIndex) {
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

	store := &database.DB{DB: gormDB}
	embedder := &fakeEmbedder{vec: []float32{0.5, 0.5}}
	index := &fakeIndex{}
	return NewService(store, embedder, index, zap.NewNop()), store, embedder, index
}

func TestRegisterLabel_SyncsIndex(t *testing.T) {
	svc, store, _, index := newTestService(t)
	ctx := context.Background()

	if err := svc.RegisterLabel(ctx, "tada", "celebration and praise", "U1", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	emoji, err := store.GetEmoji(ctx, "tada")
	if err != nil {
		t.Fatalf("get emoji: %v", err)
	}
	if len(index.inserted) != 1 {
		t.Fatalf("expected 1 index entry, got %d", len(index.inserted))
	}
	entry := index.inserted[0]
	if entry.ID != emoji.ID {
		t.Fatalf("index id %q does not match store id %q", entry.ID, emoji.ID)
	}
	if entry.Namespace != vector.NamespaceEmoji {
		t.Fatalf("unexpected namespace %q", entry.Namespace)
	}
	if entry.Metadata[vector.MetadataName] != "tada" {
		t.Fatalf("unexpected metadata: %v", entry.Metadata)
	}
}

func TestRegisterLabel_RelabelKeepsSingleRow(t *testing.T) {
	svc, store, _, index := newTestService(t)
	ctx := context.Background()

	if err := svc.RegisterLabel(ctx, "tada", "first", "U1", "alice"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := svc.RegisterLabel(ctx, "tada", "second", "U1", "alice"); err != nil {
		t.Fatalf("second register: %v", err)
	}

	var count int64
	store.Model(&models.Emoji{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 emoji row, got %d", count)
	}
	emoji, _ := store.GetEmoji(ctx, "tada")
	if emoji.Label != "second" {
		t.Fatalf("expected latest label, got %q", emoji.Label)
	}
	if len(index.inserted) != 2 || index.inserted[1].ID != emoji.ID {
		t.Fatalf("expected reindex with same id, got %+v", index.inserted)
	}
}

func TestRegisterLabel_EmptyLabelSkipsIndex(t *testing.T) {
	svc, _, embedder, index := newTestService(t)

	if err := svc.RegisterLabel(context.Background(), "eyes", "", "U1", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(embedder.texts) != 0 || len(index.inserted) != 0 {
		t.Fatal("empty label must not be embedded or indexed")
	}
}

func TestRegisterLabel_EmbedFailurePropagates(t *testing.T) {
	svc, _, embedder, _ := newTestService(t)
	embedder.err = errors.New("gateway down")

	err := svc.RegisterLabel(context.Background(), "tada", "celebration", "U1", "alice")
	if err == nil {
		t.Fatal("expected error when embedding fails")
	}
}

func TestEditLabel_UnknownEmoji(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.EditLabel(context.Background(), "ghost", "new label", "U1")
	if !errors.Is(err, database.ErrEmojiNotFound) {
		t.Fatalf("expected ErrEmojiNotFound, got %v", err)
	}
}

func TestDeleteLabel_NonOwnerDenied(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.RegisterLabel(ctx, "tada", "celebration", "U1", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := svc.DeleteLabel(ctx, "tada", "U2")
	if !errors.Is(err, database.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := store.GetEmoji(ctx, "tada"); err != nil {
		t.Fatalf("emoji should survive a denied delete: %v", err)
	}
}

func TestRecordReaction_CountsOnce(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	ev := ReactionEvent{
		Emoji:         "tada",
		UserID:        "U1",
		ItemUserID:    "U2",
		ItemChannel:   "C1",
		ItemTimestamp: "1700000000.000100",
	}

	if err := svc.RecordReaction(ctx, ev); err != nil {
		t.Fatalf("first record: %v", err)
	}
	// Slack redelivers; second record must be silently absorbed.
	if err := svc.RecordReaction(ctx, ev); err != nil {
		t.Fatalf("redelivered record: %v", err)
	}

	var reactionCount int64
	store.Model(&models.Reaction{}).Count(&reactionCount)
	if reactionCount != 1 {
		t.Fatalf("expected 1 reaction row, got %d", reactionCount)
	}
	emoji, _ := store.GetEmoji(ctx, "tada")
	if emoji.ReactionCount != 1 {
		t.Fatalf("expected counter 1, got %d", emoji.ReactionCount)
	}
}

func TestRecordReaction_DoesNotClobberLabel(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.RegisterLabel(ctx, "tada", "celebration", "U1", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	ev := ReactionEvent{Emoji: "tada", UserID: "U2", ItemChannel: "C1", ItemTimestamp: "1"}
	if err := svc.RecordReaction(ctx, ev); err != nil {
		t.Fatalf("record: %v", err)
	}

	emoji, _ := store.GetEmoji(ctx, "tada")
	if emoji.Label != "celebration" {
		t.Fatalf("reaction clobbered the label: %q", emoji.Label)
	}
}

func TestRecordReaction_IgnoresIncompleteEvents(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	if err := svc.RecordReaction(context.Background(), ReactionEvent{Emoji: "tada"}); err != nil {
		t.Fatalf("incomplete event should be a no-op, got %v", err)
	}
	var count int64
	store.Model(&models.Reaction{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no rows, got %d", count)
	}
}

func TestStats_ReflectsUsage(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.RegisterLabel(ctx, "tada", "celebration", "U1", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, user := range []string{"U2", "U3"} {
		ev := ReactionEvent{Emoji: "tada", UserID: user, ItemChannel: "C1", ItemTimestamp: "1"}
		if err := svc.RecordReaction(ctx, ev); err != nil {
			t.Fatalf("record %s: %v", user, err)
		}
	}

	stats, err := svc.Stats(ctx, "tada")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReactions != 2 || stats.UniqueUsers != 2 || stats.UniqueMessages != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
