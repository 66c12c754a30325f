package label

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"slack-emoji-bot/internal/ai"
	"slack-emoji-bot/internal/database"
	"slack-emoji-bot/internal/vector"
)

// Service owns the label write paths: every successful label upsert is
// mirrored into the similarity index so the relational store and the index
// never drift apart. It also records user-initiated reactions.
type Service struct {
	store    *database.DB
	embedder ai.Embedder
	index    vector.Index
	log      *zap.Logger
}

func NewService(store *database.DB, embedder ai.Embedder, index vector.Index, log *zap.Logger) *Service {
	return &Service{store: store, embedder: embedder, index: index, log: log}
}

// RegisterLabel upserts an emoji label and reindexes its embedding. The
// emoji name must already be stripped of colons.
func (s *Service) RegisterLabel(ctx context.Context, name, labelText, slackUserID, userName string) error {
	user, err := s.store.GetOrCreateUser(ctx, slackUserID, userName)
	if err != nil {
		return err
	}

	emojiID, err := s.store.UpsertEmoji(ctx, name, labelText, user.ID)
	if err != nil {
		return err
	}

	// Only labeled emojis belong in the index; an empty label has no
	// semantic content to embed.
	if labelText == "" {
		return nil
	}
	return s.reindex(ctx, emojiID, name, labelText)
}

// EditLabel relabels an existing emoji. Unlike RegisterLabel it refuses to
// create the emoji as a side effect.
func (s *Service) EditLabel(ctx context.Context, name, newLabel, slackUserID string) error {
	emoji, err := s.store.GetEmoji(ctx, name)
	if err != nil {
		return err
	}
	if _, err := s.store.UpsertEmoji(ctx, emoji.Name, newLabel, emoji.CreatorID); err != nil {
		return err
	}
	if newLabel == "" {
		return nil
	}
	return s.reindex(ctx, emoji.ID, emoji.Name, newLabel)
}

// DeleteLabel removes an emoji on behalf of a Slack user. Store-layer
// ErrEmojiNotFound / ErrPermissionDenied pass through for the command layer
// to translate.
func (s *Service) DeleteLabel(ctx context.Context, name, slackUserID string) error {
	user, err := s.store.GetOrCreateUser(ctx, slackUserID, "?")
	if err != nil {
		return err
	}
	return s.store.DeleteEmoji(ctx, name, user.ID)
}

// List returns one page of registered emojis, most used first.
func (s *Service) List(ctx context.Context, page int) (*database.EmojiPage, error) {
	return s.store.ListEmojis(ctx, page, database.DefaultPageSize)
}

// Stats aggregates reaction usage for one emoji name.
func (s *Service) Stats(ctx context.Context, name string) (*database.EmojiStats, error) {
	emoji, err := s.store.GetEmoji(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.store.GetEmojiStats(ctx, emoji.ID)
}

func (s *Service) reindex(ctx context.Context, emojiID, name, labelText string) error {
	embedding, err := s.embedder.Embed(ctx, labelText)
	if err != nil {
		return errors.Wrap(err, "embed label")
	}
	return s.index.Insert(ctx, []vector.Entry{{
		ID:        emojiID,
		Values:    embedding,
		Namespace: vector.NamespaceEmoji,
		Metadata:  map[string]string{vector.MetadataName: name},
	}})
}
