package recommend

import (
	"context"

	"go.uber.org/zap"

	"slack-emoji-bot/internal/ai"
	"slack-emoji-bot/internal/database"
	"slack-emoji-bot/internal/vector"
)

const defaultTopK = 3

// MessageEvent is the typed shape of a "message posted" event after the
// transport layer has narrowed Slack's payload.
type MessageEvent struct {
	Channel   string
	Timestamp string
	Text      string
	UserID    string
	Subtype   string
	BotID     string
}

// MessageID is the internal identity of a chat message.
func (e MessageEvent) MessageID() string {
	return e.Channel + "-" + e.Timestamp
}

// Reactor adds a single emoji reaction to a message. Implemented by the
// Slack transport; faked in tests.
type Reactor interface {
	AddReaction(ctx context.Context, channel, timestamp, name string) error
}

// Recommender runs the recommendation pipeline for posted messages:
// persist, embed, query the similarity index, and fan reactions out. Any
// failure on the ML path degrades to the curated fallback set, so the user
// always sees some reaction.
type Recommender struct {
	store    *database.DB
	embedder ai.Embedder
	index    vector.Index
	reactor  Reactor
	log      *zap.Logger
	topK     int
}

func NewRecommender(store *database.DB, embedder ai.Embedder, index vector.Index, reactor Reactor, log *zap.Logger) *Recommender {
	return &Recommender{
		store:    store,
		embedder: embedder,
		index:    index,
		reactor:  reactor,
		log:      log,
		topK:     defaultTopK,
	}
}

// HandleMessage processes one posted message end to end. It never returns
// an error: every effect is best-effort against the chat transport.
func (r *Recommender) HandleMessage(ctx context.Context, ev MessageEvent) {
	if ev.Subtype == "bot_message" || ev.BotID != "" {
		return
	}
	if ev.Channel == "" || ev.Timestamp == "" || ev.Text == "" {
		return
	}

	r.persistMessage(ctx, ev)

	matches := r.recommend(ctx, ev.Text)
	r.applyReactions(ctx, ev.Channel, ev.Timestamp, matches)
}

func (r *Recommender) persistMessage(ctx context.Context, ev MessageEvent) {
	if ev.UserID == "" {
		return
	}
	user, err := r.store.GetOrCreateUser(ctx, ev.UserID, "?")
	if err != nil {
		r.log.Error("resolve message author", zap.String("slack_user", ev.UserID), zap.Error(err))
		return
	}
	if err := r.store.CreateMessage(ctx, ev.MessageID(), ev.Text, user.ID, ev.Channel); err != nil {
		r.log.Error("persist message", zap.String("message_id", ev.MessageID()), zap.Error(err))
	}
}

func (r *Recommender) recommend(ctx context.Context, text string) []vector.Match {
	embedding, err := r.embedder.Embed(ctx, text)
	if err != nil {
		r.log.Warn("embedding failed, degrading to random emojis", zap.Error(err))
		return FallbackMatches(r.topK)
	}

	matches, err := r.index.Query(ctx, embedding, vector.QueryOptions{
		TopK:           r.topK,
		Namespace:      vector.NamespaceEmoji,
		ReturnMetadata: true,
	})
	if err != nil {
		r.log.Warn("similarity query failed, degrading to random emojis", zap.Error(err))
		return FallbackMatches(r.topK)
	}
	return matches
}

// applyReactions adds one reaction per distinct emoji name, in rank order.
// Each attempt is independent: an invalid name or a permission error is
// logged and the remaining reactions still go out.
func (r *Recommender) applyReactions(ctx context.Context, channel, timestamp string, matches []vector.Match) {
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		name := match.Metadata[vector.MetadataName]
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if err := r.reactor.AddReaction(ctx, channel, timestamp, name); err != nil {
			r.log.Warn("add reaction failed",
				zap.String("channel", channel),
				zap.String("emoji", name),
				zap.Error(err))
		}
	}
}
