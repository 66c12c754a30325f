package label

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"slack-emoji-bot/internal/database"
)

// ReactionEvent is the typed shape of a "reaction added" event.
type ReactionEvent struct {
	Emoji         string
	UserID        string
	ItemUserID    string
	ItemChannel   string
	ItemTimestamp string
}

// RecordReaction resolves the reacting user and the emoji (creating either
// on first sight) and bumps the usage counter. Slack redelivers reaction
// events, so a duplicate is expected and swallowed without touching the
// counter a second time.
func (s *Service) RecordReaction(ctx context.Context, ev ReactionEvent) error {
	if ev.Emoji == "" || ev.UserID == "" || ev.ItemChannel == "" || ev.ItemTimestamp == "" {
		return nil
	}

	user, err := s.store.GetOrCreateUser(ctx, ev.UserID, "?")
	if err != nil {
		return err
	}

	emoji, err := s.store.GetOrCreateEmoji(ctx, ev.Emoji, user.ID)
	if err != nil {
		return err
	}

	// The reacted-to message may predate the bot; make sure its row exists
	// so the reaction has something to own it.
	messageID := ev.ItemChannel + "-" + ev.ItemTimestamp
	authorID := user.ID
	if ev.ItemUserID != "" {
		author, err := s.store.GetOrCreateUser(ctx, ev.ItemUserID, "?")
		if err != nil {
			return err
		}
		authorID = author.ID
	}
	if err := s.store.CreateMessage(ctx, messageID, "", authorID, ev.ItemChannel); err != nil {
		return err
	}

	err = s.store.CreateReaction(ctx, messageID, user.ID, emoji.ID)
	if errors.Is(err, database.ErrDuplicateReaction) {
		s.log.Debug("duplicate reaction ignored",
			zap.String("message_id", messageID),
			zap.String("emoji", ev.Emoji))
		return nil
	}
	return err
}
