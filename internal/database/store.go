package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"slack-emoji-bot/internal/models"
)

const DefaultPageSize = 10

// EmojiPage is one page of the emoji listing, most-used first.
type EmojiPage struct {
	Emojis  []models.EmojiWithCreator
	Total   int64
	HasMore bool
}

// EmojiStats aggregates reaction usage for a single emoji.
type EmojiStats struct {
	TotalReactions int64
	UniqueUsers    int64
	UniqueMessages int64
}

// GetOrCreateUser resolves a Slack user token to our User row, inserting on
// first sight. Concurrent calls for the same token race on the unique index;
// the loser falls back to reading the winner's row.
func (db *DB) GetOrCreateUser(ctx context.Context, slackID, name string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("slack_id = ?", slackID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "get user")
	}

	user = models.User{ID: uuid.NewString(), SlackID: slackID, Name: name}
	err = db.WithContext(ctx).Create(&user).Error
	if err == nil {
		return &user, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var existing models.User
		if rerr := db.WithContext(ctx).Where("slack_id = ?", slackID).First(&existing).Error; rerr != nil {
			return nil, errors.Wrap(rerr, "reread user after duplicate insert")
		}
		return &existing, nil
	}
	return nil, errors.Wrap(err, "create user")
}

// GetEmoji looks an emoji up by its short-code (no colons).
func (db *DB) GetEmoji(ctx context.Context, name string) (*models.Emoji, error) {
	var emoji models.Emoji
	err := db.WithContext(ctx).Where("name = ?", name).First(&emoji).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEmojiNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get emoji")
	}
	return &emoji, nil
}

// GetOrCreateEmoji resolves an emoji by name, inserting a row with an empty
// label on first sight. Unlike UpsertEmoji it never touches an existing
// label, so recording a reaction cannot clobber a registered label.
func (db *DB) GetOrCreateEmoji(ctx context.Context, name, creatorID string) (*models.Emoji, error) {
	emoji, err := db.GetEmoji(ctx, name)
	if err == nil {
		return emoji, nil
	}
	if !errors.Is(err, ErrEmojiNotFound) {
		return nil, err
	}

	created := models.Emoji{ID: uuid.NewString(), Name: name, CreatorID: creatorID}
	err = db.WithContext(ctx).Create(&created).Error
	if err == nil {
		return &created, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return db.GetEmoji(ctx, name)
	}
	return nil, errors.Wrap(err, "create emoji")
}

// UpsertEmoji registers or relabels an emoji and returns its id. The name is
// the natural key: a second call with the same name updates the label in
// place, leaving creator and counters alone.
func (db *DB) UpsertEmoji(ctx context.Context, name, label, creatorID string) (string, error) {
	emoji, err := db.GetEmoji(ctx, name)
	if err == nil {
		uerr := db.WithContext(ctx).Model(&models.Emoji{}).
			Where("id = ?", emoji.ID).
			Update("label", label).Error
		if uerr != nil {
			return "", errors.Wrap(uerr, "update emoji label")
		}
		return emoji.ID, nil
	}
	if !errors.Is(err, ErrEmojiNotFound) {
		return "", err
	}

	created := models.Emoji{ID: uuid.NewString(), Name: name, Label: label, CreatorID: creatorID}
	cerr := db.WithContext(ctx).Create(&created).Error
	if cerr == nil {
		return created.ID, nil
	}
	if errors.Is(cerr, gorm.ErrDuplicatedKey) {
		// Concurrent register of the same name; retry as an update.
		return db.UpsertEmoji(ctx, name, label, creatorID)
	}
	return "", errors.Wrap(cerr, "create emoji")
}

// DeleteEmoji removes an emoji and every reaction referencing it in one
// transaction. Only the creator may delete.
func (db *DB) DeleteEmoji(ctx context.Context, name, requesterID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var emoji models.Emoji
		err := tx.Where("name = ?", name).First(&emoji).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEmojiNotFound
		}
		if err != nil {
			return errors.Wrap(err, "get emoji for delete")
		}
		if emoji.CreatorID != requesterID {
			return ErrPermissionDenied
		}
		if err := tx.Where("emoji_id = ?", emoji.ID).Delete(&models.Reaction{}).Error; err != nil {
			return errors.Wrap(err, "delete reactions")
		}
		if err := tx.Delete(&models.Emoji{}, "id = ?", emoji.ID).Error; err != nil {
			return errors.Wrap(err, "delete emoji")
		}
		return nil
	})
}

// CreateMessage records a chat message once; replays of the same
// (channel, ts) identity are no-ops.
func (db *DB) CreateMessage(ctx context.Context, id, text, userID, channelID string) error {
	msg := models.Message{ID: id, Text: text, UserID: userID, ChannelID: channelID}
	err := db.WithContext(ctx).FirstOrCreate(&msg, models.Message{ID: id}).Error
	return errors.Wrap(err, "create message")
}

// CreateReaction inserts a Reaction row and bumps the emoji's counter as one
// atomic unit. A redelivered (message, user, emoji) triple fails with
// ErrDuplicateReaction and leaves the counter untouched.
func (db *DB) CreateReaction(ctx context.Context, messageID, userID, emojiID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reaction := models.Reaction{
			ID:        uuid.NewString(),
			MessageID: messageID,
			UserID:    userID,
			EmojiID:   emojiID,
		}
		if err := tx.Create(&reaction).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReaction
			}
			return errors.Wrap(err, "create reaction")
		}

		res := tx.Model(&models.Emoji{}).
			Where("id = ?", emojiID).
			UpdateColumn("reaction_count", gorm.Expr("reaction_count + ?", 1))
		if res.Error != nil {
			return errors.Wrap(res.Error, "increment reaction count")
		}
		if res.RowsAffected == 0 {
			return ErrEmojiNotFound
		}
		return nil
	})
}

// ListEmojis pages through registered emojis ordered by usage, most recent
// first among ties.
func (db *DB) ListEmojis(ctx context.Context, page, pageSize int) (*EmojiPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	offset := (page - 1) * pageSize

	var total int64
	if err := db.WithContext(ctx).Model(&models.Emoji{}).Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, "count emojis")
	}

	var emojis []models.EmojiWithCreator
	err := db.WithContext(ctx).Model(&models.Emoji{}).
		Select("emojis.id, emojis.name, emojis.label, emojis.reaction_count, emojis.created_at, users.name AS creator_name").
		Joins("LEFT JOIN users ON users.id = emojis.creator_id").
		Order("emojis.reaction_count DESC, emojis.created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Scan(&emojis).Error
	if err != nil {
		return nil, errors.Wrap(err, "list emojis")
	}

	return &EmojiPage{
		Emojis:  emojis,
		Total:   total,
		HasMore: int64(offset+pageSize) < total,
	}, nil
}

// GetEmojiStats aggregates usage for one emoji id.
func (db *DB) GetEmojiStats(ctx context.Context, emojiID string) (*EmojiStats, error) {
	var stats EmojiStats
	if err := db.WithContext(ctx).Model(&models.Reaction{}).
		Where("emoji_id = ?", emojiID).
		Count(&stats.TotalReactions).Error; err != nil {
		return nil, errors.Wrap(err, "count reactions")
	}
	if err := db.WithContext(ctx).Model(&models.Reaction{}).
		Where("emoji_id = ?", emojiID).
		Distinct("user_id").
		Count(&stats.UniqueUsers).Error; err != nil {
		return nil, errors.Wrap(err, "count unique users")
	}
	if err := db.WithContext(ctx).Model(&models.Reaction{}).
		Where("emoji_id = ?", emojiID).
		Distinct("message_id").
		Count(&stats.UniqueMessages).Error; err != nil {
		return nil, errors.Wrap(err, "count unique messages")
	}
	return &stats, nil
}
