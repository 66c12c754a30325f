package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// User is created lazily the first time we see a Slack user post or react.
// SlackID is the workspace-scoped token ("U..."), ID is our own identifier.
type User struct {
	ID         string `gorm:"primaryKey;size:36"`
	SlackID    string `gorm:"uniqueIndex;not null"`
	Name       string `gorm:"not null"`
	TotalPoint int    `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Emoji is a unicode or custom emoji short-code (stored without colons)
// plus the free-text label used to build its embedding.
type Emoji struct {
	ID            string `gorm:"primaryKey;size:36"`
	Name          string `gorm:"uniqueIndex;not null"`
	Label         string `gorm:"type:text"`
	ReactionCount int    `gorm:"not null;default:0"`
	CreatorID     string `gorm:"size:36;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Message identity is "<channel>-<ts>", assigned by the caller so the same
// id can be referenced before the row is committed.
type Message struct {
	ID        string `gorm:"primaryKey;size:191"`
	Text      string `gorm:"type:text"`
	UserID    string `gorm:"size:36;not null"`
	ChannelID string `gorm:"not null"`
	CreatedAt time.Time
}

// Reaction rows are unique per (message, user, emoji); duplicate inserts are
// how redelivered reaction events get rejected.
type Reaction struct {
	ID        string `gorm:"primaryKey;size:36"`
	MessageID string `gorm:"size:191;not null;uniqueIndex:idx_reaction_identity"`
	UserID    string `gorm:"size:36;not null;uniqueIndex:idx_reaction_identity"`
	EmojiID   string `gorm:"size:36;not null;uniqueIndex:idx_reaction_identity"`
	CreatedAt time.Time
}

// EmojiWithCreator is the read model for listings.
type EmojiWithCreator struct {
	ID            string
	Name          string
	Label         string
	ReactionCount int
	CreatorName   string
	CreatedAt     time.Time
}

// EmojiVector is one similarity-index entry: the embedding of an emoji's
// label, partitioned by namespace. ID matches the Emoji row.
type EmojiVector struct {
	ID        string          `gorm:"primaryKey;size:36"`
	Namespace string          `gorm:"index;not null"`
	Name      string          `gorm:"not null"`
	Embedding pgvector.Vector `gorm:"type:vector(1024)"` // multilingual-e5-large embedding size
	UpdatedAt time.Time
}
