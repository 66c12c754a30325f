package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"slack-emoji-bot/internal/models"
)

type DB struct {
	*gorm.DB
}

func NewDB(host, user, password, dbname string, port int) (*DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		host, user, password, dbname, port)

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Enable pgvector extension
	if err := gormDB.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, err
	}

	// Auto migrate
	if err := gormDB.AutoMigrate(
		&models.User{},
		&models.Emoji{},
		&models.Message{},
		&models.Reaction{},
		&models.EmojiVector{},
	); err != nil {
		return nil, err
	}

	return &DB{gormDB}, nil
}
