package vector

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"slack-emoji-bot/internal/models"
)

// PGIndex keeps the similarity index in the same Postgres instance as the
// relational store, using pgvector cosine distance.
type PGIndex struct {
	db *gorm.DB
}

func NewPGIndex(db *gorm.DB) *PGIndex {
	return &PGIndex{db: db}
}

func (i *PGIndex) Insert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]models.EmojiVector, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, models.EmojiVector{
			ID:        e.ID,
			Namespace: e.Namespace,
			Name:      e.Metadata[MetadataName],
			Embedding: pgvector.NewVector(e.Values),
		})
	}

	err := i.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
	return errors.Wrap(err, "insert index entries")
}

func (i *PGIndex) Query(ctx context.Context, values []float32, opts QueryOptions) ([]Match, error) {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}

	var rows []struct {
		ID       string
		Name     string
		Distance float64
	}
	err := i.db.WithContext(ctx).
		Model(&models.EmojiVector{}).
		Select("id, name, embedding <=> ? AS distance", pgvector.NewVector(values)).
		Where("namespace = ?", opts.Namespace).
		Order("distance").
		Limit(opts.TopK).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query index")
	}

	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		m := Match{
			ID: row.ID,
			// Cosine distance is in [0, 2]; report similarity so higher is better.
			Score: 1 - row.Distance,
		}
		if opts.ReturnMetadata {
			m.Metadata = map[string]string{MetadataName: row.Name}
		}
		matches = append(matches, m)
	}
	return matches, nil
}
