package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"listening-quiz-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	Position int             `bun:"position,pk"`
	ID       string          `bun:"id,notnull"`
	Data     domain.Question `bun:"data,type:jsonb,notnull"`
}

// Seeder replaces the catalog with a new ordered question list.
type Seeder struct {
	db *bun.DB
}

func NewSeeder(db *bun.DB) *Seeder {
	return &Seeder{db: db}
}

// Seed writes questions in order; positions beyond the new list are removed.
func (s *Seeder) Seed(ctx context.Context, questions []domain.Question) error {
	rows := make([]questionRow, len(questions))
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
		rows[i] = questionRow{Position: i, ID: q.ID, Data: q}
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*questionRow)(nil)).
			Where("position >= ?", len(rows)).
			Exec(ctx); err != nil {
			return fmt.Errorf("trim catalog: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (position) DO UPDATE").
			Set("id = EXCLUDED.id").
			Set("data = EXCLUDED.data").
			Exec(ctx); err != nil {
			return fmt.Errorf("upsert catalog: %w", err)
		}
		return nil
	})
}
