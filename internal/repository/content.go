package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

// ListContent возвращает элементы баннеров или новостей в порядке показа.
func (r *PostgresRepository) ListContent(ctx context.Context, kind model.ContentKind) ([]model.ContentItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, position, title, image_url, link_url, body, active
		 FROM banners
		 WHERE kind = $1
		 ORDER BY position, id`,
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("select content: %w", err)
	}
	defer rows.Close()

	var res []model.ContentItem
	for rows.Next() {
		var (
			item model.ContentItem
			k    string
		)
		if err := rows.Scan(&item.ID, &k, &item.Position, &item.Title, &item.ImageURL,
			&item.LinkURL, &item.Body, &item.Active); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		item.Kind = model.ContentKind(k)
		res = append(res, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ReplaceContent атомарно заменяет упорядоченный список элементов указанного вида.
func (r *PostgresRepository) ReplaceContent(ctx context.Context, kind model.ContentKind, items []model.ContentItem) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM banners WHERE kind = $1`, string(kind)); err != nil {
			return fmt.Errorf("delete content: %w", err)
		}

		batch := &pgx.Batch{}
		for i, item := range items {
			id := item.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			batch.Queue(
				`INSERT INTO banners (id, kind, position, title, image_url, link_url, body, active)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				id, string(kind), i, item.Title, item.ImageURL, item.LinkURL, item.Body, item.Active,
			)
		}

		if batch.Len() == 0 {
			return nil
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert content: %w", err)
		}
		return nil
	})
}
