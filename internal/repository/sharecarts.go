package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

const sharecartColumns = `id, token, customer_id, items, status, shopify_order_id, created_at, completed_at`

func scanSharecart(row pgx.Row) (*model.Sharecart, error) {
	var (
		s      model.Sharecart
		items  []byte
		status string
	)
	if err := row.Scan(&s.ID, &s.Token, &s.AffiliateID, &items, &status,
		&s.ShopifyOrderID, &s.CreatedAt, &s.CompletedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &s.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	s.Status = model.SharecartStatus(status)
	return &s, nil
}

// CreateSharecart сохраняет новую корзину в статусе pending.
func (r *PostgresRepository) CreateSharecart(ctx context.Context, s *model.Sharecart) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Status = model.SharecartPending

	items, err := json.Marshal(s.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO sharecarts (id, token, customer_id, items, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		s.ID, s.Token, s.AffiliateID, items, string(s.Status),
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sharecart: %w", err)
	}
	return nil
}

// ListSharecarts возвращает корзины, при необходимости одного партнёра и в одном статусе.
func (r *PostgresRepository) ListSharecarts(ctx context.Context, affiliateID *uuid.UUID, status model.SharecartStatus, limit, offset int) ([]model.Sharecart, error) {
	var (
		conds []string
		args  []any
	)
	if affiliateID != nil {
		args = append(args, *affiliateID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, string(status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + sharecartColumns + ` FROM sharecarts`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limitOrDefault(limit), max(offset, 0))
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select sharecarts: %w", err)
	}
	defer rows.Close()

	var res []model.Sharecart
	for rows.Next() {
		s, err := scanSharecart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sharecart: %w", err)
		}
		res = append(res, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CompleteSharecart связывает корзину с заказом Shopify. Повторная отметка уже завершённой
// корзины ничего не меняет.
func (r *PostgresRepository) CompleteSharecart(ctx context.Context, token, orderID string) (*model.Sharecart, error) {
	s, err := scanSharecart(r.pool.QueryRow(ctx,
		`UPDATE sharecarts SET status = $2, shopify_order_id = $3, completed_at = $4
		 WHERE token = $1 AND status = $5
		 RETURNING `+sharecartColumns,
		token, string(model.SharecartCompleted), orderID, time.Now().UTC(), string(model.SharecartPending)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSharecartNotFound
		}
		return nil, fmt.Errorf("complete sharecart: %w", err)
	}
	return s, nil
}
