package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

const affiliateColumns = `id, name, email, phone, shopify_customer_id, shopify_collection_id,
	status, clabe_interbancaria, storefront_active, created_at, updated_at`

func scanAffiliate(row pgx.Row) (*model.Affiliate, error) {
	var (
		a      model.Affiliate
		status string
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.ShopifyCustomerID, &a.ShopifyCollectionID,
		&status, &a.CLABE, &a.StorefrontActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = model.AffiliateStatus(status)
	return &a, nil
}

// CreateAffiliate сохраняет нового партнёра.
func (r *PostgresRepository) CreateAffiliate(ctx context.Context, a *model.Affiliate) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO affiliates (id, name, email, phone, shopify_customer_id, shopify_collection_id, status, clabe_interbancaria)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		a.ID, a.Name, a.Email, a.Phone, a.ShopifyCustomerID, a.ShopifyCollectionID, string(a.Status), a.CLABE,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAffiliateExists, a.Email)
		}
		return fmt.Errorf("create affiliate: %w", err)
	}
	return nil
}

// GetAffiliate возвращает партнёра по идентификатору.
func (r *PostgresRepository) GetAffiliate(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	a, err := scanAffiliate(r.pool.QueryRow(ctx,
		`SELECT `+affiliateColumns+` FROM affiliates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("get affiliate: %w", err)
	}
	return a, nil
}

// GetAffiliateByShopifyCustomer возвращает партнёра по идентификатору покупателя Shopify.
func (r *PostgresRepository) GetAffiliateByShopifyCustomer(ctx context.Context, customerID int64) (*model.Affiliate, error) {
	a, err := scanAffiliate(r.pool.QueryRow(ctx,
		`SELECT `+affiliateColumns+` FROM affiliates WHERE shopify_customer_id = $1`, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("get affiliate by shopify customer: %w", err)
	}
	return a, nil
}

// ListAffiliates возвращает партнёров по фильтру, новые первыми.
func (r *PostgresRepository) ListAffiliates(ctx context.Context, f model.AffiliateFilter) ([]model.Affiliate, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + affiliateColumns + ` FROM affiliates`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limitOrDefault(f.Limit), max(f.Offset, 0))
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select affiliates: %w", err)
	}
	defer rows.Close()

	var res []model.Affiliate
	for rows.Next() {
		a, err := scanAffiliate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan affiliate: %w", err)
		}
		res = append(res, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListAffiliatesWithCollection возвращает всех партнёров, у которых есть витрина в Shopify.
func (r *PostgresRepository) ListAffiliatesWithCollection(ctx context.Context) ([]model.Affiliate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+affiliateColumns+` FROM affiliates WHERE shopify_collection_id <> '' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select affiliates with collection: %w", err)
	}
	defer rows.Close()

	var res []model.Affiliate
	for rows.Next() {
		a, err := scanAffiliate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan affiliate: %w", err)
		}
		res = append(res, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateAffiliate применяет непустые поля обновления и возвращает актуальную запись.
func (r *PostgresRepository) UpdateAffiliate(ctx context.Context, id uuid.UUID, u model.AffiliateUpdate) (*model.Affiliate, error) {
	a, err := scanAffiliate(r.pool.QueryRow(ctx,
		`UPDATE affiliates SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			shopify_collection_id = COALESCE($4, shopify_collection_id),
			clabe_interbancaria = COALESCE($5, clabe_interbancaria),
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+affiliateColumns,
		id, u.Name, u.Phone, u.ShopifyCollectionID, u.CLABE))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("update affiliate: %w", err)
	}
	return a, nil
}

// SetAffiliateStatus меняет статус партнёра.
func (r *PostgresRepository) SetAffiliateStatus(ctx context.Context, id uuid.UUID, status model.AffiliateStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE affiliates SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("update affiliate status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAffiliateNotFound
	}
	return nil
}

// SetStorefrontActive сохраняет результат синхронизации витрины и сообщает, изменилось ли значение.
func (r *PostgresRepository) SetStorefrontActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE affiliates SET storefront_active = $2, updated_at = NOW()
		 WHERE id = $1 AND storefront_active IS DISTINCT FROM $2`,
		id, active)
	if err != nil {
		return false, fmt.Errorf("update storefront status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
