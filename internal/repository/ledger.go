package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

// balance рассчитывает баланс партнёра по журналу. Единственная точка подсчёта баланса:
// используется и при чтении, и внутри транзакций списания.
func balance(ctx context.Context, q querier, affiliateID uuid.UUID) (model.Balance, error) {
	rows, err := q.Query(ctx,
		`SELECT direction, status, COALESCE(SUM(points), 0)
		 FROM point_transactions
		 WHERE customer_id = $1 AND status IN ($2, $3)
		 GROUP BY direction, status`,
		affiliateID, string(model.TransactionConfirmed), string(model.TransactionPending),
	)
	if err != nil {
		return model.Balance{}, fmt.Errorf("sum transactions: %w", err)
	}
	defer rows.Close()

	var totals []model.PointTransaction
	for rows.Next() {
		var (
			direction, status string
			sum               int64
		)
		if err := rows.Scan(&direction, &status, &sum); err != nil {
			return model.Balance{}, fmt.Errorf("scan sum: %w", err)
		}
		totals = append(totals, model.PointTransaction{
			Direction: model.Direction(direction),
			Status:    model.TransactionStatus(status),
			Points:    model.PointsFromHundredths(sum),
		})
	}

	if err := rows.Err(); err != nil {
		return model.Balance{}, fmt.Errorf("rows error: %w", err)
	}

	return model.SumBalance(totals), nil
}

// lockAffiliate блокирует строку партнёра до конца транзакции, сериализуя списания,
// и возвращает его статус.
func lockAffiliate(ctx context.Context, tx pgx.Tx, affiliateID uuid.UUID) (model.AffiliateStatus, error) {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM affiliates WHERE id = $1 FOR UPDATE`, affiliateID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAffiliateNotFound
		}
		return "", fmt.Errorf("lock affiliate for update: %w", err)
	}
	return model.AffiliateStatus(status), nil
}

func insertTransaction(ctx context.Context, q querier, t *model.PointTransaction) (bool, error) {
	var refID, refType *string
	if t.ReferenceID != "" {
		refID, refType = &t.ReferenceID, &t.ReferenceType
	}

	err := q.QueryRow(ctx,
		`INSERT INTO point_transactions
			(customer_id, points, direction, category, status, reference_id, reference_type, description, actor_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (reference_id, reference_type, category) WHERE reference_id IS NOT NULL DO NOTHING
		 RETURNING id, created_at`,
		t.AffiliateID, model.PointsToHundredths(t.Points), string(t.Direction), string(t.Category),
		string(t.Status), refID, refType, t.Description, string(t.ActorType),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	return true, nil
}

// GetBalance возвращает баланс партнёра.
func (r *PostgresRepository) GetBalance(ctx context.Context, affiliateID uuid.UUID) (model.Balance, error) {
	return balance(ctx, r.pool, affiliateID)
}

// ListTransactions возвращает журнал партнёра, новые записи первыми.
func (r *PostgresRepository) ListTransactions(ctx context.Context, affiliateID uuid.UUID, f model.TransactionFilter) ([]model.PointTransaction, error) {
	args := []any{affiliateID}
	conds := []string{"customer_id = $1"}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, string(f.Category))
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	args = append(args, limitOrDefault(f.Limit), max(f.Offset, 0))

	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_id, points, direction, category, status,
		        COALESCE(reference_id, ''), COALESCE(reference_type, ''), description, actor_type, created_at
		 FROM point_transactions
		 WHERE `+strings.Join(conds, " AND ")+
			fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.PointTransaction
	for rows.Next() {
		var (
			t                                  model.PointTransaction
			points                             int64
			direction, category, status, actor string
		)
		if err := rows.Scan(&t.ID, &t.AffiliateID, &points, &direction, &category, &status,
			&t.ReferenceID, &t.ReferenceType, &t.Description, &actor, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Points = model.PointsFromHundredths(points)
		t.Direction = model.Direction(direction)
		t.Category = model.Category(category)
		t.Status = model.TransactionStatus(status)
		t.ActorType = model.ActorType(actor)
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// HasReference сообщает, записана ли уже транзакция с такой внешней ссылкой и категорией.
func (r *PostgresRepository) HasReference(ctx context.Context, referenceID, referenceType string, category model.Category) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM point_transactions
			WHERE reference_id = $1 AND reference_type = $2 AND category = $3
		 )`,
		referenceID, referenceType, string(category),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reference: %w", err)
	}
	return exists, nil
}

// CreditTransaction записывает начисление. Повтор по той же внешней ссылке возвращает ErrDuplicateReference.
func (r *PostgresRepository) CreditTransaction(ctx context.Context, t *model.PointTransaction) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		inserted, err := insertTransaction(ctx, r.pool, t)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrDuplicateReference
		}
		return nil
	})
}

// AdjustBalance записывает ручную корректировку. Строка партнёра блокируется, баланс
// пересчитывается в той же транзакции, списание в минус отклоняется.
func (r *PostgresRepository) AdjustBalance(ctx context.Context, t *model.PointTransaction) (model.Balance, error) {
	var result model.Balance

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAffiliate(ctx, tx, t.AffiliateID); err != nil {
			return err
		}

		current, err := balance(ctx, tx, t.AffiliateID)
		if err != nil {
			return err
		}

		next, err := model.ApplyMovement(current, t.Direction, t.Points)
		if err != nil {
			return err
		}

		inserted, err := insertTransaction(ctx, tx, t)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrDuplicateReference
		}

		result = next
		return nil
	})

	return result, err
}

const exchangeColumns = `id, customer_id, points_requested, exchange_type, status, requested_at, processed_at, admin_note`

func scanExchange(row pgx.Row) (*model.PointExchange, error) {
	var (
		e                    model.PointExchange
		points               int64
		exchangeType, status string
	)
	if err := row.Scan(&e.ID, &e.AffiliateID, &points, &exchangeType, &status,
		&e.RequestedAt, &e.ProcessedAt, &e.AdminNote); err != nil {
		return nil, err
	}
	e.PointsRequested = model.PointsFromHundredths(points)
	e.ExchangeType = model.ExchangeType(exchangeType)
	e.Status = model.ExchangeStatus(status)
	return &e, nil
}

// CreateExchange создаёт заявку на обмен в статусе pending. Баланс на этом шаге не проверяется.
func (r *PostgresRepository) CreateExchange(ctx context.Context, e *model.PointExchange) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Status = model.ExchangePending

	err := r.pool.QueryRow(ctx,
		`INSERT INTO point_exchanges (id, customer_id, points_requested, exchange_type, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING requested_at`,
		e.ID, e.AffiliateID, model.PointsToHundredths(e.PointsRequested), string(e.ExchangeType), string(e.Status),
	).Scan(&e.RequestedAt)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// GetExchange возвращает заявку по идентификатору.
func (r *PostgresRepository) GetExchange(ctx context.Context, id uuid.UUID) (*model.PointExchange, error) {
	e, err := scanExchange(r.pool.QueryRow(ctx,
		`SELECT `+exchangeColumns+` FROM point_exchanges WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExchangeNotFound
		}
		return nil, fmt.Errorf("get exchange: %w", err)
	}
	return e, nil
}

// ListExchanges возвращает заявки по фильтру, старые первыми.
func (r *PostgresRepository) ListExchanges(ctx context.Context, f model.ExchangeFilter) ([]model.PointExchange, error) {
	var (
		conds []string
		args  []any
	)
	if f.AffiliateID != nil {
		args = append(args, *f.AffiliateID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + exchangeColumns + ` FROM point_exchanges`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limitOrDefault(f.Limit), max(f.Offset, 0))
	query += fmt.Sprintf(` ORDER BY requested_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select exchanges: %w", err)
	}
	defer rows.Close()

	var res []model.PointExchange
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		res = append(res, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func lockPendingExchange(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.PointExchange, error) {
	e, err := scanExchange(tx.QueryRow(ctx,
		`SELECT `+exchangeColumns+` FROM point_exchanges WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExchangeNotFound
		}
		return nil, fmt.Errorf("lock exchange: %w", err)
	}
	if err := e.EnsurePending(); err != nil {
		return nil, err
	}
	return e, nil
}

func resolveExchange(ctx context.Context, tx pgx.Tx, e *model.PointExchange, status model.ExchangeStatus, note string) error {
	now := time.Now().UTC()
	_, err := tx.Exec(ctx,
		`UPDATE point_exchanges SET status = $2, processed_at = $3, admin_note = $4 WHERE id = $1`,
		e.ID, string(status), now, note)
	if err != nil {
		return fmt.Errorf("update exchange: %w", err)
	}
	e.Status = status
	e.ProcessedAt = &now
	e.AdminNote = note
	return nil
}

// ApproveExchange одобряет заявку: в одной транзакции блокирует заявку и партнёра,
// пересчитывает баланс и либо списывает баллы и помечает заявку approved, либо
// переводит её в rejected с заметкой rejectNote. Во втором случае возвращается
// обновлённая заявка вместе с ErrInsufficientBalance. Заявка деактивированного
// партнёра не меняется, возвращается ErrAffiliateInactive.
func (r *PostgresRepository) ApproveExchange(ctx context.Context, id uuid.UUID, note, rejectNote string) (*model.PointExchange, error) {
	var (
		result       *model.PointExchange
		insufficient bool
	)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		insufficient = false

		e, err := lockPendingExchange(ctx, tx, id)
		if err != nil {
			return err
		}

		status, err := lockAffiliate(ctx, tx, e.AffiliateID)
		if err != nil {
			return err
		}

		current, err := balance(ctx, tx, e.AffiliateID)
		if err != nil {
			return err
		}

		decision, err := model.DecideExchange(*e, status, current)
		if err != nil {
			return err
		}
		if decision == model.ExchangeRejected {
			insufficient = true
			result = e
			return resolveExchange(ctx, tx, e, model.ExchangeRejected, rejectNote)
		}

		debit := &model.PointTransaction{
			AffiliateID:   e.AffiliateID,
			Points:        e.PointsRequested,
			Direction:     model.DirectionOut,
			Category:      model.CategoryExchange,
			Status:        model.TransactionConfirmed,
			ReferenceID:   e.ID.String(),
			ReferenceType: model.ReferencePointExchange,
			Description:   fmt.Sprintf("Canje %s", e.ExchangeType),
			ActorType:     model.ActorAdmin,
		}
		inserted, err := insertTransaction(ctx, tx, debit)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrDuplicateReference
		}

		result = e
		return resolveExchange(ctx, tx, e, model.ExchangeApproved, note)
	})
	if err != nil {
		return nil, err
	}

	if insufficient {
		return result, ErrInsufficientBalance
	}
	return result, nil
}

// RejectExchange отклоняет заявку с заметкой администратора.
func (r *PostgresRepository) RejectExchange(ctx context.Context, id uuid.UUID, note string) (*model.PointExchange, error) {
	var result *model.PointExchange

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		e, err := lockPendingExchange(ctx, tx, id)
		if err != nil {
			return err
		}
		result = e
		return resolveExchange(ctx, tx, e, model.ExchangeRejected, note)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
