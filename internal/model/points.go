package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance возвращается, если движение баллов увело бы доступный баланс в минус.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrExchangeNotPending возвращается при попытке повторно обработать заявку.
	ErrExchangeNotPending = errors.New("exchange is not pending")
	// ErrAffiliateInactive возвращается при операциях с баллами деактивированного партнёра.
	ErrAffiliateInactive = errors.New("affiliate is inactive")
)

// Баллы хранятся в БД целым числом сотых долей.
const pointsScale = 2

// PointsToHundredths переводит баллы в сотые доли с округлением до двух знаков.
func PointsToHundredths(p decimal.Decimal) int64 {
	return p.Round(pointsScale).Shift(pointsScale).IntPart()
}

// PointsFromHundredths восстанавливает баллы из сотых долей.
func PointsFromHundredths(v int64) decimal.Decimal {
	return decimal.New(v, -pointsScale)
}

// SumBalance рассчитывает баланс по набору транзакций: учитываются только подтверждённые
// записи для Available, ожидающие для Pending.
func SumBalance(txs []PointTransaction) Balance {
	var b Balance
	var pendingIn, pendingOut decimal.Decimal
	for _, t := range txs {
		switch t.Status {
		case TransactionConfirmed:
			if t.Direction == DirectionIn {
				b.TotalIn = b.TotalIn.Add(t.Points)
			} else {
				b.TotalOut = b.TotalOut.Add(t.Points)
			}
		case TransactionPending:
			if t.Direction == DirectionIn {
				pendingIn = pendingIn.Add(t.Points)
			} else {
				pendingOut = pendingOut.Add(t.Points)
			}
		}
	}
	b.Available = b.TotalIn.Sub(b.TotalOut)
	b.Pending = pendingIn.Sub(pendingOut)
	return b
}

// ApplyMovement возвращает баланс после подтверждённого движения amount в направлении dir.
// Если доступный остаток становится отрицательным, возвращается ErrInsufficientBalance
// и исходный баланс.
func ApplyMovement(current Balance, dir Direction, amount decimal.Decimal) (Balance, error) {
	next := current
	switch dir {
	case DirectionIn:
		next.TotalIn = current.TotalIn.Add(amount)
		next.Available = current.Available.Add(amount)
	case DirectionOut:
		next.TotalOut = current.TotalOut.Add(amount)
		next.Available = current.Available.Sub(amount)
	default:
		return current, fmt.Errorf("unknown direction %q", dir)
	}

	if next.Available.IsNegative() {
		return current, ErrInsufficientBalance
	}
	return next, nil
}

// EnsurePending проверяет, что заявку ещё можно одобрить или отклонить.
func (e PointExchange) EnsurePending() error {
	if e.Status != ExchangePending {
		return fmt.Errorf("%w: %s", ErrExchangeNotPending, e.Status)
	}
	return nil
}

// DecideExchange определяет исход одобрения заявки при текущем балансе партнёра:
// ExchangeApproved, если баллов хватает, иначе ExchangeRejected. Обработанная заявка
// и деактивированный партнёр дают ошибку, и заявка остаётся как есть.
func DecideExchange(e PointExchange, affiliate AffiliateStatus, current Balance) (ExchangeStatus, error) {
	if err := e.EnsurePending(); err != nil {
		return "", err
	}
	if affiliate == AffiliateStatusInactive {
		return "", ErrAffiliateInactive
	}
	if _, err := ApplyMovement(current, DirectionOut, e.PointsRequested); err != nil {
		return ExchangeRejected, nil
	}
	return ExchangeApproved, nil
}
