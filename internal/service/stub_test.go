package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
	"github.com/mmeshcher/affiliate-backoffice/internal/repository"
	"github.com/mmeshcher/affiliate-backoffice/internal/shopify"
)

// memRepo хранит данные в памяти с тем же контрактом, что и repository.PostgresRepository.
type memRepo struct {
	mu sync.Mutex

	affiliates map[uuid.UUID]*model.Affiliate
	txs        []model.PointTransaction
	exchanges  map[uuid.UUID]*model.PointExchange
	content    map[model.ContentKind][]model.ContentItem
	sharecarts map[string]*model.Sharecart
	nextTxID   int64

	contentErr        error
	replaceContentErr error
	// skipReferenceCheck имитирует гонку двух доставок: предварительная проверка
	// ничего не находит, дубликат ловит уникальный индекс.
	skipReferenceCheck bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		affiliates: make(map[uuid.UUID]*model.Affiliate),
		exchanges:  make(map[uuid.UUID]*model.PointExchange),
		content:    make(map[model.ContentKind][]model.ContentItem),
		sharecarts: make(map[string]*model.Sharecart),
	}
}

func (r *memRepo) addAffiliate(status model.AffiliateStatus) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	r.affiliates[id] = &model.Affiliate{ID: id, Name: "Ana", Email: id.String() + "@example.com", Status: status}
	return id
}

func (r *memRepo) addTx(affiliateID uuid.UUID, direction model.Direction, points string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTxID++
	r.txs = append(r.txs, model.PointTransaction{
		ID:          r.nextTxID,
		AffiliateID: affiliateID,
		Points:      decimal.RequireFromString(points),
		Direction:   direction,
		Category:    model.CategoryManual,
		Status:      model.TransactionConfirmed,
	})
}

func (r *memRepo) txCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs)
}

func (r *memRepo) balanceLocked(id uuid.UUID) model.Balance {
	var own []model.PointTransaction
	for _, t := range r.txs {
		if t.AffiliateID == id {
			own = append(own, t)
		}
	}
	return model.SumBalance(own)
}

func (r *memRepo) hasReferenceLocked(refID, refType string, category model.Category) bool {
	for _, t := range r.txs {
		if t.ReferenceID != "" && t.ReferenceID == refID && t.ReferenceType == refType && t.Category == category {
			return true
		}
	}
	return false
}

func (r *memRepo) insertLocked(t *model.PointTransaction) bool {
	if t.ReferenceID != "" && r.hasReferenceLocked(t.ReferenceID, t.ReferenceType, t.Category) {
		return false
	}
	r.nextTxID++
	t.ID = r.nextTxID
	t.CreatedAt = time.Now()
	r.txs = append(r.txs, *t)
	return true
}

func (r *memRepo) Close() error                   { return nil }
func (r *memRepo) Ping(ctx context.Context) error { return nil }

func (r *memRepo) CreateAffiliate(ctx context.Context, a *model.Affiliate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.affiliates {
		if existing.Email == a.Email {
			return repository.ErrAffiliateExists
		}
	}
	a.ID = uuid.New()
	cp := *a
	r.affiliates[a.ID] = &cp
	return nil
}

func (r *memRepo) GetAffiliate(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.affiliates[id]
	if !ok {
		return nil, repository.ErrAffiliateNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) GetAffiliateByShopifyCustomer(ctx context.Context, customerID int64) (*model.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.affiliates {
		if a.ShopifyCustomerID != nil && *a.ShopifyCustomerID == customerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAffiliateNotFound
}

func (r *memRepo) ListAffiliates(ctx context.Context, f model.AffiliateFilter) ([]model.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.Affiliate
	for _, a := range r.affiliates {
		if f.Status == "" || a.Status == f.Status {
			res = append(res, *a)
		}
	}
	return res, nil
}

func (r *memRepo) ListAffiliatesWithCollection(ctx context.Context) ([]model.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.Affiliate
	for _, a := range r.affiliates {
		if a.ShopifyCollectionID != "" {
			res = append(res, *a)
		}
	}
	return res, nil
}

func (r *memRepo) UpdateAffiliate(ctx context.Context, id uuid.UUID, u model.AffiliateUpdate) (*model.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.affiliates[id]
	if !ok {
		return nil, repository.ErrAffiliateNotFound
	}
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Phone != nil {
		a.Phone = *u.Phone
	}
	if u.ShopifyCollectionID != nil {
		a.ShopifyCollectionID = *u.ShopifyCollectionID
	}
	if u.CLABE != nil {
		a.CLABE = *u.CLABE
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) SetAffiliateStatus(ctx context.Context, id uuid.UUID, status model.AffiliateStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.affiliates[id]
	if !ok {
		return repository.ErrAffiliateNotFound
	}
	a.Status = status
	return nil
}

func (r *memRepo) SetStorefrontActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.affiliates[id]
	if !ok {
		return false, repository.ErrAffiliateNotFound
	}
	changed := a.StorefrontActive != active
	a.StorefrontActive = active
	return changed, nil
}

func (r *memRepo) GetBalance(ctx context.Context, affiliateID uuid.UUID) (model.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balanceLocked(affiliateID), nil
}

func (r *memRepo) ListTransactions(ctx context.Context, affiliateID uuid.UUID, f model.TransactionFilter) ([]model.PointTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.PointTransaction
	for i := len(r.txs) - 1; i >= 0; i-- {
		t := r.txs[i]
		if t.AffiliateID == affiliateID && (f.Status == "" || t.Status == f.Status) {
			res = append(res, t)
		}
	}
	return res, nil
}

func (r *memRepo) HasReference(ctx context.Context, referenceID, referenceType string, category model.Category) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.skipReferenceCheck {
		return false, nil
	}
	return r.hasReferenceLocked(referenceID, referenceType, category), nil
}

func (r *memRepo) CreditTransaction(ctx context.Context, t *model.PointTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.insertLocked(t) {
		return repository.ErrDuplicateReference
	}
	return nil
}

func (r *memRepo) AdjustBalance(ctx context.Context, t *model.PointTransaction) (model.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.affiliates[t.AffiliateID]; !ok {
		return model.Balance{}, repository.ErrAffiliateNotFound
	}

	next, err := model.ApplyMovement(r.balanceLocked(t.AffiliateID), t.Direction, t.Points)
	if err != nil {
		return model.Balance{}, err
	}

	r.insertLocked(t)
	return next, nil
}

func (r *memRepo) CreateExchange(ctx context.Context, e *model.PointExchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.ID = uuid.New()
	e.Status = model.ExchangePending
	e.RequestedAt = time.Now()
	cp := *e
	r.exchanges[e.ID] = &cp
	return nil
}

func (r *memRepo) GetExchange(ctx context.Context, id uuid.UUID) (*model.PointExchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.exchanges[id]
	if !ok {
		return nil, repository.ErrExchangeNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memRepo) ListExchanges(ctx context.Context, f model.ExchangeFilter) ([]model.PointExchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.PointExchange
	for _, e := range r.exchanges {
		if (f.Status == "" || e.Status == f.Status) && (f.AffiliateID == nil || e.AffiliateID == *f.AffiliateID) {
			res = append(res, *e)
		}
	}
	return res, nil
}

func (r *memRepo) pendingLocked(id uuid.UUID) (*model.PointExchange, error) {
	e, ok := r.exchanges[id]
	if !ok {
		return nil, repository.ErrExchangeNotFound
	}
	if err := e.EnsurePending(); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *memRepo) resolveLocked(e *model.PointExchange, status model.ExchangeStatus, note string) *model.PointExchange {
	now := time.Now()
	e.Status = status
	e.AdminNote = note
	e.ProcessedAt = &now
	cp := *e
	return &cp
}

func (r *memRepo) ApproveExchange(ctx context.Context, id uuid.UUID, note, rejectNote string) (*model.PointExchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.pendingLocked(id)
	if err != nil {
		return nil, err
	}

	a, ok := r.affiliates[e.AffiliateID]
	if !ok {
		return nil, repository.ErrAffiliateNotFound
	}

	decision, err := model.DecideExchange(*e, a.Status, r.balanceLocked(e.AffiliateID))
	if err != nil {
		return nil, err
	}
	if decision == model.ExchangeRejected {
		return r.resolveLocked(e, model.ExchangeRejected, rejectNote), repository.ErrInsufficientBalance
	}

	r.insertLocked(&model.PointTransaction{
		AffiliateID:   e.AffiliateID,
		Points:        e.PointsRequested,
		Direction:     model.DirectionOut,
		Category:      model.CategoryExchange,
		Status:        model.TransactionConfirmed,
		ReferenceID:   e.ID.String(),
		ReferenceType: model.ReferencePointExchange,
		ActorType:     model.ActorAdmin,
	})
	return r.resolveLocked(e, model.ExchangeApproved, note), nil
}

func (r *memRepo) RejectExchange(ctx context.Context, id uuid.UUID, note string) (*model.PointExchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.pendingLocked(id)
	if err != nil {
		return nil, err
	}
	return r.resolveLocked(e, model.ExchangeRejected, note), nil
}

func (r *memRepo) ListContent(ctx context.Context, kind model.ContentKind) ([]model.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.contentErr != nil {
		return nil, r.contentErr
	}
	return r.content[kind], nil
}

func (r *memRepo) ReplaceContent(ctx context.Context, kind model.ContentKind, items []model.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.replaceContentErr != nil {
		return r.replaceContentErr
	}
	r.content[kind] = items
	return nil
}

func (r *memRepo) CreateSharecart(ctx context.Context, s *model.Sharecart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.ID = uuid.New()
	s.Status = model.SharecartPending
	s.CreatedAt = time.Now()
	cp := *s
	r.sharecarts[s.Token] = &cp
	return nil
}

func (r *memRepo) ListSharecarts(ctx context.Context, affiliateID *uuid.UUID, status model.SharecartStatus, limit, offset int) ([]model.Sharecart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.Sharecart
	for _, s := range r.sharecarts {
		if (affiliateID == nil || s.AffiliateID == *affiliateID) && (status == "" || s.Status == status) {
			res = append(res, *s)
		}
	}
	return res, nil
}

func (r *memRepo) CompleteSharecart(ctx context.Context, token, orderID string) (*model.Sharecart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sharecarts[token]
	if !ok || s.Status != model.SharecartPending {
		return nil, repository.ErrSharecartNotFound
	}
	now := time.Now()
	s.Status = model.SharecartCompleted
	s.ShopifyOrderID = orderID
	s.CompletedAt = &now
	cp := *s
	return &cp, nil
}

type stubStorefront struct {
	published map[string]bool
	errs      map[string]error
	customer  *shopify.Customer
}

func (s *stubStorefront) CollectionPublished(ctx context.Context, collectionID string) (bool, error) {
	if err := s.errs[collectionID]; err != nil {
		return false, err
	}
	return s.published[collectionID], nil
}

func (s *stubStorefront) GetCustomer(ctx context.Context, id int64) (*shopify.Customer, error) {
	if s.customer == nil {
		return nil, shopify.ErrNotFound
	}
	return s.customer, nil
}

var errBoom = errors.New("boom")
