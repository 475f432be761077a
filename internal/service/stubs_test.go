package service

import (
	"context"
	"errors"
	"sync"

	"repricer/internal/model"
	"repricer/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubProductRepo is an in-memory ProductRepository. It hands out copies so a
// failed attempt cannot mutate stored state through a shared pointer.
type stubProductRepo struct {
	mu         sync.Mutex
	products   map[uuid.UUID]model.Product
	failUpdate error
	updates    int
}

func newStubProductRepo(products ...model.Product) *stubProductRepo {
	r := &stubProductRepo{products: make(map[uuid.UUID]model.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *stubProductRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) ListByCategory(_ context.Context, category string) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) ListAll(_ context.Context) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *stubProductRepo) UpdateAutoAdjust(_ context.Context, id uuid.UUID, settings model.AutoAdjustSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.AutoAdjust = &settings
	r.products[id] = p
	return nil
}

func (r *stubProductRepo) CreateTx(_ *gorm.DB, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.products {
		if existing.ExternalID == p.ExternalID {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = *p
	return nil
}

func (r *stubProductRepo) UpdatePricingTx(_ *gorm.DB, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	stored, ok := r.products[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.CurrentPrice = p.CurrentPrice
	stored.RecommendedPrice = p.RecommendedPrice
	stored.ConfidenceScore = p.ConfidenceScore
	stored.LastOptimizedAt = p.LastOptimizedAt
	r.products[p.ID] = stored
	r.updates++
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

func (r *stubProductRepo) get(id uuid.UUID) model.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id]
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// stubHistoryRepo is an in-memory ledger keeping insertion order.
type stubHistoryRepo struct {
	mu      sync.Mutex
	entries []model.PriceHistoryEntry
	seq     int64
}

func (r *stubHistoryRepo) Append(_ context.Context, e *model.PriceHistoryEntry) error {
	return r.AppendTx(nil, e)
}

func (r *stubHistoryRepo) AppendTx(_ *gorm.DB, e *model.PriceHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.ID = uuid.New()
	e.Seq = r.seq
	r.entries = append(r.entries, *e)
	return nil
}

func (r *stubHistoryRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.PriceHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.PriceHistoryEntry
	for _, e := range r.entries {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubHistoryRepo) EarliestByProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.PriceHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]model.PriceHistoryEntry)
	for _, e := range r.entries {
		if !wanted[e.ProductID] {
			continue
		}
		if cur, ok := out[e.ProductID]; !ok || e.Timestamp.Before(cur.Timestamp) {
			out[e.ProductID] = e
		}
	}
	return out, nil
}

func (r *stubHistoryRepo) count(productID uuid.UUID) int {
	entries, _ := r.ListByProduct(context.Background(), productID)
	return len(entries)
}

func (r *stubHistoryRepo) last(productID uuid.UUID) model.PriceHistoryEntry {
	entries, _ := r.ListByProduct(context.Background(), productID)
	return entries[len(entries)-1]
}

var _ repository.PriceHistoryRepository = (*stubHistoryRepo)(nil)

// stubRecommender returns a canned answer or error. With block set it waits
// for ctx to end, which simulates a hung model.
type stubRecommender struct {
	mu    sync.Mutex
	rec   *Recommendation
	err   error
	block bool
	calls int
	last  OptimizationRequest
}

func (s *stubRecommender) Recommend(ctx context.Context, req OptimizationRequest) (*Recommendation, error) {
	s.mu.Lock()
	s.calls++
	s.last = req
	rec, err, block := s.rec, s.err, s.block
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	out := *rec
	return &out, nil
}

var _ Recommender = (*stubRecommender)(nil)

var errStub = errors.New("stub failure")

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}
