package repository

import (
	"context"
	"time"

	"repricer/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PriceHistoryRepository is the append-only price ledger.
// There is deliberately no update or delete: the ledger is the audit trail.
type PriceHistoryRepository interface {
	// Append writes one entry in its own transaction.
	Append(ctx context.Context, e *model.PriceHistoryEntry) error
	// AppendTx writes one entry inside the caller's transaction.
	AppendTx(tx *gorm.DB, e *model.PriceHistoryEntry) error
	// ListByProduct returns every entry of a product, oldest first.
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.PriceHistoryEntry, error)
	// EarliestByProducts returns the first entry of each product that has one.
	EarliestByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]model.PriceHistoryEntry, error)
}

type priceHistoryRepo struct{ db *gorm.DB }

func NewPriceHistoryRepository(db *gorm.DB) PriceHistoryRepository {
	return &priceHistoryRepo{db: db}
}

func (r *priceHistoryRepo) Append(ctx context.Context, e *model.PriceHistoryEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.AppendTx(tx, e)
	})
}

// AppendTx never lets a product's timestamps go backwards: if the clock is
// behind the latest entry, the new entry reuses the latest timestamp.
func (r *priceHistoryRepo) AppendTx(tx *gorm.DB, e *model.PriceHistoryEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var latest []model.PriceHistoryEntry
	if err := tx.Where("product_id = ?", e.ProductID).
		Order("timestamp DESC, seq DESC").
		Limit(1).
		Find(&latest).Error; err != nil {
		return err
	}
	if len(latest) == 1 && latest[0].Timestamp.After(e.Timestamp) {
		e.Timestamp = latest[0].Timestamp
	}

	return tx.Create(e).Error
}

func (r *priceHistoryRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.PriceHistoryEntry, error) {
	var rows []model.PriceHistoryEntry
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("timestamp ASC, seq ASC").
		Find(&rows).Error
	return rows, err
}

func (r *priceHistoryRepo) EarliestByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]model.PriceHistoryEntry, error) {
	out := make(map[uuid.UUID]model.PriceHistoryEntry, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var rows []model.PriceHistoryEntry
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (product_id) *
		FROM price_history
		WHERE product_id IN ?
		ORDER BY product_id, timestamp ASC, seq ASC`, productIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProductID] = row
	}
	return out, nil
}
