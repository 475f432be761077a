package repository

import (
	"context"
	"time"

	"repricer/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository defines the data access contract for the catalog.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling unit testing with in-memory stubs.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Product, error)
	ListByCategory(ctx context.Context, category string) ([]model.Product, error)
	ListAll(ctx context.Context) ([]model.Product, error)
	UpdateAutoAdjust(ctx context.Context, id uuid.UUID, settings model.AutoAdjustSettings) error

	// Used inside transactions; callers must pass the tx instance
	CreateTx(tx *gorm.DB, p *model.Product) error
	// UpdatePricingTx persists the price fields written by an optimization
	// attempt or a manual edit; every other column is left untouched.
	UpdatePricingTx(tx *gorm.DB, p *model.Product) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&products).Error
	return products, err
}

// ListByCategory returns the whole competitor set of a category, across all
// sellers, ordered by id so callers see a stable sequence.
func (r *productRepo) ListByCategory(ctx context.Context, category string) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Where("category = ?", category).Order("id ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) UpdateAutoAdjust(ctx context.Context, id uuid.UUID, settings model.AutoAdjustSettings) error {
	p := model.Product{ID: id, AutoAdjust: &settings}
	res := r.db.WithContext(ctx).Model(&p).Select("AutoAdjust", "UpdatedAt").Updates(&p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) CreateTx(tx *gorm.DB, p *model.Product) error {
	return tx.Create(p).Error
}

func (r *productRepo) UpdatePricingTx(tx *gorm.DB, p *model.Product) error {
	res := tx.Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"current_price":     p.CurrentPrice,
		"recommended_price": p.RecommendedPrice,
		"confidence_score":  p.ConfidenceScore,
		"last_optimized_at": p.LastOptimizedAt,
		"updated_at":        time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) DB() *gorm.DB { return r.db }
