package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"repricer/internal/clock"
	"repricer/internal/dto"
	"repricer/internal/lock"
	"repricer/internal/model"
	"repricer/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProductService is the owner-facing catalog API. Every method enforces
// ownership: a product of another user is reported as not found.
type ProductService interface {
	Create(ctx context.Context, userID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	List(ctx context.Context, userID uuid.UUID) ([]dto.ProductResponse, error)
	Detail(ctx context.Context, userID, id uuid.UUID) (*dto.ProductDetailResponse, error)
	History(ctx context.Context, userID, id uuid.UUID) ([]dto.PriceHistoryItem, error)
	UpdateAutoAdjust(ctx context.Context, userID, id uuid.UUID, req dto.AutoAdjustSettingsRequest) (*dto.AutoAdjustSettingsResponse, error)
	// UpdatePrice is the manual price edit; it takes the product lock so it
	// never interleaves with an optimization attempt.
	UpdatePrice(ctx context.Context, userID, id uuid.UUID, req dto.UpdatePriceRequest) (*dto.ProductResponse, error)
}

type productService struct {
	products repository.ProductRepository
	history  repository.PriceHistoryRepository
	market   MarketService
	locker   lock.Locker
	clock    clock.Clock
}

func NewProductService(
	products repository.ProductRepository,
	history repository.PriceHistoryRepository,
	market MarketService,
	locker lock.Locker,
	clk clock.Clock,
) ProductService {
	if clk == nil {
		clk = clock.Real()
	}
	return &productService{products: products, history: history, market: market, locker: locker, clock: clk}
}

// ── Mapping ──────────────────────────────────────────────────────────────────

func mapSettings(s model.AutoAdjustSettings) dto.AutoAdjustSettingsResponse {
	return dto.AutoAdjustSettingsResponse{
		Enabled:                  s.Enabled,
		MinConfidence:            s.MinConfidence,
		MaxPriceChangePercent:    s.MaxPriceChangePercent,
		AdjustmentFrequencyHours: s.AdjustmentFrequencyHours,
	}
}

func mapProduct(p model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:               p.ID.String(),
		ExternalID:       p.ExternalID,
		Name:             p.Name,
		Category:         p.Category,
		CurrentPrice:     p.CurrentPrice,
		RecommendedPrice: p.RecommendedPrice,
		ConfidenceScore:  p.ConfidenceScore,
		LastOptimizedAt:  p.LastOptimizedAt,
		AutoAdjust:       mapSettings(p.Settings()),
		SKU:              p.SKU,
		Stock:            p.Stock,
		Description:      p.Description,
		UpdatedAt:        p.UpdatedAt,
	}
}

func mapHistory(entries []model.PriceHistoryEntry) []dto.PriceHistoryItem {
	out := make([]dto.PriceHistoryItem, len(entries))
	for i, e := range entries {
		out[i] = dto.PriceHistoryItem{
			ID:               e.ID.String(),
			Price:            e.Price,
			Timestamp:        e.Timestamp,
			MarketContext:    []byte(e.MarketContext),
			Reason:           e.Reason,
			Source:           e.Source,
			RecommendedPrice: e.RecommendedPrice,
			Confidence:       e.Confidence,
		}
	}
	return out
}

// owned loads a product and checks it belongs to userID.
func (s *productService) owned(ctx context.Context, userID, id uuid.UUID) (*model.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if p.UserID != userID {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// ── Create ───────────────────────────────────────────────────────────────────

func (s *productService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	now := s.clock.Now()
	p := &model.Product{
		ID:           uuid.New(),
		UserID:       userID,
		ExternalID:   strings.TrimSpace(req.ExternalID),
		Name:         strings.TrimSpace(req.Name),
		Category:     strings.TrimSpace(req.Category),
		CurrentPrice: req.CurrentPrice.Round(2),
		SKU:          req.SKU,
		Stock:        req.Stock,
		Description:  req.Description,
	}

	err := runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		if err := s.products.CreateTx(tx, p); err != nil {
			return err
		}
		return s.history.AppendTx(tx, &model.PriceHistoryEntry{
			ProductID: p.ID,
			Price:     p.CurrentPrice,
			Timestamp: now,
			Reason:    "initial listing price",
			Source:    model.SourceInitial,
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrExternalIDTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	resp := mapProduct(*p)
	return &resp, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *productService) List(ctx context.Context, userID uuid.UUID) ([]dto.ProductResponse, error) {
	list, err := s.products.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		result = append(result, mapProduct(p))
	}
	return result, nil
}

func (s *productService) Detail(ctx context.Context, userID, id uuid.UUID) (*dto.ProductDetailResponse, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ProductDetailResponse{
		ProductResponse: mapProduct(*p),
		PriceHistory:    mapHistory(history),
	}
	stats, err := s.market.Statistics(ctx, p.Category)
	switch {
	case err == nil:
		resp.MarketAnalysis = &dto.MarketAnalysisResponse{
			CategoryAverage: stats.AveragePrice.Round(2),
			CompetitorCount: stats.CompetitorCount,
			MarketTrend:     string(stats.Trend),
		}
	case errors.Is(err, ErrEmptyCategory):
		// left nil
	default:
		return nil, err
	}
	return resp, nil
}

func (s *productService) History(ctx context.Context, userID, id uuid.UUID) ([]dto.PriceHistoryItem, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return mapHistory(history), nil
}

// ── Mutations ────────────────────────────────────────────────────────────────

func (s *productService) UpdateAutoAdjust(ctx context.Context, userID, id uuid.UUID, req dto.AutoAdjustSettingsRequest) (*dto.AutoAdjustSettingsResponse, error) {
	if req.Enabled == nil || req.MinConfidence == nil || req.MaxPriceChangePercent == nil || req.AdjustmentFrequencyHours == nil {
		return nil, ErrInvalidSettings
	}
	settings := model.AutoAdjustSettings{
		Enabled:                  *req.Enabled,
		MinConfidence:            *req.MinConfidence,
		MaxPriceChangePercent:    *req.MaxPriceChangePercent,
		AdjustmentFrequencyHours: *req.AdjustmentFrequencyHours,
	}
	if !settings.Valid() {
		return nil, ErrInvalidSettings
	}

	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.products.UpdateAutoAdjust(ctx, id, settings); err != nil {
		return nil, notFound(err)
	}

	log.Info().Str("product_id", id.String()).Bool("enabled", settings.Enabled).Msg("auto-adjust settings updated")
	resp := mapSettings(settings)
	return &resp, nil
}

func (s *productService) UpdatePrice(ctx context.Context, userID, id uuid.UUID, req dto.UpdatePriceRequest) (*dto.ProductResponse, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	release, err := acquireProduct(ctx, s.locker, id)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock; an attempt may have just committed.
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "manual price change"
	}
	p.CurrentPrice = req.Price.Round(2)
	entry := &model.PriceHistoryEntry{
		ProductID: p.ID,
		Price:     p.CurrentPrice,
		Timestamp: s.clock.Now(),
		Reason:    reason,
		Source:    model.SourceManual,
	}

	err = runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		if err := s.products.UpdatePricingTx(tx, p); err != nil {
			return err
		}
		return s.history.AppendTx(tx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	resp := mapProduct(*p)
	return &resp, nil
}
