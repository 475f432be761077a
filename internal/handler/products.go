package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"repricer/internal/dto"
	"repricer/internal/infra"
	"repricer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SweepTrigger fires a background sweep of one user's catalog without
// blocking the caller. Implemented by worker.Scheduler.
type SweepTrigger interface {
	TriggerUser(userID uuid.UUID) bool
}

type ProductsHandler struct {
	products  service.ProductService
	optimizer service.OptimizerService
	sweeps    SweepTrigger
}

// NewProductsHandler wires the catalog routes. sweeps may be nil.
func NewProductsHandler(products service.ProductService, optimizer service.OptimizerService, sweeps SweepTrigger) *ProductsHandler {
	return &ProductsHandler{products: products, optimizer: optimizer, sweeps: sweeps}
}

func (h *ProductsHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.products.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List returns the caller's catalog and kicks off a sweep of it. The sweep
// runs detached from the request; its outcome is not part of the response.
func (h *ProductsHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	resp, err := h.products.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.sweeps != nil && !h.sweeps.TriggerUser(userID) {
		log.Debug().Str("user_id", userID.String()).Msg("user sweep already pending")
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Detail(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.products.Detail(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.products.History(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HistoryReport renders the product's price history as a PDF download.
func (h *ProductsHandler) HistoryReport(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.products.Detail(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := infra.RenderPriceReport(&buf, detail); err != nil {
		respondError(c, fmt.Errorf("render price report: %w", err))
		return
	}
	filename := fmt.Sprintf("price-history-%s.pdf", detail.ExternalID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *ProductsHandler) UpdatePrice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UpdatePriceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.products.UpdatePrice(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Optimize runs one synchronous optimization attempt.
func (h *ProductsHandler) Optimize(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	result, err := h.optimizer.OptimizeForUser(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OptimizationResultResponse{
		ProductID:            result.ProductID.String(),
		RecommendedPrice:     result.RecommendedPrice,
		Confidence:           result.Confidence,
		Trend:                result.Trend,
		AppliedAutomatically: result.AppliedAutomatically,
	})
}

func (h *ProductsHandler) UpdateAutoAdjust(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.AutoAdjustSettingsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.products.UpdateAutoAdjust(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
