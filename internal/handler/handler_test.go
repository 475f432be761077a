package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"repricer/internal/dto"
	"repricer/internal/middleware"
	"repricer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

// ── Service stubs ────────────────────────────────────────────────────────────

type stubProducts struct {
	service.ProductService
	detail    *dto.ProductDetailResponse
	err       error
	gotUser   uuid.UUID
	gotID     uuid.UUID
	settings  dto.AutoAdjustSettingsRequest
	listCalls int
}

func (s *stubProducts) List(_ context.Context, userID uuid.UUID) ([]dto.ProductResponse, error) {
	s.gotUser = userID
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	return []dto.ProductResponse{}, nil
}

func (s *stubProducts) Detail(_ context.Context, userID, id uuid.UUID) (*dto.ProductDetailResponse, error) {
	s.gotUser, s.gotID = userID, id
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

func (s *stubProducts) Create(_ context.Context, userID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	s.gotUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ProductResponse{ID: uuid.NewString(), ExternalID: req.ExternalID, CurrentPrice: req.CurrentPrice}, nil
}

func (s *stubProducts) UpdateAutoAdjust(_ context.Context, _, _ uuid.UUID, req dto.AutoAdjustSettingsRequest) (*dto.AutoAdjustSettingsResponse, error) {
	s.settings = req
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AutoAdjustSettingsResponse{Enabled: *req.Enabled}, nil
}

type stubOptimizer struct {
	result *service.OptimizationResult
	err    error
}

func (s *stubOptimizer) Optimize(ctx context.Context, productID uuid.UUID) (*service.OptimizationResult, error) {
	return s.OptimizeForUser(ctx, uuid.Nil, productID)
}

func (s *stubOptimizer) OptimizeForUser(_ context.Context, _, _ uuid.UUID) (*service.OptimizationResult, error) {
	return s.result, s.err
}

type stubSweeps struct{ triggered []uuid.UUID }

func (s *stubSweeps) TriggerUser(userID uuid.UUID) bool {
	s.triggered = append(s.triggered, userID)
	return true
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func signToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID.String(), "username": "seller",
		"exp": time.Now().Add(time.Hour).Unix(), "iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func newEngine(products *stubProducts, optimizer *stubOptimizer, sweeps SweepTrigger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h := NewProductsHandler(products, optimizer, sweeps)
	g := r.Group("/api/products", middleware.JWTAuth(testSecret))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Detail)
	g.GET("/:id/history/report", h.HistoryReport)
	g.POST("/:id/optimize", h.Optimize)
	g.POST("/:id/auto-adjust", h.UpdateAutoAdjust)
	return r
}

func doRequest(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestProducts_RequiresToken(t *testing.T) {
	r := newEngine(&stubProducts{}, &stubOptimizer{}, nil)

	w := doRequest(r, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodGet, "/api/products", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProducts_ListTriggersUserSweep(t *testing.T) {
	products := &stubProducts{}
	sweeps := &stubSweeps{}
	r := newEngine(products, &stubOptimizer{}, sweeps)
	userID := uuid.New()

	w := doRequest(r, http.MethodGet, "/api/products", signToken(t, userID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, products.gotUser)
	assert.Equal(t, []uuid.UUID{userID}, sweeps.triggered)
}

func TestProducts_ListFailureDoesNotTriggerSweep(t *testing.T) {
	products := &stubProducts{err: errors.New("db down")}
	sweeps := &stubSweeps{}
	r := newEngine(products, &stubOptimizer{}, sweeps)

	w := doRequest(r, http.MethodGet, "/api/products", signToken(t, uuid.New()), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal", errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "db down")
	assert.Empty(t, sweeps.triggered)
}

func TestProducts_MalformedIDIsNotFound(t *testing.T) {
	r := newEngine(&stubProducts{}, &stubOptimizer{}, nil)
	w := doRequest(r, http.MethodGet, "/api/products/not-a-uuid", signToken(t, uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProducts_OptimizeSuccess(t *testing.T) {
	id := uuid.New()
	optimizer := &stubOptimizer{result: &service.OptimizationResult{
		ProductID:            id,
		RecommendedPrice:     decimal.RequireFromString("19.99"),
		Confidence:           0.9,
		Trend:                "up",
		AppliedAutomatically: true,
	}}
	r := newEngine(&stubProducts{}, optimizer, nil)

	w := doRequest(r, http.MethodPost, "/api/products/"+id.String()+"/optimize", signToken(t, uuid.New()), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body dto.OptimizationResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, id.String(), body.ProductID)
	assert.True(t, body.RecommendedPrice.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, "up", body.Trend)
	assert.True(t, body.AppliedAutomatically)
}

func TestProducts_OptimizeErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", service.ErrProductNotFound, http.StatusNotFound, "not_found"},
		{"busy", service.ErrOptimizationInProgress, http.StatusConflict, "optimization_in_progress"},
		{"empty category", service.ErrEmptyCategory, http.StatusUnprocessableEntity, "empty_category"},
		{"recommender down", fmt.Errorf("%w: exit status 1", service.ErrRecommendationUnavailable), http.StatusServiceUnavailable, "recommendation_unavailable"},
		{"persistence", &service.AttemptError{State: service.StateApplying, Err: service.ErrPersistence}, http.StatusInternalServerError, "persistence_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine(&stubProducts{}, &stubOptimizer{err: tc.err}, nil)
			w := doRequest(r, http.MethodPost, "/api/products/"+uuid.NewString()+"/optimize", signToken(t, uuid.New()), nil)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}
}

func TestProducts_AutoAdjustValidation(t *testing.T) {
	products := &stubProducts{}
	r := newEngine(products, &stubOptimizer{}, nil)
	token := signToken(t, uuid.New())
	path := "/api/products/" + uuid.NewString() + "/auto-adjust"

	w := doRequest(r, http.MethodPost, path, token, map[string]any{
		"enabled": true, "min_confidence": 1.5, "max_price_change_percent": 10, "adjustment_frequency_hours": 24,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "MinConfidence")

	// Zero is a valid value, not a missing one.
	w = doRequest(r, http.MethodPost, path, token, map[string]any{
		"enabled": false, "min_confidence": 0, "max_price_change_percent": 0, "adjustment_frequency_hours": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, products.settings.MinConfidence)
	assert.Zero(t, *products.settings.MinConfidence)

	w = doRequest(r, http.MethodPost, path, token, map[string]any{"enabled": true})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProducts_CreateValidatesPrice(t *testing.T) {
	products := &stubProducts{}
	r := newEngine(products, &stubOptimizer{}, nil)
	token := signToken(t, uuid.New())

	w := doRequest(r, http.MethodPost, "/api/products", token, map[string]any{
		"external_id": "X-1", "name": "Lamp", "category": "home", "current_price": "0",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(r, http.MethodPost, "/api/products", token, map[string]any{
		"external_id": "X-1", "name": "Lamp", "category": "home", "current_price": "12.50",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	products.err = service.ErrExternalIDTaken
	w = doRequest(r, http.MethodPost, "/api/products", token, map[string]any{
		"external_id": "X-1", "name": "Lamp", "category": "home", "current_price": "12.50",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProducts_BadJSON(t *testing.T) {
	r := newEngine(&stubProducts{}, &stubOptimizer{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProducts_HistoryReport(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	products := &stubProducts{detail: &dto.ProductDetailResponse{
		ProductResponse: dto.ProductResponse{
			ID: uuid.NewString(), ExternalID: "R-1", Name: "Lamp", Category: "home",
			CurrentPrice: decimal.RequireFromString("20.00"), UpdatedAt: now,
		},
		PriceHistory: []dto.PriceHistoryItem{
			{ID: uuid.NewString(), Price: decimal.RequireFromString("20.00"), Timestamp: now, Reason: "initial price", Source: "initial"},
		},
	}}
	r := newEngine(products, &stubOptimizer{}, nil)

	w := doRequest(r, http.MethodGet, "/api/products/"+uuid.NewString()+"/history/report", signToken(t, uuid.New()), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "price-history-R-1.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}
