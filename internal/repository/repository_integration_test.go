//go:build integration

package repository_test

// Run with: go test -tags integration ./internal/repository/... -v

import (
	"context"
	"testing"
	"time"

	"repricer/internal/infra"
	"repricer/internal/model"
	"repricer/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("repricer_test"),
		postgres.WithUsername("repricer"),
		postgres.WithPassword("repricer"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, category, externalID string) *model.Product {
	t.Helper()
	user := &model.User{Username: "seller-" + externalID, PasswordHash: "x"}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), user))

	p := &model.Product{
		UserID:       user.ID,
		ExternalID:   externalID,
		Name:         "Product " + externalID,
		Category:     category,
		CurrentPrice: decimal.RequireFromString("10.00"),
	}
	require.NoError(t, repository.NewProductRepository(db).CreateTx(db, p))
	return p
}

func TestPriceHistory_AppendClampsTimestamp(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := repository.NewPriceHistoryRepository(db)
	p := seedProduct(t, db, "books", "B-1")

	later := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	first := &model.PriceHistoryEntry{ProductID: p.ID, Price: decimal.RequireFromString("10.00"), Timestamp: later, Reason: "initial", Source: model.SourceInitial}
	require.NoError(t, repo.Append(ctx, first))

	second := &model.PriceHistoryEntry{ProductID: p.ID, Price: decimal.RequireFromString("11.00"), Timestamp: earlier, Reason: "manual", Source: model.SourceManual}
	require.NoError(t, repo.Append(ctx, second))
	assert.True(t, second.Timestamp.Equal(later), "timestamp must not go backwards")

	rows, err := repo.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, rows[1].Price.Equal(decimal.RequireFromString("11.00")))
	assert.Less(t, rows[0].Seq, rows[1].Seq)
}

func TestPriceHistory_IsAppendOnly(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := repository.NewPriceHistoryRepository(db)
	p := seedProduct(t, db, "books", "B-2")

	entry := &model.PriceHistoryEntry{ProductID: p.ID, Price: decimal.RequireFromString("10.00"), Reason: "initial", Source: model.SourceInitial}
	require.NoError(t, repo.Append(ctx, entry))

	err := db.Model(&model.PriceHistoryEntry{}).Where("id = ?", entry.ID).Update("reason", "edited").Error
	assert.Error(t, err)
	err = db.Delete(&model.PriceHistoryEntry{}, "id = ?", entry.ID).Error
	assert.Error(t, err)

	rows, err := repo.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "initial", rows[0].Reason)
}

func TestPriceHistory_EarliestByProducts(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := repository.NewPriceHistoryRepository(db)
	a := seedProduct(t, db, "toys", "T-1")
	b := seedProduct(t, db, "toys", "T-2")
	c := seedProduct(t, db, "toys", "T-3") // no history

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, price := range []string{"5.00", "6.00", "7.00"} {
		require.NoError(t, repo.Append(ctx, &model.PriceHistoryEntry{
			ProductID: a.ID, Price: decimal.RequireFromString(price),
			Timestamp: t0.Add(time.Duration(i) * time.Hour), Reason: "r", Source: model.SourceManual,
		}))
	}
	require.NoError(t, repo.Append(ctx, &model.PriceHistoryEntry{
		ProductID: b.ID, Price: decimal.RequireFromString("20.00"), Timestamp: t0, Reason: "r", Source: model.SourceInitial,
	}))

	got, err := repo.EarliestByProducts(ctx, []uuid.UUID{a.ID, b.ID, c.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[a.ID].Price.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, got[b.ID].Price.Equal(decimal.RequireFromString("20.00")))
	_, ok := got[c.ID]
	assert.False(t, ok)

	empty, err := repo.EarliestByProducts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProduct_UpdatePricingAndSettings(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := repository.NewProductRepository(db)
	p := seedProduct(t, db, "garden", "G-1")

	now := time.Now().UTC().Truncate(time.Second)
	rec := decimal.RequireFromString("12.34")
	conf := 0.91
	p.CurrentPrice = rec
	p.RecommendedPrice = &rec
	p.ConfidenceScore = &conf
	p.LastOptimizedAt = &now
	require.NoError(t, repo.UpdatePricingTx(db, p))

	settings := model.AutoAdjustSettings{Enabled: true, MinConfidence: 0.8, MaxPriceChangePercent: 15, AdjustmentFrequencyHours: 6}
	require.NoError(t, repo.UpdateAutoAdjust(ctx, p.ID, settings))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentPrice.Equal(rec))
	require.NotNil(t, got.ConfidenceScore)
	assert.InDelta(t, 0.91, *got.ConfidenceScore, 1e-9)
	assert.Equal(t, settings, got.Settings())

	err = repo.UpdateAutoAdjust(ctx, uuid.New(), settings)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	inCategory, err := repo.ListByCategory(ctx, "garden")
	require.NoError(t, err)
	assert.Len(t, inCategory, 1)
}

func TestProduct_DuplicateExternalID(t *testing.T) {
	db := setupDB(t)
	p := seedProduct(t, db, "garden", "G-2")

	dup := &model.Product{UserID: p.UserID, ExternalID: "G-2", Name: "Copy", Category: "garden", CurrentPrice: decimal.NewFromInt(1)}
	err := repository.NewProductRepository(db).CreateTx(db, dup)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
