package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"repricer/internal/lock"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// runTx runs fn inside a transaction. With a nil db (unit tests with stub
// repositories) fn is called directly with a nil tx.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// productLockKey is the advisory lock key shared by every writer of a product.
func productLockKey(id uuid.UUID) string {
	return "product:" + id.String()
}

// acquireProduct takes the product lock, mapping contention to ErrOptimizationInProgress.
func acquireProduct(ctx context.Context, l lock.Locker, id uuid.UUID) (func(), error) {
	release, err := l.Lock(ctx, productLockKey(id))
	if errors.Is(err, lock.ErrBusy) {
		return nil, ErrOptimizationInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire product lock: %w", err)
	}
	return release, nil
}

// notFound maps gorm's missing-row error onto ErrProductNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProductNotFound
	}
	return err
}

// marketSnapshot is the category context frozen into a ledger entry.
type marketSnapshot struct {
	CategoryAverage string `json:"category_average"`
	Trend           Trend  `json:"trend"`
	CompetitorCount int    `json:"competitor_count"`
}

func snapshotJSON(stats *MarketStatistics) datatypes.JSON {
	if stats == nil {
		return nil
	}
	b, err := json.Marshal(marketSnapshot{
		CategoryAverage: stats.AveragePrice.StringFixed(2),
		Trend:           stats.Trend,
		CompetitorCount: stats.CompetitorCount,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
