// cmd/seed creates (or refreshes) a demo seller with a small catalog.
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"errors"

	"repricer/internal/clock"
	"repricer/internal/config"
	"repricer/internal/dto"
	"repricer/internal/infra"
	"repricer/internal/lock"
	"repricer/internal/model"
	"repricer/internal/repository"
	"repricer/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	demoUsername = "demo"
	demoPassword = "demo-password"
)

var demoCatalog = []struct {
	externalID string
	name       string
	category   string
	price      string
}{
	{"DEMO-001", "Wireless Mouse", "electronics", "24.99"},
	{"DEMO-002", "Mechanical Keyboard", "electronics", "89.00"},
	{"DEMO-003", "USB-C Hub", "electronics", "39.50"},
	{"DEMO-004", "Desk Lamp", "home", "29.90"},
	{"DEMO-005", "Ceramic Mug", "home", "9.99"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt failed")
	}

	user := &model.User{Username: demoUsername, PasswordHash: string(hash)}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash"}),
	}).Create(user).Error
	if err != nil {
		log.Fatal().Err(err).Msg("upsert demo user failed")
	}
	// On conflict the generated id is not returned; reload it.
	if err := db.WithContext(ctx).Where("username = ?", demoUsername).First(user).Error; err != nil {
		log.Fatal().Err(err).Msg("reload demo user failed")
	}

	products := repository.NewProductRepository(db)
	history := repository.NewPriceHistoryRepository(db)
	svc := service.NewProductService(products, history, service.NewMarketService(products, history), lock.NewLocal(cfg.LockWait()), clock.Real())

	created := 0
	for _, item := range demoCatalog {
		_, err := svc.Create(ctx, user.ID, dto.CreateProductRequest{
			ExternalID:   item.externalID,
			Name:         item.name,
			Category:     item.category,
			CurrentPrice: decimal.RequireFromString(item.price),
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, service.ErrExternalIDTaken), errors.Is(err, gorm.ErrDuplicatedKey):
			log.Debug().Str("external_id", item.externalID).Msg("product already seeded")
		default:
			log.Fatal().Err(err).Str("external_id", item.externalID).Msg("create product failed")
		}
	}

	log.Info().
		Str("username", demoUsername).
		Str("password", demoPassword).
		Int("products_created", created).
		Msg("demo seller ready")
}
