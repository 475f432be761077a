package infra

import (
	"fmt"

	"repricer/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate for
// the catalog, ledger and user tables, then applies the idempotent SQL patches
// that GORM cannot express (triggers, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates the schema. Integration tests call it
// directly against their throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.PriceHistoryEntry{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot handle on its
// own. Each statement is guarded so re-running on a patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// The ledger is append-only: reject UPDATE and DELETE at the database.
		{"price_history immutability function", `
CREATE OR REPLACE FUNCTION price_history_immutable() RETURNS trigger AS $$
BEGIN
  RAISE EXCEPTION 'price_history is append-only';
END;
$$ LANGUAGE plpgsql`},
		{"price_history immutability trigger", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_price_history_immutable') THEN
    CREATE TRIGGER trg_price_history_immutable
      BEFORE UPDATE OR DELETE ON price_history
      FOR EACH ROW EXECUTE FUNCTION price_history_immutable();
  END IF;
END $$`},
		// Sweep candidates: never optimized products first.
		{"never optimized partial index", `
CREATE INDEX IF NOT EXISTS idx_products_never_optimized
  ON products (id) WHERE last_optimized_at IS NULL`},
		{"price_history seq index", `
CREATE INDEX IF NOT EXISTS idx_price_history_product_seq
  ON price_history (product_id, seq)`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
