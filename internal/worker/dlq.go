package worker

// dlq.go: dead-letter list for optimization attempts that failed during a
// sweep. Entries are kept for manual inspection; the next sweep retries the
// product on its own, so nothing is replayed from here.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DLQPrefix        = "dlq:"
	OptimizationsDLQ = DLQPrefix + "optimizations"
	// dlqMaxLen caps the list so a persistently failing model cannot grow it unbounded.
	dlqMaxLen = 10000
)

// DLQEntry describes one failed attempt.
type DLQEntry struct {
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	State     string `json:"state,omitempty"`
	Reason    string `json:"reason"`
	FailedAt  string `json:"failed_at"` // RFC 3339, UTC
}

// DeadLetter records failed attempts.
type DeadLetter interface {
	Record(ctx context.Context, entry DLQEntry)
}

// RedisDLQ pushes entries onto a capped Redis list.
type RedisDLQ struct {
	rdb *redis.Client
	key string
}

func NewRedisDLQ(rdb *redis.Client) *RedisDLQ {
	return &RedisDLQ{rdb: rdb, key: OptimizationsDLQ}
}

// Record never fails the caller; a push error is logged.
func (d *RedisDLQ) Record(ctx context.Context, entry DLQEntry) {
	if entry.FailedAt == "" {
		entry.FailedAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("product_id", entry.ProductID).Msg("dlq: failed to marshal entry")
		return
	}

	pipe := d.rdb.TxPipeline()
	pipe.LPush(ctx, d.key, data)
	pipe.LTrim(ctx, d.key, 0, dlqMaxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("dlq_key", d.key).Msg("dlq: failed to push entry")
		return
	}

	log.Warn().
		Str("product_id", entry.ProductID).
		Str("state", entry.State).
		Str("reason", entry.Reason).
		Msg("dlq: optimization attempt dead-lettered")
}

// Length returns the number of entries for monitoring.
func (d *RedisDLQ) Length(ctx context.Context) (int64, error) {
	return d.rdb.LLen(ctx, d.key).Result()
}

// LogDLQ is used when Redis is not configured: failures are only logged.
type LogDLQ struct{}

func (LogDLQ) Record(_ context.Context, entry DLQEntry) {
	log.Warn().
		Str("product_id", entry.ProductID).
		Str("state", entry.State).
		Str("reason", entry.Reason).
		Msg("sweep: optimization attempt failed")
}
