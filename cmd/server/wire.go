package main

import (
	"fmt"

	"repricer/internal/config"
	"repricer/internal/infra"
	"repricer/internal/lock"
	"repricer/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// newRecommender builds the configured recommender behind a circuit breaker.
func newRecommender(cfg *config.Config) (*infra.BreakerRecommender, error) {
	var inner service.Recommender
	switch cfg.RecommenderMode {
	case "exec":
		inner = infra.NewExecRecommender(cfg.RecommenderCommand, cfg.RecommenderArgList(), cfg.RecommenderPassArg)
	case "http":
		inner = infra.NewHTTPRecommender(cfg.RecommenderURL, cfg.RecommenderTimeout())
	case "heuristic":
		inner = infra.NewHeuristicRecommender()
	default:
		return nil, fmt.Errorf("unknown RECOMMENDER_MODE %q (want exec, http or heuristic)", cfg.RecommenderMode)
	}
	log.Info().Str("mode", cfg.RecommenderMode).Msg("recommender configured")
	return infra.NewBreakerRecommender(inner, infra.NewCircuitBreaker(infra.DefaultCBConfig())), nil
}

// newLocker shares product locks through Redis when it is configured and
// falls back to an in-process lock table otherwise.
func newLocker(cfg *config.Config, rdb *redis.Client) lock.Locker {
	if rdb != nil {
		return lock.NewRedis(rdb, cfg.LockTTL(), cfg.LockWait())
	}
	log.Warn().Msg("REDIS_URL not set: product locks are process-local, run a single replica")
	return lock.NewLocal(cfg.LockWait())
}
