package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CircuitReporter exposes the recommender circuit breaker state.
type CircuitReporter interface {
	CircuitState() string
}

// Health checks DB and Redis connectivity and reports the recommender circuit.
// rdb and circuit may be nil; Redis then reports "disabled". An open circuit
// degrades the report but does not fail the check.
func Health(db *gorm.DB, rdb *redis.Client, circuit CircuitReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		circuitState := "none"
		if circuit != nil {
			circuitState = circuit.CircuitState()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":                  status == http.StatusOK,
			"db":                  dbStatus,
			"redis":               redisStatus,
			"recommender_circuit": circuitState,
		})
	}
}
