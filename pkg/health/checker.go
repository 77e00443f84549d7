package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthChecker monitors the health of all system components
type HealthChecker struct {
	postgres     *sql.DB
	redisClient  *redis.Client
	startTime    time.Time
	dependencies map[string]HealthCheckFunc
}

// HealthStatus represents the overall system health
type HealthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     time.Duration              `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	LastChecked  time.Time     `json:"last_checked"`
	Error        string        `json:"error,omitempty"`
	Details      interface{}   `json:"details,omitempty"`
}

// HealthCheckFunc is a function that checks the health of a component
type HealthCheckFunc func(ctx context.Context) (ComponentHealth, error)

// NewHealthChecker creates a new health checker instance
func NewHealthChecker(postgres *sql.DB, redisClient *redis.Client) *HealthChecker {
	hc := &HealthChecker{
		postgres:     postgres,
		redisClient:  redisClient,
		startTime:    time.Now(),
		dependencies: make(map[string]HealthCheckFunc),
	}

	hc.registerBuiltinChecks()

	return hc
}

// RegisterHealthCheck adds a custom health check
func (hc *HealthChecker) RegisterHealthCheck(name string, checkFunc HealthCheckFunc) {
	hc.dependencies[name] = checkFunc
}

// CheckHealth performs a health check of all registered components
func (hc *HealthChecker) CheckHealth(ctx context.Context) *HealthStatus {
	components := make(map[string]ComponentHealth)

	healthyCount := 0
	for name, checkFunc := range hc.dependencies {
		componentHealth, err := checkFunc(ctx)
		if err != nil {
			componentHealth = ComponentHealth{
				Status:      "unhealthy",
				LastChecked: time.Now(),
				Error:       err.Error(),
			}
		}
		if componentHealth.Status == "healthy" {
			healthyCount++
		}
		components[name] = componentHealth
	}

	var overallStatus string
	switch {
	case healthyCount == len(components):
		overallStatus = "healthy"
	case healthyCount > len(components)/2:
		overallStatus = "degraded"
	default:
		overallStatus = "unhealthy"
	}

	return &HealthStatus{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Uptime:     time.Since(hc.startTime),
		Components: components,
	}
}

// registerBuiltinChecks registers the default health checks
func (hc *HealthChecker) registerBuiltinChecks() {
	hc.dependencies["postgresql"] = func(ctx context.Context) (ComponentHealth, error) {
		start := time.Now()

		if hc.postgres == nil {
			return ComponentHealth{}, fmt.Errorf("PostgreSQL client not initialized")
		}

		var result int
		if err := hc.postgres.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
			return ComponentHealth{}, fmt.Errorf("PostgreSQL query failed: %w", err)
		}

		stats := hc.postgres.Stats()

		return ComponentHealth{
			Status:       "healthy",
			ResponseTime: time.Since(start),
			LastChecked:  time.Now(),
			Details: map[string]interface{}{
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
				"idle":             stats.Idle,
			},
		}, nil
	}

	hc.dependencies["redis"] = func(ctx context.Context) (ComponentHealth, error) {
		start := time.Now()

		if hc.redisClient == nil {
			return ComponentHealth{}, fmt.Errorf("Redis client not initialized")
		}

		pong, err := hc.redisClient.Ping(ctx).Result()
		if err != nil {
			return ComponentHealth{}, fmt.Errorf("Redis ping failed: %w", err)
		}

		return ComponentHealth{
			Status:       "healthy",
			ResponseTime: time.Since(start),
			LastChecked:  time.Now(),
			Details: map[string]interface{}{
				"ping_response": pong,
			},
		}, nil
	}
}
