package ports

//go:generate mockgen -source=health.go -destination=mocks/health_mock.go -package=mocks

import "context"

// HealthChecker checks a storage dependency.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis", "memory").
	Name() string
}
