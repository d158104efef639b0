package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// PluginModule owns the Redis client of the limiter. It is a plugin so that
// it is running before the API module mounts its routes.
type PluginModule struct {
	container types.ServiceContainer
	client    *redis.Client
	limiter   *Limiter
	redisAddr string
	keyPrefix string
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates a rate limiter plugin for the Redis server at
// redisAddr.
func NewPluginModule(redisAddr string) *PluginModule {
	return &PluginModule{
		redisAddr: redisAddr,
		keyPrefix: "ratelimit:",
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "ratelimit"
}

// Start creates the Redis client. A failed ping is logged, not returned:
// the middleware fails open while Redis is away.
func (m *PluginModule) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{
		Addr:         m.redisAddr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := m.client.Ping(ctx).Err(); err != nil {
		log.Printf("[ratelimit] Warning: Redis not reachable at %s, requests will not be limited: %v", m.redisAddr, err)
	} else {
		log.Printf("[ratelimit] Connected to Redis at %s", m.redisAddr)
	}

	m.limiter = NewLimiter(m.client, m.keyPrefix)
	return nil
}

// Stop closes the Redis connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			log.Printf("[ratelimit] Error closing Redis connection: %v", err)
		}
	}
	log.Println("[ratelimit] Plugin stopped")
	return nil
}

// SetContainer sets the service container for this plugin.
func (m *PluginModule) SetContainer(container types.ServiceContainer) {
	m.container = container
}

// Container returns the service container for this plugin.
func (m *PluginModule) Container() types.ServiceContainer {
	return m.container
}

// Port returns the limiter for consumers. It is nil before Start.
func (m *PluginModule) Port() Allower {
	if m.limiter == nil {
		return nil
	}
	return m.limiter
}

// Health verifies the Redis connection.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{Healthy: false, Message: "redis client not initialized"}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis_addr": m.redisAddr,
		},
	}
}
