package preferences

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/storage"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/storage/redis/v3"
)

// DefaultTTL is how long an unused session preference is kept.
const DefaultTTL = 24 * time.Hour

// PluginModule provides session preferences as a mono plugin module.
// Plugins start first and stop last, so consumers can rely on Port() in Start.
type PluginModule struct {
	container types.ServiceContainer
	storage   storage.Storage
	port      PageSizeStore
	redisAddr string
	ttl       time.Duration
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates a preferences plugin for the Redis server at
// redisAddr. A non-positive ttl selects DefaultTTL.
func NewPluginModule(redisAddr string, ttl time.Duration) *PluginModule {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PluginModule{
		redisAddr: redisAddr,
		ttl:       ttl,
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "preferences"
}

// Start connects to Redis. An unreachable server is not fatal: the port then
// reports ErrUnavailable and callers fall back to defaults.
func (m *PluginModule) Start(_ context.Context) error {
	host, port := parseRedisAddr(m.redisAddr)

	// gofiber/storage/redis panics on connection failure, so probe first.
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 2*time.Second)
	if err != nil {
		log.Printf("[preferences] Warning: Redis not reachable at %s, page sizes will not be remembered: %v", m.redisAddr, err)
		m.port = NewPageSizeStore(nil, m.ttl)
		return nil
	}
	conn.Close()

	m.storage = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		PoolSize: 10,
	})
	m.port = NewPageSizeStore(m.storage, m.ttl)
	log.Printf("[preferences] Connected to Redis at %s (TTL: %s)", m.redisAddr, m.ttl)
	return nil
}

// Stop closes the Redis connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if m.storage != nil {
		if err := m.storage.Close(); err != nil {
			log.Printf("[preferences] Error closing connection: %v", err)
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	log.Println("[preferences] Plugin stopped")
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

// Port returns the PageSizeStore for consumers.
func (m *PluginModule) Port() PageSizeStore {
	return m.port
}

// Health returns the current health status.
func (m *PluginModule) Health(_ context.Context) mono.HealthStatus {
	if m.storage == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "redis not connected",
		}
	}

	if _, err := m.storage.Get("__health_check__"); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("health check failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis_addr": m.redisAddr,
			"ttl":        m.ttl.String(),
		},
	}
}

// parseRedisAddr parses "host:port" into host and port.
// Returns defaults (127.0.0.1:6379) for invalid or missing values.
func parseRedisAddr(addr string) (string, int) {
	const defaultHost = "127.0.0.1"
	const defaultPort = 6379

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	if host == "" {
		host = defaultHost
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}
	return host, port
}
