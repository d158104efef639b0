package api

import (
	"context"
	"fmt"
	"log"
	"time"

	taskdomain "github.com/example/todo-tracker/domain/task"
	"github.com/example/todo-tracker/modules/preferences"
	"github.com/example/todo-tracker/modules/ratelimit"
	"github.com/example/todo-tracker/modules/task"
	"github.com/example/todo-tracker/modules/user"
	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// Config configures the HTTP API.
type Config struct {
	Port            int
	DefaultPageSize int
	AllowedOrigins  string
	AuthRateLimit   int
	AuthRateWindow  time.Duration
	SessionTTL      time.Duration
}

// Notifier serves the live notification socket.
type Notifier interface {
	HandleWebSocket(c *websocket.Conn)
}

// APIModule is the HTTP API module.
type APIModule struct {
	cfg      Config
	app      *fiber.App
	users    user.UserPort
	tasks    task.TaskPort
	prefs    *preferences.PluginModule
	limiter  *ratelimit.PluginModule
	notifier Notifier
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.UsePluginModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg Config) *APIModule {
	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = 3
	}
	if cfg.AllowedOrigins == "" {
		cfg.AllowedOrigins = "*"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = preferences.DefaultTTL
	}
	return &APIModule{cfg: cfg}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"user", "task"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "user":
		m.users = user.NewUserAdapter(container)
	case "task":
		m.tasks = task.NewTaskAdapter(container)
	}
}

// SetPlugin receives the preferences and rate limiting plugins.
func (m *APIModule) SetPlugin(alias string, plugin mono.PluginModule) {
	switch alias {
	case "preferences":
		prefs, ok := plugin.(*preferences.PluginModule)
		if !ok {
			log.Printf("[api] Invalid plugin type for %q", alias)
			return
		}
		m.prefs = prefs
	case "ratelimit":
		limiter, ok := plugin.(*ratelimit.PluginModule)
		if !ok {
			log.Printf("[api] Invalid plugin type for %q", alias)
			return
		}
		m.limiter = limiter
	}
}

// SetNotifier sets the handler of the notification socket.
func (m *APIModule) SetNotifier(n Notifier) {
	m.notifier = n
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.users == nil {
		return fmt.Errorf("user dependency not set")
	}
	if m.tasks == nil {
		return fmt.Errorf("task dependency not set")
	}

	var prefs preferences.PageSizeStore
	if m.prefs != nil {
		prefs = m.prefs.Port()
	}
	var limiter ratelimit.Allower
	if m.limiter != nil {
		limiter = m.limiter.Port()
	}

	sessions := session.New(session.Config{
		Expiration:     m.cfg.SessionTTL,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
	handlers := NewHandlers(m.users, m.tasks, prefs, sessions, m.cfg.DefaultPageSize)
	m.app = newApp(m.cfg, handlers, m.users, limiter, m.notifier)

	addr := fmt.Sprintf(":%d", m.cfg.Port)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on %s", addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":              m.cfg.Port,
			"default_page_size": m.cfg.DefaultPageSize,
			"notifications":     m.notifier != nil,
		},
	}
}

// newApp builds the Fiber app with its middleware and routes.
func newApp(cfg Config, h *Handlers, tokens TokenValidator, limiter ratelimit.Allower, notifier Notifier) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		BodyLimit:             4 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	setupRoutes(app, cfg, h, tokens, limiter, notifier)
	return app
}

// setupRoutes configures all API routes.
func setupRoutes(app *fiber.App, cfg Config, h *Handlers, tokens TokenValidator, limiter ratelimit.Allower, notifier Notifier) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	if notifier != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/notifications", websocket.New(notifier.HandleWebSocket))
	}

	v1 := app.Group("/api/v1")

	authLimit := ratelimit.Handler(limiter, ratelimit.Rule{
		Name:   "auth",
		Limit:  cfg.AuthRateLimit,
		Window: cfg.AuthRateWindow,
	})
	authRoutes := v1.Group("/auth")
	authRoutes.Post("/register", authLimit, h.Register)
	authRoutes.Post("/login", authLimit, h.Login)
	authRoutes.Post("/refresh", h.Refresh)

	v1.Get("/users/:id/picture", h.ProfilePicture)
	v1.Get("/users/assignable", AuthMiddleware(tokens), h.AssignableUsers)

	optional := OptionalAuthMiddleware(tokens)
	required := AuthMiddleware(tokens)

	// Anonymous callers get an empty list and deny decisions.
	v1.Get("/tasks", optional, h.ListTasks)
	v1.Get("/tasks/:id/permissions", optional, h.Permissions)

	tasks := v1.Group("/tasks", required)
	tasks.Post("", h.CreateTask)
	tasks.Get("/:id", h.GetTask)
	tasks.Put("/:id", h.UpdateTask)
	tasks.Delete("/:id", h.DeleteTask)
	tasks.Get("/:id/attachment", h.Attachment)
	tasks.Post("/:id/check", h.Transition(taskdomain.TransitionCheck))
	tasks.Post("/:id/uncheck", h.Transition(taskdomain.TransitionUncheck))
	tasks.Post("/:id/important", h.Transition(taskdomain.TransitionMarkImportant))
	tasks.Post("/:id/trivial", h.Transition(taskdomain.TransitionMarkTrivial))
}
