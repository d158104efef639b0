package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/todo-tracker/modules/api"
	"github.com/example/todo-tracker/modules/notification"
	"github.com/example/todo-tracker/modules/preferences"
	"github.com/example/todo-tracker/modules/ratelimit"
	"github.com/example/todo-tracker/modules/task"
	"github.com/example/todo-tracker/modules/user"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
)

const (
	shutdownTimeout = 30 * time.Second

	// attachmentBucketMaxBytes caps the attachment bucket at 1GB.
	attachmentBucketMaxBytes = 1024 * 1024 * 1024
)

func main() {
	cfg := loadConfig()
	logCloser := setupLogging(cfg)

	log.Println("=== Todo Tracker ===")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Storage Path: %s", cfg.StoragePath)
	log.Printf("Redis: %s", cfg.RedisAddr)

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(cfg.StoragePath),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	storagePlugin, err := fsjetstream.New(fsjetstream.Config{
		Buckets: []fsjetstream.BucketConfig{
			{
				Name:        task.AttachmentBucket,
				Description: "Task attachments",
				MaxBytes:    attachmentBucketMaxBytes,
				Storage:     fsjetstream.FileStorage,
				Compression: true,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create storage plugin: %v", err)
	}
	if err := app.RegisterPlugin(storagePlugin, "storage"); err != nil {
		log.Fatalf("Failed to register storage plugin: %v", err)
	}
	if err := app.RegisterPlugin(preferences.NewPluginModule(cfg.RedisAddr, cfg.SessionTTL), "preferences"); err != nil {
		log.Fatalf("Failed to register preferences plugin: %v", err)
	}
	if err := app.RegisterPlugin(ratelimit.NewPluginModule(cfg.RedisAddr), "ratelimit"); err != nil {
		log.Fatalf("Failed to register rate limit plugin: %v", err)
	}

	jwtCfg := user.DefaultJWTConfig()
	jwtCfg.SecretKey = cfg.JWTSecretKey
	jwtCfg.Issuer = cfg.JWTIssuer

	userModule := user.NewModule(user.Config{
		DBPath:      cfg.UserDBPath,
		JWT:         jwtCfg,
		AdminEmails: cfg.AdminEmails,
	})
	taskModule := task.NewModule(task.Config{DBPath: cfg.TaskDBPath})
	notificationModule := notification.NewModule()
	apiModule := api.NewModule(api.Config{
		Port:            cfg.HTTPPort,
		DefaultPageSize: cfg.DefaultPageSize,
		AllowedOrigins:  cfg.AllowedOrigins,
		AuthRateLimit:   cfg.AuthRateLimit,
		AuthRateWindow:  cfg.AuthRateWindow,
		SessionTTL:      cfg.SessionTTL,
	})
	apiModule.SetNotifier(notificationModule)

	app.Register(userModule)
	app.Register(taskModule)
	app.Register(notificationModule)
	app.Register(apiModule)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	log.Println("=== Application Started ===")
	log.Printf("API available at http://localhost:%d", cfg.HTTPPort)
	log.Println("Endpoints:")
	log.Println("  POST   /api/v1/auth/register          - Register an account")
	log.Println("  POST   /api/v1/auth/login             - Log in")
	log.Println("  GET    /api/v1/tasks                  - List visible tasks")
	log.Println("  POST   /api/v1/tasks                  - Create a task")
	log.Println("  GET    /api/v1/tasks/:id              - Get a task")
	log.Println("  PUT    /api/v1/tasks/:id              - Update a task")
	log.Println("  DELETE /api/v1/tasks/:id              - Delete a task")
	log.Println("  POST   /api/v1/tasks/:id/check        - Mark a task done")
	log.Println("  GET    /api/v1/tasks/:id/permissions  - Update/delete decisions")
	log.Println("  GET    /ws/notifications              - Live task announcements")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	logCloser.Close()
	os.Exit(exitCode)
}
