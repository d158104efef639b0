package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	domain "github.com/example/todo-tracker/domain/task"
	"github.com/example/todo-tracker/events"
	"github.com/example/todo-tracker/modules/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the task module.
type Config struct {
	DBPath string
}

// TaskModule owns tasks and their attachments and hosts the visibility and
// authorization engine behind request-reply services.
type TaskModule struct {
	cfg      Config
	db       *gorm.DB
	storage  *fsjetstream.PluginModule
	userPort user.UserPort
	eventBus mono.EventBus
	service  *TaskService
}

var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.DependentModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)
var _ mono.UsePluginModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)

// NewModule creates a new TaskModule.
func NewModule(cfg Config) *TaskModule {
	if cfg.DBPath == "" {
		cfg.DBPath = "tasks.db"
	}
	return &TaskModule{cfg: cfg}
}

func (m *TaskModule) Name() string {
	return "task"
}

func (m *TaskModule) Dependencies() []string {
	return []string{"user"}
}

func (m *TaskModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "user" {
		m.userPort = user.NewUserAdapter(container)
	}
}

// SetPlugin receives the attachment storage plugin from the framework.
func (m *TaskModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "storage" {
		return
	}
	storage, ok := plugin.(*fsjetstream.PluginModule)
	if !ok {
		log.Printf("[task] Invalid plugin type for %q, expected *fsjetstream.PluginModule", alias)
		return
	}
	m.storage = storage
}

func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskStatusChangedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListVisibleTasks, json.Unmarshal, json.Marshal, m.listVisibleTasks,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListVisibleTasks, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceAuthorizeMutation, json.Unmarshal, json.Marshal, m.authorizeMutation,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceAuthorizeMutation, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceApplyTransition, json.Unmarshal, json.Marshal, m.applyTransition,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceApplyTransition, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateTask, json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateTask, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteTask, json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDeleteTask, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetTask, json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetTask, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdateTask, json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUpdateTask, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetAttachment, json.Unmarshal, json.Marshal, m.getAttachment,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetAttachment, err)
	}

	log.Printf("[task] Registered services: %s, %s, %s, %s, %s, %s, %s, %s",
		ServiceListVisibleTasks, ServiceAuthorizeMutation, ServiceApplyTransition, ServiceCreateTask,
		ServiceDeleteTask, ServiceGetTask, ServiceUpdateTask, ServiceGetAttachment)
	return nil
}

func (m *TaskModule) Start(_ context.Context) error {
	if m.userPort == nil {
		return fmt.Errorf("userPort dependency not set")
	}
	if m.storage == nil {
		return fmt.Errorf("required plugin 'storage' not registered")
	}
	if m.eventBus == nil {
		log.Println("[task] Warning: eventBus not set, events will not be published")
	}

	bucket := m.storage.Bucket(AttachmentBucket)
	if bucket == nil {
		return fmt.Errorf("bucket '%s' not found in storage plugin", AttachmentBucket)
	}
	blobs, err := NewBucketStore(bucket)
	if err != nil {
		return err
	}

	db, err := gorm.Open(sqlite.Open(m.cfg.DBPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	repo := NewTaskRepository(db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewTaskService(repo, blobs, m.userPort, m.eventBus)

	log.Printf("[task] Module started (database: %s, depends on: user)", m.cfg.DBPath)
	return nil
}

func (m *TaskModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[task] Module stopped")
	return nil
}

// Health reports the database connection state.
func (m *TaskModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "module not started"}
	}
	if err := m.service.repo.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.cfg.DBPath,
			"bucket":   AttachmentBucket,
		},
	}
}

// serviceError converts err for the wire, logging anything unexpected.
func serviceError(op string, err error) *ServiceError {
	se := toServiceError(err)
	if se.Code == CodeInternal || se.Code == CodePersistence {
		log.Printf("[task] %s failed: %v", op, err)
	}
	return se
}

func (m *TaskModule) listVisibleTasks(ctx context.Context, req ListVisibleTasksRequest, _ *mono.Msg) (ListVisibleTasksResponse, error) {
	page, err := m.service.ListVisible(ctx, req)
	if err != nil {
		return ListVisibleTasksResponse{Error: serviceError("list tasks", err)}, nil
	}
	return ListVisibleTasksResponse{Page: &page}, nil
}

func (m *TaskModule) authorizeMutation(ctx context.Context, req AuthorizeMutationRequest, _ *mono.Msg) (AuthorizeMutationResponse, error) {
	decision, err := m.service.AuthorizeMutation(ctx, req.Identity, req.TaskID, domain.ParseOperation(req.Operation))
	if err != nil {
		return AuthorizeMutationResponse{Decision: domain.Deny.String(), Error: serviceError("authorize", err)}, nil
	}
	return AuthorizeMutationResponse{Decision: decision.String()}, nil
}

func (m *TaskModule) applyTransition(ctx context.Context, req ApplyTransitionRequest, _ *mono.Msg) (TaskResult, error) {
	t, err := m.service.ApplyTransition(ctx, req.Identity, req.TaskID, req.Transition)
	if err != nil {
		return TaskResult{Error: serviceError("apply transition", err)}, nil
	}
	return TaskResult{Task: t}, nil
}

func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (CreateTaskResponse, error) {
	id, err := m.service.Create(ctx, req.Identity, req.Input, req.Attachment)
	if err != nil {
		return CreateTaskResponse{Error: serviceError("create task", err)}, nil
	}
	return CreateTaskResponse{TaskID: id}, nil
}

func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	if err := m.service.Delete(ctx, req.Identity, req.TaskID); err != nil {
		return DeleteTaskResponse{Error: serviceError("delete task", err)}, nil
	}
	return DeleteTaskResponse{Deleted: true}, nil
}

func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResult, error) {
	t, err := m.service.Get(ctx, req.Identity, req.TaskID)
	if err != nil {
		return TaskResult{Error: serviceError("get task", err)}, nil
	}
	return TaskResult{Task: t}, nil
}

func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResult, error) {
	t, err := m.service.Update(ctx, req)
	if err != nil {
		return TaskResult{Error: serviceError("update task", err)}, nil
	}
	return TaskResult{Task: t}, nil
}

func (m *TaskModule) getAttachment(ctx context.Context, req GetAttachmentRequest, _ *mono.Msg) (GetAttachmentResponse, error) {
	content, err := m.service.GetAttachment(ctx, req.Identity, req.TaskID)
	if err != nil {
		return GetAttachmentResponse{Error: serviceError("get attachment", err)}, nil
	}
	return GetAttachmentResponse{Attachment: content}, nil
}
