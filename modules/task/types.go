package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/todo-tracker/domain/task"
)

// Service names registered by the task module.
const (
	ServiceListVisibleTasks  = "list-visible-tasks"
	ServiceAuthorizeMutation = "authorize-mutation"
	ServiceApplyTransition   = "apply-lifecycle-transition"
	ServiceCreateTask        = "create-task"
	ServiceDeleteTask        = "delete-task"
	ServiceGetTask           = "get-task"
	ServiceUpdateTask        = "update-task"
	ServiceGetAttachment     = "get-attachment"
)

// AttachmentUpload is a file submitted with a create or update request.
type AttachmentUpload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// AttachmentInfo is the attachment metadata returned with a task.
type AttachmentInfo struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Digest      string    `json:"digest,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskResponse is a task as seen by a specific caller.
type TaskResponse struct {
	ID           int             `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	OwnerID      string          `json:"owner_id"`
	AssigneeID   string          `json:"assignee_id,omitempty"`
	ActiveStatus string          `json:"active_status"`
	Importance   string          `json:"importance"`
	CanUpdate    bool            `json:"can_update"`
	CanDelete    bool            `json:"can_delete"`
	Attachment   *AttachmentInfo `json:"attachment,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ListVisibleTasksRequest is the request for listing the caller's tasks.
type ListVisibleTasksRequest struct {
	Identity   *domain.Identity `json:"identity,omitempty"`
	Search     string           `json:"search"`
	Sort       string           `json:"sort"`
	Filter     string           `json:"filter"`
	PageNumber int              `json:"page_number"`
	PageSize   int              `json:"page_size"`
}

// ListVisibleTasksResponse carries one page of visible tasks.
type ListVisibleTasksResponse struct {
	Page  *domain.Page[TaskResponse] `json:"page,omitempty"`
	Error *ServiceError              `json:"error,omitempty"`
}

// AuthorizeMutationRequest asks whether Identity may perform Operation.
type AuthorizeMutationRequest struct {
	Identity  *domain.Identity `json:"identity,omitempty"`
	TaskID    int              `json:"task_id"`
	Operation string           `json:"operation"`
}

// AuthorizeMutationResponse carries the decision.
type AuthorizeMutationResponse struct {
	Decision string        `json:"decision"`
	Error    *ServiceError `json:"error,omitempty"`
}

// ApplyTransitionRequest is the request for a lifecycle transition.
type ApplyTransitionRequest struct {
	Identity   *domain.Identity `json:"identity,omitempty"`
	TaskID     int              `json:"task_id"`
	Transition string           `json:"transition"`
}

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	Identity   *domain.Identity  `json:"identity,omitempty"`
	Input      domain.TaskInput  `json:"input"`
	Attachment *AttachmentUpload `json:"attachment,omitempty"`
}

// CreateTaskResponse is the response for creating a task.
type CreateTaskResponse struct {
	TaskID int           `json:"task_id,omitempty"`
	Error  *ServiceError `json:"error,omitempty"`
}

// GetTaskRequest is the request for getting a task.
type GetTaskRequest struct {
	Identity *domain.Identity `json:"identity,omitempty"`
	TaskID   int              `json:"task_id"`
}

// UpdateTaskRequest edits a task. An empty ActiveStatus keeps the current
// value. A new Attachment replaces the old one; RemoveAttachment clears it.
type UpdateTaskRequest struct {
	Identity         *domain.Identity  `json:"identity,omitempty"`
	TaskID           int               `json:"task_id"`
	Input            domain.TaskInput  `json:"input"`
	ActiveStatus     string            `json:"active_status,omitempty"`
	Attachment       *AttachmentUpload `json:"attachment,omitempty"`
	RemoveAttachment bool              `json:"remove_attachment,omitempty"`
}

// TaskResult is the response of services returning a single task.
type TaskResult struct {
	Task  *TaskResponse `json:"task,omitempty"`
	Error *ServiceError `json:"error,omitempty"`
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	Identity *domain.Identity `json:"identity,omitempty"`
	TaskID   int              `json:"task_id"`
}

// DeleteTaskResponse is the response for deleting a task.
type DeleteTaskResponse struct {
	Deleted bool          `json:"deleted"`
	Error   *ServiceError `json:"error,omitempty"`
}

// GetAttachmentRequest asks for the attachment bytes of a task.
type GetAttachmentRequest struct {
	Identity *domain.Identity `json:"identity,omitempty"`
	TaskID   int              `json:"task_id"`
}

// AttachmentContent is a downloaded attachment.
type AttachmentContent struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// GetAttachmentResponse carries the attachment bytes.
type GetAttachmentResponse struct {
	Attachment *AttachmentContent `json:"attachment,omitempty"`
	Error      *ServiceError      `json:"error,omitempty"`
}

// Error codes carried across the service container.
const (
	CodeNotFound     = "not_found"
	CodeAccessDenied = "access_denied"
	CodeValidation   = "validation_failed"
	CodePersistence  = "persistence_failure"
	CodeInternal     = "internal"
)

// ServiceError is the error envelope embedded in task service responses.
type ServiceError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// toServiceError classifies err into the task error taxonomy.
func toServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return &ServiceError{Code: CodeValidation, Message: domain.ErrValidation.Error(), Fields: ve.Fields}
	case errors.Is(err, domain.ErrNotFound):
		return &ServiceError{Code: CodeNotFound, Message: domain.ErrNotFound.Error()}
	case errors.Is(err, domain.ErrAccessDenied):
		return &ServiceError{Code: CodeAccessDenied, Message: domain.ErrAccessDenied.Error()}
	case errors.Is(err, domain.ErrPersistence):
		return &ServiceError{Code: CodePersistence, Message: domain.ErrPersistence.Error()}
	}
	return &ServiceError{Code: CodeInternal, Message: "internal error"}
}

// Err rebuilds the domain error so errors.Is and errors.As work for callers.
func (e *ServiceError) Err() error {
	if e == nil {
		return nil
	}
	switch e.Code {
	case CodeValidation:
		return &domain.ValidationError{Fields: e.Fields}
	case CodeNotFound:
		return domain.ErrNotFound
	case CodeAccessDenied:
		return domain.ErrAccessDenied
	case CodePersistence:
		return domain.ErrPersistence
	}
	return fmt.Errorf("task service: %s", e.Message)
}

// TaskPort defines the task operations available to driving adapters.
type TaskPort interface {
	ListVisibleTasks(ctx context.Context, req *ListVisibleTasksRequest) (*domain.Page[TaskResponse], error)
	AuthorizeMutation(ctx context.Context, id *domain.Identity, taskID int, op domain.Operation) (domain.Decision, error)
	ApplyLifecycleTransition(ctx context.Context, id *domain.Identity, taskID int, tr domain.Transition) (*TaskResponse, error)
	CreateTask(ctx context.Context, id *domain.Identity, input domain.TaskInput, att *AttachmentUpload) (int, error)
	DeleteTask(ctx context.Context, id *domain.Identity, taskID int) error
	GetTask(ctx context.Context, id *domain.Identity, taskID int) (*TaskResponse, error)
	UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*TaskResponse, error)
	GetAttachment(ctx context.Context, id *domain.Identity, taskID int) (*AttachmentContent, error)
}
