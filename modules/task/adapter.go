package task

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/todo-tracker/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// taskAdapter wraps ServiceContainer for type-safe cross-module communication.
type taskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a new adapter for task services.
// container is the ServiceContainer from the task module received via SetDependencyServiceContainer.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task adapter requires non-nil ServiceContainer")
	}
	return &taskAdapter{container: container}
}

func (a *taskAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService[any, any](
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

// ListVisibleTasks returns a page of the caller's visible tasks.
func (a *taskAdapter) ListVisibleTasks(ctx context.Context, req *ListVisibleTasksRequest) (*domain.Page[TaskResponse], error) {
	var resp ListVisibleTasksResponse
	if err := a.call(ctx, ServiceListVisibleTasks, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.Page, nil
}

// AuthorizeMutation asks for a permit or deny decision.
func (a *taskAdapter) AuthorizeMutation(ctx context.Context, id *domain.Identity, taskID int, op domain.Operation) (domain.Decision, error) {
	req := AuthorizeMutationRequest{Identity: id, TaskID: taskID, Operation: string(op)}
	var resp AuthorizeMutationResponse
	if err := a.call(ctx, ServiceAuthorizeMutation, &req, &resp); err != nil {
		return domain.Deny, err
	}
	if resp.Error != nil {
		return domain.Deny, resp.Error.Err()
	}
	if resp.Decision == domain.Permit.String() {
		return domain.Permit, nil
	}
	return domain.Deny, nil
}

// ApplyLifecycleTransition checks, unchecks or flags a task.
func (a *taskAdapter) ApplyLifecycleTransition(ctx context.Context, id *domain.Identity, taskID int, tr domain.Transition) (*TaskResponse, error) {
	req := ApplyTransitionRequest{Identity: id, TaskID: taskID, Transition: string(tr)}
	var resp TaskResult
	if err := a.call(ctx, ServiceApplyTransition, &req, &resp); err != nil {
		return nil, err
	}
	return resp.task()
}

// CreateTask creates a task and returns its id.
func (a *taskAdapter) CreateTask(ctx context.Context, id *domain.Identity, input domain.TaskInput, att *AttachmentUpload) (int, error) {
	req := CreateTaskRequest{Identity: id, Input: input, Attachment: att}
	var resp CreateTaskResponse
	if err := a.call(ctx, ServiceCreateTask, &req, &resp); err != nil {
		return 0, err
	}
	if resp.Error != nil {
		return 0, resp.Error.Err()
	}
	return resp.TaskID, nil
}

// DeleteTask removes a task.
func (a *taskAdapter) DeleteTask(ctx context.Context, id *domain.Identity, taskID int) error {
	req := DeleteTaskRequest{Identity: id, TaskID: taskID}
	var resp DeleteTaskResponse
	if err := a.call(ctx, ServiceDeleteTask, &req, &resp); err != nil {
		return err
	}
	return resp.Error.Err()
}

// GetTask returns a single visible task.
func (a *taskAdapter) GetTask(ctx context.Context, id *domain.Identity, taskID int) (*TaskResponse, error) {
	req := GetTaskRequest{Identity: id, TaskID: taskID}
	var resp TaskResult
	if err := a.call(ctx, ServiceGetTask, &req, &resp); err != nil {
		return nil, err
	}
	return resp.task()
}

// UpdateTask edits a task.
func (a *taskAdapter) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*TaskResponse, error) {
	var resp TaskResult
	if err := a.call(ctx, ServiceUpdateTask, req, &resp); err != nil {
		return nil, err
	}
	return resp.task()
}

// GetAttachment downloads the attachment of a visible task.
func (a *taskAdapter) GetAttachment(ctx context.Context, id *domain.Identity, taskID int) (*AttachmentContent, error) {
	req := GetAttachmentRequest{Identity: id, TaskID: taskID}
	var resp GetAttachmentResponse
	if err := a.call(ctx, ServiceGetAttachment, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.Attachment, nil
}

func (r TaskResult) task() (*TaskResponse, error) {
	if r.Error != nil {
		return nil, r.Error.Err()
	}
	return r.Task, nil
}
