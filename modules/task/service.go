package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	domain "github.com/example/todo-tracker/domain/task"
	"github.com/example/todo-tracker/events"
	"github.com/example/todo-tracker/modules/user"
	"github.com/go-monolith/mono"
	"golang.org/x/sync/singleflight"
)

// AssigneeDirectory resolves the users a task can be assigned to.
type AssigneeDirectory interface {
	GetUser(ctx context.Context, userID string) (*user.UserInfo, error)
}

// TaskService orchestrates the visibility and authorization engine over the
// task store, the attachment store and the event bus.
type TaskService struct {
	repo     *TaskRepository
	blobs    AttachmentStore
	users    AssigneeDirectory
	eventBus mono.EventBus
	sfGroup  singleflight.Group
}

// NewTaskService creates a new TaskService. eventBus may be nil.
func NewTaskService(repo *TaskRepository, blobs AttachmentStore, users AssigneeDirectory, eventBus mono.EventBus) *TaskService {
	return &TaskService{
		repo:     repo,
		blobs:    blobs,
		users:    users,
		eventBus: eventBus,
	}
}

// ListVisible returns one page of the tasks id may see after search, filter
// and sort. Anonymous callers get an empty page.
func (s *TaskService) ListVisible(_ context.Context, req ListVisibleTasksRequest) (domain.Page[TaskResponse], error) {
	filter, err := domain.ParseStatusFilter(req.Filter)
	if err != nil {
		return domain.Page[TaskResponse]{}, err
	}

	var visible []domain.Task
	if req.Identity != nil {
		all, err := s.repo.FindAll()
		if err != nil {
			return domain.Page[TaskResponse]{}, err
		}
		visible = domain.Visible(all, req.Identity)
	}

	ordered := domain.Apply(visible, domain.Query{
		Search: req.Search,
		Sort:   domain.ParseSortKey(req.Sort),
		Filter: filter,
	})
	page := domain.Paginate(ordered, req.PageNumber, req.PageSize)

	ids := make([]int, 0, len(page.Items))
	for _, t := range page.Items {
		ids = append(ids, t.ID)
	}
	atts, err := s.repo.FindAttachments(ids)
	if err != nil {
		return domain.Page[TaskResponse]{}, err
	}

	return domain.MapPage(page, func(t domain.Task) TaskResponse {
		var att *domain.Attachment
		if a, ok := atts[t.ID]; ok {
			att = &a
		}
		return toTaskResponse(&t, att, req.Identity)
	}), nil
}

// AuthorizeMutation loads the task and asks the engine for a decision.
func (s *TaskService) AuthorizeMutation(_ context.Context, id *domain.Identity, taskID int, op domain.Operation) (domain.Decision, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return domain.Deny, err
	}
	return domain.Authorize(id, t, op), nil
}

// ApplyTransition authorizes an update, applies tr and persists the result
// when something changed.
func (s *TaskService) ApplyTransition(_ context.Context, id *domain.Identity, taskID int, transition string) (*TaskResponse, error) {
	tr, err := domain.ParseTransition(transition)
	if err != nil {
		return nil, err
	}

	t, err := s.authorized(id, taskID, domain.OpUpdate)
	if err != nil {
		return nil, err
	}

	next, changed := domain.ApplyTransition(*t, tr)
	if changed {
		next.UpdatedAt = time.Now()
		if err := s.repo.Update(&next); err != nil {
			return nil, err
		}
		s.publishStatusChanged(&next, tr, id)
	}

	att, err := s.repo.FindAttachment(taskID)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(&next, att, id)
	return &resp, nil
}

// Create validates and stores a new task owned by id.
func (s *TaskService) Create(ctx context.Context, id *domain.Identity, input domain.TaskInput, upload *AttachmentUpload) (int, error) {
	if id == nil || id.ID == "" {
		return 0, domain.ErrAccessDenied
	}

	input, ve := domain.ValidateTask(input)
	ve = domain.Merge(ve, validateUpload(upload))
	assigneeErr, err := s.checkAssignee(ctx, input.AssigneeID)
	if err != nil {
		return 0, err
	}
	if ve = domain.Merge(ve, assigneeErr); ve != nil {
		return 0, ve
	}

	t := domain.NewTask(id.ID, input)

	var att *domain.Attachment
	if upload != nil {
		att, err = s.storeUpload(ctx, upload)
		if err != nil {
			return 0, err
		}
	}

	if err := s.repo.Insert(&t, att); err != nil {
		if att != nil {
			s.discardBlob(ctx, att.StorageKey)
		}
		return 0, err
	}

	log.Printf("[task] Created task %d for owner %s", t.ID, t.OwnerID)
	s.publishCreated(&t, id)
	return t.ID, nil
}

// Get returns a task the caller may see.
func (s *TaskService) Get(_ context.Context, id *domain.Identity, taskID int) (*TaskResponse, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if !domain.CanSee(id, t) {
		return nil, domain.ErrAccessDenied
	}

	att, err := s.repo.FindAttachment(taskID)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(t, att, id)
	return &resp, nil
}

// Update edits a task after an update authorization.
func (s *TaskService) Update(ctx context.Context, req UpdateTaskRequest) (*TaskResponse, error) {
	t, err := s.authorized(req.Identity, req.TaskID, domain.OpUpdate)
	if err != nil {
		return nil, err
	}

	input, ve := domain.ValidateTask(req.Input)
	ve = domain.Merge(ve, validateUpload(req.Attachment))

	status := t.ActiveStatus
	if req.ActiveStatus != "" {
		parsed, perr := domain.ParseActiveStatus(req.ActiveStatus)
		if perr != nil {
			ve = domain.Merge(ve, domain.NewValidationError("activeStatus", "must be Doing or Done"))
		}
		status = parsed
	}

	assigneeErr, err := s.checkAssignee(ctx, input.AssigneeID)
	if err != nil {
		return nil, err
	}
	if ve = domain.Merge(ve, assigneeErr); ve != nil {
		return nil, ve
	}

	t.Title = input.Title
	t.Description = input.Description
	t.AssigneeID = input.AssigneeID
	t.Importance = domain.ImportanceFromFlag(input.Important)
	t.ActiveStatus = status
	t.UpdatedAt = time.Now()

	old, err := s.repo.FindAttachment(t.ID)
	if err != nil {
		return nil, err
	}

	var att *domain.Attachment
	if req.Attachment != nil {
		att, err = s.storeUpload(ctx, req.Attachment)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateWithAttachment(t, att, req.RemoveAttachment); err != nil {
		if att != nil {
			s.discardBlob(ctx, att.StorageKey)
		}
		return nil, err
	}

	if att == nil && !req.RemoveAttachment {
		att = old
	} else if old != nil {
		s.discardBlob(ctx, old.StorageKey)
	}

	s.publishUpdated(t, req.Identity)
	resp := toTaskResponse(t, att, req.Identity)
	return &resp, nil
}

// Delete removes a task after a delete authorization. The attachment row
// goes with it and the blob is removed afterwards.
func (s *TaskService) Delete(ctx context.Context, id *domain.Identity, taskID int) error {
	if _, err := s.authorized(id, taskID, domain.OpDelete); err != nil {
		return err
	}

	att, err := s.repo.FindAttachment(taskID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(taskID); err != nil {
		return err
	}
	if att != nil {
		s.discardBlob(ctx, att.StorageKey)
	}

	log.Printf("[task] Deleted task %d", taskID)
	s.publishDeleted(taskID, id)
	return nil
}

// GetAttachment returns the attachment bytes of a task the caller may see.
// Concurrent downloads of the same blob share one read.
func (s *TaskService) GetAttachment(ctx context.Context, id *domain.Identity, taskID int) (*AttachmentContent, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if !domain.CanSee(id, t) {
		return nil, domain.ErrAccessDenied
	}

	att, err := s.repo.FindAttachment(taskID)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, domain.ErrNotFound
	}

	val, err, _ := s.sfGroup.Do(att.StorageKey, func() (any, error) {
		return s.blobs.Get(ctx, att.StorageKey)
	})
	if err != nil {
		return nil, err
	}

	return &AttachmentContent{
		Filename:    att.Filename,
		ContentType: att.ContentType,
		Data:        val.([]byte),
	}, nil
}

// authorized loads a task and checks op for id.
func (s *TaskService) authorized(id *domain.Identity, taskID int, op domain.Operation) (*domain.Task, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if domain.Authorize(id, t, op) != domain.Permit {
		return nil, domain.ErrAccessDenied
	}
	return t, nil
}

// checkAssignee returns a validation error when assigneeID names no user.
// The second return value is for lookup failures.
func (s *TaskService) checkAssignee(ctx context.Context, assigneeID string) (*domain.ValidationError, error) {
	if assigneeID == "" || s.users == nil {
		return nil, nil
	}
	if _, err := s.users.GetUser(ctx, assigneeID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return domain.NewValidationError("assigneeId", "unknown user"), nil
		}
		return nil, fmt.Errorf("failed to look up assignee: %w", err)
	}
	return nil, nil
}

func validateUpload(upload *AttachmentUpload) *domain.ValidationError {
	if upload == nil {
		return nil
	}
	return domain.ValidateAttachment(domain.AttachmentInput{
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Size:        int64(len(upload.Data)),
	})
}

func (s *TaskService) storeUpload(ctx context.Context, upload *AttachmentUpload) (*domain.Attachment, error) {
	contentType := strings.ToLower(strings.TrimSpace(upload.ContentType))
	info, err := s.blobs.Put(ctx, upload.Filename, upload.Data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return &domain.Attachment{
		Filename:    sanitizeFilename(upload.Filename),
		StorageKey:  info.Key,
		ContentType: contentType,
		Size:        info.Size,
		Digest:      info.Digest,
		CreatedAt:   time.Now(),
	}, nil
}

// discardBlob removes stored bytes. Failures leave an orphan blob and are
// only logged.
func (s *TaskService) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		log.Printf("[task] Warning: failed to remove attachment blob %s: %v", key, err)
	}
}

func (s *TaskService) publishCreated(t *domain.Task, actor *domain.Identity) {
	if s.eventBus == nil {
		return
	}
	event := events.TaskCreatedEvent{
		TaskID:    t.ID,
		Title:     t.Title,
		OwnerID:   t.OwnerID,
		ActorName: actor.Name,
		CreatedAt: t.CreatedAt,
	}
	if err := events.TaskCreatedV1.Publish(s.eventBus, event, nil); err != nil {
		// Event publishing is best-effort; log but don't fail the operation
		log.Printf("[task] Warning: failed to publish TaskCreated event for task %d: %v", t.ID, err)
	}
}

func (s *TaskService) publishUpdated(t *domain.Task, actor *domain.Identity) {
	if s.eventBus == nil {
		return
	}
	event := events.TaskUpdatedEvent{
		TaskID:    t.ID,
		Title:     t.Title,
		ActorID:   actor.ID,
		UpdatedAt: t.UpdatedAt,
	}
	if err := events.TaskUpdatedV1.Publish(s.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskUpdated event for task %d: %v", t.ID, err)
	}
}

func (s *TaskService) publishStatusChanged(t *domain.Task, tr domain.Transition, actor *domain.Identity) {
	if s.eventBus == nil {
		return
	}
	event := events.TaskStatusChangedEvent{
		TaskID:       t.ID,
		Transition:   string(tr),
		ActiveStatus: string(t.ActiveStatus),
		Importance:   string(t.Importance),
		ActorID:      actor.ID,
		ChangedAt:    t.UpdatedAt,
	}
	if err := events.TaskStatusChangedV1.Publish(s.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskStatusChanged event for task %d: %v", t.ID, err)
	}
}

func (s *TaskService) publishDeleted(taskID int, actor *domain.Identity) {
	if s.eventBus == nil {
		return
	}
	event := events.TaskDeletedEvent{
		TaskID:    taskID,
		ActorID:   actor.ID,
		DeletedAt: time.Now(),
	}
	if err := events.TaskDeletedV1.Publish(s.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskDeleted event for task %d: %v", taskID, err)
	}
}

// toTaskResponse converts a domain Task to a TaskResponse for viewer.
func toTaskResponse(t *domain.Task, att *domain.Attachment, viewer *domain.Identity) TaskResponse {
	resp := TaskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		OwnerID:      t.OwnerID,
		AssigneeID:   t.AssigneeID,
		ActiveStatus: string(t.ActiveStatus),
		Importance:   string(t.Importance),
		CanUpdate:    domain.Authorize(viewer, t, domain.OpUpdate) == domain.Permit,
		CanDelete:    domain.Authorize(viewer, t, domain.OpDelete) == domain.Permit,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if att != nil {
		resp.Attachment = &AttachmentInfo{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Size:        att.Size,
			Digest:      att.Digest,
			CreatedAt:   att.CreatedAt,
		}
	}
	return resp
}
