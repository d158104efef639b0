package task

import (
	"errors"
	"testing"

	domain "github.com/example/todo-tracker/domain/task"
)

func setupTestRepo(t *testing.T) *TaskRepository {
	t.Helper()
	repo := NewTaskRepository(setupTestDB(t))
	if err := repo.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return repo
}

func TestTaskRepository_UpdateKeepsOwner(t *testing.T) {
	repo := setupTestRepo(t)

	task := domain.NewTask("u1", domain.TaskInput{Title: "Mine"})
	if err := repo.Insert(&task, nil); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	task.OwnerID = "u2"
	task.Title = "Renamed"
	if err := repo.Update(&task); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.FindByID(task.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.OwnerID != "u1" {
		t.Errorf("OwnerID = %q, want u1", got.OwnerID)
	}
	if got.Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", got.Title)
	}
}

func TestTaskRepository_Attachments(t *testing.T) {
	repo := setupTestRepo(t)

	task := domain.NewTask("u1", domain.TaskInput{Title: "With file"})
	att := &domain.Attachment{Filename: "a.png", StorageKey: "k1", ContentType: "image/png", Size: 4}
	if err := repo.Insert(&task, att); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if att.TaskID != task.ID {
		t.Errorf("att.TaskID = %d, want %d", att.TaskID, task.ID)
	}

	if err := repo.UpdateWithAttachment(&task, &domain.Attachment{Filename: "b.png", StorageKey: "k2", ContentType: "image/png"}, false); err != nil {
		t.Fatalf("UpdateWithAttachment() error = %v", err)
	}
	got, err := repo.FindAttachment(task.ID)
	if err != nil || got == nil || got.StorageKey != "k2" {
		t.Fatalf("FindAttachment() = %+v, %v", got, err)
	}

	byTask, err := repo.FindAttachments([]int{task.ID, 999})
	if err != nil {
		t.Fatalf("FindAttachments() error = %v", err)
	}
	if len(byTask) != 1 || byTask[task.ID].Filename != "b.png" {
		t.Errorf("FindAttachments() = %+v", byTask)
	}

	if err := repo.Delete(task.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := repo.FindAttachment(task.ID); got != nil {
		t.Errorf("attachment row survived task delete: %+v", got)
	}
	if err := repo.Delete(task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTaskRepository_UpdateWithAttachmentRemoves(t *testing.T) {
	repo := setupTestRepo(t)

	task := domain.NewTask("u1", domain.TaskInput{Title: "With file"})
	if err := repo.Insert(&task, &domain.Attachment{Filename: "a.png", StorageKey: "k1", ContentType: "image/png"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	task.Title = "Without file"
	if err := repo.UpdateWithAttachment(&task, nil, true); err != nil {
		t.Fatalf("UpdateWithAttachment() error = %v", err)
	}
	if got, _ := repo.FindAttachment(task.ID); got != nil {
		t.Errorf("attachment row kept: %+v", got)
	}
	got, err := repo.FindByID(task.ID)
	if err != nil || got.Title != "Without file" {
		t.Errorf("FindByID() = %+v, %v", got, err)
	}
}

func TestTaskRepository_UpdateMissing(t *testing.T) {
	repo := setupTestRepo(t)

	task := domain.Task{ID: 42, Title: "ghost", ActiveStatus: domain.StatusDoing, Importance: domain.ImportanceTrivial}
	if err := repo.Update(&task); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}
