package task

import (
	"errors"
	"fmt"

	domain "github.com/example/todo-tracker/domain/task"
	"gorm.io/gorm"
)

// TaskRepository persists tasks and their attachment rows using GORM.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Migrate creates or updates the task tables.
func (r *TaskRepository) Migrate() error {
	return r.db.AutoMigrate(&domain.Task{}, &domain.Attachment{})
}

// FindAll returns every task ordered by id.
func (r *TaskRepository) FindAll() ([]domain.Task, error) {
	var tasks []domain.Task
	if err := r.db.Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, persistenceError("find tasks", err)
	}
	return tasks, nil
}

// FindByID finds a task by ID.
func (r *TaskRepository) FindByID(id int) (*domain.Task, error) {
	var t domain.Task
	if err := r.db.First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, persistenceError("find task", err)
	}
	return &t, nil
}

// Insert stores t and, when given, its attachment row in one transaction.
// t.ID is set on success.
func (r *TaskRepository) Insert(t *domain.Task, att *domain.Attachment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return persistenceError("insert task", err)
		}
		if att == nil {
			return nil
		}
		att.TaskID = t.ID
		if err := tx.Create(att).Error; err != nil {
			return persistenceError("insert attachment", err)
		}
		return nil
	})
}

// Update saves the mutable columns of t. The owner column is never written.
func (r *TaskRepository) Update(t *domain.Task) error {
	return updateTask(r.db, t)
}

// UpdateWithAttachment saves t and its attachment change in one transaction.
// A non-nil att replaces the current row. removeAttachment drops the row
// when att is nil.
func (r *TaskRepository) UpdateWithAttachment(t *domain.Task, att *domain.Attachment, removeAttachment bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := updateTask(tx, t); err != nil {
			return err
		}
		switch {
		case att != nil:
			if err := tx.Where("task_id = ?", t.ID).Delete(&domain.Attachment{}).Error; err != nil {
				return persistenceError("replace attachment", err)
			}
			att.ID = 0
			att.TaskID = t.ID
			if err := tx.Create(att).Error; err != nil {
				return persistenceError("replace attachment", err)
			}
		case removeAttachment:
			if err := tx.Where("task_id = ?", t.ID).Delete(&domain.Attachment{}).Error; err != nil {
				return persistenceError("delete attachment", err)
			}
		}
		return nil
	})
}

func updateTask(db *gorm.DB, t *domain.Task) error {
	result := db.Model(&domain.Task{}).
		Where("id = ?", t.ID).
		Select("title", "description", "assignee_id", "active_status", "importance", "updated_at").
		Updates(t)
	if result.Error != nil {
		return persistenceError("update task", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the task and its attachment row in one transaction.
func (r *TaskRepository) Delete(id int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&domain.Attachment{}).Error; err != nil {
			return persistenceError("delete attachment", err)
		}
		result := tx.Delete(&domain.Task{}, id)
		if result.Error != nil {
			return persistenceError("delete task", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// FindAttachment returns the attachment row of a task, or nil when the task
// has none.
func (r *TaskRepository) FindAttachment(taskID int) (*domain.Attachment, error) {
	var att domain.Attachment
	err := r.db.Where("task_id = ?", taskID).Limit(1).Find(&att).Error
	if err != nil {
		return nil, persistenceError("find attachment", err)
	}
	if att.ID == 0 {
		return nil, nil
	}
	return &att, nil
}

// FindAttachments returns the attachment rows of taskIDs keyed by task id.
func (r *TaskRepository) FindAttachments(taskIDs []int) (map[int]domain.Attachment, error) {
	out := make(map[int]domain.Attachment, len(taskIDs))
	if len(taskIDs) == 0 {
		return out, nil
	}
	var rows []domain.Attachment
	if err := r.db.Where("task_id IN ?", taskIDs).Find(&rows).Error; err != nil {
		return nil, persistenceError("find attachments", err)
	}
	for _, row := range rows {
		out[row.TaskID] = row
	}
	return out, nil
}

// Ping checks the database connection.
func (r *TaskRepository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// persistenceError wraps a store failure so callers can match
// domain.ErrPersistence while the cause stays in the message.
func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrPersistence, op, err)
}
