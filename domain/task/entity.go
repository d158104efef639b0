package task

import (
	"fmt"
	"time"
)

// ActiveStatus is the completion flag of a task.
type ActiveStatus string

const (
	StatusDoing ActiveStatus = "Doing"
	StatusDone  ActiveStatus = "Done"
)

// Valid reports whether s is one of the two known states.
func (s ActiveStatus) Valid() bool {
	return s == StatusDoing || s == StatusDone
}

// ParseActiveStatus converts a stored or submitted value into an ActiveStatus.
func ParseActiveStatus(v string) (ActiveStatus, error) {
	s := ActiveStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown active status %q", v)
	}
	return s, nil
}

// Importance is the priority flag of a task.
type Importance string

const (
	ImportanceImportant Importance = "Important"
	ImportanceTrivial   Importance = "Trivial"
)

// ImportanceFromFlag maps the boolean form flag to an Importance.
func ImportanceFromFlag(important bool) Importance {
	if important {
		return ImportanceImportant
	}
	return ImportanceTrivial
}

// Task is the core domain entity: a todo item with an owner, an optional
// assignee and two independent status flags.
type Task struct {
	ID           int          `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string       `gorm:"not null;size:100" json:"title"`
	Description  string       `gorm:"size:1000" json:"description"`
	OwnerID      string       `gorm:"not null;index;type:text" json:"owner_id"`
	AssigneeID   string       `gorm:"index;type:text" json:"assignee_id,omitempty"`
	ActiveStatus ActiveStatus `gorm:"not null;type:text" json:"active_status"`
	Importance   Importance   `gorm:"not null;type:text" json:"importance"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// NewTask builds a task owned by ownerID from validated input. New tasks
// always start in the Doing state.
func NewTask(ownerID string, in TaskInput) Task {
	return Task{
		Title:        in.Title,
		Description:  in.Description,
		OwnerID:      ownerID,
		AssigneeID:   in.AssigneeID,
		ActiveStatus: StatusDoing,
		Importance:   ImportanceFromFlag(in.Important),
	}
}

// Attachment is the metadata row of the single file a task may carry.
// The bytes live in the blob store under StorageKey.
type Attachment struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskID      int       `gorm:"uniqueIndex;not null" json:"task_id"`
	Filename    string    `gorm:"not null;type:text" json:"filename"`
	StorageKey  string    `gorm:"not null;type:text" json:"-"`
	ContentType string    `gorm:"not null;type:text" json:"content_type"`
	Size        int64     `json:"size"`
	Digest      string    `gorm:"type:text" json:"digest,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the table name for the Attachment entity.
func (Attachment) TableName() string {
	return "attachments"
}

// Identity is the requesting user as seen by the engine. A nil *Identity is
// an anonymous caller.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}
