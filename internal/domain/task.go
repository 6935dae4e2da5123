package domain

import "time"

const (
	MaxTaskTitleLength       = 500
	MaxTaskDescriptionLength = 5000
)

// Task is a user's todo item.
type Task struct {
	TaskID      int64     `json:"task_id"`
	OwnerID     string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask holds the fields for creating a task.
type NewTask struct {
	Title       string
	Description string
}

// TaskPatch holds optional field updates. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	Status TaskStatus
}
