package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

const taskColumns = `task_id, owner_id, title, description, completed, created_at, updated_at`

// CreateTask inserts a new pending task for ownerID.
func (s *SQLiteStore) CreateTask(ctx context.Context, ownerID string, nt domain.NewTask) (*domain.Task, error) {
	title := strings.TrimSpace(nt.Title)
	description := strings.TrimSpace(nt.Description)
	if err := validateTaskFields(&title, &description); err != nil {
		return nil, err
	}

	now := toMillis(s.now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (owner_id, title, description, completed, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		ownerID, title, description, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Task{
		TaskID:      id,
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		CreatedAt:   fromMillis(now),
		UpdatedAt:   fromMillis(now),
	}, nil
}

// ListTasks returns the owner's tasks in creation order.
func (s *SQLiteStore) ListTasks(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ?`
	args := []interface{}{ownerID}

	switch filter.Status {
	case domain.TaskStatusPending:
		query += ` AND completed = 0`
	case domain.TaskStatusCompleted:
		query += ` AND completed = 1`
	case domain.TaskStatusAll, "":
	default:
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTask, filter.Status)
	}
	query += ` ORDER BY task_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// GetTask returns one of the owner's tasks.
func (s *SQLiteStore) GetTask(ctx context.Context, ownerID string, taskID int64) (*domain.Task, error) {
	return getOwnedTask(ctx, s.db, ownerID, taskID)
}

// UpdateTask applies patch to one of the owner's tasks.
func (s *SQLiteStore) UpdateTask(ctx context.Context, ownerID string, taskID int64, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidTask)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	task, err := getOwnedTask(ctx, tx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	title, description := task.Title, task.Description
	if patch.Title != nil {
		title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
	}
	if err := validateTaskFields(&title, &description); err != nil {
		return nil, err
	}
	completed := task.Completed
	if patch.Completed != nil {
		completed = *patch.Completed
	}

	now := toMillis(s.now())
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, completed = ?, updated_at = ? WHERE task_id = ? AND owner_id = ?`,
		title, description, completed, now, taskID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	task.Title = title
	task.Description = description
	task.Completed = completed
	task.UpdatedAt = fromMillis(now)
	return task, nil
}

// DeleteTask removes one of the owner's tasks and returns it.
func (s *SQLiteStore) DeleteTask(ctx context.Context, ownerID string, taskID int64) (*domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	task, err := getOwnedTask(ctx, tx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tasks WHERE task_id = ? AND owner_id = ?`, taskID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func getOwnedTask(ctx context.Context, q queryRower, ownerID string, taskID int64) (*domain.Task, error) {
	task, err := scanTask(q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, domain.ErrTaskForbidden
	}
	return task, nil
}

func scanTask(row scanner) (*domain.Task, error) {
	var task domain.Task
	var createdAt, updatedAt int64
	if err := row.Scan(&task.TaskID, &task.OwnerID, &task.Title, &task.Description,
		&task.Completed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	return &task, nil
}

func validateTaskFields(title, description *string) error {
	if *title == "" {
		return fmt.Errorf("%w: title must not be empty", domain.ErrInvalidTask)
	}
	if utf8.RuneCountInString(*title) > domain.MaxTaskTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", domain.ErrInvalidTask, domain.MaxTaskTitleLength)
	}
	if utf8.RuneCountInString(*description) > domain.MaxTaskDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", domain.ErrInvalidTask, domain.MaxTaskDescriptionLength)
	}
	return nil
}
