package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
	store "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/repository"
)

// Tool names.
const (
	AddTask      = "add_task"
	ListTasks    = "list_tasks"
	CompleteTask = "complete_task"
	UpdateTask   = "update_task"
	DeleteTask   = "delete_task"
)

var (
	addTaskSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string", "minLength": 1, "maxLength": 500, "description": "Task title"},
    "description": {"type": "string", "maxLength": 5000, "description": "Optional task details"}
  },
  "required": ["title"],
  "additionalProperties": false
}`)
	listTasksSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "status": {"type": "string", "enum": ["pending", "completed", "all"], "description": "Filter by completion status"}
  },
  "additionalProperties": false
}`)
	taskIDSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "integer", "minimum": 1, "description": "Task identifier"}
  },
  "required": ["task_id"],
  "additionalProperties": false
}`)
	updateTaskSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "integer", "minimum": 1, "description": "Task identifier"},
    "title": {"type": "string", "minLength": 1, "maxLength": 500, "description": "New title"},
    "description": {"type": "string", "maxLength": 5000, "description": "New description"}
  },
  "required": ["task_id"],
  "anyOf": [{"required": ["title"]}, {"required": ["description"]}],
  "additionalProperties": false
}`)
)

type addTaskArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type listTasksArgs struct {
	Status string `json:"status"`
}

type taskIDArgs struct {
	TaskID int64 `json:"task_id"`
}

type updateTaskArgs struct {
	TaskID      int64   `json:"task_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type taskView struct {
	TaskID      int64  `json:"task_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
}

func newTaskView(t *domain.Task) taskView {
	return taskView{TaskID: t.TaskID, Title: t.Title, Description: t.Description, Completed: t.Completed}
}

type listTasksResult struct {
	Tasks []taskView `json:"tasks"`
	Count int        `json:"count"`
}

type completeTaskResult struct {
	taskView
	AlreadyCompleted bool `json:"already_completed"`
}

type deleteTaskResult struct {
	TaskID  int64  `json:"task_id"`
	Title   string `json:"title"`
	Deleted bool   `json:"deleted"`
}

// RegisterTaskTools declares the task tools bound to tasks.
func RegisterTaskTools(r *Registry, tasks store.TaskStore) error {
	h := taskHandlers{tasks: tasks}
	defs := []struct {
		name, description string
		schema            json.RawMessage
		handler           HandlerFunc
	}{
		{AddTask, "Create a new task for the user.", addTaskSchema, Typed(h.add)},
		{ListTasks, "List the user's tasks, optionally filtered by status.", listTasksSchema, Typed(h.list)},
		{CompleteTask, "Mark one of the user's tasks as completed.", taskIDSchema, Typed(h.complete)},
		{UpdateTask, "Change the title or description of one of the user's tasks.", updateTaskSchema, Typed(h.update)},
		{DeleteTask, "Delete one of the user's tasks.", taskIDSchema, Typed(h.delete)},
	}
	for _, d := range defs {
		if err := r.Register(d.name, d.description, d.schema, d.handler); err != nil {
			return err
		}
	}
	return nil
}

type taskHandlers struct {
	tasks store.TaskStore
}

func (h taskHandlers) add(ctx context.Context, ownerID string, args addTaskArgs) (taskView, error) {
	task, err := h.tasks.CreateTask(ctx, ownerID, domain.NewTask{Title: args.Title, Description: args.Description})
	if err != nil {
		return taskView{}, err
	}
	return newTaskView(task), nil
}

func (h taskHandlers) list(ctx context.Context, ownerID string, args listTasksArgs) (listTasksResult, error) {
	status := domain.TaskStatus(args.Status)
	if status == "" {
		status = domain.TaskStatusAll
	}
	tasks, err := h.tasks.ListTasks(ctx, ownerID, domain.TaskFilter{Status: status})
	if err != nil {
		return listTasksResult{}, err
	}
	out := listTasksResult{Tasks: make([]taskView, 0, len(tasks)), Count: len(tasks)}
	for i := range tasks {
		out.Tasks = append(out.Tasks, newTaskView(&tasks[i]))
	}
	return out, nil
}

func (h taskHandlers) complete(ctx context.Context, ownerID string, args taskIDArgs) (completeTaskResult, error) {
	task, err := h.tasks.GetTask(ctx, ownerID, args.TaskID)
	if err != nil {
		return completeTaskResult{}, taskErr(args.TaskID, err)
	}
	if task.Completed {
		return completeTaskResult{taskView: newTaskView(task), AlreadyCompleted: true}, nil
	}
	done := true
	task, err = h.tasks.UpdateTask(ctx, ownerID, args.TaskID, domain.TaskPatch{Completed: &done})
	if err != nil {
		return completeTaskResult{}, taskErr(args.TaskID, err)
	}
	return completeTaskResult{taskView: newTaskView(task)}, nil
}

func (h taskHandlers) update(ctx context.Context, ownerID string, args updateTaskArgs) (taskView, error) {
	task, err := h.tasks.UpdateTask(ctx, ownerID, args.TaskID, domain.TaskPatch{
		Title:       args.Title,
		Description: args.Description,
	})
	if err != nil {
		return taskView{}, taskErr(args.TaskID, err)
	}
	return newTaskView(task), nil
}

func (h taskHandlers) delete(ctx context.Context, ownerID string, args taskIDArgs) (deleteTaskResult, error) {
	task, err := h.tasks.DeleteTask(ctx, ownerID, args.TaskID)
	if err != nil {
		return deleteTaskResult{}, taskErr(args.TaskID, err)
	}
	return deleteTaskResult{TaskID: task.TaskID, Title: task.Title, Deleted: true}, nil
}

func taskErr(id int64, err error) error {
	return fmt.Errorf("task %d: %w", id, err)
}
