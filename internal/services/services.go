package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mkravets/go-task-api/internal/models"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskValidation = errors.New("validation failed")
	ErrBadRequest     = errors.New("bad request")
)

const (
	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

// Session is the request-scoped unit of work every operation runs in.
// The delivery layer begins a transaction at dispatch entry, passes it
// here and commits or rolls it back on every exit path; services never
// open or close sessions themselves.
//
// Satisfied by pgx.Tx and *pgxpool.Pool.
type Session interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type TaskService interface {
	// CreateTask validates the given params independently of the
	// delivery layer, applies the status and priority defaults, sets
	// the creation timestamp and persists the task.
	//
	// It returns ErrTaskValidation if the trimmed title is empty or
	// too long, if the status or priority is outside its closed set,
	// or if the due date is not strictly in the future.
	CreateTask(ctx context.Context, sess Session, params CreateTaskParams) (*models.Task, error)

	// ListTasks returns the skip/limit window of the filtered, sorted
	// task set together with the pre-pagination total. Supplied filters
	// are combined with AND; an unrecognized sort field is silently
	// ignored, leaving the store's natural order.
	//
	// An empty result is a normal success, not ErrTaskNotFound.
	ListTasks(ctx context.Context, sess Session, params ListTasksParams) (*TaskPage, error)

	// GetTask returns the task with the given ID
	// or ErrTaskNotFound if it doesn't exist.
	GetTask(ctx context.Context, sess Session, id int64) (*models.Task, error)

	// UpdateTask applies only the fields explicitly supplied in params
	// and bumps updated_at on every accepted update. An explicit null
	// clears description, due_date or assigned_to; a null title, status
	// or priority is ErrTaskValidation.
	//
	// It returns ErrTaskNotFound if the task doesn't exist.
	UpdateTask(ctx context.Context, sess Session, id int64, params UpdateTaskParams) (*models.Task, error)

	// DeleteTask permanently removes the task with the given ID
	// or returns ErrTaskNotFound if it doesn't exist.
	DeleteTask(ctx context.Context, sess Session, id int64) error

	// GetTasksByStatus returns all tasks with the given status or
	// ErrTaskNotFound if there are none.
	GetTasksByStatus(ctx context.Context, sess Session, status models.TaskStatus) ([]*models.Task, error)

	// GetTasksByPriority returns all tasks with the given priority or
	// ErrTaskNotFound if there are none.
	GetTasksByPriority(ctx context.Context, sess Session, priority models.TaskPriority) ([]*models.Task, error)
}

type CreateTaskParams struct {
	Title       string
	Description *string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
	AssignedTo  *string
}

type ListTasksParams struct {
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo *string
	Skip       int
	Limit      int
	SortBy     string
	SortOrder  string
}

type UpdateTaskParams struct {
	Title       models.Optional[string]
	Description models.Optional[string]
	Status      models.Optional[models.TaskStatus]
	Priority    models.Optional[models.TaskPriority]
	DueDate     models.Optional[time.Time]
	AssignedTo  models.Optional[string]
}

type TaskPage struct {
	Tasks  []*models.Task
	Total  int64
	Limit  int
	Offset int
	Pages  int
}
