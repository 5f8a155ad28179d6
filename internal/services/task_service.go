package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/mkravets/go-task-api/internal/models"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxAssignedToLength  = 100

	defaultListLimit = 10
)

type taskServiceImpl struct {
	logger zerolog.Logger
}

func NewTaskService(logger zerolog.Logger) TaskService {
	return &taskServiceImpl{
		logger: logger,
	}
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, sess Session, params CreateTaskParams) (*models.Task, error) {
	title, err := validateTitle(params.Title)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("invalid task title")
		return nil, err
	}

	if params.Description != nil && utf8.RuneCountInString(*params.Description) > maxDescriptionLength {
		return nil, fmt.Errorf("%w: description cannot exceed %d characters", ErrTaskValidation, maxDescriptionLength)
	}
	if params.AssignedTo != nil && utf8.RuneCountInString(*params.AssignedTo) > maxAssignedToLength {
		return nil, fmt.Errorf("%w: assigned_to cannot exceed %d characters", ErrTaskValidation, maxAssignedToLength)
	}

	task := &models.Task{
		Title:       title,
		Description: params.Description,
		Status:      params.Status,
		Priority:    params.Priority,
		CreatedAt:   time.Now().UTC(),
		DueDate:     params.DueDate,
		AssignedTo:  params.AssignedTo,
	}

	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if !task.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrTaskValidation, task.Status)
	}

	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if !task.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrTaskValidation, task.Priority)
	}

	if task.DueDate != nil {
		due, err := validateDueDate(*task.DueDate)
		if err != nil {
			s.logger.Error().
				Err(err).
				Time("due_date", *task.DueDate).
				Msg("invalid due date")
			return nil, err
		}
		task.DueDate = &due
	}

	const insertTaskQuery = `
INSERT INTO tasks (title,
                   description,
                   status,
                   priority,
                   created_at,
                   due_date,
                   assigned_to)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`
	err = sess.QueryRow(
		ctx,
		insertTaskQuery,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.CreatedAt,
		task.DueDate,
		task.AssignedTo,
	).Scan(&task.ID)
	if err != nil {
		if verr := classifyConstraintError(err); verr != nil {
			s.logger.Error().
				Err(verr).
				Msg("task rejected by a table constraint")
			return nil, verr
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return nil, err
	}
	s.logger.Debug().
		Int64("task_id", task.ID).
		Msg("inserted task")

	s.logger.Info().
		Int64("task_id", task.ID).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, sess Session, params ListTasksParams) (*TaskPage, error) {
	if params.Skip < 0 {
		return nil, fmt.Errorf("%w: skip must be non-negative", ErrTaskValidation)
	}
	if params.Limit == 0 {
		params.Limit = defaultListLimit
	}
	if params.Limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrTaskValidation)
	}

	countQuery, selectQuery, args := buildListTasksQueries(params)

	var total int64
	err := sess.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to count tasks")
		return nil, err
	}

	rows, err := sess.Query(ctx, selectQuery, append(args, params.Limit, params.Skip)...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select tasks")
		return nil, err
	}

	tasks, err := s.scanTasks(rows)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Int64("total", total).
		Msg("selected task page")

	pages := 0
	if total > 0 {
		pages = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}

	s.logger.Info().
		Int("count", len(tasks)).
		Int64("total", total).
		Int("pages", pages).
		Msg("listed tasks")
	return &TaskPage{
		Tasks:  tasks,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Skip,
		Pages:  pages,
	}, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, sess Session, id int64) (*models.Task, error) {
	task := &models.Task{
		ID: id,
	}

	const selectTaskByIDQuery = `
SELECT title,
       description,
       status,
       priority,
       created_at,
       updated_at,
       due_date,
       assigned_to
FROM tasks
WHERE id = $1
`
	err := sess.QueryRow(
		ctx,
		selectTaskByIDQuery,
		task.ID,
	).Scan(
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.DueDate,
		&task.AssignedTo,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Int64("task_id", task.ID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", task.ID).
			Msg("failed to select task by id")
		return nil, err
	}
	s.logger.Debug().
		Int64("task_id", task.ID).
		Msg("selected task by id")

	s.logger.Info().
		Int64("task_id", task.ID).
		Msg("task found")
	return task, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, sess Session, id int64, params UpdateTaskParams) (*models.Task, error) {
	if params.Title.Set {
		if !params.Title.Valid {
			return nil, fmt.Errorf("%w: title cannot be null", ErrTaskValidation)
		}
		title, err := validateTitle(params.Title.Value)
		if err != nil {
			s.logger.Error().
				Err(err).
				Int64("task_id", id).
				Msg("invalid task title")
			return nil, err
		}
		params.Title.Value = title
	}

	if params.Status.Set {
		if !params.Status.Valid {
			return nil, fmt.Errorf("%w: status cannot be null", ErrTaskValidation)
		}
		if !params.Status.Value.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrTaskValidation, params.Status.Value)
		}
	}

	if params.Priority.Set {
		if !params.Priority.Valid {
			return nil, fmt.Errorf("%w: priority cannot be null", ErrTaskValidation)
		}
		if !params.Priority.Value.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrTaskValidation, params.Priority.Value)
		}
	}

	if params.Description.Set && params.Description.Valid && utf8.RuneCountInString(params.Description.Value) > maxDescriptionLength {
		return nil, fmt.Errorf("%w: description cannot exceed %d characters", ErrTaskValidation, maxDescriptionLength)
	}
	if params.AssignedTo.Set && params.AssignedTo.Valid && utf8.RuneCountInString(params.AssignedTo.Value) > maxAssignedToLength {
		return nil, fmt.Errorf("%w: assigned_to cannot exceed %d characters", ErrTaskValidation, maxAssignedToLength)
	}

	if params.DueDate.Set && params.DueDate.Valid {
		due, err := validateDueDate(params.DueDate.Value)
		if err != nil {
			s.logger.Error().
				Err(err).
				Int64("task_id", id).
				Time("due_date", params.DueDate.Value).
				Msg("invalid due date")
			return nil, err
		}
		params.DueDate.Value = due
	}

	task := &models.Task{
		ID: id,
	}

	query, args := buildUpdateTaskQuery(id, params, time.Now().UTC())
	err := sess.QueryRow(ctx, query, args...).Scan(
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.DueDate,
		&task.AssignedTo,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Int64("task_id", task.ID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}
		if verr := classifyConstraintError(err); verr != nil {
			s.logger.Error().
				Err(verr).
				Int64("task_id", task.ID).
				Msg("task rejected by a table constraint")
			return nil, verr
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", task.ID).
			Msg("failed to update task")
		return nil, err
	}
	s.logger.Debug().
		Int64("task_id", task.ID).
		Msg("updated task")

	s.logger.Info().
		Int64("task_id", task.ID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, sess Session, id int64) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := sess.Exec(
		ctx,
		deleteTaskQuery,
		id,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		s.logger.Error().
			Int64("task_id", id).
			Msg("task not found")
		return ErrTaskNotFound
	}
	s.logger.Debug().
		Int64("task_id", id).
		Msg("deleted task")

	s.logger.Info().
		Int64("task_id", id).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) GetTasksByStatus(ctx context.Context, sess Session, status models.TaskStatus) ([]*models.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrTaskValidation, status)
	}

	const selectTasksByStatusQuery = `
SELECT id,
       title,
       description,
       status,
       priority,
       created_at,
       updated_at,
       due_date,
       assigned_to
FROM tasks
WHERE status = $1
`
	rows, err := sess.Query(
		ctx,
		selectTasksByStatusQuery,
		status,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("status", string(status)).
			Msg("failed to select tasks by status")
		return nil, err
	}

	tasks, err := s.scanTasks(rows)
	if err != nil {
		return nil, err
	}

	if len(tasks) == 0 {
		s.logger.Info().
			Str("status", string(status)).
			Msg("no tasks found")
		return nil, ErrTaskNotFound
	}

	s.logger.Info().
		Int("count", len(tasks)).
		Str("status", string(status)).
		Msg("tasks found")
	return tasks, nil
}

func (s *taskServiceImpl) GetTasksByPriority(ctx context.Context, sess Session, priority models.TaskPriority) ([]*models.Task, error) {
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrTaskValidation, priority)
	}

	const selectTasksByPriorityQuery = `
SELECT id,
       title,
       description,
       status,
       priority,
       created_at,
       updated_at,
       due_date,
       assigned_to
FROM tasks
WHERE priority = $1
`
	rows, err := sess.Query(
		ctx,
		selectTasksByPriorityQuery,
		priority,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("priority", string(priority)).
			Msg("failed to select tasks by priority")
		return nil, err
	}

	tasks, err := s.scanTasks(rows)
	if err != nil {
		return nil, err
	}

	if len(tasks) == 0 {
		s.logger.Info().
			Str("priority", string(priority)).
			Msg("no tasks found")
		return nil, ErrTaskNotFound
	}

	s.logger.Info().
		Int("count", len(tasks)).
		Str("priority", string(priority)).
		Msg("tasks found")
	return tasks, nil
}

func (s *taskServiceImpl) scanTasks(rows pgx.Rows) ([]*models.Task, error) {
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task := new(models.Task)
		err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.Priority,
			&task.CreatedAt,
			&task.UpdatedAt,
			&task.DueDate,
			&task.AssignedTo,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err := rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return tasks, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title cannot be empty or whitespace only", ErrTaskValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", fmt.Errorf("%w: title cannot exceed %d characters", ErrTaskValidation, maxTitleLength)
	}
	return title, nil
}

// validateDueDate normalizes the due date to UTC and requires
// it to be strictly in the future; equal to now is rejected.
func validateDueDate(due time.Time) (time.Time, error) {
	due = due.UTC()
	if !due.After(time.Now().UTC()) {
		return time.Time{}, fmt.Errorf("%w: due date must be in the future", ErrTaskValidation)
	}
	return due, nil
}

// taskSortColumns whitelists the entity fields valid as sort keys.
// Priority sorts by its defined order, not lexicographically.
var taskSortColumns = map[string]string{
	"id":          "id",
	"title":       "title",
	"description": "description",
	"status":      "status",
	"priority":    "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 END",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"due_date":    "due_date",
	"assigned_to": "assigned_to",
}

func buildListTasksQueries(params ListTasksParams) (countQuery, selectQuery string, args []any) {
	var where []string
	if params.Status != nil {
		args = append(args, *params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Priority != nil {
		args = append(args, *params.Priority)
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}
	if params.AssignedTo != nil {
		args = append(args, *params.AssignedTo)
		where = append(where, fmt.Sprintf("assigned_to = $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "\nWHERE " + strings.Join(where, " AND ")
	}

	countQuery = "SELECT count(id)\nFROM tasks" + whereClause

	orderClause := ""
	if column, ok := taskSortColumns[params.SortBy]; ok {
		direction := "ASC"
		if params.SortOrder == SortOrderDesc {
			direction = "DESC"
		}
		orderClause = fmt.Sprintf("\nORDER BY %s %s", column, direction)
	}

	selectQuery = fmt.Sprintf(`SELECT id,
       title,
       description,
       status,
       priority,
       created_at,
       updated_at,
       due_date,
       assigned_to
FROM tasks%s%s
LIMIT $%d OFFSET $%d`, whereClause, orderClause, len(args)+1, len(args)+2)

	return countQuery, selectQuery, args
}

func buildUpdateTaskQuery(id int64, params UpdateTaskParams, updatedAt time.Time) (string, []any) {
	args := []any{updatedAt}
	set := []string{"updated_at = $1"}

	appendSet := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Title.Set {
		appendSet("title", params.Title.Value)
	}
	if params.Description.Set {
		appendSet("description", optionalArg(params.Description))
	}
	if params.Status.Set {
		appendSet("status", params.Status.Value)
	}
	if params.Priority.Set {
		appendSet("priority", params.Priority.Value)
	}
	if params.DueDate.Set {
		appendSet("due_date", optionalArg(params.DueDate))
	}
	if params.AssignedTo.Set {
		appendSet("assigned_to", optionalArg(params.AssignedTo))
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tasks
SET %s
WHERE id = $%d
RETURNING title, description, status, priority, created_at, updated_at, due_date, assigned_to`,
		strings.Join(set, ",\n    "), len(args))

	return query, args
}

// optionalArg maps an explicit null to a SQL NULL parameter.
func optionalArg[T any](o models.Optional[T]) any {
	if !o.Valid {
		return nil
	}
	return o.Value
}

func classifyConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgerrcode.CheckViolation,
		pgerrcode.NotNullViolation,
		pgerrcode.StringDataRightTruncationDataException:
		return fmt.Errorf("%w: %s", ErrTaskValidation, pgErr.Message)
	}
	return nil
}
