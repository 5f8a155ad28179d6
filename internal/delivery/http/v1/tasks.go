package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/go-task-api/internal/models"
	"github.com/mkravets/go-task-api/internal/services"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxAssignedToLength  = 100
)

// dateTime accepts RFC 3339 timestamps as well as naive ones,
// which are assumed to be UTC. A bare date means midnight UTC.
type dateTime struct {
	time.Time
}

// Layouts tried for timestamps without an offset. Parsing
// tolerates trailing fractional seconds on its own.
var naiveDateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (d *dateTime) UnmarshalJSON(b []byte) error {
	var raw string
	err := json.Unmarshal(b, &raw)
	if err != nil {
		return err
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		for _, layout := range naiveDateTimeLayouts {
			t, err = time.ParseInLocation(layout, raw, time.UTC)
			if err == nil {
				break
			}
		}
	}
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", raw)
	}
	d.Time = t.UTC()
	return nil
}

type taskResponse struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   *time.Time          `json:"updated_at"`
	DueDate     *time.Time          `json:"due_date"`
	AssignedTo  *string             `json:"assigned_to"`
}

func newTaskResponse(task *models.Task) taskResponse {
	return taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		DueDate:     task.DueDate,
		AssignedTo:  task.AssignedTo,
	}
}

func newTaskListResponse(tasks []*models.Task) []taskResponse {
	response := make([]taskResponse, len(tasks))
	for i, task := range tasks {
		response[i] = newTaskResponse(task)
	}
	return response
}

type paginatedResponse[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Pages  int   `json:"pages"`
}

type createTaskRequest struct {
	Title       string               `json:"title"`
	Description *string              `json:"description,omitempty"`
	Status      *models.TaskStatus   `json:"status,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	DueDate     *dateTime            `json:"due_date,omitempty"`
	AssignedTo  *string              `json:"assigned_to,omitempty"`
}

func (r createTaskRequest) validate() error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return errors.New("title cannot be empty or whitespace only")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("title cannot exceed %d characters", maxTitleLength)
	}
	if r.Description != nil && utf8.RuneCountInString(*r.Description) > maxDescriptionLength {
		return fmt.Errorf("description cannot exceed %d characters", maxDescriptionLength)
	}
	if r.AssignedTo != nil && utf8.RuneCountInString(*r.AssignedTo) > maxAssignedToLength {
		return fmt.Errorf("assigned_to cannot exceed %d characters", maxAssignedToLength)
	}
	if r.DueDate != nil && !r.DueDate.After(time.Now().UTC()) {
		return errors.New("due date must be in the future")
	}
	return nil
}

func (r createTaskRequest) toParams() services.CreateTaskParams {
	params := services.CreateTaskParams{
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
	}
	if r.Status != nil {
		params.Status = *r.Status
	}
	if r.Priority != nil {
		params.Priority = *r.Priority
	}
	if r.DueDate != nil {
		due := r.DueDate.Time
		params.DueDate = &due
	}
	return params
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, mapBindingError(err))
		return
	}

	if err = req.validate(); err != nil {
		h.logger.Error().
			Err(err).
			Msg("invalid create task request")
		abort(c, newValidationError(err.Error()))
		return
	}

	tx, err := h.pgPool.Begin(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		abort(c, newServiceUnavailableError())
		return
	}
	defer func() { _ = tx.Rollback(c) }()

	task, err := h.tasks.CreateTask(c, tx, req.toParams())
	if err != nil {
		abort(c, mapServiceError(err))
		return
	}

	err = tx.Commit(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		abort(c, newServiceUnavailableError())
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(task))
}

func parseListTasksQuery(c *gin.Context) (services.ListTasksParams, *apiError) {
	params := services.ListTasksParams{
		SortOrder: services.SortOrderAsc,
	}

	if raw, ok := c.GetQuery("status"); ok {
		status, err := models.ParseTaskStatus(raw)
		if err != nil {
			apiErr := newValidationError(err.Error())
			return params, &apiErr
		}
		params.Status = &status
	}

	if raw, ok := c.GetQuery("priority"); ok {
		priority, err := models.ParseTaskPriority(raw)
		if err != nil {
			apiErr := newValidationError(err.Error())
			return params, &apiErr
		}
		params.Priority = &priority
	}

	if raw, ok := c.GetQuery("assigned_to"); ok {
		params.AssignedTo = &raw
	}

	if raw, ok := c.GetQuery("skip"); ok {
		skip, err := strconv.Atoi(raw)
		if err != nil {
			apiErr := newBadRequestError("skip must be an integer")
			return params, &apiErr
		}
		if skip < 0 {
			apiErr := newValidationError("skip must be non-negative")
			return params, &apiErr
		}
		params.Skip = skip
	}

	if raw, ok := c.GetQuery("limit"); ok {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			apiErr := newBadRequestError("limit must be an integer")
			return params, &apiErr
		}
		if limit < 1 {
			apiErr := newValidationError("limit must be positive")
			return params, &apiErr
		}
		params.Limit = limit
	}

	params.SortBy = c.Query("sort_by")

	if raw, ok := c.GetQuery("sort_order"); ok {
		if raw != services.SortOrderAsc && raw != services.SortOrderDesc {
			apiErr := newValidationError("sort_order must be asc or desc")
			return params, &apiErr
		}
		params.SortOrder = raw
	}

	return params, nil
}

func (h *handlerImpl) HandleListTasks(c *gin.Context) {
	params, apiErr := parseListTasksQuery(c)
	if apiErr != nil {
		h.logger.Error().
			Err(*apiErr).
			Msg("invalid list tasks query")
		abort(c, *apiErr)
		return
	}

	tx, err := h.pgPool.Begin(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		abort(c, newServiceUnavailableError())
		return
	}
	defer func() { _ = tx.Rollback(c) }()

	page, err := h.tasks.ListTasks(c, tx, params)
	if err != nil {
		abort(c, mapServiceError(err))
		return
	}

	err = tx.Commit(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		abort(c, newServiceUnavailableError())
		return
	}

	c.JSON(http.StatusOK, paginatedResponse[taskResponse]{
		Data:   newTaskListResponse(page.Tasks),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
		Pages:  page.Pages,
	})
}

func parseTaskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		h.logger.Error().
			Str("id", c.Param("id")).
			Msg("invalid task id")
		abort(c, newBadRequestError("task id must be an integer"))
		return
	}

	tx, err := h.pgPool.Begin(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		abort(c, newServiceUnavailableError())
		return
	}
	defer func() { _ = tx.Rollback(c) }()

	task, err := h.tasks.GetTask(c, tx, id)
	if err != nil {
		abort(c, mapServiceError(err))
		return
	}

	err = tx.Commit(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		abort(c, newServiceUnavailableError())
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

type updateTaskRequest struct {
	Title       models.Optional[string]              `json:"title"`
	Description models.Optional[string]              `json:"description"`
	Status      models.Optional[models.TaskStatus]   `json:"status"`
	Priority    models.Optional[models.TaskPriority] `json:"priority"`
	DueDate     models.Optional[dateTime]            `json:"due_date"`
	AssignedTo  models.Optional[string]              `json:"assigned_to"`
}

func (r updateTaskRequest) validate() error {
	if r.Title.Set {
		if !r.Title.Valid {
			return errors.New("title cannot be null")
		}
		title := strings.TrimSpace(r.Title.Value)
		if title == "" {
			return errors.New("title cannot be empty or whitespace only")
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return fmt.Errorf("title cannot exceed %d characters", maxTitleLength)
		}
	}
	if r.Status.Set && !r.Status.Valid {
		return errors.New("status cannot be null")
	}
	if r.Priority.Set && !r.Priority.Valid {
		return errors.New("priority cannot be null")
	}
	if r.Description.Set && r.Description.Valid && utf8.RuneCountInString(r.Description.Value) > maxDescriptionLength {
		return fmt.Errorf("description cannot exceed %d characters", maxDescriptionLength)
	}
	if r.AssignedTo.Set && r.AssignedTo.Valid && utf8.RuneCountInString(r.AssignedTo.Value) > maxAssignedToLength {
		return fmt.Errorf("assigned_to cannot exceed %d characters", maxAssignedToLength)
	}
	if r.DueDate.Set && r.DueDate.Valid && !r.DueDate.Value.After(time.Now().UTC()) {
		return errors.New("due date must be in the future")
	}
	return nil
}

func (r updateTaskRequest) toParams() services.UpdateTaskParams {
	return services.UpdateTaskParams{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		DueDate: models.Optional[time.Time]{
			Value: r.DueDate.Value.Time,
			Set:   r.DueDate.Set,
			Valid: r.DueDate.Valid,
		},
		AssignedTo: r.AssignedTo,
	}
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		h.logger.Error().
			Str("id", c.Param("id")).
			Msg("invalid task id")
		abort(c, newBadRequestError("task id must be an integer"))
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, mapBindingError(err))
		return
	}

	if err = req.validate(); err != nil {
		h.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("invalid update task request")
		abort(c, newValidationError(err.Error()))
		return
	}

	tx, err := h.pgPool.Begin(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		abort(c, newServiceUnavailableError())
		return
	}
	defer func() { _ = tx.Rollback(c) }()

	task, err := h.tasks.UpdateTask(c, tx, id, req.toParams())
	if err != nil {
		abort(c, mapServiceError(err))
		return
	}

	err = tx.Commit(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		abort(c, newServiceUnavailableError())
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		h.logger.Error().
			Str("id", c.Param("id")).
			Msg("invalid task id")
		abort(c, newBadRequestError("task id must be an integer"))
		return
	}

	tx, err := h.pgPool.Begin(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		abort(c, newServiceUnavailableError())
		return
	}
	defer func() { _ = tx.Rollback(c) }()

	err = h.tasks.DeleteTask(c, tx, id)
	if err != nil {
		abort(c, mapServiceError(err))
		return
	}

	err = tx.Commit(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		abort(c, newServiceUnavailableError())
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleFilterTasksByStatus(c *gin.Context) {
	status, err := models.ParseTaskStatus(c.Param("status"))
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("invalid status filter")
		abort(c, newValidationError(err.Error()))
		return
	}

	tx, err := h.pgPool.Begin(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		abort(c, newServiceUnavailableError())
		return
	}
	defer func() { _ = tx.Rollback(c) }()

	tasks, err := h.tasks.GetTasksByStatus(c, tx, status)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError("no tasks found with that status"))
			return
		}
		abort(c, mapServiceError(err))
		return
	}

	err = tx.Commit(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		abort(c, newServiceUnavailableError())
		return
	}

	c.JSON(http.StatusOK, newTaskListResponse(tasks))
}

func (h *handlerImpl) HandleFilterTasksByPriority(c *gin.Context) {
	priority, err := models.ParseTaskPriority(c.Param("priority"))
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("invalid priority filter")
		abort(c, newValidationError(err.Error()))
		return
	}

	tx, err := h.pgPool.Begin(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		abort(c, newServiceUnavailableError())
		return
	}
	defer func() { _ = tx.Rollback(c) }()

	tasks, err := h.tasks.GetTasksByPriority(c, tx, priority)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError("no tasks found with that priority"))
			return
		}
		abort(c, mapServiceError(err))
		return
	}

	err = tx.Commit(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		abort(c, newServiceUnavailableError())
		return
	}

	c.JSON(http.StatusOK, newTaskListResponse(tasks))
}
