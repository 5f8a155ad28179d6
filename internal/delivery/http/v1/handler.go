package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mkravets/go-task-api/internal/services"
)

type Handler interface {
	HandleIndex(c *gin.Context)
	HandleHealth(c *gin.Context)

	HandleCreateTask(c *gin.Context)
	HandleListTasks(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
	HandleFilterTasksByStatus(c *gin.Context)
	HandleFilterTasksByPriority(c *gin.Context)

	HandleRequestIDMiddleware(c *gin.Context)
}

type handlerImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
	tasks  services.TaskService
}

func New(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	taskService services.TaskService,
) Handler {
	return &handlerImpl{
		logger: logger,
		pgPool: pgPool,
		tasks:  taskService,
	}
}
