package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlerImpl) HandleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the Task Management API",
		"endpoints": gin.H{
			"health": "GET /health",
			"tasks": gin.H{
				"create":             "POST /tasks",
				"list":               "GET /tasks",
				"get_by_id":          "GET /tasks/:id",
				"update":             "PUT /tasks/:id",
				"delete":             "DELETE /tasks/:id",
				"filter_by_status":   "GET /tasks/status/:status",
				"filter_by_priority": "GET /tasks/priority/:priority",
			},
		},
	})
}

func (h *handlerImpl) HandleHealth(c *gin.Context) {
	_, err := h.pgPool.Exec(c, "SELECT 1")
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "error",
			"database": "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "connected",
	})
}
