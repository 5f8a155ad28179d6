package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDCtxKey = "request_id"
)

// HandleRequestIDMiddleware tags every request with an ID so log
// events from one request can be correlated. An incoming header
// wins over a freshly generated one.
func (h *handlerImpl) HandleRequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			h.logger.Error().
				Err(err).
				Msg("failed to generate request id")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		requestID = id.String()
	}

	c.Header(requestIDHeader, requestID)
	c.Set(requestIDCtxKey, requestID)

	h.logger.Debug().
		Str("request_id", requestID).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("handling request")
	c.Next()
}
