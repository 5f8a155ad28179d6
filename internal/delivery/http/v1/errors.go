package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/go-task-api/internal/models"
	"github.com/mkravets/go-task-api/internal/services"
)

var errInvalidRequestBody = errors.New("invalid request body")

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newValidationError(message string) apiError {
	return newAPIError(http.StatusUnprocessableEntity, message)
}

func newServiceUnavailableError() apiError {
	return newAPIError(http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
}

// mapServiceError translates the service error taxonomy to a response
// status. Anything unclassified is a store failure and surfaces as
// service-unavailable; details of those are never leaked to callers.
func mapServiceError(err error) apiError {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		return newNotFoundError(err.Error())
	case errors.Is(err, services.ErrTaskValidation):
		return newValidationError(err.Error())
	case errors.Is(err, services.ErrBadRequest):
		return newBadRequestError(err.Error())
	}
	return newServiceUnavailableError()
}

// mapBindingError keeps malformed bodies at 400 while a well-formed
// body carrying an unknown enum member is a validation failure.
func mapBindingError(err error) apiError {
	if errors.Is(err, models.ErrUnknownStatus) || errors.Is(err, models.ErrUnknownPriority) {
		return newValidationError(err.Error())
	}
	return newBadRequestError(errInvalidRequestBody.Error())
}
