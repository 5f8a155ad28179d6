package v1

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mkravets/go-task-api/internal/models"
	"github.com/mkravets/go-task-api/internal/services"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "not found",
			err:      services.ErrTaskNotFound,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "validation with detail",
			err:      fmt.Errorf("%w: title cannot be empty or whitespace only", services.ErrTaskValidation),
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "bad request",
			err:      services.ErrBadRequest,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unclassified store failure",
			err:      errors.New("connection refused"),
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := mapServiceError(tt.err)
			if apiErr.Code != tt.wantCode {
				t.Fatalf("Code = %d, want %d", apiErr.Code, tt.wantCode)
			}
		})
	}
}

func TestMapServiceError_DetailIsPreserved(t *testing.T) {
	err := fmt.Errorf("%w: due date must be in the future", services.ErrTaskValidation)
	apiErr := mapServiceError(err)
	if apiErr.Message != err.Error() {
		t.Fatalf("Message = %q, want the error detail", apiErr.Message)
	}
}

func TestMapServiceError_StoreDetailIsHidden(t *testing.T) {
	apiErr := mapServiceError(errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))
	if apiErr.Message != http.StatusText(http.StatusServiceUnavailable) {
		t.Fatalf("store failure detail leaked: %q", apiErr.Message)
	}
}

func TestMapBindingError(t *testing.T) {
	apiErr := mapBindingError(fmt.Errorf("%w: %q", models.ErrUnknownStatus, "archived"))
	if apiErr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Code = %d, want 422 for unknown enum member", apiErr.Code)
	}

	apiErr = mapBindingError(errors.New("unexpected EOF"))
	if apiErr.Code != http.StatusBadRequest {
		t.Fatalf("Code = %d, want 400 for malformed body", apiErr.Code)
	}
}
