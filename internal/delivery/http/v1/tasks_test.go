package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/go-task-api/internal/models"
	"github.com/mkravets/go-task-api/internal/services"
)

func newListContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/tasks?"+rawQuery, nil)
	return c
}

func TestParseListTasksQuery(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		params, apiErr := parseListTasksQuery(newListContext(t, ""))
		if apiErr != nil {
			t.Fatalf("unexpected error: %v", apiErr)
		}
		if params.Skip != 0 || params.Limit != 0 {
			t.Fatalf("unexpected window: %+v", params)
		}
		if params.SortOrder != services.SortOrderAsc {
			t.Fatalf("SortOrder = %q, want asc", params.SortOrder)
		}
		if params.Status != nil || params.Priority != nil || params.AssignedTo != nil {
			t.Fatalf("unexpected filters: %+v", params)
		}
	})

	t.Run("all filters", func(t *testing.T) {
		params, apiErr := parseListTasksQuery(newListContext(t,
			"status=completed&priority=high&assigned_to=alice&skip=20&limit=5&sort_by=priority&sort_order=desc"))
		if apiErr != nil {
			t.Fatalf("unexpected error: %v", apiErr)
		}
		if *params.Status != models.StatusCompleted || *params.Priority != models.PriorityHigh {
			t.Fatalf("unexpected enum filters: %+v", params)
		}
		if *params.AssignedTo != "alice" {
			t.Fatalf("AssignedTo = %q", *params.AssignedTo)
		}
		if params.Skip != 20 || params.Limit != 5 {
			t.Fatalf("unexpected window: %+v", params)
		}
		if params.SortBy != "priority" || params.SortOrder != services.SortOrderDesc {
			t.Fatalf("unexpected sort: %+v", params)
		}
	})

	tests := []struct {
		name     string
		query    string
		wantCode int
	}{
		{name: "unknown status", query: "status=archived", wantCode: http.StatusUnprocessableEntity},
		{name: "unknown priority", query: "priority=urgent", wantCode: http.StatusUnprocessableEntity},
		{name: "negative skip", query: "skip=-1", wantCode: http.StatusUnprocessableEntity},
		{name: "zero limit", query: "limit=0", wantCode: http.StatusUnprocessableEntity},
		{name: "bad sort order", query: "sort_order=sideways", wantCode: http.StatusUnprocessableEntity},
		{name: "non-integer skip", query: "skip=abc", wantCode: http.StatusBadRequest},
		{name: "non-integer limit", query: "limit=ten", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, apiErr := parseListTasksQuery(newListContext(t, tt.query))
			if apiErr == nil {
				t.Fatalf("expected an error")
			}
			if apiErr.Code != tt.wantCode {
				t.Fatalf("Code = %d, want %d", apiErr.Code, tt.wantCode)
			}
		})
	}
}

func TestCreateTaskRequestValidate(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "minimal", body: `{"title":"buy milk"}`},
		{name: "full", body: `{"title":"buy milk","description":"2l","status":"pending","priority":"low","due_date":"` + future + `","assigned_to":"bob"}`},
		{name: "whitespace title", body: `{"title":"   "}`, wantErr: true},
		{name: "past due date", body: `{"title":"x","due_date":"2020-01-01T00:00:00Z"}`, wantErr: true},
		{name: "multibyte title within limit", body: `{"title":"` + strings.Repeat("ы", maxTitleLength) + `"}`},
		{name: "too many multibyte title runes", body: `{"title":"` + strings.Repeat("ы", maxTitleLength+1) + `"}`, wantErr: true},
		{name: "long assigned_to", body: `{"title":"x","assigned_to":"` + strings.Repeat("a", maxAssignedToLength+1) + `"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req createTaskRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			err = req.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDateTimeUnmarshalJSON(t *testing.T) {
	t.Run("naive timestamps are UTC", func(t *testing.T) {
		var d dateTime
		err := json.Unmarshal([]byte(`"2030-01-02T15:04:05"`), &d)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2030, time.January, 2, 15, 4, 5, 0, time.UTC)
		if !d.Equal(want) {
			t.Fatalf("got %v, want %v", d.Time, want)
		}
	})

	t.Run("offsets are normalized to UTC", func(t *testing.T) {
		var d dateTime
		err := json.Unmarshal([]byte(`"2030-01-02T15:04:05+02:00"`), &d)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2030, time.January, 2, 13, 4, 5, 0, time.UTC)
		if !d.Equal(want) {
			t.Fatalf("got %v, want %v", d.Time, want)
		}
		if d.Location() != time.UTC {
			t.Fatalf("location = %v, want UTC", d.Location())
		}
	})

	t.Run("fractional seconds", func(t *testing.T) {
		var d dateTime
		err := json.Unmarshal([]byte(`"2030-01-02T15:04:05.123456"`), &d)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2030, time.January, 2, 15, 4, 5, 123456000, time.UTC)
		if !d.Equal(want) {
			t.Fatalf("got %v, want %v", d.Time, want)
		}
	})

	t.Run("bare date is midnight UTC", func(t *testing.T) {
		var d dateTime
		err := json.Unmarshal([]byte(`"2030-01-02"`), &d)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2030, time.January, 2, 0, 0, 0, 0, time.UTC)
		if !d.Equal(want) {
			t.Fatalf("got %v, want %v", d.Time, want)
		}
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		var d dateTime
		err := json.Unmarshal([]byte(`"next tuesday"`), &d)
		if err == nil {
			t.Fatalf("expected an error")
		}
	})
}

func TestUpdateTaskRequestPartialBinding(t *testing.T) {
	var req updateTaskRequest
	err := json.Unmarshal([]byte(`{"status":"completed","description":null}`), &req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !req.Status.Set || !req.Status.Valid || req.Status.Value != models.StatusCompleted {
		t.Fatalf("unexpected status optional: %+v", req.Status)
	}
	if !req.Description.Set || req.Description.Valid {
		t.Fatalf("explicit null not detected: %+v", req.Description)
	}
	if req.Title.Set || req.Priority.Set || req.DueDate.Set || req.AssignedTo.Set {
		t.Fatalf("absent fields were marked as set: %+v", req)
	}

	params := req.toParams()
	if !params.Status.Set || params.Title.Set {
		t.Fatalf("params do not mirror request presence: %+v", params)
	}
}

func TestUpdateTaskRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "status only", body: `{"status":"cancelled"}`},
		{name: "clear due date", body: `{"due_date":null}`},
		{name: "null title", body: `{"title":null}`, wantErr: true},
		{name: "blank title", body: `{"title":"  "}`, wantErr: true},
		{name: "null status", body: `{"status":null}`, wantErr: true},
		{name: "past due date", body: `{"due_date":"2019-06-01T00:00:00Z"}`, wantErr: true},
		{name: "multibyte description within limit", body: `{"description":"` + strings.Repeat("ё", maxDescriptionLength) + `"}`},
		{name: "too many multibyte description runes", body: `{"description":"` + strings.Repeat("ё", maxDescriptionLength+1) + `"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req updateTaskRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			err = req.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
