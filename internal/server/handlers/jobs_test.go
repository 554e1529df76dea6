package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loopboard/loopboard/internal/pagination"
)

// Validation runs before the feed is touched, so these tests get away with
// a nil feed. The happy paths are covered by the server package tests
// against a real database.

func createJob(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	handler := NewJobsHandler(nil, nil, pagination.Defaults{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	return rec
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	cases := map[string]string{
		"empty body":      `{}`,
		"missing title":   `{"company":"Acme","category":"it"}`,
		"missing company": `{"title":"Engineer","category":"it"}`,
		"blank category":  `{"title":"Engineer","company":"Acme","category":"  "}`,
	}

	for name, body := range cases {
		rec := createJob(t, body)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected status 400, got %d", name, rec.Code)
		}

		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: failed to decode response: %v", name, err)
		}
		if resp.Error.Code != "VALIDATION_FAILED" {
			t.Fatalf("%s: expected VALIDATION_FAILED, got %s", name, resp.Error.Code)
		}
	}
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	rec := createJob(t, `{"title": "Engineer",`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
