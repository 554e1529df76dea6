package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestVersionHandlerReportsBuildMetadata(t *testing.T) {
	SetVersionInfo("1.2.3", "abcd123", "2025-11-07T12:00:00Z")

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	VersionHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp VersionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.App.Name != "loopboard" {
		t.Fatalf("expected app name loopboard, got %s", resp.App.Name)
	}

	if resp.App.Version != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %s", resp.App.Version)
	}

	if resp.App.Commit != "abcd123" {
		t.Fatalf("expected commit abcd123, got %s", resp.App.Commit)
	}

	if resp.App.GoVersion == "" {
		t.Fatal("expected go version to be populated")
	}

	if !strings.Contains(resp.Runtime.Platform, "/") {
		t.Fatalf("expected platform as os/arch, got %s", resp.Runtime.Platform)
	}

	if resp.Runtime.NumCPU < 1 {
		t.Fatalf("expected at least one CPU, got %d", resp.Runtime.NumCPU)
	}
}
