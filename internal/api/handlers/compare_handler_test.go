package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/ecolens/backend/internal/history"
	"github.com/ecolens/backend/internal/pipeline"
	"github.com/ecolens/backend/internal/simulate"
)

type noCreds struct{}

func (noCreds) SearchAvailable() bool     { return false }
func (noCreds) GenerationAvailable() bool { return false }

func newTestApp() (*fiber.App, *pipeline.Orchestrator) {
	orchestrator := &pipeline.Orchestrator{
		Fallback: simulate.New(),
		Creds:    noCreds{},
		History:  history.NewStore(),
	}

	app := fiber.New()
	compare := NewCompareHandler(orchestrator)
	histh := NewHistoryHandler(orchestrator, nil)
	app.Post("/api/v1/compare", compare.HandleCompare)
	app.Get("/api/v1/compare/history", histh.HandleHistory)
	return app, orchestrator
}

func TestHandleCompare(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest("POST", "/api/v1/compare", strings.NewReader(`{"query": "bamboo vs cotton"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var record struct {
		ID         string `json:"id"`
		Provenance string `json:"provenance"`
		Narrative  string `json:"narrative"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &record); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if record.ID == "" {
		t.Error("record has no ID")
	}
	if record.Provenance != "SIMULATED" {
		t.Errorf("provenance = %q, want SIMULATED", record.Provenance)
	}
}

func TestHandleCompareBlankQuery(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest("POST", "/api/v1/compare", strings.NewReader(`{"query": "   "}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleHistorySession(t *testing.T) {
	app, _ := newTestApp()

	for _, query := range []string{"steel", "hemp vs jute"} {
		req := httptest.NewRequest("POST", "/api/v1/compare", strings.NewReader(`{"query": "`+query+`"}`))
		req.Header.Set("Content-Type", "application/json")
		if _, err := app.Test(req, -1); err != nil {
			t.Fatalf("compare %q: %v", query, err)
		}
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/compare/history", nil), -1)
	if err != nil {
		t.Fatalf("history request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		History []struct {
			Query string `json:"query"`
		} `json:"history"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if len(payload.History) != 2 {
		t.Fatalf("history has %d records, want 2", len(payload.History))
	}
	if payload.History[0].Query != "steel" || payload.History[1].Query != "hemp vs jute" {
		t.Errorf("history out of order: %+v", payload.History)
	}
}

func TestHandleHistoryArchiveUnconfigured(t *testing.T) {
	app, _ := newTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/compare/history?archived=true", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
