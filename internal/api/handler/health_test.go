package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestHealthHandler_Liveness(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := NewHealthHandler(nil, zerolog.Nop()).Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp 10.0.3.7:6379: connection refused") })

	tests := []struct {
		name string
		deps map[string]Pinger
		want int
	}{
		{"all up", map[string]Pinger{"mongodb": ok, "redis": ok}, http.StatusOK},
		{"redis down", map[string]Pinger{"mongodb": ok, "redis": down}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

			if err := NewHealthHandler(tt.deps, zerolog.Nop()).Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}

			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if len(resp.Dependencies) != len(tt.deps) {
				t.Fatalf("unexpected dependencies: %+v", resp.Dependencies)
			}
		})
	}
}

func TestHealthHandler_ReadinessHidesCause(t *testing.T) {
	down := PingFunc(func(context.Context) error {
		return errors.New("dial tcp 10.0.3.7:6379: connection refused")
	})

	var logs bytes.Buffer
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

	if err := NewHealthHandler(map[string]Pinger{"redis": down}, zerolog.New(&logs)).Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.3.7") || strings.Contains(rec.Body.String(), "refused") {
		t.Fatalf("response leaks the ping error: %s", rec.Body.String())
	}

	var resp readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Dependencies["redis"].Status != "unhealthy" {
		t.Fatalf("unexpected redis status: %+v", resp.Dependencies["redis"])
	}
	if !strings.Contains(logs.String(), "10.0.3.7") {
		t.Fatalf("cause should be logged, got %q", logs.String())
	}
}
