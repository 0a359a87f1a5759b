package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/usuarios/internal/config"
	apphttp "github.com/geocoder89/usuarios/internal/http"
	"github.com/geocoder89/usuarios/internal/http/handlers"
	"github.com/geocoder89/usuarios/internal/observability"
	"github.com/geocoder89/usuarios/internal/repo/memory"
	"github.com/prometheus/client_golang/prometheus"
)

func testConfig() config.Config {
	return config.Config{
		Env:                "test",
		CORSAllowedOrigins: []string{"http://app.local"},
		MaxBodyBytes:       64,
		ServiceName:        "usuarios-api",
	}
}

func newTestRouter(t *testing.T, checks map[string]handlers.PingFunc, prom *observability.Prom) http.Handler {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return apphttp.NewRouter(log, testConfig(), apphttp.Deps{
		Usuarios: memory.NewUsuariosRepo(),
		Checks:   checks,
		Prom:     prom,
	})
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_NotFoundBodies(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"unknown_route", http.MethodGet, "/nope"},
		{"non_integer_id_get", http.MethodGet, "/api/usuarios/abc"},
		{"non_integer_id_delete", http.MethodDelete, "/api/usuarios/1x"},
		{"trailing_slash_collection", http.MethodGet, "/api/usuarios/"},
		{"trailing_slash_item", http.MethodGet, "/api/usuarios/1/"},
		{"trailing_slash_post", http.MethodPost, "/api/usuarios/"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != http.StatusNotFound {
				t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
			}

			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
			}
			if resp["mensaje"] != handlers.MsgRecursoNoEncontrado {
				t.Fatalf("unexpected mensaje %q", resp["mensaje"])
			}
		})
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"patch_item", http.MethodPatch, "/api/usuarios/1"},
		{"post_item", http.MethodPost, "/api/usuarios/1"},
		{"delete_collection", http.MethodDelete, "/api/usuarios"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != http.StatusMethodNotAllowed {
				t.Fatalf("got status %d, want 405, body=%s", w.Code, w.Body.String())
			}

			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
			}
			if resp["mensaje"] != handlers.MsgMetodoNoPermitido {
				t.Fatalf("unexpected mensaje %q", resp["mensaje"])
			}
		})
	}
}

func TestRouter_Home(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "API con PostgreSQL funcionando correctamente") {
		t.Fatalf("unexpected greeting %q", w.Body.String())
	}
}

func TestRouter_Health(t *testing.T) {
	t.Run("healthz_never_checks_dependencies", func(t *testing.T) {
		called := false
		r := newTestRouter(t, map[string]handlers.PingFunc{
			"db": func(context.Context) error { called = true; return errors.New("down") },
		}, nil)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if w.Code != http.StatusOK || called {
			t.Fatalf("healthz: code=%d called=%v", w.Code, called)
		}
	})

	t.Run("readyz_ok", func(t *testing.T) {
		r := newTestRouter(t, map[string]handlers.PingFunc{
			"db": func(context.Context) error { return nil },
		}, nil)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("readyz: got %d body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("readyz_reports_failed_checks", func(t *testing.T) {
		r := newTestRouter(t, map[string]handlers.PingFunc{
			"db":    func(context.Context) error { return errors.New("connection refused") },
			"cache": func(context.Context) error { return nil },
		}, nil)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("readyz: got %d", w.Code)
		}

		var resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Status != "not_ready" || resp.Checks["db"] != "connection refused" {
			t.Fatalf("unexpected body %+v", resp)
		}
		if _, ok := resp.Checks["cache"]; ok {
			t.Fatalf("healthy check must not be listed: %+v", resp.Checks)
		}
	})
}

func TestRouter_RequestIDAndHeaders(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/usuarios", nil)
	req.Header.Set("X-Request-Id", "abc-123")

	w := serve(r, req)

	if got := w.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("request id not echoed: %q", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/usuarios", nil))
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestRouter_CORS(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/usuarios", nil)
	req.Header.Set("Origin", "http://app.local")

	w := serve(r, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://app.local" {
		t.Fatalf("allowed origin not echoed: %v", w.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/usuarios", nil)
	req.Header.Set("Origin", "http://evil.local")

	w = serve(r, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unlisted origin must not be allowed")
	}
}

func TestRouter_BodyLimit(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	big := `{"nombre":"` + strings.Repeat("a", 200) + `","email":"a@b.c"}`
	req := httptest.NewRequest(http.MethodPost, "/api/usuarios", bytes.NewBufferString(big))
	req.Header.Set("Content-Type", "application/json")

	w := serve(r, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized body: got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	prom := observability.NewProm(prometheus.NewRegistry())
	r := newTestRouter(t, nil, prom)

	serve(r, httptest.NewRequest(http.MethodGet, "/api/usuarios", nil))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `usuarios_http_requests_total{method="GET",route="/api/usuarios",status="200"} 1`) {
		t.Fatalf("request counter missing from:\n%s", w.Body.String())
	}
}

func TestRouter_MetricsDisabledWithoutProm(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("metrics without prom: got %d", w.Code)
	}
}
