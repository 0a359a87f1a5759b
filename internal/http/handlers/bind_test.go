package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/usuarios/internal/domain/usuario"
	"github.com/geocoder89/usuarios/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestBindJSON_RespondsWithMessage(t *testing.T) {
	r := gin.New()
	r.POST("/usuarios", func(ctx *gin.Context) {
		var req usuario.CreateUsuarioRequest
		if !handlers.BindJSON(ctx, &req, handlers.MsgDatosIncompletos) {
			return
		}
		ctx.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/usuarios", bytes.NewBufferString(`{"nombre":"Ana"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v body=%s", err, w.Body.String())
	}

	if resp["mensaje"] != handlers.MsgDatosIncompletos {
		t.Fatalf("unexpected mensaje: %q", resp["mensaje"])
	}
}

func TestFieldErrors_UseJSONFieldNames(t *testing.T) {
	r := gin.New()

	var got []handlers.FieldError

	r.POST("/usuarios", func(ctx *gin.Context) {
		var req usuario.CreateUsuarioRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			got = handlers.FieldErrors(err, &req)
		}
		ctx.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/usuarios", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	wantRules := map[string]string{
		"nombre": "required",
		"email":  "required",
	}

	if len(got) != len(wantRules) {
		t.Fatalf("got %d field errors, want %d: %+v", len(got), len(wantRules), got)
	}

	for _, fe := range got {
		rule, ok := wantRules[fe.Field]
		if !ok {
			t.Fatalf("unexpected field %q in %+v", fe.Field, got)
		}
		if fe.Rule != rule {
			t.Fatalf("field %q: got rule %q, want %q", fe.Field, fe.Rule, rule)
		}
		if fe.Message != "is required" {
			t.Fatalf("field %q: unexpected message %q", fe.Field, fe.Message)
		}
	}
}

func TestFieldErrors_JSONProblems(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantRule string
	}{
		{name: "syntax", body: `{"nombre":`, wantRule: "json"},
		{name: "type", body: `{"nombre":1,"email":"a@b.c"}`, wantRule: "type"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var req usuario.CreateUsuarioRequest

			err := json.Unmarshal([]byte(tt.body), &req)
			if err == nil {
				t.Fatalf("expected decode error")
			}

			fields := handlers.FieldErrors(err, &req)
			if len(fields) != 1 || fields[0].Rule != tt.wantRule {
				t.Fatalf("got %+v, want rule %q", fields, tt.wantRule)
			}
		})
	}

	fields := handlers.FieldErrors(errors.New("EOF"), nil)
	if len(fields) != 1 || fields[0].Rule != "body" {
		t.Fatalf("unexpected fallback: %+v", fields)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw    string
		want   int64
		wantOK bool
	}{
		{"7", 7, true},
		{"0", 0, true},
		{"007", 7, true},
		{"9223372036854775807", 9223372036854775807, true},
		{"9223372036854775808", 0, false},
		{"", 0, false},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.5", 0, false},
		{" 1", 0, false},
	}

	for _, tt := range tests {
		got, ok := handlers.ParseID(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseID(%q) = %d, %v; want %d, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
