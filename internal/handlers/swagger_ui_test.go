package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSwaggerUIRendersConfiguredSpecURL(t *testing.T) {
	handler := SwaggerUI("/api/docs/openapi.json")

	req := httptest.NewRequest(http.MethodGet, "/api/docs", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected HTML content type, got %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "<title>Carbon Platform API</title>") {
		t.Errorf("page title missing from rendered documentation")
	}
	if !strings.Contains(body, "/api/docs/openapi.json") {
		t.Errorf("spec URL missing from rendered documentation")
	}
}
