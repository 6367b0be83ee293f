package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGateAnswersUnavailableUntilOpen(t *testing.T) {
	g := &gate{}
	for _, path := range []string{"/healthz", "/v1/actions/create_record"} {
		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") == "" {
			t.Fatalf("%s before open: status %d retry-after %q", path, rec.Code, rec.Header().Get("Retry-After"))
		}
	}

	g.open(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("after open: status %d", rec.Code)
	}
}
