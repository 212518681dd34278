package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"realtime_chat/internal/service"
)

func TestMetricsEndpoint_RecordsRoutePattern(t *testing.T) {
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: got %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`chat_http_requests_total{method="GET",path="/health",status="200"}`,
		`chat_http_requests_total{method="GET",path="unmatched",status="404"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
