package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-gate/internal/enroll"
	"github.com/kozaktomas/face-gate/internal/events"
	"github.com/kozaktomas/face-gate/internal/match"
	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store/mock"
)

// testEnv wires real core services to an in-memory store.
type testEnv struct {
	store       *mock.MockStore
	broadcaster *events.Broadcaster
	coordinator *enroll.Coordinator
	engine      *match.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ms := mock.NewMockStore()
	b := events.NewBroadcaster()
	engine, err := match.NewEngine(ms, match.DefaultThreshold)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return &testEnv{
		store:       ms,
		broadcaster: b,
		coordinator: enroll.New(ms, enroll.WithPublisher(b)),
		engine:      engine,
	}
}

// sig builds a signature of n bytes all set to v.
func sig(n int, v int8) signature.Signature {
	s := make(signature.Signature, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// assertStatusCode checks the response status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks that the response has the expected error message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedError string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	if result["error"] != expectedError {
		t.Errorf("expected error '%s', got '%s'", expectedError, result["error"])
	}
}

// assertJSONErrorContains checks that the error message contains substr
func assertJSONErrorContains(t *testing.T, recorder *httptest.ResponseRecorder, substr string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	if !strings.Contains(result["error"], substr) {
		t.Errorf("expected error containing '%s', got '%s'", substr, result["error"])
	}
}

// assertContentType checks the response content type prefix
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	if ct := recorder.Header().Get("Content-Type"); !strings.HasPrefix(ct, expected) {
		t.Errorf("expected content type '%s', got '%s'", expected, ct)
	}
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
}
