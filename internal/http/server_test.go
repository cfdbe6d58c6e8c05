package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
	"expenses/internal/services"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
)

type failingStore struct{ err error }

func (f failingStore) InSession(context.Context, func(storage.Session) error) error { return f.err }
func (f failingStore) Ping(context.Context) error                                    { return f.err }
func (f failingStore) Close() error                                                  { return nil }

func newTestServer(t *testing.T, store storage.Store) *Server {
	t.Helper()
	return NewServer(":0", services.NewExpenseService(store, nil), WithCORSOrigin("http://localhost:5174"))
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"API running"}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestReadyReportsStorageFailure(t *testing.T) {
	srv := newTestServer(t, failingStore{err: errors.New("database is locked")})

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"not_ready","checks":{"storage":"failed: database is locked"}}`, rr.Body.String())
}

func TestExpenseLifecycle(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodGet, "/expenses", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/expenses", `{"title":"Coffee","amount":5,"category":"Food"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":1,"title":"Coffee","amount":5,"category":"Food"}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/expenses", "")
	assert.JSONEq(t, `[{"id":1,"title":"Coffee","amount":5,"category":"Food"}]`, rr.Body.String())

	rr = do(t, srv, http.MethodPut, "/expenses/1", `{"title":"Tea","amount":4,"category":"Food"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":1,"title":"Tea","amount":4,"category":"Food"}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/expenses/1", "")
	assert.JSONEq(t, `{"id":1,"title":"Tea","amount":4,"category":"Food"}`, rr.Body.String())

	rr = do(t, srv, http.MethodDelete, "/expenses/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Deleted"}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/expenses", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestMissingExpenseIsNotFound(t *testing.T) {
	srv := newTestServer(t, memory.New())

	cases := []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPut, `{"title":"Tea","amount":4,"category":"Food"}`},
		{http.MethodDelete, ""},
	}
	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			rr := do(t, srv, tc.method, "/expenses/99", tc.body)
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.JSONEq(t, `{"error":"Not found"}`, rr.Body.String())
		})
	}

	// Still serving afterwards
	rr := do(t, srv, http.MethodGet, "/expenses", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateExpenseRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, memory.New())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{"malformed json", `{"title":`, http.StatusBadRequest, nil},
		{"array body", `[1,2]`, http.StatusBadRequest, nil},
		{"null body", `null`, http.StatusBadRequest, nil},
		{"missing everything", `{}`, http.StatusUnprocessableEntity, []string{"title", "category", "amount"}},
		{"fractional amount", `{"title":"x","amount":5.5,"category":"c"}`, http.StatusUnprocessableEntity, []string{"amount"}},
		{"non numeric amount", `{"title":"x","amount":"abc","category":"c"}`, http.StatusUnprocessableEntity, []string{"amount"}},
		{"title wrong type", `{"title":7,"amount":1,"category":"c"}`, http.StatusUnprocessableEntity, []string{"title"}},
		{"empty title", `{"title":"","amount":1,"category":"c"}`, http.StatusUnprocessableEntity, []string{"title"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/expenses", tt.body)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())

			body := decode[ErrorBody](t, rr)
			if tt.wantStatus == http.StatusBadRequest {
				assert.Equal(t, "Invalid JSON body", body.Error)
				return
			}
			assert.Equal(t, "Validation failed", body.Error)
			var fields []string
			for _, d := range body.Details {
				fields = append(fields, d.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}

	rr := do(t, srv, http.MethodGet, "/expenses", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestCreateExpenseAcceptsAnyStringFields(t *testing.T) {
	srv := newTestServer(t, memory.New())
	longTitle := strings.Repeat("t", 201)

	rr := do(t, srv, http.MethodPost, "/expenses", `{"title":"`+longTitle+`","amount":5,"category":""}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	created := decode[core.Expense](t, rr)
	assert.Equal(t, longTitle, created.Title)
	assert.Empty(t, created.Category)

	rr = do(t, srv, http.MethodPut, "/expenses/1", `{"title":"Tea","amount":4,"category":"   "}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "   ", decode[core.Expense](t, rr).Category)
}

func TestCreateExpenseCoercesAmount(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodPost, "/expenses", `{"title":"Lunch","amount":"12","category":"Food"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(12), decode[core.Expense](t, rr).Amount)

	rr = do(t, srv, http.MethodPost, "/expenses", `{"title":"Bus","amount":2.0,"category":"Travel"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(2), decode[core.Expense](t, rr).Amount)
}

func TestInvalidIDIsUnprocessable(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodGet, "/expenses/abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decode[ErrorBody](t, rr)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "id", body.Details[0].Field)
}

func TestWrongMethodIsNotAllowed(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodPatch, "/expenses", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Contains(t, rr.Header().Get("Allow"), http.MethodPost)
}

func TestSummary(t *testing.T) {
	srv := newTestServer(t, memory.New(
		core.ExpenseInput{Title: "Coffee", Amount: 5, Category: "Food"},
		core.ExpenseInput{Title: "Bus", Amount: 2, Category: "Travel"},
		core.ExpenseInput{Title: "Lunch", Amount: 12, Category: "Food"},
	))

	rr := do(t, srv, http.MethodGet, "/expenses/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":3,"total":19,"by_category":[
		{"name":"Food","amount":17,"count":2},
		{"name":"Travel","amount":2,"count":1}]}`, rr.Body.String())
}

func TestStorageFailureIsInternalError(t *testing.T) {
	srv := newTestServer(t, failingStore{err: errors.New("disk I/O error")})

	rr := do(t, srv, http.MethodGet, "/expenses", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
}

func TestCORSAllowsConfiguredOriginOnly(t *testing.T) {
	srv := newTestServer(t, memory.New())

	req := httptest.NewRequest(http.MethodOptions, "/expenses", nil)
	req.Header.Set("Origin", "http://localhost:5174")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5174", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/expenses", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestResponsesCarryRequestIDAndSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodGet, "/expenses", "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}
