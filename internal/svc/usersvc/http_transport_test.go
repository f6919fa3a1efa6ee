package usersvc_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkrupp/userdir/internal/domain"
	"github.com/mkrupp/userdir/internal/svc/usersvc"
)

func setupTestTransport(t *testing.T) (*usersvc.HTTPTransport, *mockUserRepository) {
	t.Helper()

	svc, mockRepo := setupTestService(t)

	//nolint:exhaustruct
	return usersvc.NewHTTPTransport(svc, usersvc.HTTPTransportConfig{}), mockRepo
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) (int, map[string]any) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
		}

		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want %q", ct, "application/json")
		}
	}

	return rec.Code, decoded
}

//nolint:paralleltest
func TestHTTPTransport_Scenarios(t *testing.T) {
	ht, _ := setupTestTransport(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "create user",
			method:     http.MethodPost,
			target:     "/users",
			body:       `{"username":"alice","email":"a@x.com"}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"status": "ok"},
		},
		{
			name:       "get user",
			method:     http.MethodGet,
			target:     "/users/alice",
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"id": float64(1), "username": "alice", "email": "a@x.com"},
		},
		{
			name:       "get unknown user",
			method:     http.MethodGet,
			target:     "/users/bob",
			wantStatus: http.StatusNotFound,
			wantBody:   map[string]any{"error": "USER_NOT_FOUND: bob"},
		},
		{
			name:       "create duplicate user",
			method:     http.MethodPost,
			target:     "/users",
			body:       `{"username":"alice","email":"other@x.com"}`,
			wantStatus: http.StatusConflict,
			wantBody:   map[string]any{"error": "DUPLICATE_USERNAME: alice"},
		},
		{
			name:       "duplicate left the record untouched",
			method:     http.MethodGet,
			target:     "/users/alice",
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"id": float64(1), "username": "alice", "email": "a@x.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, ht, tt.method, tt.target, tt.body)

			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}

			if fmt.Sprint(body) != fmt.Sprint(tt.wantBody) {
				t.Errorf("body = %v, want %v", body, tt.wantBody)
			}
		})
	}
}

func TestHTTPTransport_MalformedRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "invalid json",
			body:      `{"username":`,
			wantError: "MALFORMED_REQUEST: unexpected EOF",
		},
		{
			name:      "wrong field type",
			body:      `{"username":42,"email":"a@x.com"}`,
			wantError: "MALFORMED_REQUEST: ",
		},
		{
			name:      "missing username",
			body:      `{"email":"a@x.com"}`,
			wantError: "MALFORMED_REQUEST: no username",
		},
		{
			name:      "missing email",
			body:      `{"username":"alice"}`,
			wantError: "MALFORMED_REQUEST: no email",
		},
		{
			name:      "empty body",
			body:      " ",
			wantError: "MALFORMED_REQUEST: EOF",
		},
		{
			name:      "oversized body",
			body:      `{"username":"alice","email":"` + strings.Repeat("a", 2<<20) + `"}`,
			wantError: "MALFORMED_REQUEST: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ht, mockRepo := setupTestTransport(t)

			status, body := doRequest(t, ht, http.MethodPost, "/users", tt.body)

			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", status, http.StatusBadRequest)
			}

			if msg, _ := body["error"].(string); !strings.HasPrefix(msg, tt.wantError) {
				t.Errorf("error = %q, want prefix %q", msg, tt.wantError)
			}

			if len(mockRepo.users) != 0 {
				t.Errorf("malformed request stored %d users", len(mockRepo.users))
			}
		})
	}
}

func TestHTTPTransport_StoreUnavailable(t *testing.T) {
	t.Parallel()

	ht, mockRepo := setupTestTransport(t)
	mockRepo.setErr(errors.New("connection refused"))

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{
			name:   "create",
			method: http.MethodPost,
			target: "/users",
			body:   `{"username":"alice","email":"a@x.com"}`,
		},
		{
			name:   "get",
			method: http.MethodGet,
			target: "/users/alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, body := doRequest(t, ht, tt.method, tt.target, tt.body)

			if status != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want %d", status, http.StatusServiceUnavailable)
			}

			if body["error"] != "DB_ERROR: connection refused" {
				t.Errorf("error = %v, want %q", body["error"], "DB_ERROR: connection refused")
			}
		})
	}
}

func TestHTTPTransport_UnknownRoutes(t *testing.T) {
	t.Parallel()

	ht, _ := setupTestTransport(t)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{
			name:       "list users",
			method:     http.MethodGet,
			target:     "/users",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "delete user",
			method:     http.MethodDelete,
			target:     "/users/alice",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "unknown path",
			method:     http.MethodGet,
			target:     "/accounts/alice",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			ht.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "not found",
			err:  fmt.Errorf("get user: %w", domain.NewUserNotFoundError("bob", nil)),
			want: http.StatusNotFound,
		},
		{
			name: "duplicate",
			err:  fmt.Errorf("create user: %w", domain.NewDuplicateUsernameError("alice", nil)),
			want: http.StatusConflict,
		},
		{
			name: "unavailable",
			err:  domain.NewStoreUnavailableError("", errors.New("timeout")),
			want: http.StatusServiceUnavailable,
		},
		{
			name: "malformed",
			err:  fmt.Errorf("%w: %w", usersvc.ErrMalformedRequest, usersvc.ErrNoEmail),
			want: http.StatusBadRequest,
		},
		{
			name: "unclassified",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := usersvc.StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
