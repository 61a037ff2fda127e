package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		wantStatus int
		wantInner  bool
	}{
		{"preflight short-circuits", http.MethodOptions, http.StatusNoContent, false},
		{"GET passes through", http.MethodGet, http.StatusOK, true},
		{"POST passes through", http.MethodPost, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			req := httptest.NewRequest(tt.method, "/api/checkout", nil)
			w := httptest.NewRecorder()

			CORS(okHandler(&called)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantInner, called)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	const key = "test-api-key-123"

	tests := []struct {
		name       string
		path       string
		sendKey    string
		wantStatus int
		wantInner  bool
	}{
		{"valid key", "/api/checkout", key, http.StatusOK, true},
		{"wrong key", "/api/checkout", "nope", http.StatusUnauthorized, false},
		{"missing key", "/api/inventory/P001", "", http.StatusUnauthorized, false},
		{"health bypasses auth", "/health", "", http.StatusOK, true},
		{"gateway webhook bypasses auth", "/webhooks/payment", "", http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.sendKey != "" {
				req.Header.Set("X-API-Key", tt.sendKey)
			}
			w := httptest.NewRecorder()

			APIKeyAuth(key, zerolog.Nop())(okHandler(&called)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantInner, called)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestLogging_PreservesHandlerStatus(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError} {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		w := httptest.NewRecorder()

		Logging(zerolog.Nop())(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/inventory/P001", nil))

		assert.Equal(t, status, w.Code)
	}
}

func TestRecovery(t *testing.T) {
	t.Run("no panic", func(t *testing.T) {
		var called bool
		w := httptest.NewRecorder()
		Recovery(zerolog.Nop())(okHandler(&called)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/checkout", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})

	for _, value := range []interface{}{"boom", assert.AnError} {
		t.Run("panic recovered", func(t *testing.T) {
			inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(value)
			})
			w := httptest.NewRecorder()

			Recovery(zerolog.Nop())(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/checkout", nil))

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Contains(t, w.Body.String(), "internal server error")
		})
	}
}

func TestResponseWriter_CapturesStatusAndSize(t *testing.T) {
	w := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	n, err := rw.Write([]byte(`{"ok":true}`))

	assert.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, http.StatusCreated, rw.statusCode)
	assert.Equal(t, 11, rw.written)
	assert.Equal(t, http.StatusCreated, w.Code)
}
