package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		origin        string
		method        string
		wantOrigin    string
		wantNextCalls int
	}{
		{"allowed origin", "http://localhost:5173", http.MethodGet, "http://localhost:5173", 1},
		{"foreign origin", "https://evil.example", http.MethodGet, "", 1},
		{"preflight", "http://localhost:5173", http.MethodOptions, "http://localhost:5173", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ })
			h := NewCORSMiddleware([]string{"http://localhost:5173"})(next)

			req := httptest.NewRequest(tt.method, "/emails/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantNextCalls, calls)
		})
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := ChainMiddleware(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		NewLoggerMiddleware("test"),
		NewRecoverMiddleware("test"),
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", tt.header)
		got, ok := bearerToken(req)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
