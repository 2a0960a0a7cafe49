package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminAuth_IssueAndParse(t *testing.T) {
	a := NewAdminAuth("jwt-secret")

	token, expires, err := a.Issue("admin@example.com")
	require.NoError(t, err)
	assert.False(t, expires.IsZero())

	email, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", email)

	_, err = NewAdminAuth("other-secret").Parse(token)
	assert.Error(t, err)

	_, err = a.Parse("not-a-token")
	assert.Error(t, err)
}

func TestAdminAuth_Middleware(t *testing.T) {
	a := NewAdminAuth("jwt-secret")
	token, _, err := a.Issue("admin@example.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + token, wantStatus: http.StatusOK},
		{name: "no header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, wantStatus: http.StatusUnauthorized},
		{name: "tampered token", header: "Bearer " + token + "x", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				email, ok := GetAdminFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "admin@example.com", email)
				w.WriteHeader(http.StatusOK)
			})

			r := httptest.NewRequest(http.MethodGet, "/api/admin/affiliates", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			a.Middleware(next).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCronAuth(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
	}{
		{name: "matching secret", secret: "cron", header: "Bearer cron", wantStatus: http.StatusNoContent},
		{name: "wrong secret", secret: "cron", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "missing header", secret: "cron", header: "", wantStatus: http.StatusUnauthorized},
		{name: "secret not configured", secret: "", header: "Bearer ", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})

			r := httptest.NewRequest(http.MethodGet, "/api/cron", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			CronAuth(tt.secret)(next).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.JSONEq(t, `{"success":false,"error":"No autorizado"}`, w.Body.String())
			}
		})
	}
}
