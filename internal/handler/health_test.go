package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		pingers  []Pinger
		wantCode int
		wantBody string
	}{
		{name: "no dependencies", wantCode: http.StatusOK, wantBody: `{"status":"ok"}`},
		{
			name:     "database reachable",
			pingers:  []Pinger{pingerFunc(func(context.Context) error { return nil })},
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok"}`,
		},
		{
			name:     "database down",
			pingers:  []Pinger{pingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") })},
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"status":"not ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			NewHealthHandler(tt.pingers...).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
