package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		health   HealthFunc
		wantCode int
		wantBody string
	}{
		{name: "no check", health: nil, wantCode: http.StatusOK, wantBody: "ok"},
		{name: "healthy", health: func(context.Context) error { return nil }, wantCode: http.StatusOK, wantBody: "ok"},
		{
			name:     "unhealthy",
			health:   func(context.Context) error { return errors.New("redis down") },
			wantCode: http.StatusServiceUnavailable,
			wantBody: "unhealthy: redis down",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			HealthHandler(tt.health)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}
