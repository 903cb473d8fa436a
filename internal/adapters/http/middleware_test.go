package http_test

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/graphdeploy/internal/adapters/store"
)

func TestBearerAuthGuardsAPI(t *testing.T) {
	app := newApp(&mockOrchestrator{}, store.NewMemory(), &mockContainers{}, "s3cret")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", nethttp.StatusUnauthorized},
		{"not bearer", "Basic abc", nethttp.StatusUnauthorized},
		{"wrong token", "Bearer nope", nethttp.StatusForbidden},
		{"valid token", "Bearer s3cret", nethttp.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/deployments/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHealthcheckBypassesAuth(t *testing.T) {
	app := newApp(&mockOrchestrator{}, store.NewMemory(), &mockContainers{}, "s3cret")

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/healthcheck", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}
