package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/melih/graphdeploy/internal/adapters/http"
	"github.com/melih/graphdeploy/internal/adapters/store"
	"github.com/melih/graphdeploy/internal/core/domain"
	"github.com/melih/graphdeploy/internal/core/ports"
	"github.com/melih/graphdeploy/internal/core/service"
)

type mockOrchestrator struct {
	deployed domain.DeploymentSpec
	deployFn func(domain.DeploymentSpec) (domain.Deployment, error)
	removeFn func(string) error
	logsFn   func(string) (io.ReadCloser, error)
}

func (m *mockOrchestrator) Deploy(ctx context.Context, spec domain.DeploymentSpec) (domain.Deployment, error) {
	m.deployed = spec
	if m.deployFn != nil {
		return m.deployFn(spec)
	}
	return domain.Deployment{ID: "dep-1", Spec: spec, Status: domain.StatusRunning}, nil
}

func (m *mockOrchestrator) Remove(ctx context.Context, name string) error {
	if m.removeFn != nil {
		return m.removeFn(name)
	}
	return nil
}

func (m *mockOrchestrator) Logs(ctx context.Context, name string) (io.ReadCloser, error) {
	if m.logsFn != nil {
		return m.logsFn(name)
	}
	return io.NopCloser(strings.NewReader("log line\n")), nil
}

type mockContainers struct {
	detail domain.ContainerDetail
}

func (m *mockContainers) ListContainers(ctx context.Context, labels map[string]string) ([]domain.Container, error) {
	return nil, nil
}
func (m *mockContainers) RunContainer(ctx context.Context, opts ports.RunOptions) (string, error) {
	return "", nil
}
func (m *mockContainers) StopContainer(ctx context.Context, id string) error    { return nil }
func (m *mockContainers) RemoveContainer(ctx context.Context, id string) error  { return nil }
func (m *mockContainers) RestartContainer(ctx context.Context, id string) error { return nil }
func (m *mockContainers) InspectContainer(ctx context.Context, id string) (domain.ContainerDetail, error) {
	return m.detail, nil
}
func (m *mockContainers) GetContainerLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newApp(orch *mockOrchestrator, st ports.DeploymentStore, containers ports.ContainerService, token string) *fiber.App {
	handler := httpadapter.NewDeploymentHandler(orch, st, containers)
	return httpadapter.NewRouter(handler, nil, testLogger(), token, nil)
}

func TestHealthcheckEndpoint(t *testing.T) {
	app := newApp(&mockOrchestrator{}, store.NewMemory(), &mockContainers{}, "")

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/healthcheck", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestCreateDeployment(t *testing.T) {
	orch := &mockOrchestrator{}
	app := newApp(orch, store.NewMemory(), &mockContainers{}, "")

	payload := `{"name":"graph-prod","source":"local","context_dir":"./graph"}`
	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/deployments/", bytes.NewBufferString(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	// The handler validated and defaulted the spec before deploying.
	assert.Equal(t, "graph-prod", orch.deployed.Name)
	assert.Equal(t, 8000, orch.deployed.Port)
	assert.Equal(t, 5, orch.deployed.Workers)
	assert.Equal(t, "appuser", orch.deployed.RuntimeUser)

	var dep domain.Deployment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dep))
	assert.Equal(t, "dep-1", dep.ID)
}

func TestCreateDeploymentBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "not json"},
		{"invalid spec", `{"name":"graph","source":"remote"}`},
		{"root user", `{"name":"graph","source":"local","context_dir":".","runtime_user":"root"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(&mockOrchestrator{}, store.NewMemory(), &mockContainers{}, "")
			req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/deployments/", bytes.NewBufferString(tt.payload))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestCreateDeploymentConflict(t *testing.T) {
	orch := &mockOrchestrator{
		deployFn: func(spec domain.DeploymentSpec) (domain.Deployment, error) {
			return domain.Deployment{}, fmt.Errorf("%w: %s", service.ErrAlreadyExists, spec.Name)
		},
	}
	app := newApp(orch, store.NewMemory(), &mockContainers{}, "")

	payload := `{"name":"graph","source":"local","context_dir":"."}`
	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/deployments/", bytes.NewBufferString(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
}

func TestListDeploymentsSorted(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Save(&domain.Deployment{Spec: domain.DeploymentSpec{Name: "zeta"}}))
	require.NoError(t, st.Save(&domain.Deployment{Spec: domain.DeploymentSpec{Name: "alpha"}}))
	app := newApp(&mockOrchestrator{}, st, &mockContainers{}, "")

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/v1/deployments/", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var deps []domain.Deployment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&deps))
	require.Len(t, deps, 2)
	assert.Equal(t, "alpha", deps[0].Spec.Name)
	assert.Equal(t, "zeta", deps[1].Spec.Name)
}

func TestGetDeployment(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Save(&domain.Deployment{ID: "dep-1", Spec: domain.DeploymentSpec{Name: "graph"}}))
	app := newApp(&mockOrchestrator{}, st, &mockContainers{}, "")

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/v1/deployments/graph", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/v1/deployments/ghost", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestDeleteDeployment(t *testing.T) {
	orch := &mockOrchestrator{
		removeFn: func(name string) error {
			if name == "ghost" {
				return fmt.Errorf("%w: %s", service.ErrNotFound, name)
			}
			return nil
		},
	}
	app := newApp(orch, store.NewMemory(), &mockContainers{}, "")

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodDelete, "/api/v1/deployments/graph", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(nethttp.MethodDelete, "/api/v1/deployments/ghost", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestGetDeploymentLogs(t *testing.T) {
	app := newApp(&mockOrchestrator{}, storeWith(t, "graph"), &mockContainers{}, "")

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/v1/deployments/graph/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "log line\n", string(body))
}

func TestGetDeploymentHealth(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Save(&domain.Deployment{
		Spec:        domain.DeploymentSpec{Name: "graph"},
		ContainerID: "cafe0123",
		Status:      domain.StatusRunning,
	}))
	require.True(t, st.RecordProbe("graph", domain.ProbeResult{Healthy: true, StatusCode: 200}))

	containers := &mockContainers{detail: domain.ContainerDetail{
		Container: domain.Container{ID: "cafe0123", Name: "graphdeploy-graph"},
		User:      "appuser",
		Running:   true,
		Health:    "healthy",
	}}
	app := newApp(&mockOrchestrator{}, st, containers, "")

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/v1/deployments/graph/health", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var body struct {
		Status    domain.Status           `json:"status"`
		LastProbe *domain.ProbeResult     `json:"last_probe"`
		Container *domain.ContainerDetail `json:"container"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.StatusRunning, body.Status)
	require.NotNil(t, body.LastProbe)
	assert.True(t, body.LastProbe.Healthy)
	require.NotNil(t, body.Container)
	assert.Equal(t, "appuser", body.Container.User)
	assert.Equal(t, "healthy", body.Container.Health)
}

func storeWith(t *testing.T, names ...string) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	for _, name := range names {
		require.NoError(t, st.Save(&domain.Deployment{Spec: domain.DeploymentSpec{Name: name}}))
	}
	return st
}
