package service_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/graphdeploy/internal/adapters/store"
	"github.com/melih/graphdeploy/internal/core/domain"
	"github.com/melih/graphdeploy/internal/core/service"
	"github.com/melih/graphdeploy/internal/metrics"
)

// unhealthyOnceProber reports a tripped retry budget on its first watch,
// then behaves like a healthy deployment and blocks until cancelled.
type unhealthyOnceProber struct {
	watches atomic.Int32
}

func (p *unhealthyOnceProber) Watch(ctx context.Context, baseURL string, policy domain.HealthPolicy, report func(domain.ProbeResult)) {
	if p.watches.Add(1) == 1 {
		report(domain.ProbeResult{
			Healthy:   false,
			Error:     "connection refused",
			Failures:  policy.Retries,
			CheckedAt: time.Now(),
		})
	}
	<-ctx.Done()
}

type restartNotifier struct {
	fakeContainers
	restartedCh chan string
}

func (c *restartNotifier) RestartContainer(ctx context.Context, id string) error {
	c.restartedCh <- id
	return nil
}

func runningDeployment(t *testing.T, st *store.Memory, name string) {
	t.Helper()
	spec := localSpec(name)
	spec.ApplyDefaults()
	require.NoError(t, st.Save(&domain.Deployment{
		ID:          "dep-1",
		Spec:        spec,
		ContainerID: "cafe0123cafe0123",
		Status:      domain.StatusRunning,
	}))
}

func TestSupervisorRestartsUnhealthyDeployment(t *testing.T) {
	st := store.NewMemory()
	runningDeployment(t, st, "graph")

	containers := &restartNotifier{restartedCh: make(chan string, 1)}
	prober := &unhealthyOnceProber{}
	sup := service.NewSupervisor(prober, containers, st,
		metrics.New(prometheus.NewRegistry()), testLogger(), "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Start(ctx)
	sup.Track("graph")

	select {
	case id := <-containers.restartedCh:
		assert.Equal(t, "cafe0123cafe0123", id)
	case <-time.After(5 * time.Second):
		t.Fatal("container was not restarted")
	}

	// After the restart the deployment is running again and its probe loop
	// re-enters the start grace period (a second watch).
	require.Eventually(t, func() bool {
		dep, ok := st.Get("graph")
		return ok && dep.Status == domain.StatusRunning && dep.Restarts == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return prober.watches.Load() == 2
	}, 5*time.Second, 10*time.Millisecond)

	dep, _ := st.Get("graph")
	require.NotNil(t, dep.LastProbe)
	assert.False(t, dep.LastProbe.Healthy)

	sup.Stop()
}

func TestSupervisorUntrackStopsWatching(t *testing.T) {
	st := store.NewMemory()
	runningDeployment(t, st, "graph")

	// A prober that never trips; it just blocks until cancelled.
	prober := &blockingProber{started: make(chan struct{}, 1)}
	sup := service.NewSupervisor(prober, &fakeContainers{}, st,
		metrics.New(prometheus.NewRegistry()), testLogger(), "")

	sup.Start(context.Background())
	sup.Track("graph")

	select {
	case <-prober.started:
	case <-time.After(5 * time.Second):
		t.Fatal("watch never started")
	}

	sup.Untrack("graph")
	sup.Stop() // returns only once the loop exits
}

func TestSupervisorTrackIsIdempotent(t *testing.T) {
	st := store.NewMemory()
	runningDeployment(t, st, "graph")

	prober := &blockingProber{started: make(chan struct{}, 8)}
	sup := service.NewSupervisor(prober, &fakeContainers{}, st,
		metrics.New(prometheus.NewRegistry()), testLogger(), "")

	ctx, cancel := context.WithCancel(context.Background())
	sup.Start(ctx)
	sup.Track("graph")
	sup.Track("graph")
	sup.Track("graph")

	select {
	case <-prober.started:
	case <-time.After(5 * time.Second):
		t.Fatal("watch never started")
	}
	// Only one probe loop may exist for a deployment.
	assert.Equal(t, int32(1), prober.watchCount.Load())

	cancel()
	sup.Stop()
}

type blockingProber struct {
	started    chan struct{}
	watchCount atomic.Int32
}

func (p *blockingProber) Watch(ctx context.Context, baseURL string, policy domain.HealthPolicy, report func(domain.ProbeResult)) {
	p.watchCount.Add(1)
	select {
	case p.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
}
