package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/melih/graphdeploy/internal/core/domain"
	"github.com/melih/graphdeploy/internal/core/ports"
	"github.com/melih/graphdeploy/internal/metrics"
)

// Supervisor runs one liveness probe loop per tracked deployment. When a
// deployment accumulates the policy's retry budget of consecutive probe
// failures, its container is restarted and probing re-enters the start
// grace period.
type Supervisor struct {
	prober     ports.HealthProber
	containers ports.ContainerService
	store      ports.DeploymentStore
	metrics    *metrics.Metrics
	logger     *slog.Logger
	probeHost  string

	mu      sync.Mutex
	ctx     context.Context
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewSupervisor(
	prober ports.HealthProber,
	containers ports.ContainerService,
	store ports.DeploymentStore,
	m *metrics.Metrics,
	logger *slog.Logger,
	probeHost string,
) *Supervisor {
	if probeHost == "" {
		probeHost = "127.0.0.1"
	}
	return &Supervisor{
		prober:     prober,
		containers: containers,
		store:      store,
		metrics:    m,
		logger:     logger,
		probeHost:  probeHost,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// Start fixes the lifetime of all probe loops. Loops started by Track end
// when ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
}

// Track begins supervising a deployment. Tracking an already tracked
// deployment is a no-op.
func (s *Supervisor) Track(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if _, tracked := s.cancels[name]; tracked {
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancels[name] = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, name)
	}()
}

// Untrack stops supervising a deployment.
func (s *Supervisor) Untrack(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[name]; ok {
		cancel()
		delete(s.cancels, name)
	}
}

// Stop cancels every probe loop and waits for them to finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	for name, cancel := range s.cancels {
		cancel()
		delete(s.cancels, name)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Supervisor) run(ctx context.Context, name string) {
	for {
		dep, ok := s.store.Get(name)
		if !ok {
			return
		}
		policy := dep.Spec.Health
		target := fmt.Sprintf("http://%s:%d", s.probeHost, dep.Spec.Port)

		watchCtx, cancel := context.WithCancel(ctx)
		tripped := false
		s.prober.Watch(watchCtx, target, policy, func(res domain.ProbeResult) {
			s.store.RecordProbe(name, res)
			outcome := "success"
			if !res.Healthy {
				outcome = "failure"
			}
			s.metrics.ProbesTotal.WithLabelValues(name, outcome).Inc()
			if !res.Healthy && res.Failures >= policy.Retries {
				tripped = true
				cancel()
			}
		})
		cancel()

		if ctx.Err() != nil {
			return
		}
		if !tripped {
			// Watch returned without cancellation or a tripped budget;
			// nothing sensible to do but stop supervising.
			return
		}

		s.logger.Warn("deployment unhealthy, restarting container",
			slog.String("deployment", name),
			slog.Int("failures", policy.Retries))
		s.store.SetStatus(name, domain.StatusUnhealthy)

		if dep.ContainerID == "" {
			return
		}
		if err := s.containers.RestartContainer(ctx, dep.ContainerID); err != nil {
			s.logger.Error("container restart failed",
				slog.String("deployment", name), slog.Any("error", err))
			s.store.SetStatus(name, domain.StatusFailed)
			return
		}
		s.store.IncrRestarts(name)
		s.metrics.RestartsTotal.WithLabelValues(name).Inc()
		s.store.SetStatus(name, domain.StatusRunning)
	}
}
