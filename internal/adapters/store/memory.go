package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/melih/graphdeploy/internal/core/domain"
)

// Memory is an in-process deployment registry. Deployment state is
// reconstructible from container labels, so nothing is persisted.
type Memory struct {
	mu          sync.RWMutex
	deployments map[string]*domain.Deployment
}

func NewMemory() *Memory {
	return &Memory{deployments: make(map[string]*domain.Deployment)}
}

func (m *Memory) Save(d *domain.Deployment) error {
	if d.Spec.Name == "" {
		return fmt.Errorf("deployment has no name")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	cp.UpdatedAt = time.Now()
	m.deployments[d.Spec.Name] = &cp
	return nil
}

func (m *Memory) Get(name string) (domain.Deployment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deployments[name]
	if !ok {
		return domain.Deployment{}, false
	}
	return *d, true
}

func (m *Memory) List() []domain.Deployment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]domain.Deployment, 0, len(m.deployments))
	for _, d := range m.deployments {
		result = append(result, *d)
	}
	return result
}

func (m *Memory) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deployments, name)
}

func (m *Memory) SetStatus(name string, status domain.Status) bool {
	return m.update(name, func(d *domain.Deployment) {
		d.Status = status
	})
}

func (m *Memory) SetRuntime(name string, imageID, containerID string) bool {
	return m.update(name, func(d *domain.Deployment) {
		if imageID != "" {
			d.ImageID = imageID
		}
		if containerID != "" {
			d.ContainerID = containerID
		}
	})
}

func (m *Memory) RecordProbe(name string, res domain.ProbeResult) bool {
	return m.update(name, func(d *domain.Deployment) {
		d.LastProbe = &res
	})
}

func (m *Memory) IncrRestarts(name string) bool {
	return m.update(name, func(d *domain.Deployment) {
		d.Restarts++
	})
}

func (m *Memory) update(name string, fn func(*domain.Deployment)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deployments[name]
	if !ok {
		return false
	}
	fn(d)
	d.UpdatedAt = time.Now()
	return true
}
