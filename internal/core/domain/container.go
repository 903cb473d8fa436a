package domain

// Container represents a container in the system (Docker, K8s, etc.)
type Container struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Image     string            `json:"image"`
	Status    string            `json:"status"`
	State     string            `json:"state"` // running, exited, etc.
	IPAddress string            `json:"ip_address,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// ContainerDetail augments a Container with the inspect-level facts the
// supervisor and API care about: the effective user, docker's own health
// verdict, and whether the process is still running.
type ContainerDetail struct {
	Container
	User    string `json:"user"`
	Running bool   `json:"running"`
	Health  string `json:"health,omitempty"` // starting, healthy, unhealthy
}
