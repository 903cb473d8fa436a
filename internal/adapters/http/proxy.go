package http

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/melih/graphdeploy/internal/core/domain"
	"github.com/melih/graphdeploy/internal/core/ports"
)

// ProxyHandler manages reverse proxying for subdomains.
type ProxyHandler struct {
	store      ports.DeploymentStore
	containers ports.ContainerService
}

// NewProxyHandler creates a new proxy handler.
func NewProxyHandler(store ports.DeploymentStore, containers ports.ContainerService) *ProxyHandler {
	return &ProxyHandler{store: store, containers: containers}
}

// ProxyRequest intercepts requests to subdomains (e.g., my-graph.localhost)
// and routes them to the corresponding deployment's container.
func (h *ProxyHandler) ProxyRequest(c *fiber.Ctx) error {
	host := c.Hostname()

	// 1. Extract Subdomain
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return c.Next()
	}
	subdomain := parts[0]

	// Skip common subdomains or empty ones
	if subdomain == "www" || subdomain == "" {
		return c.Next()
	}

	// 2. Find Deployment by Name (Subdomain)
	dep, ok := h.store.Get(subdomain)
	if !ok || dep.ContainerID == "" {
		return c.Next()
	}
	if dep.Status != domain.StatusRunning {
		return c.Status(fiber.StatusServiceUnavailable).SendString(
			fmt.Sprintf("Deployment '%s' is %s", subdomain, dep.Status))
	}

	detail, err := h.containers.InspectContainer(c.Context(), dep.ContainerID)
	if err != nil || !detail.Running || detail.IPAddress == "" {
		return c.Status(fiber.StatusNotFound).SendString(
			fmt.Sprintf("Deployment '%s' not found or not running", subdomain))
	}

	// 3. Proxy the Request
	targetURL := fmt.Sprintf("http://%s:%d", detail.IPAddress, dep.Spec.Port)
	remote, err := url.Parse(targetURL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Invalid target URL")
	}

	proxy := httputil.NewSingleHostReverseProxy(remote)

	// Custom Director: Rewrite Host header to target
	// This ensures the container receives a request with a Host header it expects (IP based),
	// avoiding "Host not recognized" errors from the application inside.
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = remote.Host
		req.URL.Host = remote.Host
		req.URL.Scheme = remote.Scheme
	}

	// Error Handler: Return standard BadGateway if connectivity fails
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(fmt.Sprintf("Proxy Info: target=%s error=%v", remote.Host, err)))
	}

	// Fiber <-> Net/HTTP Adaptor
	return adaptor.HTTPHandler(proxy)(c)
}
