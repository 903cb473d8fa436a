package http

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/melih/graphdeploy/internal/core/ports"
	"github.com/melih/graphdeploy/internal/core/service"
	"github.com/melih/graphdeploy/internal/manifest"
)

type DeploymentHandler struct {
	orchestrator ports.Orchestrator
	store        ports.DeploymentStore
	containers   ports.ContainerService
}

func NewDeploymentHandler(orchestrator ports.Orchestrator, store ports.DeploymentStore, containers ports.ContainerService) *DeploymentHandler {
	return &DeploymentHandler{orchestrator: orchestrator, store: store, containers: containers}
}

// CreateDeployment builds and starts a deployment from the posted spec.
// The build is synchronous, so the response carries the final state.
func (h *DeploymentHandler) CreateDeployment(c *fiber.Ctx) error {
	var req manifest.Spec
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	spec, err := req.ToDomain()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	dep, err := h.orchestrator.Deploy(c.Context(), spec)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, service.ErrAlreadyExists) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dep)
}

func (h *DeploymentHandler) ListDeployments(c *fiber.Ctx) error {
	deployments := h.store.List()
	sort.Slice(deployments, func(i, j int) bool {
		return deployments[i].Spec.Name < deployments[j].Spec.Name
	})
	return c.JSON(deployments)
}

func (h *DeploymentHandler) GetDeployment(c *fiber.Ctx) error {
	name := c.Params("name")
	dep, ok := h.store.Get(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Deployment not found",
		})
	}
	return c.JSON(dep)
}

func (h *DeploymentHandler) DeleteDeployment(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := h.orchestrator.Remove(c.Context(), name); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Deployment not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *DeploymentHandler) GetDeploymentLogs(c *fiber.Ctx) error {
	name := c.Params("name")
	logs, err := h.orchestrator.Logs(c.Context(), name)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Deployment not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set("Content-Type", "text/plain")
	return c.SendStream(logs)
}

// GetDeploymentHealth reports the last probe outcome together with the
// container runtime's own view: state, docker health verdict, and the
// effective user the process runs as.
func (h *DeploymentHandler) GetDeploymentHealth(c *fiber.Ctx) error {
	name := c.Params("name")
	dep, ok := h.store.Get(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Deployment not found",
		})
	}

	resp := fiber.Map{
		"status":     dep.Status,
		"restarts":   dep.Restarts,
		"last_probe": dep.LastProbe,
	}
	if dep.ContainerID != "" {
		detail, err := h.containers.InspectContainer(c.Context(), dep.ContainerID)
		if err == nil {
			resp["container"] = detail
		}
	}
	return c.JSON(resp)
}

// Healthcheck is the controller's own liveness endpoint, answering the same
// contract it enforces on the deployments it manages.
func (h *DeploymentHandler) Healthcheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
