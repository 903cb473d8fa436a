package service

import "errors"

var (
	// ErrNotFound means no deployment with the given name is registered.
	ErrNotFound = errors.New("deployment not found")
	// ErrAlreadyExists means a deployment with the given name is registered.
	ErrAlreadyExists = errors.New("deployment already exists")
)

// Labels attached to every managed container so deployments can be
// rediscovered from the container runtime after a controller restart.
const (
	LabelManaged = "graphdeploy.managed"
	LabelName    = "graphdeploy.name"
	LabelID      = "graphdeploy.id"
	LabelPort    = "graphdeploy.port"
)
