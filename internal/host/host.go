package host

import (
	"os"

	"slate/internal/config"
)

// Host abstracts the application embedding the pipeline: a DCC with a
// scene open, or the standalone CLI. The cache layer derives the current
// job, entity and work from the host's scene path.
type Host interface {
	// Name identifies the host application (e.g. maya, nuke, standalone).
	Name() string
	// CurrentScene returns the path of the open scene, or "" when no
	// scene is open.
	CurrentScene() string
}

// EnvHost reads the current scene from an environment variable. DCC
// integrations export the variable on scene load; the standalone CLI
// inherits whatever the launching shell carries.
type EnvHost struct {
	name     string
	sceneEnv string
}

// NewEnvHost builds the host adapter from configuration.
func NewEnvHost(cfg *config.Config) *EnvHost {
	return &EnvHost{
		name:     cfg.Host.Name,
		sceneEnv: cfg.Host.SceneEnv,
	}
}

// Name implements Host.
func (h *EnvHost) Name() string {
	if h.name == "" {
		return "standalone"
	}
	return h.name
}

// CurrentScene implements Host.
func (h *EnvHost) CurrentScene() string {
	if h.sceneEnv == "" {
		return ""
	}
	return os.Getenv(h.sceneEnv)
}

// Static is a fixed-scene host for tests and batch tools that operate on a
// known scene path.
type Static struct {
	HostName string
	Scene    string
}

// Name implements Host.
func (h *Static) Name() string {
	if h.HostName == "" {
		return "static"
	}
	return h.HostName
}

// CurrentScene implements Host.
func (h *Static) CurrentScene() string {
	return h.Scene
}
