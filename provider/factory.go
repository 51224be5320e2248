package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jdelfino/coding-tool-sub001/config"
)

// New creates the appropriate sandbox provider based on the configuration
func New(logger *zap.Logger, cfg *config.Config) (Provider, error) {
	switch cfg.Sandbox.Backend {
	case "docker":
		return NewDocker(logger)
	case "local":
		if !cfg.Sandbox.EnableLocalBackend {
			return nil, fmt.Errorf("local backend is not enabled")
		}
		return NewLocal(logger), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Sandbox.Backend)
	}
}
