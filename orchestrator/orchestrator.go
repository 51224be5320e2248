package orchestrator

import (
	"go.uber.org/zap"

	"github.com/jdelfino/coding-tool-sub001/config"
	"github.com/jdelfino/coding-tool-sub001/provider"
	"github.com/jdelfino/coding-tool-sub001/store"
)

// Orchestrator coordinates the sandbox lifecycle for sessions. It holds no
// per-session state of its own: everything it needs across invocations
// lives in the binding store and with the provider.
type Orchestrator struct {
	logger   *zap.Logger
	cfg      *config.Config
	store    store.BindingStore
	provider provider.Provider
}

// New creates a new Orchestrator
func New(logger *zap.Logger, cfg *config.Config, st store.BindingStore, p provider.Provider) *Orchestrator {
	return &Orchestrator{
		logger:   logger,
		cfg:      cfg,
		store:    st,
		provider: p,
	}
}
