package orchestrator

import "github.com/jdelfino/coding-tool-sub001/config"

// Mode is the environment-driven gate for remote sandboxing. It is a pure
// inspection of configuration: no side effects, no errors.
//
// Callers use Capable to decide between falling back silently (platform
// cannot sandbox at all) and surfacing an explicit unavailable result
// (platform could, but the feature is off).
type Mode struct {
	capable bool
	enabled bool
}

// NewMode derives the sandboxing mode from configuration.
func NewMode(cfg *config.Config) Mode {
	return Mode{capable: cfg.Sandbox.Capable, enabled: cfg.Sandbox.Enabled}
}

// Capable reports whether this environment can ever use remote sandboxes.
func (m Mode) Capable() bool { return m.capable }

// Enabled reports whether remote sandboxing is active right now.
func (m Mode) Enabled() bool { return m.capable && m.enabled }
