// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files with environment-variable overrides. It
// covers server settings, logging, the sandbox lifecycle parameters
// (capability and enablement flags, session and execution timeouts, trace
// step limits), and the durable state store location.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Sandbox backend: %s\n", cfg.Sandbox.Backend)
package config
