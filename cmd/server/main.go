// Package main is the entry point for the sandbox orchestrator MCP server.
//
// The server provisions, reconnects to, and tears down per-session
// ephemeral sandboxes used to run untrusted student code and to produce
// step-by-step execution traces for a debugger UI. Session-sandbox
// bindings are persisted in SQLite so stateless requests can always find
// their sandbox again; expired sandboxes are recreated transparently.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/jdelfino/coding-tool-sub001/config"
	"github.com/jdelfino/coding-tool-sub001/logger"
	"github.com/jdelfino/coding-tool-sub001/mcpserver"
	"github.com/jdelfino/coding-tool-sub001/orchestrator"
	"github.com/jdelfino/coding-tool-sub001/provider"
	"github.com/jdelfino/coding-tool-sub001/store"
)

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Durable binding store, closed on shutdown
			newStore,

			// Sandbox provider based on config
			provider.New,

			// Orchestrator and its mode gate
			orchestrator.NewMode,
			orchestrator.New,

			// MCP Server
			mcpserver.New,
		),

		// Start the appropriate transport based on config
		fx.Invoke(
			func(cfg *config.Config, server *mcpserver.MCPServer) {
				switch cfg.Server.Transport {
				case "stdio":
					go func() {
						if err := server.ServeStdio(); err != nil {
							panic(err)
						}
					}()
				case "http":
					go func() {
						if err := server.ServeHTTP(); err != nil {
							panic(err)
						}
					}()
				default:
					panic("unsupported transport: " + cfg.Server.Transport)
				}
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}

func newStore(lc fx.Lifecycle, cfg *config.Config) (store.BindingStore, error) {
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}
