// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package main

import (
	"context"
	"io"

	"github.com/roomoo/roo/internal/observability"
	"github.com/roomoo/roo/internal/store"
)

// RunDeps contains injectable dependencies for the run command.
// All fields with nil values will use their default implementations.
type RunDeps struct {
	// StoreFactory opens the snapshot store.
	// Default: store.Open
	StoreFactory func(ctx context.Context, opts store.Options) (store.Store, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer

	// Input is read by the console session.
	// Default: the command's input (stdin)
	Input io.Reader

	// Output receives the console session's output.
	// Default: the command's output (stdout)
	Output io.Writer
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
