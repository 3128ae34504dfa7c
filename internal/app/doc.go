// Package app wires the deskreport server together and manages its
// lifecycle.
//
// # Initialization Flow
//
// New performs, in order:
//
//  1. Logger setup from the logging config (unless WithLogger is given)
//  2. OpenTelemetry providers and business metrics
//  3. Fixture loading and the source registry
//  4. The report store (memory or postgres) and the websocket hub
//  5. The run orchestrator and the report and health services
//  6. The chi router and the HTTP server
//
// # Usage
//
//	a, err := app.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
//
// Run blocks until ctx is cancelled, then drains in-flight requests within
// the configured shutdown timeout, stops the websocket hub and releases the
// store pool and telemetry providers. The package never calls os.Exit.
package app
