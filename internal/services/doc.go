// Package services implements the business layer between the HTTP handlers
// and the report run core.
//
// ReportService turns the tolerant results of the run core (nil reports,
// nil runs) into sentinel errors, applies the caller-side page clamping and
// converts stored artifacts into the requested download format. HealthService
// reports liveness, readiness and version information.
//
// Handlers translate the sentinels in errors.go into API errors with
// errors.Is; services never produce HTTP types.
package services
