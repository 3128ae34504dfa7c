// Package http provides the HTTP handlers of the deskreport API.
//
// Handlers follow one pattern:
//
//   - depend on a service interface declared in this package
//   - return a chi.Router from Routes() so the application can mount them
//   - render JSON with go-chi/render
//   - translate service sentinel errors into API errors with errors.Is and
//     hand them to the shared ErrorHandler, which writes RFC 7807 problems
//
// # Routes
//
// ReportHandler is mounted under /api:
//
//	GET  /reports/sources
//	POST /reports/definitions/build
//	POST /reports/definitions/parse
//	POST /workspaces/{workspaceID}/reports/{reportID}/runs
//	GET  /workspaces/{workspaceID}/reports/{reportID}/runs?take=
//	GET  /workspaces/{workspaceID}/runs/{runID}
//	GET  /workspaces/{workspaceID}/runs/{runID}/page?page=&take=
//	GET  /workspaces/{workspaceID}/runs/{runID}/download?type=csv|xlsx
//
// HealthHandler is mounted under /api/health and MetricsHandler serves
// /metrics.
package http
