// Package shared holds helpers used across the deskreport packages that do
// not belong to any one domain layer.
//
// The testutil subpackage provides a buffered slog handler so tests can
// assert on structured log output:
//
//	logger, logs := testutil.NewTestLogger(t)
//	svc := NewService(logger)
//	...
//	assert.True(t, logs.ContainsAttr("report_id", "r-1"))
package shared
