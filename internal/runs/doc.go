// Package runs executes reports and manages the lifecycle of their runs.
//
// A run moves Pending -> Running -> Succeeded|Failed and never changes after
// reaching a terminal state:
//
//	Orchestrator.RunReport
//	  ReportStore.FindReport     (missing report: no run, nothing written)
//	  RunStore.CreateRun         Pending
//	  RunStore.MarkRunning       Running
//	  Executor.Execute           inside a recover boundary
//	  RunStore.CompleteRun       Succeeded with artifact, or Failed with nothing
//	  ReportStore.UpdateReport   LastRun, on success only
//
// Engine is the Executor used in production. It reads the whole source in
// one call, projects the definition fields through exporter.FormatValue and
// encodes a single artifact. Pager reads pages back out of that artifact.
//
// MemoryStore implements both stores in memory; storage/postgres provides
// the persistent implementation.
package runs
