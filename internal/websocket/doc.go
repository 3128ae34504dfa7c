// Package websocket pushes report run status events to browser clients.
//
// Clients connect to /ws?workspace=<id> and receive a "connect" message
// followed by one "report_run:status" message for every run transition in
// that workspace. The Hub implements runs.RunObserver; RunChanged never
// blocks the run orchestrator and drops events when its queue is full.
// Artifact bytes are never sent over the socket.
package websocket
