// Package core defines the shared value types exchanged between the flow
// orchestrator, agent executors and routers: step kinds, execution results,
// router decisions and lifecycle events. The package carries no behavior
// beyond constructors and string rendering so every other package can depend
// on it without cycles.
package core
