// Package checkpoint contains concrete CheckpointStore implementations.
// The store interface lives in the core package; depend on
// core.CheckpointStore and pick an implementation (in-memory or SQLite) at
// wiring time. The SQLite store is what lets a suspended run be resumed
// after a process restart.
package checkpoint
