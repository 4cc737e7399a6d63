// Package memory contains concrete ProfileStore implementations plus the
// Reviser that folds user feedback into long-lived profiles. The store
// interface resides in the core package: depend on core.ProfileStore in your
// code and select an implementation (in-memory, SQLite, cached) at wiring
// time.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends to be added without introducing dependency cycles.
package memory
