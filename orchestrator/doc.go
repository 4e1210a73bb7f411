// Package orchestrator owns the turn scheduler and session state machine. It
// drives a fixed roster of participants in strict round-robin order, appends
// each produced message to the shared transcript, evaluates the termination
// condition after every turn, and enforces the turn budget, failure policy
// and scoped release of participant resources.
package orchestrator
