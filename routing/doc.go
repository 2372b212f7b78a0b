// Package routing drives a single inbound task through its lifecycle and
// decides which agent should handle it.
//
// The Executor runs the state machine Received → Working → {Completed |
// Rejected → Rerouted}. It first lets the local specialized agent attempt
// the task; when that attempt reports rejected, the Engine asks the
// classifier (a black-box LLM behind the Classifier interface) to pick a
// replacement from the live agent directory and the Executor emits a
// hand-off artifact naming it. The caller performs the actual
// re-dispatch; the state machine deliberately stays single-hop so one
// process never chases an unbounded chain of hops.
//
// Per task, listeners observe exactly one working status, then exactly
// one artifact (result or hand-off), then exactly one final status, in
// that order. The Queue type preserves this ordering.
package routing
