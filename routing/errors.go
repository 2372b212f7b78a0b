package routing

import "errors"

var (
	// ErrPrecondition indicates a task arrived without context or task
	// identifiers. The lifecycle aborts before any event is emitted.
	ErrPrecondition = errors.New("routing: context id and task id must be provided")
	// ErrNoMatch indicates the classifier found no candidate agent.
	ErrNoMatch = errors.New("routing: no matching agent")
	// ErrDanglingRoute indicates the classifier named an agent that does
	// not resolve in the directory, or produced output that could not be
	// interpreted as a routing decision.
	ErrDanglingRoute = errors.New("routing: dangling route")
	// ErrNotImplemented indicates mid-flight cancellation, which this
	// lifecycle does not support.
	ErrNotImplemented = errors.New("routing: cancel not implemented")
	// ErrQueueClosed indicates an event was enqueued after Close.
	ErrQueueClosed = errors.New("routing: event queue closed")
)
