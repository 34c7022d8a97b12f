// Package events is an in-process publish/subscribe registry.
//
// Listeners come in two kinds. Broadcast listeners are registered by event
// name and see every emission of that name, in registration order, until they
// are removed. Correlated listeners are registered by request id and fire for
// the response carrying that id; one-shot registrations are consumed by the
// first match.
//
// Completion is a single-assignment result cell used to hand an outcome
// produced by a listener back to a waiting caller. The first of Resolve,
// Cancel or Fail wins; later attempts are ignored.
package events
