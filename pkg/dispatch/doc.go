// Package dispatch drives a chat request from validation to a normalized
// backend response. Each call runs the same state machine:
//
//	Received -> Validated -> PersonaResolved -> Normalized ->
//	BackendInvoked -> PersistAttempted -> Completed
//
// Failed is reachable from every state. Session persistence is best effort;
// its failure never changes the result returned to the caller.
package dispatch
