package models

import "fmt"

// Status is the lifecycle state of a service request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOngoing   Status = "ONGOING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// transitions is the adjacency table of the request state machine.
// Order matters: the success path comes first, cancellation second.
var transitions = map[Status][]Status{
	StatusPending:   {StatusOngoing, StatusCancelled},
	StatusOngoing:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// ValidTransitionsFrom returns the statuses reachable from s. Terminal
// statuses yield an empty slice.
func ValidTransitionsFrom(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	return s.Valid() && len(transitions[s]) == 0
}

// ValidateTransition checks the edge current -> next against the adjacency
// table. A same-status transition is always a permitted no-op.
func ValidateTransition(current, next Status) error {
	if !current.Valid() {
		return fmt.Errorf("unknown status %q", current)
	}
	if !next.Valid() {
		return fmt.Errorf("unknown status %q", next)
	}
	if current == next {
		return nil
	}
	for _, allowed := range transitions[current] {
		if next == allowed {
			return nil
		}
	}
	if IsTerminal(current) {
		return fmt.Errorf("invalid transition %s -> %s: %s is a terminal state", current, next, current)
	}
	return fmt.Errorf("invalid transition %s -> %s: allowed transitions from %s are %v", current, next, current, transitions[current])
}

// ValidateTransitionWithRules applies the business guards on top of the base
// edge check: a request may only enter ONGOING with an assignee in place.
func ValidateTransitionWithRules(current, next Status, assignedToID *int64) error {
	if err := ValidateTransition(current, next); err != nil {
		return err
	}
	if next == StatusOngoing && assignedToID == nil {
		return fmt.Errorf("cannot transition to %s without an assignee", StatusOngoing)
	}
	return nil
}
