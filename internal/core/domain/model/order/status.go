package order

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
// It implements a state machine with defined transitions to ensure
// orders follow the correct business workflow.
//
// State transitions:
//
//	Pending ──> Accepted ──> Preparing ──> Ready ──> OnRoute ──> AwaitingConfirmation ──> Delivered
//	   │            │                        │
//	   └────────────┴────────> Cancelled <───┘
//
// Delivered and Cancelled are terminal. Self-transitions are never valid,
// which is what rejects duplicate webhook and retry deliveries.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Pending is the initial status when an order is placed and payment
	// has not been confirmed yet.
	Pending

	// Accepted indicates payment was confirmed and the restaurant has
	// accepted the order.
	Accepted

	// Preparing indicates the restaurant is preparing the order.
	Preparing

	// Ready indicates the order is packed and waiting for a rider.
	Ready

	// OnRoute indicates a rider is assigned and carrying the order.
	OnRoute

	// AwaitingConfirmation indicates the rider declared arrival and both
	// parties must confirm the handover.
	AwaitingConfirmation

	// Delivered is the terminal success state.
	Delivered

	// Cancelled is the terminal failure state, reachable only before the
	// order leaves the restaurant.
	Cancelled
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:              "Unknown",
		Pending:              "Pending",
		Accepted:             "Accepted",
		Preparing:            "Preparing",
		Ready:                "Ready",
		OnRoute:              "OnRoute",
		AwaitingConfirmation: "AwaitingConfirmation",
		Delivered:            "Delivered",
		Cancelled:            "Cancelled",
	}
}

// getAllowedSuccessors returns the fixed transition graph. Terminal states
// have an empty successor set.
func getAllowedSuccessors() map[Status][]Status {
	return map[Status][]Status{
		Pending:              {Accepted, Cancelled},
		Accepted:             {Preparing, Cancelled},
		Preparing:            {Ready},
		Ready:                {OnRoute, Cancelled},
		OnRoute:              {AwaitingConfirmation},
		AwaitingConfirmation: {Delivered},
		Delivered:            {},
		Cancelled:            {},
	}
}

// Validate checks if the Status value is one of the defined states.
// Unknown (0) and out-of-range values are invalid.
func (s Status) Validate() error {
	if _, ok := getAllowedSuccessors()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the human-readable name of the status.
// Safe to call on any Status value, including invalid ones.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// ParseStatus maps a status name back to its Status value.
// Matching is exact; unknown names are rejected.
func ParseStatus(value string) (Status, error) {
	for status, name := range getStatusStrings() {
		if name == value && status != Unknown {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid",
		fmt.Errorf("%q is not a valid status", value))
}

// MarshalText serializes the status by name so event payloads carry
// "OnRoute" rather than an opaque ordinal.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via ParseStatus.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled
}

// CanTransitionTo reports whether to is in the allowed-successor set of s.
// A status is never a successor of itself.
func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range getAllowedSuccessors()[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo validates the edge (s -> to) against the transition graph
// and returns the new status on success.
//
// Returns:
//   - (to, nil) on a valid transition
//   - (0, *errs.InvalidTransitionError) otherwise, including s == to
func (s Status) TransitionTo(to Status) (Status, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if err := to.Validate(); err != nil {
		return 0, err
	}
	if !s.CanTransitionTo(to) {
		return 0, errs.NewInvalidTransitionError(s.String(), to.String())
	}

	return to, nil
}

// IsCancellable reports whether an order in this status may still be
// cancelled. Once a rider is on route the order can no longer be cancelled.
func (s Status) IsCancellable() bool {
	return s == Pending || s == Accepted || s == Ready
}

// EstimatedMinutesToDelivery returns the presentational countdown shown to
// customers for an order in this status. Terminal and invalid states
// estimate zero.
func (s Status) EstimatedMinutesToDelivery() int {
	switch s {
	case Pending:
		return 45
	case Accepted:
		return 40
	case Preparing:
		return 30
	case Ready:
		return 20
	case OnRoute:
		return 10
	case AwaitingConfirmation:
		return 5
	default:
		return 0
	}
}
