package payment

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status is the settlement state of a single charge attempt.
//
// State transitions:
//
//	Pending ──> Completed ──> RefundPending ──> Refunded
//	   │  │          └───────────────────────────┘
//	   │  └────> Failed
//	   └───────> Cancelled
//
// Failed, Refunded and Cancelled are terminal. Completed may move straight
// to Refunded when the gateway reports the refund without a local request.
type Status int

const (
	// StatusUnknown represents an invalid or undefined payment status.
	StatusUnknown Status = iota

	// StatusPending means the charge was initialized but the gateway has
	// not reported an outcome yet.
	StatusPending

	// StatusCompleted means the gateway confirmed the charge.
	StatusCompleted

	// StatusFailed means the gateway reported the charge as failed.
	StatusFailed

	// StatusRefundPending means a refund was accepted by the gateway and
	// awaits its success webhook.
	StatusRefundPending

	// StatusRefunded means the gateway confirmed the refund.
	StatusRefunded

	// StatusCancelled means the charge was abandoned before completion.
	StatusCancelled
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		StatusUnknown:       "Unknown",
		StatusPending:       "Pending",
		StatusCompleted:     "Completed",
		StatusFailed:        "Failed",
		StatusRefundPending: "RefundPending",
		StatusRefunded:      "Refunded",
		StatusCancelled:     "Cancelled",
	}
}

func getAllowedSuccessors() map[Status][]Status {
	return map[Status][]Status{
		StatusPending:       {StatusCompleted, StatusFailed, StatusCancelled},
		StatusCompleted:     {StatusRefundPending, StatusRefunded},
		StatusRefundPending: {StatusRefunded},
		StatusFailed:        {},
		StatusRefunded:      {},
		StatusCancelled:     {},
	}
}

// Validate checks if the Status value is one of the defined states.
func (s Status) Validate() error {
	if _, ok := getAllowedSuccessors()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("payment status is invalid",
			fmt.Errorf("%d is not a valid payment status", s))
	}
	return nil
}

// String returns the human-readable name of the status.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// CanTransitionTo reports whether to is an allowed successor of s.
func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range getAllowedSuccessors()[s] {
		if allowed == to {
			return true
		}
	}
	return false
}
