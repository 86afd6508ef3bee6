package order

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// PaymentStatus tracks the settlement state of an order, separate from its
// delivery lifecycle. It mirrors the outcome reported by the payment
// gateway; the Payment aggregate holds the gateway-level detail.
type PaymentStatus int

const (
	// PaymentUnknown represents an invalid or undefined payment status.
	PaymentUnknown PaymentStatus = iota

	// PaymentPending means no successful charge has been reported yet.
	PaymentPending

	// PaymentPaid means a charge completed; at least one Completed payment
	// record exists for the order.
	PaymentPaid

	// PaymentFailed means the last charge attempt failed. The order itself
	// is not cancelled automatically.
	PaymentFailed

	// PaymentRefunded means a completed charge was returned to the customer.
	PaymentRefunded
)

func getPaymentStatusStrings() map[PaymentStatus]string {
	return map[PaymentStatus]string{
		PaymentUnknown:  "Unknown",
		PaymentPending:  "Pending",
		PaymentPaid:     "Paid",
		PaymentFailed:   "Failed",
		PaymentRefunded: "Refunded",
	}
}

// Validate checks if the PaymentStatus value is one of the defined states.
func (s PaymentStatus) Validate() error {
	if s < PaymentPending || s > PaymentRefunded {
		return errs.NewValueIsInvalidErrorWithCause("payment status is invalid",
			fmt.Errorf("%d is not a valid payment status", s))
	}
	return nil
}

// String returns the human-readable name of the payment status.
func (s PaymentStatus) String() string {
	if str, ok := getPaymentStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}
