package order

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// SystemActor is recorded when a transition was not triggered by a user,
// such as the expiry sweep or a payment webhook.
const SystemActor = "system"

// StatusLog is an immutable audit record of a single status transition.
// Records are append-only; the history endpoint reads them back newest first.
type StatusLog struct {
	ID         kernel.UUID
	OrderID    kernel.UUID
	FromStatus Status
	ToStatus   Status
	Actor      string
	Note       string
	CreatedAt  time.Time
}

// NewStatusLog creates an audit record for a transition that already
// happened. An empty actor is recorded as SystemActor.
func NewStatusLog(orderID kernel.UUID, from Status, to Status, actor string, note string, at time.Time) (StatusLog, error) {
	if err := orderID.Validate(); err != nil {
		return StatusLog{}, err
	}
	if from != Unknown {
		if err := from.Validate(); err != nil {
			return StatusLog{}, err
		}
	}
	if err := to.Validate(); err != nil {
		return StatusLog{}, errs.NewValueIsInvalidErrorWithCause("to status", err)
	}

	if actor == "" {
		actor = SystemActor
	}

	return StatusLog{
		ID:         kernel.NewUUID(),
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Note:       note,
		CreatedAt:  at,
	}, nil
}
