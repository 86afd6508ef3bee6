package order

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// StatusUpdatedEvent is recorded on every committed status transition.
// The Note carries the free-text reason that also lands in the status log.
type StatusUpdatedEvent struct {
	OrderID    kernel.UUID
	FromStatus Status
	ToStatus   Status
	Note       string
	OccurredAt time.Time
}

func (e StatusUpdatedEvent) EventName() string {
	return "order.status.updated"
}

func (e StatusUpdatedEvent) Topics() []string {
	return []string{kernel.OrderTopic(e.OrderID)}
}

// RiderAssignedEvent is recorded when a rider is bound to a ready order.
type RiderAssignedEvent struct {
	OrderID    kernel.UUID
	RiderID    kernel.UUID
	OccurredAt time.Time
}

func (e RiderAssignedEvent) EventName() string {
	return "order.rider.assigned"
}

func (e RiderAssignedEvent) Topics() []string {
	return []string{kernel.OrderTopic(e.OrderID), kernel.RiderTopic(e.RiderID)}
}

// AssignmentFailedEvent is recorded when automatic assignment has exhausted
// its attempts and the order now requires manual intervention.
type AssignmentFailedEvent struct {
	OrderID    kernel.UUID
	Attempts   int
	OccurredAt time.Time
}

func (e AssignmentFailedEvent) EventName() string {
	return "order.assignment.failed"
}

func (e AssignmentFailedEvent) Topics() []string {
	return []string{kernel.OrderTopic(e.OrderID)}
}

// DeliveredEvent is recorded when both parties confirmed the handover and
// the order reached its terminal Delivered state.
type DeliveredEvent struct {
	OrderID     kernel.UUID
	RiderID     *kernel.UUID
	DeliveredAt time.Time
}

func (e DeliveredEvent) EventName() string {
	return "order.delivered"
}

func (e DeliveredEvent) Topics() []string {
	topics := []string{kernel.OrderTopic(e.OrderID)}
	if e.RiderID != nil {
		topics = append(topics, kernel.RiderTopic(*e.RiderID))
	}
	return topics
}

// ChatClearRequestedEvent instructs the messaging collaborator to clear the
// order's conversation after a completed delivery.
type ChatClearRequestedEvent struct {
	OrderID    kernel.UUID
	OccurredAt time.Time
}

func (e ChatClearRequestedEvent) EventName() string {
	return "order.chat.clear"
}

func (e ChatClearRequestedEvent) Topics() []string {
	return []string{kernel.OrderTopic(e.OrderID)}
}

// RefundRequestedEvent is recorded when a paid order is cancelled and the
// charge must be returned through the payment gateway.
type RefundRequestedEvent struct {
	OrderID    kernel.UUID
	Amount     float64
	OccurredAt time.Time
}

func (e RefundRequestedEvent) EventName() string {
	return "order.refund.requested"
}

func (e RefundRequestedEvent) Topics() []string {
	return []string{kernel.OrderTopic(e.OrderID)}
}

// RatedEvent is recorded when the customer rates a delivered order.
type RatedEvent struct {
	OrderID    kernel.UUID
	Rating     int
	OccurredAt time.Time
}

func (e RatedEvent) EventName() string {
	return "order.rated"
}

func (e RatedEvent) Topics() []string {
	return []string{kernel.OrderTopic(e.OrderID)}
}
