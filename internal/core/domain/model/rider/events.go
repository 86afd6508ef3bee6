package rider

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// LocationUpdatedEvent is recorded on every accepted position report.
// When the rider is carrying an order the event also targets that order's
// topic so tracking clients see the movement.
type LocationUpdatedEvent struct {
	RiderID    kernel.UUID
	OrderID    *kernel.UUID
	Point      kernel.GeoPoint
	Address    string
	OccurredAt time.Time
}

func (e LocationUpdatedEvent) EventName() string {
	return "rider.location.updated"
}

func (e LocationUpdatedEvent) Topics() []string {
	topics := []string{kernel.RiderTopic(e.RiderID)}
	if e.OrderID != nil {
		topics = append(topics, kernel.OrderTopic(*e.OrderID))
	}
	return topics
}

// AvailabilityChangedEvent is recorded when the rider toggles online/offline.
type AvailabilityChangedEvent struct {
	RiderID    kernel.UUID
	Online     bool
	OccurredAt time.Time
}

func (e AvailabilityChangedEvent) EventName() string {
	return "rider.availability.changed"
}

func (e AvailabilityChangedEvent) Topics() []string {
	return []string{kernel.RiderTopic(e.RiderID)}
}
