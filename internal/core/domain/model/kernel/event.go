package kernel

// DomainEvent is a fact recorded by an aggregate during a state change.
// Aggregates accumulate events in memory; handlers collect them after the
// transaction commits and hand them to the event dispatcher, so side effects
// are visible in signatures instead of flowing through a global emitter.
type DomainEvent interface {
	// EventName returns the wire name of the event, e.g. "order.status.updated".
	EventName() string

	// Topics returns the broadcast topics the event belongs to,
	// e.g. "order:<id>" and "rider:<id>".
	Topics() []string
}

// OrderTopic returns the broadcast topic for a single order.
func OrderTopic(orderID UUID) string {
	return "order:" + orderID.String()
}

// RiderTopic returns the broadcast topic for a single rider.
func RiderTopic(riderID UUID) string {
	return "rider:" + riderID.String()
}
