// Package metrics registers the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated counts accepted order placements.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_orders_created_total",
		Help: "Number of orders created.",
	})

	// StatusTransitions counts committed order status transitions by edge.
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_order_status_transitions_total",
		Help: "Number of committed order status transitions.",
	}, []string{"from", "to"})

	// TransitionConflicts counts optimistic-concurrency losses on order or
	// rider updates.
	TransitionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_transition_conflicts_total",
		Help: "Number of updates rejected by optimistic versioning.",
	})

	// RiderAssignments counts successful rider-to-order bindings.
	RiderAssignments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_rider_assignments_total",
		Help: "Number of successful rider assignments.",
	})

	// AssignmentExpiries counts assignments expired by the sweep.
	AssignmentExpiries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_assignment_expiries_total",
		Help: "Number of assignments expired by the timeout sweep.",
	})

	// AssignmentEscalations counts orders flagged for manual assignment.
	AssignmentEscalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_assignment_escalations_total",
		Help: "Number of orders escalated to manual assignment.",
	})

	// LocationUpdates counts accepted rider position reports.
	LocationUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_rider_location_updates_total",
		Help: "Number of accepted rider location updates.",
	})

	// PaymentVerifications counts verification outcomes.
	PaymentVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_payment_verifications_total",
		Help: "Number of payment verifications by outcome.",
	}, []string{"outcome"})

	// WebhookEvents counts inbound gateway webhooks by handling result.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_payment_webhooks_total",
		Help: "Number of payment webhooks by handling result.",
	}, []string{"result"})

	// EventsPublished counts domain events fanned out per transport.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_events_published_total",
		Help: "Number of domain events published per transport.",
	}, []string{"transport"})
)
