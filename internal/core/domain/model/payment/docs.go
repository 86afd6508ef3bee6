// Package payment contains the Payment aggregate: the gateway-facing charge
// record whose status is the single source of truth for reconciliation
// idempotency.
package payment
