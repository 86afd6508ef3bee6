// Package order contains the order aggregate and its lifecycle state machine.
//
// An order moves along a fixed transition graph from Pending to Delivered,
// with Cancelled reachable from the early states only. All mutation goes
// through the aggregate's methods, which validate the transition, stamp the
// relevant timestamps, and record domain events for the dispatcher to
// publish after the change is committed.
//
// The aggregate also owns the two-party delivery confirmation protocol:
// the terminal Delivered state is reached only after both the customer and
// the rider have confirmed, in either order.
package order
