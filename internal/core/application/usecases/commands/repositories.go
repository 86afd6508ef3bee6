// Package commands contains business operations that modify system state.
// Implements the Command pattern for write operations in the CQRS
// architecture. All commands follow a consistent pattern: validation,
// transaction management, persistence, then post-commit side effects
// (status log append, event publishing, metrics).
package commands

import (
	"context"

	"dispatch/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command
// handlers. Handlers depend on the narrowest interface that covers the
// aggregates they touch.
type (
	// TxManager handles database transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// OrderRepoFactory provides access to the order repository within a
	// transaction.
	OrderRepoFactory interface {
		OrderRepository() ports.OrderRepository
	}

	// RiderRepoFactory provides access to the rider repository within a
	// transaction.
	RiderRepoFactory interface {
		RiderRepository() ports.RiderRepository
	}

	// PaymentRepoFactory provides access to the payment repository within
	// a transaction.
	PaymentRepoFactory interface {
		PaymentRepository() ports.PaymentRepository
	}

	// LocationRepoFactory provides access to the location history
	// repository within a transaction.
	LocationRepoFactory interface {
		LocationRepository() ports.LocationRepository
	}

	// StatusLogRepoFactory provides access to the status log repository
	// within a transaction.
	StatusLogRepoFactory interface {
		StatusLogRepository() ports.StatusLogRepository
	}

	// OrderUoW manages transactions for order-only operations.
	OrderUoW interface {
		TxManager
		OrderRepoFactory
	}

	// OrderUoWFactory creates new order unit of work instances.
	OrderUoWFactory interface {
		Create() OrderUoW
	}

	// DispatchUoW manages transactions that bind orders and riders
	// together: assignment, confirmation, the expiry sweep.
	DispatchUoW interface {
		TxManager
		OrderRepoFactory
		RiderRepoFactory
	}

	// DispatchUoWFactory creates new dispatch unit of work instances.
	DispatchUoWFactory interface {
		Create() DispatchUoW
	}

	// RiderUoW manages transactions for rider-only operations: location
	// reports and availability toggles.
	RiderUoW interface {
		TxManager
		RiderRepoFactory
		LocationRepoFactory
	}

	// RiderUoWFactory creates new rider unit of work instances.
	RiderUoWFactory interface {
		Create() RiderUoW
	}

	// PaymentUoW manages transactions spanning payments and the orders
	// they settle.
	PaymentUoW interface {
		TxManager
		PaymentRepoFactory
		OrderRepoFactory
	}

	// PaymentUoWFactory creates new payment unit of work instances.
	PaymentUoWFactory interface {
		Create() PaymentUoW
	}

	// CleanupUoW manages transactions for retention cleanup of the
	// append-only histories and finished payments.
	CleanupUoW interface {
		TxManager
		StatusLogRepoFactory
		LocationRepoFactory
		PaymentRepoFactory
	}

	// CleanupUoWFactory creates new cleanup unit of work instances.
	CleanupUoWFactory interface {
		Create() CleanupUoW
	}
)
