package rider

import (
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var (
	// ErrRiderIsNotConstructed is returned when a Rider instance was not
	// created through NewRider or RestoreRider.
	ErrRiderIsNotConstructed = errors.New("Rider must be created via NewRider or RestoreRider")

	// ErrNameIsRequired is returned when attempting to create a rider
	// without a name.
	ErrNameIsRequired = errs.NewValueIsRequiredError("name")
)

// Rider is an aggregate root tracking a courier's availability, last known
// position and rolling rating.
//
// Business rules:
//   - A rider carries at most one active order at a time
//   - Going offline is not allowed while carrying an order
//   - Going offline does not clear the last known position
//   - Only riders with a fresh position report are eligible for dispatch
//
// Orders hold the owning reference; the rider's activeOrderID is the
// reverse index that makes the no-double-booking check a single-row
// compare-and-set.
type Rider struct {
	id     kernel.UUID
	userID kernel.UUID
	name   string

	vehicleType VehicleType

	online            bool
	position          *kernel.GeoPoint
	positionUpdatedAt *time.Time
	lastKnownAddress  string

	ratingAverage float64
	ratingCount   int

	activeOrderID *kernel.UUID

	version int

	events []kernel.DomainEvent

	guard guard.ConstructorGuard
}

// NewRider creates a new rider. Riders start offline with no reported
// position and no rating.
func NewRider(id kernel.UUID, userID kernel.UUID, name string, vehicleType VehicleType) (*Rider, error) {
	r := &Rider{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		r.setID(id),
		r.setUserID(userID),
		r.setName(name),
		r.setVehicleType(vehicleType),
	); err != nil {
		return nil, err
	}

	return r, nil
}

// RestoreRider reconstructs a rider from persistence.
func RestoreRider(
	id kernel.UUID,
	userID kernel.UUID,
	name string,
	vehicleType VehicleType,
	online bool,
	position *kernel.GeoPoint,
	positionUpdatedAt *time.Time,
	lastKnownAddress string,
	ratingAverage float64,
	ratingCount int,
	activeOrderID *kernel.UUID,
	version int,
) (*Rider, error) {
	if position != nil {
		if err := position.Validate(); err != nil {
			return nil, err
		}
	}
	if ratingCount < 0 || ratingAverage < 0 {
		return nil, errs.NewValueIsInvalidErrorWithCause("rating",
			fmt.Errorf("average %g with count %d", ratingAverage, ratingCount))
	}
	if version < 0 {
		return nil, errs.NewVersionIsInvalidErrorWithCause("rider version",
			fmt.Errorf("%d is negative", version))
	}
	if activeOrderID != nil {
		if err := activeOrderID.Validate(); err != nil {
			return nil, err
		}
	}

	r := &Rider{
		online:            online,
		position:          position,
		positionUpdatedAt: positionUpdatedAt,
		lastKnownAddress:  lastKnownAddress,
		ratingAverage:     ratingAverage,
		ratingCount:       ratingCount,
		activeOrderID:     activeOrderID,
		version:           version,
		guard:             guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		r.setID(id),
		r.setUserID(userID),
		r.setName(name),
		r.setVehicleType(vehicleType),
	); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate ensures the Rider instance was properly constructed.
func (r *Rider) Validate() error {
	if r == nil {
		return ErrRiderIsNotConstructed
	}
	return r.guard.Validate(ErrRiderIsNotConstructed)
}

// IsEqual compares two riders by their unique identifiers.
func (r *Rider) IsEqual(other *Rider) bool {
	return other != nil && r.id.IsEqual(other.id)
}

func (r *Rider) ID() kernel.UUID                { return r.id }
func (r *Rider) UserID() kernel.UUID            { return r.userID }
func (r *Rider) Name() string                   { return r.name }
func (r *Rider) VehicleType() VehicleType       { return r.vehicleType }
func (r *Rider) Online() bool                   { return r.online }
func (r *Rider) Position() *kernel.GeoPoint     { return r.position }
func (r *Rider) PositionUpdatedAt() *time.Time  { return r.positionUpdatedAt }
func (r *Rider) LastKnownAddress() string       { return r.lastKnownAddress }
func (r *Rider) RatingAverage() float64         { return r.ratingAverage }
func (r *Rider) RatingCount() int               { return r.ratingCount }
func (r *Rider) ActiveOrderID() *kernel.UUID    { return r.activeOrderID }
func (r *Rider) Version() int                   { return r.version }

// Events returns the domain events recorded since construction or the last
// ClearEvents call.
func (r *Rider) Events() []kernel.DomainEvent {
	return r.events
}

// ClearEvents drops accumulated events after they have been dispatched.
func (r *Rider) ClearEvents() {
	r.events = nil
}

// SetOnline toggles availability. Setting the current value again is a
// no-op. Going offline while carrying an order is not allowed; the order
// must be completed or reassigned first. The last known position survives
// going offline.
func (r *Rider) SetOnline(online bool, now time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}

	if r.online == online {
		return nil
	}
	if !online && r.activeOrderID != nil {
		return errs.NewInvalidOperationError("set_online",
			"rider has an active order and cannot go offline")
	}

	r.online = online
	r.recordEvent(AvailabilityChangedEvent{
		RiderID:    r.id,
		Online:     online,
		OccurredAt: now,
	})

	return nil
}

// UpdateLocation records a new position report. The address is optional;
// an empty address keeps the previous one.
func (r *Rider) UpdateLocation(point kernel.GeoPoint, address string, now time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := point.Validate(); err != nil {
		return err
	}

	r.position = &point
	t := now
	r.positionUpdatedAt = &t
	if address != "" {
		r.lastKnownAddress = address
	}

	r.recordEvent(LocationUpdatedEvent{
		RiderID:    r.id,
		OrderID:    r.activeOrderID,
		Point:      point,
		Address:    r.lastKnownAddress,
		OccurredAt: now,
	})

	return nil
}

// BindOrder marks the rider as carrying the given order. The rider must be
// online and not already carrying one; violating either returns
// *errs.InvalidOperationError so a losing concurrent assignment can pick
// another rider.
func (r *Rider) BindOrder(orderID kernel.UUID) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := orderID.Validate(); err != nil {
		return err
	}

	if !r.online {
		return errs.NewInvalidOperationError("bind_order", "rider is offline")
	}
	if r.activeOrderID != nil {
		return errs.NewInvalidOperationError("bind_order",
			"rider is already carrying an order")
	}

	id := orderID
	r.activeOrderID = &id
	return nil
}

// ReleaseOrder clears the active order after delivery, cancellation or an
// expired assignment. Releasing an idle rider is a no-op.
func (r *Rider) ReleaseOrder() error {
	if err := r.Validate(); err != nil {
		return err
	}

	r.activeOrderID = nil
	return nil
}

// AddRating folds a new 1..5 score into the rolling average.
func (r *Rider) AddRating(score int) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if score < 1 || score > 5 {
		return errs.NewValueIsOutOfRangeError("rating", score, 1, 5)
	}

	total := r.ratingAverage*float64(r.ratingCount) + float64(score)
	r.ratingCount++
	r.ratingAverage = total / float64(r.ratingCount)
	return nil
}

// HasFreshPosition reports whether the last position report is younger than
// staleness. Riders without any report are never fresh.
func (r *Rider) HasFreshPosition(staleness time.Duration, now time.Time) bool {
	if r.position == nil || r.positionUpdatedAt == nil {
		return false
	}
	return now.Sub(*r.positionUpdatedAt) <= staleness
}

// IsDispatchable reports whether the rider can be offered a new order:
// online, idle, and with a fresh position report. A rider whose location
// went stale is excluded even while still flagged online, which keeps
// silently disconnected riders out of dispatch.
func (r *Rider) IsDispatchable(staleness time.Duration, now time.Time) bool {
	return r.online && r.activeOrderID == nil && r.HasFreshPosition(staleness, now)
}

func (r *Rider) recordEvent(event kernel.DomainEvent) {
	r.events = append(r.events, event)
}

func (r *Rider) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	r.id = id
	return nil
}

func (r *Rider) setUserID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	r.userID = id
	return nil
}

func (r *Rider) setName(name string) error {
	if name == "" {
		return ErrNameIsRequired
	}
	r.name = name
	return nil
}

func (r *Rider) setVehicleType(vehicleType VehicleType) error {
	if err := vehicleType.Validate(); err != nil {
		return err
	}
	r.vehicleType = vehicleType
	return nil
}
