package commands

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/guard"
	"dispatch/internal/pkg/livecache"
	"dispatch/internal/pkg/metrics"
)

var ErrUpdateRiderLocationCommandIsNotConstructed = errors.New(
	"UpdateRiderLocationCommand must be created via NewUpdateRiderLocationCommand constructor",
)

// UpdateRiderLocationCommand represents a rider's position report.
// Only the rider themself or an administrative actor may report for a
// rider; that check belongs to the API layer, not here.
type UpdateRiderLocationCommand struct { //nolint:recvcheck //using for validation
	riderID kernel.UUID
	point   kernel.GeoPoint
	address string

	guard guard.ConstructorGuard
}

// NewUpdateRiderLocationCommand creates a location report command.
// Coordinates are validated here so a malformed report never reaches the
// aggregate.
func NewUpdateRiderLocationCommand(riderID kernel.UUID, latitude float64, longitude float64, address string) (UpdateRiderLocationCommand, error) {
	if err := riderID.Validate(); err != nil {
		return UpdateRiderLocationCommand{}, err
	}
	point, err := kernel.NewGeoPoint(latitude, longitude)
	if err != nil {
		return UpdateRiderLocationCommand{}, err
	}

	return UpdateRiderLocationCommand{
		riderID: riderID,
		point:   point,
		address: address,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c UpdateRiderLocationCommand) Validate() error {
	return c.guard.Validate(ErrUpdateRiderLocationCommandIsNotConstructed)
}

func (c UpdateRiderLocationCommand) RiderID() kernel.UUID   { return c.riderID }
func (c UpdateRiderLocationCommand) Point() kernel.GeoPoint { return c.point }
func (c UpdateRiderLocationCommand) Address() string        { return c.address }

// UpdateRiderLocationCommandHandler appends to the position history,
// refreshes the rider's live state, and overwrites the live cache entry.
type UpdateRiderLocationCommandHandler struct {
	uowFactory RiderUoWFactory
	cache      *livecache.Store[rider.LocationRecord]
	effects    SideEffects
}

// NewUpdateRiderLocationCommandHandler creates a handler for location
// reports.
func NewUpdateRiderLocationCommandHandler(
	uowFactory RiderUoWFactory,
	cache *livecache.Store[rider.LocationRecord],
	effects SideEffects,
) UpdateRiderLocationCommandHandler {
	return UpdateRiderLocationCommandHandler{
		uowFactory: uowFactory,
		cache:      cache,
		effects:    effects,
	}
}

// Handle persists the report and returns the created history record.
// The cache is written only after the commit so a rolled-back report never
// becomes the live value.
func (h UpdateRiderLocationCommandHandler) Handle(ctx context.Context, cmd UpdateRiderLocationCommand) (rider.LocationRecord, error) {
	if err := cmd.Validate(); err != nil {
		return rider.LocationRecord{}, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return rider.LocationRecord{}, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	aggregate, err := uow.RiderRepository().Get(ctx, cmd.RiderID())
	if err != nil {
		return rider.LocationRecord{}, err
	}

	now := time.Now()
	if err = aggregate.UpdateLocation(cmd.Point(), cmd.Address(), now); err != nil {
		return rider.LocationRecord{}, err
	}

	record, err := rider.NewLocationRecord(aggregate.ID(), cmd.Point(), aggregate.LastKnownAddress(), now)
	if err != nil {
		return rider.LocationRecord{}, err
	}

	if err = uow.LocationRepository().Append(ctx, record); err != nil {
		return rider.LocationRecord{}, err
	}
	if err = uow.RiderRepository().Update(ctx, aggregate); err != nil {
		return rider.LocationRecord{}, err
	}
	if err = uow.Commit(ctx); err != nil {
		return rider.LocationRecord{}, err
	}

	h.cache.Set(aggregate.ID().String(), record, now)
	metrics.LocationUpdates.Inc()
	h.effects.Apply(ctx, aggregate.ID().String(), aggregate)

	return record, nil
}
