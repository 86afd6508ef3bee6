package queries

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
	"dispatch/internal/pkg/livecache"
)

var ErrGetLiveLocationQueryIsNotConstructed = errors.New(
	"GetLiveLocationQuery must be created via NewGetLiveLocationQuery constructor",
)

// GetLiveLocationQuery retrieves a rider's most recent position from the
// live cache. This is the hot path behind tracking screens, so it never
// touches the database.
type GetLiveLocationQuery struct {
	riderID kernel.UUID

	guard guard.ConstructorGuard
}

// NewGetLiveLocationQuery creates a live position query.
func NewGetLiveLocationQuery(riderID kernel.UUID) (GetLiveLocationQuery, error) {
	if err := riderID.Validate(); err != nil {
		return GetLiveLocationQuery{}, err
	}

	return GetLiveLocationQuery{
		riderID: riderID,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetLiveLocationQuery) Validate() error {
	return q.guard.Validate(ErrGetLiveLocationQueryIsNotConstructed)
}

func (q GetLiveLocationQuery) RiderID() kernel.UUID { return q.riderID }

// GetLiveLocationQueryResponse is the rider's current position. Stale is
// set when the report is older than the freshness window, so clients can
// grey out the marker instead of showing a wrong position as current.
type GetLiveLocationQueryResponse struct {
	RiderID    kernel.UUID
	Latitude   float64
	Longitude  float64
	Address    string
	RecordedAt time.Time
	Stale      bool
}

// GetLiveLocationQueryHandler serves positions from the in-memory cache.
type GetLiveLocationQueryHandler struct {
	cache     *livecache.Store[rider.LocationRecord]
	staleness time.Duration
}

// NewGetLiveLocationQueryHandler creates a handler over the live cache.
func NewGetLiveLocationQueryHandler(
	cache *livecache.Store[rider.LocationRecord],
	staleness time.Duration,
) GetLiveLocationQueryHandler {
	return GetLiveLocationQueryHandler{cache: cache, staleness: staleness}
}

// Handle returns the cached position or *errs.ObjectNotFoundError when the
// rider has not reported since the cache last evicted.
func (h GetLiveLocationQueryHandler) Handle(
	_ context.Context,
	query GetLiveLocationQuery,
) (GetLiveLocationQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetLiveLocationQueryResponse{}, err
	}

	record, _, ok := h.cache.Get(query.RiderID().String())
	if !ok {
		return GetLiveLocationQueryResponse{},
			errs.NewObjectNotFoundError("rider location", query.RiderID())
	}

	return GetLiveLocationQueryResponse{
		RiderID:    record.RiderID,
		Latitude:   record.Point.Latitude(),
		Longitude:  record.Point.Longitude(),
		Address:    record.Address,
		RecordedAt: record.RecordedAt,
		Stale:      time.Since(record.RecordedAt) > h.staleness,
	}, nil
}
