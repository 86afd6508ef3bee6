package queries

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/pkg/guard"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrFindNearestRidersQueryIsNotConstructed = errors.New(
	"FindNearestRidersQuery must be created via NewFindNearestRidersQuery constructor",
)

// FindNearestRidersQuery ranks available riders around a point, closest
// first. It applies the same eligibility rules automatic dispatch uses, so
// what a dispatcher sees on screen matches what the sweep would pick.
type FindNearestRidersQuery struct {
	origin kernel.GeoPoint
	limit  int

	guard guard.ConstructorGuard
}

// NewFindNearestRidersQuery creates a proximity query around the given
// coordinates.
func NewFindNearestRidersQuery(latitude float64, longitude float64, limit int) (FindNearestRidersQuery, error) {
	origin, err := kernel.NewGeoPoint(latitude, longitude)
	if err != nil {
		return FindNearestRidersQuery{}, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	return FindNearestRidersQuery{
		origin: origin,
		limit:  limit,
		guard:  guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q FindNearestRidersQuery) Validate() error {
	return q.guard.Validate(ErrFindNearestRidersQueryIsNotConstructed)
}

func (q FindNearestRidersQuery) Origin() kernel.GeoPoint { return q.origin }
func (q FindNearestRidersQuery) Limit() int              { return q.limit }

// FindNearestRidersQueryResponse is one ranked rider.
type FindNearestRidersQueryResponse struct {
	RiderID       kernel.UUID
	Name          string
	VehicleType   string
	Latitude      float64
	Longitude     float64
	DistanceKm    float64
	EtaMinutes    int
	RatingAverage float64
}

// FindNearestRidersQueryHandler loads the online rider pool and ranks it
// with the dispatch policy.
type FindNearestRidersQueryHandler struct {
	db         *gorm.DB
	dispatcher services.Dispatcher
}

// NewFindNearestRidersQueryHandler creates a proximity search handler.
func NewFindNearestRidersQueryHandler(db *gorm.DB, dispatcher services.Dispatcher) FindNearestRidersQueryHandler {
	return FindNearestRidersQueryHandler{db: db, dispatcher: dispatcher}
}

// Handle loads online riders with a reported position and returns the top
// eligible candidates.
func (h FindNearestRidersQueryHandler) Handle(
	ctx context.Context,
	query FindNearestRidersQuery,
) ([]FindNearestRidersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			user_id,
			name,
			vehicle_type,
			latitude,
			longitude,
			position_updated_at,
			last_known_address,
			rating_average,
			rating_count,
			version
		FROM riders
		WHERE online = TRUE
		  AND latitude IS NOT NULL
		  AND active_order_id IS NULL
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pool []*rider.Rider
	for rows.Next() {
		var id, userID uuid.UUID
		var name, address string
		var vehicleType, ratingCount, version int
		var latitude, longitude float64
		var updatedAt time.Time
		var ratingAverage float64

		if err = rows.Scan(&id, &userID, &name, &vehicleType,
			&latitude, &longitude, &updatedAt, &address,
			&ratingAverage, &ratingCount, &version); err != nil {
			return nil, err
		}

		riderID, idErr := uuidColumn(id)
		if idErr != nil {
			return nil, idErr
		}
		ownerID, idErr := uuidColumn(userID)
		if idErr != nil {
			return nil, idErr
		}
		point, pointErr := kernel.NewGeoPoint(latitude, longitude)
		if pointErr != nil {
			return nil, pointErr
		}

		restored, restoreErr := rider.RestoreRider(
			riderID, ownerID, name, rider.VehicleType(vehicleType),
			true, &point, &updatedAt, address,
			ratingAverage, ratingCount, nil, version)
		if restoreErr != nil {
			return nil, restoreErr
		}
		pool = append(pool, restored)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	candidates := h.dispatcher.FindNearestEligible(query.Origin(), pool, time.Now())
	if len(candidates) > query.Limit() {
		candidates = candidates[:query.Limit()]
	}

	ranked := make([]FindNearestRidersQueryResponse, 0, len(candidates))
	for _, candidate := range candidates {
		ranked = append(ranked, FindNearestRidersQueryResponse{
			RiderID:       candidate.Rider.ID(),
			Name:          candidate.Rider.Name(),
			VehicleType:   candidate.Rider.VehicleType().String(),
			Latitude:      candidate.Rider.Position().Latitude(),
			Longitude:     candidate.Rider.Position().Longitude(),
			DistanceKm:    candidate.DistanceKm,
			EtaMinutes:    candidate.EtaMinutes,
			RatingAverage: candidate.Rider.RatingAverage(),
		})
	}

	return ranked, nil
}
