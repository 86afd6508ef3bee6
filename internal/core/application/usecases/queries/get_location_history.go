package queries

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"

	"gorm.io/gorm"
)

var ErrGetLocationHistoryQueryIsNotConstructed = errors.New(
	"GetLocationHistoryQuery must be created via NewGetLocationHistoryQuery constructor",
)

// GetLocationHistoryQuery retrieves a rider's recorded position trail,
// most recent first.
type GetLocationHistoryQuery struct {
	riderID kernel.UUID
	limit   int

	guard guard.ConstructorGuard
}

// NewGetLocationHistoryQuery creates a trail query. A non-positive limit
// falls back to DefaultHistoryLimit.
func NewGetLocationHistoryQuery(riderID kernel.UUID, limit int) (GetLocationHistoryQuery, error) {
	if err := riderID.Validate(); err != nil {
		return GetLocationHistoryQuery{}, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	return GetLocationHistoryQuery{
		riderID: riderID,
		limit:   limit,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetLocationHistoryQuery) Validate() error {
	return q.guard.Validate(ErrGetLocationHistoryQueryIsNotConstructed)
}

func (q GetLocationHistoryQuery) RiderID() kernel.UUID { return q.riderID }
func (q GetLocationHistoryQuery) Limit() int           { return q.limit }

// GetLocationHistoryQueryResponse is one recorded position report.
type GetLocationHistoryQueryResponse struct {
	Latitude   float64
	Longitude  float64
	Address    string
	RecordedAt time.Time
}

// GetLocationHistoryQueryHandler reads the rider location table.
type GetLocationHistoryQueryHandler struct {
	db *gorm.DB
}

// NewGetLocationHistoryQueryHandler creates a handler for location trails.
func NewGetLocationHistoryQueryHandler(db *gorm.DB) GetLocationHistoryQueryHandler {
	return GetLocationHistoryQueryHandler{db: db}
}

// Handle reads up to the limit of reports, newest first.
func (h GetLocationHistoryQueryHandler) Handle(
	ctx context.Context,
	query GetLocationHistoryQuery,
) ([]GetLocationHistoryQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			latitude,
			longitude,
			address,
			recorded_at
		FROM rider_locations
		WHERE rider_id = ?
		ORDER BY recorded_at DESC
		LIMIT ?
	`, query.RiderID().Bytes(), query.Limit()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trail := make([]GetLocationHistoryQueryResponse, 0, query.Limit())
	for rows.Next() {
		var report GetLocationHistoryQueryResponse

		if err = rows.Scan(&report.Latitude, &report.Longitude,
			&report.Address, &report.RecordedAt); err != nil {
			return nil, err
		}

		trail = append(trail, report)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trail, nil
}
