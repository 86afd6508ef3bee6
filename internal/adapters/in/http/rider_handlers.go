package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
)

type reportLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type locationResponse struct {
	RiderID    string    `json:"rider_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Address    string    `json:"address,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	Stale      bool      `json:"stale,omitempty"`
}

// UpdateRiderLocation handles POST /api/v1/riders/:id/location.
func (s *Server) UpdateRiderLocation(ctx echo.Context) error {
	riderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	var req reportLocationRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	cmd, err := commands.NewUpdateRiderLocationCommand(riderID, req.Latitude, req.Longitude, req.Address)
	if err != nil {
		return writeError(ctx, err)
	}

	record, err := s.updateLocationHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, locationResponse{
		RiderID:    record.RiderID.String(),
		Latitude:   record.Point.Latitude(),
		Longitude:  record.Point.Longitude(),
		Address:    record.Address,
		RecordedAt: record.RecordedAt,
	})
}

type setAvailabilityRequest struct {
	Online bool `json:"online"`
}

// SetRiderAvailability handles PATCH /api/v1/riders/:id/availability.
func (s *Server) SetRiderAvailability(ctx echo.Context) error {
	riderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	var req setAvailabilityRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	cmd, err := commands.NewSetRiderAvailabilityCommand(riderID, req.Online)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.setAvailabilityHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// GetLiveLocation handles GET /api/v1/riders/:id/location/live.
func (s *Server) GetLiveLocation(ctx echo.Context) error {
	riderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	query, err := queries.NewGetLiveLocationQuery(riderID)
	if err != nil {
		return writeError(ctx, err)
	}

	live, err := s.getLiveLocationHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, locationResponse{
		RiderID:    live.RiderID.String(),
		Latitude:   live.Latitude,
		Longitude:  live.Longitude,
		Address:    live.Address,
		RecordedAt: live.RecordedAt,
		Stale:      live.Stale,
	})
}

// GetLocationHistory handles GET /api/v1/riders/:id/location/history.
func (s *Server) GetLocationHistory(ctx echo.Context) error {
	riderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	limit := queryLimit(ctx, queries.DefaultHistoryLimit)
	query, err := queries.NewGetLocationHistoryQuery(riderID, limit)
	if err != nil {
		return writeError(ctx, err)
	}

	trail, err := s.getLocationHistoryHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeError(ctx, err)
	}

	response := make([]locationResponse, len(trail))
	for i, point := range trail {
		response[i] = locationResponse{
			RiderID:    riderID.String(),
			Latitude:   point.Latitude,
			Longitude:  point.Longitude,
			Address:    point.Address,
			RecordedAt: point.RecordedAt,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

type nearestRiderResponse struct {
	RiderID       string  `json:"rider_id"`
	Name          string  `json:"name"`
	VehicleType   string  `json:"vehicle_type"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	DistanceKm    float64 `json:"distance_km"`
	EtaMinutes    int     `json:"eta_minutes"`
	RatingAverage float64 `json:"rating_average"`
}

// FindNearestRiders handles GET /api/v1/riders/nearest.
func (s *Server) FindNearestRiders(ctx echo.Context) error {
	latitude, err := strconv.ParseFloat(ctx.QueryParam("latitude"), 64)
	if err != nil {
		return badRequest(ctx, "latitude is required")
	}
	longitude, err := strconv.ParseFloat(ctx.QueryParam("longitude"), 64)
	if err != nil {
		return badRequest(ctx, "longitude is required")
	}

	query, err := queries.NewFindNearestRidersQuery(latitude, longitude, queryLimit(ctx, 10))
	if err != nil {
		return writeError(ctx, err)
	}

	nearest, err := s.findNearestRidersHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeError(ctx, err)
	}

	response := make([]nearestRiderResponse, len(nearest))
	for i, candidate := range nearest {
		response[i] = nearestRiderResponse{
			RiderID:       candidate.RiderID.String(),
			Name:          candidate.Name,
			VehicleType:   candidate.VehicleType,
			Latitude:      candidate.Latitude,
			Longitude:     candidate.Longitude,
			DistanceKm:    candidate.DistanceKm,
			EtaMinutes:    candidate.EtaMinutes,
			RatingAverage: candidate.RatingAverage,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}
