package queries_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/livecache"
)

func TestGetLiveLocationQueryHandler(t *testing.T) {
	ctx := context.Background()

	newRecord := func(t *testing.T, riderID kernel.UUID, at time.Time) rider.LocationRecord {
		t.Helper()
		point, err := kernel.NewGeoPoint(6.4541, 3.3947)
		require.NoError(t, err)
		record, err := rider.NewLocationRecord(riderID, point, "Marina", at)
		require.NoError(t, err)
		return record
	}

	t.Run("returns the cached position", func(t *testing.T) {
		cache := livecache.New[rider.LocationRecord](10 * time.Minute)
		handler := queries.NewGetLiveLocationQueryHandler(cache, 10*time.Minute)

		riderID := kernel.NewUUID()
		now := time.Now()
		cache.Set(riderID.String(), newRecord(t, riderID, now), now)

		query, err := queries.NewGetLiveLocationQuery(riderID)
		require.NoError(t, err)

		response, err := handler.Handle(ctx, query)
		require.NoError(t, err)
		assert.True(t, response.RiderID.IsEqual(riderID))
		assert.InDelta(t, 6.4541, response.Latitude, 0.0001)
		assert.Equal(t, "Marina", response.Address)
		assert.False(t, response.Stale)
	})

	t.Run("flags a report older than the freshness window", func(t *testing.T) {
		cache := livecache.New[rider.LocationRecord](time.Hour)
		handler := queries.NewGetLiveLocationQueryHandler(cache, 10*time.Minute)

		riderID := kernel.NewUUID()
		reported := time.Now().Add(-30 * time.Minute)
		cache.Set(riderID.String(), newRecord(t, riderID, reported), reported)

		query, err := queries.NewGetLiveLocationQuery(riderID)
		require.NoError(t, err)

		response, err := handler.Handle(ctx, query)
		require.NoError(t, err)
		assert.True(t, response.Stale)
	})

	t.Run("an unknown rider is not found", func(t *testing.T) {
		cache := livecache.New[rider.LocationRecord](10 * time.Minute)
		handler := queries.NewGetLiveLocationQueryHandler(cache, 10*time.Minute)

		query, err := queries.NewGetLiveLocationQuery(kernel.NewUUID())
		require.NoError(t, err)

		_, err = handler.Handle(ctx, query)
		assert.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}
