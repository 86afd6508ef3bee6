package rider

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/core/domain/model/kernel"
)

func TestLocationUpdatedEventPayload(t *testing.T) {
	riderID := kernel.NewUUID()
	point, err := kernel.NewGeoPoint(6.5244, 3.3792)
	require.NoError(t, err)

	data, err := json.Marshal(LocationUpdatedEvent{
		RiderID:    riderID,
		Point:      point,
		Address:    "Allen Avenue, Ikeja",
		OccurredAt: time.Now(),
	})

	require.NoError(t, err)
	assert.Contains(t, string(data), riderID.String())
	assert.Contains(t, string(data), `"latitude":6.5244`)
	assert.Contains(t, string(data), `"longitude":3.3792`)
}
