package kernel

import (
	"encoding/json"
	"fmt"
	"math"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

const (
	// GeoPointMinLatitude is the minimum valid latitude in degrees.
	GeoPointMinLatitude = -90.0
	// GeoPointMaxLatitude is the maximum valid latitude in degrees.
	GeoPointMaxLatitude = 90.0
	// GeoPointMinLongitude is the minimum valid longitude in degrees.
	GeoPointMinLongitude = -180.0
	// GeoPointMaxLongitude is the maximum valid longitude in degrees.
	GeoPointMaxLongitude = 180.0

	// earthRadiusKm is the mean Earth radius used by the haversine formula.
	earthRadiusKm = 6371.0

	// riderAverageSpeedKmh is the assumed rider speed in city traffic,
	// used for ETA estimation only.
	riderAverageSpeedKmh = 20.0
)

// ErrGeoPointIsNotConstructed is returned when attempting to use an
// improperly initialized GeoPoint. GeoPoints must be created via NewGeoPoint.
var ErrGeoPointIsNotConstructed = errs.NewValueIsRequiredError(
	"geo point must be created via NewGeoPoint constructor")

// GeoPoint represents a WGS84 coordinate pair with validated bounds.
// It is an immutable value object; the zero value is invalid and fails
// validation. Use NewGeoPoint to create instances.
//
// Example:
//
//	point, err := kernel.NewGeoPoint(-1.2921, 36.8219)
//	if err != nil {
//	    // out-of-range coordinate
//	}
type GeoPoint struct { //nolint:recvcheck //using for validation
	latitude  float64
	longitude float64
	guard     guard.ConstructorGuard
}

// NewGeoPoint creates a GeoPoint with the specified coordinates.
// Latitude must be within [-90, 90] and longitude within [-180, 180];
// out-of-range values return a ValueIsOutOfRangeError.
func NewGeoPoint(latitude float64, longitude float64) (GeoPoint, error) {
	if latitude < GeoPointMinLatitude || latitude > GeoPointMaxLatitude {
		return GeoPoint{}, errs.NewValueIsOutOfRangeError(
			"latitude", latitude, GeoPointMinLatitude, GeoPointMaxLatitude)
	}
	if longitude < GeoPointMinLongitude || longitude > GeoPointMaxLongitude {
		return GeoPoint{}, errs.NewValueIsOutOfRangeError(
			"longitude", longitude, GeoPointMinLongitude, GeoPointMaxLongitude)
	}

	return GeoPoint{
		latitude:  latitude,
		longitude: longitude,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Latitude returns the latitude in degrees.
func (p GeoPoint) Latitude() float64 {
	return p.latitude
}

// Longitude returns the longitude in degrees.
func (p GeoPoint) Longitude() float64 {
	return p.longitude
}

// geoPointJSON is the wire shape of a GeoPoint in JSON payloads.
type geoPointJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MarshalJSON serializes the coordinate pair; the unexported fields would
// otherwise produce an empty object in event payloads.
func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(geoPointJSON{Latitude: p.latitude, Longitude: p.longitude})
}

// UnmarshalJSON parses and validates a coordinate pair via NewGeoPoint.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var raw geoPointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewGeoPoint(raw.Latitude, raw.Longitude)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// IsEqual compares two points for exact coordinate equality.
func (p GeoPoint) IsEqual(other GeoPoint) bool {
	return p.latitude == other.latitude && p.longitude == other.longitude
}

// Validate ensures the GeoPoint was constructed via NewGeoPoint.
func (p GeoPoint) Validate() error {
	return p.guard.Validate(ErrGeoPointIsNotConstructed)
}

// String implements fmt.Stringer.
func (p GeoPoint) String() string {
	return fmt.Sprintf("GeoPoint(%g,%g)", p.latitude, p.longitude)
}

// DistanceKmTo returns the great-circle distance in kilometers between two
// points, computed with the haversine formula.
func (p GeoPoint) DistanceKmTo(other GeoPoint) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := other.Validate(); err != nil {
		return 0, err
	}

	dLat := toRadians(other.latitude - p.latitude)
	dLon := toRadians(other.longitude - p.longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(p.latitude))*math.Cos(toRadians(other.latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c, nil
}

// EstimateETAMinutes converts a distance into an estimated travel time in
// whole minutes, assuming the standard rider speed of 20 km/h and rounding
// up so the estimate never undershoots.
func EstimateETAMinutes(distanceKm float64) int {
	return int(math.Ceil(distanceKm / riderAverageSpeedKmh * 60))
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}
