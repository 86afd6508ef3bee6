// Package rider contains the Rider aggregate: availability, last known
// position, rolling rating and the single-active-order constraint that
// prevents double-booking.
package rider
