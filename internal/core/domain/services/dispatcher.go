package services

import (
	"errors"
	"sort"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/errs"
)

// ErrRiderNotFound is returned when no eligible rider is available for
// dispatch: none online, none within range, or all positions stale.
var ErrRiderNotFound = errors.New("no eligible rider found")

// Candidate is a rider considered for an order, with the computed distance
// from the delivery point and the presentational ETA.
type Candidate struct {
	Rider      *rider.Rider
	DistanceKm float64
	EtaMinutes int
}

// Dispatcher is a domain service implementing the nearest-eligible-rider
// policy.
//
// Eligibility: online, not carrying an order, position reported within the
// staleness window, and within maxDistanceKm of the delivery point.
//
// Ordering is deterministic: ascending distance, ties broken by higher
// rating, then by rider id. Given the same riders the dispatcher always
// produces the same ranking.
type Dispatcher struct {
	maxDistanceKm float64
	staleness     time.Duration
}

// NewDispatcher creates a Dispatcher with the given search radius and
// position staleness window.
func NewDispatcher(maxDistanceKm float64, staleness time.Duration) Dispatcher {
	return Dispatcher{
		maxDistanceKm: maxDistanceKm,
		staleness:     staleness,
	}
}

// FindNearestEligible ranks the given riders for a pickup at origin.
// Ineligible riders are silently skipped; an empty result is not an error
// at this level.
func (d Dispatcher) FindNearestEligible(origin kernel.GeoPoint, riders []*rider.Rider, now time.Time) []Candidate {
	candidates := make([]Candidate, 0, len(riders))

	for _, r := range riders {
		if r.Validate() != nil {
			continue
		}
		if !r.IsDispatchable(d.staleness, now) {
			continue
		}

		distance, err := origin.DistanceKmTo(*r.Position())
		if err != nil || distance > d.maxDistanceKm {
			continue
		}

		candidates = append(candidates, Candidate{
			Rider:      r,
			DistanceKm: distance,
			EtaMinutes: kernel.EstimateETAMinutes(distance),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		if candidates[i].Rider.RatingAverage() != candidates[j].Rider.RatingAverage() {
			return candidates[i].Rider.RatingAverage() > candidates[j].Rider.RatingAverage()
		}
		return candidates[i].Rider.ID().String() < candidates[j].Rider.ID().String()
	})

	return candidates
}

// Dispatch binds the best eligible rider to a Ready order: the rider takes
// the order and the order transitions to OnRoute.
//
// Returns ErrRiderNotFound when no rider qualifies, leaving the order
// untouched so the sweep can retry or escalate.
func (d Dispatcher) Dispatch(o *order.Order, riders []*rider.Rider, now time.Time) (*rider.Rider, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if o.DeliveryPoint() == nil {
		return nil, errs.NewInvalidOperationError("dispatch",
			"order has no delivery coordinates")
	}

	candidates := d.FindNearestEligible(*o.DeliveryPoint(), riders, now)
	if len(candidates) == 0 {
		return nil, ErrRiderNotFound
	}

	best := candidates[0].Rider
	if err := best.BindOrder(o.ID()); err != nil {
		return nil, err
	}
	if err := o.Assign(best.ID(), now); err != nil {
		// Unbind so the rider is not left carrying an unassigned order.
		_ = best.ReleaseOrder()
		return nil, err
	}

	return best, nil
}
