package commands

import (
	"context"
	"io"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/payment"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// memStore is the shared in-memory state behind the fake repositories.
// Get returns clones so uncommitted mutations never leak into the store,
// and Update enforces the same version guard the real repositories do.
type memStore struct {
	orders    map[kernel.UUID]*order.Order
	riders    map[kernel.UUID]*rider.Rider
	payments  map[kernel.UUID]*payment.Payment
	logs      []order.StatusLog
	locations []rider.LocationRecord
	deleted   map[kernel.UUID]bool

	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		orders:   make(map[kernel.UUID]*order.Order),
		riders:   make(map[kernel.UUID]*rider.Rider),
		payments: make(map[kernel.UUID]*payment.Payment),
		deleted:  make(map[kernel.UUID]bool),
	}
}

func cloneOrder(o *order.Order) *order.Order {
	var assignment *order.Assignment
	if o.Assignment() != nil {
		copied := *o.Assignment()
		assignment = &copied
	}
	var rating *order.Rating
	if o.Rating() != nil {
		copied := *o.Rating()
		rating = &copied
	}

	clone, err := order.RestoreOrder(
		o.ID(), o.CustomerID(), o.RestaurantID(),
		o.DeliveryAddress(), o.DeliveryPoint(), o.TotalPrice(),
		o.Status(), o.PaymentStatus(),
		assignment, o.AssignmentAttempts(), o.RequiresManualAssignment(),
		o.AcceptedAt(), o.PickedUpAt(),
		o.CustomerConfirmed(), o.RiderConfirmed(),
		rating, o.Version(),
	)
	if err != nil {
		panic(err)
	}
	return clone
}

func cloneRider(r *rider.Rider) *rider.Rider {
	clone, err := rider.RestoreRider(
		r.ID(), r.UserID(), r.Name(), r.VehicleType(),
		r.Online(), r.Position(), r.PositionUpdatedAt(), r.LastKnownAddress(),
		r.RatingAverage(), r.RatingCount(), r.ActiveOrderID(), r.Version(),
	)
	if err != nil {
		panic(err)
	}
	return clone
}

func clonePayment(p *payment.Payment) *payment.Payment {
	clone, err := payment.RestorePayment(
		p.ID(), p.OrderID(), p.Amount(), p.Currency(), p.Gateway(),
		p.Reference(), p.Status(), p.TransactionID(),
		p.PaidAt(), p.FailedAt(), p.RefundedAt(),
		p.FailureReason(), p.RefundReason(), p.RawResponse(), p.Version(),
	)
	if err != nil {
		panic(err)
	}
	return clone
}

type memOrderRepo struct{ store *memStore }

func (r memOrderRepo) Add(_ context.Context, aggregate *order.Order) error {
	r.store.orders[aggregate.ID()] = cloneOrder(aggregate)
	return nil
}

func (r memOrderRepo) Update(_ context.Context, aggregate *order.Order) error {
	stored, ok := r.store.orders[aggregate.ID()]
	if !ok {
		return errs.NewObjectNotFoundError("order", aggregate.ID())
	}
	if stored.Version() != aggregate.Version() {
		return errs.NewConflictError("order", aggregate.ID())
	}

	clone := cloneOrder(aggregate)
	bumped, err := order.RestoreOrder(
		clone.ID(), clone.CustomerID(), clone.RestaurantID(),
		clone.DeliveryAddress(), clone.DeliveryPoint(), clone.TotalPrice(),
		clone.Status(), clone.PaymentStatus(),
		clone.Assignment(), clone.AssignmentAttempts(), clone.RequiresManualAssignment(),
		clone.AcceptedAt(), clone.PickedUpAt(),
		clone.CustomerConfirmed(), clone.RiderConfirmed(),
		clone.Rating(), clone.Version()+1,
	)
	if err != nil {
		return err
	}
	r.store.orders[aggregate.ID()] = bumped
	return nil
}

func (r memOrderRepo) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	stored, ok := r.store.orders[id]
	if !ok || r.store.deleted[id] {
		return nil, errs.NewObjectNotFoundError("order", id)
	}
	return cloneOrder(stored), nil
}

func (r memOrderRepo) GetAllAssignedBefore(_ context.Context, cutoff time.Time) ([]*order.Order, error) {
	var result []*order.Order
	for id, stored := range r.store.orders {
		if r.store.deleted[id] || stored.Assignment() == nil || stored.Status() != order.OnRoute {
			continue
		}
		if stored.Assignment().AssignedAt.Before(cutoff) {
			result = append(result, cloneOrder(stored))
		}
	}
	return result, nil
}

func (r memOrderRepo) GetAllReadyUnassigned(_ context.Context) ([]*order.Order, error) {
	var result []*order.Order
	for id, stored := range r.store.orders {
		if r.store.deleted[id] {
			continue
		}
		if stored.Status() == order.Ready && stored.Assignment() == nil &&
			!stored.RequiresManualAssignment() {
			result = append(result, cloneOrder(stored))
		}
	}
	return result, nil
}

func (r memOrderRepo) CountByStatus(_ context.Context) (map[order.Status]int, error) {
	counts := make(map[order.Status]int)
	for id, stored := range r.store.orders {
		if !r.store.deleted[id] {
			counts[stored.Status()]++
		}
	}
	return counts, nil
}

func (r memOrderRepo) SoftDelete(_ context.Context, id kernel.UUID) error {
	if _, ok := r.store.orders[id]; !ok {
		return errs.NewObjectNotFoundError("order", id)
	}
	r.store.deleted[id] = true
	return nil
}

type memRiderRepo struct{ store *memStore }

func (r memRiderRepo) Add(_ context.Context, aggregate *rider.Rider) error {
	r.store.riders[aggregate.ID()] = cloneRider(aggregate)
	return nil
}

func (r memRiderRepo) Update(_ context.Context, aggregate *rider.Rider) error {
	stored, ok := r.store.riders[aggregate.ID()]
	if !ok {
		return errs.NewObjectNotFoundError("rider", aggregate.ID())
	}
	if stored.Version() != aggregate.Version() {
		return errs.NewConflictError("rider", aggregate.ID())
	}

	clone := cloneRider(aggregate)
	bumped, err := rider.RestoreRider(
		clone.ID(), clone.UserID(), clone.Name(), clone.VehicleType(),
		clone.Online(), clone.Position(), clone.PositionUpdatedAt(), clone.LastKnownAddress(),
		clone.RatingAverage(), clone.RatingCount(), clone.ActiveOrderID(), clone.Version()+1,
	)
	if err != nil {
		return err
	}
	r.store.riders[aggregate.ID()] = bumped
	return nil
}

func (r memRiderRepo) Get(_ context.Context, id kernel.UUID) (*rider.Rider, error) {
	stored, ok := r.store.riders[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("rider", id)
	}
	return cloneRider(stored), nil
}

func (r memRiderRepo) GetAllOnline(_ context.Context) ([]*rider.Rider, error) {
	var result []*rider.Rider
	for _, stored := range r.store.riders {
		if stored.Online() && stored.Position() != nil {
			result = append(result, cloneRider(stored))
		}
	}
	return result, nil
}

type memPaymentRepo struct{ store *memStore }

func (r memPaymentRepo) Add(_ context.Context, aggregate *payment.Payment) error {
	r.store.payments[aggregate.ID()] = clonePayment(aggregate)
	return nil
}

func (r memPaymentRepo) Update(_ context.Context, aggregate *payment.Payment) error {
	stored, ok := r.store.payments[aggregate.ID()]
	if !ok {
		return errs.NewObjectNotFoundError("payment", aggregate.ID())
	}
	if stored.Version() != aggregate.Version() {
		return errs.NewConflictError("payment", aggregate.ID())
	}

	clone := clonePayment(aggregate)
	bumped, err := payment.RestorePayment(
		clone.ID(), clone.OrderID(), clone.Amount(), clone.Currency(), clone.Gateway(),
		clone.Reference(), clone.Status(), clone.TransactionID(),
		clone.PaidAt(), clone.FailedAt(), clone.RefundedAt(),
		clone.FailureReason(), clone.RefundReason(), clone.RawResponse(), clone.Version()+1,
	)
	if err != nil {
		return err
	}
	r.store.payments[aggregate.ID()] = bumped
	return nil
}

func (r memPaymentRepo) Get(_ context.Context, id kernel.UUID) (*payment.Payment, error) {
	stored, ok := r.store.payments[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("payment", id)
	}
	return clonePayment(stored), nil
}

func (r memPaymentRepo) GetByReference(_ context.Context, reference string) (*payment.Payment, error) {
	for _, stored := range r.store.payments {
		if stored.Reference() == reference {
			return clonePayment(stored), nil
		}
	}
	return nil, errs.NewObjectNotFoundError("payment", reference)
}

func (r memPaymentRepo) DeleteFinishedOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for id, stored := range r.store.payments {
		if stored.Status() != payment.StatusFailed && stored.Status() != payment.StatusCancelled {
			continue
		}
		if stored.FailedAt() == nil || !stored.FailedAt().Before(cutoff) {
			continue
		}
		delete(r.store.payments, id)
		removed++
	}
	return removed, nil
}

func (r memPaymentRepo) GetCompletedByOrder(_ context.Context, orderID kernel.UUID) (*payment.Payment, error) {
	for _, stored := range r.store.payments {
		if stored.OrderID() == orderID && stored.Status() == payment.StatusCompleted {
			return clonePayment(stored), nil
		}
	}
	return nil, errs.NewObjectNotFoundError("payment", orderID)
}

type memStatusLogRepo struct{ store *memStore }

func (r memStatusLogRepo) Append(_ context.Context, record order.StatusLog) error {
	r.store.logs = append(r.store.logs, record)
	return nil
}

func (r memStatusLogRepo) GetByOrder(_ context.Context, orderID kernel.UUID, limit int) ([]order.StatusLog, error) {
	var result []order.StatusLog
	for i := len(r.store.logs) - 1; i >= 0 && len(result) < limit; i-- {
		if r.store.logs[i].OrderID == orderID {
			result = append(result, r.store.logs[i])
		}
	}
	return result, nil
}

func (r memStatusLogRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []order.StatusLog
	var removed int64
	for _, record := range r.store.logs {
		if record.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	r.store.logs = kept
	return removed, nil
}

type memLocationRepo struct{ store *memStore }

func (r memLocationRepo) Append(_ context.Context, record rider.LocationRecord) error {
	r.store.locations = append(r.store.locations, record)
	return nil
}

func (r memLocationRepo) GetHistory(_ context.Context, riderID kernel.UUID, limit int) ([]rider.LocationRecord, error) {
	var result []rider.LocationRecord
	for i := len(r.store.locations) - 1; i >= 0 && len(result) < limit; i-- {
		if r.store.locations[i].RiderID == riderID {
			result = append(result, r.store.locations[i])
		}
	}
	return result, nil
}

func (r memLocationRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []rider.LocationRecord
	var removed int64
	for _, record := range r.store.locations {
		if record.RecordedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	r.store.locations = kept
	return removed, nil
}

// memUoW satisfies every unit of work interface over the shared store. The
// fakes commit eagerly, so commits and rollbacks are only counted.
type memUoW struct{ store *memStore }

func (u memUoW) Begin(context.Context) error { return nil }
func (u memUoW) Commit(context.Context) error {
	u.store.commits++
	return nil
}
func (u memUoW) Rollback(context.Context) error {
	u.store.rollbacks++
	return nil
}

func (u memUoW) OrderRepository() ports.OrderRepository         { return memOrderRepo{u.store} }
func (u memUoW) RiderRepository() ports.RiderRepository         { return memRiderRepo{u.store} }
func (u memUoW) PaymentRepository() ports.PaymentRepository     { return memPaymentRepo{u.store} }
func (u memUoW) StatusLogRepository() ports.StatusLogRepository { return memStatusLogRepo{u.store} }
func (u memUoW) LocationRepository() ports.LocationRepository   { return memLocationRepo{u.store} }

type memOrderUoWFactory struct{ store *memStore }

func (f memOrderUoWFactory) Create() OrderUoW { return memUoW{f.store} }

type memDispatchUoWFactory struct{ store *memStore }

func (f memDispatchUoWFactory) Create() DispatchUoW { return memUoW{f.store} }

type memRiderUoWFactory struct{ store *memStore }

func (f memRiderUoWFactory) Create() RiderUoW { return memUoW{f.store} }

type memPaymentUoWFactory struct{ store *memStore }

func (f memPaymentUoWFactory) Create() PaymentUoW { return memUoW{f.store} }

type memCleanupUoWFactory struct{ store *memStore }

func (f memCleanupUoWFactory) Create() CleanupUoW { return memUoW{f.store} }

// capturingPublisher records every published event for assertions.
type capturingPublisher struct {
	events []kernel.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events []kernel.DomainEvent) {
	p.events = append(p.events, events...)
}

func (p *capturingPublisher) names() []string {
	result := make([]string, 0, len(p.events))
	for _, event := range p.events {
		result = append(result, event.EventName())
	}
	return result
}

// stubGateway returns canned answers for the payment gateway port.
type stubGateway struct {
	initResult   ports.PaymentInitialization
	initErr      error
	verification ports.GatewayVerification
	verifyErr    error
	refundErr    error

	refundCalls []string
}

func (g *stubGateway) Initialize(context.Context, ports.InitializeRequest) (ports.PaymentInitialization, error) {
	return g.initResult, g.initErr
}

func (g *stubGateway) Verify(context.Context, string) (ports.GatewayVerification, error) {
	return g.verification, g.verifyErr
}

func (g *stubGateway) Refund(_ context.Context, transactionID string, _ string) error {
	g.refundCalls = append(g.refundCalls, transactionID)
	return g.refundErr
}

type stubVerifier struct{ ok bool }

func (v stubVerifier) VerifySignature([]byte, string) bool { return v.ok }

// fixture bundles the store, the publisher and a silent side-effects
// pipeline for handler tests.
type fixture struct {
	store     *memStore
	publisher *capturingPublisher
	effects   SideEffects
}

func newFixture() *fixture {
	store := newMemStore()
	publisher := &capturingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		store:     store,
		publisher: publisher,
		effects:   NewSideEffects(memStatusLogRepo{store}, publisher, logger),
	}
}
