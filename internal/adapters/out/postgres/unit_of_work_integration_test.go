package postgres_test

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/postgres/locationrepo"
	"dispatch/internal/adapters/out/postgres/orderrepo"
	"dispatch/internal/adapters/out/postgres/paymentrepo"
	"dispatch/internal/adapters/out/postgres/riderrepo"
	"dispatch/internal/adapters/out/postgres/statuslogrepo"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/payment"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type PostgresAdapterTestSuite struct {
	suite.Suite
	container *pgcontainer.PostgresContainer
	db        *gorm.DB
	factory   *postgres.GormUnitOfWorkFactory
}

func TestPostgresAdapterTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(PostgresAdapterTestSuite))
}

func (s *PostgresAdapterTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := pgcontainer.Run(ctx,
		"postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("testuser"),
		pgcontainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{})
	s.Require().NoError(err)
	s.db = db

	err = db.AutoMigrate(
		&orderrepo.OrderDTO{},
		&riderrepo.RiderDTO{},
		&paymentrepo.PaymentDTO{},
		&statuslogrepo.StatusLogDTO{},
		&locationrepo.LocationDTO{},
	)
	s.Require().NoError(err)

	s.factory = postgres.NewGormUnitOfWorkFactory(db)
}

func (s *PostgresAdapterTestSuite) TearDownSuite() {
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func (s *PostgresAdapterTestSuite) newOrder(target order.Status) *order.Order {
	point, err := kernel.NewGeoPoint(6.4541, 3.3947)
	s.Require().NoError(err)

	aggregate, err := order.NewOrder(
		kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(),
		"12 Marina Road, Lagos Island", &point, 4500)
	s.Require().NoError(err)

	now := time.Now()
	for _, step := range []order.Status{order.Accepted, order.Preparing, order.Ready} {
		if aggregate.Status() == target {
			break
		}
		s.Require().NoError(aggregate.TransitionTo(step, "", now))
	}
	aggregate.ClearEvents()

	return aggregate
}

func (s *PostgresAdapterTestSuite) TestOrderRoundTrip() {
	ctx := context.Background()
	aggregate := s.newOrder(order.Ready)

	uow := s.factory.Create()
	s.Require().NoError(uow.Begin(ctx))
	s.Require().NoError(uow.OrderRepository().Add(ctx, aggregate))
	s.Require().NoError(uow.Commit(ctx))

	loaded, err := s.factory.Create().OrderRepository().Get(ctx, aggregate.ID())
	s.Require().NoError(err)
	s.Assert().True(loaded.IsEqual(aggregate))
	s.Assert().Equal(order.Ready, loaded.Status())
	s.Assert().Equal(aggregate.TotalPrice(), loaded.TotalPrice())
	s.Require().NotNil(loaded.DeliveryPoint())
	s.Assert().InDelta(6.4541, loaded.DeliveryPoint().Latitude(), 0.0001)
	s.Require().NotNil(loaded.PickedUpAt())
}

func (s *PostgresAdapterTestSuite) TestOrderOptimisticLock() {
	ctx := context.Background()
	aggregate := s.newOrder(order.Pending)

	repo := s.factory.Create().OrderRepository()
	s.Require().NoError(repo.Add(ctx, aggregate))

	first, err := repo.Get(ctx, aggregate.ID())
	s.Require().NoError(err)
	second, err := repo.Get(ctx, aggregate.ID())
	s.Require().NoError(err)

	now := time.Now()
	s.Require().NoError(first.TransitionTo(order.Accepted, "", now))
	s.Require().NoError(repo.Update(ctx, first))

	s.Require().NoError(second.Cancel("changed my mind", now))
	err = repo.Update(ctx, second)
	s.Require().Error(err)
	s.Assert().ErrorIs(err, errs.ErrConflict)

	loaded, err := repo.Get(ctx, aggregate.ID())
	s.Require().NoError(err)
	s.Assert().Equal(order.Accepted, loaded.Status())
}

func (s *PostgresAdapterTestSuite) TestOrderSoftDelete() {
	ctx := context.Background()
	aggregate := s.newOrder(order.Pending)

	repo := s.factory.Create().OrderRepository()
	s.Require().NoError(repo.Add(ctx, aggregate))
	s.Require().NoError(repo.SoftDelete(ctx, aggregate.ID()))

	_, err := repo.Get(ctx, aggregate.ID())
	s.Assert().ErrorIs(err, errs.ErrObjectNotFound)
}

func (s *PostgresAdapterTestSuite) TestGetAllReadyUnassigned() {
	ctx := context.Background()
	ready := s.newOrder(order.Ready)
	pending := s.newOrder(order.Pending)

	repo := s.factory.Create().OrderRepository()
	s.Require().NoError(repo.Add(ctx, ready))
	s.Require().NoError(repo.Add(ctx, pending))

	pool, err := repo.GetAllReadyUnassigned(ctx)
	s.Require().NoError(err)

	ids := make(map[string]bool, len(pool))
	for _, o := range pool {
		s.Assert().Equal(order.Ready, o.Status())
		s.Assert().Nil(o.Assignment())
		ids[o.ID().String()] = true
	}
	s.Assert().True(ids[ready.ID().String()])
	s.Assert().False(ids[pending.ID().String()])
}

func (s *PostgresAdapterTestSuite) TestGetAllAssignedBefore() {
	ctx := context.Background()
	assignedAt := time.Now().Add(-time.Hour)

	overdue := s.newOrder(order.Ready)
	s.Require().NoError(overdue.Assign(kernel.NewUUID(), assignedAt))
	overdue.ClearEvents()

	fresh := s.newOrder(order.Ready)
	s.Require().NoError(fresh.Assign(kernel.NewUUID(), time.Now()))
	fresh.ClearEvents()

	arrived := s.newOrder(order.Ready)
	s.Require().NoError(arrived.Assign(kernel.NewUUID(), assignedAt))
	s.Require().NoError(arrived.TransitionTo(order.AwaitingConfirmation, "", time.Now()))
	arrived.ClearEvents()

	repo := s.factory.Create().OrderRepository()
	for _, o := range []*order.Order{overdue, fresh, arrived} {
		s.Require().NoError(repo.Add(ctx, o))
	}

	stale, err := repo.GetAllAssignedBefore(ctx, time.Now().Add(-30*time.Minute))
	s.Require().NoError(err)

	ids := make(map[string]bool, len(stale))
	for _, o := range stale {
		s.Assert().Equal(order.OnRoute, o.Status())
		ids[o.ID().String()] = true
	}
	s.Assert().True(ids[overdue.ID().String()])
	s.Assert().False(ids[fresh.ID().String()])
	s.Assert().False(ids[arrived.ID().String()])
}

func (s *PostgresAdapterTestSuite) TestRiderRoundTripAndConflict() {
	ctx := context.Background()

	courier, err := rider.NewRider(kernel.NewUUID(), kernel.NewUUID(), "Tunde", rider.Motorbike)
	s.Require().NoError(err)
	now := time.Now()
	s.Require().NoError(courier.SetOnline(true, now))
	point, err := kernel.NewGeoPoint(6.5244, 3.3792)
	s.Require().NoError(err)
	s.Require().NoError(courier.UpdateLocation(point, "Ikeja", now))
	courier.ClearEvents()

	repo := s.factory.Create().RiderRepository()
	s.Require().NoError(repo.Add(ctx, courier))

	first, err := repo.Get(ctx, courier.ID())
	s.Require().NoError(err)
	second, err := repo.Get(ctx, courier.ID())
	s.Require().NoError(err)

	s.Require().NoError(first.BindOrder(kernel.NewUUID()))
	s.Require().NoError(repo.Update(ctx, first))

	s.Require().NoError(second.BindOrder(kernel.NewUUID()))
	err = repo.Update(ctx, second)
	s.Assert().ErrorIs(err, errs.ErrConflict)

	online, err := repo.GetAllOnline(ctx)
	s.Require().NoError(err)
	found := false
	for _, r := range online {
		if r.IsEqual(courier) {
			found = true
			s.Require().NotNil(r.ActiveOrderID())
		}
	}
	s.Assert().True(found)
}

func (s *PostgresAdapterTestSuite) TestPaymentByReference() {
	ctx := context.Background()

	record, err := payment.NewPayment(
		kernel.NewUUID(), kernel.NewUUID(), 4500, "NGN", "paystack", "ref-int-001")
	s.Require().NoError(err)

	repo := s.factory.Create().PaymentRepository()
	s.Require().NoError(repo.Add(ctx, record))

	loaded, err := repo.GetByReference(ctx, "ref-int-001")
	s.Require().NoError(err)
	s.Assert().True(loaded.ID().IsEqual(record.ID()))
	s.Assert().Equal(payment.StatusPending, loaded.Status())

	applied, err := loaded.MarkCompleted("trx-int-1", []byte(`{"status":"success"}`), time.Now())
	s.Require().NoError(err)
	s.Require().True(applied)
	s.Require().NoError(repo.Update(ctx, loaded))

	completed, err := repo.GetCompletedByOrder(ctx, record.OrderID())
	s.Require().NoError(err)
	s.Assert().Equal("trx-int-1", completed.TransactionID())
}

func (s *PostgresAdapterTestSuite) TestStatusLogRetention() {
	ctx := context.Background()
	orderID := kernel.NewUUID()

	repo := s.factory.Create().StatusLogRepository()

	old, err := order.NewStatusLog(orderID, order.Unknown, order.Pending,
		order.SystemActor, "Order created", time.Now().Add(-60*24*time.Hour))
	s.Require().NoError(err)
	fresh, err := order.NewStatusLog(orderID, order.Pending, order.Accepted,
		"restaurant:1", "", time.Now())
	s.Require().NoError(err)

	s.Require().NoError(repo.Append(ctx, old))
	s.Require().NoError(repo.Append(ctx, fresh))

	records, err := repo.GetByOrder(ctx, orderID, 10)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Assert().Equal(order.Accepted, records[0].ToStatus)

	removed, err := repo.DeleteOlderThan(ctx, time.Now().Add(-30*24*time.Hour))
	s.Require().NoError(err)
	s.Assert().GreaterOrEqual(removed, int64(1))

	records, err = repo.GetByOrder(ctx, orderID, 10)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
}

func (s *PostgresAdapterTestSuite) TestLocationHistoryRoundTrip() {
	ctx := context.Background()
	riderID := kernel.NewUUID()

	repo := s.factory.Create().LocationRepository()

	for i := 0; i < 3; i++ {
		point, err := kernel.NewGeoPoint(6.45+float64(i)*0.01, 3.39)
		s.Require().NoError(err)
		record, err := rider.NewLocationRecord(riderID, point, "Marina",
			time.Now().Add(time.Duration(i)*time.Minute))
		s.Require().NoError(err)
		s.Require().NoError(repo.Append(ctx, record))
	}

	history, err := repo.GetHistory(ctx, riderID, 2)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Assert().True(history[0].RecordedAt.After(history[1].RecordedAt))
}

func (s *PostgresAdapterTestSuite) TestOrderHistoryQuery() {
	ctx := context.Background()
	orderID := kernel.NewUUID()

	repo := s.factory.Create().StatusLogRepository()
	created, err := order.NewStatusLog(orderID, order.Unknown, order.Pending,
		order.SystemActor, "Order created", time.Now().Add(-time.Minute))
	s.Require().NoError(err)
	accepted, err := order.NewStatusLog(orderID, order.Pending, order.Accepted,
		"restaurant:1", "", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(repo.Append(ctx, created))
	s.Require().NoError(repo.Append(ctx, accepted))

	handler := queries.NewGetOrderHistoryQueryHandler(s.db)
	query, err := queries.NewGetOrderHistoryQuery(orderID, 10)
	s.Require().NoError(err)

	history, err := handler.Handle(ctx, query)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Assert().Equal(order.Accepted, history[0].ToStatus)
	s.Assert().Equal("restaurant:1", history[0].Actor)
}

func (s *PostgresAdapterTestSuite) TestOrderStatsQuery() {
	ctx := context.Background()

	repo := s.factory.Create().OrderRepository()
	s.Require().NoError(repo.Add(ctx, s.newOrder(order.Pending)))

	handler := queries.NewGetOrderStatsQueryHandler(s.db)
	stats, err := handler.Handle(ctx, queries.NewGetOrderStatsQuery())
	s.Require().NoError(err)
	s.Assert().GreaterOrEqual(stats.Counts[order.Pending], 1)
	s.Assert().GreaterOrEqual(stats.Total, 1)
}
