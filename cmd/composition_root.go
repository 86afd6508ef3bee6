package cmd

import (
	"log/slog"

	"gorm.io/gorm"

	httpin "dispatch/internal/adapters/in/http"
	"dispatch/internal/adapters/out/events"
	"dispatch/internal/adapters/out/paystack"
	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/postgres/statuslogrepo"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/jobs"
	"dispatch/internal/pkg/livecache"
	"dispatch/internal/pkg/pubsub"
)

// CompositionRoot wires adapters into use case handlers. All wiring is
// manual and happens once at startup.
type CompositionRoot struct {
	config     Config
	gormDB     *gorm.DB
	uowFactory postgres.GormUnitOfWorkFactory

	hub        *pubsub.Hub
	cache      *livecache.Store[rider.LocationRecord]
	dispatcher services.Dispatcher
	gateway    ports.PaymentGateway
	verifier   ports.WebhookVerifier
	effects    commands.SideEffects
	logger     *slog.Logger
}

// NewCompositionRoot builds the shared infrastructure. producer may be
// nil when Kafka is not configured.
func NewCompositionRoot(
	config Config,
	gormDB *gorm.DB,
	producer events.BrokerProducer,
	logger *slog.Logger,
) CompositionRoot {
	hub := pubsub.NewHub(16)
	publisher := events.NewDispatcher(hub, producer, logger)

	return CompositionRoot{
		config:     config,
		gormDB:     gormDB,
		uowFactory: *postgres.NewGormUnitOfWorkFactory(gormDB),
		hub:        hub,
		cache:      livecache.New[rider.LocationRecord](config.LocationStaleness),
		dispatcher: services.NewDispatcher(config.MaxDispatchRadius, config.LocationStaleness),
		gateway:    paystack.NewClient(config.PaystackBaseURL, config.PaystackSecretKey, logger),
		verifier:   paystack.NewWebhookVerifier(config.PaystackSecretKey),
		effects: commands.NewSideEffects(
			statuslogrepo.NewGormStatusLogRepository(gormDB), publisher, logger),
		logger: logger,
	}
}

// Hub exposes the live event hub for the HTTP streaming endpoint.
func (c *CompositionRoot) Hub() *pubsub.Hub {
	return c.hub
}

// HTTPHandlers bundles every handler the REST adapter mounts.
func (c *CompositionRoot) HTTPHandlers() httpin.Handlers {
	return httpin.Handlers{
		CreateOrder:       c.CreateCreateOrderCommandHandler(),
		UpdateOrderStatus: c.CreateUpdateOrderStatusCommandHandler(),
		CancelOrder:       c.CreateCancelOrderCommandHandler(),
		AssignRider:       c.CreateAssignRiderCommandHandler(),
		ConfirmDelivery:   c.CreateConfirmDeliveryCommandHandler(),
		SubmitRating:      c.CreateSubmitRatingCommandHandler(),
		DeleteOrder:       c.CreateDeleteOrderCommandHandler(),
		BulkUpdateStatus:  c.CreateBulkUpdateStatusCommandHandler(),
		BulkAssignRiders:  c.CreateBulkAssignRidersCommandHandler(),
		UpdateLocation:    c.CreateUpdateRiderLocationCommandHandler(),
		SetAvailability:   c.CreateSetRiderAvailabilityCommandHandler(),
		InitializePayment: c.CreateInitializePaymentCommandHandler(),
		VerifyPayment:     c.CreateVerifyPaymentCommandHandler(),
		PaymentWebhook:    c.CreatePaymentWebhookCommandHandler(),
		InitiateRefund:    c.CreateInitiateRefundCommandHandler(),

		GetOrder:           c.CreateGetOrderQueryHandler(),
		GetOrderHistory:    c.CreateGetOrderHistoryQueryHandler(),
		GetOrderStats:      c.CreateGetOrderStatsQueryHandler(),
		GetLiveLocation:    c.CreateGetLiveLocationQueryHandler(),
		GetLocationHistory: c.CreateGetLocationHistoryQueryHandler(),
		FindNearestRiders:  c.CreateFindNearestRidersQueryHandler(),
	}
}

// CreateJobManager wires the scheduled jobs.
func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(
		c.CreateExpireAssignmentsCommandHandler(),
		c.CreateDispatchReadyOrdersCommandHandler(),
		c.CreateCleanupHistoryCommandHandler(),
		c.cache,
		c.logger,
	)
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	return commands.NewCreateOrderCommandHandler(c.orderUoWFactory(), c.effects)
}

func (c *CompositionRoot) CreateUpdateOrderStatusCommandHandler() commands.UpdateOrderStatusCommandHandler {
	return commands.NewUpdateOrderStatusCommandHandler(c.orderUoWFactory(), c.effects)
}

func (c *CompositionRoot) CreateCancelOrderCommandHandler() commands.CancelOrderCommandHandler {
	return commands.NewCancelOrderCommandHandler(c.orderUoWFactory(), c.effects)
}

func (c *CompositionRoot) CreateAssignRiderCommandHandler() commands.AssignRiderCommandHandler {
	return commands.NewAssignRiderCommandHandler(c.dispatchUoWFactory(), c.effects)
}

func (c *CompositionRoot) CreateConfirmDeliveryCommandHandler() commands.ConfirmDeliveryCommandHandler {
	return commands.NewConfirmDeliveryCommandHandler(c.dispatchUoWFactory(), c.effects)
}

func (c *CompositionRoot) CreateSubmitRatingCommandHandler() commands.SubmitRatingCommandHandler {
	return commands.NewSubmitRatingCommandHandler(c.dispatchUoWFactory(), c.effects)
}

func (c *CompositionRoot) CreateDeleteOrderCommandHandler() commands.DeleteOrderCommandHandler {
	return commands.NewDeleteOrderCommandHandler(c.orderUoWFactory())
}

func (c *CompositionRoot) CreateBulkUpdateStatusCommandHandler() commands.BulkUpdateStatusCommandHandler {
	return commands.NewBulkUpdateStatusCommandHandler(c.CreateUpdateOrderStatusCommandHandler(), c.logger)
}

func (c *CompositionRoot) CreateBulkAssignRidersCommandHandler() commands.BulkAssignRidersCommandHandler {
	return commands.NewBulkAssignRidersCommandHandler(
		c.dispatchUoWFactory(), c.CreateAssignRiderCommandHandler(), c.logger)
}

func (c *CompositionRoot) CreateUpdateRiderLocationCommandHandler() commands.UpdateRiderLocationCommandHandler {
	return commands.NewUpdateRiderLocationCommandHandler(c.riderUoWFactory(), c.cache, c.effects)
}

func (c *CompositionRoot) CreateSetRiderAvailabilityCommandHandler() commands.SetRiderAvailabilityCommandHandler {
	return commands.NewSetRiderAvailabilityCommandHandler(c.riderUoWFactory(), c.effects)
}

func (c *CompositionRoot) CreateInitializePaymentCommandHandler() commands.InitializePaymentCommandHandler {
	return commands.NewInitializePaymentCommandHandler(
		c.paymentUoWFactory(), c.gateway, "paystack",
		c.config.PaymentCurrency, c.config.PaymentCallbackURL)
}

func (c *CompositionRoot) CreateVerifyPaymentCommandHandler() commands.VerifyPaymentCommandHandler {
	return commands.NewVerifyPaymentCommandHandler(c.paymentUoWFactory(), c.gateway, c.effects)
}

func (c *CompositionRoot) CreatePaymentWebhookCommandHandler() commands.PaymentWebhookCommandHandler {
	return commands.NewPaymentWebhookCommandHandler(
		c.verifier, c.CreateVerifyPaymentCommandHandler(),
		c.paymentUoWFactory(), c.effects, c.logger)
}

func (c *CompositionRoot) CreateInitiateRefundCommandHandler() commands.InitiateRefundCommandHandler {
	return commands.NewInitiateRefundCommandHandler(c.paymentUoWFactory(), c.gateway)
}

func (c *CompositionRoot) CreateExpireAssignmentsCommandHandler() commands.ExpireAssignmentsCommandHandler {
	return commands.NewExpireAssignmentsCommandHandler(
		c.dispatchUoWFactory(), c.config.AssignmentTimeout, c.effects, c.logger)
}

func (c *CompositionRoot) CreateDispatchReadyOrdersCommandHandler() commands.DispatchReadyOrdersCommandHandler {
	return commands.NewDispatchReadyOrdersCommandHandler(
		c.dispatchUoWFactory(), c.dispatcher, c.effects, c.logger)
}

func (c *CompositionRoot) CreateCleanupHistoryCommandHandler() commands.CleanupHistoryCommandHandler {
	return commands.NewCleanupHistoryCommandHandler(
		c.cleanupUoWFactory(), c.config.HistoryRetention, c.logger)
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetOrderHistoryQueryHandler() queries.GetOrderHistoryQueryHandler {
	return queries.NewGetOrderHistoryQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetOrderStatsQueryHandler() queries.GetOrderStatsQueryHandler {
	return queries.NewGetOrderStatsQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetLiveLocationQueryHandler() queries.GetLiveLocationQueryHandler {
	return queries.NewGetLiveLocationQueryHandler(c.cache, c.config.LocationStaleness)
}

func (c *CompositionRoot) CreateGetLocationHistoryQueryHandler() queries.GetLocationHistoryQueryHandler {
	return queries.NewGetLocationHistoryQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateFindNearestRidersQueryHandler() queries.FindNearestRidersQueryHandler {
	return queries.NewFindNearestRidersQueryHandler(c.gormDB, c.dispatcher)
}

// The command handlers depend on narrowed unit of work factories; the
// Func adapters below bridge them to the single gorm factory.

func (c *CompositionRoot) orderUoWFactory() commands.OrderUoWFactory {
	return FuncOrderUoWFactory(func() commands.OrderUoW { return c.uowFactory.Create() })
}

func (c *CompositionRoot) dispatchUoWFactory() commands.DispatchUoWFactory {
	return FuncDispatchUoWFactory(func() commands.DispatchUoW { return c.uowFactory.Create() })
}

func (c *CompositionRoot) riderUoWFactory() commands.RiderUoWFactory {
	return FuncRiderUoWFactory(func() commands.RiderUoW { return c.uowFactory.Create() })
}

func (c *CompositionRoot) paymentUoWFactory() commands.PaymentUoWFactory {
	return FuncPaymentUoWFactory(func() commands.PaymentUoW { return c.uowFactory.Create() })
}

func (c *CompositionRoot) cleanupUoWFactory() commands.CleanupUoWFactory {
	return FuncCleanupUoWFactory(func() commands.CleanupUoW { return c.uowFactory.Create() })
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

type FuncDispatchUoWFactory func() commands.DispatchUoW

func (f FuncDispatchUoWFactory) Create() commands.DispatchUoW {
	return f()
}

type FuncRiderUoWFactory func() commands.RiderUoW

func (f FuncRiderUoWFactory) Create() commands.RiderUoW {
	return f()
}

type FuncPaymentUoWFactory func() commands.PaymentUoW

func (f FuncPaymentUoWFactory) Create() commands.PaymentUoW {
	return f()
}

type FuncCleanupUoWFactory func() commands.CleanupUoW

func (f FuncCleanupUoWFactory) Create() commands.CleanupUoW {
	return f()
}
