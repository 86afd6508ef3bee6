package commands

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
	"dispatch/internal/pkg/metrics"
)

var (
	ErrCreateOrderCommandIsNotConstructed = errors.New(
		"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
	)
	ErrCoordinatesArePartial = errors.New("latitude and longitude must be provided together")
)

// CreateOrderCommand represents a request to place a new order. The order
// starts Pending with a Pending payment; payment initialization is a
// separate command.
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID         kernel.UUID
	customerID      kernel.UUID
	restaurantID    kernel.UUID
	deliveryAddress string
	deliveryPoint   *kernel.GeoPoint
	totalPrice      float64

	guard guard.ConstructorGuard
}

// NewCreateOrderCommand creates a command to place a new order. Coordinates
// are optional but must come as a pair.
func NewCreateOrderCommand(
	orderID kernel.UUID,
	customerID kernel.UUID,
	restaurantID kernel.UUID,
	deliveryAddress string,
	latitude *float64,
	longitude *float64,
	totalPrice float64,
) (CreateOrderCommand, error) {
	cmd := CreateOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setIDs(orderID, customerID, restaurantID),
		cmd.setDeliveryAddress(deliveryAddress),
		cmd.setDeliveryPoint(latitude, longitude),
		cmd.setTotalPrice(totalPrice),
	); err != nil {
		return CreateOrderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

func (c CreateOrderCommand) OrderID() kernel.UUID            { return c.orderID }
func (c CreateOrderCommand) CustomerID() kernel.UUID         { return c.customerID }
func (c CreateOrderCommand) RestaurantID() kernel.UUID       { return c.restaurantID }
func (c CreateOrderCommand) DeliveryAddress() string         { return c.deliveryAddress }
func (c CreateOrderCommand) DeliveryPoint() *kernel.GeoPoint { return c.deliveryPoint }
func (c CreateOrderCommand) TotalPrice() float64             { return c.totalPrice }

func (c *CreateOrderCommand) setIDs(orderID, customerID, restaurantID kernel.UUID) error {
	if err := errors.Join(
		orderID.Validate(),
		customerID.Validate(),
		restaurantID.Validate(),
	); err != nil {
		return err
	}
	c.orderID = orderID
	c.customerID = customerID
	c.restaurantID = restaurantID
	return nil
}

func (c *CreateOrderCommand) setDeliveryAddress(address string) error {
	if address == "" {
		return errs.NewValueIsRequiredError("delivery address")
	}
	c.deliveryAddress = address
	return nil
}

func (c *CreateOrderCommand) setDeliveryPoint(latitude, longitude *float64) error {
	if latitude == nil && longitude == nil {
		return nil
	}
	if latitude == nil || longitude == nil {
		return ErrCoordinatesArePartial
	}

	point, err := kernel.NewGeoPoint(*latitude, *longitude)
	if err != nil {
		return err
	}
	c.deliveryPoint = &point
	return nil
}

func (c *CreateOrderCommand) setTotalPrice(totalPrice float64) error {
	if totalPrice < 0 {
		return errs.NewValueIsInvalidError("total price")
	}
	c.totalPrice = totalPrice
	return nil
}

// CreateOrderCommandHandler persists new orders and records the creation
// entry in the status log.
type CreateOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	effects    SideEffects
}

// NewCreateOrderCommandHandler creates a handler for order placement.
func NewCreateOrderCommandHandler(uowFactory OrderUoWFactory, effects SideEffects) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		uowFactory: uowFactory,
		effects:    effects,
	}
}

// Handle creates the order in Pending status.
func (h CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	aggregate, err := order.NewOrder(
		cmd.OrderID(),
		cmd.CustomerID(),
		cmd.RestaurantID(),
		cmd.DeliveryAddress(),
		cmd.DeliveryPoint(),
		cmd.TotalPrice(),
	)
	if err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, aggregate); err != nil {
		return err
	}
	if err = uow.Commit(ctx); err != nil {
		return err
	}

	metrics.OrdersCreated.Inc()
	h.effects.RecordCreation(ctx, aggregate.ID(), time.Now())
	return nil
}
