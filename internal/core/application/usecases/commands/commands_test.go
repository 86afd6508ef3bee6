package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/payment"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/livecache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedOrder(t *testing.T, f *fixture, target order.Status, paid bool) *order.Order {
	t.Helper()

	point, err := kernel.NewGeoPoint(6.4541, 3.3947)
	require.NoError(t, err)

	aggregate, err := order.NewOrder(
		kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(),
		"12 Marina Road, Lagos Island", &point, 4500)
	require.NoError(t, err)

	now := time.Now()
	if paid {
		require.NoError(t, aggregate.MarkPaid(now))
	}

	path := []order.Status{order.Accepted, order.Preparing, order.Ready,
		order.OnRoute, order.AwaitingConfirmation}
	for _, step := range path {
		if aggregate.Status() == target {
			break
		}
		if aggregate.Status() == step {
			continue
		}
		require.NoError(t, aggregate.TransitionTo(step, "", now))
	}
	require.Equal(t, target, aggregate.Status())

	aggregate.ClearEvents()
	require.NoError(t, memOrderRepo{f.store}.Add(context.Background(), aggregate))

	return aggregate
}

func seedRider(t *testing.T, f *fixture, lat, lon float64) *rider.Rider {
	t.Helper()

	courier, err := rider.NewRider(
		kernel.NewUUID(), kernel.NewUUID(), "Tunde", rider.Motorbike)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, courier.SetOnline(true, now))

	point, err := kernel.NewGeoPoint(lat, lon)
	require.NoError(t, err)
	require.NoError(t, courier.UpdateLocation(point, "Obalende", now))

	courier.ClearEvents()
	require.NoError(t, memRiderRepo{f.store}.Add(context.Background(), courier))

	return courier
}

func seedPayment(t *testing.T, f *fixture, orderID kernel.UUID, reference string) *payment.Payment {
	t.Helper()

	record, err := payment.NewPayment(
		kernel.NewUUID(), orderID, 4500, "NGN", "paystack", reference)
	require.NoError(t, err)
	require.NoError(t, memPaymentRepo{f.store}.Add(context.Background(), record))

	return record
}

func TestCreateOrderCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("places a pending order and records the creation log", func(t *testing.T) {
		f := newFixture()
		handler := NewCreateOrderCommandHandler(memOrderUoWFactory{f.store}, f.effects)

		lat, lon := 6.4541, 3.3947
		orderID := kernel.NewUUID()
		cmd, err := NewCreateOrderCommand(orderID, kernel.NewUUID(), kernel.NewUUID(),
			"12 Marina Road, Lagos Island", &lat, &lon, 4500)
		require.NoError(t, err)

		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memOrderRepo{f.store}.Get(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, order.Pending, stored.Status())
		assert.Equal(t, order.PaymentPending, stored.PaymentStatus())
		require.NotNil(t, stored.DeliveryPoint())

		logs, err := memStatusLogRepo{f.store}.GetByOrder(ctx, orderID, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "Order created", logs[0].Note)
		assert.Equal(t, order.SystemActor, logs[0].Actor)
	})

	t.Run("rejects a lone coordinate", func(t *testing.T) {
		lat := 6.4541
		_, err := NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(),
			"12 Marina Road", &lat, nil, 4500)
		assert.ErrorIs(t, err, ErrCoordinatesArePartial)
	})
}

func TestUpdateOrderStatusCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("applies a legal transition and publishes it", func(t *testing.T) {
		f := newFixture()
		handler := NewUpdateOrderStatusCommandHandler(memOrderUoWFactory{f.store}, f.effects)
		seeded := seedOrder(t, f, order.Pending, false)

		cmd, err := NewUpdateOrderStatusCommand(seeded.ID(), order.Accepted, "restaurant:1", "")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.Accepted, stored.Status())
		require.NotNil(t, stored.AcceptedAt())

		assert.Contains(t, f.publisher.names(), "order.status.updated")

		logs, err := memStatusLogRepo{f.store}.GetByOrder(ctx, seeded.ID(), 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "restaurant:1", logs[0].Actor)
	})

	t.Run("rejects a skipped stage and leaves the order untouched", func(t *testing.T) {
		f := newFixture()
		handler := NewUpdateOrderStatusCommandHandler(memOrderUoWFactory{f.store}, f.effects)
		seeded := seedOrder(t, f, order.Pending, false)

		cmd, err := NewUpdateOrderStatusCommand(seeded.ID(), order.Ready, "restaurant:1", "")
		require.NoError(t, err)

		err = handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.Pending, stored.Status())
		assert.Empty(t, f.publisher.events)
	})
}

func TestCancelOrderCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelling a paid order requests a refund", func(t *testing.T) {
		f := newFixture()
		handler := NewCancelOrderCommandHandler(memOrderUoWFactory{f.store}, f.effects)
		seeded := seedOrder(t, f, order.Accepted, true)

		cmd, err := NewCancelOrderCommand(seeded.ID(), "customer:7", "changed my mind")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.Cancelled, stored.Status())
		assert.Contains(t, f.publisher.names(), "order.refund.requested")
	})

	t.Run("an order on route cannot be cancelled", func(t *testing.T) {
		f := newFixture()
		handler := NewCancelOrderCommandHandler(memOrderUoWFactory{f.store}, f.effects)
		seeded := seedOrder(t, f, order.OnRoute, true)

		cmd, err := NewCancelOrderCommand(seeded.ID(), "customer:7", "too late")
		require.NoError(t, err)

		err = handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, errs.ErrInvalidOperation)
	})
}

func TestAssignRiderCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("binds the rider and moves the order on route", func(t *testing.T) {
		f := newFixture()
		handler := NewAssignRiderCommandHandler(memDispatchUoWFactory{f.store}, f.effects)
		seeded := seedOrder(t, f, order.Ready, true)
		courier := seedRider(t, f, 6.4550, 3.3950)

		cmd, err := NewAssignRiderCommand(seeded.ID(), courier.ID(), "dispatcher:2")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.OnRoute, stored.Status())
		require.NotNil(t, stored.Assignment())
		assert.True(t, stored.Assignment().RiderID.IsEqual(courier.ID()))
		assert.Zero(t, stored.AssignmentAttempts())

		storedRider, err := memRiderRepo{f.store}.Get(ctx, courier.ID())
		require.NoError(t, err)
		require.NotNil(t, storedRider.ActiveOrderID())
		assert.True(t, storedRider.ActiveOrderID().IsEqual(seeded.ID()))

		assert.Contains(t, f.publisher.names(), "order.rider.assigned")
	})

	t.Run("a busy rider cannot take a second order", func(t *testing.T) {
		f := newFixture()
		handler := NewAssignRiderCommandHandler(memDispatchUoWFactory{f.store}, f.effects)
		first := seedOrder(t, f, order.Ready, true)
		second := seedOrder(t, f, order.Ready, true)
		courier := seedRider(t, f, 6.4550, 3.3950)

		cmd, err := NewAssignRiderCommand(first.ID(), courier.ID(), "dispatcher:2")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		cmd, err = NewAssignRiderCommand(second.ID(), courier.ID(), "dispatcher:2")
		require.NoError(t, err)
		assert.ErrorIs(t, handler.Handle(ctx, cmd), errs.ErrInvalidOperation)

		stored, err := memOrderRepo{f.store}.Get(ctx, second.ID())
		require.NoError(t, err)
		assert.Nil(t, stored.Assignment())
	})
}

func TestConfirmDeliveryCommandHandler(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, f *fixture) (*order.Order, *rider.Rider) {
		t.Helper()
		seeded := seedOrder(t, f, order.Ready, true)
		courier := seedRider(t, f, 6.4550, 3.3950)

		assign := NewAssignRiderCommandHandler(memDispatchUoWFactory{f.store}, f.effects)
		cmd, err := NewAssignRiderCommand(seeded.ID(), courier.ID(), "dispatcher:2")
		require.NoError(t, err)
		require.NoError(t, assign.Handle(ctx, cmd))

		update := NewUpdateOrderStatusCommandHandler(memOrderUoWFactory{f.store}, f.effects)
		statusCmd, err := NewUpdateOrderStatusCommand(
			seeded.ID(), order.AwaitingConfirmation, "rider:1", "")
		require.NoError(t, err)
		require.NoError(t, update.Handle(ctx, statusCmd))

		return seeded, courier
	}

	t.Run("one confirmation keeps the order open", func(t *testing.T) {
		f := newFixture()
		seeded, _ := setup(t, f)
		handler := NewConfirmDeliveryCommandHandler(memDispatchUoWFactory{f.store}, f.effects)

		cmd, err := NewConfirmDeliveryCommand(seeded.ID(), PartyCustomer, "customer:7")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.AwaitingConfirmation, stored.Status())
		assert.True(t, stored.CustomerConfirmed())
		assert.False(t, stored.RiderConfirmed())
	})

	t.Run("the second confirmation delivers and frees the rider", func(t *testing.T) {
		f := newFixture()
		seeded, courier := setup(t, f)
		handler := NewConfirmDeliveryCommandHandler(memDispatchUoWFactory{f.store}, f.effects)

		for _, party := range []ConfirmingParty{PartyCustomer, PartyRider} {
			cmd, err := NewConfirmDeliveryCommand(seeded.ID(), party, "someone")
			require.NoError(t, err)
			require.NoError(t, handler.Handle(ctx, cmd))
		}

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.Delivered, stored.Status())

		storedRider, err := memRiderRepo{f.store}.Get(ctx, courier.ID())
		require.NoError(t, err)
		assert.Nil(t, storedRider.ActiveOrderID())

		assert.Contains(t, f.publisher.names(), "order.delivered")
		assert.Contains(t, f.publisher.names(), "order.chat.clear")
	})
}

func TestSubmitRatingCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("rating a delivered order feeds the rider average", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Ready, true)
		courier := seedRider(t, f, 6.4550, 3.3950)

		assign := NewAssignRiderCommandHandler(memDispatchUoWFactory{f.store}, f.effects)
		assignCmd, err := NewAssignRiderCommand(seeded.ID(), courier.ID(), "dispatcher:2")
		require.NoError(t, err)
		require.NoError(t, assign.Handle(ctx, assignCmd))

		update := NewUpdateOrderStatusCommandHandler(memOrderUoWFactory{f.store}, f.effects)
		statusCmd, err := NewUpdateOrderStatusCommand(
			seeded.ID(), order.AwaitingConfirmation, "rider:1", "")
		require.NoError(t, err)
		require.NoError(t, update.Handle(ctx, statusCmd))

		confirm := NewConfirmDeliveryCommandHandler(memDispatchUoWFactory{f.store}, f.effects)
		for _, party := range []ConfirmingParty{PartyCustomer, PartyRider} {
			cmd, err := NewConfirmDeliveryCommand(seeded.ID(), party, "someone")
			require.NoError(t, err)
			require.NoError(t, confirm.Handle(ctx, cmd))
		}

		handler := NewSubmitRatingCommandHandler(memDispatchUoWFactory{f.store}, f.effects)
		cmd, err := NewSubmitRatingCommand(seeded.ID(), "customer:7", 4, "quick and polite")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		require.NotNil(t, stored.Rating())
		assert.Equal(t, 4, stored.Rating().Score)

		storedRider, err := memRiderRepo{f.store}.Get(ctx, courier.ID())
		require.NoError(t, err)
		assert.InDelta(t, 4.0, storedRider.RatingAverage(), 0.001)
		assert.Equal(t, 1, storedRider.RatingCount())
	})

	t.Run("an undelivered order cannot be rated", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Preparing, true)

		handler := NewSubmitRatingCommandHandler(memDispatchUoWFactory{f.store}, f.effects)
		cmd, err := NewSubmitRatingCommand(seeded.ID(), "customer:7", 5, "")
		require.NoError(t, err)
		assert.ErrorIs(t, handler.Handle(ctx, cmd), errs.ErrInvalidOperation)
	})
}

func TestVerifyPaymentCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("a successful charge settles payment and accepts the order", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Pending, false)
		seedPayment(t, f, seeded.ID(), "ref-001")

		gateway := &stubGateway{verification: ports.GatewayVerification{
			Succeeded:     true,
			TransactionID: "trx-9",
			Amount:        4500,
			RawResponse:   []byte(`{"status":"success"}`),
		}}
		handler := NewVerifyPaymentCommandHandler(memPaymentUoWFactory{f.store}, gateway, f.effects)

		cmd, err := NewVerifyPaymentCommand("ref-001")
		require.NoError(t, err)

		result, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, result.PaymentStatus)
		assert.Equal(t, order.Accepted, result.OrderStatus)

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.PaymentPaid, stored.PaymentStatus())
		assert.Equal(t, order.Accepted, stored.Status())

		storedPayment, err := memPaymentRepo{f.store}.GetByReference(ctx, "ref-001")
		require.NoError(t, err)
		assert.Equal(t, "trx-9", storedPayment.TransactionID())
	})

	t.Run("verifying twice changes nothing the second time", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Pending, false)
		seedPayment(t, f, seeded.ID(), "ref-002")

		gateway := &stubGateway{verification: ports.GatewayVerification{
			Succeeded: true, TransactionID: "trx-10",
		}}
		handler := NewVerifyPaymentCommandHandler(memPaymentUoWFactory{f.store}, gateway, f.effects)

		cmd, err := NewVerifyPaymentCommand("ref-002")
		require.NoError(t, err)

		_, err = handler.Handle(ctx, cmd)
		require.NoError(t, err)
		first, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)

		result, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, result.PaymentStatus)

		second, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, first.Version(), second.Version())
	})

	t.Run("a failed charge keeps the order pending", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Pending, false)
		seedPayment(t, f, seeded.ID(), "ref-003")

		gateway := &stubGateway{verification: ports.GatewayVerification{
			Succeeded:     false,
			FailureReason: "insufficient funds",
		}}
		handler := NewVerifyPaymentCommandHandler(memPaymentUoWFactory{f.store}, gateway, f.effects)

		cmd, err := NewVerifyPaymentCommand("ref-003")
		require.NoError(t, err)

		result, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusFailed, result.PaymentStatus)
		assert.Equal(t, order.Pending, result.OrderStatus)

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.PaymentFailed, stored.PaymentStatus())
	})

	t.Run("a gateway outage leaves everything untouched", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Pending, false)
		seedPayment(t, f, seeded.ID(), "ref-004")

		gateway := &stubGateway{verifyErr: errs.NewUpstreamError("paystack", errors.New("timeout"))}
		handler := NewVerifyPaymentCommandHandler(memPaymentUoWFactory{f.store}, gateway, f.effects)

		cmd, err := NewVerifyPaymentCommand("ref-004")
		require.NoError(t, err)

		_, err = handler.Handle(ctx, cmd)
		require.Error(t, err)

		storedPayment, err := memPaymentRepo{f.store}.GetByReference(ctx, "ref-004")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPending, storedPayment.Status())
	})
}

func TestInitializePaymentCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a session and stores the pending payment", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Pending, false)

		gateway := &stubGateway{initResult: ports.PaymentInitialization{
			AuthorizationURL: "https://checkout.example/abc",
			AccessCode:       "abc",
			Reference:        "ref-100",
		}}
		handler := NewInitializePaymentCommandHandler(
			memPaymentUoWFactory{f.store}, gateway, "paystack", "NGN", "https://app.example/done")

		cmd, err := NewInitializePaymentCommand(seeded.ID(), "ada@example.com")
		require.NoError(t, err)

		session, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.example/abc", session.AuthorizationURL)

		stored, err := memPaymentRepo{f.store}.GetByReference(ctx, "ref-100")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPending, stored.Status())
		assert.True(t, stored.OrderID().IsEqual(seeded.ID()))
		assert.InDelta(t, 4500.0, stored.Amount(), 0.001)
	})

	t.Run("only pending orders can open a session", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Accepted, true)

		handler := NewInitializePaymentCommandHandler(
			memPaymentUoWFactory{f.store}, &stubGateway{}, "paystack", "NGN", "https://app.example/done")

		cmd, err := NewInitializePaymentCommand(seeded.ID(), "ada@example.com")
		require.NoError(t, err)

		_, err = handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, errs.ErrInvalidOperation)
	})
}

func TestPaymentWebhookCommandHandler(t *testing.T) {
	ctx := context.Background()

	newHandler := func(f *fixture, gateway *stubGateway, ok bool) PaymentWebhookCommandHandler {
		verify := NewVerifyPaymentCommandHandler(memPaymentUoWFactory{f.store}, gateway, f.effects)
		return NewPaymentWebhookCommandHandler(
			stubVerifier{ok: ok}, verify, memPaymentUoWFactory{f.store}, f.effects, discardLogger())
	}

	t.Run("rejects a bad signature", func(t *testing.T) {
		f := newFixture()
		handler := newHandler(f, &stubGateway{}, false)

		cmd, err := NewPaymentWebhookCommand([]byte(`{"event":"charge.success"}`), "sig")
		require.NoError(t, err)

		err = handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, errs.ErrSignatureInvalid)
	})

	t.Run("a charge notification triggers verification", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Pending, false)
		seedPayment(t, f, seeded.ID(), "ref-200")

		gateway := &stubGateway{verification: ports.GatewayVerification{
			Succeeded: true, TransactionID: "trx-20",
		}}
		handler := newHandler(f, gateway, true)

		payload := []byte(`{"event":"charge.success","data":{"reference":"ref-200"}}`)
		cmd, err := NewPaymentWebhookCommand(payload, "sig")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memPaymentRepo{f.store}.GetByReference(ctx, "ref-200")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, stored.Status())
	})

	t.Run("a refund notification settles the refund", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Pending, false)
		seedPayment(t, f, seeded.ID(), "ref-201")

		gateway := &stubGateway{verification: ports.GatewayVerification{
			Succeeded: true, TransactionID: "trx-21",
		}}
		handler := newHandler(f, gateway, true)

		charge := []byte(`{"event":"charge.success","data":{"reference":"ref-201"}}`)
		cmd, err := NewPaymentWebhookCommand(charge, "sig")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		refund := []byte(`{"event":"refund.processed","data":{"reference":"ref-201"}}`)
		cmd, err = NewPaymentWebhookCommand(refund, "sig")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		storedPayment, err := memPaymentRepo{f.store}.GetByReference(ctx, "ref-201")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusRefunded, storedPayment.Status())

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.PaymentRefunded, stored.PaymentStatus())
	})

	t.Run("unknown events are acknowledged and ignored", func(t *testing.T) {
		f := newFixture()
		handler := newHandler(f, &stubGateway{}, true)

		payload := []byte(`{"event":"transfer.success","data":{"reference":"ref-202"}}`)
		cmd, err := NewPaymentWebhookCommand(payload, "sig")
		require.NoError(t, err)
		assert.NoError(t, handler.Handle(ctx, cmd))
	})
}

func TestInitiateRefundCommandHandler(t *testing.T) {
	ctx := context.Background()

	settle := func(t *testing.T, f *fixture, reference string) *payment.Payment {
		t.Helper()
		seeded := seedOrder(t, f, order.Pending, false)
		record := seedPayment(t, f, seeded.ID(), reference)

		gateway := &stubGateway{verification: ports.GatewayVerification{
			Succeeded: true, TransactionID: "trx-30",
		}}
		verify := NewVerifyPaymentCommandHandler(memPaymentUoWFactory{f.store}, gateway, f.effects)
		cmd, err := NewVerifyPaymentCommand(reference)
		require.NoError(t, err)
		_, err = verify.Handle(ctx, cmd)
		require.NoError(t, err)

		return record
	}

	t.Run("moves a completed payment to pending refund", func(t *testing.T) {
		f := newFixture()
		record := settle(t, f, "ref-300")

		gateway := &stubGateway{}
		handler := NewInitiateRefundCommandHandler(memPaymentUoWFactory{f.store}, gateway)

		cmd, err := NewInitiateRefundCommand(record.ID(), "order cancelled")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memPaymentRepo{f.store}.Get(ctx, record.ID())
		require.NoError(t, err)
		assert.Equal(t, payment.StatusRefundPending, stored.Status())
		assert.Equal(t, []string{"trx-30"}, gateway.refundCalls)
	})

	t.Run("a rejected refund leaves the payment completed", func(t *testing.T) {
		f := newFixture()
		record := settle(t, f, "ref-301")

		gateway := &stubGateway{refundErr: errs.NewUpstreamError("paystack", errors.New("declined"))}
		handler := NewInitiateRefundCommandHandler(memPaymentUoWFactory{f.store}, gateway)

		cmd, err := NewInitiateRefundCommand(record.ID(), "order cancelled")
		require.NoError(t, err)
		require.Error(t, handler.Handle(ctx, cmd))

		stored, err := memPaymentRepo{f.store}.Get(ctx, record.ID())
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, stored.Status())
	})

	t.Run("a pending payment cannot be refunded", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Pending, false)
		record := seedPayment(t, f, seeded.ID(), "ref-302")

		handler := NewInitiateRefundCommandHandler(memPaymentUoWFactory{f.store}, &stubGateway{})
		cmd, err := NewInitiateRefundCommand(record.ID(), "mistake")
		require.NoError(t, err)
		assert.ErrorIs(t, handler.Handle(ctx, cmd), errs.ErrInvalidOperation)
	})
}

func TestExpireAssignmentsCommandHandler(t *testing.T) {
	ctx := context.Background()

	assignAndAge := func(t *testing.T, f *fixture, age time.Duration) (*order.Order, *rider.Rider) {
		t.Helper()
		seeded := seedOrder(t, f, order.Ready, true)
		courier := seedRider(t, f, 6.4550, 3.3950)

		assign := NewAssignRiderCommandHandler(memDispatchUoWFactory{f.store}, f.effects)
		cmd, err := NewAssignRiderCommand(seeded.ID(), courier.ID(), "dispatcher:2")
		require.NoError(t, err)
		require.NoError(t, assign.Handle(ctx, cmd))

		// Age the assignment by rewriting the stored timestamp.
		stored := f.store.orders[seeded.ID()]
		stored.Assignment().AssignedAt = time.Now().Add(-age)

		return seeded, courier
	}

	t.Run("an overdue assignment is released back to the pool", func(t *testing.T) {
		f := newFixture()
		seeded, courier := assignAndAge(t, f, time.Hour)

		handler := NewExpireAssignmentsCommandHandler(
			memDispatchUoWFactory{f.store}, 30*time.Minute, f.effects, discardLogger())

		expired, err := handler.Handle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, expired)

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.Ready, stored.Status())
		assert.Nil(t, stored.Assignment())
		assert.Equal(t, 1, stored.AssignmentAttempts())

		storedRider, err := memRiderRepo{f.store}.Get(ctx, courier.ID())
		require.NoError(t, err)
		assert.Nil(t, storedRider.ActiveOrderID())
	})

	t.Run("a fresh assignment is left alone", func(t *testing.T) {
		f := newFixture()
		seeded, _ := assignAndAge(t, f, 5*time.Minute)

		handler := NewExpireAssignmentsCommandHandler(
			memDispatchUoWFactory{f.store}, 30*time.Minute, f.effects, discardLogger())

		expired, err := handler.Handle(ctx)
		require.NoError(t, err)
		assert.Zero(t, expired)

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		require.NotNil(t, stored.Assignment())
	})
}

func TestDispatchReadyOrdersCommandHandler(t *testing.T) {
	ctx := context.Background()

	newHandler := func(f *fixture) DispatchReadyOrdersCommandHandler {
		dispatcher := services.NewDispatcher(10, 10*time.Minute)
		return NewDispatchReadyOrdersCommandHandler(
			memDispatchUoWFactory{f.store}, dispatcher, f.effects, discardLogger())
	}

	t.Run("a ready order gets the nearest rider", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Ready, true)
		far := seedRider(t, f, 6.5244, 3.3792)
		near := seedRider(t, f, 6.4550, 3.3950)

		assigned, err := newHandler(f).Handle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, assigned)

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		require.NotNil(t, stored.Assignment())
		assert.True(t, stored.Assignment().RiderID.IsEqual(near.ID()))

		storedFar, err := memRiderRepo{f.store}.Get(ctx, far.ID())
		require.NoError(t, err)
		assert.Nil(t, storedFar.ActiveOrderID())
	})

	t.Run("passes with no rider escalate to manual assignment", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Ready, true)
		handler := newHandler(f)

		for i := 0; i < order.MaxAssignmentAttempts; i++ {
			assigned, err := handler.Handle(ctx)
			require.NoError(t, err, fmt.Sprintf("pass %d", i+1))
			assert.Zero(t, assigned)
		}

		stored, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.MaxAssignmentAttempts, stored.AssignmentAttempts())
		assert.True(t, stored.RequiresManualAssignment())
		assert.Contains(t, f.publisher.names(), "order.assignment.failed")

		// Escalated orders drop out of the automatic pool.
		assigned, err := handler.Handle(ctx)
		require.NoError(t, err)
		assert.Zero(t, assigned)
		after, err := memOrderRepo{f.store}.Get(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, order.MaxAssignmentAttempts, after.AssignmentAttempts())
	})
}

func TestCleanupHistoryCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("removes rows past the retention horizon", func(t *testing.T) {
		f := newFixture()
		orderID := kernel.NewUUID()

		old, err := order.NewStatusLog(orderID, order.Unknown, order.Pending,
			order.SystemActor, "Order created", time.Now().Add(-60*24*time.Hour))
		require.NoError(t, err)
		fresh, err := order.NewStatusLog(orderID, order.Pending, order.Accepted,
			"restaurant:1", "", time.Now())
		require.NoError(t, err)
		require.NoError(t, memStatusLogRepo{f.store}.Append(ctx, old))
		require.NoError(t, memStatusLogRepo{f.store}.Append(ctx, fresh))

		handler := NewCleanupHistoryCommandHandler(
			memCleanupUoWFactory{f.store}, 30*24*time.Hour, discardLogger())

		removed, err := handler.Handle(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		remaining, err := memStatusLogRepo{f.store}.GetByOrder(ctx, orderID, 10)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, order.Accepted, remaining[0].ToStatus)
	})

	t.Run("drops failed payments past the horizon but keeps completed ones", func(t *testing.T) {
		f := newFixture()
		aggregate := seedOrder(t, f, order.Pending, false)

		stale := seedPayment(t, f, aggregate.ID(), "ref-old")
		applied, err := stale.MarkFailed("Insufficient funds", nil, time.Now().Add(-60*24*time.Hour))
		require.NoError(t, err)
		require.True(t, applied)
		require.NoError(t, memPaymentRepo{f.store}.Update(ctx, stale))

		settled := seedPayment(t, f, aggregate.ID(), "ref-settled")
		applied, err = settled.MarkCompleted("trx-1", nil, time.Now().Add(-60*24*time.Hour))
		require.NoError(t, err)
		require.True(t, applied)
		require.NoError(t, memPaymentRepo{f.store}.Update(ctx, settled))

		handler := NewCleanupHistoryCommandHandler(
			memCleanupUoWFactory{f.store}, 30*24*time.Hour, discardLogger())

		removed, err := handler.Handle(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		_, err = memPaymentRepo{f.store}.Get(ctx, stale.ID())
		assert.ErrorIs(t, err, errs.ErrObjectNotFound)
		_, err = memPaymentRepo{f.store}.Get(ctx, settled.ID())
		assert.NoError(t, err)
	})
}

func TestUpdateRiderLocationCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("persists the report and refreshes the live cache", func(t *testing.T) {
		f := newFixture()
		courier := seedRider(t, f, 6.4550, 3.3950)
		cache := livecache.New[rider.LocationRecord](10 * time.Minute)

		handler := NewUpdateRiderLocationCommandHandler(
			memRiderUoWFactory{f.store}, cache, f.effects)

		cmd, err := NewUpdateRiderLocationCommand(courier.ID(), 6.4612, 3.4020, "Bonny Camp")
		require.NoError(t, err)

		record, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, "Bonny Camp", record.Address)

		cached, _, ok := cache.Get(courier.ID().String())
		require.True(t, ok)
		assert.Equal(t, record.ID, cached.ID)

		history, err := memLocationRepo{f.store}.GetHistory(ctx, courier.ID(), 10)
		require.NoError(t, err)
		require.Len(t, history, 1)

		stored, err := memRiderRepo{f.store}.Get(ctx, courier.ID())
		require.NoError(t, err)
		require.NotNil(t, stored.Position())
		assert.Equal(t, "Bonny Camp", stored.LastKnownAddress())
	})
}

func TestSetRiderAvailabilityCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("toggling publishes the availability change", func(t *testing.T) {
		f := newFixture()
		courier := seedRider(t, f, 6.4550, 3.3950)

		handler := NewSetRiderAvailabilityCommandHandler(memRiderUoWFactory{f.store}, f.effects)
		cmd, err := NewSetRiderAvailabilityCommand(courier.ID(), false)
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memRiderRepo{f.store}.Get(ctx, courier.ID())
		require.NoError(t, err)
		assert.False(t, stored.Online())
		assert.Contains(t, f.publisher.names(), "rider.availability.changed")
	})

	t.Run("repeating the current state is a silent no-op", func(t *testing.T) {
		f := newFixture()
		courier := seedRider(t, f, 6.4550, 3.3950)

		handler := NewSetRiderAvailabilityCommandHandler(memRiderUoWFactory{f.store}, f.effects)
		cmd, err := NewSetRiderAvailabilityCommand(courier.ID(), true)
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memRiderRepo{f.store}.Get(ctx, courier.ID())
		require.NoError(t, err)
		assert.Equal(t, courier.Version(), stored.Version())
		assert.Empty(t, f.publisher.events)
	})
}

func TestBulkUpdateStatusCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("a batch succeeds when at least one order transitions", func(t *testing.T) {
		f := newFixture()
		good := seedOrder(t, f, order.Pending, false)
		bad := seedOrder(t, f, order.Ready, true)

		update := NewUpdateOrderStatusCommandHandler(memOrderUoWFactory{f.store}, f.effects)
		handler := NewBulkUpdateStatusCommandHandler(update, discardLogger())

		cmd, err := NewBulkUpdateStatusCommand(
			[]kernel.UUID{good.ID(), bad.ID()}, order.Accepted, "restaurant:1", "")
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		stored, err := memOrderRepo{f.store}.Get(ctx, good.ID())
		require.NoError(t, err)
		assert.Equal(t, order.Accepted, stored.Status())
	})

	t.Run("a batch where every order fails returns an error", func(t *testing.T) {
		f := newFixture()
		bad := seedOrder(t, f, order.Ready, true)

		update := NewUpdateOrderStatusCommandHandler(memOrderUoWFactory{f.store}, f.effects)
		handler := NewBulkUpdateStatusCommandHandler(update, discardLogger())

		cmd, err := NewBulkUpdateStatusCommand(
			[]kernel.UUID{bad.ID()}, order.Accepted, "restaurant:1", "")
		require.NoError(t, err)
		assert.ErrorIs(t, handler.Handle(ctx, cmd), ErrAllTransitionsFailed)
	})

	t.Run("an empty batch is rejected up front", func(t *testing.T) {
		_, err := NewBulkUpdateStatusCommand(nil, order.Accepted, "restaurant:1", "")
		assert.ErrorIs(t, err, ErrNoOrdersInBatch)
	})
}

func TestDeleteOrderCommandHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("a pending order can be deleted", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Pending, false)

		handler := NewDeleteOrderCommandHandler(memOrderUoWFactory{f.store})
		cmd, err := NewDeleteOrderCommand(seeded.ID())
		require.NoError(t, err)
		require.NoError(t, handler.Handle(ctx, cmd))

		_, err = memOrderRepo{f.store}.Get(ctx, seeded.ID())
		assert.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	t.Run("an in-flight order cannot be deleted", func(t *testing.T) {
		f := newFixture()
		seeded := seedOrder(t, f, order.Preparing, true)

		handler := NewDeleteOrderCommandHandler(memOrderUoWFactory{f.store})
		cmd, err := NewDeleteOrderCommand(seeded.ID())
		require.NoError(t, err)
		assert.ErrorIs(t, handler.Handle(ctx, cmd), errs.ErrInvalidOperation)
	})
}
