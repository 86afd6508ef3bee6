package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
	"dispatch/internal/pkg/metrics"
)

var ErrPaymentWebhookCommandIsNotConstructed = errors.New(
	"PaymentWebhookCommand must be created via NewPaymentWebhookCommand constructor",
)

// PaymentWebhookCommand carries a raw gateway notification and the
// signature header it arrived with.
type PaymentWebhookCommand struct { //nolint:recvcheck //using for validation
	payload   []byte
	signature string

	guard guard.ConstructorGuard
}

// NewPaymentWebhookCommand creates a webhook processing command.
func NewPaymentWebhookCommand(payload []byte, signature string) (PaymentWebhookCommand, error) {
	if len(payload) == 0 {
		return PaymentWebhookCommand{}, errs.NewValueIsRequiredError("payload")
	}
	if signature == "" {
		return PaymentWebhookCommand{}, errs.NewValueIsRequiredError("signature")
	}

	return PaymentWebhookCommand{
		payload:   payload,
		signature: signature,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c PaymentWebhookCommand) Validate() error {
	return c.guard.Validate(ErrPaymentWebhookCommandIsNotConstructed)
}

func (c PaymentWebhookCommand) Payload() []byte   { return c.payload }
func (c PaymentWebhookCommand) Signature() string { return c.signature }

type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// PaymentWebhookCommandHandler authenticates gateway notifications and
// routes them to the matching reconciliation path. Charge notifications
// never settle a payment directly: they trigger a verification round trip,
// so a forged or replayed body can only cause a harmless re-check.
type PaymentWebhookCommandHandler struct {
	verifier   ports.WebhookVerifier
	verify     VerifyPaymentCommandHandler
	uowFactory PaymentUoWFactory
	effects    SideEffects
	logger     *slog.Logger
}

// NewPaymentWebhookCommandHandler creates a handler for gateway webhooks.
func NewPaymentWebhookCommandHandler(
	verifier ports.WebhookVerifier,
	verify VerifyPaymentCommandHandler,
	uowFactory PaymentUoWFactory,
	effects SideEffects,
	logger *slog.Logger,
) PaymentWebhookCommandHandler {
	return PaymentWebhookCommandHandler{
		verifier:   verifier,
		verify:     verify,
		uowFactory: uowFactory,
		effects:    effects,
		logger:     logger.With("component", "payment_webhook"),
	}
}

// Handle checks the signature, parses the envelope and dispatches on the
// event kind. Unknown kinds are acknowledged without action so the gateway
// stops retrying them.
func (h PaymentWebhookCommandHandler) Handle(ctx context.Context, cmd PaymentWebhookCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if !h.verifier.VerifySignature(cmd.Payload(), cmd.Signature()) {
		metrics.WebhookEvents.WithLabelValues("invalid_signature").Inc()

		return errs.NewSignatureInvalidError("webhook signature mismatch")
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(cmd.Payload(), &envelope); err != nil {
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()

		return errs.NewValueIsInvalidErrorWithCause("payload", err)
	}
	if envelope.Data.Reference == "" {
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()

		return errs.NewValueIsRequiredError("data.reference")
	}

	switch envelope.Event {
	case "charge.success", "charge.failed":
		verifyCmd, err := NewVerifyPaymentCommand(envelope.Data.Reference)
		if err != nil {
			return err
		}
		if _, err = h.verify.Handle(ctx, verifyCmd); err != nil {
			metrics.WebhookEvents.WithLabelValues("verify_failed").Inc()

			return err
		}
		metrics.WebhookEvents.WithLabelValues("processed").Inc()

		return nil
	case "refund.processed":
		if err := h.finalizeRefund(ctx, envelope.Data.Reference, cmd.Payload()); err != nil {
			metrics.WebhookEvents.WithLabelValues("refund_failed").Inc()

			return err
		}
		metrics.WebhookEvents.WithLabelValues("processed").Inc()

		return nil
	default:
		h.logger.Info("ignoring webhook event", "event", envelope.Event)
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()

		return nil
	}
}

// finalizeRefund settles the local payment and order after the gateway
// confirms the money went back.
func (h PaymentWebhookCommandHandler) finalizeRefund(ctx context.Context, reference string, raw []byte) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	record, err := uow.PaymentRepository().GetByReference(ctx, reference)
	if err != nil {
		return err
	}

	applied, err := record.MarkRefunded(raw, time.Now())
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	aggregate, err := uow.OrderRepository().Get(ctx, record.OrderID())
	if err != nil {
		return err
	}
	if err = aggregate.MarkRefunded(); err != nil {
		return err
	}

	if err = uow.PaymentRepository().Update(ctx, record); err != nil {
		return err
	}
	if err = uow.OrderRepository().Update(ctx, aggregate); err != nil {
		return err
	}
	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.effects.Apply(ctx, order.SystemActor, aggregate)

	return nil
}
