package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

type StripeProcessor struct {
	api           *client.API
	webhookSecret string
	log           *zap.Logger
}

func NewStripeProcessor(secretKey, webhookSecret string, log *zap.Logger) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &StripeProcessor{
		api:           api,
		webhookSecret: webhookSecret,
		log:           log.With(zap.String("gateway", "stripe")),
	}
}

func (p *StripeProcessor) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(ToMinorUnits(req.Amount)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		p.log.Error("Failed to create payment intent", zap.Error(err), zap.Any("metadata", req.Metadata))
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return intentFrom(pi), nil
}

func (p *StripeProcessor) CaptureConfirmedIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Capture(intentID, params)
	if err != nil {
		p.log.Error("Failed to capture payment intent", zap.Error(err), zap.String("intent_id", intentID))
		return nil, fmt.Errorf("capture payment intent %s: %w", intentID, err)
	}

	return intentFrom(pi), nil
}

func (p *StripeProcessor) CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error) {
	params := &stripe.RefundParams{
		Charge: stripe.String(req.ChargeID),
		Amount: stripe.Int64(ToMinorUnits(req.Amount)),
		Reason: stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	r, err := p.api.Refunds.New(params)
	if err != nil {
		p.log.Error("Failed to create refund", zap.Error(err), zap.String("charge_id", req.ChargeID))
		return nil, fmt.Errorf("create refund for charge %s: %w", req.ChargeID, err)
	}

	return &Refund{ID: r.ID, Status: string(r.Status)}, nil
}

func (p *StripeProcessor) TransferToPayoutAccount(ctx context.Context, req TransferRequest) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(ToMinorUnits(req.Amount)),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Destination: stripe.String(req.Destination),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	t, err := p.api.Transfers.New(params)
	if err != nil {
		p.log.Error("Failed to create transfer", zap.Error(err), zap.String("destination", req.Destination))
		return nil, fmt.Errorf("transfer to %s: %w", req.Destination, err)
	}

	return &Transfer{ID: t.ID}, nil
}

func (p *StripeProcessor) VerifyWebhookSignature(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	event := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil {
		event.Object = ev.Data.Raw
	}
	return event, nil
}

func intentFrom(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}
	if pi.LatestCharge != nil {
		intent.ChargeID = pi.LatestCharge.ID
	}
	return intent
}
