package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"
)

type StripeGateway struct {
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, orderID int64, amount int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	params.AddMetadata("order_id", strconv.FormatInt(orderID, 10))

	pi, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			// 5xx系は一時障害扱いでリトライに回す
			if stripeErr.HTTPStatusCode >= 500 {
				return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
			}
			return "", err
		}
		// ネットワークエラー等
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return pi.ID, nil
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (VerifiedEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return VerifiedEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var outcome Outcome
	switch event.Type {
	case "payment_intent.succeeded":
		outcome = OutcomeSucceeded
	case "payment_intent.payment_failed":
		outcome = OutcomeFailed
	default:
		return VerifiedEvent{}, fmt.Errorf("%w: %s", ErrUnhandledEvent, event.Type)
	}

	var pi stripe.PaymentIntent
	if err := pi.UnmarshalJSON(event.Data.Raw); err != nil {
		return VerifiedEvent{}, fmt.Errorf("parse payment_intent: %w", err)
	}

	var orderID int64
	if v, ok := pi.Metadata["order_id"]; ok {
		orderID, _ = strconv.ParseInt(v, 10, 64)
	}

	return VerifiedEvent{
		EventID:    event.ID,
		PaymentRef: pi.ID,
		OrderID:    orderID,
		Outcome:    outcome,
		Raw:        payload,
	}, nil
}
