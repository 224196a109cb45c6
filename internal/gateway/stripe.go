package gateway

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeGateway implements Gateway on Stripe Checkout. The payment
// reference travels as payment-intent metadata so verification can
// find the transaction without storing Stripe's own identifiers.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a Stripe-backed gateway.
func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

// Name returns the provider name.
func (s *StripeGateway) Name() string { return "stripe" }

// InitializeSession creates a Stripe Checkout session for the charge.
func (s *StripeGateway) InitializeSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.Reference),
		CustomerEmail:     stripe.String(req.Email),
		SuccessURL:        stripe.String(req.CallbackURL + "?reference=" + req.Reference),
		CancelURL:         stripe.String(req.CallbackURL + "?reference=" + req.Reference),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyNGN)),
					UnitAmount: stripe.Int64(req.AmountKobo),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Registration fee"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"reference": req.Reference},
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe checkout session: %v", ErrUnavailable, err)
	}

	return &Session{
		AuthorizationURL: sess.URL,
		ProviderRef:      sess.ID,
	}, nil
}

// VerifyTransaction searches payment intents by reference metadata.
// A missing or unpaid intent is a confirmed failure; only transport
// errors surface as ErrUnavailable.
func (s *StripeGateway) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	params := &stripe.PaymentIntentSearchParams{
		SearchParams: stripe.SearchParams{
			Query: fmt.Sprintf("metadata['reference']:'%s'", reference),
		},
	}
	params.Context = ctx

	iter := s.api.PaymentIntents.Search(params)
	for iter.Next() {
		pi := iter.PaymentIntent()
		if pi.Status == stripe.PaymentIntentStatusSucceeded {
			return &VerifyResult{
				Status:         StatusSuccess,
				AmountPaidKobo: pi.AmountReceived,
				Channel:        "stripe",
			}, nil
		}
		return &VerifyResult{Status: StatusFailed}, nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: stripe payment intent search: %v", ErrUnavailable, err)
	}

	// No intent carries this reference — nothing was ever paid.
	return &VerifyResult{Status: StatusFailed}, nil
}
