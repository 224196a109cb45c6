// Package gateway defines the payment gateway contract and its
// provider implementations.
//
// The redirect that brings a payer back to the platform is only a
// trigger: VerifyTransaction is the authoritative source of a
// payment's outcome and must be called server-side before any
// provisioning happens.
package gateway

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates a transport-level failure talking to the
// provider (network error, non-2xx). The caller must not treat it as
// a payment outcome: pre-payment it discards the registration,
// post-payment it leaves the registration PENDING for retry.
var ErrUnavailable = errors.New("gateway: unavailable")

// Status is a gateway-confirmed payment outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// SessionRequest describes a hosted checkout session to create.
type SessionRequest struct {
	Reference   string            // Unique reference, shared with the provider
	AmountKobo  int64             // Total charge including the gateway surcharge
	Email       string            // Payer email
	CallbackURL string            // Where the provider redirects after payment
	Metadata    map[string]string // Opaque metadata echoed back by the provider
}

// Session is a created hosted checkout session.
type Session struct {
	AuthorizationURL string // Where to send the payer
	ProviderRef      string // Provider-side identifier, if any
}

// VerifyResult is the provider's verdict on a transaction.
type VerifyResult struct {
	Status         Status
	AmountPaidKobo int64
	PaidAt         time.Time
	Channel        string // e.g. "card", "bank_transfer"
}

// Gateway is the payment provider contract.
type Gateway interface {
	Name() string
	InitializeSession(ctx context.Context, req SessionRequest) (*Session, error)
	VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error)
}
