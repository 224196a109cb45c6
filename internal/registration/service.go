package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coopcentral/coopcentral/internal/fees"
	"github.com/coopcentral/coopcentral/internal/gateway"
	"github.com/coopcentral/coopcentral/internal/idgen"
	"github.com/coopcentral/coopcentral/internal/logging"
	"github.com/coopcentral/coopcentral/internal/metrics"
	"github.com/coopcentral/coopcentral/internal/notify"
	"github.com/coopcentral/coopcentral/internal/provisioning"
	"github.com/coopcentral/coopcentral/internal/realtime"
	"github.com/coopcentral/coopcentral/internal/syncutil"
	"github.com/coopcentral/coopcentral/internal/traces"
	"github.com/coopcentral/coopcentral/internal/validation"
)

// CallbackOutcome describes how a payment callback was resolved.
type CallbackOutcome string

const (
	OutcomeProvisioned    CallbackOutcome = "provisioned"
	OutcomeAlreadyHandled CallbackOutcome = "already_handled"
	OutcomeFailed         CallbackOutcome = "failed"
	OutcomeRetryLater     CallbackOutcome = "retry_later"
)

// SubmitResult is returned to the payer after a registration is
// accepted and a gateway session exists.
type SubmitResult struct {
	Reference  string         `json:"reference"`
	PaymentURL string         `json:"paymentUrl"`
	Breakdown  fees.Breakdown `json:"amountBreakdown"`
}

// CallbackResult is the resolution of one payment callback delivery.
type CallbackResult struct {
	Outcome   CallbackOutcome
	Succeeded bool // drives the success vs error redirect
}

// Service orchestrates the registration pipeline: pricing, the pending
// record, the gateway session, verification, provisioning, and
// notifications.
type Service struct {
	store    Store
	gateway  gateway.Gateway
	prov     *provisioning.Service
	entities provisioning.Store
	notify   *notify.Dispatcher
	hub      *realtime.Hub

	cooperativeFee float64
	memberFee      float64
	callbackURL    string

	// Serializes callback handling per reference within this process.
	// The store's compare-and-set transition is the real guard; the
	// lock just keeps the loser from doing a wasted verify call.
	locks *syncutil.ContextShardedMutex
}

// Config carries the service's pricing and callback settings.
type Config struct {
	CooperativeFee float64
	MemberFee      float64
	CallbackURL    string
}

// NewService creates a registration service.
func NewService(store Store, gw gateway.Gateway, prov *provisioning.Service, entities provisioning.Store, dispatcher *notify.Dispatcher, hub *realtime.Hub, cfg Config) *Service {
	return &Service{
		store:          store,
		gateway:        gw,
		prov:           prov,
		entities:       entities,
		notify:         dispatcher,
		hub:            hub,
		cooperativeFee: cfg.CooperativeFee,
		memberFee:      cfg.MemberFee,
		callbackURL:    cfg.CallbackURL,
		locks:          syncutil.NewContextShardedMutex(),
	}
}

// SubmitCooperative validates a cooperative registration, persists it
// as PENDING, and opens a gateway payment session. If the session
// cannot be created the pending record is discarded outright — no
// payment was ever requested, so there is nothing to reconcile.
func (s *Service) SubmitCooperative(ctx context.Context, p CooperativePayload) (*SubmitResult, error) {
	if errs := validateCooperative(p); len(errs) > 0 {
		metrics.RegistrationsTotal.WithLabelValues("cooperative", "rejected").Inc()
		return nil, errs
	}
	p.Phone = validation.NormalizePhone(p.Phone)
	p.LeaderPhone = validation.NormalizePhone(p.LeaderPhone)

	if _, err := s.entities.GetUserByEmail(ctx, p.LeaderEmail); err == nil {
		metrics.RegistrationsTotal.WithLabelValues("cooperative", "conflict").Inc()
		return nil, fmt.Errorf("%w: email %s", ErrConflict, p.LeaderEmail)
	}

	raw, err := EncodeCooperativePayload(p)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, TypeCooperative, raw, s.cooperativeFee, p.LeaderEmail)
}

// SubmitMember validates a member registration, persists it as
// PENDING, and opens a gateway payment session.
func (s *Service) SubmitMember(ctx context.Context, p MemberPayload) (*SubmitResult, error) {
	if errs := validateMember(p); len(errs) > 0 {
		metrics.RegistrationsTotal.WithLabelValues("member", "rejected").Inc()
		return nil, errs
	}
	p.Phone = validation.NormalizePhone(p.Phone)

	if _, err := s.entities.GetUserByEmail(ctx, p.Email); err == nil {
		metrics.RegistrationsTotal.WithLabelValues("member", "conflict").Inc()
		return nil, fmt.Errorf("%w: email %s", ErrConflict, p.Email)
	}
	if _, err := s.entities.GetCooperative(ctx, p.CooperativeID); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("member", "rejected").Inc()
		return nil, validation.ValidationErrors{{Field: "cooperativeId", Message: "unknown cooperative"}}
	}

	raw, err := EncodeMemberPayload(p)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, TypeMember, raw, s.memberFee, p.Email)
}

func (s *Service) submit(ctx context.Context, typ Type, payload []byte, baseFee float64, payerEmail string) (*SubmitResult, error) {
	ctx, span := traces.StartSpan(ctx, "registration.Submit", traces.RegistrationType(string(typ)))
	defer span.End()

	breakdown := fees.ComputeTotal(baseFee)
	regType := labelFor(typ)

	var reg *PendingRegistration
	// A reference collision is vanishingly rare but cheap to retry.
	for attempt := 0; attempt < 2; attempt++ {
		reg = &PendingRegistration{
			ID:        idgen.WithPrefix("reg_"),
			Type:      typ,
			Payload:   payload,
			Reference: idgen.Reference(),
			Status:    StatusPending,
			CreatedAt: time.Now(),
		}
		err := s.store.Create(ctx, reg)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConflict) || attempt == 1 {
			metrics.RegistrationsTotal.WithLabelValues(regType, "error").Inc()
			return nil, err
		}
	}

	log := logging.WithReference(ctx, reg.Reference)
	sess, err := s.gateway.InitializeSession(ctx, gateway.SessionRequest{
		Reference:   reg.Reference,
		AmountKobo:  fees.ToKobo(breakdown.Total),
		Email:       payerEmail,
		CallbackURL: s.callbackURL,
		Metadata:    map[string]string{"registrationType": string(typ)},
	})
	if err != nil {
		// No payment was requested. Discard so the reference never
		// shows up in reconciliation.
		if derr := s.store.Discard(ctx, reg.ID); derr != nil {
			log.Error("failed to discard registration after gateway error", "error", derr)
		}
		metrics.RegistrationsTotal.WithLabelValues(regType, "gateway_unavailable").Inc()
		log.Warn("gateway session creation failed", "type", typ, "error", err)
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues(regType, "submitted").Inc()
	log.Info("registration submitted",
		"type", typ, "base", breakdown.Base, "total", breakdown.Total)
	s.hub.BroadcastRegistration(realtime.EventSubmitted, map[string]interface{}{
		"reference": reg.Reference,
		"type":      typ,
		"total":     breakdown.Total,
	})

	return &SubmitResult{
		Reference:  reg.Reference,
		PaymentURL: sess.AuthorizationURL,
		Breakdown:  breakdown,
	}, nil
}

// HandleCallback resolves a gateway redirect for a reference. The
// redirect is only a trigger: the server-side verify call is the
// authoritative source of the payment outcome.
//
// Transport failure during verify leaves the registration PENDING for
// a later retry. A gateway-confirmed failed payment transitions it to
// FAILED. On success the provisioning run executes, the registration
// completes, and activation notifications fire in the background.
func (s *Service) HandleCallback(ctx context.Context, reference string) (*CallbackResult, error) {
	ctx, span := traces.StartSpan(ctx, "registration.HandleCallback", traces.Reference(reference))
	defer span.End()
	log := logging.WithReference(ctx, reference)

	unlock, err := s.locks.LockContext(ctx, reference)
	if err != nil {
		return nil, err
	}
	defer unlock()

	reg, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if reg.Status != StatusPending {
		log.Info("callback for settled registration", "status", reg.Status)
		return &CallbackResult{
			Outcome:   OutcomeAlreadyHandled,
			Succeeded: reg.Status == StatusCompleted,
		}, nil
	}

	verify, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		// Gateway did not answer. That is not "gateway said failed":
		// leave the registration PENDING so a retry can settle it.
		log.Warn("verification unavailable, leaving registration pending", "error", err)
		return &CallbackResult{Outcome: OutcomeRetryLater}, nil
	}

	regType := labelFor(reg.Type)
	if verify.Status != gateway.StatusSuccess {
		if err := s.store.Transition(ctx, reg.ID, StatusFailed); err != nil {
			if errors.Is(err, ErrInvalidState) {
				return &CallbackResult{Outcome: OutcomeAlreadyHandled}, nil
			}
			return nil, err
		}
		metrics.RegistrationsTotal.WithLabelValues(regType, "payment_failed").Inc()
		log.Info("payment failed at gateway")
		s.hub.BroadcastRegistration(realtime.EventFailed, map[string]interface{}{
			"reference": reference, "reason": "payment_failed",
		})
		return &CallbackResult{Outcome: OutcomeFailed}, nil
	}

	log.Info("payment confirmed", "amount_paid_kobo", verify.AmountPaidKobo, "channel", verify.Channel)
	s.hub.BroadcastRegistration(realtime.EventPaymentConfirmed, map[string]interface{}{
		"reference": reference, "amountPaidKobo": verify.AmountPaidKobo,
	})

	result, provErr := s.provision(ctx, reg, verify.AmountPaidKobo)
	if provErr != nil {
		// Funds were captured but no entities exist. Mark FAILED and
		// let the error surface as an operational alert.
		if terr := s.store.Transition(ctx, reg.ID, StatusFailed); terr != nil && !errors.Is(terr, ErrInvalidState) {
			log.Error("failed to mark registration FAILED", "error", terr)
		}
		metrics.RegistrationsTotal.WithLabelValues(regType, "provisioning_failed").Inc()
		s.hub.BroadcastRegistration(realtime.EventFailed, map[string]interface{}{
			"reference": reference, "reason": "provisioning_failed",
		})
		return &CallbackResult{Outcome: OutcomeFailed}, provErr
	}

	if err := s.store.Transition(ctx, reg.ID, StatusCompleted); err != nil {
		if errors.Is(err, ErrInvalidState) {
			// Lost a cross-process race after provisioning; the ledger's
			// unique reference prevented a double provision upstream.
			return &CallbackResult{Outcome: OutcomeAlreadyHandled, Succeeded: true}, nil
		}
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues(regType, "completed").Inc()
	log.Info("registration provisioned", "base_kobo", result.BaseAmountKobo)
	s.hub.BroadcastRegistration(realtime.EventProvisioned, map[string]interface{}{
		"reference": reference, "baseAmountKobo": result.BaseAmountKobo,
	})
	s.sendActivation(reg, result)

	return &CallbackResult{Outcome: OutcomeProvisioned, Succeeded: true}, nil
}

// provision decodes the stored payload and runs the matching
// provisioning flow.
func (s *Service) provision(ctx context.Context, reg *PendingRegistration, amountPaidKobo int64) (*provisioning.Result, error) {
	switch reg.Type {
	case TypeCooperative:
		p, err := DecodeCooperativePayload(reg.Payload)
		if err != nil {
			return nil, err
		}
		return s.prov.ProvisionCooperative(ctx, provisioning.CooperativeInput{
			Name:            p.Name,
			RegNumber:       p.RegNumber,
			Email:           p.Email,
			Phone:           p.Phone,
			Address:         p.Address,
			AccountNumber:   p.AccountNumber,
			BankCode:        p.BankCode,
			ParentOrgID:     p.ParentOrgID,
			LeaderFirstName: p.LeaderFirstName,
			LeaderLastName:  p.LeaderLastName,
			LeaderEmail:     p.LeaderEmail,
			LeaderPhone:     p.LeaderPhone,
			LeaderNIN:       p.LeaderNIN,
			Password:        p.Password,
		}, reg.Reference, amountPaidKobo)
	case TypeMember:
		p, err := DecodeMemberPayload(reg.Payload)
		if err != nil {
			return nil, err
		}
		return s.prov.ProvisionMember(ctx, provisioning.MemberInput{
			CooperativeID: p.CooperativeID,
			FirstName:     p.FirstName,
			LastName:      p.LastName,
			Email:         p.Email,
			Phone:         p.Phone,
			NIN:           p.NIN,
			Password:      p.Password,
		}, reg.Reference, amountPaidKobo)
	default:
		return nil, fmt.Errorf("unknown registration type %q", reg.Type)
	}
}

// sendActivation fires the account-activation messages. Failures are
// logged inside the dispatcher and never affect the registration.
func (s *Service) sendActivation(reg *PendingRegistration, result *provisioning.Result) {
	if len(result.Entities.Users) == 0 {
		return
	}
	user := result.Entities.Users[0]
	coopName := "your cooperative"
	if result.Entities.Cooperative != nil {
		coopName = result.Entities.Cooperative.Name
	}
	subject, body := notify.ActivationEmail(user.FirstName, coopName, reg.Reference)
	s.notify.SendActivationEmail(user.Email, subject, body)
	s.notify.SendActivationSMS(user.Phone, notify.ActivationSMS(user.FirstName, coopName))
}

// GetByReference looks up a registration for the status endpoint.
func (s *Service) GetByReference(ctx context.Context, reference string) (*PendingRegistration, error) {
	return s.store.GetByReference(ctx, reference)
}

func labelFor(t Type) string {
	if t == TypeMember {
		return "member"
	}
	return "cooperative"
}

func validateCooperative(p CooperativePayload) validation.ValidationErrors {
	return validation.Validate(
		validation.Required("name", p.Name),
		validation.Required("regNumber", p.RegNumber),
		validation.Email("email", p.Email),
		validation.Phone("phone", p.Phone),
		validation.AccountNumber("accountNumber", p.AccountNumber),
		validation.Required("leaderFirstName", p.LeaderFirstName),
		validation.Required("leaderLastName", p.LeaderLastName),
		validation.Email("leaderEmail", p.LeaderEmail),
		validation.Phone("leaderPhone", p.LeaderPhone),
		validation.NIN("leaderNin", p.LeaderNIN),
		validation.Required("password", p.Password),
		func() *validation.ValidationError {
			if !validation.IsValidRegNumber(p.RegNumber) {
				return &validation.ValidationError{Field: "regNumber", Message: "must be a CAC registration number"}
			}
			return nil
		},
	)
}

func validateMember(p MemberPayload) validation.ValidationErrors {
	return validation.Validate(
		validation.Required("cooperativeId", p.CooperativeID),
		validation.Required("firstName", p.FirstName),
		validation.Required("lastName", p.LastName),
		validation.Email("email", p.Email),
		validation.Phone("phone", p.Phone),
		validation.NIN("nin", p.NIN),
		validation.Required("password", p.Password),
	)
}
