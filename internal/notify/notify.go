// Package notify dispatches activation messages after a registration
// is provisioned. Dispatch is fire-and-forget: a notification failure
// is logged and counted but never fails the registration.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coopcentral/coopcentral/internal/metrics"
)

const dispatchTimeout = 30 * time.Second

// EmailSender delivers a single email message.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers a single SMS message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Dispatcher fans out notifications to the configured channels.
// A nil Dispatcher, or a channel without a configured sender, is a
// no-op, so callers never need to guard their emit sites.
type Dispatcher struct {
	email  EmailSender
	sms    SMSSender
	logger *slog.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Either sender may be nil to
// disable that channel.
func NewDispatcher(email EmailSender, sms SMSSender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{email: email, sms: sms, logger: logger}
}

// SendActivationEmail dispatches an activation email in the background.
func (d *Dispatcher) SendActivationEmail(to, subject, body string) {
	if d == nil || d.email == nil || to == "" {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := d.email.SendEmail(ctx, to, subject, body); err != nil {
			metrics.NotificationsTotal.WithLabelValues("email", "error").Inc()
			d.logger.Warn("activation email failed", "to", to, "error", err)
			return
		}
		metrics.NotificationsTotal.WithLabelValues("email", "ok").Inc()
	}()
}

// SendActivationSMS dispatches an activation SMS in the background.
func (d *Dispatcher) SendActivationSMS(to, body string) {
	if d == nil || d.sms == nil || to == "" {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := d.sms.SendSMS(ctx, to, body); err != nil {
			metrics.NotificationsTotal.WithLabelValues("sms", "error").Inc()
			d.logger.Warn("activation sms failed", "to", to, "error", err)
			return
		}
		metrics.NotificationsTotal.WithLabelValues("sms", "ok").Inc()
	}()
}

// Wait blocks until all in-flight dispatches finish. Used by tests and
// server shutdown.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// ActivationEmail builds the subject and body for a provisioned
// registration.
func ActivationEmail(name, cooperativeName, reference string) (subject, body string) {
	subject = "Welcome to " + cooperativeName
	body = fmt.Sprintf(
		"Hello %s,\n\nYour registration (%s) is complete and your account on %s is active. You can now sign in with your registered email.\n\nCoopCentral",
		name, reference, cooperativeName,
	)
	return subject, body
}

// ActivationSMS builds the SMS body for a provisioned registration.
func ActivationSMS(name, cooperativeName string) string {
	return fmt.Sprintf("Hi %s, your %s account is now active. Welcome aboard!", name, cooperativeName)
}

// HTTPEmailSender posts messages to a JSON email provider API.
type HTTPEmailSender struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *http.Client
}

// NewHTTPEmailSender creates an email sender for the provider at baseURL.
func NewHTTPEmailSender(baseURL, apiKey, sender string) *HTTPEmailSender {
	return &HTTPEmailSender{
		baseURL:    baseURL,
		apiKey:     apiKey,
		sender:     sender,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type emailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendEmail posts the message to the provider.
func (s *HTTPEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(emailRequest{
		From:    s.sender,
		To:      to,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, raw)
	}
	return nil
}

// HTTPSMSSender posts messages to a JSON SMS provider API.
type HTTPSMSSender struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *http.Client
}

// NewHTTPSMSSender creates an SMS sender for the provider at baseURL.
func NewHTTPSMSSender(baseURL, apiKey, sender string) *HTTPSMSSender {
	return &HTTPSMSSender{
		baseURL:    baseURL,
		apiKey:     apiKey,
		sender:     sender,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendSMS posts the message to the provider.
func (s *HTTPSMSSender) SendSMS(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(smsRequest{From: s.sender, To: to, Body: body})
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sms", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, raw)
	}
	return nil
}
