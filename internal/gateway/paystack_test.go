package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPaystack_InitializeSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_key" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req paystackInitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Reference != "CC-1-abc" || req.Amount != 517500 {
			t.Errorf("unexpected request %+v", req)
		}

		_ = json.NewEncoder(w).Encode(paystackInitResponse{
			Status: true,
			Data: struct {
				AuthorizationURL string `json:"authorization_url"`
				AccessCode       string `json:"access_code"`
				Reference        string `json:"reference"`
			}{
				AuthorizationURL: "https://checkout.paystack.com/abc123",
				AccessCode:       "abc123",
				Reference:        req.Reference,
			},
		})
	}))
	defer srv.Close()

	c := NewPaystackClient(srv.URL, "sk_test_key", 5*time.Second)
	sess, err := c.InitializeSession(context.Background(), SessionRequest{
		Reference:  "CC-1-abc",
		AmountKobo: 517500,
		Email:      "ada@example.com",
	})
	if err != nil {
		t.Fatalf("InitializeSession failed: %v", err)
	}
	if sess.AuthorizationURL != "https://checkout.paystack.com/abc123" {
		t.Errorf("unexpected authorization URL %q", sess.AuthorizationURL)
	}
}

func TestPaystack_InitializeSession_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewPaystackClient(srv.URL, "sk", time.Second)
	_, err := c.InitializeSession(context.Background(), SessionRequest{Reference: "r"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPaystack_InitializeSession_NetworkError(t *testing.T) {
	c := NewPaystackClient("http://127.0.0.1:1", "sk", 500*time.Millisecond)
	_, err := c.InitializeSession(context.Background(), SessionRequest{Reference: "r"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPaystack_VerifyTransaction_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/CC-1-abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var out paystackVerifyResponse
		out.Status = true
		out.Data.Status = "success"
		out.Data.Amount = 517500
		out.Data.Channel = "card"
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	c := NewPaystackClient(srv.URL, "sk", time.Second)
	res, err := c.VerifyTransaction(context.Background(), "CC-1-abc")
	if err != nil {
		t.Fatalf("VerifyTransaction failed: %v", err)
	}
	if res.Status != StatusSuccess || res.AmountPaidKobo != 517500 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestPaystack_VerifyTransaction_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var out paystackVerifyResponse
		out.Status = true
		out.Data.Status = "failed"
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	c := NewPaystackClient(srv.URL, "sk", time.Second)
	res, err := c.VerifyTransaction(context.Background(), "CC-1-abc")
	if err != nil {
		t.Fatalf("VerifyTransaction failed: %v", err)
	}
	if res.Status != StatusFailed {
		t.Errorf("expected failed status, got %s", res.Status)
	}
}

func TestPaystack_VerifyTransaction_UnknownReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewPaystackClient(srv.URL, "sk", time.Second)
	res, err := c.VerifyTransaction(context.Background(), "CC-bogus")
	if err != nil {
		t.Fatalf("VerifyTransaction failed: %v", err)
	}
	if res.Status != StatusFailed {
		t.Errorf("unknown reference should verify as failed, got %s", res.Status)
	}
}

func TestPaystack_VerifyTransaction_TransportError(t *testing.T) {
	c := NewPaystackClient("http://127.0.0.1:1", "sk", 500*time.Millisecond)
	_, err := c.VerifyTransaction(context.Background(), "CC-1-abc")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
