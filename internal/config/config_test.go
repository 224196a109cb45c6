package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_abc123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, "paystack", cfg.GatewayProvider)
	assert.Equal(t, DefaultPaystackBaseURL, cfg.PaystackBaseURL)
	assert.Equal(t, DefaultCooperativeFee, cfg.CooperativeFee)
	assert.Equal(t, DefaultMemberFee, cfg.MemberFee)
	assert.Equal(t, DefaultGatewayTimeout, cfg.GatewayTimeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_MissingGatewayKey(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYSTACK_SECRET_KEY")
}

func TestLoad_StripeProvider(t *testing.T) {
	t.Setenv("GATEWAY_PROVIDER", "stripe")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_stripe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "stripe", cfg.GatewayProvider)
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Setenv("GATEWAY_PROVIDER", "flutterwave")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATEWAY_PROVIDER")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_abc123")
	t.Setenv("COOPERATIVE_FEE", "7500")
	t.Setenv("GATEWAY_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_RPM", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7500.0, cfg.CooperativeFee)
	assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 30, cfg.RateLimitRPM)
}

func TestValidate_ProductionRequiresAdminSecret(t *testing.T) {
	cfg := &Config{
		Env:               "production",
		GatewayProvider:   "paystack",
		PaystackSecretKey: "sk_live_abc",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_SECRET")

	cfg.AdminSecret = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_NegativeFees(t *testing.T) {
	cfg := &Config{
		GatewayProvider:   "paystack",
		PaystackSecretKey: "sk",
		CooperativeFee:    -1,
	}
	assert.Error(t, cfg.Validate())
}
