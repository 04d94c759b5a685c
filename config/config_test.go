package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGODB_CONNSTRING", "mongodb://localhost:27017/?replicaSet=rs0")
	t.Setenv("SIGN", "test-sign")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "eventhub", cfg.Database)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, 8*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.PaymentTimeout)
	assert.Equal(t, 2, cfg.PaymentMaxRetries)
	assert.Equal(t, time.Duration(0), cfg.ReminderInterval)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYMENT_CURRENCY", "EUR")
	t.Setenv("PAYMENT_TIMEOUT", "3s")
	t.Setenv("PAYMENT_MAX_RETRIES", "5")
	t.Setenv("REMINDER_INTERVAL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, 3*time.Second, cfg.PaymentTimeout)
	assert.Equal(t, 5, cfg.PaymentMaxRetries)
	assert.Equal(t, time.Hour, cfg.ReminderInterval)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		description string
		key         string
		value       string
	}{
		{"unparsable timeout", "PAYMENT_TIMEOUT", "soon"},
		{"zero timeout", "PAYMENT_TIMEOUT", "0s"},
		{"negative retries", "PAYMENT_MAX_RETRIES", "-1"},
		{"non numeric retries", "PAYMENT_MAX_RETRIES", "many"},
		{"mailer without sender", "MAILERSEND_API_KEY", "mlsn.key"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			setRequired(t)
			t.Setenv(test.key, test.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetSecretMissing(t *testing.T) {
	_, err := GetSecret("EVENTHUB_SURELY_UNSET_KEY")
	assert.Error(t, err)
}
