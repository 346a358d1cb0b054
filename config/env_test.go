package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFilesLayering(t *testing.T) {
	require.NoError(t, Load())
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	envPath := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"delivery_fee": 25, "store_name": "Corner Shop"}`), 0o644))
	require.NoError(t, os.WriteFile(envPath, []byte("# comment\nSTORE_NAME=\"Night Market\"\nPAYMENT_TIMEOUT=2s\n"), 0o644))

	require.NoError(t, loadFromFiles(jsonPath, envPath))
	t.Cleanup(func() { _ = loadFromFiles(filepath.Join(dir, "missing.json"), filepath.Join(dir, "missing.env")) })

	assert.Equal(t, 25.0, DeliveryFee())
	assert.Equal(t, "Night Market", StoreName())
	assert.Equal(t, 2*time.Second, PaymentTimeout())
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	Set("DELIVERY_FEE", "not-a-number")
	Set("PAYMENT_TIMEOUT", "-1s")
	Set("DB_DRIVER", "oracle")
	t.Cleanup(func() {
		Set("DELIVERY_FEE", defaultDeliveryFee)
		Set("PAYMENT_TIMEOUT", defaultPaymentTimeout)
		Set("DB_DRIVER", defaultDatabaseDriver)
	})

	assert.Equal(t, 40.0, DeliveryFee())
	assert.Equal(t, 5*time.Second, PaymentTimeout())
	assert.Equal(t, "sqlite", DatabaseDriver())
}

func TestDatabaseDSNDefaultsPerDriver(t *testing.T) {
	Set("DB_DRIVER", "postgres")
	t.Cleanup(func() { Set("DB_DRIVER", defaultDatabaseDriver) })

	assert.Equal(t, defaultPostgresDSN, DatabaseDSN())
}
