package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBookingReference(t *testing.T) {
	created := time.Date(2026, 2, 3, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))

	assert.Equal(t, "HB-20260204-000042", GenerateBookingReference(created, 42))
	assert.Equal(t, "HB-20260204-1234567", GenerateBookingReference(created, 1234567))
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 0, CalculateTotalPages(0, 20))
	assert.Equal(t, 1, CalculateTotalPages(20, 20))
	assert.Equal(t, 2, CalculateTotalPages(21, 20))
	assert.Equal(t, 0, CalculateTotalPages(5, 0))

	assert.Equal(t, 0, CalculateOffset(1, 10))
	assert.Equal(t, 20, CalculateOffset(3, 10))
	assert.Equal(t, 0, CalculateOffset(0, 10))

	assert.Equal(t, 7, ParseInt("7", 1))
	assert.Equal(t, 1, ParseInt("", 1))
	assert.Equal(t, 1, ParseInt("-3", 1))
	assert.Equal(t, 1, ParseInt("abc", 1))
}

func TestLoadConfigFrom(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		config, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)

		assert.Equal(t, "hospital-booking", config.App.Name)
		assert.Equal(t, "8080", config.App.Port)
		assert.Equal(t, "postgres", config.App.StorageDriver)
		assert.Equal(t, "occupied", config.Allocation.Bucket)
		assert.Equal(t, 3, config.Allocation.MaxAttempts)
		assert.Equal(t, 2*time.Second, config.Allocation.LockTimeout)
		assert.Equal(t, 5*time.Second, config.Query.CacheTTL)
		assert.False(t, config.Redis.Enabled())
	})

	t.Run("reads an env file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		content := "STORAGE_DRIVER=MEMORY\nALLOCATION_BUCKET=reserved\nALLOCATION_MAX_ATTEMPTS=0\nREDIS_ADDR=localhost:6379\nPRICING_RATE_ICU=120.5\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		config, err := LoadConfigFrom(path)
		require.NoError(t, err)

		assert.Equal(t, "memory", config.App.StorageDriver)
		assert.Equal(t, "reserved", config.Allocation.Bucket)
		assert.Equal(t, 1, config.Allocation.MaxAttempts)
		assert.True(t, config.Redis.Enabled())
		assert.Equal(t, 120.5, config.Pricing.HourlyRates["icu"])
	})

	t.Run("environment wins over the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("PORT=9000\n"), 0o600))
		t.Setenv("PORT", "9100")

		config, err := LoadConfigFrom(path)
		require.NoError(t, err)
		assert.Equal(t, "9100", config.App.Port)
	})
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Name  string    `validate:"required"`
		Kind  string    `validate:"oneof=a b"`
		When  time.Time `validate:"future"`
		Count int       `validate:"gte=0"`
	}

	errs := ValidateStruct(payload{Name: "x", Kind: "a", When: time.Now().Add(time.Hour)})
	assert.Nil(t, errs)

	errs = ValidateStruct(payload{Kind: "c", When: time.Now().Add(-time.Hour), Count: -1})
	require.Len(t, errs, 4)
	assert.Equal(t, "This field is required", errs["Name"])
	assert.Equal(t, "Must be one of: a, b", errs["Kind"])
	assert.Equal(t, "Must be in the future", errs["When"])
	assert.Equal(t, "Must be at least 0", errs["Count"])

	assert.Equal(t,
		"Count: Must be at least 0; Kind: Must be one of: a, b; Name: This field is required; When: Must be in the future",
		FormatValidationErrors(errs))
}
