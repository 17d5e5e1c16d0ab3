package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "POSTGRES")
	t.Setenv("INIT_FRESH", "true")
	t.Setenv("SEED_ACCOUNT_ID", "admin")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.True(t, cfg.InitFresh)
	assert.Equal(t, "admin", cfg.Seed.ID)
	assert.Equal(t, "1000.00", cfg.Seed.Balance)
}

func TestGetBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	assert.True(t, getBool("SOME_FLAG", true))
	assert.False(t, getBool("MISSING_FLAG_FOR_TEST", false))
}

func TestSetupLoggerLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	SetupLogger("debug", "json")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	SetupLogger("nonsense", "console")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
