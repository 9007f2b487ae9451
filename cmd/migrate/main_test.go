package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/otoscan/internal/config"
)

func TestBindFlagsDefaultsToEnvironment(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")

	cfg, err := config.Load()
	require.NoError(t, err)

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	status := bindFlags(fs, cfg)
	require.NoError(t, fs.Parse(nil))

	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, 6543, cfg.DBPort)
	assert.False(t, *status)
}

func TestBindFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")

	cfg, err := config.Load()
	require.NoError(t, err)

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	status := bindFlags(fs, cfg)
	require.NoError(t, fs.Parse([]string{"-host", "localhost", "-port", "5432", "-migrations", "/srv/migrations", "-status"}))

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "/srv/migrations", cfg.MigrationsPath)
	assert.True(t, *status)
}
