package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	original, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, original)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults when nothing is configured", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "arledger-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "arledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
		assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
		assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodySize)
		assert.Equal(t, MinReconcileInterval, cfg.Reconcile.Interval)
		assert.Equal(t, 100, cfg.Reconcile.BatchSize)
		assert.Equal(t, "0.01", cfg.Reconcile.Tolerance)
		assert.Equal(t, 365, cfg.Audit.RetentionDays)
		assert.Equal(t, 4, cfg.Scheduler.Workers)
		assert.Equal(t, "arledger:customer:invalidate", cfg.Redis.InvalidationChannel)
	})

	t.Run("reads values from environment variables", func(t *testing.T) {
		withEnv(t, "ARLEDGER_APP_NAME", "arledger-test")
		withEnv(t, "ARLEDGER_APP_PORT", "9090")
		withEnv(t, "ARLEDGER_DATABASE_HOST", "db.internal")
		withEnv(t, "ARLEDGER_DATABASE_PORT", "5433")
		withEnv(t, "ARLEDGER_LOG_LEVEL", "debug")
		withEnv(t, "ARLEDGER_RECONCILE_BATCH_SIZE", "25")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "arledger-test", cfg.App.Name)
		assert.Equal(t, "9090", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, 25, cfg.Reconcile.BatchSize)
	})

	t.Run("rejects reconcile interval below the floor", func(t *testing.T) {
		withEnv(t, "ARLEDGER_RECONCILE_INTERVAL", "30m")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reconcile.interval")
	})

	t.Run("rejects reconcile batch size above the cap", func(t *testing.T) {
		withEnv(t, "ARLEDGER_RECONCILE_BATCH_SIZE", "500")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reconcile.batch_size")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		withEnv(t, "ARLEDGER_DATABASE_DRIVER", "oracle")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("production requires password and ssl", func(t *testing.T) {
		withEnv(t, "ARLEDGER_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password")

		withEnv(t, "ARLEDGER_DATABASE_PASSWORD", "secret")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")

		withEnv(t, "ARLEDGER_DATABASE_SSLMODE", "require")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("production rejects sqlite", func(t *testing.T) {
		withEnv(t, "ARLEDGER_APP_ENV", "production")
		withEnv(t, "ARLEDGER_DATABASE_DRIVER", "sqlite")
		withEnv(t, "ARLEDGER_DATABASE_PASSWORD", "secret")
		withEnv(t, "ARLEDGER_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sqlite")
	})

	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		withEnv(t, "ARLEDGER_DATABASE_MAX_OPEN_CONNS", "5")
		withEnv(t, "ARLEDGER_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
	})
}

func TestDatabaseConfigDSN(t *testing.T) {
	t.Run("builds postgres URL with escaped credentials", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "ar_user",
			Password: "p@ss:word/1",
			DBName:   "arledger",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "postgres://")
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "arledger")
		assert.Contains(t, dsn, "sslmode=disable")
		assert.NotContains(t, dsn, "p@ss:word/1")
	})

	t.Run("sqlite returns the file path", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "local.db",
		}
		assert.Equal(t, "local.db", cfg.DSN())
	})
}
