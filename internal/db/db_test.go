package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopboard/loopboard/internal/config"
)

func TestPrimaryDSN(t *testing.T) {
	t.Run("memory path passes through", func(t *testing.T) {
		dsn, err := primaryDSN(config.DatabaseConfig{Path: ":memory:"})
		require.NoError(t, err)
		assert.Equal(t, ":memory:", dsn)
	})

	t.Run("plain path gets file scheme", func(t *testing.T) {
		dsn, err := primaryDSN(config.DatabaseConfig{Path: t.TempDir() + "/loopboard.db"})
		require.NoError(t, err)
		assert.Contains(t, dsn, "file:")
	})

	t.Run("url wins over path", func(t *testing.T) {
		dsn, err := primaryDSN(config.DatabaseConfig{
			URL:  "libsql://primary.example.io",
			Path: ":memory:",
		})
		require.NoError(t, err)
		assert.Equal(t, "libsql://primary.example.io", dsn)
	})

	t.Run("auth token folded into url", func(t *testing.T) {
		dsn, err := primaryDSN(config.DatabaseConfig{
			URL:       "libsql://primary.example.io",
			AuthToken: "secret",
		})
		require.NoError(t, err)
		assert.Contains(t, dsn, "authToken=secret")
	})

	t.Run("empty config rejected", func(t *testing.T) {
		_, err := primaryDSN(config.DatabaseConfig{})
		assert.Error(t, err)
	})

	t.Run("unsupported driver rejected", func(t *testing.T) {
		_, err := primaryDSN(config.DatabaseConfig{Driver: "postgres", Path: ":memory:"})
		assert.Error(t, err)
	})
}

func TestReplicaDSN(t *testing.T) {
	dsn, err := replicaDSN(config.DatabaseConfig{})
	require.NoError(t, err)
	assert.Empty(t, dsn, "no replica configured means no DSN")

	dsn, err = replicaDSN(config.DatabaseConfig{
		ReplicaURL: "libsql://replica.example.io",
		AuthToken:  "secret",
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "replica.example.io")
	assert.Contains(t, dsn, "authToken=secret")
}
