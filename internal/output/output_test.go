package output

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loopboard/loopboard/internal/cache"
	"github.com/loopboard/loopboard/internal/ratelimit"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestFormatBucketsTable(t *testing.T) {
	buckets := []ratelimit.Bucket{
		{ClientKey: "10.0.0.2", WindowStart: 1_000_000_020, Count: 3, TTL: 40 * time.Second},
		{ClientKey: "10.0.0.1", WindowStart: 1_000_000_020, Count: 7, TTL: 40 * time.Second},
	}

	rendered, err := FormatBuckets(FormatTable, buckets)
	require.NoError(t, err)

	require.Contains(t, rendered, "10.0.0.1")
	require.Contains(t, rendered, "10.0.0.2")
	require.Contains(t, rendered, "2 buckets")
	require.Less(t, strings.Index(rendered, "10.0.0.1"), strings.Index(rendered, "10.0.0.2"),
		"buckets should be sorted by client key")
}

func TestFormatBucketsJSON(t *testing.T) {
	buckets := []ratelimit.Bucket{
		{ClientKey: "203.0.113.9", WindowStart: 1_000_000_020, Count: 5, TTL: 12 * time.Second},
	}

	rendered, err := FormatBuckets(FormatJSON, buckets)
	require.NoError(t, err)

	require.Contains(t, rendered, `"client": "203.0.113.9"`)
	require.Contains(t, rendered, `"count": 5`)
	require.Contains(t, rendered, `"expires_in": "12s"`)
}

func TestFormatStrategiesTable(t *testing.T) {
	strategies := []cache.Strategy{
		{Name: "public-list", CacheControl: "public, max-age=60", Vary: "Accept-Encoding", TTL: time.Minute},
		{Name: "private-dynamic", CacheControl: "private, max-age=30", TTL: 30 * time.Second, UserScoped: true},
		{Name: "no-cache", CacheControl: "no-store"},
	}

	rendered, err := FormatStrategies(FormatTable, strategies)
	require.NoError(t, err)

	require.Contains(t, rendered, "public-list")
	require.Contains(t, rendered, "per-user")
	require.Contains(t, rendered, "shared")
	require.Contains(t, rendered, "1m0s")
}

func TestFormatStrategiesJSON(t *testing.T) {
	strategies := []cache.Strategy{
		{Name: "public-list", CacheControl: "public, max-age=60", TTL: time.Minute},
	}

	rendered, err := FormatStrategies(FormatJSON, strategies)
	require.NoError(t, err)

	require.Contains(t, rendered, `"name": "public-list"`)
	require.Contains(t, rendered, `"ttl": "1m0s"`)
	require.Contains(t, rendered, `"user_scoped": false`)
}
