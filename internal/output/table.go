package output

import (
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/loopboard/loopboard/internal/cache"
	"github.com/loopboard/loopboard/internal/ratelimit"
)

// FormatBuckets renders the live rate limit buckets, sorted by client and
// window so repeated listings stay comparable.
func FormatBuckets(format Format, buckets []ratelimit.Bucket) (string, error) {
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].ClientKey != buckets[j].ClientKey {
			return buckets[i].ClientKey < buckets[j].ClientKey
		}
		return buckets[i].WindowStart < buckets[j].WindowStart
	})

	if format == FormatJSON {
		return bucketsJSON(buckets)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Client", "Window Start", "Count", "Expires In"})

	var total int64
	for _, b := range buckets {
		t.AppendRow(table.Row{
			b.ClientKey,
			time.Unix(b.WindowStart, 0).UTC().Format(time.RFC3339),
			b.Count,
			formatTTL(b.TTL),
		})
		total += b.Count
	}
	t.AppendFooter(table.Row{"", "", total, fmt.Sprintf("%d buckets", len(buckets))})

	return t.Render(), nil
}

// FormatStrategies renders the cache header policy table.
func FormatStrategies(format Format, strategies []cache.Strategy) (string, error) {
	if format == FormatJSON {
		return strategiesJSON(strategies)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Cache-Control", "CDN-Cache-Control", "Vary", "TTL", "Scope"})

	for _, s := range strategies {
		t.AppendRow(table.Row{
			s.Name,
			s.CacheControl,
			s.CDNCacheControl,
			s.Vary,
			formatTTL(s.TTL),
			scopeLabel(s.UserScoped),
		})
	}

	return t.Render(), nil
}

func formatTTL(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func scopeLabel(userScoped bool) string {
	if userScoped {
		return "per-user"
	}
	return "shared"
}
