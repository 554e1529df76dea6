package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Strategy is a named, fixed set of cache headers for one content class,
// plus the TTL its entries live for. UserScoped strategies fold the caller's
// identity into the cache key so users never see each other's responses.
type Strategy struct {
	Name            string
	CacheControl    string
	CDNCacheControl string
	Vary            string
	TTL             time.Duration
	UserScoped      bool
}

// Cacheable reports whether responses under this strategy are stored at all.
func (s Strategy) Cacheable() bool {
	return s.TTL > 0
}

// ApplyHeaders writes the strategy's header set onto the response.
func (s Strategy) ApplyHeaders(h http.Header) {
	if s.CacheControl != "" {
		h.Set("Cache-Control", s.CacheControl)
	}
	if s.CDNCacheControl != "" {
		h.Set("CDN-Cache-Control", s.CDNCacheControl)
	}
	if s.Vary != "" {
		h.Set("Vary", s.Vary)
	}
}

// Strategy names used by the route table.
const (
	StrategyImmutable      = "immutable"
	StrategyPublicList     = "public-list"
	StrategyPublicDetail   = "public-detail"
	StrategyPrivateDynamic = "private-dynamic"
	StrategyNoCache        = "no-cache"
)

// HeaderPolicy resolves strategy names to their header sets. Unknown names
// resolve to no-cache so a route with a typo serves uncached instead of
// leaking a private response into a shared cache.
type HeaderPolicy struct {
	strategies map[string]Strategy
}

// NewHeaderPolicy builds the default strategy table.
func NewHeaderPolicy() *HeaderPolicy {
	p := &HeaderPolicy{strategies: make(map[string]Strategy)}
	for _, s := range []Strategy{
		{
			Name:            StrategyImmutable,
			CacheControl:    "public, max-age=31536000, immutable",
			CDNCacheControl: "max-age=31536000",
			Vary:            "Accept-Encoding",
			TTL:             24 * time.Hour,
		},
		{
			Name:            StrategyPublicList,
			CacheControl:    "public, max-age=60, stale-while-revalidate=30",
			CDNCacheControl: "max-age=300",
			Vary:            "Accept-Encoding",
			TTL:             time.Minute,
		},
		{
			Name:            StrategyPublicDetail,
			CacheControl:    "public, max-age=300, stale-while-revalidate=60",
			CDNCacheControl: "max-age=600",
			Vary:            "Accept-Encoding",
			TTL:             5 * time.Minute,
		},
		{
			Name:         StrategyPrivateDynamic,
			CacheControl: "private, max-age=30",
			Vary:         "Authorization",
			TTL:          30 * time.Second,
			UserScoped:   true,
		},
		{
			Name:         StrategyNoCache,
			CacheControl: "no-store, no-cache, must-revalidate",
		},
	} {
		p.strategies[s.Name] = s
	}
	return p
}

// Strategy returns the named strategy, or no-cache when the name is unknown.
func (p *HeaderPolicy) Strategy(name string) Strategy {
	if s, ok := p.strategies[name]; ok {
		return s
	}
	return p.strategies[StrategyNoCache]
}

// Merge replaces or adds strategies, keyed by name.
func (p *HeaderPolicy) Merge(overrides []Strategy) {
	for _, s := range overrides {
		if s.Name == "" {
			continue
		}
		p.strategies[s.Name] = s
	}
}

// Names lists the registered strategy names in stable order.
func (p *HeaderPolicy) Names() []string {
	names := make([]string, 0, len(p.strategies))
	for name := range p.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateETag hashes serialized content into a strong quoted ETag. Identical
// bytes always produce the identical tag.
func GenerateETag(content []byte) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("%q", hex.EncodeToString(sum[:16]))
}

// ETagFor serializes a value and hashes it. encoding/json orders map keys, so
// the serialization is stable for equal values. Values json cannot encode
// report an error and the response is served uncached.
func ETagFor(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return GenerateETag(raw), nil
}

// ETagMatches compares an If-None-Match header against the computed ETag,
// honoring the wildcard, comma-separated candidate lists, weak-validator
// prefixes and unquoted client values.
func ETagMatches(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}

	want := unquoteETag(etag)
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if unquoteETag(candidate) == want {
			return true
		}
	}
	return false
}

func unquoteETag(s string) string {
	return strings.Trim(s, `"`)
}
