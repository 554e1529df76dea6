package db

import "strings"

// readVerbs are the statement heads considered read-only.
var readVerbs = map[string]struct{}{
	"SELECT":   {},
	"SHOW":     {},
	"EXPLAIN":  {},
	"DESCRIBE": {},
}

// IsReadQuery classifies raw SQL by its leading verb. Anything it does not
// positively recognize as a read counts as a write, so ambiguous statements
// route to the primary.
func IsReadQuery(query string) bool {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return false
	}

	verb := trimmed
	if idx := strings.IndexFunc(trimmed, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	}); idx >= 0 {
		verb = trimmed[:idx]
	}

	_, ok := readVerbs[strings.ToUpper(verb)]
	return ok
}

// ReplicaPathPrefixes lists the read-heavy endpoint prefixes that middleware
// may serve from the replica without inspecting SQL.
var ReplicaPathPrefixes = []string{
	"/api/jobs",
	"/api/posts",
	"/api/feed",
	"/api/search",
	"/api/companies",
}

// ShouldUseReplica reports whether a request path is on the replica
// allow-list.
func ShouldUseReplica(path string) bool {
	for _, prefix := range ReplicaPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
