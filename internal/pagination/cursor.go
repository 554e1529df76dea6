// Package pagination implements dual-mode list pagination: keyset cursors
// for infinite scroll and offset/page for numbered pages, selected
// automatically from the request parameters.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// Cursor pins a position in a listing: the last row's id, plus the last
// row's sort value when ordering by a timestamp column. Cursors are
// stateless; each page mints the next one and nothing is stored server-side.
type Cursor struct {
	ID int64
	TS *time.Time
}

// cursorWire is the token payload. The timestamp travels as ISO 8601 text so
// tokens stay readable and language-neutral.
type cursorWire struct {
	ID int64  `json:"id"`
	TS string `json:"ts,omitempty"`
}

// Encode renders the cursor as base64url(JSON).
func (c Cursor) Encode() string {
	wire := cursorWire{ID: c.ID}
	if c.TS != nil {
		wire.TS = c.TS.UTC().Format(time.RFC3339Nano)
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		// Marshalling two scalar fields cannot fail.
		return ""
	}
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token back into a cursor. Any defect (bad base64,
// bad JSON, bad timestamp) reports ok=false; stale or corrupt tokens from
// long-lived clients degrade to "no cursor" instead of failing the request.
func DecodeCursor(token string) (Cursor, bool) {
	if token == "" {
		return Cursor{}, false
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return Cursor{}, false
	}

	var wire cursorWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Cursor{}, false
	}
	if wire.ID == 0 && wire.TS == "" {
		return Cursor{}, false
	}

	cursor := Cursor{ID: wire.ID}
	if wire.TS != "" {
		ts, err := time.Parse(time.RFC3339Nano, wire.TS)
		if err != nil {
			return Cursor{}, false
		}
		cursor.TS = &ts
	}
	return cursor, true
}
