package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

// Mode selects how a listing request is paginated.
type Mode int

const (
	ModeCursor Mode = iota
	ModeOffset
)

func (m Mode) String() string {
	if m == ModeOffset {
		return "offset"
	}
	return "cursor"
}

// Direction is the paging direction relative to the cursor.
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
)

// SortDirection orders the listing.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Params is a parsed, validated pagination request.
type Params struct {
	Mode      Mode
	Cursor    *Cursor
	Direction Direction
	Skip      int
	Limit     int
	OrderBy   string
	OrderDir  SortDirection
}

// Defaults bounds and seeds parsing.
type Defaults struct {
	Limit    int
	MaxLimit int
	OrderBy  string
}

// Parse reads the pagination params from a query string. Mode selection:
// a cursor param selects cursor mode, a present skip or page selects offset
// mode, neither defaults to cursor mode. A corrupt cursor degrades to no
// cursor, an invalid offset value to the first page. The limit is always
// clamped to [1, MaxLimit].
func Parse(values url.Values, defaults Defaults) Params {
	if defaults.Limit <= 0 {
		defaults.Limit = 20
	}
	if defaults.MaxLimit <= 0 {
		defaults.MaxLimit = 100
	}
	if defaults.OrderBy == "" {
		defaults.OrderBy = "created_at"
	}

	params := Params{
		Mode:      ModeCursor,
		Direction: DirectionNext,
		Limit:     defaults.Limit,
		OrderBy:   defaults.OrderBy,
		OrderDir:  SortDesc,
	}

	if raw := values.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			params.Limit = limit
		}
	}
	params.Limit = clamp(params.Limit, 1, defaults.MaxLimit)

	if raw := strings.ToLower(values.Get("direction")); raw == string(DirectionPrevious) {
		params.Direction = DirectionPrevious
	}

	if raw := values.Get("order_by_field"); raw != "" {
		params.OrderBy = raw
	}
	if raw := strings.ToLower(values.Get("order_direction")); raw == string(SortAsc) {
		params.OrderDir = SortAsc
	}

	if token := values.Get("cursor"); token != "" {
		if cursor, ok := DecodeCursor(token); ok {
			params.Cursor = &cursor
		}
		return params
	}

	// A present skip or page selects offset mode even when the value is
	// malformed; a typo should not flip the response shape. Bad values
	// clamp to the first page.
	if raw := values.Get("skip"); raw != "" {
		params.Mode = ModeOffset
		if skip, err := strconv.Atoi(raw); err == nil && skip > 0 {
			params.Skip = skip
		}
		return params
	}
	if raw := values.Get("page"); raw != "" {
		params.Mode = ModeOffset
		if page, err := strconv.Atoi(raw); err == nil && page > 1 {
			params.Skip = (page - 1) * params.Limit
		}
		return params
	}

	return params
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
