package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseQuery(t *testing.T, query string) Params {
	t.Helper()
	values, err := url.ParseQuery(query)
	require.NoError(t, err)
	return Parse(values, Defaults{Limit: 20, MaxLimit: 100, OrderBy: "created_at"})
}

func TestParseModeSelection(t *testing.T) {
	cursorToken := Cursor{ID: 10}.Encode()

	tests := []struct {
		name  string
		query string
		mode  Mode
	}{
		{"no params defaults to cursor", "", ModeCursor},
		{"cursor param", "cursor=" + url.QueryEscape(cursorToken), ModeCursor},
		{"skip param", "skip=40", ModeOffset},
		{"page param", "page=3", ModeOffset},
		{"cursor wins over skip", "cursor=" + url.QueryEscape(cursorToken) + "&skip=40", ModeCursor},
		{"invalid skip still selects offset", "skip=-1", ModeOffset},
		{"invalid page still selects offset", "page=abc", ModeOffset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.mode, parseQuery(t, tt.query).Mode)
		})
	}
}

func TestParseLimitClamping(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=50", 50},
		{"limit=100", 100},
		{"limit=500", 100},
		{"limit=0", 1},
		{"limit=-3", 1},
		{"limit=abc", 20},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseQuery(t, tt.query).Limit, "query %q", tt.query)
	}
}

func TestParseCursorHandling(t *testing.T) {
	token := Cursor{ID: 77}.Encode()

	params := parseQuery(t, "cursor="+url.QueryEscape(token))
	require.NotNil(t, params.Cursor)
	assert.Equal(t, int64(77), params.Cursor.ID)

	// An invalid cursor means first page, not an error.
	params = parseQuery(t, "cursor=%21%21garbage")
	assert.Equal(t, ModeCursor, params.Mode)
	assert.Nil(t, params.Cursor)
}

func TestParsePageComputesSkip(t *testing.T) {
	params := parseQuery(t, "page=3&limit=25")
	assert.Equal(t, ModeOffset, params.Mode)
	assert.Equal(t, 50, params.Skip)

	params = parseQuery(t, "page=0")
	assert.Equal(t, ModeOffset, params.Mode)
	assert.Equal(t, 0, params.Skip, "page below 1 clamps to the first page")
}

func TestParseInvalidOffsetValuesClampToFirstPage(t *testing.T) {
	for _, query := range []string{"skip=-5", "skip=abc", "page=0", "page=-2", "page=abc"} {
		params := parseQuery(t, query)
		assert.Equal(t, ModeOffset, params.Mode, "query %q", query)
		assert.Equal(t, 0, params.Skip, "query %q", query)
	}
}

func TestParseOrdering(t *testing.T) {
	params := parseQuery(t, "order_by_field=updated_at&order_direction=asc&direction=previous")
	assert.Equal(t, "updated_at", params.OrderBy)
	assert.Equal(t, SortAsc, params.OrderDir)
	assert.Equal(t, DirectionPrevious, params.Direction)

	params = parseQuery(t, "")
	assert.Equal(t, "created_at", params.OrderBy)
	assert.Equal(t, SortDesc, params.OrderDir)
	assert.Equal(t, DirectionNext, params.Direction)
}
