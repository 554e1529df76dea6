package pagination

import "slices"

// Page is one shaped listing response. NextCursor is minted only when a row
// beyond the page proved more data exists.
type Page[T any] struct {
	Items      []T
	HasNext    bool
	NextCursor string
	Total      *int64
}

// BuildCursorPage shapes rows fetched with limit+1 into a page: the extra
// row, if present, is dropped and flags HasNext. Pages fetched in the
// "previous" direction were scanned backwards and are reversed into listing
// order. The next cursor is minted from the last row in scan order, so
// resubmitting it with the same direction continues the walk.
func BuildCursorPage[T any](rows []T, limit int, direction Direction, cursorFor func(T) Cursor) Page[T] {
	page := Page[T]{HasNext: len(rows) > limit}
	if page.HasNext {
		rows = rows[:limit]
	}

	if page.HasNext && len(rows) > 0 {
		scanLast := rows[len(rows)-1]
		page.NextCursor = cursorFor(scanLast).Encode()
	}

	if direction == DirectionPrevious {
		slices.Reverse(rows)
	}
	page.Items = rows
	return page
}

// BuildOffsetPage shapes rows fetched with limit+1 at an offset. total is
// the caller-decided COUNT(*) and may be nil when the caller skipped it.
func BuildOffsetPage[T any](rows []T, limit int, total *int64) Page[T] {
	page := Page[T]{HasNext: len(rows) > limit, Total: total}
	if page.HasNext {
		rows = rows[:limit]
	}
	page.Items = rows
	return page
}
