package pagination

import (
	"fmt"
	"strings"
)

// effectiveDesc resolves the scan direction: paging "previous" walks the
// listing order backwards, so the scan flips and the page is reversed after
// fetching (see BuildCursorPage).
func effectiveDesc(orderDir SortDirection, direction Direction) bool {
	desc := orderDir == SortDesc
	if direction == DirectionPrevious {
		desc = !desc
	}
	return desc
}

// OrderByClause renders the composite ORDER BY for the effective scan
// direction. The id column always rides along as tiebreaker so rows with
// equal sort values have a total order. orderBy must come from the caller's
// column allow-list; it is interpolated, not bound.
func OrderByClause(orderBy string, orderDir SortDirection, direction Direction) string {
	dir := "ASC"
	if effectiveDesc(orderDir, direction) {
		dir = "DESC"
	}
	if orderBy == "" || orderBy == "id" {
		return fmt.Sprintf("id %s", dir)
	}
	return fmt.Sprintf("%s %s, id %s", orderBy, dir, dir)
}

// KeysetClause builds the predicate selecting rows strictly beyond the
// cursor in scan order, as a genuine composite comparison:
//
//	(sort < v) OR (sort = v AND id < cid)
//
// so ties on the sort column neither skip nor duplicate rows across pages.
// sortValue is the cursor's sort value in the caller's storage
// representation; nil selects the id-only form.
func KeysetClause(orderBy string, orderDir SortDirection, direction Direction, sortValue interface{}, cursorID int64) (string, []interface{}) {
	cmp := ">"
	if effectiveDesc(orderDir, direction) {
		cmp = "<"
	}

	if sortValue == nil || orderBy == "" || orderBy == "id" {
		return fmt.Sprintf("id %s ?", cmp), []interface{}{cursorID}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "(%s %s ? OR (%s = ? AND id %s ?))", orderBy, cmp, orderBy, cmp)
	return b.String(), []interface{}{sortValue, sortValue, cursorID}
}
