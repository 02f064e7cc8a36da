package user

// Page represents one page of a list result.
type Page struct {
	Data          []User `json:"data"`
	CurrentOffset int64  `json:"current_offset"`
	NextOffset    *int64 `json:"next_offset"`
	Limit         int64  `json:"limit"`
	HasMore       bool   `json:"has_more"`
}

// LookAheadLimit returns the row count to request from the store for a page
// of the given size: one extra row reveals whether a further page exists.
func LookAheadLimit(limit int64) int64 {
	return limit + 1
}

// LookAhead trims rows fetched with LookAheadLimit(limit) to at most limit
// entries and reports whether more rows exist and where the next page starts.
func LookAhead[T any](rows []T, limit, offset int64) (data []T, hasMore bool, nextOffset *int64) {
	hasMore = int64(len(rows)) > limit
	if hasMore {
		rows = rows[:limit]
		next := offset + limit
		nextOffset = &next
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, hasMore, nextOffset
}

// NewPage builds a Page from rows fetched with LookAheadLimit(limit).
func NewPage(rows []User, limit, offset int64) Page {
	data, hasMore, next := LookAhead(rows, limit, offset)
	return Page{
		Data:          data,
		CurrentOffset: offset,
		NextOffset:    next,
		Limit:         limit,
		HasMore:       hasMore,
	}
}
