package articles

// CursorPage is the shared shape of cursor-paginated list responses. The
// cursor is the last row id of the previous page; rows are returned in
// descending id order.
type CursorPage struct {
	Results    interface{} `json:"results"`
	NextCursor *uint       `json:"next_cursor"`
	HasNext    bool        `json:"has_next"`
	Limit      int         `json:"limit"`
}

// ClampLimit bounds a requested page size to [1, max], defaulting to def
// when unset.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
