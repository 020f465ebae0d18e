package common

import (
	"net/http"
	"strconv"
)

// Page holds pagination metadata for list responses.
type Page struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
	Total  int64 `json:"total"`
}

// ParseLimitOffset extracts limit and offset query parameters, clamping the
// limit to [1, maxLimit].
func ParseLimitOffset(r *http.Request, defaultLimit, maxLimit int32) (limit, offset int32) {
	limit = defaultLimit
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32); err == nil && v > 0 {
		limit = int32(v)
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 32); err == nil && v >= 0 {
		offset = int32(v)
	}
	return limit, offset
}
