package http

import (
	"net/http"
	"strconv"
	"time"

	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractTime parses a required RFC3339 query parameter.
func ExtractTime(r *http.Request, param string) (time.Time, error) {
	s := r.URL.Query().Get(param)
	if s == "" {
		return time.Time{}, apperrors.InvalidInput("missing required parameter: " + param)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("invalid " + param + ", must be RFC3339")
	}
	return t, nil
}
