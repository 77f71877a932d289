package httpapi

import (
	"net/http"
	"strconv"

	"github.com/scimcore/idp-gateway/resource"
)

// parseQueryParams extracts filter/startIndex/count from the request,
// applying the same 1-based startIndex / 100-default count the teacher
// uses in scim/handler.go's ParseQueryParams.
func parseQueryParams(r *http.Request) resource.QueryParams {
	params := resource.QueryParams{StartIndex: 1, Count: 100}

	q := r.URL.Query()
	params.Filter = q.Get("filter")

	if raw := q.Get("startIndex"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			params.StartIndex = n
		}
	}
	if raw := q.Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			params.Count = n
		}
	}
	return params
}
