package apis

import (
	"net/http"
	"strconv"

	"github.com/extreg/extreg/internal/common/httpx"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// searchExtensions serves the free-text search endpoint. Unparseable size
// and offset parameters fall back to the defaults.
func searchExtensions(r *http.Request) (*httpx.Response, error) {
	q := models.SearchQuery{
		Text:     r.URL.Query().Get("query"),
		Category: r.URL.Query().Get("category"),
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
		q.Size = size
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		q.Offset = offset
	}

	out, err := registry.Search(r.Context(), q)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: out}, nil
}
