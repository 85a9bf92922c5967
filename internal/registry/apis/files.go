package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/extreg/extreg/internal/common/httpx"
)

// getFile serves one file of a version. The route without a version segment
// addresses the latest version.
func getFile(r *http.Request) (*httpx.Response, error) {
	data, contentType, err := registry.GetFile(r.Context(),
		chi.URLParam(r, "publisher"),
		chi.URLParam(r, "extension"),
		chi.URLParam(r, "version"),
		chi.URLParam(r, "fileName"))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode:  http.StatusOK,
		ContentType: contentType,
		Response:    data,
	}, nil
}
