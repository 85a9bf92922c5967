package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/extreg/extreg/internal/common/httpx"
)

func getPublisher(r *http.Request) (*httpx.Response, error) {
	out, err := registry.GetPublisher(r.Context(), chi.URLParam(r, "publisher"))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: out}, nil
}

func getExtension(r *http.Request) (*httpx.Response, error) {
	out, err := registry.GetExtension(r.Context(), chi.URLParam(r, "publisher"), chi.URLParam(r, "extension"))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: out}, nil
}

func getExtensionVersion(r *http.Request) (*httpx.Response, error) {
	out, err := registry.GetExtensionVersion(r.Context(),
		chi.URLParam(r, "publisher"), chi.URLParam(r, "extension"), chi.URLParam(r, "version"))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: out}, nil
}
