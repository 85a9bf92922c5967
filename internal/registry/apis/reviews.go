package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/extreg/extreg/internal/common/httpx"
	"github.com/extreg/extreg/internal/registry/service"
	"github.com/extreg/extreg/internal/registry/session"
)

func getReviews(r *http.Request) (*httpx.Response, error) {
	out, err := registry.GetReviews(r.Context(), chi.URLParam(r, "publisher"), chi.URLParam(r, "extension"))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: out}, nil
}

// postReview stores a review from the authenticated user. Rating is bounded
// to [0,5]; anything else is a structured validation error.
func postReview(r *http.Request) (*httpx.Response, error) {
	payload := service.ReviewPayload{}
	if err := httpx.GetRequestData(r, &payload); err != nil {
		return nil, err
	}
	if err := validate.Struct(payload); err != nil {
		return nil, httpx.ErrInvalidRequest("rating must be an integer between 0 and 5")
	}

	user := session.UserFromContext(r.Context())
	if user == "" {
		return nil, httpx.ErrUnAuthorized("missing session")
	}

	err := local.PostReview(r.Context(), chi.URLParam(r, "publisher"), chi.URLParam(r, "extension"), user, payload)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Response:   map[string]string{"success": "review posted"},
	}, nil
}
