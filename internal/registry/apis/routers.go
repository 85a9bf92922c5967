// Package apis wires the registry's HTTP surface: publish, read, file
// download, search, review and login endpoints.
package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/extreg/extreg/internal/common/httpx"
	"github.com/extreg/extreg/internal/registry/service"
	"github.com/extreg/extreg/internal/registry/session"
)

var (
	local    *service.LocalRegistry
	registry service.ExtensionRegistry
	sessions *session.Manager

	validate = validator.New()
)

// Init binds the API handlers to their services. Must be called before
// Router.
func Init(l *service.LocalRegistry, r service.ExtensionRegistry, m *session.Manager) {
	local = l
	registry = r
	sessions = m
}

type responseHandlerParam struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

// openHandlers need no session; publishing is anonymous. Specific-version
// routes are registered after their static siblings so chi prefers /reviews
// and /file over a {version} match.
var openHandlers = []responseHandlerParam{
	{
		Method:  http.MethodPost,
		Path:    "/-/publish",
		Handler: publishExtension,
	},
	{
		Method:  http.MethodGet,
		Path:    "/-/search",
		Handler: searchExtensions,
	},
	{
		Method:  http.MethodGet,
		Path:    "/{publisher}",
		Handler: getPublisher,
	},
	{
		Method:  http.MethodGet,
		Path:    "/{publisher}/{extension}",
		Handler: getExtension,
	},
	{
		Method:  http.MethodGet,
		Path:    "/{publisher}/{extension}/reviews",
		Handler: getReviews,
	},
	{
		Method:  http.MethodGet,
		Path:    "/{publisher}/{extension}/file/{fileName}",
		Handler: getFile,
	},
	{
		Method:  http.MethodGet,
		Path:    "/{publisher}/{extension}/{version}",
		Handler: getExtensionVersion,
	},
	{
		Method:  http.MethodGet,
		Path:    "/{publisher}/{extension}/{version}/file/{fileName}",
		Handler: getFile,
	},
}

// sessionHandlers attribute writes to a user and require a live session.
var sessionHandlers = []responseHandlerParam{
	{
		Method:  http.MethodPost,
		Path:    "/{publisher}/{extension}/review",
		Handler: postReview,
	},
}

// Router registers the /api and /user endpoint trees.
func Router(r chi.Router) chi.Router {
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			for _, handler := range openHandlers {
				r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler))
			}
		})
		r.Group(func(r chi.Router) {
			r.Use(sessions.RequireSession)
			for _, handler := range sessionHandlers {
				r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler))
			}
		})
	})

	r.Route("/user", func(r chi.Router) {
		r.Method(http.MethodPost, "/login", httpx.WrapHttpRsp(loginUser))
		r.Group(func(r chi.Router) {
			r.Use(sessions.RequireSession)
			r.Method(http.MethodGet, "/", httpx.WrapHttpRsp(getUser))
			r.Method(http.MethodPost, "/logout", httpx.WrapHttpRsp(logoutUser))
		})
	})

	return r
}
