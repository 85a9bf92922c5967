// Package server assembles the registry's HTTP surface: middleware chain,
// API routes, and the version and readiness probes.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/httpx"
	commonmiddleware "github.com/extreg/extreg/internal/common/middleware"
	"github.com/extreg/extreg/internal/registry/apis"
	"github.com/extreg/extreg/internal/registry/config"
	"github.com/extreg/extreg/internal/registry/db"
)

// ServerVersion is the registry server release string.
const ServerVersion = "0.1.0"

// ApiVersion is the version of the HTTP API surface.
const ApiVersion = "0.1"

type RegistryServer struct {
	Router *chi.Mux
}

func CreateNewServer() (*RegistryServer, error) {
	s := &RegistryServer{}
	s.Router = chi.NewRouter()
	return s, nil
}

func (s *RegistryServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	s.Router.Use(db.LoadDBMiddleware)
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   config.Config().AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Accept-Encoding"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	s.mountResourceHandlers(s.Router)
}

func (s *RegistryServer) mountResourceHandlers(r chi.Router) {
	apis.Router(r)
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
}

type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *RegistryServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "Extension Registry Server: " + ServerVersion,
		ApiVersion:    ApiVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *RegistryServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")

	ctx, err := db.ConnCtx(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("database connection failed during readiness check")
		httpx.SendJsonRsp(r.Context(), w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database connection failed",
		})
		return
	}
	defer db.DB(ctx).Close(ctx)

	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
