package apis

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/httpx"
	"github.com/extreg/extreg/internal/registry/config"
)

// publishExtension ingests an uploaded package. The response echoes the
// published version view; all failures come back as {"error": message}.
func publishExtension(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	limit := config.Config().MaxRequestBodySize
	body := http.MaxBytesReader(nil, r.Body, limit)
	defer body.Close()

	archive, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Ctx(ctx).Error().Int64("limit", maxErr.Limit).Msg("package exceeds request body limit")
			return nil, httpx.ErrRequestTooLarge()
		}
		return nil, httpx.ErrUnableToReadRequest()
	}
	if len(archive) == 0 {
		return nil, httpx.ErrInvalidRequest("empty package payload")
	}

	view, aerr := local.Publish(ctx, archive)
	if aerr != nil {
		return nil, aerr
	}

	log.Ctx(ctx).Info().Str("publisher", view.Publisher).Str("extension", view.Name).Str("version", view.Version).Msg("published extension version")
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   view.DownloadURL,
		Response:   view,
	}, nil
}
