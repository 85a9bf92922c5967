// Package httpx provides HTTP request/response handling utilities for the
// registry API. It includes JSON response helpers, error mapping from
// apperrors to HTTP error payloads, and a handler wrapper that standardizes
// response handling across endpoints.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
)

// GetRequestData parses a JSON request body into the provided data structure.
// Only supports POST and PUT methods. Returns an error if the request body is
// empty or cannot be parsed.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response represents an HTTP response with configurable status code and
// content type. Response may be a struct (marshaled to JSON), a string, or
// raw bytes for binary payloads. Cookies are set before the body is written.
type Response struct {
	StatusCode  int
	Location    string
	Response    any
	ContentType string
	Cookies     []*http.Cookie
}

// RequestHandler defines a function type for handling HTTP requests.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp wraps a RequestHandler to provide standardized response
// handling. Errors implementing apperrors.Error are rendered as JSON error
// payloads with their status code; anything else becomes an internal error.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			sendHandlerError(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.ContentType == "" {
			rsp.ContentType = "application/json"
		}
		for _, c := range rsp.Cookies {
			http.SetCookie(w, c)
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		switch body := rsp.Response.(type) {
		case []byte:
			w.Header().Set("Content-Type", rsp.ContentType)
			w.WriteHeader(rsp.StatusCode)
			w.Write(body)
		case string:
			w.Header().Set("Content-Type", rsp.ContentType)
			w.WriteHeader(rsp.StatusCode)
			w.Write([]byte(body))
		default:
			if rsp.ContentType != "application/json" {
				ErrApplicationError("unsupported response type").Send(w)
				return
			}
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
		}
	}
}

func sendHandlerError(w http.ResponseWriter, err error) {
	if httperror, ok := err.(*Error); ok {
		httperror.Send(w)
		return
	}
	if appErr, ok := err.(apperrors.Error); ok {
		statusCode := appErr.StatusCode()
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		httperror := &Error{
			StatusCode:  statusCode,
			Description: appErr.ErrorAll(),
		}
		httperror.Send(w)
		return
	}
	ErrApplicationError(err.Error()).Send(w)
}
