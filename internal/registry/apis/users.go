package apis

import (
	"net/http"

	"github.com/extreg/extreg/internal/common/httpx"
	"github.com/extreg/extreg/internal/registry/session"
)

type loginRequest struct {
	User     string `json:"user" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	SessionID string `json:"sessionId"`
	User      string `json:"user"`
}

// loginUser verifies credentials and opens a session. Clients present the
// returned session ID as a bearer token or in the session cookie.
func loginUser(r *http.Request) (*httpx.Response, error) {
	req := loginRequest{}
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest("user and password are required")
	}

	s, err := sessions.Login(r.Context(), req.User, req.Password)
	if err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Cookies: []*http.Cookie{{
			Name:     session.SessionCookieName,
			Value:    s.SessionID.String(),
			Path:     "/",
			MaxAge:   int(sessions.Expiration().Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}},
		Response: loginResponse{
			SessionID: s.SessionID.String(),
			User:      s.UserName,
		},
	}, nil
}

func getUser(r *http.Request) (*httpx.Response, error) {
	user := session.UserFromContext(r.Context())
	if user == "" {
		return nil, httpx.ErrUnAuthorized("missing session")
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]string{"user": user},
	}, nil
}

// logoutUser drops the session named by the request's credentials and
// expires the session cookie.
func logoutUser(r *http.Request) (*httpx.Response, error) {
	sessionID := session.SessionIDFromRequest(r)
	if err := sessions.Logout(r.Context(), sessionID); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Cookies: []*http.Cookie{{
			Name:     session.SessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}},
		Response: map[string]string{"success": "logged out"},
	}, nil
}
