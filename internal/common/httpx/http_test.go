package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapHttpRspSetsCookies(t *testing.T) {
	handler := WrapHttpRsp(func(r *http.Request) (*Response, error) {
		return &Response{
			StatusCode: http.StatusOK,
			Cookies: []*http.Cookie{{
				Name:     "login_session",
				Value:    "abc123",
				Path:     "/",
				HttpOnly: true,
			}},
			Response: map[string]string{"user": "admin"},
		}, nil
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/user", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "login_session", cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestWrapHttpRspSetsLocationOnCreated(t *testing.T) {
	handler := WrapHttpRsp(func(r *http.Request) (*Response, error) {
		return &Response{
			StatusCode: http.StatusCreated,
			Location:   "/api/acme/tool/1.0.0",
			Response:   map[string]string{"version": "1.0.0"},
		}, nil
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/-/publish", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/acme/tool/1.0.0", rec.Result().Header.Get("Location"))
}
