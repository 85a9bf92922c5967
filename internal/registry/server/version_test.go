package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestGetVersion(t *testing.T) {
	s, err := CreateNewServer()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	s.getVersion(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Result().Header.Get("Content-Type"))

	body := rec.Body.String()
	assert.Equal(t, "Extension Registry Server: "+ServerVersion, gjson.Get(body, "serverVersion").String())
	assert.Equal(t, ApiVersion, gjson.Get(body, "apiVersion").String())
}
