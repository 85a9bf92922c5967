package apis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/registry/config"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
	"github.com/extreg/extreg/internal/registry/service"
	"github.com/extreg/extreg/internal/registry/session"
)

type stubRegistry struct {
	lastQuery models.SearchQuery
	notFound  bool
}

func (s *stubRegistry) GetPublisher(ctx context.Context, publisherName string) (*service.PublisherJson, apperrors.Error) {
	if s.notFound {
		return nil, dberror.ErrNotFound.Msg("publisher not found")
	}
	return &service.PublisherJson{Name: publisherName, Extensions: map[string]string{}}, nil
}

func (s *stubRegistry) GetExtension(ctx context.Context, publisherName, extensionName string) (*service.ExtensionJson, apperrors.Error) {
	if s.notFound {
		return nil, dberror.ErrNotFound.Msg("extension not found")
	}
	return &service.ExtensionJson{Publisher: publisherName, Name: extensionName, Version: "2.1.0"}, nil
}

func (s *stubRegistry) GetExtensionVersion(ctx context.Context, publisherName, extensionName, version string) (*service.ExtensionJson, apperrors.Error) {
	if s.notFound {
		return nil, dberror.ErrNotFound.Msg("version not found")
	}
	return &service.ExtensionJson{Publisher: publisherName, Name: extensionName, Version: version}, nil
}

func (s *stubRegistry) GetFile(ctx context.Context, publisherName, extensionName, version, fileName string) ([]byte, string, apperrors.Error) {
	if s.notFound {
		return nil, "", dberror.ErrNotFound.Msg("file not found")
	}
	return []byte("binary-bytes"), "application/octet-stream", nil
}

func (s *stubRegistry) GetReviews(ctx context.Context, publisherName, extensionName string) (*service.ReviewListJson, apperrors.Error) {
	if s.notFound {
		return nil, dberror.ErrNotFound.Msg("extension not found")
	}
	return &service.ReviewListJson{Reviews: []service.ReviewJson{{User: "admin", Rating: 4}}}, nil
}

func (s *stubRegistry) Search(ctx context.Context, q models.SearchQuery) (*service.SearchResultJson, apperrors.Error) {
	s.lastQuery = q
	return &service.SearchResultJson{Offset: q.Offset, Extensions: []service.SearchEntryJson{}}, nil
}

func newTestRouter(stub *stubRegistry) *chi.Mux {
	config.TestInit()
	Init(nil, stub, session.NewManager(config.Config()))

	r := chi.NewRouter()
	Router(r)
	return r
}

func executeRequest(router *chi.Mux, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetExtensionRoute(t *testing.T) {
	router := newTestRouter(&stubRegistry{})

	req := httptest.NewRequest(http.MethodGet, "/api/acme/tool", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "acme", gjson.Get(body, "publisher").String())
	assert.Equal(t, "tool", gjson.Get(body, "name").String())
	assert.Equal(t, "2.1.0", gjson.Get(body, "version").String())
}

func TestGetExtensionVersionRoute(t *testing.T) {
	router := newTestRouter(&stubRegistry{})

	req := httptest.NewRequest(http.MethodGet, "/api/acme/tool/1.4.2", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.4.2", gjson.Get(rec.Body.String(), "version").String())
}

func TestGetExtensionNotFound(t *testing.T) {
	router := newTestRouter(&stubRegistry{notFound: true})

	req := httptest.NewRequest(http.MethodGet, "/api/acme/missing", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, gjson.Get(rec.Body.String(), "error").String())
}

func TestGetFileRoute(t *testing.T) {
	router := newTestRouter(&stubRegistry{})

	req := httptest.NewRequest(http.MethodGet, "/api/acme/tool/1.4.2/file/acme.tool-1.4.2.vsix", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Result().Header.Get("Content-Type"))
	assert.Equal(t, "binary-bytes", rec.Body.String())
}

func TestGetLatestFileRoute(t *testing.T) {
	router := newTestRouter(&stubRegistry{})

	req := httptest.NewRequest(http.MethodGet, "/api/acme/tool/file/acme.tool-1.4.2.vsix", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "binary-bytes", rec.Body.String())
}

func TestGetReviewsRoute(t *testing.T) {
	router := newTestRouter(&stubRegistry{})

	req := httptest.NewRequest(http.MethodGet, "/api/acme/tool/reviews", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	reviews := gjson.Get(rec.Body.String(), "reviews").Array()
	require.Len(t, reviews, 1)
	assert.Equal(t, "admin", reviews[0].Get("user").String())
}

func TestSearchRouteParsesParams(t *testing.T) {
	stub := &stubRegistry{}
	router := newTestRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/-/search?query=tool&category=Linters&size=5&offset=10", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tool", stub.lastQuery.Text)
	assert.Equal(t, "Linters", stub.lastQuery.Category)
	assert.Equal(t, 5, stub.lastQuery.Size)
	assert.Equal(t, 10, stub.lastQuery.Offset)
}

func TestSearchRouteIgnoresBadParams(t *testing.T) {
	stub := &stubRegistry{}
	router := newTestRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/-/search?size=lots&offset=-bogus", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, stub.lastQuery.Size)
	assert.Zero(t, stub.lastQuery.Offset)
}

func TestPublishNeedsNoSession(t *testing.T) {
	router := newTestRouter(&stubRegistry{})

	// No session attached; an empty payload must reach the handler and fail
	// validation there, not at the session gate.
	req := httptest.NewRequest(http.MethodPost, "/api/-/publish", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, gjson.Get(rec.Body.String(), "error").String())
}

func TestPostReviewRequiresSession(t *testing.T) {
	router := newTestRouter(&stubRegistry{})

	req := httptest.NewRequest(http.MethodPost, "/api/acme/tool/review", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutWithoutSessionIsRejected(t *testing.T) {
	router := newTestRouter(&stubRegistry{})

	req := httptest.NewRequest(http.MethodPost, "/user/logout", nil)
	rec := executeRequest(router, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
