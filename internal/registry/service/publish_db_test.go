package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/config"
	"github.com/extreg/extreg/internal/registry/db"
	"github.com/extreg/extreg/internal/registry/db/models"
	"github.com/extreg/extreg/internal/registry/search"
)

// These tests need a reachable database configured in extregsrv.conf.

func newDb(t *testing.T) context.Context {
	t.Helper()
	config.TestInit()
	db.Init()
	ctx, err := db.ConnCtx(log.Logger.WithContext(context.Background()))
	require.NoError(t, err)
	return ctx
}

func uniqueName(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
}

func buildPackage(t *testing.T, manifest string, extras map[string][]byte) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	w, err := zw.Create("extension/package.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(manifest))
	require.NoError(t, err)

	for name, content := range extras {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func manifestJson(publisher, name, version, displayName string) string {
	return fmt.Sprintf(`{
		"publisher": %q,
		"name": %q,
		"version": %q,
		"displayName": %q,
		"description": "test extension"
	}`, publisher, name, version, displayName)
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func TestPublishRejectsDuplicateVersion(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	lr := NewLocalRegistry("http://localhost:8080", search.NewIndex())
	publisher := uniqueName("pub")
	extension := uniqueName("ext")
	archive := buildPackage(t, manifestJson(publisher, extension, "1.0.0", "Tool"), nil)

	_, err := lr.Publish(ctx, archive)
	require.Nil(t, err)

	_, err = lr.Publish(ctx, archive)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrDuplicateVersion)

	// The failed publish must not leave a second version behind.
	view, err := lr.GetExtension(ctx, publisher, extension)
	require.Nil(t, err)
	assert.Len(t, view.AllVersions, 1)
}

func TestPublishKeepsLatestPointerOnOlderVersion(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	lr := NewLocalRegistry("http://localhost:8080", search.NewIndex())
	publisher := uniqueName("pub")
	extension := uniqueName("ext")

	_, err := lr.Publish(ctx, buildPackage(t, manifestJson(publisher, extension, "1.0.0", "Tool"), nil))
	require.Nil(t, err)

	// Publishing an older version must not move the latest pointer.
	_, err = lr.Publish(ctx, buildPackage(t, manifestJson(publisher, extension, "0.9.0", "Tool"), nil))
	require.Nil(t, err)

	view, err := lr.GetExtension(ctx, publisher, extension)
	require.Nil(t, err)
	assert.Equal(t, "1.0.0", view.Version)
	assert.NotContains(t, view.DownloadURL, "/1.0.0/")
	assert.Len(t, view.AllVersions, 2)

	// A genuinely newer version does move it.
	_, err = lr.Publish(ctx, buildPackage(t, manifestJson(publisher, extension, "2.0.0", "Tool"), nil))
	require.Nil(t, err)

	view, err = lr.GetExtension(ctx, publisher, extension)
	require.Nil(t, err)
	assert.Equal(t, "2.0.0", view.Version)

	// The older version stays addressable by its pinned URL shape.
	pinned, err := lr.GetExtensionVersion(ctx, publisher, extension, "0.9.0")
	require.Nil(t, err)
	assert.Equal(t, "0.9.0", pinned.Version)
	assert.Contains(t, pinned.DownloadURL, "/0.9.0/")
}

func TestPublishRoundTrip(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	lr := NewLocalRegistry("http://localhost:8080", search.NewIndex())
	publisher := uniqueName("pub")
	extension := uniqueName("ext")

	manifest := fmt.Sprintf(`{
		"publisher": %q,
		"name": %q,
		"version": "1.2.3",
		"displayName": "Round Trip",
		"description": "round trip test",
		"icon": "images/logo.png"
	}`, publisher, extension)
	archive := buildPackage(t, manifest, map[string][]byte{
		"extension/README.md":       []byte("# readme"),
		"extension/images/logo.png": pngBytes,
	})

	view, err := lr.Publish(ctx, archive)
	require.Nil(t, err)
	assert.Equal(t, "1.2.3", view.Version)
	assert.Contains(t, view.ReadmeURL, "README.md")
	assert.Contains(t, view.IconURL, "logo.png")
	require.Contains(t, view.AllVersions, "1.2.3")

	fileName := publisher + "." + extension + "-1.2.3.vsix"
	data, contentType, err := lr.GetFile(ctx, publisher, extension, "", fileName)
	require.Nil(t, err)
	assert.Equal(t, "application/octet-stream", contentType)
	assert.Equal(t, archive, data)

	readme, contentType, err := lr.GetFile(ctx, publisher, extension, "1.2.3", "README.md")
	require.Nil(t, err)
	assert.Equal(t, "text/plain", contentType)
	assert.Equal(t, []byte("# readme"), readme)

	icon, contentType, err := lr.GetFile(ctx, publisher, extension, "1.2.3", "logo.png")
	require.Nil(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, pngBytes, icon)

	_, _, err = lr.GetFile(ctx, publisher, extension, "1.2.3", "no-such-file")
	require.NotNil(t, err)
}

func TestReviewAverageRating(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	lr := NewLocalRegistry("http://localhost:8080", search.NewIndex())
	publisher := uniqueName("pub")
	extension := uniqueName("ext")

	_, err := lr.Publish(ctx, buildPackage(t, manifestJson(publisher, extension, "1.0.0", "Rated"), nil))
	require.Nil(t, err)

	view, err := lr.GetExtension(ctx, publisher, extension)
	require.Nil(t, err)
	assert.Zero(t, view.AverageRating)
	assert.Zero(t, view.ReviewCount)

	for _, rating := range []int{5, 3, 4} {
		err := lr.PostReview(ctx, publisher, extension, "user1", ReviewPayload{Rating: rating})
		require.Nil(t, err)
	}

	view, err = lr.GetExtension(ctx, publisher, extension)
	require.Nil(t, err)
	assert.InDelta(t, 4.0, view.AverageRating, 0.0001)
	assert.Equal(t, int64(3), view.ReviewCount)

	reviews, err := lr.GetReviews(ctx, publisher, extension)
	require.Nil(t, err)
	assert.Len(t, reviews.Reviews, 3)
}

func TestSearchProjectionIsIdempotent(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	idx := search.NewIndex()
	lr := NewLocalRegistry("http://localhost:8080", idx)
	publisher := uniqueName("pub")
	extension := uniqueName("ext")
	displayName := uniqueName("frobnicator")

	_, err := lr.Publish(ctx, buildPackage(t, manifestJson(publisher, extension, "1.0.0", displayName), nil))
	require.Nil(t, err)

	store := db.DB(ctx)
	p, err := store.GetPublisher(ctx, publisher)
	require.Nil(t, err)
	e, err := store.GetExtension(ctx, p.PublisherID, extension)
	require.Nil(t, err)

	// Publish indexed once already; indexing again must not add a second row.
	require.Nil(t, idx.IndexExtension(ctx, e.ExtensionID))

	docs, total, err := idx.Search(ctx, models.SearchQuery{Text: displayName})
	require.Nil(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, docs, 1)
	assert.Equal(t, extension, docs[0].ExtensionName)
	assert.Equal(t, "1.0.0", docs[0].Version)
}
