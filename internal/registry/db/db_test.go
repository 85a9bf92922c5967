package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/config"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

func newDb(t *testing.T) context.Context {
	t.Helper()
	config.TestInit()
	Init()
	ctx, err := ConnCtx(log.Logger.WithContext(context.Background()))
	require.NoError(t, err)
	return ctx
}

func uniqueName(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
}

func TestPublisherNaturalKey(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	name := uniqueName("pub")
	publisher := &models.Publisher{Name: name}
	err := DB(ctx).CreatePublisher(ctx, publisher)
	require.Nil(t, err)
	require.NotEqual(t, uuid.Nil, publisher.PublisherID)

	// The name is a natural key; a second create must conflict.
	err = DB(ctx).CreatePublisher(ctx, &models.Publisher{Name: name})
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)

	got, err := DB(ctx).GetPublisher(ctx, name)
	require.Nil(t, err)
	assert.Equal(t, publisher.PublisherID, got.PublisherID)

	byID, err := DB(ctx).GetPublisherByID(ctx, publisher.PublisherID)
	require.Nil(t, err)
	assert.Equal(t, name, byID.Name)

	_, err = DB(ctx).GetPublisher(ctx, uniqueName("missing"))
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestVersionUniquePerExtension(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	publisher := &models.Publisher{Name: uniqueName("pub")}
	require.Nil(t, DB(ctx).CreatePublisher(ctx, publisher))

	extension := &models.Extension{PublisherID: publisher.PublisherID, Name: uniqueName("ext")}
	require.Nil(t, DB(ctx).CreateExtension(ctx, extension))

	version := &models.ExtensionVersion{
		ExtensionID:       extension.ExtensionID,
		Version:           "1.0.0",
		PublishedAt:       time.Now().UTC(),
		ExtensionFileName: publisher.Name + "." + extension.Name + "-1.0.0.vsix",
	}
	require.Nil(t, DB(ctx).CreateVersion(ctx, version))

	exists, err := DB(ctx).VersionExists(ctx, extension.ExtensionID, "1.0.0")
	require.Nil(t, err)
	assert.True(t, exists)

	exists, err = DB(ctx).VersionExists(ctx, extension.ExtensionID, "2.0.0")
	require.Nil(t, err)
	assert.False(t, exists)

	// Same version string again must conflict, not silently duplicate.
	dup := &models.ExtensionVersion{
		ExtensionID:       extension.ExtensionID,
		Version:           "1.0.0",
		PublishedAt:       time.Now().UTC(),
		ExtensionFileName: version.ExtensionFileName,
	}
	err = DB(ctx).CreateVersion(ctx, dup)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)

	versions, err := DB(ctx).ListVersions(ctx, extension.ExtensionID)
	require.Nil(t, err)
	assert.Len(t, versions, 1)
}

func TestLatestPointerFollowsSetLatestVersion(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	publisher := &models.Publisher{Name: uniqueName("pub")}
	require.Nil(t, DB(ctx).CreatePublisher(ctx, publisher))
	extension := &models.Extension{PublisherID: publisher.PublisherID, Name: uniqueName("ext")}
	require.Nil(t, DB(ctx).CreateExtension(ctx, extension))

	version := &models.ExtensionVersion{
		ExtensionID:       extension.ExtensionID,
		Version:           "1.0.0",
		PublishedAt:       time.Now().UTC(),
		ExtensionFileName: "f.vsix",
	}
	require.Nil(t, DB(ctx).CreateVersion(ctx, version))
	require.Nil(t, DB(ctx).SetLatestVersion(ctx, extension.ExtensionID, version.VersionID))

	got, err := DB(ctx).GetExtensionForUpdate(ctx, publisher.PublisherID, extension.Name)
	require.Nil(t, err)
	assert.Equal(t, version.VersionID, got.LatestVersionID)

	_, err = DB(ctx).GetExtensionForUpdate(ctx, publisher.PublisherID, uniqueName("missing"))
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestUserSessionReaping(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	stale := &models.UserSession{
		UserName: "test_user",
		LastUsed: time.Now().UTC().Add(-48 * time.Hour),
	}
	require.Nil(t, DB(ctx).CreateUserSession(ctx, stale))

	fresh := &models.UserSession{
		UserName: "test_user",
		LastUsed: time.Now().UTC(),
	}
	require.Nil(t, DB(ctx).CreateUserSession(ctx, fresh))
	defer DB(ctx).DeleteUserSession(ctx, fresh.SessionID)

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	n, err := DB(ctx).DeleteExpiredUserSessions(ctx, cutoff)
	require.Nil(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, err = DB(ctx).GetUserSession(ctx, stale.SessionID)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	kept, err := DB(ctx).GetUserSession(ctx, fresh.SessionID)
	require.Nil(t, err)
	assert.Equal(t, "test_user", kept.UserName)
}
