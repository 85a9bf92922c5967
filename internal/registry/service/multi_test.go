package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

type fakeRegistry struct {
	extension *ExtensionJson
	searchRes *SearchResultJson
	err       apperrors.Error
}

func (f *fakeRegistry) GetPublisher(ctx context.Context, publisherName string) (*PublisherJson, apperrors.Error) {
	if f.err != nil {
		return nil, f.err
	}
	return &PublisherJson{Name: publisherName}, nil
}

func (f *fakeRegistry) GetExtension(ctx context.Context, publisherName, extensionName string) (*ExtensionJson, apperrors.Error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.extension, nil
}

func (f *fakeRegistry) GetExtensionVersion(ctx context.Context, publisherName, extensionName, version string) (*ExtensionJson, apperrors.Error) {
	return f.GetExtension(ctx, publisherName, extensionName)
}

func (f *fakeRegistry) GetFile(ctx context.Context, publisherName, extensionName, version, fileName string) ([]byte, string, apperrors.Error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("content"), "application/octet-stream", nil
}

func (f *fakeRegistry) GetReviews(ctx context.Context, publisherName, extensionName string) (*ReviewListJson, apperrors.Error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ReviewListJson{}, nil
}

func (f *fakeRegistry) Search(ctx context.Context, q models.SearchQuery) (*SearchResultJson, apperrors.Error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.searchRes, nil
}

func TestMultiRegistryFallsThroughOnNotFound(t *testing.T) {
	local := &fakeRegistry{err: dberror.ErrNotFound.Msg("extension not found")}
	upstream := &fakeRegistry{extension: &ExtensionJson{Publisher: "acme", Name: "tool", Version: "1.0.0"}}
	mr := NewMultiRegistry(local, upstream)

	out, err := mr.GetExtension(context.Background(), "acme", "tool")
	require.Nil(t, err)
	assert.Equal(t, "1.0.0", out.Version)
}

func TestMultiRegistryStopsOnHardError(t *testing.T) {
	local := &fakeRegistry{err: dberror.ErrDatabase.Msg("connection lost")}
	upstream := &fakeRegistry{extension: &ExtensionJson{Publisher: "acme", Name: "tool"}}
	mr := NewMultiRegistry(local, upstream)

	_, err := mr.GetExtension(context.Background(), "acme", "tool")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrDatabase)
}

func TestMultiRegistryTreatsUnavailableUpstreamAsMiss(t *testing.T) {
	local := &fakeRegistry{err: dberror.ErrNotFound.Msg("extension not found")}
	upstream := &fakeRegistry{err: ErrUpstreamUnavailable}
	mr := NewMultiRegistry(local, upstream)

	_, err := mr.GetExtension(context.Background(), "acme", "tool")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestMultiRegistrySearchAggregates(t *testing.T) {
	local := &fakeRegistry{searchRes: &SearchResultJson{
		TotalSize: 2,
		Extensions: []SearchEntryJson{
			{Publisher: "acme", Name: "a"},
			{Publisher: "acme", Name: "b"},
		},
	}}
	upstream := &fakeRegistry{searchRes: &SearchResultJson{
		TotalSize: 1,
		Extensions: []SearchEntryJson{
			{Publisher: "other", Name: "c"},
		},
	}}
	mr := NewMultiRegistry(local, upstream)

	out, err := mr.Search(context.Background(), models.SearchQuery{Size: 10})
	require.Nil(t, err)
	assert.Equal(t, int64(3), out.TotalSize)
	require.Len(t, out.Extensions, 3)
	assert.Equal(t, "c", out.Extensions[2].Name)
}

func TestMultiRegistrySearchSkipsFailedUpstream(t *testing.T) {
	local := &fakeRegistry{searchRes: &SearchResultJson{
		TotalSize:  1,
		Extensions: []SearchEntryJson{{Publisher: "acme", Name: "a"}},
	}}
	upstream := &fakeRegistry{err: ErrUpstreamUnavailable}
	mr := NewMultiRegistry(local, upstream)

	out, err := mr.Search(context.Background(), models.SearchQuery{Size: 10})
	require.Nil(t, err)
	assert.Equal(t, int64(1), out.TotalSize)
	assert.Len(t, out.Extensions, 1)
}

func TestMultiRegistrySearchRespectsPageSize(t *testing.T) {
	local := &fakeRegistry{searchRes: &SearchResultJson{
		TotalSize: 2,
		Extensions: []SearchEntryJson{
			{Name: "a"}, {Name: "b"},
		},
	}}
	upstream := &fakeRegistry{searchRes: &SearchResultJson{
		TotalSize:  5,
		Extensions: []SearchEntryJson{{Name: "c"}, {Name: "d"}, {Name: "e"}},
	}}
	mr := NewMultiRegistry(local, upstream)

	out, err := mr.Search(context.Background(), models.SearchQuery{Size: 3})
	require.Nil(t, err)
	assert.Equal(t, int64(7), out.TotalSize)
	require.Len(t, out.Extensions, 3)
	assert.Equal(t, "c", out.Extensions[2].Name)
}
