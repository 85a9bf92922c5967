package service

import (
	"context"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// MultiRegistry reads across an ordered list of registries, local first.
// Each lookup falls through to the next registry only on a clean miss (or an
// unreachable upstream); hard failures stop the chain. Search aggregates
// pages across registries up to the requested size.
type MultiRegistry struct {
	registries []ExtensionRegistry
}

var _ ExtensionRegistry = (*MultiRegistry)(nil)

// NewMultiRegistry builds a fan-out over the given registries in priority
// order.
func NewMultiRegistry(registries ...ExtensionRegistry) *MultiRegistry {
	return &MultiRegistry{registries: registries}
}

func (mr *MultiRegistry) GetPublisher(ctx context.Context, publisherName string) (*PublisherJson, apperrors.Error) {
	for _, r := range mr.registries {
		out, err := r.GetPublisher(ctx, publisherName)
		if err == nil {
			return out, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, dberror.ErrNotFound.Msg("publisher not found")
}

func (mr *MultiRegistry) GetExtension(ctx context.Context, publisherName, extensionName string) (*ExtensionJson, apperrors.Error) {
	for _, r := range mr.registries {
		out, err := r.GetExtension(ctx, publisherName, extensionName)
		if err == nil {
			return out, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, dberror.ErrNotFound.Msg("extension not found")
}

func (mr *MultiRegistry) GetExtensionVersion(ctx context.Context, publisherName, extensionName, version string) (*ExtensionJson, apperrors.Error) {
	for _, r := range mr.registries {
		out, err := r.GetExtensionVersion(ctx, publisherName, extensionName, version)
		if err == nil {
			return out, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, dberror.ErrNotFound.Msg("version not found")
}

func (mr *MultiRegistry) GetFile(ctx context.Context, publisherName, extensionName, version, fileName string) ([]byte, string, apperrors.Error) {
	for _, r := range mr.registries {
		data, contentType, err := r.GetFile(ctx, publisherName, extensionName, version, fileName)
		if err == nil {
			return data, contentType, nil
		}
		if !IsNotFound(err) {
			return nil, "", err
		}
	}
	return nil, "", dberror.ErrNotFound.Msg("file not found")
}

func (mr *MultiRegistry) GetReviews(ctx context.Context, publisherName, extensionName string) (*ReviewListJson, apperrors.Error) {
	for _, r := range mr.registries {
		out, err := r.GetReviews(ctx, publisherName, extensionName)
		if err == nil {
			return out, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, dberror.ErrNotFound.Msg("extension not found")
}

// Search fans out across registries in order, skipping the offset over
// earlier registries' totals and collecting entries until the page is full.
// A registry that fails contributes zero results rather than failing the
// whole query.
func (mr *MultiRegistry) Search(ctx context.Context, q models.SearchQuery) (*SearchResultJson, apperrors.Error) {
	size := q.Size
	if size <= 0 {
		size = defaultPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	result := &SearchResultJson{
		Offset:     offset,
		Extensions: []SearchEntryJson{},
	}

	remainingOffset := offset
	for i, r := range mr.registries {
		remaining := size - len(result.Extensions)
		sub, err := r.Search(ctx, models.SearchQuery{
			Text:     q.Text,
			Category: q.Category,
			Size:     remaining,
			Offset:   remainingOffset,
		})
		if err != nil {
			// Local failures matter; upstream failures contribute nothing.
			if i == 0 && !IsNotFound(err) {
				return nil, err
			}
			continue
		}
		result.TotalSize += sub.TotalSize
		if remaining > 0 {
			n := len(sub.Extensions)
			if n > remaining {
				n = remaining
			}
			result.Extensions = append(result.Extensions, sub.Extensions[:n]...)
		}
		remainingOffset -= int(sub.TotalSize)
		if remainingOffset < 0 {
			remainingOffset = 0
		}
	}

	return result, nil
}

const defaultPageSize = 18
