package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// ExtensionRegistry is the read surface shared by the local store and any
// upstream registry. NotFound results are distinguishable from server errors
// so callers can fall through to the next registry.
type ExtensionRegistry interface {
	GetPublisher(ctx context.Context, publisherName string) (*PublisherJson, apperrors.Error)
	GetExtension(ctx context.Context, publisherName, extensionName string) (*ExtensionJson, apperrors.Error)
	GetExtensionVersion(ctx context.Context, publisherName, extensionName, version string) (*ExtensionJson, apperrors.Error)
	// GetFile serves one of a version's files by exact file name. An empty
	// version addresses the latest version.
	GetFile(ctx context.Context, publisherName, extensionName, version, fileName string) ([]byte, string, apperrors.Error)
	GetReviews(ctx context.Context, publisherName, extensionName string) (*ReviewListJson, apperrors.Error)
	Search(ctx context.Context, q models.SearchQuery) (*SearchResultJson, apperrors.Error)
}

var (
	// ErrDuplicateVersion rejects publishing a version string that already
	// exists for the extension.
	ErrDuplicateVersion apperrors.Error = apperrors.New("version already published").SetStatusCode(http.StatusConflict)

	// ErrUpstreamNotFound signals a clean miss from an upstream registry.
	ErrUpstreamNotFound apperrors.Error = apperrors.New("not found in upstream registry").SetStatusCode(http.StatusNotFound)

	// ErrUpstreamUnavailable signals that the upstream could not be reached
	// in time. Fan-out reads treat this the same as a miss.
	ErrUpstreamUnavailable apperrors.Error = apperrors.New("upstream registry unavailable").SetStatusCode(http.StatusBadGateway)
)

// IsNotFound reports whether err is a miss that a multi-registry read may
// fall through on, as opposed to a hard failure.
func IsNotFound(err apperrors.Error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, dberror.ErrNotFound) ||
		errors.Is(err, ErrUpstreamNotFound) ||
		errors.Is(err, ErrUpstreamUnavailable)
}
