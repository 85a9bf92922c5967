// Package search maintains the full-text search projection of the registry.
// The projection is a cache of relational truth: it can be rebuilt from
// scratch at any time and losing it never corrupts the catalog.
package search

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// Index keeps search documents in sync with published extensions.
type Index interface {
	// IndexExtension upserts the search document of one extension from its
	// current latest version. Last write wins under concurrent publishes.
	IndexExtension(ctx context.Context, extensionID uuid.UUID) apperrors.Error
	// Rebuild regenerates the whole projection from the relational store.
	Rebuild(ctx context.Context) apperrors.Error
	// Search runs a paged query over the projection and returns the page and
	// the total match count.
	Search(ctx context.Context, q models.SearchQuery) ([]*models.SearchDocument, int64, apperrors.Error)
}

type index struct{}

// NewIndex returns the registry's search index, backed by the store found in
// the request context.
func NewIndex() Index {
	return &index{}
}

func (ix *index) IndexExtension(ctx context.Context, extensionID uuid.UUID) apperrors.Error {
	store := db.DB(ctx)

	extension, err := store.GetExtensionByID(ctx, extensionID)
	if err != nil {
		return err
	}
	doc, err := buildDocument(ctx, store, extension)
	if err != nil {
		return err
	}
	if doc == nil {
		log.Ctx(ctx).Debug().Str("extension_id", extensionID.String()).Msg("extension has no versions, skipping index")
		return nil
	}
	return store.UpsertSearchDocument(ctx, doc)
}

func (ix *index) Rebuild(ctx context.Context) apperrors.Error {
	store := db.DB(ctx)

	if err := store.TruncateSearchDocuments(ctx); err != nil {
		return err
	}

	extensions, err := store.ListExtensions(ctx)
	if err != nil {
		return err
	}

	indexed := 0
	for _, extension := range extensions {
		doc, err := buildDocument(ctx, store, extension)
		if err != nil {
			return err
		}
		if doc == nil {
			continue
		}
		if err := store.UpsertSearchDocument(ctx, doc); err != nil {
			return err
		}
		indexed++
	}

	log.Ctx(ctx).Info().Int("extensions", indexed).Msg("search index rebuilt")
	return nil
}

func (ix *index) Search(ctx context.Context, q models.SearchQuery) ([]*models.SearchDocument, int64, apperrors.Error) {
	return db.DB(ctx).SearchExtensions(ctx, q)
}

// buildDocument projects an extension's latest version into its search
// document. Returns nil for an extension without a committed version.
func buildDocument(ctx context.Context, store db.Database, extension *models.Extension) (*models.SearchDocument, apperrors.Error) {
	if extension.LatestVersionID == uuid.Nil {
		return nil, nil
	}

	publisher, err := store.GetPublisherByID(ctx, extension.PublisherID)
	if err != nil {
		return nil, err
	}
	latest, err := store.GetVersionByID(ctx, extension.LatestVersionID)
	if err != nil {
		return nil, err
	}

	return &models.SearchDocument{
		ExtensionID:   extension.ExtensionID,
		PublisherName: publisher.Name,
		ExtensionName: extension.Name,
		Version:       latest.Version,
		IconFileName:  latest.IconFileName,
		DisplayName:   latest.DisplayName,
		Description:   latest.Description,
		Categories:    latest.Categories,
		Tags:          latest.Tags,
		AverageRating: extension.AverageRating,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}
