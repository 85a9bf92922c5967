package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// ParseReference splits a "publisher.extension" reference string. ok is
// false for anything that is not exactly two non-empty dot-separated parts;
// such strings come from other ecosystems' manifests and are not errors.
func ParseReference(ref string) (publisher, extension string, ok bool) {
	parts := strings.Split(ref, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

type resolvedReference struct {
	extensionID   uuid.UUID
	publisherName string
	extensionName string
}

// resolveReferences looks up each reference string against the store.
// Malformed or unresolvable references are dropped: a missing dependency
// must never block publishing the dependent extension. Hard store failures
// still propagate.
func resolveReferences(ctx context.Context, store db.Database, refs []string) ([]resolvedReference, apperrors.Error) {
	var resolved []resolvedReference
	seen := make(map[uuid.UUID]bool)
	for _, ref := range refs {
		publisherName, extensionName, ok := ParseReference(ref)
		if !ok {
			log.Ctx(ctx).Debug().Str("reference", ref).Msg("dropping malformed extension reference")
			continue
		}
		publisher, err := store.GetPublisher(ctx, publisherName)
		if err != nil {
			if errors.Is(err, dberror.ErrNotFound) {
				log.Ctx(ctx).Debug().Str("reference", ref).Msg("dropping unresolvable extension reference")
				continue
			}
			return nil, err
		}
		extension, err := store.GetExtension(ctx, publisher.PublisherID, extensionName)
		if err != nil {
			if errors.Is(err, dberror.ErrNotFound) {
				log.Ctx(ctx).Debug().Str("reference", ref).Msg("dropping unresolvable extension reference")
				continue
			}
			return nil, err
		}
		if seen[extension.ExtensionID] {
			continue
		}
		seen[extension.ExtensionID] = true
		resolved = append(resolved, resolvedReference{
			extensionID:   extension.ExtensionID,
			publisherName: publisherName,
			extensionName: extensionName,
		})
	}
	return resolved, nil
}

func referencesToJson(baseURL string, targets []models.RefTarget) []ExtensionReferenceJson {
	var out []ExtensionReferenceJson
	for _, t := range targets {
		out = append(out, ExtensionReferenceJson{
			Publisher: t.PublisherName,
			Extension: t.ExtensionName,
			URL:       CreateApiUrl(baseURL, t.PublisherName, t.ExtensionName),
		})
	}
	return out
}
