package service

import (
	"context"
	"errors"
	"time"

	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
	"github.com/extreg/extreg/internal/registry/versions"
	"github.com/extreg/extreg/internal/registry/vsix"
)

// Publish ingests one uploaded package as a single transaction: parse the
// manifest, find-or-create the publisher and extension, reject duplicate
// versions, persist the version with its files and resolved references, and
// move the latest pointer when the new version outranks every existing one.
// Nothing is persisted on any failure. The search projection is refreshed
// after commit; a stale projection is tolerated, a partial publish is not.
func (lr *LocalRegistry) Publish(ctx context.Context, archive []byte) (*ExtensionJson, apperrors.Error) {
	descriptor, err := vsix.ReadManifest(archive)
	if err != nil {
		return nil, err
	}
	if _, err := versions.Parse(descriptor.Version); err != nil {
		return nil, err
	}

	readme, readmeName, hasReadme, err := vsix.ReadReadme(archive)
	if err != nil {
		return nil, err
	}
	icon, iconName, hasIcon, err := vsix.ReadIcon(archive, descriptor.Icon)
	if err != nil {
		return nil, err
	}

	store := db.DB(ctx)
	var result *ExtensionJson

	err = store.WithTransaction(ctx, func(ctx context.Context) apperrors.Error {
		publisher, err := lr.findOrCreatePublisher(ctx, store, descriptor.Publisher)
		if err != nil {
			return err
		}
		extension, existed, err := lr.findOrCreateExtension(ctx, store, publisher.PublisherID, descriptor.Name)
		if err != nil {
			return err
		}

		isLatest := true
		if existed {
			exists, err := store.VersionExists(ctx, extension.ExtensionID, descriptor.Version)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateVersion.Msg("version " + descriptor.Version + " is already published")
			}
			published, err := store.ListVersions(ctx, extension.ExtensionID)
			if err != nil {
				return err
			}
			publishedStrings := make([]string, 0, len(published))
			for _, pv := range published {
				publishedStrings = append(publishedStrings, pv.Version)
			}
			isLatest, err = versions.IsLatest(descriptor.Version, publishedStrings)
			if err != nil {
				return err
			}
		}

		version := &models.ExtensionVersion{
			ExtensionID:       extension.ExtensionID,
			Version:           descriptor.Version,
			Preview:           descriptor.Preview,
			PublishedAt:       time.Now().UTC(),
			DisplayName:       descriptor.DisplayName,
			Description:       descriptor.Description,
			Categories:        descriptor.Categories,
			Tags:              descriptor.Tags,
			License:           descriptor.License,
			Homepage:          descriptor.Homepage,
			Repository:        descriptor.Repository,
			Bugs:              descriptor.Bugs,
			Markdown:          descriptor.Markdown,
			GalleryColor:      descriptor.GalleryColor,
			GalleryTheme:      descriptor.GalleryTheme,
			QnA:               descriptor.QnA,
			ExtensionFileName: vsix.FileName(publisher.Name, extension.Name, descriptor.Version),
		}
		if hasReadme {
			version.ReadmeFileName = readmeName
		}
		if hasIcon {
			version.IconFileName = iconName
		}

		if err := store.CreateVersion(ctx, version); err != nil {
			// A concurrent publish of the same version wins the race here.
			if errors.Is(err, dberror.ErrAlreadyExists) {
				return ErrDuplicateVersion.Msg("version " + descriptor.Version + " is already published")
			}
			return err
		}

		if isLatest {
			if err := store.SetLatestVersion(ctx, extension.ExtensionID, version.VersionID); err != nil {
				return err
			}
			extension.LatestVersionID = version.VersionID
		}

		files := []*models.FileResource{{
			VersionID:   version.VersionID,
			Kind:        models.FileBinary,
			ContentType: "application/octet-stream",
			Content:     archive,
		}}
		if hasReadme {
			files = append(files, &models.FileResource{
				VersionID:   version.VersionID,
				Kind:        models.FileReadme,
				ContentType: "text/plain",
				Content:     readme,
			})
		}
		if hasIcon {
			files = append(files, &models.FileResource{
				VersionID:   version.VersionID,
				Kind:        models.FileIcon,
				ContentType: sniffContentType(icon),
				Content:     icon,
			})
		}
		for _, f := range files {
			if err := store.CreateFileResource(ctx, f); err != nil {
				return err
			}
		}

		for kind, refs := range map[models.ReferenceKind][]string{
			models.ReferenceDependency: descriptor.ExtensionDependencies,
			models.ReferenceBundled:    descriptor.BundledExtensions,
		} {
			resolved, err := resolveReferences(ctx, store, refs)
			if err != nil {
				return err
			}
			for _, r := range resolved {
				if err := store.CreateReference(ctx, version.VersionID, r.extensionID, kind); err != nil {
					return err
				}
			}
		}

		view, err := lr.buildExtensionJson(ctx, store, publisher, extension, version, isLatest)
		if err != nil {
			return err
		}
		result = view
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The projection is rebuildable; a failed refresh must not fail the
	// publish that already committed.
	extension, gerr := lookupExtensionID(ctx, store, descriptor.Publisher, descriptor.Name)
	if gerr == nil {
		if ierr := lr.index.IndexExtension(ctx, extension); ierr != nil {
			log.Ctx(ctx).Warn().Err(ierr).Str("extension", descriptor.Name).Msg("failed to refresh search document after publish")
		}
	}

	return result, nil
}

func (lr *LocalRegistry) findOrCreatePublisher(ctx context.Context, store db.Database, name string) (*models.Publisher, apperrors.Error) {
	publisher, err := store.GetPublisher(ctx, name)
	if err == nil {
		return publisher, nil
	}
	if !errors.Is(err, dberror.ErrNotFound) {
		return nil, err
	}

	publisher = &models.Publisher{Name: name}
	cerr := store.CreatePublisher(ctx, publisher)
	if cerr == nil {
		return publisher, nil
	}
	if errors.Is(cerr, dberror.ErrAlreadyExists) {
		// Lost a create race; the winner's row serves us fine.
		return store.GetPublisher(ctx, name)
	}
	return nil, cerr
}

// findOrCreateExtension returns the extension row locked for the rest of the
// publish transaction. Inserting a new row holds its lock implicitly; an
// existing row is taken FOR UPDATE so concurrent publishes decide the latest
// pointer one at a time against a stable version list.
func (lr *LocalRegistry) findOrCreateExtension(ctx context.Context, store db.Database, publisherID uuid.UUID, name string) (*models.Extension, bool, apperrors.Error) {
	extension, err := store.GetExtensionForUpdate(ctx, publisherID, name)
	if err == nil {
		return extension, true, nil
	}
	if !errors.Is(err, dberror.ErrNotFound) {
		return nil, false, err
	}

	extension = &models.Extension{PublisherID: publisherID, Name: name}
	cerr := store.CreateExtension(ctx, extension)
	if cerr == nil {
		return extension, false, nil
	}
	if errors.Is(cerr, dberror.ErrAlreadyExists) {
		// Lost a create race; block on the winner's lock and use its row.
		extension, err = store.GetExtensionForUpdate(ctx, publisherID, name)
		return extension, true, err
	}
	return nil, false, cerr
}

func lookupExtensionID(ctx context.Context, store db.Database, publisherName, extensionName string) (uuid.UUID, apperrors.Error) {
	publisher, err := store.GetPublisher(ctx, publisherName)
	if err != nil {
		return uuid.Nil, err
	}
	extension, err := store.GetExtension(ctx, publisher.PublisherID, extensionName)
	if err != nil {
		return uuid.Nil, err
	}
	return extension.ExtensionID, nil
}

// sniffContentType infers an icon's MIME type from its magic bytes.
func sniffContentType(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream"
	}
	return kind.MIME.Value
}
