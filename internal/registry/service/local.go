package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
	"github.com/extreg/extreg/internal/registry/search"
)

// LocalRegistry serves reads and writes from the registry's own store. It is
// stateless; the store connection travels in the request context.
type LocalRegistry struct {
	baseURL string
	index   search.Index
}

var _ ExtensionRegistry = (*LocalRegistry)(nil)

// NewLocalRegistry returns a registry over the local store. baseURL is the
// externally visible server URL used when deriving resource links.
func NewLocalRegistry(baseURL string, index search.Index) *LocalRegistry {
	return &LocalRegistry{baseURL: baseURL, index: index}
}

// GetPublisher returns a publisher and the latest-version URLs of its
// extensions.
func (lr *LocalRegistry) GetPublisher(ctx context.Context, publisherName string) (*PublisherJson, apperrors.Error) {
	store := db.DB(ctx)

	publisher, err := store.GetPublisher(ctx, publisherName)
	if err != nil {
		return nil, err
	}
	extensions, err := store.ListExtensionsByPublisher(ctx, publisher.PublisherID)
	if err != nil {
		return nil, err
	}

	out := &PublisherJson{
		Name:       publisher.Name,
		Extensions: make(map[string]string, len(extensions)),
	}
	for _, e := range extensions {
		out.Extensions[e.Name] = CreateApiUrl(lr.baseURL, publisher.Name, e.Name)
	}
	return out, nil
}

// GetExtension returns the latest version view of an extension.
func (lr *LocalRegistry) GetExtension(ctx context.Context, publisherName, extensionName string) (*ExtensionJson, apperrors.Error) {
	store := db.DB(ctx)

	publisher, extension, err := lr.findExtension(ctx, store, publisherName, extensionName)
	if err != nil {
		return nil, err
	}
	if extension.LatestVersionID == uuid.Nil {
		return nil, dberror.ErrNotFound.Msg("extension has no published versions")
	}
	version, err := store.GetVersionByID(ctx, extension.LatestVersionID)
	if err != nil {
		return nil, err
	}
	return lr.buildExtensionJson(ctx, store, publisher, extension, version, true)
}

// GetExtensionVersion returns the view of one specific version.
func (lr *LocalRegistry) GetExtensionVersion(ctx context.Context, publisherName, extensionName, version string) (*ExtensionJson, apperrors.Error) {
	store := db.DB(ctx)

	publisher, extension, err := lr.findExtension(ctx, store, publisherName, extensionName)
	if err != nil {
		return nil, err
	}
	v, err := store.GetVersion(ctx, extension.ExtensionID, version)
	if err != nil {
		return nil, err
	}
	isLatest := extension.LatestVersionID == v.VersionID
	return lr.buildExtensionJson(ctx, store, publisher, extension, v, isLatest)
}

// GetFile serves a version's file by its exact derived file name. An empty
// version addresses the latest version.
func (lr *LocalRegistry) GetFile(ctx context.Context, publisherName, extensionName, version, fileName string) ([]byte, string, apperrors.Error) {
	store := db.DB(ctx)

	_, extension, err := lr.findExtension(ctx, store, publisherName, extensionName)
	if err != nil {
		return nil, "", err
	}

	var v *models.ExtensionVersion
	if version == "" {
		if extension.LatestVersionID == uuid.Nil {
			return nil, "", dberror.ErrNotFound.Msg("extension has no published versions")
		}
		v, err = store.GetVersionByID(ctx, extension.LatestVersionID)
	} else {
		v, err = store.GetVersion(ctx, extension.ExtensionID, version)
	}
	if err != nil {
		return nil, "", err
	}

	if fileName == "" {
		return nil, "", dberror.ErrNotFound.Msg("file not found")
	}
	var kind models.FileKind
	switch fileName {
	case v.ExtensionFileName:
		kind = models.FileBinary
	case v.ReadmeFileName:
		kind = models.FileReadme
	case v.IconFileName:
		kind = models.FileIcon
	default:
		return nil, "", dberror.ErrNotFound.Msg("file not found")
	}

	file, err := store.GetFileResource(ctx, v.VersionID, kind)
	if err != nil {
		return nil, "", err
	}
	return file.Content, file.ContentType, nil
}

// GetReviews returns all reviews of an extension, newest first.
func (lr *LocalRegistry) GetReviews(ctx context.Context, publisherName, extensionName string) (*ReviewListJson, apperrors.Error) {
	store := db.DB(ctx)

	_, extension, err := lr.findExtension(ctx, store, publisherName, extensionName)
	if err != nil {
		return nil, err
	}
	reviews, err := store.ListReviews(ctx, extension.ExtensionID)
	if err != nil {
		return nil, err
	}

	out := &ReviewListJson{
		PostURL: CreateApiUrl(lr.baseURL, publisherName, extensionName, "review"),
		Reviews: make([]ReviewJson, 0, len(reviews)),
	}
	for _, r := range reviews {
		out.Reviews = append(out.Reviews, ReviewJson{
			User:      r.UserName,
			Timestamp: r.PostedAt,
			Title:     r.Title,
			Comment:   r.Comment,
			Rating:    r.Rating,
		})
	}
	return out, nil
}

// ReviewPayload is a review submission.
type ReviewPayload struct {
	Title   string `json:"title"`
	Comment string `json:"comment"`
	Rating  int    `json:"rating" validate:"gte=0,lte=5"`
}

// PostReview stores a review and recomputes the extension's average rating
// in one transaction, then refreshes the search projection.
func (lr *LocalRegistry) PostReview(ctx context.Context, publisherName, extensionName, userName string, payload ReviewPayload) apperrors.Error {
	store := db.DB(ctx)

	_, extension, err := lr.findExtension(ctx, store, publisherName, extensionName)
	if err != nil {
		return err
	}

	err = store.WithTransaction(ctx, func(ctx context.Context) apperrors.Error {
		review := &models.Review{
			ExtensionID: extension.ExtensionID,
			UserName:    userName,
			PostedAt:    time.Now().UTC(),
			Title:       payload.Title,
			Comment:     payload.Comment,
			Rating:      payload.Rating,
		}
		if err := store.CreateReview(ctx, review); err != nil {
			return err
		}
		avg, _, err := store.AverageRating(ctx, extension.ExtensionID)
		if err != nil {
			return err
		}
		return store.SetAverageRating(ctx, extension.ExtensionID, avg)
	})
	if err != nil {
		return err
	}

	if err := lr.index.IndexExtension(ctx, extension.ExtensionID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("extension", extensionName).Msg("failed to refresh search document after review")
	}
	return nil
}

// Search queries the local search projection.
func (lr *LocalRegistry) Search(ctx context.Context, q models.SearchQuery) (*SearchResultJson, apperrors.Error) {
	docs, total, err := lr.index.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	out := &SearchResultJson{
		Offset:     max(q.Offset, 0),
		TotalSize:  total,
		Extensions: make([]SearchEntryJson, 0, len(docs)),
	}
	for _, doc := range docs {
		out.Extensions = append(out.Extensions, searchEntryFromDocument(lr.baseURL, doc))
	}
	return out, nil
}

func (lr *LocalRegistry) findExtension(ctx context.Context, store db.Database, publisherName, extensionName string) (*models.Publisher, *models.Extension, apperrors.Error) {
	publisher, err := store.GetPublisher(ctx, publisherName)
	if err != nil {
		return nil, nil, err
	}
	extension, err := store.GetExtension(ctx, publisher.PublisherID, extensionName)
	if err != nil {
		return nil, nil, err
	}
	return publisher, extension, nil
}

// buildExtensionJson assembles the full version view: manifest attributes,
// derived URLs, the all-versions map, rating aggregates and reference lists.
// Latest-version views omit the version segment in file URLs.
func (lr *LocalRegistry) buildExtensionJson(ctx context.Context, store db.Database, publisher *models.Publisher, extension *models.Extension, v *models.ExtensionVersion, isLatest bool) (*ExtensionJson, apperrors.Error) {
	all, err := store.ListVersions(ctx, extension.ExtensionID)
	if err != nil {
		return nil, err
	}
	allVersions := make(map[string]string, len(all))
	for _, pv := range all {
		allVersions[pv.Version] = CreateApiUrl(lr.baseURL, publisher.Name, extension.Name, pv.Version)
	}

	_, reviewCount, err := store.AverageRating(ctx, extension.ExtensionID)
	if err != nil {
		return nil, err
	}

	dependencies, err := store.ListReferences(ctx, v.VersionID, models.ReferenceDependency)
	if err != nil {
		return nil, err
	}
	bundled, err := store.ListReferences(ctx, v.VersionID, models.ReferenceBundled)
	if err != nil {
		return nil, err
	}

	fileSegments := func(fileName string) []string {
		if isLatest {
			return []string{publisher.Name, extension.Name, "file", fileName}
		}
		return []string{publisher.Name, extension.Name, v.Version, "file", fileName}
	}

	out := &ExtensionJson{
		Publisher:    publisher.Name,
		Name:         extension.Name,
		Version:      v.Version,
		Timestamp:    v.PublishedAt,
		Preview:      v.Preview,
		DisplayName:  v.DisplayName,
		Description:  v.Description,
		Categories:   v.Categories,
		Tags:         v.Tags,
		License:      v.License,
		Homepage:     v.Homepage,
		Repository:   v.Repository,
		Bugs:         v.Bugs,
		Markdown:     v.Markdown,
		GalleryColor: v.GalleryColor,
		GalleryTheme: v.GalleryTheme,
		QnA:          v.QnA,

		PublisherURL: CreateApiUrl(lr.baseURL, publisher.Name),
		ReviewsURL:   CreateApiUrl(lr.baseURL, publisher.Name, extension.Name, "reviews"),
		DownloadURL:  CreateApiUrl(lr.baseURL, fileSegments(v.ExtensionFileName)...),
		ReadmeURL:    CreateApiUrl(lr.baseURL, fileSegments(v.ReadmeFileName)...),
		IconURL:      CreateApiUrl(lr.baseURL, fileSegments(v.IconFileName)...),

		AllVersions:   allVersions,
		AverageRating: extension.AverageRating,
		ReviewCount:   reviewCount,

		Dependencies:      referencesToJson(lr.baseURL, dependencies),
		BundledExtensions: referencesToJson(lr.baseURL, bundled),
	}
	return out, nil
}
