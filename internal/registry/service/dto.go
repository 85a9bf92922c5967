// Package service implements the registry's read and publish operations over
// the entity store, with optional fallback to an upstream registry.
package service

import (
	"time"

	"github.com/extreg/extreg/internal/registry/db/models"
	"github.com/extreg/extreg/internal/registry/vsix"
)

// ExtensionJson is the wire view of one extension version plus
// extension-level aggregates. The same shape serves the latest-version and
// the specific-version read paths; URL fields for the latest view omit the
// version path segment.
type ExtensionJson struct {
	Publisher   string    `json:"publisher"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	Preview     bool      `json:"preview,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Description string    `json:"description,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	Tags        []string  `json:"tags,omitempty"`

	License      string `json:"license,omitempty"`
	Homepage     string `json:"homepage,omitempty"`
	Repository   string `json:"repository,omitempty"`
	Bugs         string `json:"bugs,omitempty"`
	Markdown     string `json:"markdown,omitempty"`
	GalleryColor string `json:"galleryColor,omitempty"`
	GalleryTheme string `json:"galleryTheme,omitempty"`
	QnA          string `json:"qna,omitempty"`

	PublisherURL string `json:"publisherUrl,omitempty"`
	ReviewsURL   string `json:"reviewsUrl,omitempty"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
	ReadmeURL    string `json:"readmeUrl,omitempty"`
	IconURL      string `json:"iconUrl,omitempty"`

	// AllVersions maps every published version string to its read URL.
	AllVersions map[string]string `json:"allVersions,omitempty"`

	AverageRating float64 `json:"averageRating,omitempty"`
	ReviewCount   int64   `json:"reviewCount,omitempty"`

	Dependencies      []ExtensionReferenceJson `json:"dependencies,omitempty"`
	BundledExtensions []ExtensionReferenceJson `json:"bundledExtensions,omitempty"`

	// Error is set by upstream registries that report structured failures
	// in-band instead of HTTP status codes.
	Error string `json:"error,omitempty"`
}

// ExtensionReferenceJson is one resolved cross-extension link.
type ExtensionReferenceJson struct {
	Publisher string `json:"publisher"`
	Extension string `json:"extension"`
	URL       string `json:"url,omitempty"`
}

// PublisherJson is the wire view of a publisher: its name and a map of
// extension names to their latest-version URLs.
type PublisherJson struct {
	Name       string            `json:"name"`
	Extensions map[string]string `json:"extensions"`
	Error      string            `json:"error,omitempty"`
}

// ReviewJson is one user review on the wire.
type ReviewJson struct {
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	Rating    int       `json:"rating"`
}

// ReviewListJson carries an extension's reviews plus the URL for posting one.
type ReviewListJson struct {
	PostURL string       `json:"postUrl,omitempty"`
	Reviews []ReviewJson `json:"reviews"`
	Error   string       `json:"error,omitempty"`
}

// SearchEntryJson is one row of a search result page.
type SearchEntryJson struct {
	URL           string    `json:"url"`
	Publisher     string    `json:"publisher"`
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	DisplayName   string    `json:"displayName,omitempty"`
	Description   string    `json:"description,omitempty"`
	AverageRating float64   `json:"averageRating,omitempty"`
	DownloadURL   string    `json:"downloadUrl,omitempty"`
	IconURL       string    `json:"iconUrl,omitempty"`
}

// SearchResultJson is a search page with the echoed effective offset and the
// total match count across the queried registries.
type SearchResultJson struct {
	Offset     int               `json:"offset"`
	TotalSize  int64             `json:"totalSize"`
	Extensions []SearchEntryJson `json:"extensions"`
	Error      string            `json:"error,omitempty"`
}

func searchEntryFromDocument(baseURL string, doc *models.SearchDocument) SearchEntryJson {
	fileName := vsix.FileName(doc.PublisherName, doc.ExtensionName, doc.Version)
	return SearchEntryJson{
		URL:           CreateApiUrl(baseURL, doc.PublisherName, doc.ExtensionName),
		Publisher:     doc.PublisherName,
		Name:          doc.ExtensionName,
		Version:       doc.Version,
		Timestamp:     doc.UpdatedAt,
		DisplayName:   doc.DisplayName,
		Description:   doc.Description,
		AverageRating: doc.AverageRating,
		DownloadURL:   CreateApiUrl(baseURL, doc.PublisherName, doc.ExtensionName, doc.Version, "file", fileName),
		IconURL:       CreateApiUrl(baseURL, doc.PublisherName, doc.ExtensionName, doc.Version, "file", doc.IconFileName),
	}
}
