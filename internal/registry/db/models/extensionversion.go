package models

import (
	"time"

	"github.com/extreg/extreg/internal/common/uuid"
)

/*
       Column        |          Type           | Collation | Nullable | Default
---------------------+-------------------------+-----------+----------+---------
 version_id          | uuid                    |           | not null |
 extension_id        | uuid                    |           | not null |
 version             | character varying(128)  |           | not null |
 preview             | boolean                 |           | not null | false
 published_at        | timestamptz             |           | not null |
 display_name        | character varying(256)  |           |          |
 description         | character varying(2048) |           |          |
 categories          | jsonb                   |           |          |
 tags                | jsonb                   |           |          |
 license             | character varying(256)  |           |          |
 homepage            | character varying(1024) |           |          |
 repository          | character varying(1024) |           |          |
 bugs                | character varying(1024) |           |          |
 markdown            | character varying(16)   |           |          |
 gallery_color       | character varying(16)   |           |          |
 gallery_theme       | character varying(16)   |           |          |
 qna                 | character varying(1024) |           |          |
 extension_file_name | character varying(512)  |           | not null |
 readme_file_name    | character varying(512)  |           |          |
 icon_file_name      | character varying(512)  |           |          |

 unique (extension_id, version)
*/

// ExtensionVersion is one published version of an extension. Immutable once
// published; only the owning extension's latest pointer changes elsewhere.
// Optional string attributes use "" for absent.
type ExtensionVersion struct {
	VersionID         uuid.UUID `db:"version_id"`
	ExtensionID       uuid.UUID `db:"extension_id"`
	Version           string    `db:"version"`
	Preview           bool      `db:"preview"`
	PublishedAt       time.Time `db:"published_at"`
	DisplayName       string    `db:"display_name"`
	Description       string    `db:"description"`
	Categories        []string  `db:"categories"`
	Tags              []string  `db:"tags"`
	License           string    `db:"license"`
	Homepage          string    `db:"homepage"`
	Repository        string    `db:"repository"`
	Bugs              string    `db:"bugs"`
	Markdown          string    `db:"markdown"`
	GalleryColor      string    `db:"gallery_color"`
	GalleryTheme      string    `db:"gallery_theme"`
	QnA               string    `db:"qna"`
	ExtensionFileName string    `db:"extension_file_name"`
	ReadmeFileName    string    `db:"readme_file_name"`
	IconFileName      string    `db:"icon_file_name"`
}

// ReferenceKind distinguishes the two cross-reference lists a version
// carries. References point at extensions as a whole, not pinned versions.
type ReferenceKind string

const (
	ReferenceDependency ReferenceKind = "dependency"
	ReferenceBundled    ReferenceKind = "bundled"
)

// RefTarget is a resolved reference target, joined back to its publisher so
// callers can render the "publisher.extension" form without extra lookups.
type RefTarget struct {
	PublisherName string `db:"publisher_name"`
	ExtensionName string `db:"extension_name"`
}
