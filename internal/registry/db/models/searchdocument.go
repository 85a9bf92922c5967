package models

import (
	"time"

	"github.com/extreg/extreg/internal/common/uuid"
)

/*
     Column      |          Type           | Collation | Nullable | Default
-----------------+-------------------------+-----------+----------+---------
 extension_id    | uuid                    |           | not null |
 publisher_name  | character varying(128)  |           | not null |
 extension_name  | character varying(128)  |           | not null |
 version         | character varying(128)  |           | not null |
 icon_file_name  | character varying(512)  |           |          |
 display_name    | character varying(256)  |           |          |
 description     | character varying(2048) |           |          |
 categories      | jsonb                   |           |          |
 tags            | jsonb                   |           |          |
 average_rating  | double precision        |           | not null | 0
 updated_at      | timestamptz             |           | not null |
 tsv             | tsvector                |           | not null | generated

 tsv is generated from extension_name, display_name, description and tags.
*/

// SearchDocument is the denormalized search projection of one extension,
// always describing its latest version. Rows are upserted by the index sync
// and can be rebuilt wholesale from the relational tables.
type SearchDocument struct {
	ExtensionID   uuid.UUID `db:"extension_id"`
	PublisherName string    `db:"publisher_name"`
	ExtensionName string    `db:"extension_name"`
	Version       string    `db:"version"`
	IconFileName  string    `db:"icon_file_name"`
	DisplayName   string    `db:"display_name"`
	Description   string    `db:"description"`
	Categories    []string  `db:"categories"`
	Tags          []string  `db:"tags"`
	AverageRating float64   `db:"average_rating"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// SearchQuery carries the user-facing search parameters. Zero-value fields
// mean "no constraint"; Size and Offset are clamped by the store.
type SearchQuery struct {
	Text     string
	Category string
	Size     int
	Offset   int
}
