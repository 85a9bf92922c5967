package models

import (
	"github.com/extreg/extreg/internal/common/uuid"
)

/*
    Column    |          Type          | Collation | Nullable | Default
--------------+------------------------+-----------+----------+---------
 file_id      | uuid                   |           | not null |
 version_id   | uuid                   |           | not null |
 kind         | character varying(16)  |           | not null |
 content_type | character varying(128) |           | not null |
 content      | bytea                  |           | not null |

 unique (version_id, kind)
*/

// FileKind identifies the role of a file resource attached to a version.
type FileKind string

const (
	FileBinary FileKind = "binary"
	FileReadme FileKind = "readme"
	FileIcon   FileKind = "icon"
)

// FileResource is a binary or text payload attached one-to-one to an
// extension version. The binary kind is mandatory (the archive itself);
// readme and icon are present only when the archive supplies them.
// Content is held uncompressed in memory; the store compresses at rest.
type FileResource struct {
	FileID      uuid.UUID `db:"file_id"`
	VersionID   uuid.UUID `db:"version_id"`
	Kind        FileKind  `db:"kind"`
	ContentType string    `db:"content_type"`
	Content     []byte    `db:"content"`
}
