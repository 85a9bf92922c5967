package models

import (
	"time"

	"github.com/extreg/extreg/internal/common/uuid"
)

/*
      Column       |          Type          | Collation | Nullable | Default
-------------------+------------------------+-----------+----------+---------
 extension_id      | uuid                   |           | not null |
 publisher_id      | uuid                   |           | not null |
 name              | character varying(128) |           | not null |
 latest_version_id | uuid                   |           |          |
 average_rating    | double precision       |           | not null | 0
 created_at        | timestamptz            |           | not null | now()

 unique (publisher_id, name)
*/

// Extension is a named, versioned package belonging to exactly one
// publisher. LatestVersionID points at the version currently considered
// newest; it is uuid.Nil only transiently while the first version of the
// extension is being published.
type Extension struct {
	ExtensionID     uuid.UUID `db:"extension_id"`
	PublisherID     uuid.UUID `db:"publisher_id"`
	Name            string    `db:"name"`
	LatestVersionID uuid.UUID `db:"latest_version_id"`
	AverageRating   float64   `db:"average_rating"`
	CreatedAt       time.Time `db:"created_at"`
}
