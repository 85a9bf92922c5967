package models

import (
	"time"

	"github.com/extreg/extreg/internal/common/uuid"
)

/*
    Column    |          Type           | Collation | Nullable | Default
--------------+-------------------------+-----------+----------+---------
 publisher_id | uuid                    |           | not null |
 name         | character varying(128)  |           | not null |
 created_at   | timestamptz             |           | not null | now()
*/

// Publisher is the namespace owner of zero or more extensions, identified by
// a unique name. Publishers are created lazily on first publish and never
// mutated afterwards.
type Publisher struct {
	PublisherID uuid.UUID `db:"publisher_id"`
	Name        string    `db:"name"`
	CreatedAt   time.Time `db:"created_at"`
}
