package models

import (
	"time"

	"github.com/extreg/extreg/internal/common/uuid"
)

/*
    Column    |          Type           | Collation | Nullable | Default
--------------+-------------------------+-----------+----------+---------
 review_id    | uuid                    |           | not null |
 extension_id | uuid                    |           | not null |
 user_name    | character varying(128)  |           | not null |
 posted_at    | timestamptz             |           | not null |
 title        | character varying (256) |           |          |
 comment      | text                    |           |          |
 rating       | integer                 |           | not null |

 check (rating >= 0 and rating <= 5)
*/

// Review is an append-only user review of an extension. Writing one
// recomputes the owning extension's average rating.
type Review struct {
	ReviewID    uuid.UUID `db:"review_id"`
	ExtensionID uuid.UUID `db:"extension_id"`
	UserName    string    `db:"user_name"`
	PostedAt    time.Time `db:"posted_at"`
	Title       string    `db:"title"`
	Comment     string    `db:"comment"`
	Rating      int       `db:"rating"`
}
