package models

import (
	"time"

	"github.com/extreg/extreg/internal/common/uuid"
)

/*
   Column    |          Type          | Collation | Nullable | Default
-------------+------------------------+-----------+----------+---------
 session_id  | uuid                   |           | not null |
 user_name   | character varying(128) |           | not null |
 created_at  | timestamptz            |           | not null | now()
 last_used   | timestamptz            |           | not null |
*/

// UserSession is an opaque login session. Created at login, read on every
// authenticated request, deleted at logout or by the background reaper once
// the inactivity window has passed.
type UserSession struct {
	SessionID uuid.UUID `db:"session_id"`
	UserName  string    `db:"user_name"`
	CreatedAt time.Time `db:"created_at"`
	LastUsed  time.Time `db:"last_used"`
}
