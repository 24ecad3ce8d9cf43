package db

import "database/sql"

// DB wraps the shared sql handle so higher layers depend on one local type.
type DB struct {
	*sql.DB
}
