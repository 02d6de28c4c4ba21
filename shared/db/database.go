package db

import (
	"database/sql"
)

// Database is a connectable SQL backend with its schema managed on Connect.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
	Driver() string
}
