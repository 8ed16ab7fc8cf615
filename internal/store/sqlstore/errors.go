package sqlstore

import "errors"

var (
	ErrUnsupportedDriver = errors.New("unsupported sql driver")
	ErrMigrationFailed   = errors.New("schema migration failed")
)
