package store

import "errors"

var (
	ErrQueryFailed        = errors.New("query failed")
	ErrTransport          = errors.New("could not reach the query backend")
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrNoColumns          = errors.New("query selects no columns")
	ErrEmptyKeySet        = errors.New("membership predicate with no keys")
	ErrRangeWithoutColumn = errors.New("range predicate without a column")
)
