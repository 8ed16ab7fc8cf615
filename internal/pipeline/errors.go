package pipeline

import "errors"

var (
	// ErrRemoteQuery marks a failed query against the backing store. The
	// wrapping message names the collection that failed.
	ErrRemoteQuery = errors.New("remote query failed")
)
