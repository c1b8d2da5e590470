package domain

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrBadRequest  = errors.New("bad request")
	ErrLockHeld    = errors.New("lock already held")
	// ErrRunActive signals that a venue already has a run in flight; the
	// second trigger is rejected, never interleaved.
	ErrRunActive = errors.New("run already active for venue")
	// ErrMalformedRecord marks a single unparseable record inside an
	// otherwise healthy batch. It is counted, not fatal.
	ErrMalformedRecord = errors.New("malformed record")
)
