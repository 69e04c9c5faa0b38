package domain

import (
	"errors"
	"fmt"
)

// ErrCacheMiss is returned by cache adapters when a key is absent, letting
// callers tell a miss from a fault. Both are non-fatal on the cache path.
var ErrCacheMiss = errors.New("cache miss")

// RetrievalError reports a failed resource load: a transport failure or a
// non-success HTTP status. It is the only error class surfaced to users;
// cache faults and background refresh failures are swallowed.
type RetrievalError struct {
	URL    string
	Status int // zero when the failure happened before any response
	Err    error
}

func (e *RetrievalError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("retrieve %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("retrieve %s: %v", e.URL, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
