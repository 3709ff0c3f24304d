package teacher

import (
	"errors"
	"fmt"
)

// TransientError marks a retryable condition: timeout, rate limit, or
// transport failure. The cloud teacher retries these internally and only
// surfaces one after retry exhaustion, with the attempt count filled in.
type TransientError struct {
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("teacher query failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("transient teacher failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a condition retrying cannot fix: authentication,
// quota, or a model/programming error.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent teacher failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err carries a PermanentError anywhere in
// its chain.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
