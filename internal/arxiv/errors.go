// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"errors"
	"fmt"
)

// Fault classes returned by the client. Connection and timeout faults
// are not translated into these; they surface as the underlying error
// wrapped with operation context, so errors.As still reaches the
// net/url error underneath.
var (
	// ErrNotFound indicates a single-record lookup matched nothing.
	ErrNotFound = errors.New("paper not found on arXiv")

	// ErrUnrecognizedPayload indicates a response body that is neither
	// an Atom feed nor a JSON batch.
	ErrUnrecognizedPayload = errors.New("unrecognized arXiv payload")
)

// StatusError reports a non-success HTTP response from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("arXiv API returned HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("arXiv API returned HTTP %d", e.StatusCode)
}

// IsNotFound reports whether err indicates a missing paper.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
