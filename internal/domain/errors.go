package domain

import "fmt"

// FetchError reports that content retrieval for one URL exhausted its
// retries or hit a non-retryable transport failure. Isolated to the
// candidate; never aborts a batch.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ClassificationError reports an inference failure that category coercion
// cannot repair (transport error, empty or unparseable response).
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// TransportError reports an intake-transport failure (cannot connect to the
// mailbox, cannot parse the feed). Fatal to the current batch and surfaced
// to the invoker; nothing inside the batch retries it.
type TransportError struct {
	Source string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("intake %s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
