package coderun

import "fmt"

// ErrHTTP reports a non-success status from a remote fetch.
type ErrHTTP struct {
	Status int
	URL    string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.URL)
}
