package importer

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Fatal configuration and feed errors.
var (
	ErrURLRequired = errors.New(`the "--url=<URL>" option is required`)
	ErrNoProducts  = errors.New(`feed has no "products" array`)
)

// InvalidEntryError aborts a run on an entry that cannot be imported safely.
type InvalidEntryError struct {
	Index  int
	GTIN   string
	Reason string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("entry %d: %s: %q", e.Index, e.Reason, e.GTIN)
}

// InvalidDateError aborts a run on an entry whose date cannot be parsed.
type InvalidDateError struct {
	GTIN  string
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("GTIN %s: invalid date %q: %v", e.GTIN, e.Value, e.Err)
}

func (e *InvalidDateError) Unwrap() error {
	return e.Err
}

// StatusError is returned for an HTTP response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}
