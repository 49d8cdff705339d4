package catalog

import "fmt"

// FetchError reports that a catalog table could not be downloaded or
// decoded. Nothing is cached when it is returned; the next Lookup retries.
type FetchError struct {
	Table string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("catalog: failed to fetch table %s: %v", e.Table, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
