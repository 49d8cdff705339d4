// Package uid generates request and correlation ids.
package uid

import "github.com/google/uuid"

// New returns a time-ordered (version 7) UUID string.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
