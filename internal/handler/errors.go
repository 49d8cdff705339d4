package handler

import (
	"errors"
	"log"
	"net/http"

	"guardian-inventory/internal/bungie"
	"guardian-inventory/internal/catalog"
	"guardian-inventory/internal/inventory"
	"guardian-inventory/internal/power"
	"guardian-inventory/pkg/apierror"
	"guardian-inventory/pkg/response"
)

// toAPIError maps engine errors to HTTP errors. Unrecognized errors become
// fallback.
func toAPIError(err error, fallback func(string) *apierror.Error) *apierror.Error {
	var (
		apiErr      *apierror.Error
		transferErr *inventory.TransferError
		syncErr     *inventory.AnnotationSyncError
		fetchErr    *catalog.FetchError
		statusErr   *bungie.StatusError
		platformErr *bungie.PlatformError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, inventory.ErrTransferInProgress):
		return apierror.TransferInProgress(err.Error())
	case errors.Is(err, inventory.ErrItemNotFound),
		errors.Is(err, inventory.ErrUnknownLocation):
		return apierror.NotFound(err.Error())
	case errors.Is(err, inventory.ErrNoSnapshot):
		return apierror.NotLoaded("")
	case errors.Is(err, power.ErrIncompleteLoadout):
		return apierror.IncompleteLoadout(err.Error())
	case errors.As(err, &transferErr),
		errors.As(err, &syncErr),
		errors.As(err, &fetchErr),
		errors.As(err, &statusErr),
		errors.As(err, &platformErr):
		return apierror.Upstream(err.Error())
	}
	return fallback(err.Error())
}

// writeError renders err, treating unknown errors as internal.
func writeError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err, func(string) *apierror.Error {
		log.Printf("[Handler] Unexpected error: %v", err)
		return apierror.InternalError("")
	})
	response.Error(w, apiErr)
}

// writeUpstreamError renders err, treating unknown errors as upstream
// failures.
func writeUpstreamError(w http.ResponseWriter, err error) {
	response.Error(w, toAPIError(err, apierror.Upstream))
}
