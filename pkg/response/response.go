package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"guardian-inventory/pkg/apierror"
)

// Response is the envelope of every successful API response.
type Response struct {
	Success bool  `json:"success"`
	Data    any   `json:"data,omitempty"`
	Meta    *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// JSON sends data with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data any) {
	write(w, statusCode, Response{Success: true, Data: data})
}

// JSONWithMeta sends one page of results.
func JSONWithMeta(w http.ResponseWriter, statusCode int, data any, page, limit int, total int64) {
	write(w, statusCode, Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasMore: int64(page*limit) < total,
		},
	})
}

// OK sends a 200 response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error sends err if it is an *apierror.Error, otherwise a generic 500.
func Error(w http.ResponseWriter, err error) {
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierror.InternalError("")
	}
	apiErr.Write(w)
}

func write(w http.ResponseWriter, statusCode int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
