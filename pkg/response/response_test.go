package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian-inventory/pkg/apierror"
)

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []int{1, 2}, 1, 2, 5)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.NotNil(t, body.Meta)
	assert.Equal(t, int64(5), body.Meta.Total)
	assert.True(t, body.Meta.HasMore)

	rec = httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []int{5}, 3, 2, 5)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Meta.HasMore)
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, apierror.TransferInProgress(""))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"TRANSFER_IN_PROGRESS","message":"A transfer for this item is already in progress"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Error(rec, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")

	rec = httptest.NewRecorder()
	Error(rec, apierror.ValidationError("invalid hash", apierror.FieldError{Field: "hash", Message: "not a number"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"details":[{"field":"hash","message":"not a number"}]`)
}
