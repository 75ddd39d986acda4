package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zjoart/go-intouch-transfer/pkg/apperr"
)

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/transfers/x/status", nil)

	WriteError(rr, req, apperr.Internal(errors.New("pq: relation \"transactions\" does not exist")))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Error.Code)
	assert.NotContains(t, rr.Body.String(), "relation")
}

func TestWriteError_ValidationDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/transfers", nil)

	err := apperr.Validation("Validation failed")
	err.Details = []map[string]string{{"field": "amount", "message": "Amount must be greater than 0"}}
	WriteError(rr, req, err)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"field":"amount"`)
	assert.Contains(t, rr.Body.String(), `"code":"VALIDATION_ERROR"`)
}

func TestBuildSuccessResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	BuildSuccessResponse(rr, http.StatusCreated, "created", map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"message":"created","data":{"id":"abc"}}`, rr.Body.String())
}
