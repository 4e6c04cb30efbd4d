package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashpoint/space-inventory/internal/repository"
)

func newTestContext(t *testing.T, method, target string, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestRespondDataEnvelope(t *testing.T) {
	c, rec := newTestContext(t, http.MethodGet, "/", "")
	require.NoError(t, respondData(c, http.StatusCreated, map[string]string{"name": "Garage"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Garage", data["name"])
}

func TestRespondPageEnvelope(t *testing.T) {
	c, rec := newTestContext(t, http.MethodGet, "/", "")
	require.NoError(t, respondPage(c, []string{"a"}, pageMeta{Total: 9, Limit: 50, Offset: 0}))

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	pg, ok := body["pagination"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(9), pg["total"])
	assert.Equal(t, float64(50), pg["limit"])
	assert.Equal(t, float64(0), pg["offset"])
}

func TestRespondValidationEnvelope(t *testing.T) {
	c, rec := newTestContext(t, http.MethodPost, "/", "")
	require.NoError(t, respondValidation(c, []fieldError{{Path: "name", Message: "must not be empty"}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
	details, ok := errObj["details"].([]interface{})
	require.True(t, ok)
	require.Len(t, details, 1)
	first := details[0].(map[string]interface{})
	assert.Equal(t, "name", first["path"])
}

func TestRespondRepoErrorClassification(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{repository.ErrMemberNotFound, http.StatusNotFound, "MEMBER_NOT_FOUND"},
		{repository.ErrSpaceNotFound, http.StatusNotFound, "SPACE_NOT_FOUND"},
		{repository.ErrLocationNotFound, http.StatusNotFound, "LOCATION_NOT_FOUND"},
		{repository.ErrItemNotFound, http.StatusNotFound, "ITEM_NOT_FOUND"},
		{repository.ErrTagNotFound, http.StatusNotFound, "TAG_NOT_FOUND"},
		{repository.ErrEmailExists, http.StatusConflict, "EMAIL_ALREADY_EXISTS"},
		{repository.ErrAlreadyMember, http.StatusConflict, "ALREADY_MEMBER"},
		{repository.ErrTagAlreadyAssigned, http.StatusConflict, "DUPLICATE_ENTRY"},
		{repository.ErrInvalidParent, http.StatusBadRequest, "INVALID_REFERENCE"},
		{repository.ErrInvalidLocation, http.StatusBadRequest, "INVALID_REFERENCE"},
		{repository.ErrLocationInUse, http.StatusBadRequest, "INVALID_REFERENCE"},
		{repository.ErrLocationCycle, http.StatusConflict, "LOCATION_CYCLE"},
		{repository.ErrConflict, http.StatusBadRequest, "CANNOT_REMOVE_OWNER"},
		{errors.New("driver: bad connection"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			c, rec := newTestContext(t, http.MethodGet, "/", "")
			require.NoError(t, respondRepoError(c, tt.err))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			errObj := body["error"].(map[string]interface{})
			assert.Equal(t, tt.wantCode, errObj["code"])
		})
	}
}

func TestRespondRepoErrorUnwrapsWrapped(t *testing.T) {
	c, rec := newTestContext(t, http.MethodGet, "/", "")
	wrapped := fmt.Errorf("get item: %w", repository.ErrItemNotFound)
	require.NoError(t, respondRepoError(c, wrapped))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 50, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=0", 50, 0},
		{"limit=-5&offset=-1", 50, 0},
		{"limit=abc&offset=xyz", 50, 0},
		{"offset=0", 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := newTestContext(t, http.MethodGet, "/?"+tt.query, "")
			limit, offset := parsePagination(c)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestOptionalID(t *testing.T) {
	c, _ := newTestContext(t, http.MethodGet, "/?location_id=12&bad=oops", "")

	id := optionalID(c, "location_id")
	if assert.NotNil(t, id) {
		assert.Equal(t, uint64(12), *id)
	}
	assert.Nil(t, optionalID(c, "missing"))
	assert.Nil(t, optionalID(c, "bad"))
}
