package handler // handler contains the HTTP layer: binding, validation and envelope shaping

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/repository"
)

// Error codes returned in the error envelope. Handlers pick the code;
// the HTTP status follows from the classification.
const (
	codeValidation       = "VALIDATION_ERROR"
	codeDuplicate        = "DUPLICATE_ENTRY"
	codeInvalidReference = "INVALID_REFERENCE"
	codeInternal         = "INTERNAL_ERROR"
)

// pageMeta is the pagination block attached to list responses.
type pageMeta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// errorBody is the error half of the response envelope.
type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Field   string      `json:"field,omitempty"`
}

// fieldError is one entry of a validation details list.
type fieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// respondData writes a success envelope with the given status.
func respondData(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// respondPage writes a success envelope carrying pagination metadata.
func respondPage(c echo.Context, data interface{}, meta pageMeta) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": data, "pagination": meta})
}

// respondError writes a failure envelope.
func respondError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{"success": false, "error": errorBody{Code: code, Message: message}})
}

// respondValidation writes a 400 failure envelope with per-field details.
func respondValidation(c echo.Context, details []fieldError) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"success": false,
		"error":   errorBody{Code: codeValidation, Message: "Invalid request data", Details: details},
	})
}

// respondNotFound writes a 404 failure envelope with an entity-specific code.
func respondNotFound(c echo.Context, code, message string) error {
	return respondError(c, http.StatusNotFound, code, message)
}

// respondInternal hides the underlying error behind a generic message
// and logs it via Echo so the cause is not lost.
func respondInternal(c echo.Context, err error) error {
	c.Logger().Errorf("internal error: %v", err)
	return respondError(c, http.StatusInternalServerError, codeInternal, "Internal server error")
}

// classified maps one repository sentinel onto an envelope response.
type classified struct {
	status  int
	code    string
	message string
}

// sentinelResponses maps every repository sentinel to its HTTP shape.
// Scoped lookups that miss — including cross-tenant probes — all land
// on a 404 here, so a request can never distinguish "absent" from
// "outside my space".
var sentinelResponses = map[error]classified{
	repository.ErrMemberNotFound:     {http.StatusNotFound, "MEMBER_NOT_FOUND", "Member not found"},
	repository.ErrSpaceNotFound:      {http.StatusNotFound, "SPACE_NOT_FOUND", "Space not found"},
	repository.ErrLocationNotFound:   {http.StatusNotFound, "LOCATION_NOT_FOUND", "Location not found"},
	repository.ErrItemNotFound:       {http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found"},
	repository.ErrTagNotFound:        {http.StatusNotFound, "TAG_NOT_FOUND", "Tag not found"},
	repository.ErrMembershipNotFound: {http.StatusNotFound, "MEMBERSHIP_NOT_FOUND", "Membership not found"},
	repository.ErrAssignmentNotFound: {http.StatusNotFound, "TAG_NOT_ASSIGNED", "Tag is not assigned to this item"},
	repository.ErrEmailExists:        {http.StatusConflict, "EMAIL_ALREADY_EXISTS", "A member with this email already exists"},
	repository.ErrAlreadyMember:      {http.StatusConflict, "ALREADY_MEMBER", "Member is already part of this space"},
	repository.ErrTagAlreadyAssigned: {http.StatusConflict, codeDuplicate, "Tag is already assigned to this item"},
	repository.ErrInvalidParent:      {http.StatusBadRequest, codeInvalidReference, "Parent location does not exist in this space"},
	repository.ErrInvalidLocation:    {http.StatusBadRequest, codeInvalidReference, "Location does not exist in this space"},
	repository.ErrLocationInUse:      {http.StatusBadRequest, codeInvalidReference, "Location still holds items"},
	repository.ErrLocationCycle:      {http.StatusConflict, "LOCATION_CYCLE", "Parent assignment would create a cycle"},
	repository.ErrConflict:           {http.StatusBadRequest, "CANNOT_REMOVE_OWNER", "Cannot remove space owner from space"},
}

// respondRepoError classifies a repository error into the envelope
// taxonomy; anything unknown becomes a suppressed 500.
func respondRepoError(c echo.Context, err error) error {
	for sentinel, cl := range sentinelResponses {
		if errors.Is(err, sentinel) {
			return respondError(c, cl.status, cl.code, cl.message)
		}
	}
	return respondInternal(c, err)
}

// parseID parses a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// parsePagination reads limit/offset query parameters with the
// defaults used across all list endpoints. Negative values fall back
// to the defaults.
func parsePagination(c echo.Context) (limit, offset int) {
	limit, offset = 50, 0
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if s := c.QueryParam("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// optionalID parses an optional numeric query parameter, returning
// nil when absent or malformed.
func optionalID(c echo.Context, name string) *uint64 {
	s := c.QueryParam(name)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
