package handler

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/model"
)

// getMemberID extracts the authenticated member's id from the echo
// context and converts it to uint64. The JWT middleware stores the
// raw claim value, which may arrive as any numeric type or a string
// depending on how the token was decoded.
func getMemberID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// colorPattern matches "#RRGGBB" hex colors, case-insensitive.
var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// validColor reports whether s is a well-formed hex color.
func validColor(s string) bool {
	return colorPattern.MatchString(s)
}

// checkReferencePair validates an optional scannable-identifier pair
// and appends any problems to details.
func checkReferencePair(details []fieldError, refID, refType *string) []fieldError {
	if refType != nil && !model.ValidReferenceType(*refType) {
		details = append(details, fieldError{Path: "reference_type", Message: "must be one of NFC, QR_CODE, BARCODE, MANUAL"})
	}
	if refType != nil && refID == nil {
		details = append(details, fieldError{Path: "reference_id", Message: "required when reference_type is set"})
	}
	return details
}

// requireName trims a name field and appends a problem when it comes
// out empty.
func requireName(details []fieldError, name string) (string, []fieldError) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		details = append(details, fieldError{Path: "name", Message: "must not be empty"})
	}
	return trimmed, details
}
