package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/model"
	"github.com/stashpoint/space-inventory/internal/repository"
)

// LocationHandler serves the location hierarchy endpoints of a space.
type LocationHandler struct {
	Locations *repository.LocationRepo
	Spaces    *repository.SpaceRepo
}

func NewLocationHandler(l *repository.LocationRepo, s *repository.SpaceRepo) *LocationHandler {
	return &LocationHandler{Locations: l, Spaces: s}
}

type createLocationReq struct {
	Name          string  `json:"name"`
	LocationType  string  `json:"location_type"`
	ParentID      *uint64 `json:"parent_location_id"`
	ReferenceID   *string `json:"reference_id"`
	ReferenceType *string `json:"reference_type"`
}

type updateLocationReq struct {
	Name          *string `json:"name"`
	LocationType  *string `json:"location_type"`
	ParentID      *uint64 `json:"parent_location_id"`
	SetParent     bool    `json:"-"`
	ReferenceID   *string `json:"reference_id"`
	ReferenceType *string `json:"reference_type"`
}

// scanResult is the compact projection returned by the scan endpoint.
type scanResult struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	LocationType string `json:"location_type"`
	Path         string `json:"path"`
}

// locationView converts a model row plus its resolved path into the
// JSON shape shared with the list endpoint.
func locationView(loc *model.Location, path string) repository.LocationWithPath {
	v := repository.LocationWithPath{
		ID:           loc.ID,
		SpaceID:      loc.SpaceID,
		Name:         loc.Name,
		ParentID:     loc.ParentID,
		LocationType: loc.LocationType,
		CreatedByID:  loc.CreatedByID,
		Path:         path,
		CreatedAt:    loc.CreatedAt,
		UpdatedAt:    loc.UpdatedAt,
	}
	if loc.ReferenceID.Valid {
		s := loc.ReferenceID.String
		v.ReferenceID = &s
	}
	if loc.ReferenceType.Valid {
		s := loc.ReferenceType.String
		v.ReferenceType = &s
	}
	return v
}

// Create handles POST /v1/spaces/:spaceId/locations. The creator is
// taken from the access token, never from the body.
func (h *LocationHandler) Create(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	memberID, err := getMemberID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}
	var req createLocationReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}

	var details []fieldError
	name, details := requireName(details, req.Name)
	locType := strings.ToUpper(strings.TrimSpace(req.LocationType))
	if !model.ValidLocationType(locType) {
		details = append(details, fieldError{Path: "location_type", Message: "must be one of ROOT, FLOOR, ROOM, CONTAINER, OTHER"})
	}
	details = checkReferencePair(details, req.ReferenceID, req.ReferenceType)
	if len(details) > 0 {
		return respondValidation(c, details)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Spaces.GetByID(ctx, spaceID); err != nil {
		return respondRepoError(c, err)
	}

	loc := &model.Location{
		SpaceID:      spaceID,
		Name:         name,
		ParentID:     req.ParentID,
		LocationType: locType,
		CreatedByID:  memberID,
	}
	if req.ReferenceID != nil {
		loc.ReferenceID = sql.NullString{String: *req.ReferenceID, Valid: true}
	}
	if req.ReferenceType != nil {
		loc.ReferenceType = sql.NullString{String: *req.ReferenceType, Valid: true}
	}
	if err := h.Locations.Create(ctx, loc); err != nil {
		return respondRepoError(c, err)
	}
	path, err := h.Locations.ResolvePath(ctx, loc.ID)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusCreated, locationView(loc, path))
}

// List handles GET /v1/spaces/:spaceId/locations with optional
// parent_location_id and location_type filters. Every row carries its
// resolved root-to-leaf path.
func (h *LocationHandler) List(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, err := h.Spaces.GetByID(ctx, spaceID); err != nil {
		return respondRepoError(c, err)
	}

	parentID := optionalID(c, "parent_location_id")
	locType := strings.ToUpper(strings.TrimSpace(c.QueryParam("location_type")))
	if locType != "" && !model.ValidLocationType(locType) {
		return respondValidation(c, []fieldError{{Path: "location_type", Message: "unknown location type"}})
	}

	locations, err := h.Locations.List(ctx, spaceID, parentID, locType)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, locations)
}

// Get handles GET /v1/spaces/:spaceId/locations/:locationId.
func (h *LocationHandler) Get(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	locationID, err := parseID(c, "locationId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid location id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	loc, err := h.Locations.GetByIDAndSpace(ctx, locationID, spaceID)
	if err != nil {
		return respondRepoError(c, err)
	}
	path, err := h.Locations.ResolvePath(ctx, loc.ID)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, locationView(loc, path))
}

// Scan handles GET /v1/spaces/:spaceId/locations/scan/:identifier —
// the lookup a mobile client fires after reading an NFC tag or QR
// code on a shelf.
func (h *LocationHandler) Scan(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	identifier := strings.TrimSpace(c.Param("identifier"))
	if identifier == "" {
		return respondError(c, http.StatusBadRequest, codeValidation, "identifier required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	loc, err := h.Locations.FindByReference(ctx, spaceID, identifier)
	if err != nil {
		return respondRepoError(c, err)
	}
	path, err := h.Locations.ResolvePath(ctx, loc.ID)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, scanResult{
		ID: loc.ID, Name: loc.Name, LocationType: loc.LocationType, Path: path,
	})
}

// Update handles PATCH /v1/spaces/:spaceId/locations/:locationId. A
// present parent_location_id key reparents the location; null makes
// it a root. Cycle-producing reparents are rejected with 409.
func (h *LocationHandler) Update(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	locationID, err := parseID(c, "locationId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid location id")
	}

	// Bind into a raw map first so a present-but-null parent key can
	// be told apart from an absent one.
	var raw map[string]interface{}
	if err := c.Bind(&raw); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	req, details := parseLocationUpdate(raw)
	if len(details) > 0 {
		return respondValidation(c, details)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	params := repository.UpdateLocationParams{
		Name:          req.Name,
		LocationType:  req.LocationType,
		SetParent:     req.SetParent,
		ParentID:      req.ParentID,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
	}
	if err := h.Locations.Update(ctx, locationID, spaceID, params); err != nil {
		return respondRepoError(c, err)
	}
	loc, err := h.Locations.GetByIDAndSpace(ctx, locationID, spaceID)
	if err != nil {
		return respondRepoError(c, err)
	}
	path, err := h.Locations.ResolvePath(ctx, loc.ID)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, locationView(loc, path))
}

// parseLocationUpdate validates the raw PATCH body for a location.
func parseLocationUpdate(raw map[string]interface{}) (updateLocationReq, []fieldError) {
	var req updateLocationReq
	var details []fieldError

	if v, ok := raw["name"]; ok {
		s, _ := v.(string)
		s = strings.TrimSpace(s)
		if s == "" {
			details = append(details, fieldError{Path: "name", Message: "must not be empty"})
		} else {
			req.Name = &s
		}
	}
	if v, ok := raw["location_type"]; ok {
		s, _ := v.(string)
		s = strings.ToUpper(strings.TrimSpace(s))
		if !model.ValidLocationType(s) {
			details = append(details, fieldError{Path: "location_type", Message: "unknown location type"})
		} else {
			req.LocationType = &s
		}
	}
	if v, ok := raw["parent_location_id"]; ok {
		req.SetParent = true
		if v != nil {
			f, isNum := v.(float64)
			if !isNum || f < 1 {
				details = append(details, fieldError{Path: "parent_location_id", Message: "must be a positive id or null"})
			} else {
				id := uint64(f)
				req.ParentID = &id
			}
		}
	}
	if v, ok := raw["reference_id"]; ok {
		if s, isStr := v.(string); isStr {
			req.ReferenceID = &s
		}
	}
	if v, ok := raw["reference_type"]; ok {
		if s, isStr := v.(string); isStr {
			req.ReferenceType = &s
		}
	}
	details = checkReferencePair(details, req.ReferenceID, req.ReferenceType)
	return req, details
}

// Delete handles DELETE /v1/spaces/:spaceId/locations/:locationId.
// Locations still holding items cannot be deleted.
func (h *LocationHandler) Delete(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	locationID, err := parseID(c, "locationId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid location id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Locations.Delete(ctx, locationID, spaceID); err != nil {
		return respondRepoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
