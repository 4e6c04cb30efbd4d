package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/model"
	"github.com/stashpoint/space-inventory/internal/repository"
)

// SpaceHandler serves the space CRUD and membership endpoints.
type SpaceHandler struct {
	Spaces  *repository.SpaceRepo
	Members *repository.MemberRepo
}

func NewSpaceHandler(s *repository.SpaceRepo, m *repository.MemberRepo) *SpaceHandler {
	return &SpaceHandler{Spaces: s, Members: m}
}

type createSpaceReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type updateSpaceReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type addMemberReq struct {
	MemberID uint64 `json:"member_id"`
	Role     string `json:"role"`
}

// spaceView is the JSON shape of a space row.
type spaceView struct {
	ID          uint64    `json:"id"`
	OwnerID     uint64    `json:"owner_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSpaceView(s *model.Space) spaceView {
	v := spaceView{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Description.Valid {
		d := s.Description.String
		v.Description = &d
	}
	return v
}

// Create handles POST /v1/spaces. The caller becomes the owner and is
// enrolled as ADMIN in the same transaction that creates the space.
func (h *SpaceHandler) Create(c echo.Context) error {
	ownerID, err := getMemberID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}
	var req createSpaceReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	var details []fieldError
	name, details := requireName(details, req.Name)
	if len(details) > 0 {
		return respondValidation(c, details)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// The owner row must exist before the FK insert; a stale token
	// for a deleted member reports 404 rather than a raw FK error.
	if _, err := h.Members.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return respondNotFound(c, "OWNER_NOT_FOUND", "Owner not found")
		}
		return respondInternal(c, err)
	}

	sp := &model.Space{OwnerID: ownerID, Name: name}
	if req.Description != nil {
		sp.Description = sql.NullString{String: *req.Description, Valid: true}
	}
	if err := h.Spaces.Create(ctx, sp); err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusCreated, toSpaceView(sp))
}

// List handles GET /v1/spaces with limit/offset pagination.
func (h *SpaceHandler) List(c echo.Context) error {
	limit, offset := parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	spaces, err := h.Spaces.List(ctx, limit, offset)
	if err != nil {
		return respondInternal(c, err)
	}
	total, err := h.Spaces.Count(ctx)
	if err != nil {
		return respondInternal(c, err)
	}
	out := make([]spaceView, 0, len(spaces))
	for _, s := range spaces {
		out = append(out, toSpaceView(s))
	}
	return respondPage(c, out, pageMeta{Total: total, Limit: limit, Offset: offset})
}

// Get handles GET /v1/spaces/:spaceId.
func (h *SpaceHandler) Get(c echo.Context) error {
	id, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	sp, err := h.Spaces.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, toSpaceView(sp))
}

// Update handles PATCH /v1/spaces/:spaceId. Only the fields present in
// the body are written.
func (h *SpaceHandler) Update(c echo.Context) error {
	id, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	var req updateSpaceReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return respondValidation(c, []fieldError{{Path: "name", Message: "must not be empty"}})
		}
		req.Name = &trimmed
	}
	if req.Name == nil && req.Description == nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "no fields to update")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Spaces.Update(ctx, id, req.Name, req.Description); err != nil {
		return respondRepoError(c, err)
	}
	sp, err := h.Spaces.GetByID(ctx, id)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, toSpaceView(sp))
}

// Delete handles DELETE /v1/spaces/:spaceId. Everything scoped to the
// space goes with it, movement history included.
func (h *SpaceHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Spaces.Delete(ctx, id); err != nil {
		return respondRepoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddMember handles POST /v1/spaces/:spaceId/members. Role defaults to
// MEMBER when omitted.
func (h *SpaceHandler) AddMember(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	var req addMemberReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	var details []fieldError
	if req.MemberID == 0 {
		details = append(details, fieldError{Path: "member_id", Message: "required"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleMember
	}
	if !model.ValidRole(role) {
		details = append(details, fieldError{Path: "role", Message: "must be one of ADMIN, MEMBER, VIEWER"})
	}
	if len(details) > 0 {
		return respondValidation(c, details)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ms, err := h.Spaces.AddMember(ctx, spaceID, req.MemberID, role)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusCreated, ms)
}

// ListMembers handles GET /v1/spaces/:spaceId/members.
func (h *SpaceHandler) ListMembers(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Spaces.GetByID(ctx, spaceID); err != nil {
		return respondRepoError(c, err)
	}
	members, err := h.Spaces.ListMembers(ctx, spaceID)
	if err != nil {
		return respondInternal(c, err)
	}
	return respondData(c, http.StatusOK, members)
}

// RemoveMember handles DELETE /v1/spaces/:spaceId/members/:memberId.
// The owner cannot be removed from their own space.
func (h *SpaceHandler) RemoveMember(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	memberID, err := parseID(c, "memberId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid member id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Spaces.RemoveMember(ctx, spaceID, memberID); err != nil {
		return respondRepoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
