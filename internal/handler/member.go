package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/repository"
)

// MemberHandler serves the member directory endpoints.
type MemberHandler struct {
	Members *repository.MemberRepo
}

func NewMemberHandler(m *repository.MemberRepo) *MemberHandler {
	return &MemberHandler{Members: m}
}

type updateMemberReq struct {
	Name string `json:"name"`
}

// memberDetail is the member list/detail projection: the password hash
// never leaves the repository layer unserialized, but the detail view
// additionally carries the member's space enrollments.
type memberDetail struct {
	ID        uint64                   `json:"id"`
	Name      string                   `json:"name"`
	Email     string                   `json:"email"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
	Spaces    []repository.MemberSpace `json:"spaces,omitempty"`
}

// List handles GET /v1/members with limit/offset pagination.
func (h *MemberHandler) List(c echo.Context) error {
	limit, offset := parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	members, err := h.Members.List(ctx, limit, offset)
	if err != nil {
		return respondInternal(c, err)
	}
	total, err := h.Members.Count(ctx)
	if err != nil {
		return respondInternal(c, err)
	}
	out := make([]memberDetail, 0, len(members))
	for _, m := range members {
		out = append(out, memberDetail{ID: m.ID, Name: m.Name, Email: m.Email, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt})
	}
	return respondPage(c, out, pageMeta{Total: total, Limit: limit, Offset: offset})
}

// Get handles GET /v1/members/:memberId, including the list of spaces
// the member belongs to.
func (h *MemberHandler) Get(c echo.Context) error {
	id, err := parseID(c, "memberId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid member id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		return respondRepoError(c, err)
	}
	spaces, err := h.Members.SpacesForMember(ctx, id)
	if err != nil {
		return respondInternal(c, err)
	}
	return respondData(c, http.StatusOK, memberDetail{
		ID: m.ID, Name: m.Name, Email: m.Email,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
		Spaces: spaces,
	})
}

// Update handles PATCH /v1/members/:memberId. Only the display name is
// mutable; email changes would invalidate credentials and are not
// offered.
func (h *MemberHandler) Update(c echo.Context) error {
	id, err := parseID(c, "memberId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid member id")
	}
	var req updateMemberReq
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

	if err := h.Members.UpdateName(ctx, id, name); err != nil {
		return respondRepoError(c, err)
	}
	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, memberDetail{ID: m.ID, Name: m.Name, Email: m.Email, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt})
}
