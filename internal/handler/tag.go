package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/model"
	"github.com/stashpoint/space-inventory/internal/repository"
)

// TagHandler serves the tag endpoints of a space, including the
// item-tag assignment pair.
type TagHandler struct {
	Tags   *repository.TagRepo
	Items  *repository.ItemRepo
	Spaces *repository.SpaceRepo
}

func NewTagHandler(t *repository.TagRepo, i *repository.ItemRepo, s *repository.SpaceRepo) *TagHandler {
	return &TagHandler{Tags: t, Items: i, Spaces: s}
}

type createTagReq struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

// tagView is the plain tag JSON shape returned on create.
type tagView struct {
	ID          uint64    `json:"id"`
	SpaceID     uint64    `json:"space_id"`
	Name        string    `json:"name"`
	Color       *string   `json:"color"`
	CreatedByID uint64    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// assignmentView is the JSON shape returned when a tag is assigned.
type assignmentView struct {
	ItemID    uint64    `json:"item_id"`
	TagID     uint64    `json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Create handles POST /v1/spaces/:spaceId/tags. The optional color
// must be a "#RRGGBB" hex string.
func (h *TagHandler) Create(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	memberID, err := getMemberID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}
	var req createTagReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}

	var details []fieldError
	name, details := requireName(details, req.Name)
	if req.Color != nil && !validColor(*req.Color) {
		details = append(details, fieldError{Path: "color", Message: "must be a hex color like #A1B2C3"})
	}
	if len(details) > 0 {
		return respondValidation(c, details)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Spaces.GetByID(ctx, spaceID); err != nil {
		return respondRepoError(c, err)
	}

	t := &model.Tag{SpaceID: spaceID, Name: name, CreatedByID: memberID}
	if req.Color != nil {
		t.Color = sql.NullString{String: *req.Color, Valid: true}
	}
	if err := h.Tags.Create(ctx, t); err != nil {
		return respondRepoError(c, err)
	}
	v := tagView{ID: t.ID, SpaceID: t.SpaceID, Name: t.Name, CreatedByID: t.CreatedByID, CreatedAt: t.CreatedAt}
	if t.Color.Valid {
		s := t.Color.String
		v.Color = &s
	}
	return respondData(c, http.StatusCreated, v)
}

// List handles GET /v1/spaces/:spaceId/tags. Each tag carries the
// number of items currently assigned to it.
func (h *TagHandler) List(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Spaces.GetByID(ctx, spaceID); err != nil {
		return respondRepoError(c, err)
	}
	tags, err := h.Tags.List(ctx, spaceID)
	if err != nil {
		return respondInternal(c, err)
	}
	return respondData(c, http.StatusOK, tags)
}

// Delete handles DELETE /v1/spaces/:spaceId/tags/:tagId. Assignments
// cascade away with the tag.
func (h *TagHandler) Delete(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid tag id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tags.Delete(ctx, tagID, spaceID); err != nil {
		return respondRepoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type assignTagReq struct {
	TagID uint64 `json:"tag_id"`
}

// Assign handles POST /v1/spaces/:spaceId/items/:itemId/tags with the
// tag id in the body. Both the item and the tag must belong to the
// space; each miss reports its own 404 code.
func (h *TagHandler) Assign(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid item id")
	}
	var req assignTagReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	if req.TagID == 0 {
		return respondValidation(c, []fieldError{{Path: "tag_id", Message: "required"}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Items.GetByIDAndSpace(ctx, itemID, spaceID); err != nil {
		return respondRepoError(c, err)
	}
	if _, err := h.Tags.GetByIDAndSpace(ctx, req.TagID, spaceID); err != nil {
		return respondRepoError(c, err)
	}

	it, err := h.Tags.Assign(ctx, itemID, req.TagID)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusCreated, assignmentView{ItemID: it.ItemID, TagID: it.TagID, CreatedAt: it.CreatedAt})
}

// Unassign handles DELETE /v1/spaces/:spaceId/items/:itemId/tags/:tagId.
func (h *TagHandler) Unassign(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid item id")
	}
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid tag id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Items.GetByIDAndSpace(ctx, itemID, spaceID); err != nil {
		return respondRepoError(c, err)
	}
	if err := h.Tags.Unassign(ctx, itemID, tagID); err != nil {
		return respondRepoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
