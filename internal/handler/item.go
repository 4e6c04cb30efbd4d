package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/model"
	"github.com/stashpoint/space-inventory/internal/queue"
	"github.com/stashpoint/space-inventory/internal/repository"
)

// MovePublisher emits an event after a successful item move. The
// broker is an announcement channel, not a dependency of the move
// itself: publish failures are logged and swallowed.
type MovePublisher interface {
	PublishItemMoved(ctx context.Context, ev queue.ItemMovedEvent) error
}

// ItemHandler serves the item endpoints of a space.
type ItemHandler struct {
	Items  *repository.ItemRepo
	Spaces *repository.SpaceRepo
	Events MovePublisher // nil disables event publishing
}

func NewItemHandler(i *repository.ItemRepo, s *repository.SpaceRepo, ev MovePublisher) *ItemHandler {
	return &ItemHandler{Items: i, Spaces: s, Events: ev}
}

type createItemReq struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	Quantity      *uint32 `json:"quantity"`
	ImageURL      *string `json:"image_url"`
	LocationID    uint64  `json:"location_id"`
	ReferenceID   *string `json:"reference_id"`
	ReferenceType *string `json:"reference_type"`
}

type updateItemReq struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Quantity      *uint32 `json:"quantity"`
	ImageURL      *string `json:"image_url"`
	ReferenceID   *string `json:"reference_id"`
	ReferenceType *string `json:"reference_type"`
}

type moveItemReq struct {
	ToLocationID uint64  `json:"to_location_id"`
	Notes        *string `json:"notes"`
}

// itemView is the plain item JSON shape used where the decorated
// detail projection is not needed (create and move responses resolve
// the detail separately).
type itemView struct {
	ID            uint64    `json:"id"`
	SpaceID       uint64    `json:"space_id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	Quantity      uint32    `json:"quantity"`
	ImageURL      *string   `json:"image_url"`
	LocationID    uint64    `json:"location_id"`
	ReferenceID   *string   `json:"reference_id"`
	ReferenceType *string   `json:"reference_type"`
	CreatedByID   uint64    `json:"created_by_id"`
	LastMovedByID *uint64   `json:"last_moved_by_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toItemView(it *model.Item) itemView {
	v := itemView{
		ID:            it.ID,
		SpaceID:       it.SpaceID,
		Name:          it.Name,
		Quantity:      it.Quantity,
		LocationID:    it.LocationID,
		CreatedByID:   it.CreatedByID,
		LastMovedByID: it.LastMovedByID,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}
	for _, f := range []struct {
		src sql.NullString
		dst **string
	}{
		{it.Description, &v.Description},
		{it.ImageURL, &v.ImageURL},
		{it.ReferenceID, &v.ReferenceID},
		{it.ReferenceType, &v.ReferenceType},
	} {
		if f.src.Valid {
			s := f.src.String
			*f.dst = &s
		}
	}
	return v
}

// Create handles POST /v1/spaces/:spaceId/items. Quantity defaults to
// 1 when omitted; the location must exist in the same space.
func (h *ItemHandler) Create(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	memberID, err := getMemberID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}
	var req createItemReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}

	var details []fieldError
	name, details := requireName(details, req.Name)
	if req.LocationID == 0 {
		details = append(details, fieldError{Path: "location_id", Message: "required"})
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

	it := &model.Item{
		SpaceID:     spaceID,
		Name:        name,
		Quantity:    1,
		LocationID:  req.LocationID,
		CreatedByID: memberID,
	}
	if req.Quantity != nil {
		it.Quantity = *req.Quantity
	}
	if req.Description != nil {
		it.Description = sql.NullString{String: *req.Description, Valid: true}
	}
	if req.ImageURL != nil {
		it.ImageURL = sql.NullString{String: *req.ImageURL, Valid: true}
	}
	if req.ReferenceID != nil {
		it.ReferenceID = sql.NullString{String: *req.ReferenceID, Valid: true}
	}
	if req.ReferenceType != nil {
		it.ReferenceType = sql.NullString{String: *req.ReferenceType, Valid: true}
	}
	if err := h.Items.Create(ctx, it); err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusCreated, toItemView(it))
}

// List handles GET /v1/spaces/:spaceId/items with location_id, tag_id
// and search filters plus limit/offset pagination.
func (h *ItemHandler) List(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	limit, offset := parsePagination(c)
	filter := repository.ItemFilter{
		LocationID: optionalID(c, "location_id"),
		TagID:      optionalID(c, "tag_id"),
		Search:     strings.TrimSpace(c.QueryParam("search")),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, err := h.Spaces.GetByID(ctx, spaceID); err != nil {
		return respondRepoError(c, err)
	}
	items, total, err := h.Items.List(ctx, spaceID, filter, limit, offset)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondPage(c, items, pageMeta{Total: total, Limit: limit, Offset: offset})
}

// Get handles GET /v1/spaces/:spaceId/items/:itemId and returns the
// decorated detail view: location with path, flattened tags.
func (h *ItemHandler) Get(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid item id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	detail, err := h.Items.GetDetail(ctx, itemID, spaceID)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, detail)
}

// Scan handles GET /v1/spaces/:spaceId/items/scan/:identifier.
func (h *ItemHandler) Scan(c echo.Context) error {
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

	detail, err := h.Items.FindByReference(ctx, spaceID, identifier)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, detail)
}

// Update handles PATCH /v1/spaces/:spaceId/items/:itemId. Relocation
// is not allowed here; moves go through the Move endpoint so the
// history ledger stays complete.
func (h *ItemHandler) Update(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid item id")
	}
	var req updateItemReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}

	var details []fieldError
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			details = append(details, fieldError{Path: "name", Message: "must not be empty"})
		}
		req.Name = &trimmed
	}
	details = checkReferencePair(details, req.ReferenceID, req.ReferenceType)
	if len(details) > 0 {
		return respondValidation(c, details)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it, err := h.Items.Update(ctx, itemID, spaceID, repository.UpdateItemParams{
		Name:          req.Name,
		Description:   req.Description,
		Quantity:      req.Quantity,
		ImageURL:      req.ImageURL,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
	})
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, toItemView(it))
}

// Move handles POST /v1/spaces/:spaceId/items/:itemId/move. The move
// and its history entry commit in one transaction; afterwards an
// item.moved event is published best-effort.
func (h *ItemHandler) Move(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid item id")
	}
	memberID, err := getMemberID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}
	var req moveItemReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	if req.ToLocationID == 0 {
		return respondValidation(c, []fieldError{{Path: "to_location_id", Message: "required"}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it, fromLocationID, err := h.Items.Move(ctx, itemID, spaceID, req.ToLocationID, memberID, req.Notes)
	if err != nil {
		return respondRepoError(c, err)
	}

	if h.Events != nil {
		ev := queue.ItemMovedEvent{
			ItemID:         it.ID,
			ItemName:       it.Name,
			SpaceID:        it.SpaceID,
			FromLocationID: fromLocationID,
			ToLocationID:   it.LocationID,
			MovedByID:      memberID,
			Notes:          req.Notes,
			MovedAt:        time.Now().UTC(),
		}
		if err := h.Events.PublishItemMoved(ctx, ev); err != nil {
			c.Logger().Errorf("publish item.moved: %v", err)
		}
	}
	return respondData(c, http.StatusOK, toItemView(it))
}

// Delete handles DELETE /v1/spaces/:spaceId/items/:itemId. History
// rows survive with their item reference nullified.
func (h *ItemHandler) Delete(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid item id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Items.Delete(ctx, itemID, spaceID); err != nil {
		return respondRepoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
