package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/repository"
)

// HistoryHandler serves the movement-ledger read endpoints. The ledger
// is append-only; its only writer is the item move transaction.
type HistoryHandler struct {
	Movements *repository.MovementRepo
	Items     *repository.ItemRepo
	Spaces    *repository.SpaceRepo
}

func NewHistoryHandler(m *repository.MovementRepo, i *repository.ItemRepo, s *repository.SpaceRepo) *HistoryHandler {
	return &HistoryHandler{Movements: m, Items: i, Spaces: s}
}

// ItemHistory handles GET /v1/spaces/:spaceId/items/:itemId/history,
// newest first. The item must belong to the space.
func (h *HistoryHandler) ItemHistory(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid item id")
	}
	limit, offset := parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, err := h.Items.GetByIDAndSpace(ctx, itemID, spaceID); err != nil {
		return respondRepoError(c, err)
	}
	movements, err := h.Movements.ListByItem(ctx, itemID, limit, offset)
	if err != nil {
		return respondInternal(c, err)
	}
	total, err := h.Movements.CountByItem(ctx, itemID)
	if err != nil {
		return respondInternal(c, err)
	}
	return respondPage(c, movements, pageMeta{Total: total, Limit: limit, Offset: offset})
}

// SpaceHistory handles GET /v1/spaces/:spaceId/history with optional
// location_id and member_id filters. The location filter matches rows
// where the location appears as either endpoint of the move.
func (h *HistoryHandler) SpaceHistory(c echo.Context) error {
	spaceID, err := parseID(c, "spaceId")
	if err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid space id")
	}
	limit, offset := parsePagination(c)
	filter := repository.MovementFilter{
		LocationID: optionalID(c, "location_id"),
		MemberID:   optionalID(c, "member_id"),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, err := h.Spaces.GetByID(ctx, spaceID); err != nil {
		return respondRepoError(c, err)
	}
	movements, err := h.Movements.ListBySpace(ctx, spaceID, filter, limit, offset)
	if err != nil {
		return respondInternal(c, err)
	}
	total, err := h.Movements.CountBySpace(ctx, spaceID, filter)
	if err != nil {
		return respondInternal(c, err)
	}
	return respondPage(c, movements, pageMeta{Total: total, Limit: limit, Offset: offset})
}
