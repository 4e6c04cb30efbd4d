package router

import (
	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/handler"
)

// RegisterSpaces registers the space CRUD and membership endpoints.
func RegisterSpaces(e *echo.Echo, s *handler.SpaceHandler, jwtSecret string) {
	g := protected(e, jwtSecret)

	g.POST("/spaces", s.Create)
	g.GET("/spaces", s.List)
	g.GET("/spaces/:spaceId", s.Get)
	g.PATCH("/spaces/:spaceId", s.Update)
	g.DELETE("/spaces/:spaceId", s.Delete)

	g.POST("/spaces/:spaceId/members", s.AddMember)
	g.GET("/spaces/:spaceId/members", s.ListMembers)
	g.DELETE("/spaces/:spaceId/members/:memberId", s.RemoveMember)
}

// RegisterInventory registers everything that lives inside a space:
// the location hierarchy, items with their move operation, tags and
// the movement ledger. The scan routes are static segments and take
// precedence over the parameterized id routes.
func RegisterInventory(e *echo.Echo, l *handler.LocationHandler, i *handler.ItemHandler, t *handler.TagHandler, h *handler.HistoryHandler, jwtSecret string) {
	g := protected(e, jwtSecret)

	// Location hierarchy.
	g.POST("/spaces/:spaceId/locations", l.Create)
	g.GET("/spaces/:spaceId/locations", l.List)
	g.GET("/spaces/:spaceId/locations/scan/:identifier", l.Scan)
	g.GET("/spaces/:spaceId/locations/:locationId", l.Get)
	g.PATCH("/spaces/:spaceId/locations/:locationId", l.Update)
	g.DELETE("/spaces/:spaceId/locations/:locationId", l.Delete)

	// Items.
	g.POST("/spaces/:spaceId/items", i.Create)
	g.GET("/spaces/:spaceId/items", i.List)
	g.GET("/spaces/:spaceId/items/scan/:identifier", i.Scan)
	g.GET("/spaces/:spaceId/items/:itemId", i.Get)
	g.PATCH("/spaces/:spaceId/items/:itemId", i.Update)
	g.DELETE("/spaces/:spaceId/items/:itemId", i.Delete)
	// Relocation goes through its own endpoint so every move lands in
	// the ledger; PATCH cannot change an item's location.
	g.POST("/spaces/:spaceId/items/:itemId/move", i.Move)

	// Tags and assignments.
	g.POST("/spaces/:spaceId/tags", t.Create)
	g.GET("/spaces/:spaceId/tags", t.List)
	g.DELETE("/spaces/:spaceId/tags/:tagId", t.Delete)
	// Assignment takes the tag id in the body; unassignment addresses
	// the existing pair by path.
	g.POST("/spaces/:spaceId/items/:itemId/tags", t.Assign)
	g.DELETE("/spaces/:spaceId/items/:itemId/tags/:tagId", t.Unassign)

	// Movement ledger (read-only).
	g.GET("/spaces/:spaceId/items/:itemId/history", h.ItemHistory)
	g.GET("/spaces/:spaceId/history", h.SpaceHistory)
}
