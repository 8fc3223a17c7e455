package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/service"
)

// ItemHandler serves the item listing.
type ItemHandler struct {
	items  *service.ItemService
	logger *slog.Logger
}

func NewItemHandler(items *service.ItemService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, logger: logger}
}

// HandleList handles GET /api/items?limit=&offset=.
func (h *ItemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryInt(q.Get("limit"))
	offset := queryInt(q.Get("offset"))

	viewerID, _ := auth.UserIDFromContext(r.Context())

	page, err := h.items.List(r.Context(), viewerID, limit, offset)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// queryInt parses a non-negative integer query value. Anything else yields
// 0, which the service replaces with its default.
func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
