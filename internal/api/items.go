package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/singhkkrish/traceit/internal/apperr"
	"github.com/singhkkrish/traceit/internal/model"
	"github.com/singhkkrish/traceit/internal/photostore"
	"github.com/singhkkrish/traceit/internal/store"
)

// ItemsHandler handles lost item endpoints.
type ItemsHandler struct {
	DB     *sql.DB
	Photos photostore.Store
}

// lostItemRequest is shared by report and update; nil fields are left
// unchanged on update.
type lostItemRequest struct {
	ItemName     *string   `json:"itemName"`
	Category     *string   `json:"category"`
	Description  *string   `json:"description"`
	LocationLost *string   `json:"locationLost"`
	DateLost     *string   `json:"dateLost"`
	Phone        *string   `json:"phone"`
	Photos       *[]string `json:"photos"`
	Status       *string   `json:"status"`
}

func (req *lostItemRequest) complete() bool {
	return nonEmpty(req.ItemName) && nonEmpty(req.Category) && nonEmpty(req.LocationLost) && nonEmpty(req.DateLost)
}

// apply validates the request fields and copies them onto item. Photos are
// handled by the caller.
func (req *lostItemRequest) apply(item *model.Item) error {
	if req.ItemName != nil {
		if item.ItemName = strings.TrimSpace(*req.ItemName); item.ItemName == "" {
			return apperr.Invalid("itemName", "Please provide an item name")
		}
	}
	if req.Category != nil {
		if !model.ValidCategory(*req.Category) {
			return apperr.Invalid("category", "unknown category")
		}
		item.Category = *req.Category
	}
	if req.Description != nil {
		if err := model.ValidateDescription(*req.Description); err != nil {
			return err
		}
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.LocationLost != nil {
		if item.LocationLost = strings.TrimSpace(*req.LocationLost); item.LocationLost == "" {
			return apperr.Invalid("locationLost", "Please provide the location where item was lost")
		}
	}
	if req.DateLost != nil {
		date, err := model.ParseDate("dateLost", *req.DateLost)
		if err != nil {
			return err
		}
		item.DateLost = date
	}
	if req.Phone != nil {
		item.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Status != nil {
		if !model.ValidItemStatus(*req.Status) {
			return apperr.Invalid("status", "invalid status")
		}
		item.Status = *req.Status
	}
	return nil
}

// ListLost handles GET /api/items/lost.
func (h *ItemsHandler) ListLost(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{
		Status:   model.ItemStatusLost,
		Category: q.Get("category"),
		Query:    q.Get("q"),
	})
	if err != nil {
		writeError(w, r, err, "Server error while fetching items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonSuccess(w, http.StatusOK, envelope{"count": len(items), "items": items})
}

// MyReports handles GET /api/items/my-reports.
func (h *ItemsHandler) MyReports(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{ReportedBy: claims.UserID})
	if err != nil {
		writeError(w, r, err, "Server error while fetching your reports")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonSuccess(w, http.StatusOK, envelope{"count": len(items), "items": items})
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Server error while fetching item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "Item not found")
		return
	}
	jsonSuccess(w, http.StatusOK, envelope{"item": item})
}

// Report handles POST /api/items/report.
func (h *ItemsHandler) Report(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req lostItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.complete() {
		jsonError(w, http.StatusBadRequest, "Please provide all required fields")
		return
	}
	req.Status = nil

	item := &model.Item{ReportedBy: &model.UserSummary{ID: claims.UserID}}
	if err := req.apply(item); err != nil {
		writeError(w, r, err, "Please provide valid item details")
		return
	}

	var photos []string
	if req.Photos != nil {
		photos = *req.Photos
	}
	refs, err := photostore.Ingest(r.Context(), h.Photos, photos, model.MaxLostPhotos)
	if err != nil {
		writeError(w, r, err, "Server error while reporting item")
		return
	}
	item.Photos = refs

	created, err := store.CreateItem(r.Context(), h.DB, item)
	if err != nil {
		writeError(w, r, err, "Server error while reporting item")
		return
	}

	slog.Info("lost item reported", "item", created.ID, "user", claims.UserID)
	jsonSuccess(w, http.StatusCreated, envelope{"message": "Lost item reported successfully", "item": created})
}

// ownedItem loads a lost item and checks that the caller reported it. It
// writes the error response and returns nil otherwise.
func (h *ItemsHandler) ownedItem(w http.ResponseWriter, r *http.Request, action string) *model.Item {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Server error while fetching item")
		return nil
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "Item not found")
		return nil
	}
	if item.ReportedBy.ID != GetClaims(r.Context()).UserID {
		jsonError(w, http.StatusForbidden, "Not authorized to "+action+" this item")
		return nil
	}
	return item
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item := h.ownedItem(w, r, "update")
	if item == nil {
		return
	}

	var req lostItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.apply(item); err != nil {
		writeError(w, r, err, "Please provide valid item details")
		return
	}
	if req.Photos != nil {
		refs, err := photostore.Ingest(r.Context(), h.Photos, *req.Photos, model.MaxLostPhotos)
		if err != nil {
			writeError(w, r, err, "Server error while updating item")
			return
		}
		item.Photos = refs
	}

	if err := store.UpdateItem(r.Context(), h.DB, item); err != nil {
		writeError(w, r, err, "Server error while updating item")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil {
		writeError(w, r, err, "Server error while updating item")
		return
	}

	slog.Info("lost item updated", "item", item.ID)
	jsonSuccess(w, http.StatusOK, envelope{"message": "Item updated successfully", "item": updated})
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item := h.ownedItem(w, r, "delete")
	if item == nil {
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		writeError(w, r, err, "Server error while deleting item")
		return
	}

	slog.Info("lost item deleted", "item", item.ID)
	jsonSuccess(w, http.StatusOK, envelope{"message": "Item deleted successfully"})
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
