package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/singhkkrish/traceit/internal/apperr"
	"github.com/singhkkrish/traceit/internal/model"
	"github.com/singhkkrish/traceit/internal/photostore"
	"github.com/singhkkrish/traceit/internal/store"
	"github.com/singhkkrish/traceit/internal/verify"
)

// FoundItemsHandler handles found item endpoints, including ownership
// verification.
type FoundItemsHandler struct {
	DB     *sql.DB
	Photos photostore.Store
}

type foundItemRequest struct {
	ItemName         *string   `json:"itemName"`
	Category         *string   `json:"category"`
	LocationFound    *string   `json:"locationFound"`
	DateFound        *string   `json:"dateFound"`
	Phone            *string   `json:"phone"`
	SecurityQuestion *string   `json:"securityQuestion"`
	SecurityAnswer   *string   `json:"securityAnswer"`
	Photos           *[]string `json:"photos"`
	Status           *string   `json:"status"`
}

type verifyRequest struct {
	SecurityAnswer string `json:"securityAnswer"`
}

func (req *foundItemRequest) complete() bool {
	return nonEmpty(req.ItemName) && nonEmpty(req.Category) && nonEmpty(req.LocationFound) &&
		nonEmpty(req.DateFound) && nonEmpty(req.SecurityQuestion) && nonEmpty(req.SecurityAnswer)
}

// apply validates the request and copies it onto item. It returns the new
// security answer, or "" when the answer is unchanged.
func (req *foundItemRequest) apply(item *model.FoundItem) (string, error) {
	if req.ItemName != nil {
		if item.ItemName = strings.TrimSpace(*req.ItemName); item.ItemName == "" {
			return "", apperr.Invalid("itemName", "Please provide an item name")
		}
	}
	if req.Category != nil {
		if !model.ValidCategory(*req.Category) {
			return "", apperr.Invalid("category", "unknown category")
		}
		item.Category = *req.Category
	}
	if req.LocationFound != nil {
		if item.LocationFound = strings.TrimSpace(*req.LocationFound); item.LocationFound == "" {
			return "", apperr.Invalid("locationFound", "Please provide the location where item was found")
		}
	}
	if req.DateFound != nil {
		date, err := model.ParseDate("dateFound", *req.DateFound)
		if err != nil {
			return "", err
		}
		item.DateFound = date
	}
	if req.Phone != nil {
		item.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.SecurityQuestion != nil {
		if item.SecurityQuestion = strings.TrimSpace(*req.SecurityQuestion); item.SecurityQuestion == "" {
			return "", apperr.Invalid("securityQuestion", "Please provide a security question")
		}
	}

	if req.Status != nil {
		if !model.ValidFoundStatus(*req.Status) {
			return "", apperr.Invalid("status", "invalid status")
		}
		item.Status = *req.Status
	}

	var answer string
	if req.SecurityAnswer != nil {
		answer = strings.TrimSpace(*req.SecurityAnswer)
		if err := verify.ValidateAnswer(answer); err != nil {
			return "", apperr.Invalid("securityAnswer", "Please provide the security answer")
		}
	}
	return answer, nil
}

// List handles GET /api/found-items.
func (h *FoundItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := store.ListFoundItems(r.Context(), h.DB, store.FoundItemFilter{
		Status:   model.FoundStatusFound,
		Category: q.Get("category"),
		Query:    q.Get("q"),
	})
	if err != nil {
		writeError(w, r, err, "Server error while fetching found items")
		return
	}
	if items == nil {
		items = []model.FoundItem{}
	}
	jsonSuccess(w, http.StatusOK, envelope{"count": len(items), "foundItems": items})
}

// MyReports handles GET /api/found-items/my-reports. The finder sees the
// report phone as well.
func (h *FoundItemsHandler) MyReports(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	items, err := store.ListFoundItems(r.Context(), h.DB, store.FoundItemFilter{FoundBy: claims.UserID})
	if err != nil {
		writeError(w, r, err, "Server error while fetching your reports")
		return
	}

	own := make([]model.OwnFoundItem, 0, len(items))
	for _, item := range items {
		own = append(own, item.Own())
	}
	jsonSuccess(w, http.StatusOK, envelope{"count": len(own), "foundItems": own})
}

// Get handles GET /api/found-items/{id}.
func (h *FoundItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetFoundItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Server error while fetching found item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "Found item not found")
		return
	}
	jsonSuccess(w, http.StatusOK, envelope{"foundItem": item})
}

// Report handles POST /api/found-items/report.
func (h *FoundItemsHandler) Report(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req foundItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.complete() {
		jsonError(w, http.StatusBadRequest, "Please provide all required fields")
		return
	}
	req.Status = nil

	item := &model.FoundItem{FoundBy: claims.UserID}
	answer, err := req.apply(item)
	if err != nil {
		writeError(w, r, err, "Please provide valid item details")
		return
	}

	var photos []string
	if req.Photos != nil {
		photos = *req.Photos
	}
	refs, err := photostore.Ingest(r.Context(), h.Photos, photos, model.MaxFoundPhotos)
	if err != nil {
		writeError(w, r, err, "Server error while reporting found item")
		return
	}
	item.Photos = refs

	created, err := store.CreateFoundItem(r.Context(), h.DB, item, answer)
	if err != nil {
		writeError(w, r, err, "Server error while reporting found item")
		return
	}

	slog.Info("found item reported", "item", created.ID, "user", claims.UserID)
	jsonSuccess(w, http.StatusCreated, envelope{"message": "Found item reported successfully", "foundItem": created.Own()})
}

// ownedFoundItem loads a found item and checks that the caller reported it.
// It writes the error response and returns nil otherwise.
func (h *FoundItemsHandler) ownedFoundItem(w http.ResponseWriter, r *http.Request, action string) *model.FoundItem {
	item, err := store.GetFoundItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Server error while fetching found item")
		return nil
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "Found item not found")
		return nil
	}
	if item.FoundBy != GetClaims(r.Context()).UserID {
		jsonError(w, http.StatusForbidden, "Not authorized to "+action+" this item")
		return nil
	}
	return item
}

// Update handles PUT /api/found-items/{id}.
func (h *FoundItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item := h.ownedFoundItem(w, r, "update")
	if item == nil {
		return
	}

	var req foundItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	answer, err := req.apply(item)
	if err != nil {
		writeError(w, r, err, "Please provide valid item details")
		return
	}
	if req.Photos != nil {
		refs, err := photostore.Ingest(r.Context(), h.Photos, *req.Photos, model.MaxFoundPhotos)
		if err != nil {
			writeError(w, r, err, "Server error while updating found item")
			return
		}
		item.Photos = refs
	}

	if err := store.UpdateFoundItem(r.Context(), h.DB, item, answer); err != nil {
		writeError(w, r, err, "Server error while updating found item")
		return
	}

	updated, err := store.GetFoundItem(r.Context(), h.DB, item.ID)
	if err != nil {
		writeError(w, r, err, "Server error while updating found item")
		return
	}

	slog.Info("found item updated", "item", item.ID)
	jsonSuccess(w, http.StatusOK, envelope{"message": "Found item updated successfully", "foundItem": updated.Own()})
}

// Delete handles DELETE /api/found-items/{id}.
func (h *FoundItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item := h.ownedFoundItem(w, r, "delete")
	if item == nil {
		return
	}

	if err := store.DeleteFoundItem(r.Context(), h.DB, item.ID); err != nil {
		writeError(w, r, err, "Server error while deleting found item")
		return
	}

	slog.Info("found item deleted", "item", item.ID)
	jsonSuccess(w, http.StatusOK, envelope{"message": "Found item deleted successfully"})
}

// Claim handles PUT /api/found-items/{id}/claim.
func (h *FoundItemsHandler) Claim(w http.ResponseWriter, r *http.Request) {
	item := h.ownedFoundItem(w, r, "claim")
	if item == nil {
		return
	}

	if err := store.SetFoundItemStatus(r.Context(), h.DB, item.ID, model.FoundStatusClaimed); err != nil {
		writeError(w, r, err, "Server error while marking item as claimed")
		return
	}

	updated, err := store.GetFoundItem(r.Context(), h.DB, item.ID)
	if err != nil {
		writeError(w, r, err, "Server error while marking item as claimed")
		return
	}

	slog.Info("item marked as claimed", "item", item.ID)
	jsonSuccess(w, http.StatusOK, envelope{"message": "Item marked as claimed", "foundItem": updated.Own()})
}

// Verify handles POST /api/found-items/{id}/verify. It never writes to the
// record, and neither the claimed nor the stored answer is logged or echoed.
func (h *FoundItemsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "Please provide an answer")
		return
	}
	if err := verify.ValidateAnswer(req.SecurityAnswer); err != nil {
		jsonError(w, http.StatusBadRequest, "Please provide an answer")
		return
	}

	secret, err := store.GetFoundItemSecret(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Server error during verification")
		return
	}
	if secret == nil {
		jsonError(w, http.StatusNotFound, "Found item not found")
		return
	}

	contact, err := verify.Check(req.SecurityAnswer, secret)
	switch {
	case errors.Is(err, apperr.ErrIncorrectAnswer):
		jsonError(w, http.StatusUnauthorized, "Incorrect answer. Please try again.")
	case err != nil:
		writeError(w, r, err, "Server error during verification")
	default:
		jsonSuccess(w, http.StatusOK, envelope{"message": "Verification successful", "contact": contact})
	}
}
