package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/giftcircle/internal/models"
	"github.com/HammerMeetNail/giftcircle/internal/services"
	"github.com/HammerMeetNail/giftcircle/internal/validation"
)

type WishHandler struct {
	wishService services.WishServiceInterface
	validator   *validation.Validator
}

func NewWishHandler(wishService services.WishServiceInterface, validator *validation.Validator) *WishHandler {
	return &WishHandler{wishService: wishService, validator: validator}
}

func (h *WishHandler) Feed(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	wishes, err := h.wishService.GetFeed(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wishes)
}

func (h *WishHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	wishes, err := h.wishService.GetMyWishes(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wishes)
}

func (h *WishHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	wishID, ok := pathID(w, r, "id", "wish")
	if !ok {
		return
	}

	wish, err := h.wishService.GetByID(r.Context(), wishID, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wish)
}

func (h *WishHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.WishCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	wish, err := h.wishService.Create(r.Context(), user.ID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wish)
}

func (h *WishHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	wishID, ok := pathID(w, r, "id", "wish")
	if !ok {
		return
	}

	var patch models.WishPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if err := h.validator.WishPatch(patch); err != nil {
		writeServiceError(w, r, err)
		return
	}

	wish, err := h.wishService.Update(r.Context(), wishID, user.ID, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wish)
}

func (h *WishHandler) MarkFulfilled(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	wishID, ok := pathID(w, r, "id", "wish")
	if !ok {
		return
	}

	wish, err := h.wishService.MarkAsFulfilled(r.Context(), wishID, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wish)
}

func (h *WishHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	wishID, ok := pathID(w, r, "id", "wish")
	if !ok {
		return
	}

	if err := h.wishService.Delete(r.Context(), wishID, user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Wish deleted successfully"})
}
