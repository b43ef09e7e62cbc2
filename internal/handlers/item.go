package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/HammerMeetNail/giftcircle/internal/models"
	"github.com/HammerMeetNail/giftcircle/internal/services"
	"github.com/HammerMeetNail/giftcircle/internal/storage"
	"github.com/HammerMeetNail/giftcircle/internal/validation"
)

const photosField = "photos"

type ItemHandler struct {
	itemService services.ItemServiceInterface
	validator   *validation.Validator
	maxFileSize int64
}

func NewItemHandler(itemService services.ItemServiceInterface, validator *validation.Validator, maxFileSize int64) *ItemHandler {
	return &ItemHandler{itemService: itemService, validator: validator, maxFileSize: maxFileSize}
}

func (h *ItemHandler) Feed(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	items, err := h.itemService.GetFeed(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	items, err := h.itemService.GetMyItems(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	itemID, ok := pathID(w, r, "id", "item")
	if !ok {
		return
	}

	item, err := h.itemService.GetByID(r.Context(), itemID, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.ItemCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	item, err := h.itemService.Create(r.Context(), user.ID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	itemID, ok := pathID(w, r, "id", "item")
	if !ok {
		return
	}

	var patch models.ItemPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if err := h.validator.ItemPatch(patch); err != nil {
		writeServiceError(w, r, err)
		return
	}

	item, err := h.itemService.Update(r.Context(), itemID, user.ID, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) MarkGifted(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	itemID, ok := pathID(w, r, "id", "item")
	if !ok {
		return
	}

	item, err := h.itemService.MarkAsGifted(r.Context(), itemID, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	itemID, ok := pathID(w, r, "id", "item")
	if !ok {
		return
	}

	if err := h.itemService.Delete(r.Context(), itemID, user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Item deleted successfully"})
}

func (h *ItemHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	itemID, ok := pathID(w, r, "id", "item")
	if !ok {
		return
	}

	uploads, err := h.readUploads(w, r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	photos, err := h.itemService.UploadPhotos(r.Context(), itemID, user.ID, uploads)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, photos)
}

func (h *ItemHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	itemID, ok := pathID(w, r, "id", "item")
	if !ok {
		return
	}
	photoID, ok := pathID(w, r, "photoId", "photo")
	if !ok {
		return
	}

	if err := h.itemService.DeletePhoto(r.Context(), itemID, photoID, user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Photo deleted successfully"})
}

// readUploads streams the multipart body and keeps the files sent under the
// photos field. Other parts are skipped. Count and size limits are left to
// the service so ownership is decided first: one file past the limit is
// passed on without its data, and each file is read to at most one byte over
// the size cap.
func (h *ItemHandler) readUploads(w http.ResponseWriter, r *http.Request) ([]storage.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, (h.maxFileSize+1)*models.MaxPhotosPerItem+maxJSONBody)
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, services.ErrNoPhotos
	}

	var uploads []storage.Upload
	for len(uploads) <= models.MaxPhotosPerItem {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, uploadReadError(err)
		}
		if part.FormName() != photosField || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		upload := storage.Upload{
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
		}
		if len(uploads) < models.MaxPhotosPerItem {
			upload.Data, err = io.ReadAll(io.LimitReader(part, h.maxFileSize+1))
			if err != nil {
				_ = part.Close()
				return nil, uploadReadError(err)
			}
		}
		_ = part.Close()
		uploads = append(uploads, upload)
	}
	if len(uploads) == 0 {
		return nil, services.ErrNoPhotos
	}
	return uploads, nil
}

func uploadReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return storage.ErrFileTooLarge
	}
	return services.ErrNoPhotos.Wrap(err)
}
