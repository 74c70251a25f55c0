package main

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/yeomin4242/guesswhat"
	"github.com/yeomin4242/guesswhat/storage"
	"go.uber.org/zap"
)

// UploadResponse carries the public URL of a new upload.
type UploadResponse struct {
	URL string `json:"url"`
}

// RemoveMediaRequest names an upload to discard.
type RemoveMediaRequest struct {
	URL string `json:"url"`
}

// @Summary Upload media
// @Description Stores an image in the temp folder of the given kind. It is moved to the final folder when a game using it is saved.
// @Tags storage
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param kind query string true "thumbnail or question"
// @Param file formData file true "Image"
// @Success 201 {object} UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/storage/upload [post]
func (a *App) uploadHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	kind := guesswhat.Kind(ugcPolicy.Sanitize(r.URL.Query().Get("kind")))
	if !kind.Valid() {
		renderError(w, http.StatusBadRequest, "kind must be thumbnail or question")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			renderError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		renderError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	path := guesswhat.UploadPath(kind, header.Filename)
	url, err := a.store.Upload(r.Context(), path, file, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrExists) {
			renderError(w, http.StatusConflict, "file already exists")
			return
		}
		log.Errorw("could not upload media", "path", path, "user_id", user.ID, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not upload file")
		return
	}

	log.Infow("media uploaded", "path", path, "user_id", user.ID, "size", header.Size)
	renderJSON(w, http.StatusCreated, UploadResponse{URL: url})
}

// @Summary Remove media
// @Description Deletes an upload that has not been promoted yet
// @Tags storage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param media body RemoveMediaRequest true "Media URL"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/storage/remove [post]
func (a *App) removeMediaHandler(w http.ResponseWriter, r *http.Request) {
	var req RemoveMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	path, ok := guesswhat.PathFromURL(req.URL, a.cfg.StorageBucket)
	if !ok || !guesswhat.IsTemp(path) {
		renderError(w, http.StatusBadRequest, "only temporary uploads can be removed")
		return
	}

	if err := a.store.Remove(r.Context(), path); err != nil {
		log.Errorw("could not remove media", "path", path, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not remove file")
		return
	}

	renderJSON(w, http.StatusOK, MessageResponse{Message: "File removed"})
}
