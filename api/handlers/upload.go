package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/civicpulse/complaints-api/api"
	"github.com/civicpulse/complaints-api/config"
	"github.com/civicpulse/complaints-api/models"
)

// ImageUploader stores an image and returns its public URL
type ImageUploader interface {
	UploadImage(ctx context.Context, file string) (string, error)
}

// Upload exported for testing purposes
type Upload struct {
	Uploader ImageUploader
}

// UploadImageHandler stores a data URI or remote image and returns its hosted URL
func (u Upload) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if u.Uploader == nil {
		config.ErrorStatus("image upload is not configured", http.StatusServiceUnavailable, w, errors.New("no image host"))
		return
	}

	var req models.UploadImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		config.ErrorStatus("no image provided", http.StatusBadRequest, w, errors.New("image is required"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	url, err := u.Uploader.UploadImage(ctx, req.Image)
	if err != nil {
		config.ErrorStatus("upload failed", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.UploadImageResponse{URL: url})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
