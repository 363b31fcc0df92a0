// Package storage hosts complaint images.
package storage

import (
	"context"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"

	"github.com/civicpulse/complaints-api/config"
)

// ErrNotConfigured is returned when the cloudinary credentials are missing
var ErrNotConfigured = errors.New("cloudinary is not configured")

// Cloudinary uploads images into one folder of a cloudinary account
type Cloudinary struct {
	CLD    *cloudinary.Cloudinary
	Folder string
}

// NewCloudinary builds an uploader from the cloudinary settings in cfg
func NewCloudinary(cfg *config.Config) (*Cloudinary, error) {
	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize cloudinary")
	}
	return &Cloudinary{CLD: cld, Folder: cfg.CloudinaryFolder}, nil
}

// UploadImage uploads file, a data URI or a remote URL, and returns its https URL
func (c *Cloudinary) UploadImage(ctx context.Context, file string) (string, error) {
	resp, err := c.CLD.Upload.Upload(ctx, file, uploader.UploadParams{Folder: c.Folder})
	if err != nil {
		return "", errors.Wrap(err, "failed to upload image")
	}
	if resp.Error.Message != "" {
		return "", errors.New(resp.Error.Message)
	}
	return resp.SecureURL, nil
}
