package models

// UploadImageRequest carries a data URI or a remote URL to be stored by the image host
type UploadImageRequest struct {
	Image string `json:"image"`
}

// UploadImageResponse returns the hosted image URL
type UploadImageResponse struct {
	URL string `json:"url"`
}
