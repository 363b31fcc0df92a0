package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is the closed set of issue categories a complaint can be filed under
type Category string

// Complaint categories
const (
	CategoryRoad        Category = "road"
	CategoryGarbage     Category = "garbage"
	CategoryDrainage    Category = "drainage"
	CategoryWaterSupply Category = "water_supply"
	CategoryElectricity Category = "electricity"
	CategorySanitation  Category = "sanitation"
	CategoryOther       Category = "other"
)

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryRoad, CategoryGarbage, CategoryDrainage, CategoryWaterSupply,
		CategoryElectricity, CategorySanitation, CategoryOther:
		return true
	}
	return false
}

// Status is the lifecycle state of a complaint
type Status string

// Complaint statuses, in the order a complaint normally moves through them
const (
	StatusUnsolved   Status = "unsolved"
	StatusRead       Status = "read"
	StatusOnTheWay   Status = "on_the_way"
	StatusInProgress Status = "in_progress"
	StatusSolved     Status = "solved"
	StatusVerified   Status = "verified"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	return s.AuthoritySettable() || s == StatusVerified
}

// AuthoritySettable reports whether an authority may set s directly.
// verified is only reachable through the author's verification.
func (s Status) AuthoritySettable() bool {
	switch s {
	case StatusUnsolved, StatusRead, StatusOnTheWay, StatusInProgress, StatusSolved:
		return true
	}
	return false
}

// Complaint holds the structure for the complaints collection in mongo
type Complaint struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title           string             `json:"title" bson:"title"`
	Description     string             `json:"description" bson:"description"`
	Category        Category           `json:"category" bson:"category"`
	Status          Status             `json:"status" bson:"status"`
	Location        string             `json:"location" bson:"location"`
	Region          string             `json:"region" bson:"region"`
	Latitude        float64            `json:"latitude" bson:"latitude"`
	Longitude       float64            `json:"longitude" bson:"longitude"`
	Images          []string           `json:"images" bson:"images"`
	ProofImage      string             `json:"proofImage,omitempty" bson:"proofImage,omitempty"`
	AuthorID        string             `json:"userId" bson:"userId"`
	AuthorName      string             `json:"userName" bson:"userName"`
	AuthorAvatar    string             `json:"userAvatar,omitempty" bson:"userAvatar,omitempty"`
	Likes           int64              `json:"likes" bson:"likes"`
	FacingSameIssue int64              `json:"facingSameIssue" bson:"facingSameIssue"`
	Comments        []Comment          `json:"comments" bson:"comments"`
	ResolvedAt      *time.Time         `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	VerifiedAt      *time.Time         `json:"verifiedAt,omitempty" bson:"verifiedAt,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
	Version         int64              `json:"version" bson:"version"`
}

// Comment is a single remark attached to a complaint
type Comment struct {
	ID         string    `json:"id" bson:"id"`
	AuthorID   string    `json:"userId" bson:"userId"`
	AuthorName string    `json:"userName" bson:"userName"`
	AuthorRole Role      `json:"userRole" bson:"userRole"`
	Content    string    `json:"content" bson:"content"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// Clone returns a deep copy of c so callers can mutate it without sharing slices
// or timestamps with the original.
func (c Complaint) Clone() Complaint {
	out := c
	if c.Images != nil {
		out.Images = append([]string(nil), c.Images...)
	}
	if c.Comments != nil {
		out.Comments = append([]Comment(nil), c.Comments...)
	}
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		out.ResolvedAt = &t
	}
	if c.VerifiedAt != nil {
		t := *c.VerifiedAt
		out.VerifiedAt = &t
	}
	return out
}

// ComplaintFilter narrows a complaint listing. Empty fields match everything.
type ComplaintFilter struct {
	Region   string
	Status   Status
	Category Category
	AuthorID string
}

// ComplaintUpdate describes one atomic change to a single complaint document.
// The guard fields must all hold on the stored document for the change to apply.
type ComplaintUpdate struct {
	// guards
	AuthorID     string
	FromStatuses []Status
	Version      *int64

	// effects
	LikesDelta      int64
	FacingDelta     int64
	Status          Status
	ProofImage      string
	ResolvedAt      *time.Time
	VerifiedAt      *time.Time
	ClearVerifiedAt bool
	Comment         *Comment
	UpdatedAt       time.Time
}

// Matches reports whether the guard part of u holds for c
func (u ComplaintUpdate) Matches(c Complaint) bool {
	if u.AuthorID != "" && c.AuthorID != u.AuthorID {
		return false
	}
	if u.Version != nil && c.Version != *u.Version {
		return false
	}
	if len(u.FromStatuses) == 0 {
		return true
	}
	for _, s := range u.FromStatuses {
		if c.Status == s {
			return true
		}
	}
	return false
}

// ApplyTo applies the effect part of u to c in memory. Counters are floored at zero
// and every application bumps the version.
func (u ComplaintUpdate) ApplyTo(c *Complaint) {
	c.Likes += u.LikesDelta
	if c.Likes < 0 {
		c.Likes = 0
	}
	c.FacingSameIssue += u.FacingDelta
	if c.FacingSameIssue < 0 {
		c.FacingSameIssue = 0
	}
	if u.Status != "" {
		c.Status = u.Status
	}
	if u.ProofImage != "" {
		c.ProofImage = u.ProofImage
	}
	if u.ResolvedAt != nil {
		t := *u.ResolvedAt
		c.ResolvedAt = &t
	}
	if u.ClearVerifiedAt {
		c.VerifiedAt = nil
	}
	if u.VerifiedAt != nil {
		t := *u.VerifiedAt
		c.VerifiedAt = &t
	}
	if u.Comment != nil {
		c.Comments = append(c.Comments, *u.Comment)
	}
	c.UpdatedAt = u.UpdatedAt
	c.Version++
}

// CreateComplaintRequest is the body accepted when filing a new complaint
type CreateComplaintRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=5000"`
	Category    Category `json:"category" validate:"required,category"`
	Location    string   `json:"location" validate:"required"`
	Region      string   `json:"region" validate:"required"`
	Latitude    float64  `json:"latitude" validate:"required,latitude"`
	Longitude   float64  `json:"longitude" validate:"required,longitude"`
	Images      []string `json:"images" validate:"required,min=1,max=10,dive,required"`
}

// ComplaintResponse wraps a single complaint in API responses
type ComplaintResponse struct {
	Complaint Complaint `json:"complaint"`
}

// ComplaintListResponse wraps a complaint listing in API responses
type ComplaintListResponse struct {
	Complaints []Complaint `json:"complaints"`
}
