package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/api"
	"github.com/civicpulse/complaints-api/auth"
	"github.com/civicpulse/complaints-api/config"
	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/models"
)

// Complaint exported for testing purposes
type Complaint struct {
	DB        databases.ComplaintDatabase
	Engine    *lifecycle.Engine
	Publisher lifecycle.Publisher
}

// ComplaintsHandler returns complaints newest first, optionally filtered by region,
// status and category and paginated with limit and page
func (c Complaint) ComplaintsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()

	filter := models.ComplaintFilter{
		Region:   q.Get("region"),
		Status:   models.Status(q.Get("status")),
		Category: models.Category(q.Get("category")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		config.ErrorStatus("invalid status filter", http.StatusBadRequest, w, errors.Errorf("unknown status %q", filter.Status))
		return
	}
	if filter.Category != "" && !filter.Category.Valid() {
		config.ErrorStatus("invalid category filter", http.StatusBadRequest, w, errors.Errorf("unknown category %q", filter.Category))
		return
	}

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		zap.S().Debugf("limit not set, returning every complaint, err: %v", err)
		limit = 0
	}
	page := getPage(r)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.Find(ctx, filter, limit, page)
	if err != nil {
		config.ErrorStatus("failed to get complaints", http.StatusInternalServerError, w, err)
		return
	}
	// the frontend expects an array, never null
	if len(dbResp) == 0 {
		dbResp = []models.Complaint{}
	}
	b, err := json.Marshal(models.ComplaintListResponse{Complaints: dbResp})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// ComplaintByIDHandler returns a complaint by ID
func (c Complaint) ComplaintByIDHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	complaintID := mux.Vars(r)["complaint_id"]

	if _, err := primitive.ObjectIDFromHex(complaintID); err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.FindByID(ctx, complaintID)
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to get complaint by ID", http.StatusInternalServerError, w, err)
		return
	}
	writeComplaint(w, http.StatusOK, dbResp)
}

// CreateComplaintHandler files a new complaint for the signed-in user
func (c Complaint) CreateComplaintHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, ok := api.IdentityFrom(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("missing identity"))
		return
	}

	var req models.CreateComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("missing required fields", http.StatusBadRequest, w, err)
		return
	}

	now := time.Now().UTC()
	complaint := models.Complaint{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Status:      models.StatusUnsolved,
		Location:    req.Location,
		Region:      req.Region,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Images:      req.Images,
		AuthorID:    caller.SubjectID,
		AuthorName:  caller.Username,
		Comments:    []models.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	created, err := c.DB.InsertOne(ctx, complaint)
	if err != nil {
		config.ErrorStatus("failed to create complaint", http.StatusInternalServerError, w, err)
		return
	}
	zap.S().Infow("complaint created", "complaintId", created.ID.Hex(), "userId", caller.SubjectID, "region", created.Region)
	c.publishCreated(ctx, caller, created)

	writeComplaint(w, http.StatusCreated, created)
}

// ComplaintActionHandler applies one lifecycle action (like, faceSameIssue, addComment,
// updateStatus, verifyComplaint) to a complaint
func (c Complaint) ComplaintActionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	complaintID := mux.Vars(r)["complaint_id"]

	action, err := lifecycle.DecodeAction(r.Body)
	if err != nil {
		actionError(w, err)
		return
	}

	updated, err := c.Engine.Apply(r.Context(), complaintID, auth.BearerToken(r), action)
	if err != nil {
		actionError(w, err)
		return
	}
	writeComplaint(w, http.StatusOK, updated)
}

func (c Complaint) publishCreated(ctx context.Context, caller lifecycle.Identity, created *models.Complaint) {
	if c.Publisher == nil {
		return
	}
	err := c.Publisher.Publish(ctx, models.ComplaintEvent{
		Type:        models.EventComplaintCreated,
		ComplaintID: created.ID.Hex(),
		Status:      created.Status,
		ActorID:     caller.SubjectID,
		Complaint:   *created,
		At:          created.CreatedAt,
	})
	if err != nil {
		zap.S().Errorw("failed to publish complaint event", "complaintId", created.ID.Hex(), "error", err)
	}
}

func actionError(w http.ResponseWriter, err error) {
	message := "internal server error"
	var le *lifecycle.Error
	if errors.As(err, &le) {
		message = le.Message
	}
	config.ErrorStatus(message, lifecycle.KindOf(err).HTTPStatus(), w, err)
}

func writeComplaint(w http.ResponseWriter, status int, complaint *models.Complaint) {
	b, err := json.Marshal(models.ComplaintResponse{Complaint: *complaint})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// getPage returns the page query parameter, defaulting to the first page
func getPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
