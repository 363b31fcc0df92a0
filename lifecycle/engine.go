package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/models"
)

// Store is the record store the engine writes through. AtomicUpdate must apply the
// whole update in one operation and return databases.ErrNotFound when the id is unknown
// or a guard does not hold.
type Store interface {
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	AtomicUpdate(ctx context.Context, id string, update models.ComplaintUpdate) (*models.Complaint, error)
}

// Publisher receives an event for every committed action
type Publisher interface {
	Publish(ctx context.Context, event models.ComplaintEvent) error
}

// Engine authorizes and applies complaint actions
type Engine struct {
	Store     Store
	Verifier  Verifier
	Publisher Publisher
	Now       func() time.Time
	NewID     func() string
}

// NewEngine returns an engine with the wall clock and uuid comment ids
func NewEngine(store Store, verifier Verifier, publisher Publisher) *Engine {
	return &Engine{
		Store:     store,
		Verifier:  verifier,
		Publisher: publisher,
		Now:       func() time.Time { return time.Now().UTC() },
		NewID:     uuid.NewString,
	}
}

// Apply runs action against the complaint with the given id on behalf of the holder of
// token (which may be empty). Authorization is checked before the store is touched.
func (e *Engine) Apply(ctx context.Context, id, token string, action Action) (*models.Complaint, error) {
	now := e.now()

	var (
		actor  Identity
		update models.ComplaintUpdate
		err    error
	)
	switch a := action.(type) {
	case Like:
		update = models.ComplaintUpdate{LikesDelta: 1, UpdatedAt: now}
		if a.Undo {
			update.LikesDelta = -1
		}
	case FaceSameIssue:
		update = models.ComplaintUpdate{FacingDelta: 1, UpdatedAt: now}
	case AddComment:
		if actor, err = e.authenticate(ctx, token); err != nil {
			return nil, e.logFailure(id, action, actor, err)
		}
		content := strings.TrimSpace(a.Content)
		if content == "" {
			return nil, e.logFailure(id, action, actor, fail(InvalidRequest, "comment content is required", nil))
		}
		update = models.ComplaintUpdate{
			Comment: &models.Comment{
				ID:         e.newID(),
				AuthorID:   actor.SubjectID,
				AuthorName: actor.Username,
				AuthorRole: actor.Role,
				Content:    content,
				CreatedAt:  now,
			},
			UpdatedAt: now,
		}
	case UpdateStatus:
		if actor, err = e.authorize(ctx, token, models.RoleAuthority); err != nil {
			return nil, e.logFailure(id, action, actor, err)
		}
		if !a.Status.AuthoritySettable() {
			return nil, e.logFailure(id, action, actor, fail(InvalidRequest, "invalid status "+string(a.Status), nil))
		}
		// only verifyComplaint sets verified; any authority status drops verifiedAt
		update = models.ComplaintUpdate{Status: a.Status, Version: a.Version, ClearVerifiedAt: true, UpdatedAt: now}
		if a.Status == models.StatusSolved {
			update.ResolvedAt = &now
			update.ProofImage = strings.TrimSpace(a.ProofImage)
		}
	case VerifyComplaint:
		if actor, err = e.authorize(ctx, token, models.RoleCitizen); err != nil {
			return nil, e.logFailure(id, action, actor, err)
		}
		update = models.ComplaintUpdate{AuthorID: actor.SubjectID, Version: a.Version, UpdatedAt: now}
		if a.Verified {
			update.FromStatuses = []models.Status{models.StatusSolved}
			update.Status = models.StatusVerified
			update.VerifiedAt = &now
		} else {
			update.FromStatuses = []models.Status{models.StatusSolved, models.StatusVerified}
			update.Status = models.StatusUnsolved
			update.ClearVerifiedAt = true
		}
	default:
		return nil, fail(InvalidRequest, "unknown action", nil)
	}

	updated, err := e.Store.AtomicUpdate(ctx, id, update)
	if err != nil {
		return nil, e.logFailure(id, action, actor, e.classify(ctx, id, update, err))
	}

	zap.S().Debugw("complaint action applied",
		"complaintId", id,
		"action", action.Name(),
		"subject", actor.SubjectID,
		"version", updated.Version)
	e.publish(ctx, action, actor, updated)
	return updated, nil
}

// authenticate requires a valid token of any role
func (e *Engine) authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fail(Unauthenticated, "missing bearer token", nil)
	}
	id, err := e.Verifier.VerifyToken(ctx, token)
	if err != nil {
		return Identity{}, fail(Unauthenticated, "invalid bearer token", err)
	}
	return id, nil
}

// authorize requires a valid token carrying role. A missing or invalid token is
// reported as Forbidden, like a wrong role.
func (e *Engine) authorize(ctx context.Context, token string, role models.Role) (Identity, error) {
	if token == "" {
		return Identity{}, fail(Forbidden, "requires role "+string(role), nil)
	}
	id, err := e.Verifier.VerifyToken(ctx, token)
	if err != nil {
		return Identity{}, fail(Forbidden, "requires role "+string(role), err)
	}
	if id.Role != role {
		return id, fail(Forbidden, "requires role "+string(role), nil)
	}
	return id, nil
}

// classify turns a failed atomic update into a typed error. A guard miss is told apart
// from a missing complaint with a read of the current document.
func (e *Engine) classify(ctx context.Context, id string, update models.ComplaintUpdate, err error) error {
	if !errors.Is(err, databases.ErrNotFound) {
		return fail(Internal, "store update failed", err)
	}
	if update.AuthorID == "" && len(update.FromStatuses) == 0 && update.Version == nil {
		return fail(NotFound, "complaint not found", nil)
	}

	current, findErr := e.Store.FindByID(ctx, id)
	if errors.Is(findErr, databases.ErrNotFound) {
		return fail(NotFound, "complaint not found", nil)
	}
	if findErr != nil {
		return fail(Internal, "store read failed", findErr)
	}

	switch {
	case update.AuthorID != "" && current.AuthorID != update.AuthorID:
		return fail(Forbidden, "only the author can verify a complaint", nil)
	case update.Version != nil && current.Version != *update.Version:
		return fail(Conflict, "complaint was changed by someone else", nil)
	case len(update.FromStatuses) > 0:
		return fail(Conflict, "complaint is "+string(current.Status), nil)
	}
	// the document changed between the update and the read
	return fail(Conflict, "complaint was changed by someone else", nil)
}

func (e *Engine) publish(ctx context.Context, action Action, actor Identity, c *models.Complaint) {
	if e.Publisher == nil {
		return
	}
	event := models.ComplaintEvent{
		Type:        models.EventComplaintUpdated,
		ComplaintID: c.ID.Hex(),
		Action:      action.Name(),
		Status:      c.Status,
		ActorID:     actor.SubjectID,
		Complaint:   *c,
		At:          c.UpdatedAt,
	}
	if err := e.Publisher.Publish(ctx, event); err != nil {
		zap.S().Errorw("failed to publish complaint event",
			"complaintId", event.ComplaintID,
			"action", event.Action,
			"error", err)
	}
}

func (e *Engine) logFailure(id string, action Action, actor Identity, err error) error {
	if KindOf(err) == Internal {
		zap.S().Errorw("complaint action failed", "complaintId", id, "action", action.Name(), "subject", actor.SubjectID, "error", err)
	} else {
		zap.S().Warnw("complaint action rejected", "complaintId", id, "action", action.Name(), "subject", actor.SubjectID, "error", err)
	}
	return err
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now()
}

func (e *Engine) newID() string {
	if e.NewID == nil {
		return uuid.NewString()
	}
	return e.NewID()
}
