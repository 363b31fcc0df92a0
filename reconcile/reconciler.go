// Package reconcile keeps a caller's local view of complaints in step with the api.
// Actions are projected locally before the request completes and then replaced by
// the authoritative complaint the api answers with.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/models"
)

// ErrUnknownComplaint is returned for ids that are not in the local view
var ErrUnknownComplaint = errors.New("complaint is not loaded")

// Entry is one complaint as the caller sees it
type Entry struct {
	Complaint models.Complaint
	// LikedByCurrentUser is held only here; the api never stores or returns it
	LikedByCurrentUser bool
	// Pending marks a local change the api has not confirmed yet
	Pending bool
}

type entry struct {
	complaint   models.Complaint
	inflight    int
	unconfirmed bool
}

// Reconciler holds the local complaint view of one identity
type Reconciler struct {
	Transport Transport
	Query     ListQuery

	mu       sync.Mutex
	order    []string
	entries  map[string]*entry
	liked    map[string]bool
	cron     *cron.Cron
	now      func() time.Time
	interval string
}

// New creates an empty Reconciler that lists complaints matching q
func New(transport Transport, q ListQuery) *Reconciler {
	return &Reconciler{
		Transport: transport,
		Query:     q,
		entries:   map[string]*entry{},
		liked:     map[string]bool{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Load replaces the local view with the api's listing. Liked flags survive, pending
// markers of settled changes are cleared and entries newer than the listing are kept.
func (r *Reconciler) Load(ctx context.Context) error {
	complaints, err := r.Transport.List(ctx, r.Query)
	if err != nil {
		return errors.Wrap(err, "failed to list complaints")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	order := make([]string, 0, len(complaints))
	entries := make(map[string]*entry, len(complaints))
	for _, c := range complaints {
		id := c.ID.Hex()
		e := &entry{complaint: c.Clone()}
		if old, ok := r.entries[id]; ok && (old.inflight > 0 || c.Version < old.complaint.Version) {
			// an in-flight action answers with a newer complaint, and a listing older than
			// the held version is stale; keep what is held
			e = old
		}
		order = append(order, id)
		entries[id] = e
	}
	r.order = order
	r.entries = entries
	return nil
}

// Refresh reloads the authoritative state. It is what the background pass runs.
func (r *Reconciler) Refresh(ctx context.Context) error {
	if err := r.Load(ctx); err != nil {
		zap.S().Warnw("complaint refresh failed", "error", err)
		return err
	}
	zap.S().Debugw("complaints refreshed", "count", len(r.Entries()))
	return nil
}

// Entries returns the local view in listing order
func (r *Reconciler) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.snapshot(id))
	}
	return out
}

// Entry returns the local view of one complaint
func (r *Reconciler) Entry(id string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return Entry{}, false
	}
	return r.snapshot(id), true
}

// ToggleLike likes the complaint, or takes the like back when the caller already liked
// it. The local count moves at once and is kept when the api cannot be reached.
func (r *Reconciler) ToggleLike(ctx context.Context, id string) (Entry, error) {
	var undo bool
	var delta int64
	err := r.project(id, func(e *entry) {
		undo = r.liked[id]
		r.liked[id] = !undo
		delta = 1
		if undo {
			delta = -1
		}
		delta = addFloored(&e.complaint.Likes, delta)
	})
	if err != nil {
		return Entry{}, err
	}

	updated, err := r.Transport.Apply(ctx, id, lifecycle.Like{Undo: undo})
	return r.settle(id, updated, err, func(e *entry) {
		r.liked[id] = undo
		addFloored(&e.complaint.Likes, -delta)
	})
}

// FaceSameIssue reports that the caller faces the same issue
func (r *Reconciler) FaceSameIssue(ctx context.Context, id string) (Entry, error) {
	err := r.project(id, func(e *entry) {
		e.complaint.FacingSameIssue++
	})
	if err != nil {
		return Entry{}, err
	}

	updated, err := r.Transport.Apply(ctx, id, lifecycle.FaceSameIssue{})
	return r.settle(id, updated, err, func(e *entry) {
		if e.complaint.FacingSameIssue > 0 {
			e.complaint.FacingSameIssue--
		}
	})
}

// UpdateStatus moves the complaint to status. The local status changes at once and stays
// pending when the api cannot be reached or fails internally.
func (r *Reconciler) UpdateStatus(ctx context.Context, id string, status models.Status, proofImage string) (Entry, error) {
	if !status.AuthoritySettable() {
		return Entry{}, &lifecycle.Error{Kind: lifecycle.InvalidRequest, Message: "invalid status " + string(status)}
	}

	var before models.Complaint
	err := r.project(id, func(e *entry) {
		before = e.complaint.Clone()
		now := r.now()
		e.complaint.Status = status
		e.complaint.UpdatedAt = now
		e.complaint.VerifiedAt = nil
		if status == models.StatusSolved {
			e.complaint.ResolvedAt = &now
			if proofImage != "" {
				e.complaint.ProofImage = proofImage
			}
		}
	})
	if err != nil {
		return Entry{}, err
	}

	updated, err := r.Transport.Apply(ctx, id, lifecycle.UpdateStatus{Status: status, ProofImage: proofImage})
	return r.settle(id, updated, err, func(e *entry) {
		e.complaint.Status = before.Status
		e.complaint.UpdatedAt = before.UpdatedAt
		e.complaint.ResolvedAt = before.ResolvedAt
		e.complaint.VerifiedAt = before.VerifiedAt
		e.complaint.ProofImage = before.ProofImage
	})
}

// AddComment posts a comment. Nothing changes locally until the api confirms it.
func (r *Reconciler) AddComment(ctx context.Context, id, content string) (Entry, error) {
	return r.confirmed(ctx, id, lifecycle.AddComment{Content: content})
}

// VerifyComplaint confirms or rejects the resolution. Nothing changes locally until the
// api confirms it.
func (r *Reconciler) VerifyComplaint(ctx context.Context, id string, verified bool) (Entry, error) {
	return r.confirmed(ctx, id, lifecycle.VerifyComplaint{Verified: verified})
}

// Start runs Refresh on the cron spec until Stop is called
func (r *Reconciler) Start(spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("reconciler already started")
	}
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, r.refreshJob); err != nil {
		return errors.Wrapf(err, "invalid refresh schedule %q", spec)
	}
	c.Start()
	r.cron = c
	r.interval = spec
	zap.S().Infow("complaint refresh started", "schedule", spec)
	return nil
}

// Stop ends the background refresh and waits for a running pass
func (r *Reconciler) Stop() {
	r.mu.Lock()
	c, spec := r.cron, r.interval
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	zap.S().Infow("complaint refresh stopped", "schedule", spec)
}

func (r *Reconciler) refreshJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_ = r.Refresh(ctx)
}

func (r *Reconciler) confirmed(ctx context.Context, id string, action lifecycle.Action) (Entry, error) {
	if _, ok := r.Entry(id); !ok {
		return Entry{}, ErrUnknownComplaint
	}
	updated, err := r.Transport.Apply(ctx, id, action)
	if err != nil {
		zap.S().Warnw("complaint action failed", "complaintId", id, "action", action.Name(), "error", err)
		entry, _ := r.Entry(id)
		return entry, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		r.merge(e, updated)
	}
	return r.snapshotOr(id, updated), nil
}

// project applies a local change and marks the entry in flight
func (r *Reconciler) project(id string, change func(*entry)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ErrUnknownComplaint
	}
	change(e)
	e.inflight++
	return nil
}

// settle merges the api answer into the entry. A transport or internal failure keeps
// the projection as pending; a rejection by the api undoes it with revert.
func (r *Reconciler) settle(id string, updated *models.Complaint, err error, revert func(*entry)) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		// dropped by a refresh while in flight
		if err != nil {
			return Entry{}, err
		}
		return r.snapshotOr(id, updated), nil
	}
	if e.inflight > 0 {
		e.inflight--
	}

	switch {
	case err == nil:
		r.merge(e, updated)
	case lifecycle.KindOf(err) == lifecycle.Internal:
		e.unconfirmed = true
		zap.S().Warnw("keeping unconfirmed local change", "complaintId", id, "error", err)
	default:
		revert(e)
		zap.S().Infow("local change rejected", "complaintId", id, "kind", lifecycle.KindOf(err).String())
	}
	return r.snapshot(id), err
}

// merge replaces the server owned fields with updated. Answers older than what is
// already held are ignored.
func (r *Reconciler) merge(e *entry, updated *models.Complaint) {
	if updated == nil {
		return
	}
	if updated.Version < e.complaint.Version {
		return
	}
	e.complaint = updated.Clone()
	e.unconfirmed = false
}

func (r *Reconciler) snapshot(id string) Entry {
	e := r.entries[id]
	return Entry{
		Complaint:          e.complaint.Clone(),
		LikedByCurrentUser: r.liked[id],
		Pending:            e.unconfirmed || e.inflight > 0,
	}
}

func (r *Reconciler) snapshotOr(id string, updated *models.Complaint) Entry {
	if _, ok := r.entries[id]; ok {
		return r.snapshot(id)
	}
	return Entry{Complaint: updated.Clone(), LikedByCurrentUser: r.liked[id]}
}

// addFloored adds delta to *n without going below zero and returns the change made
func addFloored(n *int64, delta int64) int64 {
	before := *n
	*n += delta
	if *n < 0 {
		*n = 0
	}
	return *n - before
}
