package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/lifecycle/lifecycletest"
	"github.com/civicpulse/complaints-api/models"
)

const (
	authorToken    = "author-token"
	neighbourToken = "neighbour-token"
	authorityToken = "authority-token"
)

var verifier = lifecycletest.Verifier{
	authorToken:    {SubjectID: "u1", Username: "asha", Role: models.RoleCitizen},
	neighbourToken: {SubjectID: "u2", Username: "ravi", Role: models.RoleCitizen},
	authorityToken: {SubjectID: "a1", Username: "officer", Role: models.RoleAuthority},
}

type fixture struct {
	store     *lifecycletest.Store
	publisher *lifecycletest.Publisher
	engine    *lifecycle.Engine
	id        string
	clock     time.Time
}

func newFixture(t *testing.T, status models.Status) *fixture {
	t.Helper()
	f := &fixture{
		store:     lifecycletest.NewStore(),
		publisher: &lifecycletest.Publisher{},
		clock:     time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.id = f.store.Put(models.Complaint{
		ID:         primitive.NewObjectID(),
		Title:      "Pothole on Main Road",
		Category:   models.CategoryRoad,
		Status:     status,
		Region:     "Sector 5",
		Images:     []string{"http://x/1.png"},
		AuthorID:   "u1",
		AuthorName: "asha",
		Comments:   []models.Comment{},
		CreatedAt:  f.clock,
		UpdatedAt:  f.clock,
	})
	f.engine = lifecycle.NewEngine(f.store, verifier, f.publisher)
	f.engine.Now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	return f
}

func (f *fixture) apply(token string, action lifecycle.Action) (*models.Complaint, error) {
	return f.engine.Apply(context.Background(), f.id, token, action)
}

func (f *fixture) current(t *testing.T) models.Complaint {
	c, ok := f.store.Get(f.id)
	require.True(t, ok)
	return c
}

func TestLikeIsAnonymous(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)

	c, err := f.apply("", lifecycle.Like{})

	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Likes)
	assert.Equal(t, int64(1), c.Version)
	assert.True(t, c.UpdatedAt.After(c.CreatedAt))
}

func TestUndoLikeNeverGoesNegative(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)

	_, err := f.apply("", lifecycle.Like{})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.apply("", lifecycle.Like{Undo: true})
		require.NoError(t, err)
	}

	c := f.current(t)
	assert.Equal(t, int64(0), c.Likes)
	assert.Equal(t, int64(0), c.FacingSameIssue)
}

func TestFaceSameIssueTwiceCountsTwice(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)

	_, err := f.apply(authorToken, lifecycle.FaceSameIssue{})
	require.NoError(t, err)
	c, err := f.apply(authorToken, lifecycle.FaceSameIssue{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), c.FacingSameIssue)
}

func TestConcurrentLikesAreNotLost(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)

	const callers = 50
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := f.engine.Apply(context.Background(), f.id, "", lifecycle.Like{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(callers), f.current(t).Likes)
}

func TestAddCommentRequiresToken(t *testing.T) {
	for name, token := range map[string]string{"missing": "", "invalid": "forged"} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, models.StatusUnsolved)

			_, err := f.apply(token, lifecycle.AddComment{Content: "same here"})

			assert.Equal(t, lifecycle.Unauthenticated, lifecycle.KindOf(err))
			assert.Empty(t, f.current(t).Comments)
			assert.Zero(t, f.store.Updates())
		})
	}
}

func TestAddCommentRecordsTokenRole(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)

	first, err := f.apply(authorityToken, lifecycle.AddComment{Content: "crew assigned"})
	require.NoError(t, err)
	second, err := f.apply(neighbourToken, lifecycle.AddComment{Content: "  thanks  "})
	require.NoError(t, err)

	require.Len(t, first.Comments, 1)
	require.Len(t, second.Comments, 2)
	assert.Equal(t, models.RoleAuthority, second.Comments[0].AuthorRole)
	assert.Equal(t, "a1", second.Comments[0].AuthorID)
	assert.Equal(t, models.RoleCitizen, second.Comments[1].AuthorRole)
	assert.Equal(t, "ravi", second.Comments[1].AuthorName)
	assert.Equal(t, "thanks", second.Comments[1].Content)
	assert.NotEmpty(t, second.Comments[1].ID)
	assert.NotEqual(t, second.Comments[0].ID, second.Comments[1].ID)
	assert.False(t, second.Comments[1].CreatedAt.Before(second.Comments[0].CreatedAt))
}

func TestAddCommentRejectsEmptyContent(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)

	_, err := f.apply(authorToken, lifecycle.AddComment{Content: "   "})

	assert.Equal(t, lifecycle.InvalidRequest, lifecycle.KindOf(err))
	assert.Empty(t, f.current(t).Comments)
}

func TestUpdateStatusForbiddenForNonAuthority(t *testing.T) {
	for name, token := range map[string]string{"anonymous": "", "invalid": "forged", "citizen": authorToken} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, models.StatusUnsolved)
			before := f.current(t)

			_, err := f.apply(token, lifecycle.UpdateStatus{Status: models.StatusSolved})

			assert.Equal(t, lifecycle.Forbidden, lifecycle.KindOf(err))
			assert.Equal(t, before, f.current(t))
		})
	}
}

func TestUpdateStatusToSolved(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)
	before := f.current(t)

	c, err := f.apply(authorityToken, lifecycle.UpdateStatus{Status: models.StatusSolved, ProofImage: "http://x/p.png"})

	require.NoError(t, err)
	assert.Equal(t, models.StatusSolved, c.Status)
	assert.Equal(t, "http://x/p.png", c.ProofImage)
	require.NotNil(t, c.ResolvedAt)
	assert.True(t, c.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, *c.ResolvedAt, c.UpdatedAt)
}

func TestUpdateStatusIgnoresProofUnlessSolved(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)

	c, err := f.apply(authorityToken, lifecycle.UpdateStatus{Status: models.StatusOnTheWay, ProofImage: "http://x/p.png"})

	require.NoError(t, err)
	assert.Equal(t, models.StatusOnTheWay, c.Status)
	assert.Empty(t, c.ProofImage)
	assert.Nil(t, c.ResolvedAt)
}

func TestUpdateStatusRejectsUnknownAndVerified(t *testing.T) {
	for _, status := range []models.Status{"", "closed", models.StatusVerified} {
		f := newFixture(t, models.StatusSolved)

		_, err := f.apply(authorityToken, lifecycle.UpdateStatus{Status: status})

		assert.Equal(t, lifecycle.InvalidRequest, lifecycle.KindOf(err), "status %q", status)
		assert.Equal(t, models.StatusSolved, f.current(t).Status)
	}
}

func TestUpdateStatusStaleVersionConflicts(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)
	_, err := f.apply("", lifecycle.Like{})
	require.NoError(t, err)

	stale := int64(0)
	_, err = f.apply(authorityToken, lifecycle.UpdateStatus{Status: models.StatusRead, Version: &stale})
	assert.Equal(t, lifecycle.Conflict, lifecycle.KindOf(err))
	assert.Equal(t, models.StatusUnsolved, f.current(t).Status)

	fresh := int64(1)
	c, err := f.apply(authorityToken, lifecycle.UpdateStatus{Status: models.StatusRead, Version: &fresh})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, c.Status)
	assert.Equal(t, int64(2), c.Version)
}

func TestVerifyComplaintByAuthor(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)
	_, err := f.apply(authorityToken, lifecycle.UpdateStatus{Status: models.StatusSolved, ProofImage: "http://x/p.png"})
	require.NoError(t, err)

	c, err := f.apply(authorToken, lifecycle.VerifyComplaint{Verified: true})

	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, c.Status)
	require.NotNil(t, c.VerifiedAt)
	assert.False(t, c.VerifiedAt.IsZero())
}

func TestVerifyComplaintRejected(t *testing.T) {
	for _, from := range []models.Status{models.StatusSolved, models.StatusVerified} {
		f := newFixture(t, models.StatusSolved)
		if from == models.StatusVerified {
			_, err := f.apply(authorToken, lifecycle.VerifyComplaint{Verified: true})
			require.NoError(t, err)
		}

		c, err := f.apply(authorToken, lifecycle.VerifyComplaint{Verified: false})

		require.NoError(t, err)
		assert.Equal(t, models.StatusUnsolved, c.Status)
		assert.Nil(t, c.VerifiedAt)
	}
}

func TestUpdateStatusClearsVerifiedAt(t *testing.T) {
	f := newFixture(t, models.StatusSolved)
	c, err := f.apply(authorToken, lifecycle.VerifyComplaint{Verified: true})
	require.NoError(t, err)
	require.NotNil(t, c.VerifiedAt)

	c, err = f.apply(authorityToken, lifecycle.UpdateStatus{Status: models.StatusInProgress})

	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)
	assert.Nil(t, c.VerifiedAt)
	assert.Nil(t, f.current(t).VerifiedAt)
}

func TestVerifyComplaintFailures(t *testing.T) {
	tests := []struct {
		name   string
		status models.Status
		token  string
		action lifecycle.VerifyComplaint
		kind   lifecycle.Kind
	}{
		{"anonymous", models.StatusSolved, "", lifecycle.VerifyComplaint{Verified: true}, lifecycle.Forbidden},
		{"authority", models.StatusSolved, authorityToken, lifecycle.VerifyComplaint{Verified: true}, lifecycle.Forbidden},
		{"not the author", models.StatusSolved, neighbourToken, lifecycle.VerifyComplaint{Verified: true}, lifecycle.Forbidden},
		{"not solved yet", models.StatusInProgress, authorToken, lifecycle.VerifyComplaint{Verified: true}, lifecycle.Conflict},
		{"reject unsolved", models.StatusUnsolved, authorToken, lifecycle.VerifyComplaint{Verified: false}, lifecycle.Conflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.status)
			before := f.current(t)

			_, err := f.apply(tt.token, tt.action)

			assert.Equal(t, tt.kind, lifecycle.KindOf(err))
			assert.Equal(t, before, f.current(t))
		})
	}
}

func TestUnknownComplaintIsNotFound(t *testing.T) {
	actions := map[string]struct {
		token  string
		action lifecycle.Action
	}{
		"like":            {"", lifecycle.Like{}},
		"faceSameIssue":   {"", lifecycle.FaceSameIssue{}},
		"addComment":      {authorToken, lifecycle.AddComment{Content: "hello"}},
		"updateStatus":    {authorityToken, lifecycle.UpdateStatus{Status: models.StatusRead}},
		"verifyComplaint": {authorToken, lifecycle.VerifyComplaint{Verified: true}},
	}
	for name, tt := range actions {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, models.StatusSolved)
			before := f.store.All()

			_, err := f.engine.Apply(context.Background(), primitive.NewObjectID().Hex(), tt.token, tt.action)

			assert.Equal(t, lifecycle.NotFound, lifecycle.KindOf(err))
			assert.Equal(t, before, f.store.All())
			assert.Empty(t, f.publisher.Events())
		})
	}
}

func TestRoleCheckedBeforeExistence(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)

	_, err := f.engine.Apply(context.Background(), primitive.NewObjectID().Hex(), authorToken, lifecycle.UpdateStatus{Status: models.StatusRead})

	assert.Equal(t, lifecycle.Forbidden, lifecycle.KindOf(err))
}

func TestStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)
	f.store.Err = errors.New("connection reset")

	_, err := f.apply("", lifecycle.Like{})

	assert.Equal(t, lifecycle.Internal, lifecycle.KindOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCommittedActionsArePublished(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)
	f.publisher.Err = errors.New("redis down")

	c, err := f.apply(authorityToken, lifecycle.UpdateStatus{Status: models.StatusInProgress})

	require.NoError(t, err)
	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventComplaintUpdated, events[0].Type)
	assert.Equal(t, f.id, events[0].ComplaintID)
	assert.Equal(t, lifecycle.ActionUpdateStatus, events[0].Action)
	assert.Equal(t, models.StatusInProgress, events[0].Status)
	assert.Equal(t, "a1", events[0].ActorID)
	assert.Equal(t, c.Version, events[0].Complaint.Version)
}

func TestCountersNeverNegative(t *testing.T) {
	f := newFixture(t, models.StatusUnsolved)
	sequence := []lifecycle.Action{
		lifecycle.Like{Undo: true},
		lifecycle.Like{},
		lifecycle.FaceSameIssue{},
		lifecycle.Like{Undo: true},
		lifecycle.Like{Undo: true},
		lifecycle.FaceSameIssue{},
		lifecycle.Like{},
	}
	for _, a := range sequence {
		c, err := f.apply("", a)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, c.Likes, int64(0))
		assert.GreaterOrEqual(t, c.FacingSameIssue, int64(0))
	}
	c := f.current(t)
	assert.Equal(t, int64(1), c.Likes)
	assert.Equal(t, int64(2), c.FacingSameIssue)
}
