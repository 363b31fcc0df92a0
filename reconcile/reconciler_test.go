package reconcile_test

import (
	"context"
	"sort"
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
	"github.com/civicpulse/complaints-api/reconcile"
)

var (
	author  = lifecycle.Identity{SubjectID: primitive.NewObjectID().Hex(), Username: "asha", Role: models.RoleCitizen}
	officer = lifecycle.Identity{SubjectID: primitive.NewObjectID().Hex(), Username: "officer1", Role: models.RoleAuthority}
)

// engineTransport answers like the api would, straight from an engine
type engineTransport struct {
	store  *lifecycletest.Store
	engine *lifecycle.Engine
	token  string

	mu      sync.Mutex
	down    bool
	applied []lifecycle.Action
}

func newEngineTransport(store *lifecycletest.Store, token string) *engineTransport {
	verifier := lifecycletest.Verifier{"author": author, "officer": officer}
	return &engineTransport{store: store, engine: lifecycle.NewEngine(store, verifier, nil), token: token}
}

func (t *engineTransport) setDown(down bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.down = down
}

func (t *engineTransport) List(_ context.Context, _ reconcile.ListQuery) ([]models.Complaint, error) {
	t.mu.Lock()
	down := t.down
	t.mu.Unlock()
	if down {
		return nil, errors.New("connection refused")
	}
	all := t.store.All()
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	return all, nil
}

func (t *engineTransport) Apply(ctx context.Context, id string, action lifecycle.Action) (*models.Complaint, error) {
	t.mu.Lock()
	down := t.down
	t.applied = append(t.applied, action)
	t.mu.Unlock()
	if down {
		return nil, errors.New("connection refused")
	}
	return t.engine.Apply(ctx, id, t.token, action)
}

func setup(t *testing.T, token string, complaints ...models.Complaint) (*reconcile.Reconciler, *engineTransport, []string) {
	t.Helper()
	store := lifecycletest.NewStore()
	var ids []string
	for _, c := range complaints {
		ids = append(ids, store.Put(c))
	}
	transport := newEngineTransport(store, token)
	r := reconcile.New(transport, reconcile.ListQuery{})
	require.NoError(t, r.Load(context.Background()))
	return r, transport, ids
}

func pothole() models.Complaint {
	return models.Complaint{Title: "Pothole", Status: models.StatusUnsolved, AuthorID: author.SubjectID, Likes: 3}
}

func TestLoad(t *testing.T) {
	r, _, ids := setup(t, "", pothole(), models.Complaint{Title: "Streetlight", Status: models.StatusRead})

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Pothole", entries[0].Complaint.Title)
	assert.Equal(t, "Streetlight", entries[1].Complaint.Title)
	for _, e := range entries {
		assert.False(t, e.LikedByCurrentUser)
		assert.False(t, e.Pending)
	}

	_, ok := r.Entry(ids[0])
	assert.True(t, ok)
	_, ok = r.Entry(primitive.NewObjectID().Hex())
	assert.False(t, ok)
}

func TestLoadFailure(t *testing.T) {
	transport := newEngineTransport(lifecycletest.NewStore(), "")
	transport.setDown(true)
	r := reconcile.New(transport, reconcile.ListQuery{})

	assert.Error(t, r.Load(context.Background()))
	assert.Empty(t, r.Entries())
}

func TestToggleLike(t *testing.T) {
	r, transport, ids := setup(t, "", pothole())
	ctx := context.Background()

	e, err := r.ToggleLike(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, e.LikedByCurrentUser)
	assert.Equal(t, int64(4), e.Complaint.Likes)
	assert.False(t, e.Pending)

	e, err = r.ToggleLike(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, e.LikedByCurrentUser)
	assert.Equal(t, int64(3), e.Complaint.Likes)

	assert.Equal(t, []lifecycle.Action{lifecycle.Like{}, lifecycle.Like{Undo: true}}, transport.applied)
	stored, _ := transport.store.Get(ids[0])
	assert.Equal(t, int64(3), stored.Likes)
}

func TestLikedFlagSurvivesReload(t *testing.T) {
	r, _, ids := setup(t, "", pothole())
	ctx := context.Background()

	_, err := r.ToggleLike(ctx, ids[0])
	require.NoError(t, err)
	require.NoError(t, r.Load(ctx))

	e, ok := r.Entry(ids[0])
	require.True(t, ok)
	assert.True(t, e.LikedByCurrentUser)
	assert.Equal(t, int64(4), e.Complaint.Likes)
}

// listingTransport answers List with a fixed listing
type listingTransport struct {
	*engineTransport
	listing []models.Complaint
}

func (t *listingTransport) List(_ context.Context, _ reconcile.ListQuery) ([]models.Complaint, error) {
	return t.listing, nil
}

func TestLoadKeepsEntriesNewerThanListing(t *testing.T) {
	r, transport, ids := setup(t, "", pothole())
	ctx := context.Background()
	stale := transport.store.All()

	e, err := r.ToggleLike(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(4), e.Complaint.Likes)
	assert.Equal(t, int64(1), e.Complaint.Version)

	r.Transport = &listingTransport{engineTransport: transport, listing: stale}
	require.NoError(t, r.Load(ctx))

	e, ok := r.Entry(ids[0])
	require.True(t, ok)
	assert.Equal(t, int64(4), e.Complaint.Likes)
	assert.Equal(t, int64(1), e.Complaint.Version)
	assert.True(t, e.LikedByCurrentUser)
	assert.False(t, e.Pending)
}

func TestToggleLikeKeptWhenUnreachable(t *testing.T) {
	r, transport, ids := setup(t, "", pothole())
	ctx := context.Background()
	transport.setDown(true)

	e, err := r.ToggleLike(ctx, ids[0])
	assert.Error(t, err)
	assert.True(t, e.LikedByCurrentUser)
	assert.Equal(t, int64(4), e.Complaint.Likes)
	assert.True(t, e.Pending)

	transport.setDown(false)
	require.NoError(t, r.Refresh(ctx))

	e, _ = r.Entry(ids[0])
	assert.False(t, e.Pending)
	assert.Equal(t, int64(3), e.Complaint.Likes)
	assert.True(t, e.LikedByCurrentUser)
}

func TestFaceSameIssue(t *testing.T) {
	r, transport, ids := setup(t, "", pothole())
	ctx := context.Background()

	e, err := r.FaceSameIssue(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.Complaint.FacingSameIssue)
	e, err = r.FaceSameIssue(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.Complaint.FacingSameIssue)

	transport.setDown(true)
	e, err = r.FaceSameIssue(ctx, ids[0])
	assert.Error(t, err)
	assert.Equal(t, int64(3), e.Complaint.FacingSameIssue)
	assert.True(t, e.Pending)
}

func TestUpdateStatus(t *testing.T) {
	r, _, ids := setup(t, "officer", pothole())

	e, err := r.UpdateStatus(context.Background(), ids[0], models.StatusSolved, "https://img.example/fixed.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSolved, e.Complaint.Status)
	assert.Equal(t, "https://img.example/fixed.jpg", e.Complaint.ProofImage)
	assert.NotNil(t, e.Complaint.ResolvedAt)
	assert.Equal(t, int64(1), e.Complaint.Version)
	assert.False(t, e.Pending)
}

func TestUpdateStatusKeptWhenUnreachable(t *testing.T) {
	r, transport, ids := setup(t, "officer", pothole())
	transport.setDown(true)

	e, err := r.UpdateStatus(context.Background(), ids[0], models.StatusInProgress, "")
	assert.Error(t, err)
	assert.Equal(t, models.StatusInProgress, e.Complaint.Status)
	assert.True(t, e.Pending)

	stored, _ := transport.store.Get(ids[0])
	assert.Equal(t, models.StatusUnsolved, stored.Status)
}

func TestUpdateStatusRevertedWhenRejected(t *testing.T) {
	r, _, ids := setup(t, "author", pothole())

	e, err := r.UpdateStatus(context.Background(), ids[0], models.StatusSolved, "https://img.example/fixed.jpg")
	require.Error(t, err)
	assert.Equal(t, lifecycle.Forbidden, lifecycle.KindOf(err))
	assert.Equal(t, models.StatusUnsolved, e.Complaint.Status)
	assert.Nil(t, e.Complaint.ResolvedAt)
	assert.Empty(t, e.Complaint.ProofImage)
	assert.False(t, e.Pending)
}

func TestUpdateStatusInvalid(t *testing.T) {
	r, transport, ids := setup(t, "officer", pothole())

	_, err := r.UpdateStatus(context.Background(), ids[0], models.StatusVerified, "")
	assert.Equal(t, lifecycle.InvalidRequest, lifecycle.KindOf(err))
	assert.Empty(t, transport.applied)
}

func TestAddComment(t *testing.T) {
	r, _, ids := setup(t, "author", pothole())

	e, err := r.AddComment(context.Background(), ids[0], "Still there this morning")
	require.NoError(t, err)
	require.Len(t, e.Complaint.Comments, 1)
	assert.Equal(t, "Still there this morning", e.Complaint.Comments[0].Content)
	assert.Equal(t, models.RoleCitizen, e.Complaint.Comments[0].AuthorRole)
}

func TestAddCommentFailureLeavesStateUnchanged(t *testing.T) {
	r, transport, ids := setup(t, "author", pothole())
	before, _ := r.Entry(ids[0])
	transport.setDown(true)

	e, err := r.AddComment(context.Background(), ids[0], "Still there")
	assert.Error(t, err)
	assert.Equal(t, before, e)
	assert.Empty(t, e.Complaint.Comments)
	assert.False(t, e.Pending)
}

func TestVerifyComplaint(t *testing.T) {
	solved := pothole()
	solved.Status = models.StatusSolved
	r, transport, ids := setup(t, "author", solved)
	ctx := context.Background()

	transport.setDown(true)
	e, err := r.VerifyComplaint(ctx, ids[0], true)
	assert.Error(t, err)
	assert.Equal(t, models.StatusSolved, e.Complaint.Status)
	assert.Nil(t, e.Complaint.VerifiedAt)

	transport.setDown(false)
	e, err = r.VerifyComplaint(ctx, ids[0], true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, e.Complaint.Status)
	assert.NotNil(t, e.Complaint.VerifiedAt)
}

func TestUnknownComplaint(t *testing.T) {
	r, transport, _ := setup(t, "officer", pothole())
	ctx := context.Background()
	id := primitive.NewObjectID().Hex()

	_, err := r.ToggleLike(ctx, id)
	assert.ErrorIs(t, err, reconcile.ErrUnknownComplaint)
	_, err = r.FaceSameIssue(ctx, id)
	assert.ErrorIs(t, err, reconcile.ErrUnknownComplaint)
	_, err = r.UpdateStatus(ctx, id, models.StatusRead, "")
	assert.ErrorIs(t, err, reconcile.ErrUnknownComplaint)
	_, err = r.AddComment(ctx, id, "hi")
	assert.ErrorIs(t, err, reconcile.ErrUnknownComplaint)
	assert.Empty(t, transport.applied)
}

func TestConcurrentLikes(t *testing.T) {
	store := lifecycletest.NewStore()
	id := store.Put(pothole())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := reconcile.New(newEngineTransport(store, ""), reconcile.ListQuery{})
			if err := r.Load(context.Background()); err != nil {
				t.Error(err)
				return
			}
			if _, err := r.ToggleLike(context.Background(), id); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	stored, _ := store.Get(id)
	assert.Equal(t, int64(13), stored.Likes)
}

func TestStartStop(t *testing.T) {
	r, transport, ids := setup(t, "", pothole())

	assert.Error(t, r.Start("not a schedule"))

	require.NoError(t, r.Start("@every 1s"))
	assert.Error(t, r.Start("@every 1s"))

	transport.store.Put(models.Complaint{ID: mustObjectID(t, ids[0]), Title: "Pothole", Likes: 9})
	assert.Eventually(t, func() bool {
		e, _ := r.Entry(ids[0])
		return e.Complaint.Likes == 9
	}, 3*time.Second, 10*time.Millisecond)

	r.Stop()
	r.Stop()
}

func mustObjectID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	oid, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return oid
}
