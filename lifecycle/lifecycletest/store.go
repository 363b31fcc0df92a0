// Package lifecycletest provides in-memory collaborators for exercising the lifecycle
// engine without a database.
package lifecycletest

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/models"
)

// Store is a lifecycle.Store kept in memory. Updates are serialized by a mutex, which
// gives them the same atomicity as a single findOneAndUpdate.
type Store struct {
	mu         sync.Mutex
	complaints map[string]models.Complaint
	updates    int
	// Err, when set, is returned by every call
	Err error
}

// NewStore returns a store holding complaints. Complaints without an id get one.
func NewStore(complaints ...models.Complaint) *Store {
	s := &Store{complaints: map[string]models.Complaint{}}
	for _, c := range complaints {
		s.Put(c)
	}
	return s
}

// Put stores c and returns its id
func (s *Store) Put(c models.Complaint) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.complaints[c.ID.Hex()] = c.Clone()
	return c.ID.Hex()
}

// Get returns a copy of the stored complaint
func (s *Store) Get(id string) (models.Complaint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	return c.Clone(), ok
}

// All returns copies of every stored complaint
func (s *Store) All() []models.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Complaint, 0, len(s.complaints))
	for _, c := range s.complaints {
		out = append(out, c.Clone())
	}
	return out
}

// Updates counts the committed updates
func (s *Store) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

func (s *Store) FindByID(_ context.Context, id string) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.complaints[id]
	if !ok {
		return nil, databases.ErrNotFound
	}
	out := c.Clone()
	return &out, nil
}

func (s *Store) AtomicUpdate(_ context.Context, id string, update models.ComplaintUpdate) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.complaints[id]
	if !ok || !update.Matches(c) {
		return nil, databases.ErrNotFound
	}
	c = c.Clone()
	update.ApplyTo(&c)
	s.complaints[id] = c
	s.updates++
	out := c.Clone()
	return &out, nil
}

// Verifier maps fixed tokens to identities
type Verifier map[string]lifecycle.Identity

// ErrInvalidToken is returned for tokens the Verifier does not know
var ErrInvalidToken = errors.New("invalid token")

func (v Verifier) VerifyToken(_ context.Context, token string) (lifecycle.Identity, error) {
	id, ok := v[token]
	if !ok {
		return lifecycle.Identity{}, ErrInvalidToken
	}
	return id, nil
}

// Publisher records published events
type Publisher struct {
	mu     sync.Mutex
	events []models.ComplaintEvent
	// Err, when set, is returned by Publish after recording the event
	Err error
}

func (p *Publisher) Publish(_ context.Context, event models.ComplaintEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

// Events returns the recorded events
func (p *Publisher) Events() []models.ComplaintEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ComplaintEvent(nil), p.events...)
}
