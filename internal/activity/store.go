// Package activity stores course activities and runs every content write
// through the content codec so that only canonical encodings are persisted.
package activity

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Ethan041028/audacieuses-content/internal/content"
)

var (
	// ErrNotFound is returned when no activity has the requested id.
	ErrNotFound = errors.New("activity not found")
	// ErrInvalidInput is returned for missing or malformed fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when creating an activity whose id is taken.
	ErrConflict = errors.New("activity already exists")
)

// Activity is one unit of course material inside a module.
type Activity struct {
	ID        string       `json:"id"`
	ModuleID  string       `json:"module_id"`
	Title     string       `json:"title"`
	Kind      content.Kind `json:"kind"`
	Content   string       `json:"content"` // canonical encoding
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Store persists activities.
type Store interface {
	Create(ctx context.Context, a Activity) (Activity, error)
	Get(ctx context.Context, id string) (Activity, error)
	Update(ctx context.Context, a Activity) (Activity, error)
	ListByModule(ctx context.Context, moduleID string) ([]Activity, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	activities map[string]Activity
	mu         sync.RWMutex
	now        func() time.Time
}

// NewMemoryStore creates a new in-memory activity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		activities: make(map[string]Activity),
		now:        time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, a Activity) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.activities[a.ID]; exists {
		return Activity{}, ErrConflict
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.activities[a.ID] = a
	return a, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activities[id]
	if !ok {
		return Activity{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) Update(_ context.Context, a Activity) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.activities[a.ID]
	if !ok {
		return Activity{}, ErrNotFound
	}
	a.ModuleID = cur.ModuleID
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = s.now()
	s.activities[a.ID] = a
	return a, nil
}

// ListByModule returns the module's activities, oldest first.
func (s *MemoryStore) ListByModule(_ context.Context, moduleID string) ([]Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Activity{}
	for _, a := range s.activities {
		if a.ModuleID == moduleID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
