package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/siraya-health/navigator/internal/shared/errors"
	"github.com/siraya-health/navigator/internal/shared/types"
)

// MemoryRepository keeps sessions in memory. Used when the service runs in
// limited mode without a database; everything is lost on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[types.ID][]byte
}

// NewMemoryRepository creates an in-memory session repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[types.ID][]byte)}
}

func (r *MemoryRepository) Create(ctx context.Context, sess *Session) error {
	snapshot, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sess.ID]; exists {
		return errors.Conflict("session already exists")
	}
	r.sessions[sess.ID] = snapshot
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id types.ID) (*Session, error) {
	r.mu.RLock()
	snapshot, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.NotFound("session", id.String())
	}

	sess := &Session{}
	if err := json.Unmarshal(snapshot, sess); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session")
	}
	return sess, nil
}

func (r *MemoryRepository) Update(ctx context.Context, sess *Session) error {
	snapshot, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sess.ID]; !exists {
		return errors.NotFound("session", sess.ID.String())
	}
	r.sessions[sess.ID] = snapshot
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id types.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return errors.NotFound("session", id.String())
	}
	delete(r.sessions, id)
	return nil
}

func (r *MemoryRepository) ListActive(ctx context.Context) ([]*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*Session
	for _, snapshot := range r.sessions {
		sess := &Session{}
		if err := json.Unmarshal(snapshot, sess); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal session")
		}
		if sess.Status == StatusActive {
			sessions = append(sessions, sess)
		}
	}
	return sessions, nil
}

func (r *MemoryRepository) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, snapshot := range r.sessions {
		sess := &Session{}
		if err := json.Unmarshal(snapshot, sess); err != nil {
			continue
		}
		if sess.UpdatedAt.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Ensure MemoryRepository implements Repository
var _ Repository = (*MemoryRepository)(nil)
