package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/siraya-health/navigator/internal/shared/errors"
	"github.com/siraya-health/navigator/internal/shared/types"
)

// Repository provides storage for sessions. The service runs against
// Postgres in normal operation and the in-memory implementation when the
// database is unavailable.
type Repository interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id types.ID) (*Session, error)
	Update(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id types.ID) error
	ListActive(ctx context.Context) ([]*Session, error)
	// Cleanup deletes sessions not updated within maxAge and returns how
	// many were removed
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
}

// PostgresRepository stores sessions as JSONB snapshots
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Postgres-backed session repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, sess *Session) error {
	snapshot, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	query := `
		INSERT INTO triage_sessions (id, status, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = r.pool.Exec(ctx, query, sess.ID, sess.Status, snapshot, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id types.ID) (*Session, error) {
	var snapshot []byte
	err := r.pool.QueryRow(ctx, `SELECT snapshot FROM triage_sessions WHERE id = $1`, id).Scan(&snapshot)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("session", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session")
	}

	sess := &Session{}
	if err := json.Unmarshal(snapshot, sess); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session")
	}

	return sess, nil
}

func (r *PostgresRepository) Update(ctx context.Context, sess *Session) error {
	snapshot, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	query := `
		UPDATE triage_sessions
		SET status = $2, snapshot = $3, updated_at = $4
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, sess.ID, sess.Status, snapshot, sess.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to update session")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("session", sess.ID.String())
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM triage_sessions WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete session")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("session", id.String())
	}

	return nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]*Session, error) {
	query := `
		SELECT snapshot FROM triage_sessions
		WHERE status = $1
		ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, StatusActive)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active sessions")
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var snapshot []byte
		if err := rows.Scan(&snapshot); err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}

		sess := &Session{}
		if err := json.Unmarshal(snapshot, sess); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal session")
		}
		sessions = append(sessions, sess)
	}

	return sessions, nil
}

func (r *PostgresRepository) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	result, err := r.pool.Exec(ctx, `DELETE FROM triage_sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clean up sessions")
	}

	return int(result.RowsAffected()), nil
}

// Ensure PostgresRepository implements Repository
var _ Repository = (*PostgresRepository)(nil)
