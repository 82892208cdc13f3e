package triagelog

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/siraya-health/navigator/internal/shared/errors"
)

// Repository is the append-only store for completed triages
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Stats(ctx context.Context) (*Stats, error)
}

// PostgresRepository stores entries in the triage_log table
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Postgres-backed triage log
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	var detail []byte
	if entry.Detail != nil {
		var err error
		detail, err = json.Marshal(entry.Detail)
		if err != nil {
			return errors.Wrap(err, "failed to marshal entry detail")
		}
	}

	query := `
		INSERT INTO triage_log (
			id, session_id, logged_at, comune, path, branch,
			urgency, disposition, emergency_color, red_flags, detail
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.SessionID, entry.LoggedAt, entry.Comune, entry.Path, entry.Branch,
		entry.Urgency, entry.Disposition, entry.EmergencyColor, entry.RedFlags, detail,
	)
	if err != nil {
		return errors.Wrap(err, "failed to append triage entry")
	}

	return nil
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, session_id, logged_at, comune, path, branch,
			urgency, disposition, emergency_color, red_flags
		FROM triage_log
		ORDER BY logged_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query recent entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		err := rows.Scan(
			&entry.ID, &entry.SessionID, &entry.LoggedAt, &entry.Comune, &entry.Path, &entry.Branch,
			&entry.Urgency, &entry.Disposition, &entry.EmergencyColor, &entry.RedFlags,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan entry")
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByUrgency:     make(map[int]int),
		ByDisposition: make(map[string]int),
	}

	rows, err := r.pool.Query(ctx, `SELECT urgency, COUNT(*) FROM triage_log GROUP BY urgency`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query urgency stats")
	}
	for rows.Next() {
		var urgency, count int
		if err := rows.Scan(&urgency, &count); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan urgency stats")
		}
		stats.ByUrgency[urgency] = count
		stats.Total += count
	}
	rows.Close()

	rows, err = r.pool.Query(ctx, `SELECT disposition, COUNT(*) FROM triage_log GROUP BY disposition`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query disposition stats")
	}
	for rows.Next() {
		var disposition string
		var count int
		if err := rows.Scan(&disposition, &count); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan disposition stats")
		}
		stats.ByDisposition[disposition] = count
	}
	rows.Close()

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM triage_log WHERE emergency_color IN ('RED', 'BLACK')`,
	).Scan(&stats.EmergencyCount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query emergency count")
	}

	rows, err = r.pool.Query(ctx, `
		SELECT date_trunc('hour', logged_at) AS hour, COUNT(*)
		FROM triage_log
		WHERE logged_at > NOW() - INTERVAL '24 hours'
		GROUP BY hour
		ORDER BY hour`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query hourly stats")
	}
	defer rows.Close()

	for rows.Next() {
		var hc HourlyCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, errors.Wrap(err, "failed to scan hourly stats")
		}
		stats.Hourly = append(stats.Hourly, hc)
	}

	computeDeviation(stats)
	return stats, nil
}

// MemoryRepository keeps the log in memory for limited mode
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryRepository creates an in-memory triage log
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []Entry
	for i := len(r.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, r.entries[i])
	}
	return entries, nil
}

func (r *MemoryRepository) Stats(ctx context.Context) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{
		ByUrgency:     make(map[int]int),
		ByDisposition: make(map[string]int),
	}

	hourly := make(map[time.Time]int)
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	for _, entry := range r.entries {
		stats.Total++
		stats.ByUrgency[entry.Urgency]++
		stats.ByDisposition[entry.Disposition]++
		if entry.EmergencyColor == "RED" || entry.EmergencyColor == "BLACK" {
			stats.EmergencyCount++
		}
		if entry.LoggedAt.After(cutoff) {
			hourly[entry.LoggedAt.UTC().Truncate(time.Hour)]++
		}
	}

	for hour, count := range hourly {
		stats.Hourly = append(stats.Hourly, HourlyCount{Hour: hour, Count: count})
	}
	sort.Slice(stats.Hourly, func(i, j int) bool {
		return stats.Hourly[i].Hour.Before(stats.Hourly[j].Hour)
	})

	computeDeviation(stats)
	return stats, nil
}

// computeDeviation fills PSDeviationRate from the disposition counts
func computeDeviation(stats *Stats) {
	if stats.Total == 0 {
		return
	}
	ps := stats.ByDisposition["PS"]
	stats.PSDeviationRate = float64(stats.Total-ps) / float64(stats.Total)
}

// Ensure both implementations satisfy Repository
var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
