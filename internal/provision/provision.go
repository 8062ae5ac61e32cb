// Package provision reads the enrollment registry, a pgvector-backed
// PostgreSQL database where subject enrollments land. Devices pull the
// registry into their local gallery artifacts; they never match against
// it directly.
package provision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attend/internal/face"
)

// Subject is one enrolled identity with its reference embedding.
type Subject struct {
	Name       string
	Embedding  []float32
	EnrolledAt time.Time
}

// Pool manages the registry connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool connects to the enrollment registry.
func NewPool(url string) (*Pool, error) {
	if url == "" {
		return nil, errors.New("provisioning database URL is required")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open provisioning database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping provisioning database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing provisioning database connection: %w", err)
		}
	}
	return nil
}

// EnsureSchema creates the subjects table for the given embedding
// dimensionality. The pgvector extension must be installable.
func (p *Pool) EnsureSchema(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dim)
	}

	if _, err := p.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("enable pgvector extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS subjects (
			id              BIGSERIAL PRIMARY KEY,
			name            TEXT NOT NULL,
			normalized_name TEXT NOT NULL UNIQUE,
			embedding       vector(%d) NOT NULL,
			enrolled_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dim)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create subjects table: %w", err)
	}
	return nil
}

// Enroll upserts a subject's reference embedding. Subjects are keyed by
// the normalized form of their name, so "Tomáš" and "tomas" are the
// same enrollment; the display name follows the latest upload.
func (p *Pool) Enroll(ctx context.Context, name string, embedding []float32) error {
	normalized := face.NormalizeSubjectName(name)
	if normalized == "" {
		return fmt.Errorf("subject name %q normalizes to nothing", name)
	}
	if len(embedding) == 0 {
		return errors.New("empty embedding")
	}

	query := `
		INSERT INTO subjects (name, normalized_name, embedding)
		VALUES ($1, $2, $3::vector)
		ON CONFLICT (normalized_name) DO UPDATE SET
			name = EXCLUDED.name,
			embedding = EXCLUDED.embedding,
			enrolled_at = NOW()`
	if _, err := p.db.ExecContext(ctx, query, name, normalized, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("enroll subject %s: %w", name, err)
	}
	return nil
}

// FetchSubjects returns every enrolled subject ordered by name.
func (p *Pool) FetchSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT name, embedding, enrolled_at FROM subjects ORDER BY normalized_name`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var s Subject
		var vec pgvector.Vector
		if err := rows.Scan(&s.Name, &vec, &s.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		s.Embedding = vec.Slice()
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, nil
}

// Count returns the number of enrolled subjects.
func (p *Pool) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subjects`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return count, nil
}
