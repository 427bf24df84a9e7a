package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) ListJobs(ctx context.Context, page Page) ([]models.JobSummary, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT slug, title, five_year FROM jobs ORDER BY title, slug LIMIT $1 OFFSET $2`,
		page.Limit, page.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	jobs, err := collectSummaries(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, total, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, slug string) (*models.JobRecord, error) {
	var (
		job models.JobRecord
		doc []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT slug, title, analysis, updated_at FROM jobs WHERE slug = $1`, slug,
	).Scan(&job.Slug, &job.Title, &doc, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if err := json.Unmarshal(doc, &job.AnalysisResult); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", slug, err)
	}
	return &job, nil
}

// RelatedJobs suggests alternatives to slug. Jobs are ranked by
// |other - current| on the five-year projection, with safer jobs pulled
// forward by 20 points and riskier ones pushed back by 10.
func (s *PostgresStore) RelatedJobs(ctx context.Context, slug string, count int) ([]models.JobSummary, error) {
	if count <= 0 {
		count = DefaultRelatedCount
	}
	if count > MaxRelatedCount {
		count = MaxRelatedCount
	}

	var current float64
	err := s.pool.QueryRow(ctx, `SELECT five_year FROM jobs WHERE slug = $1`, slug).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("related jobs: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT slug, title, five_year FROM jobs
		 WHERE slug <> $1
		 ORDER BY abs(five_year - $2) + CASE WHEN five_year < $2 THEN -20 ELSE 10 END, title
		 LIMIT $3`,
		slug, current, count)
	if err != nil {
		return nil, fmt.Errorf("related jobs: %w", err)
	}
	jobs, err := collectSummaries(rows)
	if err != nil {
		return nil, fmt.Errorf("related jobs: %w", err)
	}
	return jobs, nil
}

// UpsertJob inserts job or replaces the record with the same slug.
func (s *PostgresStore) UpsertJob(ctx context.Context, job *models.JobRecord) error {
	doc, err := json.Marshal(job.AnalysisResult)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.Slug, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (slug, title, analysis)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (slug) DO UPDATE
		 SET title = EXCLUDED.title, analysis = EXCLUDED.analysis, updated_at = now()`,
		job.Slug, job.Title, doc)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", job.Slug, err)
	}
	return nil
}

func collectSummaries(rows pgx.Rows) ([]models.JobSummary, error) {
	jobs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.JobSummary, error) {
		var j models.JobSummary
		err := row.Scan(&j.Slug, &j.Title, &j.FiveYear)
		return j, err
	})
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []models.JobSummary{}
	}
	return jobs, nil
}

var _ Store = (*PostgresStore)(nil)
