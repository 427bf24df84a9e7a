package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/jobstatus/internal/config"
	"github.com/kiranshivaraju/jobstatus/internal/store"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("jobstatus_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, store.RunMigrations(connStr, migrationsDir()))

	pool, err := store.Connect(ctx, config.DatabaseConfig{
		URL:             connStr,
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool, connStr
}

func job(slug, title string, fiveYear float64) *models.JobRecord {
	return &models.JobRecord{
		Slug:  slug,
		Title: title,
		AnalysisResult: models.AnalysisResult{
			Timeline: &models.Timeline{ThreeYear: fiveYear * 0.6, FiveYear: fiveYear, SevenYear: fiveYear + 10},
			Metrics: &models.Metrics{
				RoutineAutomation: models.Metric{Score: 40, Description: "routine"},
				PositionDemand:    models.Metric{Score: -5, Description: "demand"},
			},
			Summary: title + " summary",
			Tips:    []string{"one", "two"},
		},
	}
}

func seed(t *testing.T, s *store.PostgresStore) {
	t.Helper()
	for _, j := range []*models.JobRecord{
		job("software-engineer", "Software Engineer", 50),
		job("accountant", "Accountant", 55),
		job("registered-nurse", "Registered Nurse", 25),
		job("data-entry-clerk", "Data Entry Clerk", 85),
		job("electrician", "Electrician", 15),
		job("web-developer", "Web Developer", 60),
	} {
		require.NoError(t, s.UpsertJob(context.Background(), j))
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	_, connStr := setupTestDB(t)

	assert.NoError(t, store.RunMigrations(connStr, migrationsDir()))
}

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	assert.NoError(t, s.Ping(context.Background()))
}

func TestGetJob(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	seed(t, s)

	got, err := s.GetJob(context.Background(), "registered-nurse")
	require.NoError(t, err)
	assert.Equal(t, "Registered Nurse", got.Title)
	assert.Equal(t, 25.0, got.FiveYear())
	assert.Equal(t, -5.0, got.Metrics.PositionDemand.Score)
	assert.Equal(t, []string{"one", "two"}, got.Tips)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestGetJob_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetJob(context.Background(), "astronaut")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertJob_Replaces(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertJob(ctx, job("baker", "Baker", 30)))
	require.NoError(t, s.UpsertJob(ctx, job("baker", "Master Baker", 35)))

	got, err := s.GetJob(ctx, "baker")
	require.NoError(t, err)
	assert.Equal(t, "Master Baker", got.Title)
	assert.Equal(t, 35.0, got.FiveYear())

	_, total, err := s.ListJobs(ctx, store.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestListJobs_SortedAndPaged(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	seed(t, s)
	ctx := context.Background()

	first, total, err := s.ListJobs(ctx, store.Page{Page: 1, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, first, 4)
	assert.Equal(t, "Accountant", first[0].Title)
	assert.Equal(t, "Data Entry Clerk", first[1].Title)
	assert.Equal(t, 55.0, first[0].FiveYear)

	second, _, err := s.ListJobs(ctx, store.Page{Page: 2, Limit: 4})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "Web Developer", second[1].Title)
}

func TestListJobs_Empty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	jobs, total, err := s.ListJobs(context.Background(), store.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestRelatedJobs_Scoring(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	seed(t, s)

	// From software-engineer (50):
	//   registered-nurse 25 -> 25-20 = 5
	//   electrician      15 -> 35-20 = 15
	//   accountant       55 ->  5+10 = 15
	//   web-developer    60 -> 10+10 = 20
	//   data-entry-clerk 85 -> 35+10 = 45
	related, err := s.RelatedJobs(context.Background(), "software-engineer", 0)
	require.NoError(t, err)

	slugs := make([]string, len(related))
	for i, r := range related {
		slugs[i] = r.Slug
	}
	assert.Equal(t, []string{"registered-nurse", "accountant", "electrician", "web-developer"}, slugs)
}

func TestRelatedJobs_CountClamped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		require.NoError(t, s.UpsertJob(ctx, job(fmt.Sprintf("job-%02d", i), fmt.Sprintf("Job %02d", i), float64(i*4))))
	}

	related, err := s.RelatedJobs(ctx, "job-00", 100)
	require.NoError(t, err)
	assert.Len(t, related, store.MaxRelatedCount)

	related, err = s.RelatedJobs(ctx, "job-00", 2)
	require.NoError(t, err)
	assert.Len(t, related, 2)
}

func TestRelatedJobs_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.RelatedJobs(context.Background(), "astronaut", 4)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
