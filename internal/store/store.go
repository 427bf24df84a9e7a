package store

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the job catalog. Reads serve the API; UpsertJob is only used by
// the operator import.
type Store interface {
	Ping(ctx context.Context) error
	ListJobs(ctx context.Context, page Page) ([]models.JobSummary, int, error)
	GetJob(ctx context.Context, slug string) (*models.JobRecord, error)
	RelatedJobs(ctx context.Context, slug string, count int) ([]models.JobSummary, error)
	UpsertJob(ctx context.Context, job *models.JobRecord) error
}

// Page selects a window of the title-ordered catalog. Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

func (p Page) offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

const (
	DefaultRelatedCount = 4
	MaxRelatedCount     = 20
)
