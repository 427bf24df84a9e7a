package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/jobstatus/internal/api/handler"
	"github.com/kiranshivaraju/jobstatus/internal/store"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Store ---

type mockStore struct {
	jobs      map[string]*models.JobRecord
	err       error
	lastPage  store.Page
	lastCount int
}

func newMockStore(records ...*models.JobRecord) *mockStore {
	m := &mockStore{jobs: map[string]*models.JobRecord{}}
	for _, r := range records {
		m.jobs[r.Slug] = r
	}
	return m
}

func (m *mockStore) Ping(_ context.Context) error { return m.err }

func (m *mockStore) ListJobs(_ context.Context, page store.Page) ([]models.JobSummary, int, error) {
	m.lastPage = page
	if m.err != nil {
		return nil, 0, m.err
	}
	all := make([]models.JobSummary, 0, len(m.jobs))
	for _, j := range m.jobs {
		all = append(all, models.JobSummary{Slug: j.Slug, Title: j.Title, FiveYear: j.FiveYear()})
	}
	sort.Slice(all, func(i, k int) bool { return all[i].Title < all[k].Title })
	start := (page.Page - 1) * page.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (m *mockStore) GetJob(_ context.Context, slug string) (*models.JobRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	j, ok := m.jobs[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	return j, nil
}

func (m *mockStore) RelatedJobs(_ context.Context, slug string, count int) ([]models.JobSummary, error) {
	m.lastCount = count
	if _, ok := m.jobs[slug]; !ok {
		return nil, store.ErrNotFound
	}
	return []models.JobSummary{{Slug: "other", Title: "Other", FiveYear: 10}}, nil
}

func (m *mockStore) UpsertJob(_ context.Context, j *models.JobRecord) error {
	m.jobs[j.Slug] = j
	return nil
}

// --- Helpers ---

func record(slug, title string, fiveYear, demand float64) *models.JobRecord {
	return &models.JobRecord{
		Slug:  slug,
		Title: title,
		AnalysisResult: models.AnalysisResult{
			Timeline: &models.Timeline{ThreeYear: fiveYear - 10, FiveYear: fiveYear, SevenYear: fiveYear + 10},
			Metrics:  &models.Metrics{PositionDemand: models.Metric{Score: demand}},
			Summary:  title,
			Tips:     []string{"tip"},
		},
	}
}

func catalogRouter(s store.Store) http.Handler {
	h := handler.NewJobsHandler(s)
	r := chi.NewRouter()
	r.Get("/api/v1/jobs", h.List)
	r.Get("/api/v1/jobs/{slug}", h.Get)
	r.Get("/api/v1/jobs/{slug}/related", h.Related)
	r.Get("/api/v1/compare", h.Compare)
	return r
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

// --- Tests ---

func TestJobs_List(t *testing.T) {
	s := newMockStore(
		record("nurse", "Registered Nurse", 25, 25),
		record("accountant", "Accountant", 55, -15),
		record("engineer", "Software Engineer", 50, 10),
	)

	w := get(catalogRouter(s), "/api/v1/jobs?limit=2")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.JobSummary `json:"data"`
		Meta struct {
			Page    int  `json:"page"`
			Limit   int  `json:"limit"`
			Total   int  `json:"total"`
			HasNext bool `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "Accountant", body.Data[0].Title)
	assert.Equal(t, 55.0, body.Data[0].FiveYear)
	assert.Equal(t, 3, body.Meta.Total)
	assert.True(t, body.Meta.HasNext)
}

func TestJobs_ListClampsPaging(t *testing.T) {
	s := newMockStore()

	get(catalogRouter(s), "/api/v1/jobs?page=-3&limit=100000")

	assert.Equal(t, store.Page{Page: 1, Limit: 200}, s.lastPage)
}

func TestJobs_Get(t *testing.T) {
	s := newMockStore(record("nurse", "Registered Nurse", 25, 25))

	w := get(catalogRouter(s), "/api/v1/jobs/nurse")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.JobRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Registered Nurse", body.Data.Title)
	assert.Equal(t, 25.0, body.Data.FiveYear())
}

func TestJobs_GetNotFound(t *testing.T) {
	w := get(catalogRouter(newMockStore()), "/api/v1/jobs/astronaut")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Job not found","code":"NOT_FOUND"}`, w.Body.String())
}

func TestJobs_StoreFailureIsOpaque(t *testing.T) {
	s := newMockStore()
	s.err = errors.New("pq: connection refused on 10.0.0.5")

	w := get(catalogRouter(s), "/api/v1/jobs/nurse")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestJobs_Related(t *testing.T) {
	s := newMockStore(record("nurse", "Registered Nurse", 25, 25))
	r := catalogRouter(s)

	w := get(r, "/api/v1/jobs/nurse/related")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.DefaultRelatedCount, s.lastCount)

	get(r, "/api/v1/jobs/nurse/related?count=7")
	assert.Equal(t, 7, s.lastCount)

	w = get(r, "/api/v1/jobs/nurse/related?count=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(r, "/api/v1/jobs/astronaut/related")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobs_Compare(t *testing.T) {
	s := newMockStore(
		record("engineer", "Software Engineer", 50, 10),
		record("nurse", "Registered Nurse", 25, 25),
	)

	w := get(catalogRouter(s), "/api/v1/compare?a=engineer&b=nurse")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.JobComparison `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "engineer", body.Data.A.Slug)
	assert.Equal(t, "nurse", body.Data.B.Slug)
	assert.Equal(t, -25.0, body.Data.Deltas.Timeline.FiveYear)
	assert.Equal(t, 15.0, body.Data.Deltas.Metrics["positionDemand"])
}

func TestJobs_CompareValidation(t *testing.T) {
	s := newMockStore(record("engineer", "Software Engineer", 50, 10))
	r := catalogRouter(s)

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/v1/compare?a=engineer").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/compare?a=engineer&b=astronaut").Code)
}
