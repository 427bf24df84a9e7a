package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/kiranshivaraju/jobstatus/internal/ai/wire"
	"github.com/kiranshivaraju/jobstatus/internal/analysis"
	"github.com/kiranshivaraju/jobstatus/internal/cache"
	"github.com/kiranshivaraju/jobstatus/internal/prompt"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

// CacheStatus tags a result with where it came from.
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
)

// Options tunes an AnalysisService. Zero values fall back to defaults.
type Options struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
	CacheTTL  time.Duration
}

const (
	defaultMaxTokens = 3000
	defaultTimeout   = 60 * time.Second
	defaultCacheTTL  = 24 * time.Hour
)

// Outcome is a finished analysis.
type Outcome struct {
	Result *models.AnalysisResult
	Cache  CacheStatus
}

// AnalysisService validates job titles, serves cached analyses and runs the
// model on a miss, in either blocking or streaming mode.
type AnalysisService struct {
	provider models.LLMProvider
	cache    cache.Cache
	opts     Options
	validate *validator.Validate
	flight   singleflight.Group
}

// NewAnalysisService creates a new AnalysisService. A nil provider is allowed:
// every request then fails with ErrNotConfigured.
func NewAnalysisService(provider models.LLMProvider, ca cache.Cache, opts Options) *AnalysisService {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &AnalysisService{
		provider: provider,
		cache:    ca,
		opts:     opts,
		validate: validator.New(),
	}
}

// ValidateTitle trims raw and checks its length, returning the cleaned title.
func (s *AnalysisService) ValidateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	err := s.validate.Struct(models.AnalysisRequest{JobTitle: title})
	if err == nil {
		return title, nil
	}
	// Only an absent title is missing; whitespace alone is too short.
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "required" && raw == "" {
		return "", &ValidationError{Message: MsgTitleRequired}
	}
	return "", &ValidationError{Message: MsgTitleLength}
}

// Analyze returns the analysis for rawTitle, from cache when possible.
// Concurrent misses for the same normalized title share one model call.
func (s *AnalysisService) Analyze(ctx context.Context, rawTitle string) (*Outcome, error) {
	title, key, err := s.precheck(rawTitle)
	if err != nil {
		return nil, err
	}

	if cached := s.lookup(ctx, key); cached != nil {
		slog.Info("analysis served", "job_title", title, "cache", CacheHit)
		return &Outcome{Result: cached, Cache: CacheHit}, nil
	}

	// The shared call is detached from any single caller so one client going
	// away does not fail the others; it is still bounded by opts.Timeout.
	ch := s.flight.DoChan(key, func() (any, error) {
		return s.completeMiss(context.WithoutCancel(ctx), title, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Outcome), nil
	}
}

func (s *AnalysisService) completeMiss(ctx context.Context, title, key string) (*Outcome, error) {
	if cached := s.lookup(ctx, key); cached != nil {
		return &Outcome{Result: cached, Cache: CacheHit}, nil
	}

	req, err := s.completionRequest(title)
	if err != nil {
		return nil, err
	}

	ictx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.provider.Complete(ictx, req)
	if err != nil {
		err = s.upstreamError(ictx, err)
		s.logFailure(title, err)
		return nil, err
	}

	result, err := s.finalize(ctx, title, key, raw)
	if err != nil {
		s.logFailure(title, err)
		return nil, err
	}

	slog.Info("analysis served",
		"job_title", title,
		"cache", CacheMiss,
		"provider", s.provider.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Outcome{Result: result, Cache: CacheMiss}, nil
}

// StreamSession is a validated streaming request whose cache lookup has
// already happened, so the transport can report HIT or MISS up front.
type StreamSession struct {
	svc    *AnalysisService
	title  string
	key    string
	cached *models.AnalysisResult
}

// OpenStream validates rawTitle and consults the cache. Errors returned here
// happen before any event is sent.
func (s *AnalysisService) OpenStream(ctx context.Context, rawTitle string) (*StreamSession, error) {
	title, key, err := s.precheck(rawTitle)
	if err != nil {
		return nil, err
	}
	return &StreamSession{svc: s, title: title, key: key, cached: s.lookup(ctx, key)}, nil
}

// CacheStatus reports whether Run will replay a cached result.
func (ss *StreamSession) CacheStatus() CacheStatus {
	if ss.cached != nil {
		return CacheHit
	}
	return CacheMiss
}

// Title is the validated job title.
func (ss *StreamSession) Title() string { return ss.title }

// Run drives the stream. Model deltas are passed to emit as chunk events in
// output order, followed by exactly one done or error event. If emit fails or
// ctx is cancelled the client is gone: Run stops without a terminal event and
// nothing is cached. The returned error describes any failure for logging.
func (ss *StreamSession) Run(ctx context.Context, emit func(models.StreamEvent) error) error {
	s := ss.svc
	if ss.cached != nil {
		slog.Info("analysis served", "job_title", ss.title, "cache", CacheHit, "stream", true)
		return emit(models.DoneEvent(ss.cached))
	}

	req, err := s.completionRequest(ss.title)
	if err != nil {
		return ss.fail(emit, err)
	}

	ictx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var emitErr error
	start := time.Now()
	raw, err := s.provider.Stream(ictx, req, func(delta string) error {
		if err := emit(models.ChunkEvent(delta)); err != nil {
			emitErr = err
			return err
		}
		return nil
	})
	if emitErr != nil || wire.IsConsumerError(err) || ctx.Err() != nil {
		slog.Info("analysis stream abandoned by client", "job_title", ss.title, "received_bytes", len(raw))
		if emitErr != nil {
			return emitErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if err != nil {
		return ss.fail(emit, s.upstreamError(ictx, err))
	}

	result, err := s.finalize(ctx, ss.title, ss.key, raw)
	if err != nil {
		return ss.fail(emit, err)
	}

	slog.Info("analysis served",
		"job_title", ss.title,
		"cache", CacheMiss,
		"stream", true,
		"provider", s.provider.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return emit(models.DoneEvent(result))
}

func (ss *StreamSession) fail(emit func(models.StreamEvent) error, err error) error {
	ss.svc.logFailure(ss.title, err)
	if emitErr := emit(models.ErrorEvent(UserMessage(err))); emitErr != nil {
		return errors.Join(err, emitErr)
	}
	return err
}

// AnalyzeStream opens a session and runs it, returning the cache status.
func (s *AnalysisService) AnalyzeStream(ctx context.Context, rawTitle string, emit func(models.StreamEvent) error) (CacheStatus, error) {
	ss, err := s.OpenStream(ctx, rawTitle)
	if err != nil {
		return CacheMiss, err
	}
	return ss.CacheStatus(), ss.Run(ctx, emit)
}

func (s *AnalysisService) precheck(rawTitle string) (title, key string, err error) {
	title, err = s.ValidateTitle(rawTitle)
	if err != nil {
		return "", "", err
	}
	if s.provider == nil {
		return "", "", ErrNotConfigured
	}
	return title, cache.AnalysisKey(title), nil
}

func (s *AnalysisService) completionRequest(title string) (models.CompletionRequest, error) {
	text, err := prompt.Build(title)
	if err != nil {
		return models.CompletionRequest{}, err
	}
	return models.CompletionRequest{
		Model:     s.opts.Model,
		MaxTokens: s.opts.MaxTokens,
		Prompt:    text,
	}, nil
}

// finalize parses a complete reply, normalizes it and stores it.
func (s *AnalysisService) finalize(ctx context.Context, title, key, raw string) (*models.AnalysisResult, error) {
	result, err := analysis.Parse(raw)
	if err != nil {
		return nil, err
	}

	if violations := analysis.CheckSchema(analysis.StripFences(raw)); len(violations) > 0 {
		fields := make([]string, 0, len(violations))
		for _, v := range violations {
			fields = append(fields, v.String())
		}
		slog.Warn("model reply deviates from result schema",
			"job_title", title,
			"violations", len(violations),
			"details", strings.Join(fields, "; "),
		)
	}
	if notes := analysis.Normalize(result); len(notes) > 0 {
		slog.Debug("normalized model reply", "job_title", title, "adjustments", notes)
	}

	s.store(ctx, key, result)
	return result, nil
}

func (s *AnalysisService) lookup(ctx context.Context, key string) *models.AnalysisResult {
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("cache lookup failed", "key", key, "error", err)
		return nil
	}
	if !found {
		return nil
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		slog.Warn("discarding undecodable cache entry", "key", key, "error", err)
		_ = s.cache.Delete(ctx, key)
		return nil
	}
	return &result
}

func (s *AnalysisService) store(ctx context.Context, key string, result *models.AnalysisResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		slog.Error("encoding result for cache", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.opts.CacheTTL); err != nil {
		slog.Warn("cache store failed", "key", key, "error", err)
	}
}

// upstreamError marks a provider failure caused by our own deadline.
func (s *AnalysisService) upstreamError(ictx context.Context, err error) error {
	if errors.Is(ictx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrInferenceTimeout, s.opts.Timeout, err)
	}
	return err
}

func (s *AnalysisService) logFailure(title string, err error) {
	kind := Classify(err)
	attrs := []any{"job_title", title, "kind", kind.String(), "error", err}
	if s.provider != nil {
		attrs = append(attrs, "provider", s.provider.Name())
	}
	switch kind {
	case KindInvalidInput, KindNotAJob:
		slog.Info("analysis rejected", attrs...)
	default:
		slog.Error("analysis failed", attrs...)
	}
}
