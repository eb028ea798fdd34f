package answers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/config"
)

var (
	// ErrNoSession is returned by sources that need a session identifier when none is set.
	ErrNoSession = errors.New("answers: no session id")
	// ErrCacheMiss is returned by a Cache that holds nothing for the session.
	ErrCacheMiss = errors.New("answers: cache miss")
)

// Source is one strategy for producing an answer Map.
type Source interface {
	// Name identifies the strategy in logs.
	Name() string
	Load(ctx context.Context, sessionID string) (*Map, error)
}

// Cache persists fetched answer maps per session.
type Cache interface {
	Get(ctx context.Context, sessionID string) (*Map, time.Time, error)
	Put(ctx context.Context, sessionID string, answers *Map, fetchedAt time.Time) error
}

// cloudStorageMarkers identify bucket hosts that use the S3 path convention.
var cloudStorageMarkers = []string{
	".amazonaws.com",
	".s3.",
	"storage.googleapis.com",
	".blob.core.windows.net",
	".digitaloceanspaces.com",
}

// ClassifyBaseURL applies the base URL rule: empty means packaged, a .json path means a
// direct file, a cloud-storage host means the S3 convention, anything else means REST.
func ClassifyBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return config.SourcePackaged
	}
	u, err := url.Parse(base)
	if err != nil {
		return config.SourceREST
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".json") {
		return config.SourceStatic
	}
	host := "." + strings.ToLower(u.Hostname())
	for _, marker := range cloudStorageMarkers {
		if strings.Contains(host, marker) {
			return config.SourceS3
		}
	}
	return config.SourceREST
}

// Deps bundles the collaborators a Source may need.
type Deps struct {
	Client *http.Client
	Cache  Cache
	Logger *zap.Logger
}

// SelectSource builds the Source named by cfg.Source, resolving "auto" through ClassifyBaseURL.
func SelectSource(cfg config.AnswersConfig, deps Deps) (Source, error) {
	kind := cfg.Source
	if kind == "" || kind == config.SourceAuto {
		kind = ClassifyBaseURL(cfg.BaseURL)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fetcher := newFetcher(deps.Client, cfg, logger)
	switch kind {
	case config.SourceREST:
		return &RESTSource{Base: cfg.BaseURL, fetch: fetcher}, nil
	case config.SourceStatic:
		return &StaticSource{URL: cfg.BaseURL, fetch: fetcher}, nil
	case config.SourceS3:
		return &S3Source{Base: cfg.BaseURL, fetch: fetcher}, nil
	case config.SourcePackaged:
		return &PackagedSource{Path: cfg.PackagedPath}, nil
	case config.SourceCache:
		if deps.Cache == nil {
			return nil, fmt.Errorf("answers: cache source selected but no cache is configured")
		}
		return &CacheSource{Cache: deps.Cache}, nil
	default:
		return nil, fmt.Errorf("answers: unknown source %q", kind)
	}
}

// CacheSource serves answers only from the persisted cache.
type CacheSource struct {
	Cache Cache
}

func (s *CacheSource) Name() string { return config.SourceCache }

func (s *CacheSource) Load(ctx context.Context, sessionID string) (*Map, error) {
	m, _, err := s.Cache.Get(ctx, sessionID)
	return m, err
}

// RESTSource fetches GET {base}/wizard/questionnaire/{sessionId}/answers.
type RESTSource struct {
	Base  string
	fetch *fetcher
}

func (s *RESTSource) Name() string { return config.SourceREST }

func (s *RESTSource) Load(ctx context.Context, sessionID string) (*Map, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	endpoint := joinURL(s.Base, "wizard", "questionnaire", sessionID, "answers")
	return s.fetch.loadJSON(ctx, endpoint)
}

// StaticSource fetches a .json URL as is. The session is ignored.
type StaticSource struct {
	URL   string
	fetch *fetcher
}

func (s *StaticSource) Name() string { return config.SourceStatic }

func (s *StaticSource) Load(ctx context.Context, _ string) (*Map, error) {
	return s.fetch.loadJSON(ctx, s.URL)
}

// S3Source fetches {base}/json/{sessionId}/questionnaire_answers_latest.json.
type S3Source struct {
	Base  string
	fetch *fetcher
}

func (s *S3Source) Name() string { return config.SourceS3 }

func (s *S3Source) Load(ctx context.Context, sessionID string) (*Map, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	endpoint := joinURL(s.Base, "json", sessionID, "questionnaire_answers_latest.json")
	return s.fetch.loadJSON(ctx, endpoint)
}

// PackagedSource reads the bundled {answers:[{question_number, answer}]} file.
type PackagedSource struct {
	Path string
}

func (s *PackagedSource) Name() string { return config.SourcePackaged }

func (s *PackagedSource) Load(_ context.Context, _ string) (*Map, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("answers: reading packaged answers: %w", err)
	}
	return DecodeBody(data)
}

// joinURL appends path segments to base, keeping any query string on base.
func joinURL(base string, segments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(segments, "/")
	u.RawPath = ""
	return u.String()
}
