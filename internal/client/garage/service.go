// Package garage holds the resource client modules: one file per backend
// resource family, each reading through the response cache and the retry
// executor and invalidating the cache after writes.
package garage

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/retry"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/session"
)

// Doer performs one API call and returns the envelope data. *api.Client
// implements it.
type Doer interface {
	Do(ctx context.Context, req api.Request) (json.RawMessage, error)
}

// Service is the entry point to every resource module. It is safe for
// concurrent use.
type Service struct {
	api       Doer
	cache     *cache.Cache
	session   *session.Store
	policy    retry.Policy
	retryOpts []retry.Option
	validate  *validator.Validate
	log       zerolog.Logger
	m         mapper
}

type Option func(*Service)

// WithCache injects the response cache. Without it each Service gets its own
// memory-only cache.
func WithCache(c *cache.Cache) Option { return func(s *Service) { s.cache = c } }

// WithSession lets Login, Logout and profile reads maintain the persisted
// session records.
func WithSession(st *session.Store) Option { return func(s *Service) { s.session = st } }

func WithRetryPolicy(p retry.Policy) Option { return func(s *Service) { s.policy = p } }

func WithRetryOptions(opts ...retry.Option) Option {
	return func(s *Service) { s.retryOpts = append(s.retryOpts, opts...) }
}

func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

func New(doer Doer, opts ...Option) *Service {
	s := &Service{
		api:      doer,
		policy:   retry.DefaultPolicy(),
		validate: validator.New(),
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.cache == nil {
		s.cache = cache.New(cache.WithLogger(s.log))
	}
	s.m = mapper{log: s.log}
	s.retryOpts = append(s.retryOpts, retry.WithHook(func(attempt int, delay time.Duration, err error) {
		s.log.Debug().Int("attempt", attempt).Dur("delay", delay).Err(err).Msg("retrying request")
	}))
	return s
}

func (s *Service) Cache() *cache.Cache { return s.cache }

type readOptions struct {
	fresh bool
}

// ReadOption tunes a single read.
type ReadOption func(*readOptions)

// Fresh skips the cache lookup. The entry is dropped first and rewritten
// with the fetched result, which is what change handlers and pollers use.
func Fresh() ReadOption { return func(o *readOptions) { o.fresh = true } }

// read is the cache-then-network path shared by every module. fetch runs
// under the retry executor; its mapped result is written back through a
// reserved ticket so a slower, older response never overwrites a newer one.
// A canceled read never writes.
func read[T any](ctx context.Context, s *Service, req cache.Request, fetch func(context.Context) (T, error), opts []ReadOption) (T, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.fresh {
		s.cache.Invalidate(ctx, req)
	} else if b, ok := s.cache.Get(ctx, req); ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		s.cache.Invalidate(ctx, req)
	}

	ticket := s.cache.Reserve(req)
	v, err := retry.Do(ctx, s.policy, fetch, s.retryOpts...)
	if err == nil && errors.Is(ctx.Err(), context.Canceled) {
		err = ctx.Err()
	}
	if err != nil {
		s.cache.Release(ticket)
		var zero T
		return zero, api.Canceled(ctx, req.Endpoint, err)
	}

	b, merr := json.Marshal(v)
	if merr != nil {
		s.cache.Release(ticket)
		s.log.Warn().Err(merr).Str("endpoint", req.Endpoint).Msg("encode cache entry")
		return v, nil
	}
	s.cache.Fill(ctx, ticket, b, 0)
	return v, nil
}

// fetchOne returns a fetch func decoding a single record and mapping it.
func fetchOne[R, T any](s *Service, req api.Request, mapFn func(R) T) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var zero T
		data, err := s.api.Do(ctx, req)
		if err != nil {
			return zero, err
		}
		rec, err := api.Decode[R](data)
		if err != nil {
			return zero, err
		}
		return mapFn(rec), nil
	}
}

// fetchList returns a fetch func accepting both list shapes.
func fetchList[R, T any](s *Service, req api.Request, field string, mapFn func(R) T) func(context.Context) (Page[T], error) {
	return func(ctx context.Context) (Page[T], error) {
		data, err := s.api.Do(ctx, req)
		if err != nil {
			return Page[T]{}, err
		}
		recs, page, err := api.DecodeList[R](data, field)
		if err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Items: mapAll(recs, mapFn), Total: page.Total, Page: page.Page, Limit: page.Limit}, nil
	}
}

// write issues a mutation without cache lookup or retry, then invalidates
// every key containing one of patterns and each exact detail key.
func (s *Service) write(ctx context.Context, req api.Request, patterns []string, details ...cache.Request) (json.RawMessage, error) {
	data, err := s.api.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, p := range patterns {
		s.cache.InvalidatePattern(ctx, p)
	}
	for _, d := range details {
		s.cache.Invalidate(ctx, d)
	}
	return data, nil
}

// writeOne is write followed by decoding and mapping the returned record.
func writeOne[R, T any](ctx context.Context, s *Service, req api.Request, mapFn func(R) T, patterns []string, details ...cache.Request) (T, error) {
	var zero T
	data, err := s.write(ctx, req, patterns, details...)
	if err != nil {
		return zero, err
	}
	rec, err := api.Decode[R](data)
	if err != nil {
		return zero, err
	}
	return mapFn(rec), nil
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Page is a mapped list with its pagination counters.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ListParams are the pagination and filter inputs shared by list reads.
type ListParams struct {
	Page   int
	Limit  int
	Status string
	Search string
}

func (p ListParams) cacheParams() cache.Params {
	params := cache.Params{"status": p.Status, "search": p.Search}
	if p.Page > 0 {
		params["page"] = p.Page
	}
	if p.Limit > 0 {
		params["limit"] = p.Limit
	}
	return params
}

func withParams(path string, params cache.Params) api.Request {
	return api.Get(path, params.Values())
}

// NormalizeID strips display markers such as the "#" on booking numbers so
// both "#BK-1042" and "BK-1042" address the same record.
func NormalizeID(id string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(id), "#"))
}

// idPath joins a collection path with a normalized id. An id that is empty
// after normalization is rejected before any request is made.
func idPath(collection, id string, rest ...string) (string, error) {
	id = NormalizeID(id)
	if id == "" {
		return "", ErrMissingID
	}
	p := collection + "/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p, nil
}

// shortID is the display form of a generated id.
func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func mapAll[R, T any](recs []R, fn func(R) T) []T {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		out = append(out, fn(r))
	}
	return out
}

func detail(r cache.Resource, endpoint string) cache.Request {
	return cache.Request{Resource: r, Endpoint: endpoint, Detail: true}
}
