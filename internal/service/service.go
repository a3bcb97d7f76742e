// Package service runs probes for URLs on behalf of the HTTP API and CLI. It
// consults the probe cache, coalesces concurrent probes of the same URL and
// records definitive outcomes.
package service

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"fastsize/internal/config"
	"fastsize/internal/fetch"
	"fastsize/internal/logging"
	"fastsize/internal/probe"
	"fastsize/internal/storage"
)

// errCached marks a failure served from the cache.
var errCached = errors.New("cached outcome")

// ByteCounter receives the number of upstream bytes each probe consumed.
type ByteCounter interface {
	Add(n int, now time.Time)
}

type Options struct {
	Timeout           time.Duration
	MaxBytes          int
	ChunkSize         int
	UserAgent         string
	CacheTTL          time.Duration
	FailureTTL        time.Duration
	BatchConcurrency  int
	PreviewCandidates int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Timeout:           cfg.ProbeTimeout(),
		MaxBytes:          cfg.ProbeMaxBytes,
		ChunkSize:         cfg.ProbeChunkBytes,
		UserAgent:         cfg.UserAgent,
		CacheTTL:          cfg.CacheTTL(),
		FailureTTL:        cfg.FailureTTL(),
		BatchConcurrency:  cfg.BatchConcurrency,
		PreviewCandidates: 8,
	}
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = probe.DefaultTimeout
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = probe.DefaultMaxBytes
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = 8
	}
	if o.PreviewCandidates <= 0 {
		o.PreviewCandidates = 8
	}
	return o
}

// Result is one probe outcome as served to clients.
type Result struct {
	URL       string       `json:"url"`
	Format    probe.Format `json:"format"`
	Width     uint32       `json:"width"`
	Height    uint32       `json:"height"`
	BytesRead int          `json:"bytes_read"`
	Cached    bool         `json:"cached"`
}

type Service struct {
	client  *http.Client
	db      *storage.DB
	traffic ByteCounter
	opts    Options
	group   singleflight.Group
	now     func() time.Time
	log     *log.Logger
}

// New builds a Service. db and traffic may be nil to disable caching and
// byte accounting.
func New(client *http.Client, db *storage.DB, traffic ByteCounter, opts Options) *Service {
	return &Service{
		client:  client,
		db:      db,
		traffic: traffic,
		opts:    opts.withDefaults(),
		now:     time.Now,
		log:     logging.Get("fetch"),
	}
}

// Probe returns the format and dimensions of the image at rawURL. Errors are
// fetch.ErrInvalidURL for unusable URLs, *fetch.StatusError for rejected
// responses, *probe.Error for probe failures, or a transport error.
func (s *Service) Probe(ctx context.Context, rawURL string) (Result, error) {
	u, err := fetch.ParseURL(rawURL)
	if err != nil {
		return Result{}, err
	}
	key := u.String()

	if res, hit, err := s.lookup(key); hit {
		return res, err
	}

	ch := s.group.DoChan(key, func() (any, error) {
		return s.fetchAndProbe(context.WithoutCancel(ctx), key)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	case <-ctx.Done():
		return Result{}, probe.TransportError(ctx.Err())
	}
}

// lookup serves a fresh cache entry. A cached failure is returned as err
// with hit set.
func (s *Service) lookup(key string) (res Result, hit bool, err error) {
	if s.db == nil {
		return Result{}, false, nil
	}
	rec, dbErr := s.db.GetProbe(key, s.now())
	if dbErr != nil {
		s.log.Printf("cache lookup url=%s err=%v", key, dbErr)
		return Result{}, false, nil
	}
	if rec == nil {
		return Result{}, false, nil
	}
	format, _ := probe.ParseFormat(rec.Format)
	if rec.Failed() {
		kind, ok := probe.ParseKind(rec.ErrorKind)
		if !ok {
			return Result{}, false, nil
		}
		return Result{}, true, &probe.Error{Kind: kind, Format: format, Err: errCached}
	}
	if format == probe.FormatUnknown {
		return Result{}, false, nil
	}
	return Result{
		URL:       key,
		Format:    format,
		Width:     uint32(rec.Width),
		Height:    uint32(rec.Height),
		BytesRead: rec.BytesRead,
		Cached:    true,
	}, true, nil
}

func (s *Service) fetchAndProbe(ctx context.Context, key string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	start := s.now()

	src, err := fetch.Open(ctx, s.client, key, fetch.Options{ChunkSize: s.opts.ChunkSize, UserAgent: s.opts.UserAgent})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = probe.TransportError(ctxErr)
		}
		s.log.Printf("fetch url=%s err=%v dur_ms=%d", key, err, s.now().Sub(start).Milliseconds())
		return Result{}, err
	}

	res, err := probe.Probe(ctx, src,
		probe.WithMaxBytes(s.opts.MaxBytes),
		probe.WithTimeout(0),
		probe.WithLogger(logging.Get("probe")),
	)
	if s.traffic != nil {
		s.traffic.Add(int(src.BytesRead()), s.now())
	}
	s.log.Printf("fetch url=%s status=%d requests=%d bytes=%d dur_ms=%d",
		key, src.StatusCode(), src.Requests(), src.BytesRead(), s.now().Sub(start).Milliseconds())

	s.store(key, res, err)
	if err != nil {
		return Result{}, err
	}
	return Result{
		URL:       key,
		Format:    res.Format,
		Width:     res.Dimensions.Width,
		Height:    res.Dimensions.Height,
		BytesRead: res.BytesRead,
	}, nil
}

// store caches successes and definitive failures. Transient failures are
// never cached.
func (s *Service) store(key string, res probe.Result, err error) {
	if s.db == nil {
		return
	}
	now := s.now()
	rec := &storage.ProbeRecord{
		URL:        key,
		CreatedAt:  now.Unix(),
		AccessedAt: now.Unix(),
	}
	var pe *probe.Error
	switch {
	case err == nil && s.opts.CacheTTL > 0:
		rec.Format = string(res.Format)
		rec.Width = int(res.Dimensions.Width)
		rec.Height = int(res.Dimensions.Height)
		rec.BytesRead = res.BytesRead
		rec.ExpiresAt = now.Add(s.opts.CacheTTL).Unix()
	case errors.As(err, &pe) && pe.Kind.Definitive() && s.opts.FailureTTL > 0:
		rec.Format = string(pe.Format)
		rec.ErrorKind = pe.Kind.String()
		rec.ExpiresAt = now.Add(s.opts.FailureTTL).Unix()
	default:
		return
	}
	if err := s.db.PutProbe(rec); err != nil {
		s.log.Printf("cache store url=%s err=%v", key, err)
	}
}

// Forget drops the cached outcome for rawURL.
func (s *Service) Forget(rawURL string) (bool, error) {
	if s.db == nil {
		return false, nil
	}
	u, err := fetch.ParseURL(rawURL)
	if err != nil {
		return false, err
	}
	return s.db.DeleteProbe(u.String())
}
