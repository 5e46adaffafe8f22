package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ppiankov/tabfind/internal/cache"
	"github.com/ppiankov/tabfind/internal/extract"
	"github.com/ppiankov/tabfind/internal/extract/adapters"
	"github.com/ppiankov/tabfind/internal/model"
	"github.com/ppiankov/tabfind/internal/score"
	"github.com/ppiankov/tabfind/internal/search"
	"github.com/ppiankov/tabfind/internal/tsv"
)

// Pipeline owns the loaded data set for one source and orchestrates
// fetch, cache and ingest. Queries read the current data set without
// waiting for refreshes in progress.
type Pipeline struct {
	config    *model.Config
	fetcher   *Fetcher
	medium    cache.Cache
	store     *cache.Store
	heuristic *score.Heuristic
	regions   *adapters.Registry
	logger    *slog.Logger
	now       func() time.Time

	current    atomic.Pointer[model.Dataset]
	generation atomic.Uint64
}

// NewPipeline creates a pipeline over an existing fetcher and cache medium.
// A nil medium disables caching.
func NewPipeline(cfg *model.Config, fetcher *Fetcher, medium cache.Cache, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		config:    cfg,
		fetcher:   fetcher,
		medium:    medium,
		heuristic: score.NewHeuristic(cfg.Heuristic, cfg.Query.MaxFilters, cfg.Query.Locale),
		regions:   adapters.NewRegistry(),
		logger:    logger,
		now:       time.Now,
	}
	if medium != nil && cfg.Cache.Enabled {
		key := cache.SourceKey(cfg.Source.URL, cfg.Cache.Key)
		p.store = cache.NewStore(medium, key, cfg.Cache.TTL, logger)
	}
	return p
}

// NewPipelineFromConfig wires the fetcher and cache medium named in configuration
func NewPipelineFromConfig(cfg *model.Config, logger *slog.Logger) (*Pipeline, error) {
	var medium cache.Cache
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = DefaultCacheDir()
		}
		m, err := cache.New(cfg.Cache.Backend, dir)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		medium = m
	}
	return NewPipeline(cfg, NewFetcherFromConfig(&cfg.HTTP, logger), medium, logger), nil
}

// DefaultCacheDir returns the per-user cache location
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "tabfind")
	}
	return filepath.Join(os.TempDir(), "tabfind")
}

// Source returns the configured source URL
func (p *Pipeline) Source() string { return p.config.Source.URL }

// Store returns the cache store, nil when caching is disabled
func (p *Pipeline) Store() *cache.Store { return p.store }

// Dataset returns the active data set, nil before the first ingest
func (p *Pipeline) Dataset() *model.Dataset { return p.current.Load() }

// Ingest parses and projects doc and installs it as the active data set
// under a new generation, as if freshly fetched. A parse failure leaves the
// current data set untouched.
func (p *Pipeline) Ingest(doc model.RawDocument) (*model.Dataset, error) {
	ds, err := p.build(doc, p.generation.Add(1), model.OriginNetwork)
	if err != nil {
		return nil, err
	}
	p.install(ds)
	return ds, nil
}

func (p *Pipeline) build(doc model.RawDocument, gen uint64, origin model.Origin) (*model.Dataset, error) {
	table, err := tsv.Parse(doc.Text)
	if err != nil {
		return nil, err
	}

	columns := p.config.Source.Columns
	if len(columns) == 0 {
		columns = model.DefaultColumns()
	}
	proj := extract.Project(table, columns)
	contactKey := extract.DetectContactKey(proj.Headers)

	return &model.Dataset{
		Raw:        doc,
		AllHeaders: table.Headers,
		Indexes:    proj.Indexes,
		Headers:    proj.Headers,
		Records:    proj.Records,
		Filters:    p.heuristic.Build(proj.Records, proj.Headers, contactKey),
		ContactKey: contactKey,
		UpdatedAt:  doc.FetchedAt,
		Origin:     origin,
		Generation: gen,
	}, nil
}

// install replaces the active data set unless a newer generation is
// already in place
func (p *Pipeline) install(ds *model.Dataset) bool {
	for {
		cur := p.current.Load()
		if cur != nil && cur.Generation > ds.Generation {
			return false
		}
		if p.current.CompareAndSwap(cur, ds) {
			return true
		}
	}
}

// restore builds a data set from a cached entry. It carries generation 0
// and only fills an empty slot, so it never displaces data from a fetch
// and any refresh outranks it. The active data set is returned either way.
func (p *Pipeline) restore(lookup cache.Lookup) (*model.Dataset, error) {
	origin := model.OriginCache
	if lookup.Stale {
		origin = model.OriginStaleCache
	}
	ds, err := p.build(model.RawDocument{Text: lookup.RawText, FetchedAt: lookup.UpdatedAt}, 0, origin)
	if err != nil {
		return nil, err
	}
	if p.current.CompareAndSwap(nil, ds) {
		return ds, nil
	}
	return p.current.Load(), nil
}

// Load restores the cached document and only goes to the network when
// there is no usable fresh copy.
func (p *Pipeline) Load(ctx context.Context) (*model.LoadResult, error) {
	if lookup, ok := p.store.Read(); ok {
		ds, err := p.restore(lookup)
		if err != nil {
			p.logger.Warn("cached document unusable, clearing", "key", p.store.Key(), "error", err)
			if cerr := p.store.Clear(); cerr != nil {
				p.logger.Warn("cache clear failed", "error", cerr)
			}
		} else if !lookup.Stale {
			p.logger.Debug("loaded from cache", "records", ds.Len(), "age", lookup.Age)
			return p.report(ds, ds.Origin, ""), nil
		} else {
			p.logger.Debug("cached document stale, revalidating", "age", lookup.Age)
		}
	}
	return p.Refresh(ctx)
}

// Refresh fetches the source bypassing caches. On failure it falls back to
// the loaded data set or the cached document, and only errors when neither
// exists. A refresh that completes after a newer one has installed its data
// is discarded and reports the data set that stayed active.
func (p *Pipeline) Refresh(ctx context.Context) (*model.LoadResult, error) {
	source := p.config.Source.URL
	if source == "" {
		return p.fallback(model.ErrNoSource)
	}

	gen := p.generation.Add(1)
	started := p.now()

	res, err := p.fetcher.FetchWithRetry(ctx, BustURL(source, started))
	if err != nil {
		p.logger.Warn("fetch failed", "url", source, "error", err)
		return p.fallback(fmt.Errorf("%w: %v", model.ErrTransport, err))
	}

	fetchedAt := p.now().UTC()
	ds, err := p.build(model.RawDocument{Text: res.Text, FetchedAt: fetchedAt}, gen, model.OriginNetwork)
	if err != nil {
		p.logger.Warn("fetched document unusable", "url", source, "error", err)
		return p.fallback(err)
	}

	if !p.install(ds) {
		cur := p.current.Load()
		p.logger.Debug("refresh superseded", "generation", gen, "current", cur.Generation)
		return p.report(cur, cur.Origin, "superseded by a newer refresh"), nil
	}

	result := p.report(ds, model.OriginNetwork, "")
	if err := p.store.Write(res.Text, fetchedAt); err != nil {
		p.logger.Warn("cache write failed", "error", err)
		result.Warning = err.Error()
	}

	p.logger.Info("refreshed", "url", source, "records", ds.Len(), "filters", len(ds.Filters), "duration", p.now().Sub(started))
	return result, nil
}

func (p *Pipeline) fallback(cause error) (*model.LoadResult, error) {
	if cur := p.current.Load(); cur != nil {
		origin := model.OriginMemory
		if cur.Origin != model.OriginNetwork {
			origin = cur.Origin
		}
		return p.report(cur, origin, cause.Error()), nil
	}

	if lookup, ok := p.store.Read(); ok {
		if ds, err := p.restore(lookup); err == nil {
			return p.report(ds, ds.Origin, cause.Error()), nil
		}
	}

	return nil, cause
}

func (p *Pipeline) report(ds *model.Dataset, origin model.Origin, warning string) *model.LoadResult {
	ttl := p.config.Cache.TTL
	stale := ttl > 0 && p.now().Sub(ds.UpdatedAt) > ttl
	if stale && origin == model.OriginCache {
		origin = model.OriginStaleCache
	}
	return &model.LoadResult{
		Origin:    origin,
		Records:   ds.Len(),
		UpdatedAt: ds.UpdatedAt,
		Stale:     stale,
		Warning:   warning,
	}
}

// Query runs q against ds, normally one snapshot taken with Dataset.
// Filters on columns that no longer define a filter are dropped and the
// page is clamped.
func (p *Pipeline) Query(ds *model.Dataset, q model.QueryState) model.Page {
	if q.PageSize <= 0 {
		q.PageSize = p.config.Query.PageSize
	}
	if ds == nil {
		return search.Paginate(nil, q.Page, q.PageSize)
	}

	q.Filters = q.Filters.Prune(ds.Filters)
	return search.Run(ds.Records, q)
}

// Resolver returns a contact resolver bound to ds
func (p *Pipeline) Resolver(ds *model.Dataset) *extract.Resolver {
	var headers []string
	var detected string
	if ds != nil {
		headers = ds.Headers
		detected = ds.ContactKey
	}
	return extract.NewResolver(extract.ResolverConfig{
		Headers:     headers,
		DetectedKey: detected,
		OverrideKey: p.config.Contact.Key,
		SummaryKeys: p.config.Summary.Keys,
		MaxSummary:  p.config.Summary.MaxFields,
		Region:      p.config.Contact.Region,
	}, p.regions)
}

// Candidates reports the heuristic evaluation of every selected column of ds
func (p *Pipeline) Candidates(ds *model.Dataset) []score.Candidate {
	if ds == nil {
		return nil
	}
	_, candidates := p.heuristic.BuildWithCandidates(ds.Records, ds.Headers, ds.ContactKey)
	return candidates
}

// Close releases the cache medium when it holds resources
func (p *Pipeline) Close() error {
	if c, ok := p.medium.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ForSource returns a pipeline for another source sharing this one's
// fetcher, cache medium and configuration
func (p *Pipeline) ForSource(url string) *Pipeline {
	cfg := *p.config
	cfg.Source.URL = url
	cfg.Cache.Key = ""
	return NewPipeline(&cfg, p.fetcher, p.medium, p.logger.With("source", url))
}

// Warm refreshes the cached copy of url
func (p *Pipeline) Warm(ctx context.Context, url string) (*model.LoadResult, error) {
	return p.ForSource(url).Refresh(ctx)
}
