package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"galhub/internal/source"
	"galhub/pkg/models"
)

var (
	// ErrNoDataFromAnySource is the only aggregate failure: a name-only
	// search came back empty from all three catalogs.
	ErrNoDataFromAnySource = errors.New("no data from any source")

	// ErrMalformedQuery is returned when the caller explicitly claimed an id
	// search but the query matches no recognized id format.
	ErrMalformedQuery = errors.New("query is not a recognized id")

	errMissingAdapter = errors.New("all three source adapters are required")

	noOpLogger = zap.NewNop()
)

// ResolveRequest describes one resolution call. When IDs is empty the Query
// string is classified (or, with IsID set, forced) into ids; whatever does
// not classify is treated as a name search.
type ResolveRequest struct {
	Query  string
	IDs    models.IDSet
	IsID   *bool
	Custom *models.CustomData
}

// ResolverConfig carries the injected catalog adapters.
type ResolverConfig struct {
	Bangumi source.Adapter
	VNDB    source.Adapter
	Ymgal   source.Adapter
	Logger  *zap.Logger
}

// Resolver orchestrates multi-source fetches and hands the results to the
// merge engine. It holds no per-call state; concurrent resolutions are
// independent and never coalesced.
type Resolver struct {
	bgm    source.Adapter
	vndb   source.Adapter
	ymgal  source.Adapter
	logger *zap.Logger
}

func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Bangumi == nil || cfg.VNDB == nil || cfg.Ymgal == nil {
		return nil, errMissingAdapter
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Resolver{bgm: cfg.Bangumi, vndb: cfg.VNDB, ymgal: cfg.Ymgal, logger: logger}, nil
}

// Resolve runs the per-call decision tree: single known id (fetch it, then
// propagate its name to the other sources), two or more known ids (parallel
// independent fetches), or a bare name (parallel search everywhere).
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (models.Game, error) {
	ids, name, err := r.route(req)
	if err != nil {
		return models.Game{}, err
	}

	in := MergeInput{IDs: ids, Custom: req.Custom}
	switch ids.Count() {
	case 0:
		if err := r.resolveByName(ctx, name, &in); err != nil {
			return models.Game{}, err
		}
	case 1:
		r.resolveSingle(ctx, ids, &in)
	default:
		r.resolveMulti(ctx, ids, &in)
	}
	return Merge(in), nil
}

// LookupID fetches exactly one source by id with no fallback, so unlike the
// fan-out paths its error propagates to the caller for display.
func (r *Resolver) LookupID(ctx context.Context, ids models.IDSet) (*models.SourceRecord, error) {
	switch {
	case ids.Count() != 1:
		return nil, fmt.Errorf("lookup needs exactly one id, got %d", ids.Count())
	case ids.BgmID != "":
		return r.bgm.FetchByID(ctx, ids.BgmID)
	case ids.VndbID != "":
		return r.vndb.FetchByID(ctx, ids.VndbID)
	default:
		return r.ymgal.FetchByID(ctx, ids.YmgalID)
	}
}

// route turns the request into either a set of ids or a name to search.
func (r *Resolver) route(req ResolveRequest) (models.IDSet, string, error) {
	if !req.IDs.Empty() {
		return req.IDs, "", nil
	}
	switch {
	case req.IsID != nil && *req.IsID:
		ids := Classify(req.Query)
		if ids.Empty() {
			return models.IDSet{}, "", ErrMalformedQuery
		}
		return ids, "", nil
	case req.IsID != nil && !*req.IsID:
		return models.IDSet{}, req.Query, nil
	default:
		return Classify(req.Query), req.Query, nil
	}
}

func (r *Resolver) resolveByName(ctx context.Context, name string, in *MergeInput) error {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); in.Bgm = r.safeSearch(ctx, r.bgm, name) }()
	go func() { defer wg.Done(); in.Vndb = r.safeSearch(ctx, r.vndb, name) }()
	go func() { defer wg.Done(); in.Ymgal = r.safeSearch(ctx, r.ymgal, name) }()
	wg.Wait()

	if in.Bgm == nil && in.Vndb == nil && in.Ymgal == nil {
		return fmt.Errorf("%w: %q", ErrNoDataFromAnySource, name)
	}
	return nil
}

func (r *Resolver) resolveSingle(ctx context.Context, ids models.IDSet, in *MergeInput) {
	switch {
	case ids.BgmID != "":
		in.Bgm = r.safeFetch(ctx, r.bgm, ids.BgmID)
	case ids.VndbID != "":
		in.Vndb = r.safeFetch(ctx, r.vndb, ids.VndbID)
	case ids.YmgalID != "":
		in.Ymgal = r.safeFetch(ctx, r.ymgal, ids.YmgalID)
	}

	// Propagate the display name to the sources we have no id for. If the
	// primary fetch failed there is nothing to propagate and the caller gets
	// whatever the other sub-records hold (nothing).
	name := propagationName(*in)
	if name == "" {
		return
	}

	var wg sync.WaitGroup
	if in.Bgm == nil && ids.BgmID == "" {
		wg.Add(1)
		go func() { defer wg.Done(); in.Bgm = r.safeSearch(ctx, r.bgm, name) }()
	}
	if in.Vndb == nil && ids.VndbID == "" {
		wg.Add(1)
		go func() { defer wg.Done(); in.Vndb = r.safeSearch(ctx, r.vndb, name) }()
	}
	if in.Ymgal == nil && ids.YmgalID == "" {
		wg.Add(1)
		go func() { defer wg.Done(); in.Ymgal = r.safeSearch(ctx, r.ymgal, name) }()
	}
	wg.Wait()
}

func (r *Resolver) resolveMulti(ctx context.Context, ids models.IDSet, in *MergeInput) {
	var wg sync.WaitGroup
	if ids.BgmID != "" {
		wg.Add(1)
		go func() { defer wg.Done(); in.Bgm = r.safeFetch(ctx, r.bgm, ids.BgmID) }()
	}
	if ids.VndbID != "" {
		wg.Add(1)
		go func() { defer wg.Done(); in.Vndb = r.safeFetch(ctx, r.vndb, ids.VndbID) }()
	}
	if ids.YmgalID != "" {
		wg.Add(1)
		go func() { defer wg.Done(); in.Ymgal = r.safeFetch(ctx, r.ymgal, ids.YmgalID) }()
	}
	wg.Wait()
}

// safeFetch collapses every adapter failure into "no data" so one broken
// source never aborts the rest of a resolution.
func (r *Resolver) safeFetch(ctx context.Context, adapter source.Adapter, id string) *models.SourceRecord {
	rec, err := adapter.FetchByID(ctx, id)
	if err != nil {
		r.logger.Debug("source fetch failed",
			zap.String("source", adapter.Name()),
			zap.String("id", id),
			zap.Error(err))
		return nil
	}
	return rec
}

// safeSearch is safeFetch for name queries; only the first result is kept.
func (r *Resolver) safeSearch(ctx context.Context, adapter source.Adapter, name string) *models.SourceRecord {
	results, err := adapter.FetchByName(ctx, name, 1)
	if err != nil {
		r.logger.Debug("source search failed",
			zap.String("source", adapter.Name()),
			zap.String("name", name),
			zap.Error(err))
		return nil
	}
	if len(results) == 0 {
		return nil
	}
	rec := results[0]
	return &rec
}

// propagationName extracts the name used for cross-source search with fixed
// priority ymgal > vndb > bangumi > custom override.
func propagationName(in MergeInput) string {
	for _, rec := range []*models.SourceRecord{in.Ymgal, in.Vndb, in.Bgm} {
		if name := rec.DisplayName(); name != "" {
			return name
		}
	}
	if in.Custom != nil {
		return in.Custom.Name
	}
	return ""
}
