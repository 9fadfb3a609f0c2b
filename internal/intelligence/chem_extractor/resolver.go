package chem_extractor

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/turtacn/alchemist/internal/domain/stoich"
	"github.com/turtacn/alchemist/internal/domain/thermo"
	"github.com/turtacn/alchemist/internal/infrastructure/database/redis"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/internal/infrastructure/pubchem"
	"github.com/turtacn/alchemist/pkg/errors"
)

// Resolution sources.
const (
	SourceFormula    = "formula"
	SourceDictionary = "dictionary"
	SourceRearranged = "rearranged"
	SourceCache      = "cache"
	SourcePubChem    = "pubchem"
)

// ErrNameUnresolved is returned when no step maps a name to a table formula.
var ErrNameUnresolved = errors.New(errors.CodeNameUnresolved, "chemical name could not be resolved")

// Resolution is the formula chosen for a name.
type Resolution struct {
	Name    string `json:"name"`
	Formula string `json:"formula"`
	Source  string `json:"source"`
	// PubChemFormula is the formula as PubChem spells it, before rearranging.
	PubChemFormula string `json:"pubchem_formula,omitempty"`
}

// ResolverConfig tunes the resolver.
type ResolverConfig struct {
	CacheTTL         time.Duration
	LookupTimeout    time.Duration
	BatchConcurrency int
}

// DefaultResolverConfig returns the production defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		CacheTTL:         24 * time.Hour,
		LookupTimeout:    5 * time.Second,
		BatchConcurrency: 4,
	}
}

// NameResolver maps chemical names to formulas spelled the way the
// thermodynamic table spells them. Local sources are tried before the cache
// and PubChem.
type NameResolver struct {
	thermo     *thermo.Table
	rearranger *stoich.Rearranger
	dict       Dictionary
	cache      redis.Cache
	pubchem    pubchem.Lookup
	config     ResolverConfig
	logger     logging.Logger
	observe    func(source string, err error)
}

// ResolverOption configures optional NameResolver dependencies.
type ResolverOption func(*NameResolver)

// WithDictionary adds a name dictionary consulted after the table.
func WithDictionary(d Dictionary) ResolverOption {
	return func(r *NameResolver) { r.dict = d }
}

// WithCache enables caching of PubChem answers, including misses.
func WithCache(c redis.Cache) ResolverOption {
	return func(r *NameResolver) { r.cache = c }
}

// WithPubChem enables remote lookup.
func WithPubChem(p pubchem.Lookup) ResolverOption {
	return func(r *NameResolver) { r.pubchem = p }
}

// WithResolverConfig overrides the defaults.
func WithResolverConfig(cfg ResolverConfig) ResolverOption {
	return func(r *NameResolver) {
		def := DefaultResolverConfig()
		if cfg.CacheTTL <= 0 {
			cfg.CacheTTL = def.CacheTTL
		}
		if cfg.LookupTimeout <= 0 {
			cfg.LookupTimeout = def.LookupTimeout
		}
		if cfg.BatchConcurrency <= 0 {
			cfg.BatchConcurrency = def.BatchConcurrency
		}
		r.config = cfg
	}
}

// WithResolutionObserver registers a callback run after every Resolve.
func WithResolutionObserver(fn func(source string, err error)) ResolverOption {
	return func(r *NameResolver) { r.observe = fn }
}

// NewNameResolver builds a resolver over t and f.
func NewNameResolver(t *thermo.Table, f *stoich.Filter, logger logging.Logger, opts ...ResolverOption) *NameResolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &NameResolver{
		thermo:     t,
		rearranger: stoich.NewRearranger(t, f),
		config:     DefaultResolverConfig(),
		logger:     logger.Named("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps one name to a formula. It tries, in order: the name as a table
// formula, the table's names and abbreviations, the dictionary, a local
// rearrangement when the name parses as a formula, and finally the cache
// backed by PubChem.
func (r *NameResolver) Resolve(ctx context.Context, name string) (*Resolution, error) {
	res, err := r.resolve(ctx, strings.TrimSpace(name))
	if r.observe != nil {
		source := "none"
		if res != nil {
			source = res.Source
		}
		r.observe(source, err)
	}
	return res, err
}

func (r *NameResolver) resolve(ctx context.Context, name string) (*Resolution, error) {
	if name == "" {
		return nil, errors.InvalidParam("chemical name is empty")
	}
	if r.thermo.ContainsFormula(name) || r.thermo.ContainsBase(name) {
		return &Resolution{Name: name, Formula: name, Source: SourceFormula}, nil
	}
	if row, ok := r.thermo.FindByName(name); ok {
		return &Resolution{Name: name, Formula: baseFormula(row.Formula), Source: SourceDictionary}, nil
	}
	if r.dict != nil {
		if e, ok := r.dict.Lookup(name); ok && e.Formula != "" {
			return &Resolution{Name: name, Formula: e.Formula, Source: SourceDictionary}, nil
		}
	}
	if looksLikeMolecularFormula(name) || isSymbolLike(name) {
		if f, err := r.rearranger.Rearrange(name); err == nil {
			return &Resolution{Name: name, Formula: f, Source: SourceRearranged}, nil
		}
	}
	if r.pubchem == nil {
		return nil, ErrNameUnresolved.WithDetail(name)
	}
	return r.remote(ctx, name)
}

func (r *NameResolver) remote(ctx context.Context, name string) (*Resolution, error) {
	loaded := false
	loader := func(ctx context.Context) (interface{}, error) {
		loaded = true
		res, err := r.lookupPubChem(ctx, name)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, nil
		}
		return res, nil
	}

	if r.cache == nil {
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, ErrNameUnresolved.WithDetail(name)
		}
		return v.(*Resolution), nil
	}

	var res Resolution
	err := r.cache.GetOrLoad(ctx, cacheKey(name), &res, r.config.CacheTTL, loader)
	switch {
	case err == redis.ErrCachedNull:
		return nil, ErrNameUnresolved.WithDetail(name)
	case err != nil:
		if errors.IsCode(err, errors.CodeNameUnresolved) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeNameUnresolved, "chemical name could not be resolved").WithDetail(name)
	}
	res.Name = name
	if !loaded {
		res.Source = SourceCache
	}
	return &res, nil
}

// lookupPubChem returns nil, nil when PubChem does not know the name or its
// formula has no table spelling; both are cached as misses.
func (r *NameResolver) lookupPubChem(ctx context.Context, name string) (*Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.LookupTimeout)
	defer cancel()

	cmp, err := r.pubchem.LookupName(ctx, name)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CodeNameUnresolved, "pubchem lookup failed").WithDetail(name)
	}
	f, err := r.rearranger.Rearrange(cmp.MolecularFormula)
	if err != nil {
		r.logger.Info("PubChem formula has no table spelling",
			logging.String("name", name),
			logging.String("formula", cmp.MolecularFormula))
		return nil, nil
	}
	return &Resolution{Name: name, Formula: f, Source: SourcePubChem, PubChemFormula: cmp.MolecularFormula}, nil
}

// ResolveBatch resolves names concurrently and returns results in input
// order. When several names fail, the error of the earliest one is returned.
func (r *NameResolver) ResolveBatch(ctx context.Context, names []string) ([]*Resolution, error) {
	results := make([]*Resolution, len(names))
	errs := make([]error, len(names))
	sem := semaphore.NewWeighted(int64(r.config.BatchConcurrency))
	done := make(chan struct{}, len(names))

	started := 0
	for i, name := range names {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}
		started++
		go func(i int, name string) {
			defer func() {
				sem.Release(1)
				done <- struct{}{}
			}()
			results[i], errs[i] = r.Resolve(ctx, name)
		}(i, name)
	}
	for k := 0; k < started; k++ {
		<-done
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Formulas returns the distinct formulas of rs in order.
func Formulas(rs []*Resolution) []string {
	seen := make(map[string]struct{}, len(rs))
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		if _, ok := seen[r.Formula]; ok {
			continue
		}
		seen[r.Formula] = struct{}{}
		out = append(out, r.Formula)
	}
	return out
}

func cacheKey(name string) string {
	return "formula:" + normaliseKey(name)
}
