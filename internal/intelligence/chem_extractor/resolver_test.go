package chem_extractor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/internal/infrastructure/database/redis"
	"github.com/turtacn/alchemist/internal/infrastructure/pubchem"
	"github.com/turtacn/alchemist/internal/testutil"
	"github.com/turtacn/alchemist/pkg/errors"
)

type stubPubChem struct {
	mu       sync.Mutex
	formulas map[string]string
	err      error
	calls    int
}

func (s *stubPubChem) LookupName(_ context.Context, name string) (*pubchem.Compound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	f, ok := s.formulas[name]
	if !ok {
		return nil, pubchem.ErrCompoundNotFound.WithDetail(name)
	}
	return &pubchem.Compound{CID: 1, MolecularFormula: f}, nil
}

func (s *stubPubChem) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newResolver(t *testing.T, opts ...ResolverOption) *NameResolver {
	t.Helper()
	th, _, f := testutil.Tables(t)
	return NewNameResolver(th, f, nil, opts...)
}

func newCache(t *testing.T) redis.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&redis.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewRedisCache(client, nil, redis.WithJitter(0))
}

func TestResolve_LocalSources(t *testing.T) {
	th, _, _ := testutil.Tables(t)
	d := NewTableDictionary(th)
	r := newResolver(t, WithDictionary(d))

	tests := []struct {
		name, formula, source string
	}{
		{"CH4", "CH4", SourceFormula},
		{"H2O(l)", "H2O(l)", SourceFormula},
		{"water", "H2O", SourceDictionary},
		{"EtOH", "C2H5OH", SourceDictionary},
		{" Hydrogen Peroxide ", "H2O2", SourceDictionary},
		{"rust", "Fe2O3", SourceDictionary},
		{"C2H6O", "C2H5OH", SourceRearranged},
		{"ClNa", "NaCl", SourceRearranged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(context.Background(), tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.formula, res.Formula)
			assert.Equal(t, tt.source, res.Source)
		})
	}
}

func TestResolve_UnresolvedWithoutPubChem(t *testing.T) {
	r := newResolver(t)

	_, err := r.Resolve(context.Background(), "unobtainium")
	assert.True(t, errors.IsCode(err, errors.CodeNameUnresolved))

	_, err = r.Resolve(context.Background(), "")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestResolve_PubChem(t *testing.T) {
	pc := &stubPubChem{formulas: map[string]string{"ethyl alcohol": "C2H6O", "benzene": "C6H6"}}
	var observed []string
	r := newResolver(t, WithPubChem(pc), WithResolutionObserver(func(source string, err error) {
		observed = append(observed, source)
	}))

	res, err := r.Resolve(context.Background(), "ethyl alcohol")
	require.NoError(t, err)
	assert.Equal(t, "C2H5OH", res.Formula)
	assert.Equal(t, SourcePubChem, res.Source)
	assert.Equal(t, "C2H6O", res.PubChemFormula)

	_, err = r.Resolve(context.Background(), "benzene")
	assert.True(t, errors.IsCode(err, errors.CodeNameUnresolved))

	_, err = r.Resolve(context.Background(), "nothing")
	assert.True(t, errors.IsCode(err, errors.CodeNameUnresolved))

	assert.Equal(t, []string{SourcePubChem, "none", "none"}, observed)
}

func TestResolve_CachesHitsAndMisses(t *testing.T) {
	pc := &stubPubChem{formulas: map[string]string{"ethyl alcohol": "C2H6O"}}
	r := newResolver(t, WithPubChem(pc), WithCache(newCache(t)), WithResolverConfig(ResolverConfig{CacheTTL: time.Hour}))
	ctx := context.Background()

	first, err := r.Resolve(ctx, "ethyl alcohol")
	require.NoError(t, err)
	assert.Equal(t, SourcePubChem, first.Source)

	second, err := r.Resolve(ctx, "Ethyl  Alcohol")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, "C2H5OH", second.Formula)
	assert.Equal(t, "Ethyl  Alcohol", second.Name)
	assert.Equal(t, 1, pc.callCount())

	_, err = r.Resolve(ctx, "nothing")
	assert.True(t, errors.IsCode(err, errors.CodeNameUnresolved))
	_, err = r.Resolve(ctx, "nothing")
	assert.True(t, errors.IsCode(err, errors.CodeNameUnresolved))
	assert.Equal(t, 2, pc.callCount())
}

func TestResolve_PubChemFailureIsNotCached(t *testing.T) {
	pc := &stubPubChem{err: errors.New(errors.CodeExternalService, "pubchem status 503")}
	r := newResolver(t, WithPubChem(pc), WithCache(newCache(t)))
	ctx := context.Background()

	_, err := r.Resolve(ctx, "caffeine")
	assert.True(t, errors.IsCode(err, errors.CodeNameUnresolved))
	assert.True(t, errors.IsCode(err, errors.CodeExternalService))

	_, err = r.Resolve(ctx, "caffeine")
	assert.Error(t, err)
	assert.Equal(t, 2, pc.callCount())
}

func TestResolveBatch_PreservesOrder(t *testing.T) {
	r := newResolver(t, WithResolverConfig(ResolverConfig{BatchConcurrency: 2}))

	res, err := r.ResolveBatch(context.Background(), []string{"water", "CH4", "alumina", "oxygen", "H2O"})
	require.NoError(t, err)
	require.Len(t, res, 5)
	assert.Equal(t, "H2O", res[0].Formula)
	assert.Equal(t, "CH4", res[1].Formula)
	assert.Equal(t, "Al2O3", res[2].Formula)
	assert.Equal(t, "O2", res[3].Formula)
	assert.Equal(t, []string{"H2O", "CH4", "Al2O3", "O2"}, Formulas(res))
}

func TestResolveBatch_EarliestErrorWins(t *testing.T) {
	r := newResolver(t)

	_, err := r.ResolveBatch(context.Background(), []string{"water", "first-bad", "second-bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first-bad")
}
