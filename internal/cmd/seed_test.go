package cmd

import (
	"context"
	"testing"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/listing"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog keeps the first id of a slug like an upsert on conflict does
type fakeCatalog struct {
	brands map[string]*model.Brand
	models map[string]*model.WatchModel
}

func (f *fakeCatalog) FindBrand(_ context.Context, ref listing.Ref) (*model.Brand, error) {
	b, ok := f.brands[ref.Slug]
	if !ok {
		return nil, apperr.NotFound("brand not found")
	}
	return b, nil
}

func (f *fakeCatalog) UpsertBrand(_ context.Context, b *model.Brand) error {
	if existing, ok := f.brands[b.Slug]; ok {
		existing.Label, existing.Popular = b.Label, b.Popular
		return nil
	}
	cp := *b
	cp.ID = uuid.New()
	f.brands[b.Slug] = &cp
	return nil
}

func (f *fakeCatalog) UpsertModel(_ context.Context, m *model.WatchModel) error {
	key := m.BrandID.String() + "/" + m.Slug
	if existing, ok := f.models[key]; ok {
		existing.Label, existing.Popular = m.Label, m.Popular
		return nil
	}
	cp := *m
	f.models[key] = &cp
	return nil
}

func TestEmbeddedCatalogParses(t *testing.T) {
	c, err := parseCatalog(catalogYAML)
	require.NoError(t, err)
	require.NotEmpty(t, c.Brands)

	var omega *brandSeed
	for i := range c.Brands {
		if c.Brands[i].Slug == "omega" {
			omega = &c.Brands[i]
		}
	}
	require.NotNil(t, omega)
	assert.True(t, omega.Popular)
	assert.Equal(t, "seamaster", omega.Models[0].Slug)
}

func TestParseCatalogRejects(t *testing.T) {
	cases := map[string]string{
		"bad slug":        "brands:\n  - {slug: Omega SA, label: Omega}\n",
		"duplicate brand": "brands:\n  - {slug: omega, label: Omega}\n  - {slug: omega, label: Omega}\n",
		"missing label":   "brands:\n  - {slug: omega}\n",
		"duplicate model": "brands:\n  - slug: omega\n    label: Omega\n    models:\n      - {slug: seamaster, label: Seamaster}\n      - {slug: seamaster, label: Seamaster}\n",
		"not yaml":        "brands: [",
	}
	for name, doc := range cases {
		_, err := parseCatalog([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestSeedCatalogIsIdempotent(t *testing.T) {
	c, err := parseCatalog(catalogYAML)
	require.NoError(t, err)

	repo := &fakeCatalog{brands: map[string]*model.Brand{}, models: map[string]*model.WatchModel{}}
	brands, models, err := seedCatalog(context.Background(), repo, c)
	require.NoError(t, err)
	assert.Equal(t, len(c.Brands), brands)
	assert.Len(t, repo.models, models)

	omegaID := repo.brands["omega"].ID
	_, _, err = seedCatalog(context.Background(), repo, c)
	require.NoError(t, err)

	assert.Len(t, repo.brands, brands)
	assert.Len(t, repo.models, models)
	assert.Equal(t, omegaID, repo.brands["omega"].ID)
	assert.Contains(t, repo.models, omegaID.String()+"/seamaster")
}
