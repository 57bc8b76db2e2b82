package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/listing"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/repository"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/database"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var catalogYAML []byte

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the brand and model catalog",
	Long: `Upsert the bundled brand and model catalog. Existing rows are matched
by slug and have their label and popularity refreshed, so the command
can be run repeatedly.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type catalogSeed struct {
	Brands []brandSeed `yaml:"brands"`
}

type brandSeed struct {
	Slug    string      `yaml:"slug"`
	Label   string      `yaml:"label"`
	Popular bool        `yaml:"popular"`
	Models  []modelSeed `yaml:"models"`
}

type modelSeed struct {
	Slug    string `yaml:"slug"`
	Label   string `yaml:"label"`
	Popular bool   `yaml:"popular"`
}

// catalogWriter is the part of the catalog repository seeding needs
type catalogWriter interface {
	FindBrand(ctx context.Context, ref listing.Ref) (*model.Brand, error)
	UpsertBrand(ctx context.Context, b *model.Brand) error
	UpsertModel(ctx context.Context, m *model.WatchModel) error
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func parseCatalog(data []byte) (*catalogSeed, error) {
	var c catalogSeed
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	brands := map[string]bool{}
	for _, b := range c.Brands {
		if !slugPattern.MatchString(b.Slug) || b.Label == "" {
			return nil, fmt.Errorf("invalid brand %q", b.Slug)
		}
		if brands[b.Slug] {
			return nil, fmt.Errorf("duplicate brand %q", b.Slug)
		}
		brands[b.Slug] = true

		models := map[string]bool{}
		for _, m := range b.Models {
			if !slugPattern.MatchString(m.Slug) || m.Label == "" {
				return nil, fmt.Errorf("invalid model %q of brand %q", m.Slug, b.Slug)
			}
			if models[m.Slug] {
				return nil, fmt.Errorf("duplicate model %q of brand %q", m.Slug, b.Slug)
			}
			models[m.Slug] = true
		}
	}
	return &c, nil
}

// seedCatalog upserts every brand then its models. The brand is read back
// by slug because an upsert that hits an existing row keeps the old id.
func seedCatalog(ctx context.Context, repo catalogWriter, c *catalogSeed) (brands, models int, err error) {
	for _, b := range c.Brands {
		if err := repo.UpsertBrand(ctx, &model.Brand{Slug: b.Slug, Label: b.Label, Popular: b.Popular}); err != nil {
			return brands, models, fmt.Errorf("failed to upsert brand %s: %w", b.Slug, err)
		}
		stored, err := repo.FindBrand(ctx, listing.Ref{Kind: listing.RefBySlug, Slug: b.Slug})
		if err != nil {
			return brands, models, fmt.Errorf("failed to read back brand %s: %w", b.Slug, err)
		}
		brands++

		for _, m := range b.Models {
			wm := &model.WatchModel{BrandID: stored.ID, Slug: m.Slug, Label: m.Label, Popular: m.Popular}
			if err := repo.UpsertModel(ctx, wm); err != nil {
				return brands, models, fmt.Errorf("failed to upsert model %s/%s: %w", b.Slug, m.Slug, err)
			}
			models++
		}
	}
	return brands, models, nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	catalog, err := parseCatalog(catalogYAML)
	if err != nil {
		return err
	}

	db, err := database.InitDB(cmd.Context(), &cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	brands, models, err := seedCatalog(cmd.Context(), repository.NewCatalogRepository(db), catalog)
	if err != nil {
		return err
	}
	logger.GetLogger().Info("Catalog seeded", zap.Int("brands", brands), zap.Int("models", models))
	return nil
}
