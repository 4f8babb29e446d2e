package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/decorchat/internal/profile"
	"github.com/hrygo/decorchat/plugin/ai"
	"github.com/hrygo/decorchat/server/runner/embedding"
	"github.com/hrygo/decorchat/server/service/catalog"
	"github.com/hrygo/decorchat/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the catalog with generated or fixture items and embed them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		count, _ := cmd.Flags().GetInt("count")
		file, _ := cmd.Flags().GetString("file")
		reset, _ := cmd.Flags().GetBool("reset")

		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}
		setupLogger(instanceProfile)

		if err := runSeed(cmd.Context(), instanceProfile, count, file, reset); err != nil {
			slog.Error("seeding failed", "error", err)
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().Int("count", 15, "number of items to generate with the language model")
	seedCmd.Flags().String("file", "", "YAML fixture file to load instead of generating items")
	seedCmd.Flags().Bool("reset", false, "delete every catalog item before seeding")
}

func runSeed(ctx context.Context, p *profile.Profile, count int, file string, reset bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openStore(ctx, p)
	if err != nil {
		return err
	}
	defer s.Close()

	aiConfig := ai.NewConfigFromProfile(p)
	if err := aiConfig.Validate(); err != nil {
		return errors.Wrap(err, "invalid AI configuration")
	}

	items, err := loadSeedItems(ctx, aiConfig, count, file)
	if err != nil {
		return err
	}

	result, err := catalog.NewSeeder(s).Seed(ctx, items, reset)
	if err != nil {
		return err
	}

	embeddingService, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return err
	}
	embedded := embedding.NewRunner(s, embeddingService).RunOnce(ctx)

	total, err := s.CountCatalogItems(ctx)
	if err != nil {
		return err
	}
	pending, err := s.ListCatalogItems(ctx, &store.FindCatalogItem{MissingEmbedding: true})
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d items (deleted %d, embedded %d). Catalog now holds %d items, %d without embedding.\n",
		result.Upserted, result.Deleted, embedded, total, len(pending))
	if len(pending) > 0 {
		return errors.Errorf("%d items could not be embedded; the server retries them in the background", len(pending))
	}
	return nil
}

func loadSeedItems(ctx context.Context, aiConfig *ai.Config, count int, file string) ([]*store.CatalogItem, error) {
	if file != "" {
		items, err := catalog.LoadFixtureFile(file)
		if err != nil {
			return nil, err
		}
		slog.Info("loaded catalog fixtures", "file", file, "count", len(items))
		return items, nil
	}

	// A batch of items needs far more output than a chat answer.
	llmConfig := aiConfig.LLM
	llmConfig.MaxTokens = 8192
	generator, err := ai.NewTextGenerator(&llmConfig)
	if err != nil {
		return nil, err
	}
	slog.Info("generating synthetic catalog items", "count", count)
	return catalog.NewGenerator(generator, nil).Generate(ctx, count)
}
