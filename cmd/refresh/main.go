package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"galhub/internal/config"
	"galhub/internal/games"
	"galhub/internal/logging"
	"galhub/internal/metadata"
	"galhub/internal/settings"
	"galhub/internal/source"
	"galhub/pkg/database"
	"galhub/pkg/models"
)

// refresh re-resolves every stored game from its source ids and patches rows
// whose upstream data changed.
func main() {
	var (
		dryRun  bool
		limit   int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "re-fetch source metadata for every stored game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(dryRun, limit, timeout)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing")
	cmd.Flags().IntVar(&limit, "limit", 0, "refresh at most N games (0 = all)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall deadline")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("refresh failed: %v", err)
	}
}

func run(dryRun bool, limit int, timeout time.Duration) error {
	v := config.NewViper()
	// the refresh job never signs tokens, so don't require a jwt secret
	v.SetDefault("jwt.secret", "unused")
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db := database.MustOpen(database.Config{Path: cfg.DatabasePath})
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}

	settingsRepo := settings.NewRepo(db)
	tokens := source.NewTokenCache(settingsRepo.BgmTokenLookup(), cfg.TokenCacheTTL)
	resolver, err := metadata.NewResolver(metadata.ResolverConfig{
		Bangumi: source.NewBangumi(tokens),
		VNDB:    source.NewVNDB(),
		Ymgal:   source.NewYmgal(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	repo := games.NewRepo(db)
	refs, err := repo.AllSourceIDs(ctx)
	if err != nil {
		return err
	}

	var updated, skipped, failed int
	for i, ref := range refs {
		if limit > 0 && i >= limit {
			break
		}
		ids := ref.IDs()
		if ids.Empty() {
			skipped++
			continue
		}

		stored, err := repo.Get(ctx, ref.ID)
		if err != nil || stored == nil {
			failed++
			continue
		}

		fresh, err := resolver.Resolve(ctx, metadata.ResolveRequest{IDs: ids, Custom: stored.Custom})
		if err != nil {
			logger.Warn("resolve failed", zap.Int64("game_id", ref.ID), zap.Error(err))
			failed++
			continue
		}

		patch := sourcePatch(&fresh, stored)
		if patch.IsZero() {
			skipped++
			continue
		}

		if dryRun {
			logger.Info("would update", zap.Int64("game_id", ref.ID), zap.String("name", stored.Name))
			updated++
			continue
		}
		if _, err := repo.Update(ctx, ref.ID, patch); err != nil {
			logger.Warn("update failed", zap.Int64("game_id", ref.ID), zap.Error(err))
			failed++
			continue
		}
		logger.Info("updated", zap.Int64("game_id", ref.ID), zap.String("name", stored.Name))
		updated++
	}

	logger.Info("refresh finished",
		zap.Int("updated", updated),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
	return nil
}

// sourcePatch diffs the re-fetched sub-records and, when any changed, the
// merged display fields along with them. Custom overrides were re-applied
// during the merge, so the display diff respects them.
func sourcePatch(fresh *models.Game, stored *models.Game) models.GamePatch {
	patch := models.GamePatch{
		BgmData:   metadata.DiffSourceData(fresh.BgmData, stored.BgmData),
		VndbData:  metadata.DiffSourceData(fresh.VndbData, stored.VndbData),
		YmgalData: metadata.DiffSourceData(fresh.YmgalData, stored.YmgalData),
	}
	if patch.IsZero() {
		return patch
	}

	display := metadata.DiffGame(metadata.GameDraft{
		BgmID:        stored.BgmID,
		VndbID:       stored.VndbID,
		YmgalID:      stored.YmgalID,
		Name:         fresh.Name,
		NameCN:       fresh.NameCN,
		Image:        fresh.Image,
		Summary:      fresh.Summary,
		Developer:    fresh.Developer,
		Date:         fresh.Date,
		Tags:         fresh.Tags,
		Aliases:      fresh.Aliases,
		AllTitles:    fresh.AllTitles,
		Score:        fresh.Score,
		Rank:         fresh.Rank,
		AverageHours: fresh.AverageHours,
		NSFW:         fresh.NSFW,
	}, *stored)

	display.BgmData = patch.BgmData
	display.VndbData = patch.VndbData
	display.YmgalData = patch.YmgalData
	return display
}
