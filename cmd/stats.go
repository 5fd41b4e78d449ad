package cmd

import (
	"github.com/jjenkins/okbills/internal/cache"
	"github.com/jjenkins/okbills/internal/config"
	"github.com/jjenkins/okbills/internal/render"
	"github.com/jjenkins/okbills/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	statsRecent  int
	statsNoCache bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show bill totals and the stage distribution",
	Long: `Stats prints database totals and the number of bills in each stage.

Results are cached for STATS_CACHE_TTL. When REDIS_URL is set the cache is
shared between runs; otherwise it only lives for this process.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().IntVar(&statsRecent, "recent", 10, "Number of recent stage changes to list (0 to hide)")
	statsCmd.Flags().BoolVar(&statsNoCache, "no-cache", false, "Always recalculate")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	var c *cache.Cache
	if !statsNoCache {
		c, err = newCache(cfg, log)
		if err != nil {
			return err
		}
		defer c.Close()
	}

	ctx := cmd.Context()
	stats := service.NewStatsService(db, c, cfg.StatsCacheTTL)

	summary, err := stats.CachedSummary(ctx)
	if err != nil {
		return err
	}
	render.Summary(cmd.OutOrStdout(), summary)

	if statsRecent > 0 {
		changes, err := stats.RecentChanges(ctx, statsRecent)
		if err != nil {
			return err
		}
		render.RecentChanges(cmd.OutOrStdout(), changes)
	}
	return nil
}

func newCache(cfg *config.Config, log *zap.SugaredLogger) (*cache.Cache, error) {
	if cfg.RedisURL == "" {
		return cache.New(cache.NewMemoryBackend(), log), nil
	}
	backend, err := cache.NewRedisBackend(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Debugw("using redis stats cache")
	return cache.New(backend, log), nil
}
