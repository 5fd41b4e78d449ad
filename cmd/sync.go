package cmd

import (
	"github.com/jjenkins/okbills/internal/service"
	"github.com/jjenkins/okbills/internal/store"
	"github.com/spf13/cobra"
)

var syncMigrate bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync legislators and bills from the OpenStates API",
	Long: `Sync downloads Oklahoma legislators and bills from the OpenStates v3 API.

Legislators are synced first so that bill sponsors can be linked to them.
Each bill's stage is inferred from its actions; when a previously stored
bill changes stage a history row is recorded. Each bill is written in its
own transaction, and the first failure stops the run.

Examples:
  # Run a full sync
  okbills sync

  # Sync a single session, creating tables first
  okbills sync --session 2025 --migrate

  # Limit the number of bill pages fetched
  okbills sync --bill-page-cap 5 --legislator-page-cap 2`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("session", "", "Legislative session to sync (env OPENSTATES_SESSION, default all)")
	syncCmd.Flags().String("jurisdiction", "", "OpenStates jurisdiction (env OPENSTATES_JURISDICTION, default ok)")
	syncCmd.Flags().Int("bill-page-cap", 0, "Maximum bill pages to fetch (env SYNC_BILL_PAGE_CAP, default 50)")
	syncCmd.Flags().Int("legislator-page-cap", 0, "Maximum legislator pages to fetch (env SYNC_LEGISLATOR_PAGE_CAP, default 10)")
	syncCmd.Flags().Duration("page-delay", 0, "Delay between page requests (env SYNC_PAGE_DELAY, default 1s)")
	syncCmd.Flags().BoolVar(&syncMigrate, "migrate", false, "Apply the schema before syncing")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.ValidateSync(); err != nil {
		return err
	}

	// Set up context with cancellation on interrupt
	ctx, cancel := signalContext(log)
	defer cancel()

	// Connect to database
	db, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	// Apply schema if requested
	if syncMigrate {
		if err := store.Migrate(ctx, db); err != nil {
			return err
		}
		log.Infow("schema applied")
	}

	// Create dependencies
	client := service.NewOpenStatesClient(service.ClientOptions{
		BaseURL:            cfg.BaseURL,
		APIKey:             cfg.APIKey,
		Jurisdiction:       cfg.Jurisdiction,
		Session:            cfg.Session,
		Timeout:            cfg.RequestTimeout,
		PageDelay:          cfg.PageDelay,
		BillsPerPage:       cfg.BillsPerPage,
		LegislatorsPerPage: cfg.LegislatorsPerPage,
	})
	syncer := service.NewSyncer(
		client,
		store.NewLegislatorStore(db),
		store.NewBillStore(db),
		store.NewSyncMetadataStore(db),
		service.SyncOptions{
			LegislatorPageCap: cfg.LegislatorPageCap,
			BillPageCap:       cfg.BillPageCap,
		},
		log,
	)

	// Run sync
	log.Infow("starting sync", "jurisdiction", cfg.Jurisdiction, "session", cfg.Session)
	stats, err := syncer.Run(ctx)
	syncer.PrintSummary(stats)
	if err != nil {
		if ctx.Err() != nil {
			log.Warnw("sync cancelled")
		}
		return err
	}

	// Report database totals
	summary, err := service.NewStatsService(db, nil, 0).Summary(ctx)
	if err != nil {
		log.Warnw("failed to calculate totals", "error", err)
		return nil
	}
	log.Infow("database totals",
		"bills", summary.TotalBills,
		"legislators", summary.TotalLegislators,
		"stage_changes", summary.HistoryRows,
		"unlinked_sponsors", summary.UnlinkedSponsors,
	)
	return nil
}
