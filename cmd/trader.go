package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Quaser41/Autonomous-Trader/dataprovider"
	cmc "github.com/Quaser41/Autonomous-Trader/dataprovider/coinmarketcap"
	dx "github.com/Quaser41/Autonomous-Trader/dataprovider/dextools"
	rd "github.com/Quaser41/Autonomous-Trader/dataprovider/reddit"
	"github.com/Quaser41/Autonomous-Trader/pkg/app"
	"github.com/Quaser41/Autonomous-Trader/pkg/ledger"
	"github.com/Quaser41/Autonomous-Trader/pkg/reconcile"
	"github.com/Quaser41/Autonomous-Trader/pkg/universe"
	"github.com/Quaser41/Autonomous-Trader/pkg/wallet"
	"github.com/Quaser41/Autonomous-Trader/utilities"
)

var (
	cfgFile string
	cfg     utilities.AppConfig
	logger  *utilities.Logger
)

// rootCmd represents the base command for the trader CLI.
var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Autonomous paper-trading position manager",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config
		viper.SetConfigFile(cfgFile)
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}

		// Initialize logger
		level, err := utilities.ParseLogLevel(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		logger = utilities.NewLogger(level)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(cmd.Context(), &cfg, logger)
	},
}

// reconcileCmd runs one equity audit against the persisted state and exits
// non-zero on a mismatch, so it can back a cron alert.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run a single equity reconciliation and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := dataprovider.NewSQLiteStore(cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to open state store: %w", err)
		}
		defer store.Close()

		walletStore, err := wallet.Load(cfg.Wallet, cfg.Risk, logger)
		if err != nil {
			return fmt.Errorf("failed to load wallet: %w", err)
		}

		book := ledger.New(cfg.TrailingStop, cfg.Exits, walletStore, store, logger)
		if err := book.Restore(); err != nil {
			return err
		}

		r := reconcile.New(walletStore, book, nil, logger, cfg.Risk.DryRunWallet, cfg.Reconcile.Tolerance)
		res := r.Reconcile()
		if !res.Matched {
			return fmt.Errorf("equity mismatch: balance %.2f, expected %.2f", res.Balance, res.Expected)
		}
		fmt.Printf("Balance %.2f matches expected equity.\n", res.Balance)
		return nil
	},
}

// universeCmd refreshes the tradeable symbol universe once and prints it.
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Fetch the trending symbol universe once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := []dataprovider.SymbolSource{
			cmc.NewClient(cfg.Universe, logger),
			dx.NewClient(cfg.Universe, logger),
			rd.NewClient(cfg.Universe, logger),
		}
		refresher := universe.NewRefresher(cfg.Universe, sources, logger)
		snap, err := refresher.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		for _, sym := range snap.Symbols() {
			fmt.Println(sym)
		}
		return nil
	},
}

// Execute runs the root command under the given context, so an interrupt in
// main cancels the whole run.
func Execute(ctx context.Context) {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.json", "config file (default is config/config.json)")
	rootCmd.AddCommand(reconcileCmd, universeCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
