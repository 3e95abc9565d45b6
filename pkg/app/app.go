package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Quaser41/Autonomous-Trader/dataprovider"
	cmc "github.com/Quaser41/Autonomous-Trader/dataprovider/coinmarketcap"
	dx "github.com/Quaser41/Autonomous-Trader/dataprovider/dextools"
	rd "github.com/Quaser41/Autonomous-Trader/dataprovider/reddit"
	"github.com/Quaser41/Autonomous-Trader/internal/metrics"
	"github.com/Quaser41/Autonomous-Trader/notification/discord"
	"github.com/Quaser41/Autonomous-Trader/pkg/broker"
	"github.com/Quaser41/Autonomous-Trader/pkg/ledger"
	"github.com/Quaser41/Autonomous-Trader/pkg/reconcile"
	"github.com/Quaser41/Autonomous-Trader/pkg/universe"
	"github.com/Quaser41/Autonomous-Trader/pkg/wallet"
	"github.com/Quaser41/Autonomous-Trader/utilities"
	"github.com/Quaser41/Autonomous-Trader/web"
)

// TradingState holds everything the running app wires together. It implements
// web.AppController so the status server can read live state.
type TradingState struct {
	config    *utilities.AppConfig
	logger    *utilities.Logger
	discord   *discord.Client
	wallet    *wallet.Store
	ledger    *ledger.Ledger
	paper     *broker.Paper
	refresher *universe.Refresher
	startedAt time.Time
}

// GetStatusData implements web.AppController.
func (s *TradingState) GetStatusData() web.StatusData {
	positions := make(map[string]utilities.Position)
	for _, pos := range s.ledger.Positions() {
		positions[pos.Symbol] = pos
	}
	return web.StatusData{
		Balance:           s.wallet.Balance(),
		OpenPositions:     positions,
		TotalUnrealizedPL: s.ledger.TotalUnrealizedPnL(),
		TotalRealizedPL:   s.ledger.TotalRealizedPnL(),
		Uptime:            time.Since(s.startedAt).Round(time.Second).String(),
		GeneratedAt:       time.Now().UTC(),
	}
}

// GetPnLData implements web.AppController.
func (s *TradingState) GetPnLData() web.PnLData {
	return web.PnLData{
		PerSymbol: s.ledger.RealizedPnL(),
		Total:     s.ledger.TotalRealizedPnL(),
	}
}

// GetUniverseData implements web.AppController.
func (s *TradingState) GetUniverseData() web.UniverseData {
	snap := s.refresher.Snapshot()
	return web.UniverseData{
		Symbols:   snap.Symbols(),
		Count:     snap.Len(),
		FetchedAt: snap.FetchedAt,
	}
}

// GetConfig implements web.AppController.
func (s *TradingState) GetConfig() utilities.AppConfig { return *s.config }

// Logger implements web.AppController.
func (s *TradingState) Logger() *utilities.Logger { return s.logger }

// Run wires the whole trader together and drives the main event loop until
// the context is cancelled or the feed is exhausted.
func Run(ctx context.Context, cfg *utilities.AppConfig, logger *utilities.Logger) error {
	if cfg.Risk.DryRunWallet <= 0 {
		return errors.New("pre-flight check failed: risk.dry_run_wallet must be positive")
	}
	if cfg.TrailingStop.Enable && cfg.TrailingStop.ActivateProfitPct <= 0 {
		return errors.New("pre-flight check failed: trailing_stop.activate_profit_pct must be positive when the stop is enabled")
	}
	if cfg.Feed.DataDir == "" {
		return errors.New("pre-flight check failed: feed.data_dir is not configured")
	}

	discordClient := discord.NewClient(cfg.Discord.WebhookURL, logger)
	discordClient.SendMessage(fmt.Sprintf("✅ **Autonomous Trader v%s Starting Up**", cfg.Version))
	defer discordClient.SendMessage("🛑 **Autonomous Trader Shutting Down**")

	logger.LogInfo("AppRun: Starting pre-flight checks...")

	store, err := dataprovider.NewSQLiteStore(cfg.DB)
	if err != nil {
		return fmt.Errorf("pre-flight check failed: sqlite store init failed: %w", err)
	}
	defer store.Close()

	walletStore, err := wallet.Load(cfg.Wallet, cfg.Risk, logger)
	if err != nil {
		// A corrupt balance file is fatal; it is never silently reset.
		return fmt.Errorf("pre-flight check failed: wallet load failed: %w", err)
	}
	logger.LogInfo("Pre-Flight: Wallet loaded, balance %.2f.", walletStore.Balance())
	metrics.Observer.SetWalletBalance(walletStore.Balance())

	book := ledger.New(cfg.TrailingStop, cfg.Exits, walletStore, store, logger)
	if err := book.Restore(); err != nil {
		return fmt.Errorf("pre-flight check failed: %w", err)
	}

	sources := []dataprovider.SymbolSource{
		cmc.NewClient(cfg.Universe, logger),
		dx.NewClient(cfg.Universe, logger),
		rd.NewClient(cfg.Universe, logger),
	}
	refresher := universe.NewRefresher(cfg.Universe, sources, logger)
	refresher.Start(ctx)

	paper, err := broker.NewPaper(cfg.Risk, walletStore, book, refresher, store, logger)
	if err != nil {
		return fmt.Errorf("pre-flight check failed: %w", err)
	}

	tolerance := cfg.Reconcile.Tolerance
	if tolerance <= 0 {
		tolerance = reconcile.DefaultTolerance
	}
	reconciler := reconcile.New(walletStore, book, discordClient, logger, cfg.Risk.DryRunWallet, tolerance)
	reconcileInterval := time.Duration(cfg.Reconcile.IntervalHours) * time.Hour
	if reconcileInterval <= 0 {
		reconcileInterval = time.Hour
	}
	reconciler.Start(ctx, reconcileInterval)

	feed := dataprovider.NewCSVFeed(
		cfg.Feed.DataDir,
		cfg.Feed.ATRPeriod,
		time.Duration(cfg.Feed.TickIntervalMs)*time.Millisecond,
		logger,
	)
	if err := feed.Start(ctx); err != nil {
		return fmt.Errorf("pre-flight check failed: %w", err)
	}

	state := &TradingState{
		config:    cfg,
		logger:    logger,
		discord:   discordClient,
		wallet:    walletStore,
		ledger:    book,
		paper:     paper,
		refresher: refresher,
		startedAt: time.Now(),
	}
	if cfg.Web.Enabled {
		web.StartWebServer(ctx, cfg.Web.ListenAddr, state)
	}

	heartbeatInterval := time.Duration(cfg.Logging.HeartbeatIntervalSec) * time.Second
	if heartbeatInterval <= 0 {
		heartbeatInterval = 60 * time.Second
	}
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	logger.LogInfo("AppRun: Pre-flight checks passed. Entering main loop.")
	return state.loop(ctx, feed.Updates(), heartbeat.C)
}

// loop is the single goroutine through which every price update and fill
// flows, so ledger mutations for a symbol happen in arrival order.
func (s *TradingState) loop(ctx context.Context, updates <-chan broker.PriceUpdate, heartbeat <-chan time.Time) error {
	fills := s.paper.Fills()

	for {
		select {
		case <-ctx.Done():
			return nil

		case update, ok := <-updates:
			if !ok {
				s.logger.LogInfo("AppRun: Price feed exhausted, shutting down.")
				s.drainFills(fills)
				return nil
			}
			s.handlePriceUpdate(ctx, update)

		case fill := <-fills:
			s.handleFill(fill)

		case <-heartbeat:
			s.logHeartbeat()
		}
	}
}

// handlePriceUpdate routes one tick: entry attempt for flat symbols, trailing
// stop advance for held ones. Per-tick errors are logged and skipped; they
// never take the loop down.
func (s *TradingState) handlePriceUpdate(ctx context.Context, update broker.PriceUpdate) {
	metrics.Observer.IncrementTick(update.Symbol)

	if !s.ledger.Has(update.Symbol) {
		if _, err := s.paper.OpenPosition(ctx, update.Symbol, update.Price); err != nil {
			s.logger.LogError("AppRun [%s]: entry attempt failed: %v", update.Symbol, err)
		}
		return
	}

	intent, err := s.ledger.OnPriceUpdate(update.Symbol, update.Price, update.ATRPct)
	if err != nil {
		s.logger.LogError("AppRun [%s]: tick skipped: %v", update.Symbol, err)
		return
	}
	if intent == nil {
		return
	}

	metrics.Observer.IncrementStopTrigger(intent.Symbol, intent.Reason)
	if err := s.paper.SubmitClose(ctx, *intent); err != nil {
		s.logger.LogError("AppRun [%s]: close submit failed, will retry next tick: %v", intent.Symbol, err)
	}
}

// handleFill applies one fill to the ledger and announces it. The broker is
// told once the fill has been consumed so it can release the symbol's
// in-flight entry slot; a rejected buy releases it too, a rejected sell keeps
// its dedupe entry so the intent stays suppressed.
func (s *TradingState) handleFill(fill broker.Fill) {
	err := s.ledger.OnFill(fill)
	if err == nil || fill.Side == broker.SideBuy {
		s.paper.ConfirmFill(fill)
	}
	if err != nil {
		s.logger.LogError("AppRun [%s]: fill rejected: %v", fill.Symbol, err)
		return
	}
	metrics.Observer.IncrementFill(fill.Symbol, fill.Side)
	metrics.Observer.SetWalletBalance(s.wallet.Balance())

	var details string
	if fill.Side == broker.SideSell {
		details = fmt.Sprintf("Realized PnL to date: `%.2f`", s.ledger.TotalRealizedPnL())
	}
	if err := s.discord.NotifyFill(fill, details); err != nil {
		s.logger.LogWarn("AppRun [%s]: fill notification failed: %v", fill.Symbol, err)
	}
}

// drainFills applies fills still queued when the feed ends, so a stop that
// triggered on the final tick is not lost.
func (s *TradingState) drainFills(fills <-chan broker.Fill) {
	for {
		select {
		case fill := <-fills:
			s.handleFill(fill)
		default:
			return
		}
	}
}

func (s *TradingState) logHeartbeat() {
	s.logger.LogInfo("Heartbeat: cash %.2f | open %d | unrealized %.2f | realized %.2f | universe %d",
		s.wallet.Balance(),
		s.ledger.OpenCount(),
		s.ledger.TotalUnrealizedPnL(),
		s.ledger.TotalRealizedPnL(),
		s.refresher.Snapshot().Len(),
	)
	metrics.Observer.SetUniverseSize(s.refresher.Snapshot().Len())
}
