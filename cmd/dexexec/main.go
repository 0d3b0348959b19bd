// Command dexexec boots the supervisor with the bot roster from config.yaml,
// selects the configured Market Access Port, and serves metrics until
// interrupted. Grounded on the teacher's cmd/dexexec, which wired a single
// Jupiter swap by hand; generalized here into the full fleet-boot sequence
// spec.md §4.1's supervisor.start and this module's Supervisor expect.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/bot"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/config"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/events"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/marketaccess"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/metrics"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/paper"
	"github.com/MLOpsArtisan/TradePulse-ver1.2/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/testdata/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log := util.NewLogger(cfg.App.LogLevel, cfg.App.Env)
	log.Info().Str("config", *configPath).Msg("starting")

	metricsAddr := cfg.App.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	metricsSrv := metrics.Serve(metricsAddr)
	defer metricsSrv.Close()

	port, err := buildPort(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not build market access port")
		return
	}

	bus := events.NewBus()
	sup := bot.NewSupervisor(port, bus, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, raw := range cfg.Bots {
		botCfg, err := bot.Normalize(raw)
		if err != nil {
			log.Error().Err(err).Interface("raw", raw).Msg("skipping malformed bot config")
			continue
		}
		id, err := sup.Start(ctx, botCfg)
		if err != nil {
			log.Error().Err(err).Str("symbol", botCfg.Symbol).Msg("failed to start bot")
			continue
		}
		log.Info().Uint64("bot_id", id).Str("symbol", botCfg.Symbol).Msg("bot started")
	}

	go sup.WatchCompletions(ctx, 2*time.Second)

	<-ctx.Done()
	log.Info().Msg("shutting down")
	for _, snap := range sup.ListActive() {
		sup.Stop(snap.ID)
	}
}

// buildPort constructs the Market Access Port named by cfg.Exchange.Name,
// defaulting to the deterministic stub when unset so a bare config file
// still boots without live venue credentials.
func buildPort(cfg *config.Config, log zerolog.Logger) (marketaccess.Port, error) {
	switch marketaccess.Venue(cfg.Exchange.Name) {
	case marketaccess.VenueBinance:
		account := paper.NewAccount(cfg.Paper.StartingCash, cfg.Paper.MaxPositionPerSymbol)
		return marketaccess.NewBinance(log, account, cfg.Paper.SlippageBps), nil

	case marketaccess.VenueDexScreener:
		account := paper.NewAccount(cfg.Paper.StartingCash, cfg.Paper.MaxPositionPerSymbol)
		poll := time.Duration(cfg.Exchange.DexScreener.PollInterval) * time.Millisecond
		return marketaccess.NewDexScreener(log, cfg.Exchange.DexScreener.BaseURL, poll, account), nil

	case marketaccess.VenueJupiter:
		owner, err := marketaccess.LoadWallet(cfg.Wallet.PrivateKeyBase58)
		if err != nil {
			return nil, err
		}
		return marketaccess.NewJupiter(log, cfg.Dex.RpcURL, cfg.Dex.JupiterBase, owner, cfg.Dex.Commitment), nil

	default:
		return marketaccess.NewStub(log), nil
	}
}
