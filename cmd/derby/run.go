package main

import (
	"crypto/sha256"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairlane/derby/internal/bankroll"
	"github.com/fairlane/derby/internal/beacon"
	"github.com/fairlane/derby/internal/config"
	"github.com/fairlane/derby/internal/entrant"
	"github.com/fairlane/derby/internal/events"
	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/internal/operator"
	"github.com/fairlane/derby/internal/prob"
	"github.com/fairlane/derby/internal/race"
	"github.com/fairlane/derby/internal/registry"
	"github.com/fairlane/derby/internal/store/betstore"
	"github.com/fairlane/derby/internal/store/historystore"
	"github.com/fairlane/derby/internal/store/racestore"
	"github.com/fairlane/derby/pkg/kvstore"
	"github.com/fairlane/derby/pkg/logger"
)

var (
	runConfigPath string
	runDebug      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the race operator daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(runConfigPath, runDebug)
	},
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "configs/config.yaml", "path to config file")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "enable debug logs")
	rootCmd.AddCommand(runCmd)
}

func runDaemon(configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger.Init(&logger.Options{Level: level, TimeFormat: time.RFC3339})
	logger.Info("Config loaded", "environment", cfg.Environment)

	kv, err := kvstore.NewBadgerStore(cfg.Storage.Directory, cfg.Storage.Prefix, kvstore.JSON)
	if err != nil {
		return err
	}
	defer kv.Close()

	reg := registry.NewStore(kv)
	roster := make([]string, 0, len(cfg.Engine.HouseRoster))
	for _, rc := range cfg.Engine.HouseRoster {
		roster = append(roster, rc.ID)
		if _, err := reg.OwnerOf(rc.ID); err != nil {
			racer := &registry.Racer{
				ID:         rc.ID,
				Owner:      cfg.Engine.HouseOwner,
				Attributes: model.Attributes{A: rc.A, B: rc.B, C: rc.C},
			}
			if err := reg.Put(racer); err != nil {
				return err
			}
			logger.Info("Seeded house racer", "racer", rc.ID)
		}
	}

	queue, err := entrant.Load(kv, roster)
	if err != nil {
		return err
	}
	clock, err := operator.LoadClock(kv)
	if err != nil {
		return err
	}

	secret := sha256.Sum256([]byte(cfg.Operator.BeaconSecret))
	salt := sha256.Sum256(append(secret[:], "estimate"...))

	var emitter events.Emitter = events.Noop{}
	if cfg.NATS.URL != "" {
		emitter, err = events.NewNATSEmitter(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return err
		}
	}
	defer emitter.Close()

	engine := race.NewEngine(race.Config{
		HouseEdgeBps:  cfg.Engine.HouseEdgeBps,
		MinBet:        cfg.Engine.MinBet,
		MaxBet:        cfg.Engine.MaxBet,
		OddsWindow:    cfg.Engine.OddsWindowRounds,
		BettingWindow: cfg.Engine.BettingWindowRounds,
		SettleDelay:   cfg.Engine.SettleDelayRounds,
		Cooldown:      cfg.Engine.CooldownRounds,
		HouseRoster:   roster,
		HouseOwner:    cfg.Engine.HouseOwner,
		Operator:      cfg.Engine.Operator,
	}, race.Deps{
		Races:     racestore.New(kv),
		Bets:      betstore.New(kv),
		Histories: historystore.New(kv),
		Queue:     queue,
		Registry:  reg,
		Bankroll:  bankroll.NewLedger(kv),
		Beacon:    beacon.NewHashBeacon(secret, clock),
		Clock:     clock,
		Estimator: prob.MonteCarlo{Trials: cfg.Operator.MonteCarloTrials, Salt: salt},
		Emitter:   emitter,
	})

	op := operator.New(engine, clock, cfg.Engine.Operator)
	tick := make(chan struct{})
	go op.Run(tick)

	ticker := time.NewTicker(cfg.Operator.RoundInterval)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	logger.Info("Derby daemon running", "round", clock.Now(), "interval", cfg.Operator.RoundInterval)

	for {
		select {
		case <-ticker.C:
			select {
			case tick <- struct{}{}:
			default: // previous tick still in flight, skip
			}
		case <-stop:
			op.Stop()
			logger.Info("Derby daemon stopped", "round", clock.Now())
			return nil
		}
	}
}
