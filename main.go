package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/ironvale/vanguard/config"
	"github.com/ironvale/vanguard/game"
	"github.com/ironvale/vanguard/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Ticks per episode (0 = from config)")
	episodes := flag.Int("episodes", 1, "Number of episodes to run")
	recordDemos := flag.Bool("record-demos", false, "Record scripted observation/action rows for cloning")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *recordDemos {
		cfg.Policy.RecordDemos = true
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ticks := *maxTicks
	if ticks <= 0 {
		ticks = cfg.Derived.TicksPerEpisode
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer output.Close()

	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	g, err := game.NewGame(cfg, rngSeed, output)
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"episodes", *episodes,
		"ticks_per_episode", ticks,
		"team_size", cfg.Sim.TeamSize,
		"record_demos", cfg.Policy.RecordDemos,
	)

	for ep := 0; ep < *episodes; ep++ {
		g.RunEpisode(ticks)
		slog.Info("episode complete", "episode", ep, "ticks", g.Tick())
		if ep+1 < *episodes {
			g.Reset()
		}
	}
}
