// Command ironswarm boots one gossip-cluster node: it loads configuration,
// opens the transport, and runs the gossip/scheduler/metrics loops until
// signaled to shut down.
//
// Scenario and journey resolution (turning a scenario spec string into a
// runnable scenario.Scenario and JourneyFunc) is an external collaborator;
// scenario discovery, upload, and dynamic code loading stay out of the
// core. This binary wires in empty registries; a real deployment links in
// a package that populates scheduler.ScenarioRegistry and scenario.Registry
// from its own scenario sources and calls Run with those instead of main's
// defaults.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ryan-h265/ironswarm/pkg/config"
	"github.com/ryan-h265/ironswarm/pkg/node"
	"github.com/ryan-h265/ironswarm/pkg/scenario"
	"github.com/ryan-h265/ironswarm/pkg/scheduler"
	"github.com/ryan-h265/ironswarm/pkg/version"
)

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	configFile := flag.String("config", "", "Path to a node YAML config file (overrides config-dir/ironswarm.yaml)")

	bootstrap := flag.String("bootstrap", "", "Comma-separated peer URIs (tcp://host:port)")
	host := flag.String("host", "", "Bind host: public, local, or an explicit address")
	port := flag.Int("port", 0, "Bind port (may increment on conflict)")
	job := flag.String("job", "", "Preload one scenario spec into the scenarios CRDT")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	stats := flag.Bool("stats", false, "Print periodic stats to stdout")
	metricsDir := flag.String("metrics-dir", "", "Root directory for per-node metrics snapshots")
	scenariosDir := flag.String("scenarios-dir", "", "Directory scenario sources live in")
	webPort := flag.Int("web-port", 0, "Optional dashboard port (dashboard itself is out of scope)")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting ironswarm node", "version", version.Full())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := config.CLIFlags{
		Bootstrap:    splitCSV(*bootstrap),
		Host:         *host,
		Port:         *port,
		Job:          *job,
		Verbose:      *verbose,
		Stats:        *stats,
		MetricsDir:   *metricsDir,
		ScenariosDir: *scenariosDir,
		WebPort:      *webPort,
	}

	path := *configFile
	if path == "" {
		path = filepath.Join(*configDir, "ironswarm.yaml")
	}
	cfg, err := config.Initialize(ctx, path, flags)
	if err != nil {
		logger.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	scenarioDefaults, err := config.LoadScenarioDefaults(cfg.ScenariosDir)
	if err != nil {
		logger.Error("failed to load scenario defaults", "error", err)
		os.Exit(1)
	}
	logger.Debug("scenario defaults resolved",
		"interval", scenarioDefaults.IntervalSeconds,
		"delay", scenarioDefaults.DelaySeconds,
		"journey_separation", scenarioDefaults.JourneySeparationSeconds)

	nodeHost := string(cfg.HostMode)
	if cfg.HostMode == config.HostModeExplicit {
		nodeHost = cfg.Host
	}

	n, err := node.New(node.Options{
		Host:           nodeHost,
		Port:           cfg.Port,
		BootstrapNodes: cfg.Bootstrap,
		Job:            cfg.Job,
		MetricsDir:     cfg.MetricsDir,
		ScenarioSpecs:  scheduler.ScenarioRegistry{},
		Journeys:       scenario.Registry{},
		Logger:         logger,

		GossipInterval:     cfg.Gossip.Interval,
		GossipFanout:       cfg.Gossip.Fanout,
		SaveInterval:       cfg.Retention.SaveInterval,
		SnapshotTTL:        cfg.Retention.SnapshotTTL,
		PollTimeout:        cfg.Transport.PollTimeout,
		MaxBindAttempts:    cfg.Transport.MaxBindAttempts,
		CompressionLevel:   cfg.Transport.CompressionLevel,
		SchedulerPollEvery: cfg.Scheduler.PollInterval,
	})
	if err != nil {
		logger.Error("failed to construct node", "error", err)
		os.Exit(1)
	}

	if err := n.Bind(cfg.StrictPort); err != nil {
		logger.Error("failed to bind node", "error", err)
		os.Exit(1)
	}
	logger.Info("node bound", "identity", n.Identity())

	if cfg.Stats {
		go runStatsLoop(ctx, n)
	}

	if err := n.Run(ctx); err != nil {
		logger.Error("node run loop exited with error", "error", err)
	}

	if err := n.Shutdown(); err != nil {
		logger.Error("error during shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// runStatsLoop prints a periodic one-line stats summary to stdout when
// --stats is set. It is a thin reporting loop over already-public Node
// accessors, not a replacement for the out-of-scope dashboard.
func runStatsLoop(ctx context.Context, n *node.Node) {
	out := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scenarios := n.ActiveScenarios()
			out.Info("stats",
				"identity", n.Identity(),
				"live_peers", n.Count(),
				"active_scenarios", len(scenarios),
				"scenarios", scenarios)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
