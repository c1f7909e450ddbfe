// Package cmd is the node's process entry point: a cobra root command
// wiring --port and --debug onto the conf-driven configuration struct
// the service runs from.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nilotic/blockchain/app/services/node/handlers"
	"github.com/nilotic/blockchain/foundation/blockchain/genesis"
	"github.com/nilotic/blockchain/foundation/blockchain/node"
	"github.com/nilotic/blockchain/foundation/blockchain/porc"
	"github.com/nilotic/blockchain/foundation/events"
	"github.com/nilotic/blockchain/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// build is the git version of this program, set using build flags in
// the makefile.
var build = "develop"

var (
	flagPort    int
	flagDebug   bool
	flagProfile string
)

func init() {
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 5000, "Port the public API listens on.")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable verbose (development) logging.")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "genesis-profile", string(genesis.ProfileDefault), "Genesis profile: default or improved-speed.")
}

var rootCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the blockchain node",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(flagDebug)
		if err != nil {
			return fmt.Errorf("constructing logger: %w", err)
		}
		defer log.Sync()

		if err := run(log, cmd.Flags().Changed("port")); err != nil {
			log.Errorw("startup", "ERROR", err)
			log.Sync()
			os.Exit(1)
		}

		return nil
	},
}

// Execute runs the root command, exiting the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	return logger.NewWithLevel("NODE", debug)
}

func run(log *zap.SugaredLogger, portSet bool) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:5000"`
		}
		Node struct {
			SnapshotPath string `conf:"default:blockchain_data.json"`
			PoRCStoreDir string `conf:"default:zblock/porc.db"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Cobra has already consumed --port/--debug/--genesis-profile from
	// os.Args above; conf.Parse reads os.Args itself for its own
	// NODE_-prefixed flags, so argv is trimmed to argv[0] here to keep
	// the two flag parsers from tripping over each other. Env vars are
	// unaffected.
	const prefix = "NODE"
	savedArgs := os.Args
	os.Args = os.Args[:1]
	help, err := conf.Parse(prefix, &cfg)
	os.Args = savedArgs
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// The --port flag, when set explicitly on the command line, wins
	// over the conf-derived public host's port.
	if portSet {
		cfg.Web.PublicHost = fmt.Sprintf("0.0.0.0:%d", flagPort)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Node Support

	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	g := genesis.Default()
	if genesis.Profile(flagProfile) == genesis.ProfileImprovedSpeed {
		g = genesis.ImprovedSpeed()
	}

	n, err := node.New(node.Config{
		Genesis:      g,
		PoRC:         porc.DefaultConfig(),
		SnapshotPath: cfg.Node.SnapshotPath,
		PoRCStoreDir: cfg.Node.PoRCStoreDir,
		EventHandler: ev,
	})
	if err != nil {
		return fmt.Errorf("constructing node: %w", err)
	}
	defer n.Shutdown()

	n.Start()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log)

	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Node:     n,
		Evts:     evts,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}

		log.Infow("shutdown", "status", "shutdown node started")
	}

	return nil
}
