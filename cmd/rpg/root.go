package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rpg/internal/config"
	"rpg/internal/embeddings"
	"rpg/internal/engine"
	"rpg/internal/slogutil"
)

var (
	flagRepoRoot string
	flagVerbose  bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rpg",
		Short: "Repository Planning Graph: a persistent semantic index of a source repository",
		Long: `rpg builds and maintains a Repository Planning Graph: code entities with
verb-object semantic features, a three-level functional hierarchy anchored
to directories, and dependency edges supporting intent search, impact
analysis, and incremental evolution under source change.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// .env may carry GEMINI_API_KEY for the embedding collaborator.
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVarP(&flagRepoRoot, "repo", "C", ".", "repository root")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		buildCmd(),
		updateCmd(),
		infoCmd(),
		searchCmd(),
		liftCmd(),
		hierarchyCmd(),
		exportCmd(),
		serveCmd(),
		configCmd(),
	)
	return cmd
}

func cliLogger(subsystem string) *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger, _ := slogutil.NewFileLogger(flagRepoRoot, subsystem, level)
	return logger
}

// openEngine loads the engine plus the embedding collaborator when one is
// configured; absence of a provider is not an error.
func openEngine(subsystem string) (*engine.Engine, error) {
	logger := cliLogger(subsystem)
	eng, err := engine.Open(flagRepoRoot, logger)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(flagRepoRoot)
	if err != nil {
		return nil, err
	}
	provider, err := embeddings.NewProvider(context.Background(), cfg.Embedding)
	if err != nil && err != embeddings.ErrNoProvider {
		logger.Warn("embedding provider unavailable", "error", err.Error())
	}
	if provider != nil || err == embeddings.ErrNoProvider {
		eng.AttachEmbedder(embeddings.NewManager(flagRepoRoot, provider, cfg.Embedding.Dimension, logger))
	}
	return eng, nil
}

func contextWithInterrupt() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		notifyInterrupt(sig)
		<-sig
		cancel()
	}()
	return ctx, cancel
}
