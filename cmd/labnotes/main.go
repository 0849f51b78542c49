package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hexcarb/labnotes/internal/config"
	"github.com/hexcarb/labnotes/internal/embedding"
	"github.com/hexcarb/labnotes/internal/note"
	"github.com/hexcarb/labnotes/internal/notebook"
	"github.com/hexcarb/labnotes/internal/topics"
	"github.com/hexcarb/labnotes/internal/vector"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "labnotes",
	Short:         "Searchable lab notebook for research notes and papers",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// cliContext returns a context cancelled on SIGINT/SIGTERM.
func cliContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

// openNotebook loads config and wires the stores, embedding provider,
// and topic classifier. A missing embedding backend degrades to
// keyword-only mode instead of failing startup.
func openNotebook(ctx context.Context) (*notebook.Notebook, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	setupLogger(cfg.Log.Level)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, config.Config{}, fmt.Errorf("creating data directory: %w", err)
	}

	records := note.NewStore(filepath.Join(cfg.Storage.DataDir, "notes.json"))
	vectors := vector.NewStore(
		filepath.Join(cfg.Storage.DataDir, "vectors.bin"),
		filepath.Join(cfg.Storage.DataDir, "vectors_map.json"),
	)

	provider, err := embedding.Detect(ctx, cfg.Embedding)
	if err != nil {
		if !errors.Is(err, embedding.ErrUnavailable) {
			return nil, config.Config{}, err
		}
		printWarning("embedding backend unavailable, running in keyword-only mode")
		provider = nil
	}

	var classifier *topics.Classifier
	if provider != nil {
		classifier = topics.NewClassifier(provider,
			topics.WithThreshold(float32(cfg.Topics.Threshold)),
			topics.WithMaxSuggestions(cfg.Topics.MaxSuggestions),
		)
	}

	nb := notebook.New(records, vectors, provider, classifier, cfg.Ingest.ChunkWords)
	return nb, cfg, nil
}
