package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwhitton/chattersignal/internal/config"
	"github.com/mwhitton/chattersignal/internal/scoring"
	"github.com/mwhitton/chattersignal/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "chattersignal",
		Short: "ChatterSignal is comment intelligence for monitored entities",
		Long:  "ChatterSignal turns raw social-media comments into per-entity sentiment signals: it resolves entity mentions, scores sentiment and emotion, tracks unknown names, and reports sentiment velocity over time.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		ingestCmd(),
		enrichCmd(),
		catalogCmd(),
		analyticsCmd(),
		distributionCmd(),
		velocityCmd(),
		discoveriesCmd(),
		reviewCmd(),
		statsCmd(),
		serveCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	st, err := store.NewGormStore(cfg.Store.Path, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// newScorer builds the scorer selected by scoring.strategy: "lexicon" and
// "claude" run one strategy alone, "hybrid" runs the lexicon first and
// escalates uncertain comments to Claude.
func newScorer(logger *slog.Logger) (scoring.Scorer, error) {
	lexicon := scoring.NewLexiconScorer(logger)

	switch cfg.Scoring.Strategy {
	case "lexicon":
		return lexicon, nil
	case "claude":
		if cfg.Claude.APIKey == "" {
			return nil, fmt.Errorf("scoring strategy %q requires ANTHROPIC_API_KEY", cfg.Scoring.Strategy)
		}
		return scoring.NewClaudeScorer(cfg.Claude.APIKey, cfg.Claude.Model, logger), nil
	case "hybrid":
		if cfg.Claude.APIKey == "" {
			logger.Warn("no ANTHROPIC_API_KEY set; hybrid scoring falls back to lexicon only")
			return lexicon, nil
		}
		claude := scoring.NewClaudeScorer(cfg.Claude.APIKey, cfg.Claude.Model, logger)
		return scoring.NewHybridScorer(lexicon, claude,
			cfg.Scoring.EscalateConfidence, cfg.Scoring.EscalateMagnitude, logger), nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", cfg.Scoring.Strategy)
	}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
