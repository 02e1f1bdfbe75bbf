package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docintel/internal/config"
	"docintel/internal/output"
	"docintel/internal/version"
)

var (
	cfgFile      string
	outputFormat string
	logLevel     string

	appCfg *config.AppConfig
	format output.Format
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docintel",
	Short: "Confidence-gated question answering over logistics documents",
	Long: `docintel ingests shipping and logistics documents (rate confirmations,
bills of lading, invoices) and answers questions about them.

Answers are only produced when retrieval and structured-field matching
agree with enough confidence; otherwise the question is refused.`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.config/docintel/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "log level: debug, info, warn or error",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(logLevel)
		if err != nil {
			return err
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		if format, err = output.ParseFormat(outputFormat); err != nil {
			return err
		}
		if cmd == versionCmd {
			return nil
		}
		var path string
		if cfgFile == "" {
			appCfg, path, err = config.LoadDefault()
		} else {
			path = cfgFile
			appCfg, err = config.Load(cfgFile)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Debug("config loaded", "path", path)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chunksCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(chatCmd)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", s)
	}
}
