// Package cli implements the finfeex command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/finfeex/internal/analysis"
	"github.com/insightdelivered/finfeex/internal/config"
	"github.com/insightdelivered/finfeex/internal/extractor"
	"github.com/insightdelivered/finfeex/internal/logging"
	"github.com/insightdelivered/finfeex/internal/metrics"
	"github.com/insightdelivered/finfeex/internal/narrative"
)

// env is the state shared by all commands once config is loaded.
type env struct {
	configFile string
	logLevel   string
	version    string

	cfg    *config.Config
	logger logging.Logger
}

// NewRootCmd builds the finfeex command tree.
func NewRootCmd(version string) *cobra.Command {
	e := &env{version: version}

	root := &cobra.Command{
		Use:   "finfeex",
		Short: "Find hidden fees in bank and card statements.",
		Long: `finfeex reads a bank or card statement (PDF or text), flags the lines that
look like fees, estimates what each one costs per year and drafts a
complaint email you can send to your bank.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := e.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			e.logger.Debug("Running command", logging.F(logging.FieldOperation, cmd.Name()))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&e.configFile, "config", "", "config file (default ./config.yaml or $HOME/.finfeex/config.yaml)")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newAnalyzeCmd(e),
		newCompareCmd(e),
		newServeCmd(e),
		newVersionCmd(e),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	if err := NewRootCmd(version).Execute(); err != nil {
		return 1
	}
	return 0
}

// load reads the configuration and sets up logging to logOut.
func (e *env) load(logOut io.Writer) error {
	cfg, err := config.Load(e.configFile)
	if err != nil {
		return err
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	e.cfg = cfg
	e.logger = logging.NewLogrusAdapterFromLogger(logging.NewLogrus(cfg.Log.Level, cfg.Log.Format, logOut))
	return nil
}

func (e *env) service(rec *metrics.Recorder) *analysis.Service {
	return analysis.NewService(
		extractor.New(e.cfg.MaxUploadBytes()),
		rec,
		e.logger,
		e.cfg.Analysis.PreviewChars,
	)
}

// summarizer returns a cached, rate limited Gemini summarizer, or
// narrative.ErrDisabled when no API key is configured.
func (e *env) summarizer(ctx context.Context) (narrative.Summarizer, func(), error) {
	ai := e.cfg.AI
	gemini, err := narrative.NewGeminiSummarizer(ctx, ai.APIKey, ai.Model, time.Duration(ai.TimeoutSeconds)*time.Second)
	if err != nil {
		return nil, func() {}, err
	}
	closeFn := func() {
		if err := gemini.Close(); err != nil {
			e.logger.WithError(err).Warn("Failed to close Gemini client")
		}
	}
	return narrative.NewCached(gemini, ai.CacheTTL, ai.RequestsPerMinute), closeFn, nil
}

// readStatement loads one input file.
func readStatement(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("input file not found: %s", path)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return os.ReadFile(path)
}

func statementName(path string) string {
	return filepath.Base(path)
}
