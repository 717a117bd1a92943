package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lorenz00k/Betriebsanlagen-check/internal/batch"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/config"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/display"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/metrics"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/reader"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pdfextract",
	Short: "Extract text from PDFs into a JSON document for the RAG pipeline",
	Long: `pdfextract reads every *.pdf in documents/raw-pdfs/, extracts and cleans the
text of each page and writes documents/processed/extracted.json:

  { "<file>.pdf": { "text": "...", "pages": 12, "error": "only on failure" } }

Files that cannot be read are recorded with an error and do not stop the run.
The JSON is then ingested with POST /api/rag/embed-from-json.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExtract,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		display.ErrorMsg(err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	config.Setup(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.pdfextract/config.yaml)")
	flags.String("root", "", "project root containing documents/ (default: working directory)")
	flags.String("backend", reader.DefaultBackend, "PDF backend ("+strings.Join(reader.Backends(), ", ")+")")
	flags.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	flags.BoolP("verbose", "v", false, "debug logging on stderr")

	_ = viper.BindPFlag(config.KeyProjectRoot, flags.Lookup("root"))
	_ = viper.BindPFlag(config.KeyBackend, flags.Lookup("backend"))
	_ = viper.BindPFlag(config.KeyMetricsFile, flags.Lookup("metrics-file"))
	_ = viper.BindPFlag(config.KeyVerbose, flags.Lookup("verbose"))

	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "warning: could not determine home directory:", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".pdfextract"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err != nil {
		// The config file is optional; defaults and PDFEXTRACT_* env vars suffice.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			display.Warn(fmt.Sprintf("ignoring config file: %v", err))
		}
	}
}

// loadConfig returns the resolved and validated configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	if err := cfg.Resolve(cwd); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	open, err := reader.Lookup(cfg.Backend)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	runner, err := batch.NewRunner(cfg, batch.Deps{
		Fs:      afero.NewOsFs(),
		Opener:  open,
		Logger:  logger,
		Metrics: rec,
	})
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}

	display.PrintBanner(display.RunInfo{
		Version:    currentVersion(),
		PDFDir:     cfg.PDFDir,
		OutputFile: cfg.OutputFile,
		Backend:    cfg.Backend,
	})

	sum, err := runner.Run()
	writeMetrics(cfg.MetricsFile, rec, logger)

	switch {
	case errors.Is(err, batch.ErrInputDirNotFound), errors.Is(err, batch.ErrNoPDFs):
		// Reported by the runner; nothing to extract is not a failure.
		return nil
	case err != nil:
		return err
	}

	display.PrintSummary(display.SummaryInfo{
		Total:         sum.Total,
		Success:       sum.Success,
		Failed:        sum.Failed,
		OutputFile:    sum.OutputPath,
		Format:        string(sum.Format),
		TotalChars:    sum.TotalChars,
		EmbedEndpoint: cfg.EmbedEndpoint,
	})
	return nil
}

func writeMetrics(path string, rec *metrics.Recorder, logger *zap.Logger) {
	if path == "" {
		return
	}
	if err := rec.WriteTextfile(path); err != nil {
		display.Warn(err.Error())
		logger.Warn("metrics not written", zap.Error(err))
		return
	}
	logger.Debug("metrics written", zap.String("path", path))
}
