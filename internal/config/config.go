package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/lorenz00k/Betriebsanlagen-check/internal/reader"
)

// ErrNilConfig is returned when a nil Config is provided.
var ErrNilConfig = errors.New("config is nil")

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix is prepended to every key when read from the environment,
// e.g. PDFEXTRACT_PDF_DIR.
const EnvPrefix = "PDFEXTRACT"

// Config keys.
const (
	KeyProjectRoot     = "project_root"
	KeyPDFDir          = "pdf_dir"
	KeyOutputDir       = "output_dir"
	KeyOutputFile      = "output_file"
	KeyBackend         = "backend"
	KeyProgressEvery   = "progress_every"
	KeyCompactFallback = "compact_fallback"
	KeyMetricsFile     = "metrics_file"
	KeyEmbedEndpoint   = "embed_endpoint"
	KeyVerbose         = "verbose"
)

// Config holds the full application configuration. After Resolve, PDFDir,
// OutputDir and OutputFile are absolute.
type Config struct {
	ProjectRoot     string `mapstructure:"project_root" yaml:"project_root"`
	PDFDir          string `mapstructure:"pdf_dir" yaml:"pdf_dir"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir"`
	OutputFile      string `mapstructure:"output_file" yaml:"output_file"`
	Backend         string `mapstructure:"backend" yaml:"backend"`
	ProgressEvery   int    `mapstructure:"progress_every" yaml:"progress_every"`
	CompactFallback bool   `mapstructure:"compact_fallback" yaml:"compact_fallback"`
	MetricsFile     string `mapstructure:"metrics_file" yaml:"metrics_file,omitempty"`
	EmbedEndpoint   string `mapstructure:"embed_endpoint" yaml:"embed_endpoint"`
	Verbose         bool   `mapstructure:"verbose" yaml:"verbose"`
}

// Defaults returns the layout used by the web app: PDFs in
// documents/raw-pdfs, output in documents/processed/extracted.json.
func Defaults() Config {
	return Config{
		PDFDir:          filepath.Join("documents", "raw-pdfs"),
		OutputDir:       filepath.Join("documents", "processed"),
		OutputFile:      "extracted.json",
		Backend:         reader.DefaultBackend,
		ProgressEvery:   10,
		CompactFallback: true,
		EmbedEndpoint:   "http://localhost:3000/api/rag/embed-from-json",
	}
}

// SetDefaults registers Defaults on v so that environment variables are
// picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyProjectRoot, d.ProjectRoot)
	v.SetDefault(KeyPDFDir, d.PDFDir)
	v.SetDefault(KeyOutputDir, d.OutputDir)
	v.SetDefault(KeyOutputFile, d.OutputFile)
	v.SetDefault(KeyBackend, d.Backend)
	v.SetDefault(KeyProgressEvery, d.ProgressEvery)
	v.SetDefault(KeyCompactFallback, d.CompactFallback)
	v.SetDefault(KeyMetricsFile, d.MetricsFile)
	v.SetDefault(KeyEmbedEndpoint, d.EmbedEndpoint)
	v.SetDefault(KeyVerbose, d.Verbose)
}

// Setup registers the defaults and PDFEXTRACT_* environment lookup on v.
func Setup(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
}

// Load reads the Viper-populated global config into a Config struct.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the config held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("unmarshal config: " + err.Error())
	}
	return &cfg, nil
}

// Resolve makes every path absolute. The project root falls back to cwd;
// relative PDF and output directories are taken from the project root and
// a relative output file from the output directory.
func (c *Config) Resolve(cwd string) error {
	if c == nil {
		return ErrNilConfig
	}

	root := c.ProjectRoot
	if root == "" {
		root = cwd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve project root %q: %w", c.ProjectRoot, err)
	}
	c.ProjectRoot = root

	c.PDFDir = under(root, c.PDFDir)
	c.OutputDir = under(root, c.OutputDir)
	c.OutputFile = under(c.OutputDir, c.OutputFile)
	return nil
}

// Validate checks that cfg can drive an extraction run.
func Validate(cfg *Config) error {
	if cfg == nil {
		return ErrNilConfig
	}

	switch {
	case cfg.PDFDir == "":
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, KeyPDFDir)
	case cfg.OutputDir == "":
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, KeyOutputDir)
	case cfg.OutputFile == "":
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, KeyOutputFile)
	case cfg.ProgressEvery < 1:
		return fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidConfig, KeyProgressEvery, cfg.ProgressEvery)
	}

	if _, err := reader.Lookup(cfg.Backend); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, KeyBackend, err)
	}
	return nil
}

func under(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
