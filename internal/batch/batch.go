// Package batch runs the extraction over every PDF in the input directory
// and writes the aggregated JSON document.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/lorenz00k/Betriebsanlagen-check/internal/config"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/display"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/extractor"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/metrics"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/output"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/reader"
)

// pdfPattern is matched case-sensitively against file names.
const pdfPattern = "*.pdf"

var (
	// ErrInputDirNotFound is returned when the PDF directory does not exist.
	ErrInputDirNotFound = errors.New("PDF directory not found")
	// ErrNoPDFs is returned when the PDF directory holds no *.pdf files.
	ErrNoPDFs = errors.New("no PDF files found")
	// ErrNilOpener is returned when Deps has no Opener.
	ErrNilOpener = errors.New("batch: opener is nil")
)

// Deps are the collaborators of a Runner. Only Opener is required.
type Deps struct {
	Fs      afero.Fs
	Opener  reader.Opener
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// Summary describes a completed run.
type Summary struct {
	RunID      string
	Total      int
	Success    int
	Failed     int
	OutputPath string
	Format     output.Format
	TotalChars int
	Duration   time.Duration
	Results    output.ResultSet
}

// Runner processes one input directory per Run.
type Runner struct {
	cfg  *config.Config
	fs   afero.Fs
	open reader.Opener
	log  *zap.Logger
	rec  *metrics.Recorder
}

// NewRunner creates a Runner for a resolved and validated cfg.
func NewRunner(cfg *config.Config, deps Deps) (*Runner, error) {
	if cfg == nil {
		return nil, config.ErrNilConfig
	}
	if deps.Opener == nil {
		return nil, ErrNilOpener
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRecorder()
	}

	return &Runner{
		cfg:  cfg,
		fs:   deps.Fs,
		open: deps.Opener,
		log:  deps.Logger,
		rec:  deps.Metrics,
	}, nil
}

// Run extracts every PDF directly inside the input directory in file name
// order. A missing input directory or an empty one ends the run early with
// ErrInputDirNotFound or ErrNoPDFs and leaves the output file untouched.
// Per-file failures are recorded in the results and never abort the run.
func (r *Runner) Run() (*Summary, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := r.log.With(zap.String("run_id", runID))

	display.Info("Starting PDF extraction")

	if err := r.ensureOutputDir(); err != nil {
		return nil, err
	}

	files, err := r.discover()
	switch {
	case errors.Is(err, ErrInputDirNotFound):
		display.ErrorMsg(fmt.Sprintf("Error: PDF directory not found: %s", r.cfg.PDFDir))
		log.Info("input directory missing", zap.String("dir", r.cfg.PDFDir))
		return nil, err
	case errors.Is(err, ErrNoPDFs):
		display.Warn(fmt.Sprintf("No PDF files found in %s", r.cfg.PDFDir))
		log.Info("no PDF files", zap.String("dir", r.cfg.PDFDir))
		return nil, err
	case err != nil:
		return nil, err
	}

	display.Info(fmt.Sprintf("📁 Found %d PDF files", len(files)))
	log.Info("run started", zap.Int("files", len(files)), zap.String("dir", r.cfg.PDFDir))

	ex, err := extractor.New(r.fs, r.open, extractor.Options{
		ProgressEvery: r.cfg.ProgressEvery,
		Logger:        log,
		Progress: func(done, total int) {
			display.StepDetail(fmt.Sprintf("... processed %d/%d pages", done, total))
		},
	})
	if err != nil {
		return nil, err
	}

	results := make(output.ResultSet, len(files))
	sum := &Summary{RunID: runID, Total: len(files), OutputPath: r.cfg.OutputFile, Results: results}

	for i, path := range files {
		name := filepath.Base(path)
		display.Blank()
		display.Step(i+1, len(files), "📖 Processing: "+name)

		res := ex.ExtractFile(path)
		results[name] = res

		chars := utf8.RuneCountInString(res.Text)
		r.rec.ObserveFile(res.Pages, chars, res.Failed())

		if res.Failed() {
			sum.Failed++
			display.StepError(fmt.Sprintf("Error processing %s: %s", name, res.Error))
			log.Info("extraction failed", zap.String("file", name), zap.String("error", res.Error))
			continue
		}

		sum.Success++
		display.StepResult("Extracted",
			fmt.Sprintf("%s characters from %d pages", display.FormatCount(chars), res.Pages))
		log.Debug("extracted", zap.String("file", name), zap.Int("pages", res.Pages), zap.Int("chars", chars))
	}

	display.Blank()
	display.Info("💾 Saving results to " + r.cfg.OutputFile)

	format, err := output.Write(r.fs, r.cfg.OutputFile, results, output.Options{
		CompactFallback: r.cfg.CompactFallback,
		Logger:          log,
		OnFallback: func(err error) {
			display.Warn(fmt.Sprintf("Error saving or validating JSON: %v", err))
			display.Info("Trying to save without indentation...")
		},
	})
	if err != nil {
		display.ErrorMsg(fmt.Sprintf("Could not save %s: %v", r.cfg.OutputFile, err))
		return nil, fmt.Errorf("save results: %w", err)
	}
	if format == output.FormatIndented {
		display.Success("🔍 JSON is valid")
	} else {
		display.Success("🔍 JSON is valid (compact layout)")
	}
	display.FileCreated(r.cfg.OutputFile)

	finished := time.Now()
	r.rec.ObserveRun(started, finished)

	sum.Format = format
	sum.TotalChars = results.TotalChars()
	sum.Duration = finished.Sub(started)

	log.Info("run finished",
		zap.Int("total", sum.Total),
		zap.Int("success", sum.Success),
		zap.Int("failed", sum.Failed),
		zap.Int("chars", sum.TotalChars),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// ensureOutputDir creates the output directory and, when the output file
// lives elsewhere, the file's parent directory.
func (r *Runner) ensureOutputDir() error {
	dirs := []string{r.cfg.OutputDir}
	if parent := filepath.Dir(r.cfg.OutputFile); parent != filepath.Clean(r.cfg.OutputDir) {
		dirs = append(dirs, parent)
	}

	for _, dir := range dirs {
		exists, err := afero.DirExists(r.fs, dir)
		if err != nil {
			return fmt.Errorf("check output directory %q: %w", dir, err)
		}
		if exists {
			continue
		}
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", dir, err)
		}
		display.DirCreated(dir)
	}
	return nil
}

// discover lists regular *.pdf files directly inside the PDF directory, sorted
// by name.
func (r *Runner) discover() ([]string, error) {
	entries, err := afero.ReadDir(r.fs, r.cfg.PDFDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrInputDirNotFound
		}
		return nil, fmt.Errorf("read directory %q: %w", r.cfg.PDFDir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pdfPattern, entry.Name()); !ok {
			continue
		}
		files = append(files, filepath.Join(r.cfg.PDFDir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, ErrNoPDFs
	}

	sort.Strings(files)
	return files, nil
}
