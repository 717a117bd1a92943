// Package extractor turns a single PDF file into sanitized text.
package extractor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/lorenz00k/Betriebsanlagen-check/internal/reader"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/sanitize"
)

// DefaultProgressEvery is the page interval between progress callbacks.
const DefaultProgressEvery = 10

// ErrNilOpener is returned when an Extractor is created without an Opener.
var ErrNilOpener = errors.New("extractor: opener is nil")

// Result is the extraction outcome for one file.
type Result struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the whole file could not be extracted.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Op names the stage an ExtractionError happened in.
type Op string

const (
	OpOpen  Op = "open"
	OpCount Op = "count"
)

// ExtractionError is a file-level extraction failure.
type ExtractionError struct {
	Path string
	Op   Op
	Err  error
}

func (e *ExtractionError) Error() string {
	return e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ProgressFunc is called every ProgressEvery pages.
type ProgressFunc func(done, total int)

// Options configures an Extractor.
type Options struct {
	// ProgressEvery is the page interval for Progress; <= 0 means DefaultProgressEvery.
	ProgressEvery int
	// Progress is optional.
	Progress ProgressFunc
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Extractor reads PDFs through an injected reader.Opener.
type Extractor struct {
	fs   afero.Fs
	open reader.Opener
	opts Options
}

// New creates an Extractor that opens files on fs with open.
func New(fs afero.Fs, open reader.Opener, opts Options) (*Extractor, error) {
	if open == nil {
		return nil, ErrNilOpener
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Extractor{fs: fs, open: open, opts: opts}, nil
}

// Extract opens path and concatenates the sanitized text of every page that
// has any, separated by single spaces. Pages that fail are skipped.
func (e *Extractor) Extract(path string) (Result, error) {
	log := e.opts.Logger.With(zap.String("file", filepath.Base(path)))

	doc, err := e.open(e.fs, path)
	if err != nil {
		return Result{}, &ExtractionError{Path: path, Op: OpOpen, Err: err}
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			log.Debug("close PDF", zap.Error(cerr))
		}
	}()

	total, err := pageCount(doc)
	if err != nil {
		return Result{}, &ExtractionError{Path: path, Op: OpCount, Err: err}
	}

	parts := make([]string, 0, total)
	for n := 1; n <= total; n++ {
		raw, err := pageText(doc, n)
		if err != nil {
			log.Debug("skip page", zap.Int("page", n), zap.Error(err))
		} else if text := sanitize.Clean(raw); text != "" {
			parts = append(parts, text)
		}

		if n%e.opts.ProgressEvery == 0 && e.opts.Progress != nil {
			e.opts.Progress(n, total)
		}
	}

	return Result{Text: strings.Join(parts, " "), Pages: total}, nil
}

// ExtractFile is Extract with file-level failures folded into the Result.
func (e *Extractor) ExtractFile(path string) Result {
	res, err := e.Extract(path)
	if err != nil {
		return Result{Text: "", Pages: 0, Error: err.Error()}
	}
	return res
}

func pageCount(doc reader.PageTextReader) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read page tree: %v", rec)
		}
	}()
	return doc.NumPage(), nil
}

func pageText(doc reader.PageTextReader, n int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: %v", n, rec)
		}
	}()
	return doc.PageText(n)
}
