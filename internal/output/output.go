// Package output serializes extraction results to the JSON document consumed
// by the embedding step.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/lorenz00k/Betriebsanlagen-check/internal/extractor"
)

// ResultSet maps a PDF's base name to its extraction result. encoding/json
// writes map keys in sorted order, so the document is ordered by file name.
type ResultSet map[string]extractor.Result

// Counts returns the number of successful and failed files.
func (rs ResultSet) Counts() (success, failed int) {
	for _, r := range rs {
		if r.Failed() {
			failed++
		} else {
			success++
		}
	}
	return success, failed
}

// TotalChars sums the character (rune) count of every text field.
func (rs ResultSet) TotalChars() int {
	total := 0
	for _, r := range rs {
		total += utf8.RuneCountInString(r.Text)
	}
	return total
}

// Format is the layout a document was written in.
type Format string

const (
	FormatIndented Format = "indented"
	FormatCompact  Format = "compact"
)

const defaultIndent = "  "

// Stage names the step a SerializationError happened in.
type Stage string

const (
	StageEncode   Stage = "encode"
	StageWrite    Stage = "write"
	StageValidate Stage = "validate"
)

// SerializationError is a failure to produce a valid output document.
type SerializationError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// Options configures Write.
type Options struct {
	// CompactFallback retries with a compact layout when the indented
	// document cannot be written or validated.
	CompactFallback bool
	// OnFallback is called with the original error before the retry.
	OnFallback func(err error)
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Write stores rs at path as indented UTF-8 JSON and validates it by reading
// it back. It returns the layout that ended up on disk.
func Write(fs afero.Fs, path string, rs ResultSet, opts Options) (Format, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	err := writeValidated(fs, path, rs, defaultIndent)
	if err == nil {
		return FormatIndented, nil
	}
	if !opts.CompactFallback {
		return "", err
	}

	log.Warn("indented output failed, retrying compact", zap.String("path", path), zap.Error(err))
	if opts.OnFallback != nil {
		opts.OnFallback(err)
	}

	if err := writeValidated(fs, path, rs, ""); err != nil {
		return "", err
	}
	return FormatCompact, nil
}

// Read parses the document at path.
func Read(fs afero.Fs, path string) (ResultSet, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}

	var rs ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	return rs, nil
}

// Marshal encodes rs without HTML escaping; non-ASCII text is kept literal.
func Marshal(rs ResultSet, indent string) ([]byte, error) {
	if rs == nil {
		rs = ResultSet{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(rs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValidated(fs afero.Fs, path string, rs ResultSet, indent string) error {
	data, err := Marshal(rs, indent)
	if err != nil {
		return &SerializationError{Path: path, Stage: StageEncode, Err: err}
	}

	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return &SerializationError{Path: path, Stage: StageWrite, Err: err}
	}

	if _, err := Read(fs, path); err != nil {
		return &SerializationError{Path: path, Stage: StageValidate, Err: err}
	}
	return nil
}
