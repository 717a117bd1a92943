// Package reader opens PDF files and exposes their text one page at a time.
package reader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/afero"
)

// Backend names accepted by Lookup.
const (
	BackendLedong = "ledongthuc"
	BackendPDFCPU = "pdfcpu"

	DefaultBackend = BackendLedong
)

// ErrUnknownBackend is returned when no backend is registered under a name.
var ErrUnknownBackend = errors.New("unknown PDF backend")

// ErrPageOutOfRange is returned when a page number is outside 1..NumPage.
var ErrPageOutOfRange = errors.New("page out of range")

// PageTextReader gives access to the text layer of an opened PDF.
type PageTextReader interface {
	// NumPage returns the total number of pages in the document.
	NumPage() int
	// PageText returns the raw text of page n (1-indexed).
	PageText(n int) (string, error)
	// Close releases the underlying file.
	Close() error
}

// Opener opens the PDF at path on fs.
type Opener func(fs afero.Fs, path string) (PageTextReader, error)

var backends = map[string]Opener{
	BackendLedong: OpenLedong,
	BackendPDFCPU: OpenPDFCPU,
}

// Lookup returns the Opener registered under name. Panics raised by the
// backend while opening a file are returned as errors.
func Lookup(name string) (Opener, error) {
	open, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	return guard(open), nil
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func guard(open Opener) Opener {
	return func(fs afero.Fs, path string) (r PageTextReader, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				r = nil
				err = fmt.Errorf("parse PDF %q: %v", path, rec)
			}
		}()
		return open(fs, path)
	}
}

func checkPage(n, total int) error {
	if n < 1 || n > total {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, total)
	}
	return nil
}
