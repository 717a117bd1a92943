package reader

import (
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/afero"
)

type ledongReader struct {
	file afero.File
	doc  *pdf.Reader
}

// OpenLedong opens a PDF with github.com/ledongthuc/pdf.
func OpenLedong(fs afero.Fs, path string) (PageTextReader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}

	doc, err := pdf.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("parse PDF %q: %w", path, err)
	}

	return &ledongReader{file: f, doc: doc}, nil
}

func (r *ledongReader) NumPage() int {
	return r.doc.NumPage()
}

func (r *ledongReader) PageText(n int) (string, error) {
	if err := checkPage(n, r.NumPage()); err != nil {
		return "", err
	}

	page := r.doc.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func (r *ledongReader) Close() error {
	return r.file.Close()
}
