package batch

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorenz00k/Betriebsanlagen-check/internal/config"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/display"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/extractor"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/metrics"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/output"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/pdftest"
	"github.com/lorenz00k/Betriebsanlagen-check/internal/reader"
)

const (
	pdfDir  = "/proj/documents/raw-pdfs"
	outDir  = "/proj/documents/processed"
	outFile = "/proj/documents/processed/extracted.json"
)

type cannedDoc struct {
	pages []string
}

func (d cannedDoc) NumPage() int                   { return len(d.pages) }
func (d cannedDoc) PageText(n int) (string, error) { return d.pages[n-1], nil }
func (d cannedDoc) Close() error                   { return nil }

// cannedOpener serves docs by base name; names without a doc fail to open.
func cannedOpener(docs map[string][]string) reader.Opener {
	return func(fs afero.Fs, path string) (reader.PageTextReader, error) {
		if _, err := fs.Stat(path); err != nil {
			return nil, err
		}
		pages, ok := docs[filepath.Base(path)]
		if !ok {
			return nil, errors.New("not a PDF file: invalid header")
		}
		return cannedDoc{pages: pages}, nil
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.ProjectRoot = "/proj"
	require.NoError(t, cfg.Resolve("/"))
	require.Equal(t, outFile, cfg.OutputFile)
	return &cfg
}

func quiet(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	t.Cleanup(display.SetOutput(out, errOut))
	return out, errOut
}

func touch(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte("%PDF-1.4"), 0o644))
}

func exampleFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	touch(t, fs, pdfDir+"/a.pdf")
	touch(t, fs, pdfDir+"/b.pdf")
	return fs
}

var exampleDocs = map[string][]string{
	"a.pdf": {"Hello   world", ""},
}

func TestRun_Example(t *testing.T) {
	out, _ := quiet(t)
	fs := exampleFs(t)
	rec := metrics.NewRecorder()

	r, err := NewRunner(testConfig(t), Deps{Fs: fs, Opener: cannedOpener(exampleDocs), Metrics: rec})
	require.NoError(t, err)

	sum, err := r.Run()
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 1, sum.Success)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 11, sum.TotalChars)
	assert.Equal(t, outFile, sum.OutputPath)
	assert.Equal(t, output.FormatIndented, sum.Format)
	assert.NotEmpty(t, sum.RunID)

	want := output.ResultSet{
		"a.pdf": {Text: "Hello world", Pages: 2},
		"b.pdf": {Text: "", Pages: 0, Error: "not a PDF file: invalid header"},
	}
	assert.Equal(t, want, sum.Results)

	written, err := output.Read(fs, outFile)
	require.NoError(t, err)
	assert.Equal(t, sum.Results, written)

	assert.Contains(t, out.String(), "Found 2 PDF files")
	assert.Contains(t, out.String(), "Processing: a.pdf")
	assert.Contains(t, out.String(), "Error processing b.pdf")
	assert.Contains(t, out.String(), "JSON is valid")

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.FilesTotal.WithLabelValues(metrics.StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.FilesTotal.WithLabelValues(metrics.StatusError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.PagesTotal))
}

func TestRun_RealBackend(t *testing.T) {
	quiet(t)
	fs := afero.NewMemMapFs()
	pdftest.WriteFile(t, fs, pdfDir+"/a.pdf", pdftest.Document("Hello   world", ""))
	pdftest.WriteFile(t, fs, pdfDir+"/b.pdf", []byte("corrupted"))

	open, err := reader.Lookup(reader.DefaultBackend)
	require.NoError(t, err)

	r, err := NewRunner(testConfig(t), Deps{Fs: fs, Opener: open})
	require.NoError(t, err)

	sum, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, extractor.Result{Text: "Hello world", Pages: 2}, sum.Results["a.pdf"])
	assert.True(t, sum.Results["b.pdf"].Failed())
	assert.Equal(t, 0, sum.Results["b.pdf"].Pages)
}

func TestRun_InvalidUTF8RoundTrips(t *testing.T) {
	quiet(t)
	fs := afero.NewMemMapFs()
	touch(t, fs, pdfDir+"/raw.pdf")

	docs := map[string][]string{"raw.pdf": {"Gr\xf6\xdfe \x81\x02ok", "Wien\xc3"}}
	r, err := NewRunner(testConfig(t), Deps{Fs: fs, Opener: cannedOpener(docs)})
	require.NoError(t, err)

	sum, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, extractor.Result{Text: "Gre ok Wien", Pages: 2}, sum.Results["raw.pdf"])

	written, err := output.Read(fs, outFile)
	require.NoError(t, err)
	assert.Equal(t, sum.Results, written)
}

func TestRun_OutputFileOutsideOutputDir(t *testing.T) {
	out, _ := quiet(t)
	fs := exampleFs(t)

	cfg := testConfig(t)
	cfg.OutputFile = "/exports/rag/extracted.json"

	r, err := NewRunner(cfg, Deps{Fs: fs, Opener: cannedOpener(exampleDocs)})
	require.NoError(t, err)

	sum, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, cfg.OutputFile, sum.OutputPath)

	for _, dir := range []string{outDir, "/exports/rag"} {
		exists, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, exists, "%s created", dir)
	}
	assert.Contains(t, out.String(), "/exports/rag")

	written, err := output.Read(fs, cfg.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, sum.Results, written)
}

func TestRun_DiscoversOnlyTopLevelPDFs(t *testing.T) {
	quiet(t)
	fs := afero.NewMemMapFs()
	touch(t, fs, pdfDir+"/z.pdf")
	touch(t, fs, pdfDir+"/a.pdf")
	touch(t, fs, pdfDir+"/UPPER.PDF")
	touch(t, fs, pdfDir+"/notes.txt")
	touch(t, fs, pdfDir+"/a.pdf.bak")
	touch(t, fs, pdfDir+"/sub/nested.pdf")
	require.NoError(t, fs.MkdirAll(pdfDir+"/folder.pdf", 0o755))

	docs := map[string][]string{"a.pdf": {"A"}, "z.pdf": {"Z"}}
	r, err := NewRunner(testConfig(t), Deps{Fs: fs, Opener: cannedOpener(docs)})
	require.NoError(t, err)

	sum, err := r.Run()
	require.NoError(t, err)

	keys := make([]string, 0, len(sum.Results))
	for k := range sum.Results {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"a.pdf", "z.pdf"}, keys)
	assert.Equal(t, 2, sum.Total)
}

func TestRun_ProcessesInNameOrder(t *testing.T) {
	out, _ := quiet(t)
	fs := afero.NewMemMapFs()
	for _, name := range []string{"c.pdf", "a.pdf", "b.pdf"} {
		touch(t, fs, pdfDir+"/"+name)
	}

	r, err := NewRunner(testConfig(t), Deps{Fs: fs, Opener: cannedOpener(nil)})
	require.NoError(t, err)
	_, err = r.Run()
	require.NoError(t, err)

	s := out.String()
	ia := bytes.Index([]byte(s), []byte("Processing: a.pdf"))
	ib := bytes.Index([]byte(s), []byte("Processing: b.pdf"))
	ic := bytes.Index([]byte(s), []byte("Processing: c.pdf"))
	assert.True(t, ia >= 0 && ia < ib && ib < ic, "files processed in lexicographic order")
}

func TestRun_MissingInputDir(t *testing.T) {
	_, errOut := quiet(t)
	fs := afero.NewMemMapFs()

	r, err := NewRunner(testConfig(t), Deps{Fs: fs, Opener: cannedOpener(nil)})
	require.NoError(t, err)

	sum, err := r.Run()
	assert.ErrorIs(t, err, ErrInputDirNotFound)
	assert.Nil(t, sum)
	assert.Contains(t, errOut.String(), "PDF directory not found")

	exists, err := afero.DirExists(fs, outDir)
	require.NoError(t, err)
	assert.True(t, exists, "output directory is still created")

	_, err = fs.Stat(outFile)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_NoPDFsLeavesOutputUntouched(t *testing.T) {
	out, _ := quiet(t)
	fs := afero.NewMemMapFs()
	touch(t, fs, pdfDir+"/readme.txt")
	previous := []byte(`{"old.pdf":{"text":"keep me","pages":1}}`)
	require.NoError(t, afero.WriteFile(fs, outFile, previous, 0o644))

	r, err := NewRunner(testConfig(t), Deps{Fs: fs, Opener: cannedOpener(nil)})
	require.NoError(t, err)

	sum, err := r.Run()
	assert.ErrorIs(t, err, ErrNoPDFs)
	assert.Nil(t, sum)
	assert.Contains(t, out.String(), "No PDF files found")

	data, err := afero.ReadFile(fs, outFile)
	require.NoError(t, err)
	assert.Equal(t, previous, data)
}

func TestRun_Deterministic(t *testing.T) {
	quiet(t)
	fs := exampleFs(t)

	run := func() []byte {
		r, err := NewRunner(testConfig(t), Deps{Fs: fs, Opener: cannedOpener(exampleDocs)})
		require.NoError(t, err)
		_, err = r.Run()
		require.NoError(t, err)
		data, err := afero.ReadFile(fs, outFile)
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, run(), run())
}

// readOnlyOutput rejects writes to the output file.
type readOnlyOutput struct {
	afero.Fs
}

func (f readOnlyOutput) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if name == outFile && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestRun_SaveFailure(t *testing.T) {
	_, errOut := quiet(t)
	fs := readOnlyOutput{Fs: exampleFs(t)}

	r, err := NewRunner(testConfig(t), Deps{Fs: fs, Opener: cannedOpener(exampleDocs)})
	require.NoError(t, err)

	sum, err := r.Run()
	require.Error(t, err)
	assert.Nil(t, sum)

	var serr *output.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, output.StageWrite, serr.Stage)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Contains(t, errOut.String(), "Could not save")
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(nil, Deps{Opener: cannedOpener(nil)})
	assert.Equal(t, config.ErrNilConfig, err)

	_, err = NewRunner(testConfig(t), Deps{})
	assert.Equal(t, ErrNilOpener, err)
}
