package reader

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/spf13/afero"
	"golang.org/x/text/encoding/charmap"
)

func init() {
	// pdfcpu would otherwise create its config dir under $HOME on first use.
	api.DisableConfigDir()
}

type pdfcpuReader struct {
	file afero.File
	ctx  *model.Context
}

// OpenPDFCPU opens a PDF with pdfcpu in relaxed validation mode. Page text is
// recovered from the text-showing operators of each page's content stream,
// which works for simple (single-byte) fonts only.
func OpenPDFCPU(fs afero.Fs, path string) (PageTextReader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read PDF %q: %w", path, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("validate PDF %q: %w", path, err)
	}

	return &pdfcpuReader{file: f, ctx: ctx}, nil
}

func (r *pdfcpuReader) NumPage() int {
	return r.ctx.PageCount
}

func (r *pdfcpuReader) PageText(n int) (string, error) {
	if err := checkPage(n, r.NumPage()); err != nil {
		return "", err
	}

	content, err := pdfcpu.ExtractPageContent(r.ctx, n)
	if err != nil {
		return "", fmt.Errorf("extract content of page %d: %w", n, err)
	}
	if content == nil {
		return "", nil
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read content of page %d: %w", n, err)
	}
	return showText(data), nil
}

func (r *pdfcpuReader) Close() error {
	return r.file.Close()
}

// showText collects the string operands of Tj, TJ, ' and " from a content
// stream. Td, TD, T* and Tm start a new line.
func showText(content []byte) string {
	var (
		sb      strings.Builder
		pending []string
	)

	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}

	for i := 0; i < len(content); {
		c := content[i]
		switch {
		case c == '(':
			s, next := literalString(content, i)
			pending = append(pending, s)
			i = next

		case c == '<' && i+1 < len(content) && content[i+1] == '<':
			i += 2

		case c == '<':
			s, next := hexString(content, i)
			pending = append(pending, s)
			i = next

		case c == '%':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}

		case c == '/':
			i++
			for i < len(content) && isRegular(content[i]) {
				i++
			}

		case isRegular(c):
			start := i
			for i < len(content) && isRegular(content[i]) {
				i++
			}
			if !isOperator(content[start]) {
				continue
			}

			switch op := string(content[start:i]); op {
			case "Tj", "TJ":
				sb.WriteString(strings.Join(pending, ""))
			case "'", `"`:
				newline()
				sb.WriteString(strings.Join(pending, ""))
			case "Td", "TD", "T*", "Tm":
				newline()
			case "ID":
				// Inline image data runs until EI.
				if end := bytes.Index(content[i:], []byte("EI")); end >= 0 {
					i += end + 2
				} else {
					i = len(content)
				}
			}
			pending = pending[:0]

		default:
			i++
		}
	}

	return sb.String()
}

// literalString decodes the (...) string starting at content[start].
func literalString(content []byte, start int) (string, int) {
	var buf []byte
	depth := 1
	i := start + 1

	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			i++
			if i >= len(content) {
				return decodeText(buf), i
			}
			switch e := content[i]; e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '\r':
				if i+1 < len(content) && content[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && i+1 < len(content) && content[i+1] >= '0' && content[i+1] <= '7'; k++ {
						i++
						val = val*8 + int(content[i]-'0')
					}
					buf = append(buf, byte(val))
				} else {
					buf = append(buf, e)
				}
			}
		case '(':
			depth++
			buf = append(buf, c)
		case ')':
			depth--
			if depth == 0 {
				return decodeText(buf), i + 1
			}
			buf = append(buf, c)
		default:
			buf = append(buf, c)
		}
		i++
	}
	return decodeText(buf), i
}

// hexString decodes the <...> string starting at content[start].
func hexString(content []byte, start int) (string, int) {
	var (
		buf  []byte
		hi   byte
		half bool
	)

	i := start + 1
	for ; i < len(content) && content[i] != '>'; i++ {
		v, ok := hexValue(content[i])
		if !ok {
			continue
		}
		if half {
			buf = append(buf, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		buf = append(buf, hi<<4)
	}
	if i < len(content) {
		i++
	}
	return decodeText(buf), i
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// decodeText maps single-byte font codes with WinAnsi (cp1252), the encoding
// most simple fonts use.
func decodeText(b []byte) string {
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func isRegular(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0,
		'(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}

func isOperator(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '\'' || c == '"'
}
