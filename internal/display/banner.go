package display

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ANSI color codes
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"

	red    = "\033[31m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	white  = "\033[37m"

	brightRed     = "\033[91m"
	brightGreen   = "\033[92m"
	brightYellow  = "\033[93m"
	brightBlue    = "\033[94m"
	brightMagenta = "\033[95m"
	brightCyan    = "\033[96m"
	brightWhite   = "\033[97m"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

var numbers = message.NewPrinter(language.English)

// RunInfo holds what is shown in the banner before an extraction run.
type RunInfo struct {
	Version    string
	PDFDir     string
	OutputFile string
	Backend    string
}

// SummaryInfo holds the figures printed after an extraction run.
type SummaryInfo struct {
	Total      int
	Success    int
	Failed     int
	OutputFile string
	Format     string
	TotalChars int
	// EmbedEndpoint is the ingestion endpoint suggested as the next step.
	EmbedEndpoint string
}

// PrintBanner prints the run header with the resolved paths.
func PrintBanner(info RunInfo) {
	w := stdout

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s%s🚀 PDF Text Extraction%s %s%s%s\n", bold, brightCyan, reset, dim, info.Version, reset)
	fmt.Fprintf(w, "  %s%s%s%s\n", dim, cyan, rule, reset)
	printKV(w, "Input", info.PDFDir, brightWhite)
	printKV(w, "Output", info.OutputFile, brightWhite)
	printKV(w, "Backend", info.Backend, brightMagenta)
	fmt.Fprintln(w)
}

// PrintSummary prints the totals of a finished run and the follow-up command.
func PrintSummary(info SummaryInfo) {
	w := stdout

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s%s%s%s\n", dim, cyan, rule, reset)
	fmt.Fprintf(w, "  %s%s✓ PDF EXTRACTION COMPLETE%s\n", bold, brightGreen, reset)
	fmt.Fprintf(w, "  %s%s%s%s\n", dim, cyan, rule, reset)

	printSectionHeader(w, "📊 Results")
	printKVColored(w, "Total PDFs", FormatCount(info.Total), brightWhite)
	printKVColored(w, "Successful", FormatCount(info.Success), brightGreen)
	failedColor := dim + white
	if info.Failed > 0 {
		failedColor = brightRed
	}
	printKVColored(w, "Failed", FormatCount(info.Failed), failedColor)
	printKV(w, "Output file", info.OutputFile, brightWhite)
	if info.Format != "" {
		printKV(w, "Layout", info.Format, dim+white)
	}
	printKVColored(w, "Characters", FormatCount(info.TotalChars), brightYellow)

	if info.EmbedEndpoint != "" {
		NextSteps([]string{
			"Run the API to process and upload the extracted text:",
			"curl -X POST " + info.EmbedEndpoint,
		})
	}
	fmt.Fprintln(w)
}

// FormatCount renders n with thousands separators, e.g. 1,234,567.
func FormatCount(n int) string {
	return numbers.Sprintf("%d", n)
}

func printSectionHeader(w io.Writer, title string) {
	fmt.Fprintf(w, "\n  %s%s%s%s\n", bold, brightYellow, title, reset)
}

func printKV(w io.Writer, key, value, valueColor string) {
	paddedKey := padRight(key, 18)
	fmt.Fprintf(w, "    %s%s%s  %s%s%s\n", dim, paddedKey, reset, valueColor, value, reset)
}

func printKVColored(w io.Writer, key, value, valueColor string) {
	paddedKey := padRight(key, 18)
	fmt.Fprintf(w, "    %s%s%s  %s%s%s%s\n", dim, paddedKey, reset, bold, valueColor, value, reset)
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
