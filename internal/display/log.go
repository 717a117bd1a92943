package display

import (
	"fmt"
	"io"
	"os"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects normal and error output, e.g. to buffers in tests.
// It returns a function restoring the previous writers.
func SetOutput(out, errOut io.Writer) (restore func()) {
	prevOut, prevErr := stdout, stderr
	stdout, stderr = out, errOut
	return func() {
		stdout, stderr = prevOut, prevErr
	}
}

// ────────────────────────────────────────────────────────────
// Log-level helpers (colored prefixes for CLI output)
// ────────────────────────────────────────────────────────────

// Step prints a pipeline step like "  [1/5] Processing a.pdf"
func Step(step, total int, msg string) {
	fmt.Fprintf(stdout, "  %s%s[%d/%d]%s %s%s%s\n",
		bold, brightCyan, step, total, reset,
		white, msg, reset,
	)
}

// StepDetail prints an indented detail line under a step.
func StepDetail(msg string) {
	fmt.Fprintf(stdout, "        %s%s%s\n", dim+white, msg, reset)
}

// StepResult prints a success result for a step with a highlighted value.
func StepResult(label string, value interface{}) {
	fmt.Fprintf(stdout, "        %s%s✓%s %s%s%s %s%v%s\n",
		brightGreen, bold, reset,
		dim, label, reset,
		bold+brightGreen, value, reset,
	)
}

// StepError prints a failure detail under a step.
func StepError(msg string) {
	fmt.Fprintf(stdout, "        %s%s✗ %s%s\n", brightRed, bold, msg, reset)
}

// Info prints a general info message.
func Info(msg string) {
	fmt.Fprintf(stdout, "  %s%sℹ%s %s\n", brightBlue, bold, reset, msg)
}

// Success prints a green success message.
func Success(msg string) {
	fmt.Fprintf(stdout, "  %s%s✓%s %s\n", brightGreen, bold, reset, msg)
}

// Warn prints a yellow warning message.
func Warn(msg string) {
	fmt.Fprintf(stdout, "  %s%s⚠%s %s%s%s\n", brightYellow, bold, reset, yellow, msg, reset)
}

// ErrorMsg prints a red error message.
func ErrorMsg(msg string) {
	fmt.Fprintf(stderr, "  %s%s✗%s %s%s%s\n", brightRed, bold, reset, red, msg, reset)
}

// Blank prints an empty line.
func Blank() {
	fmt.Fprintln(stdout)
}

// NextSteps prints an ordered list of next steps.
func NextSteps(steps []string) {
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  %s%s🎯 Next Steps%s\n", bold, brightYellow, reset)
	for i, step := range steps {
		fmt.Fprintf(stdout, "    %s%s%d.%s %s\n", bold, brightWhite, i+1, reset, step)
	}
}

// FileCreated prints a file creation notice.
func FileCreated(path string) {
	fmt.Fprintf(stdout, "    %s%s✓%s %s%s%s\n", brightGreen, bold, reset, dim+white, path, reset)
}

// DirCreated prints a directory creation notice.
func DirCreated(path string) {
	fmt.Fprintf(stdout, "    %s%s📁%s %s%s%s\n", brightBlue, bold, reset, dim+white, path, reset)
}
