package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorenz00k/Betriebsanlagen-check/internal/reader"
)

// These are set at build time via -ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// pdfModules are the PDF libraries whose versions are worth reporting.
var pdfModules = []string{
	"github.com/ledongthuc/pdf",
	"github.com/pdfcpu/pdfcpu",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of pdfextract and its PDF backends",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		info, _ := debug.ReadBuildInfo()

		fmt.Fprintf(w, "pdfextract %s\n", buildVersion(info))
		fmt.Fprintf(w, "  commit:     %s\n", commit)
		fmt.Fprintf(w, "  built:      %s\n", buildDate)
		fmt.Fprintf(w, "  go version: %s\n", runtime.Version())
		fmt.Fprintf(w, "  os/arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(w, "  backends:   %s (default %s)\n", strings.Join(reader.Backends(), ", "), reader.DefaultBackend)
		for _, dep := range depVersions(info, pdfModules) {
			fmt.Fprintf(w, "    %s\n", dep)
		}
	},
}

func currentVersion() string {
	info, _ := debug.ReadBuildInfo()
	return buildVersion(info)
}

// buildVersion prefers the ldflags version and falls back to the module
// version recorded by `go install`.
func buildVersion(info *debug.BuildInfo) string {
	if version != "dev" || info == nil {
		return version
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	return version
}

// depVersions returns "path version" for each of paths linked into the binary.
func depVersions(info *debug.BuildInfo, paths []string) []string {
	if info == nil {
		return nil
	}
	var out []string
	for _, want := range paths {
		for _, dep := range info.Deps {
			if dep.Path != want {
				continue
			}
			if dep.Replace != nil {
				dep = dep.Replace
			}
			out = append(out, dep.Path+" "+dep.Version)
			break
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
