package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/haivivi/langid/pkg/gmm"
)

// version is overridden at build time with -ldflags "-X ...commands.version=v1.2.3"
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := map[string]any{
			"version":      version,
			"model_format": gmm.FileVersion,
			"go":           runtime.Version(),
			"os":           runtime.GOOS,
			"arch":         runtime.GOARCH,
		}
		if formatOutput == "json" || formatOutput == "yaml" {
			return outputResult(info)
		}
		fmt.Printf("langid %s (model format v%d, %s %s/%s)\n", version, gmm.FileVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil
	},
}
