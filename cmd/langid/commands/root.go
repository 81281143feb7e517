package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/langid/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	contextName  string
	modelsDir    string
	outputFile   string
	formatOutput string
	verbose      bool

	// Global configuration
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "langid",
	Short: "Spoken language identification",
	Long: `langid - identify the spoken language of audio clips.

Each language is modelled by a Gaussian mixture over MFCC features. A clip
is scored against every model and the best average log-likelihood wins.

Models are <language>.gmm files in a local directory (default
~/.langid/models) or an S3 bucket. Configuration is stored in
~/.langid/config.yaml and supports multiple contexts, similar to kubectl.

Examples:
  # Train two languages from a manifest
  langid train -f train.yaml

  # Identify a clip
  langid detect interview.wav

  # Show every model's score as JSON
  langid detect interview.mp3 --scores --format json

  # Use models from a bucket
  langid config add-context prod --bucket lid-models --region eu-west-1
  langid -c prod detect interview.wav
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.langid/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&modelsDir, "models", "m", "", "local model directory (overrides the context)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "table", "output format: table, json, yaml, raw")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var err error
	globalConfig, err = cli.LoadConfigWithPath(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return cfg.ResolveContext(contextName)
}

// outputResult writes result in the --format selected on the command line
func outputResult(result any) error {
	format, err := cli.ParseFormat(formatOutput)
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputFile,
	})
}

// printVerbose prints verbose output to stderr
func printVerbose(format string, args ...any) {
	cli.PrintVerbose(verbose, format, args...)
}
