package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/langid/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

A context names a model repository (local directory or S3 bucket) together
with feature extraction and cache settings, similar to kubectl's contexts.

Configuration is stored in ~/.langid/config.yaml`,
}

var (
	ctxDir      string
	ctxBucket   string
	ctxPrefix   string
	ctxRegion   string
	ctxEndpoint string
)

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add or replace a context",
	Long: `Add a context with the specified name.

Example:
  langid config add-context dev --dir ~/lid/models
  langid config add-context prod --bucket lid-models --prefix v2 --region eu-west-1
  langid config add-context minio --bucket lid --endpoint http://localhost:9000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ctxDir != "" && ctxBucket != "" {
			return fmt.Errorf("--dir and --bucket are mutually exclusive")
		}
		if ctxBucket == "" && (ctxPrefix != "" || ctxRegion != "" || ctxEndpoint != "") {
			return fmt.Errorf("--prefix, --region and --endpoint require --bucket")
		}
		ctx := &cli.Context{
			Models: cli.ModelSource{
				Dir: ctxDir,
				S3: cli.S3Source{
					Bucket:   ctxBucket,
					Prefix:   ctxPrefix,
					Region:   ctxRegion,
					Endpoint: ctxEndpoint,
				},
			},
		}
		if err := getConfig().AddContext(args[0], ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q added successfully", args[0])
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:   "list-contexts",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		names := cfg.ListContexts()
		if len(names) == 0 {
			fmt.Println("No contexts configured. Use 'langid config add-context' to add one.")
			return nil
		}

		tab := cli.Table{Header: []string{"CURRENT", "NAME", "MODELS", "CACHE"}}
		for _, name := range names {
			c := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			models := c.Models.Dir
			if c.Models.UsesS3() {
				models = fmt.Sprintf("s3://%s/%s", c.Models.S3.Bucket, c.Models.S3.Prefix)
			}
			if models == "" {
				models = "(default)"
			}
			cache := "off"
			if c.Cache.Enabled {
				cache = "on"
			}
			tab.Rows = append(tab.Rows, []string{current, name, models, cache})
		}
		return outputResult(tab)
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view [name]",
	Short: "Show a context's settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := contextName
		if len(args) == 1 {
			name = args[0]
		}
		c, err := getConfig().ResolveContext(name)
		if err != nil {
			return err
		}
		tab := cli.Table{Header: []string{"KEY", "VALUE"}}
		for _, key := range cli.ContextKeys() {
			v, _ := c.Get(key)
			tab.Rows = append(tab.Rows, []string{key, v})
		}
		if formatOutput == string(cli.FormatTable) {
			return outputResult(tab)
		}
		return outputResult(c)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting on the current (or -c) context",
	Long: `Set a setting on a context. Keys:

  models.dir  models.s3.bucket  models.s3.prefix  models.s3.region
  models.s3.endpoint  features.max_duration  features.sample_rate
  features.cmvn  cache.enabled  cache.dir  cache.ttl

Example:
  langid config set features.max_duration 3s
  langid -c prod config set cache.enabled true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		name := contextName
		if name == "" {
			name = cfg.CurrentContext
		}
		if name == "" {
			return fmt.Errorf("no context specified. Use -c flag or set a default context with 'langid config use-context'")
		}
		c, err := cfg.GetContext(name)
		if err != nil {
			return err
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		cli.PrintSuccess("%s.%s = %s", name, args[0], args[1])
		return nil
	},
}

func init() {
	configAddContextCmd.Flags().StringVar(&ctxDir, "dir", "", "local model directory")
	configAddContextCmd.Flags().StringVar(&ctxBucket, "bucket", "", "S3 bucket holding the models")
	configAddContextCmd.Flags().StringVar(&ctxPrefix, "prefix", "", "key prefix inside the bucket")
	configAddContextCmd.Flags().StringVar(&ctxRegion, "region", "", "AWS region")
	configAddContextCmd.Flags().StringVar(&ctxEndpoint, "endpoint", "", "S3-compatible endpoint URL")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configSetCmd)
}
