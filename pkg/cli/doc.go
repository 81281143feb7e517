// Package cli provides common utilities for the langid command-line tool.
//
// This package includes:
//   - Configuration management (contexts naming a model source plus
//     feature and cache settings)
//   - Output formatting (YAML, JSON, table, raw)
//   - Training manifest loading (YAML/JSON)
//
// Configuration is stored in ~/.langid/config.yaml and supports multiple
// contexts similar to kubectl, so one machine can switch between a local
// model directory and a shared S3 bucket.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig()
//	ctx, err := cfg.ResolveContext("")
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
