// Package main provides the langid CLI tool.
//
// Usage:
//
//	langid [flags] <command> [args]
//
// Commands:
//
//	detect    - Identify the spoken language of audio clips
//	features  - Show the MFCC features extracted from a clip
//	models    - List, inspect, push and remove language models
//	train     - Fit language models from labelled clips
//	synth     - Write synthetic test tones
//	cache     - Manage the feature cache
//	config    - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.langid/
//	Use 'langid config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/langid/cmd/langid/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
