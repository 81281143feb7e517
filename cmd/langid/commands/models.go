package commands

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/langid/pkg/cli"
	"github.com/haivivi/langid/pkg/gmm"
	"github.com/haivivi/langid/pkg/langid"
	"github.com/haivivi/langid/pkg/storage"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage language models",
	Long: `List, inspect, upload and remove language models.

A model is a file named <language>.gmm at the top level of the repository.
The repository is --models, the context's S3 bucket or models.dir, or
~/.langid/models.`,
}

var modelsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List models in the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, store, src, err := modelStore(cmd, false)
		if err != nil {
			return err
		}
		entries, err := store.List(ctx, "")
		if err != nil {
			return fmt.Errorf("list %s: %w", src, err)
		}

		var infos modelInfos
		for _, e := range entries {
			if path.Ext(e.Name) != gmm.Ext {
				continue
			}
			infos = append(infos, inspectModel(ctx, store, e))
		}
		if len(infos) == 0 {
			cli.PrintInfo("No models in %s", src)
			return nil
		}
		return outputResult(infos)
	},
}

var modelsInspectCmd = &cobra.Command{
	Use:   "inspect <language>",
	Short: "Show a model's parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, store, _, err := modelStore(cmd, false)
		if err != nil {
			return err
		}
		if err := validLabel(args[0]); err != nil {
			return err
		}
		name := args[0] + gmm.Ext
		data, err := storage.ReadAll(ctx, store, name)
		if err != nil {
			return err
		}
		m, err := gmm.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return outputResult(modelDetail{
			Language:       args[0],
			CovarianceType: string(m.CovarianceType),
			Components:     m.K(),
			Dim:            m.Dim(),
			Weights:        m.Weights,
			Means:          m.Means,
		})
	},
}

var modelsPushLabel string

var modelsPushCmd = &cobra.Command{
	Use:   "push <file.gmm>",
	Short: "Copy a model file into the repository",
	Long: `Validate a model file and copy it into the repository, for example
to publish locally trained models to the context's S3 bucket.

Examples:
  langid -c prod models push ./models/french.gmm
  langid models push fr-v2.gmm --as french`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		m, err := gmm.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if m.Dim() != langid.DefaultDimension {
			return fmt.Errorf("%s: dimension %d, want %d", args[0], m.Dim(), langid.DefaultDimension)
		}

		label := modelsPushLabel
		if label == "" {
			label = strings.TrimSuffix(filepath.Base(args[0]), gmm.Ext)
		}
		if err := validLabel(label); err != nil {
			return err
		}

		ctx, store, src, err := modelStore(cmd, true)
		if err != nil {
			return err
		}
		if err := storage.WriteAll(ctx, store, label+gmm.Ext, data); err != nil {
			return err
		}
		cli.PrintSuccess("Pushed %s to %s", label, src)
		return nil
	},
}

var modelsRmCmd = &cobra.Command{
	Use:     "rm <language>...",
	Aliases: []string{"delete"},
	Short:   "Remove models from the repository",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, store, _, err := modelStore(cmd, false)
		if err != nil {
			return err
		}
		for _, label := range args {
			if err := validLabel(label); err != nil {
				return err
			}
		}
		for _, label := range args {
			name := label + gmm.Ext
			ok, err := store.Exists(ctx, name)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("model %q not found", label)
			}
			if err := store.Delete(ctx, name); err != nil {
				return err
			}
			cli.PrintSuccess("Removed %s", label)
		}
		return nil
	},
}

func init() {
	modelsPushCmd.Flags().StringVar(&modelsPushLabel, "as", "", "language label (default: file name)")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsInspectCmd)
	modelsCmd.AddCommand(modelsPushCmd)
	modelsCmd.AddCommand(modelsRmCmd)
}

func modelStore(cmd *cobra.Command, create bool) (context.Context, storage.FileStore, modelSource, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := getContext()
	if err != nil {
		return nil, nil, modelSource{}, err
	}
	src, err := resolveModels(c)
	if err != nil {
		return nil, nil, src, err
	}
	store, err := openStore(ctx, src, create)
	if err != nil {
		return nil, nil, src, fmt.Errorf("open %s: %w", src, err)
	}
	return ctx, store, src, nil
}

// validLabel rejects labels that would escape the repository or be hidden
// from listings.
func validLabel(label string) error {
	if label == "" || strings.HasPrefix(label, ".") || strings.ContainsAny(label, `/\`) {
		return fmt.Errorf("invalid language label %q", label)
	}
	return nil
}

type modelInfo struct {
	Language       string `json:"language" yaml:"language"`
	Size           int64  `json:"size" yaml:"size"`
	CovarianceType string `json:"covariance_type,omitempty" yaml:"covariance_type,omitempty"`
	Components     int    `json:"components,omitempty" yaml:"components,omitempty"`
	Dim            int    `json:"dim,omitempty" yaml:"dim,omitempty"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
}

type modelInfos []modelInfo

func (m modelInfos) TableHeader() []string {
	return []string{"LANGUAGE", "COVARIANCE", "COMPONENTS", "DIM", "SIZE", "STATUS"}
}

func (m modelInfos) TableRows() [][]string {
	rows := make([][]string, len(m))
	for i, info := range m {
		status := "ok"
		if info.Error != "" {
			status = info.Error
		}
		rows[i] = []string{
			info.Language,
			info.CovarianceType,
			strconv.Itoa(info.Components),
			strconv.Itoa(info.Dim),
			cli.FormatBytes(info.Size),
			status,
		}
	}
	return rows
}

func inspectModel(ctx context.Context, store storage.FileStore, e storage.Entry) modelInfo {
	info := modelInfo{
		Language: strings.TrimSuffix(e.Name, gmm.Ext),
		Size:     e.Size,
	}
	data, err := storage.ReadAll(ctx, store, e.Name)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	m, err := gmm.Unmarshal(data)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.CovarianceType = string(m.CovarianceType)
	info.Components = m.K()
	info.Dim = m.Dim()
	if m.Dim() != langid.DefaultDimension {
		info.Error = fmt.Sprintf("dimension %d, want %d", m.Dim(), langid.DefaultDimension)
	}
	return info
}

type modelDetail struct {
	Language       string      `json:"language" yaml:"language"`
	CovarianceType string      `json:"covariance_type" yaml:"covariance_type"`
	Components     int         `json:"components" yaml:"components"`
	Dim            int         `json:"dim" yaml:"dim"`
	Weights        []float64   `json:"weights" yaml:"weights"`
	Means          [][]float64 `json:"means" yaml:"means"`
}

func (d modelDetail) TableHeader() []string {
	return []string{"COMPONENT", "WEIGHT", "MEAN[0:3]"}
}

func (d modelDetail) TableRows() [][]string {
	rows := make([][]string, len(d.Weights))
	for k, w := range d.Weights {
		mean := d.Means[k]
		if len(mean) > 3 {
			mean = mean[:3]
		}
		parts := make([]string, len(mean))
		for i, v := range mean {
			parts[i] = strconv.FormatFloat(v, 'f', 3, 64)
		}
		rows[k] = []string{strconv.Itoa(k), strconv.FormatFloat(w, 'f', 4, 64), strings.Join(parts, " ")}
	}
	return rows
}
