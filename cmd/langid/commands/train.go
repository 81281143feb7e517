package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haivivi/langid/pkg/cli"
	"github.com/haivivi/langid/pkg/gmm"
	"github.com/haivivi/langid/pkg/langid"
	"github.com/haivivi/langid/pkg/storage"
)

var (
	trainManifest   string
	trainComponents int
	trainCovariance string
	trainMaxIter    int
	trainNoCache    bool
)

const defaultComponents = 16

var trainCmd = &cobra.Command{
	Use:   "train [<language> <clip>...]",
	Short: "Fit language models from labelled clips",
	Long: `Fit one Gaussian mixture per language from labelled clips and store
it as <language>.gmm in the repository.

Clips go through the same feature extraction as detection. Either name a
language and its clips on the command line, or describe several languages
in a manifest:

  output: ./models          # optional, defaults to the repository
  components: 16
  covariance_type: diag     # full, diag, spherical or tied
  languages:
    french:
      - clips/fr/*.wav
    english:
      - clips/en/*.mp3

Examples:
  langid train -f train.yaml
  langid train french fr1.wav fr2.wav --components 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		c, err := getContext()
		if err != nil {
			return err
		}

		plan, err := trainingPlan(cmd, args)
		if err != nil {
			return err
		}

		var store storage.FileStore
		dest := plan.output
		if dest != "" {
			store, err = storage.NewLocal(dest)
		} else {
			var src modelSource
			src, err = resolveModels(c)
			if err == nil {
				dest = src.String()
				store, err = openStore(ctx, src, true)
			}
		}
		if err != nil {
			return err
		}

		ext, closeCache, err := newExtractor(c, trainNoCache)
		if err != nil {
			return err
		}
		defer closeCache()

		var results trainResults
		for _, label := range plan.labels {
			r, err := trainLanguage(ctx, ext, store, label, plan.clips[label], plan.k, plan.opts)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			results = append(results, r)
		}
		cli.PrintSuccess("Trained %d models into %s", len(results), dest)
		return outputResult(results)
	},
}

func init() {
	trainCmd.Flags().StringVarP(&trainManifest, "file", "f", "", "training manifest (YAML or JSON, - for stdin)")
	trainCmd.Flags().IntVarP(&trainComponents, "components", "k", 0, "mixture components per language (default 16)")
	trainCmd.Flags().StringVar(&trainCovariance, "covariance", "", "covariance type: full, diag, spherical, tied (default diag)")
	trainCmd.Flags().IntVar(&trainMaxIter, "max-iter", 0, "maximum EM iterations (default 100)")
	trainCmd.Flags().BoolVar(&trainNoCache, "no-cache", false, "bypass the feature cache")
}

type trainPlan struct {
	labels []string
	clips  map[string][]string
	output string
	k      int
	opts   gmm.FitOptions
}

// trainingPlan merges the manifest, positional arguments and flags. Flags
// win over manifest settings.
func trainingPlan(cmd *cobra.Command, args []string) (*trainPlan, error) {
	p := &trainPlan{k: defaultComponents}
	switch {
	case trainManifest != "":
		if len(args) > 0 {
			return nil, fmt.Errorf("clips cannot be combined with --file")
		}
		var m *cli.Manifest
		var err error
		if trainManifest == "-" {
			m, err = cli.LoadManifestFrom(cmd.InOrStdin())
		} else {
			m, err = cli.LoadManifest(trainManifest)
		}
		if err != nil {
			return nil, err
		}
		if p.clips, err = m.Clips(); err != nil {
			return nil, err
		}
		p.labels = m.Labels()
		for _, label := range p.labels {
			if err := validLabel(label); err != nil {
				return nil, err
			}
		}
		p.output = m.OutputDir()
		if m.Components > 0 {
			p.k = m.Components
		}
		p.opts.CovarianceType = gmm.CovarianceType(m.CovarianceType)
		p.opts.MaxIter = m.MaxIter
	case len(args) >= 2:
		if err := validLabel(args[0]); err != nil {
			return nil, err
		}
		p.labels = []string{args[0]}
		p.clips = map[string][]string{args[0]: args[1:]}
	default:
		return nil, fmt.Errorf("provide a manifest with -f, or a language followed by its clips")
	}

	if trainComponents > 0 {
		p.k = trainComponents
	}
	if trainCovariance != "" {
		p.opts.CovarianceType = gmm.CovarianceType(trainCovariance)
	}
	if trainMaxIter > 0 {
		p.opts.MaxIter = trainMaxIter
	}
	if p.opts.CovarianceType != "" && !p.opts.CovarianceType.IsValid() {
		return nil, fmt.Errorf("unknown covariance type %q", p.opts.CovarianceType)
	}
	return p, nil
}

func trainLanguage(ctx context.Context, ext *langid.Extractor, store storage.FileStore, label string, clips []string, k int, opts gmm.FitOptions) (trainResult, error) {
	r := trainResult{Language: label}
	var frames [][]float64
	for _, clip := range clips {
		m, err := ext.Extract(ctx, clip)
		if err != nil {
			if ctx.Err() != nil {
				return r, ctx.Err()
			}
			slog.Warn("langid: skipping training clip", "language", label, "path", clip, "error", err)
			continue
		}
		frames = append(frames, m...)
		r.Clips++
	}
	r.Frames = len(frames)
	printVerbose("%s: %d frames from %d clips", label, r.Frames, r.Clips)

	model, fit, err := gmm.Fit(frames, k, opts)
	if err != nil {
		return r, err
	}
	data, err := gmm.Marshal(model)
	if err != nil {
		return r, err
	}
	if err := storage.WriteAll(ctx, store, label+gmm.Ext, data); err != nil {
		return r, err
	}
	slog.Info("langid: model trained",
		"language", label,
		"frames", r.Frames,
		"iterations", fit.Iterations,
		"converged", fit.Converged,
	)

	r.Components = model.K()
	r.Iterations = fit.Iterations
	r.Converged = fit.Converged
	r.LogLikelihood = fit.LogLikelihood
	return r, nil
}

type trainResult struct {
	Language      string  `json:"language" yaml:"language"`
	Clips         int     `json:"clips" yaml:"clips"`
	Frames        int     `json:"frames" yaml:"frames"`
	Components    int     `json:"components" yaml:"components"`
	Iterations    int     `json:"iterations" yaml:"iterations"`
	Converged     bool    `json:"converged" yaml:"converged"`
	LogLikelihood float64 `json:"log_likelihood" yaml:"log_likelihood"`
}

type trainResults []trainResult

func (t trainResults) TableHeader() []string {
	return []string{"LANGUAGE", "CLIPS", "FRAMES", "K", "ITER", "CONVERGED", "LOG-LIKELIHOOD"}
}

func (t trainResults) TableRows() [][]string {
	rows := make([][]string, len(t))
	for i, r := range t {
		rows[i] = []string{
			r.Language,
			strconv.Itoa(r.Clips),
			strconv.Itoa(r.Frames),
			strconv.Itoa(r.Components),
			strconv.Itoa(r.Iterations),
			strconv.FormatBool(r.Converged),
			cli.FormatScore(r.LogLikelihood),
		}
	}
	return rows
}
