package commands

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/langid/pkg/audio/mfcc"
	"github.com/haivivi/langid/pkg/cli"
)

var (
	featuresDump    bool
	featuresNoCache bool
)

var featuresCmd = &cobra.Command{
	Use:   "features <clip>",
	Short: "Show the MFCC features extracted from a clip",
	Long: `Extract MFCC features from a clip exactly as detection does and print
per-coefficient statistics, or the whole matrix with --dump.

Examples:
  langid features clip.wav
  langid features clip.wav --dump --format json > frames.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		ext, closeCache, err := newExtractor(c, featuresNoCache)
		if err != nil {
			return err
		}
		defer closeCache()

		frames, err := ext.Extract(ctx, args[0])
		if err != nil {
			return err
		}

		cfg := ext.Config()
		if featuresDump {
			return outputResult(matrixTable(frames))
		}
		analysed := time.Duration(cfg.MFCC.FrameSize+(frames.Frames()-1)*cfg.MFCC.HopSize) * time.Second / time.Duration(cfg.SampleRate)
		printVerbose("%d frames x %d coefficients covering %s", frames.Frames(), frames.Dim(), cli.FormatDuration(analysed))
		return outputResult(summarize(args[0], frames, analysed))
	},
}

func init() {
	featuresCmd.Flags().BoolVar(&featuresDump, "dump", false, "print every frame")
	featuresCmd.Flags().BoolVar(&featuresNoCache, "no-cache", false, "bypass the feature cache")
}

type coefStats struct {
	Index int     `json:"index" yaml:"index"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Std   float64 `json:"std" yaml:"std"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
}

type featureSummary struct {
	File     string      `json:"file" yaml:"file"`
	Frames   int         `json:"frames" yaml:"frames"`
	Dim      int         `json:"dim" yaml:"dim"`
	Analysed string      `json:"analysed" yaml:"analysed"`
	Coefs    []coefStats `json:"coefficients" yaml:"coefficients"`
}

func (s featureSummary) TableHeader() []string {
	return []string{"COEF", "MEAN", "STD", "MIN", "MAX"}
}

func (s featureSummary) TableRows() [][]string {
	rows := make([][]string, len(s.Coefs))
	for i, c := range s.Coefs {
		rows[i] = []string{
			strconv.Itoa(c.Index),
			cli.FormatScore(c.Mean),
			cli.FormatScore(c.Std),
			cli.FormatScore(c.Min),
			cli.FormatScore(c.Max),
		}
	}
	return rows
}

func summarize(file string, m mfcc.Matrix, analysed time.Duration) featureSummary {
	s := featureSummary{
		File:     file,
		Frames:   m.Frames(),
		Dim:      m.Dim(),
		Analysed: cli.FormatDuration(analysed),
		Coefs:    make([]coefStats, m.Dim()),
	}
	n := float64(m.Frames())
	for j := range s.Coefs {
		c := coefStats{Index: j, Min: math.Inf(1), Max: math.Inf(-1)}
		for _, row := range m {
			c.Mean += row[j]
			c.Min = math.Min(c.Min, row[j])
			c.Max = math.Max(c.Max, row[j])
		}
		c.Mean /= n
		for _, row := range m {
			d := row[j] - c.Mean
			c.Std += d * d
		}
		c.Std = math.Sqrt(c.Std / n)
		s.Coefs[j] = c
	}
	return s
}

// frameMatrix renders a feature matrix as a table while still encoding as
// a plain array of rows.
type frameMatrix [][]float64

func matrixTable(m mfcc.Matrix) frameMatrix { return frameMatrix(m) }

func (f frameMatrix) TableHeader() []string {
	h := []string{"FRAME"}
	if len(f) > 0 {
		for j := range f[0] {
			h = append(h, "C"+strconv.Itoa(j))
		}
	}
	return h
}

func (f frameMatrix) TableRows() [][]string {
	rows := make([][]string, len(f))
	for i, r := range f {
		row := []string{strconv.Itoa(i)}
		for _, v := range r {
			row = append(row, strconv.FormatFloat(v, 'f', 2, 64))
		}
		rows[i] = row
	}
	return rows
}
