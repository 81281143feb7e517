package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/langid/pkg/cli"
	"github.com/haivivi/langid/pkg/langid"
)

var (
	detectScores  bool
	detectNoCache bool
)

var detectCmd = &cobra.Command{
	Use:   "detect <clip>...",
	Short: "Identify the spoken language of audio clips",
	Long: `Identify the spoken language of WAV or MP3 clips.

Only the first seconds of each clip are analysed (5s by default, see
features.max_duration). A clip that cannot be decoded, or a repository
without models, yields no language.

Examples:
  langid detect clip.wav
  langid detect a.wav b.mp3 --format json
  langid detect clip.wav --scores
  langid detect clip.wav --format raw   # just the label`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		reg, src, err := loadRegistry(ctx, c)
		if err != nil {
			return err
		}
		printVerbose("Loaded %d models from %s", reg.Len(), src)

		ext, closeCache, err := newExtractor(c, detectNoCache)
		if err != nil {
			return err
		}
		defer closeCache()

		id := langid.New(reg, ext)
		results := make(detectResults, 0, len(args))
		failed := 0
		for _, path := range args {
			r := detectResult{File: path}
			d, err := id.Evaluate(ctx, path)
			if err != nil {
				r.Error = describeDetectError(err)
				failed++
			} else {
				r.Language = d.Language
				r.Frames = d.Frames
				r.RequestID = d.RequestID
				if detectScores {
					r.Scores = scoreResults(d.Scores)
				}
			}
			results = append(results, r)
		}

		if formatOutput == string(cli.FormatRaw) {
			err = outputResult(results.labels())
		} else {
			err = outputResult(results)
		}
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("no language detected for %d of %d clips", failed, len(args))
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().BoolVar(&detectScores, "scores", false, "include every model's score")
	detectCmd.Flags().BoolVar(&detectNoCache, "no-cache", false, "bypass the feature cache")
}

type scoreResult struct {
	Language string `json:"language" yaml:"language"`
	// Score is nil when the model produced no finite score
	Score *float64 `json:"score" yaml:"score"`
}

type detectResult struct {
	File      string        `json:"file" yaml:"file"`
	Language  string        `json:"language,omitempty" yaml:"language,omitempty"`
	Frames    int           `json:"frames,omitempty" yaml:"frames,omitempty"`
	RequestID string        `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Scores    []scoreResult `json:"scores,omitempty" yaml:"scores,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type detectResults []detectResult

func (r detectResults) TableHeader() []string {
	if r.hasScores() {
		return []string{"FILE", "LANGUAGE", "SCORE", "BEST"}
	}
	return []string{"FILE", "LANGUAGE", "FRAMES"}
}

func (r detectResults) TableRows() [][]string {
	var rows [][]string
	for _, d := range r {
		lang := d.Language
		if lang == "" {
			lang = "- (" + d.Error + ")"
		}
		if !r.hasScores() {
			rows = append(rows, []string{d.File, lang, strconv.Itoa(d.Frames)})
			continue
		}
		if len(d.Scores) == 0 {
			rows = append(rows, []string{d.File, lang, "", ""})
			continue
		}
		for i, s := range d.Scores {
			score := math.NaN()
			if s.Score != nil {
				score = *s.Score
			}
			best := ""
			if i == 0 {
				best = "*"
			}
			rows = append(rows, []string{d.File, s.Language, cli.FormatScore(score), best})
		}
	}
	return rows
}

func (r detectResults) hasScores() bool {
	for _, d := range r {
		if len(d.Scores) > 0 {
			return true
		}
	}
	return false
}

// labels is the raw output: one label per clip, empty when undetected.
func (r detectResults) labels() string {
	var b strings.Builder
	for _, d := range r {
		b.WriteString(d.Language)
		b.WriteByte('\n')
	}
	return b.String()
}

func scoreResults(scores []langid.Score) []scoreResult {
	out := make([]scoreResult, len(scores))
	for i, s := range scores {
		out[i].Language = s.Language
		if !math.IsNaN(s.LogLikelihood) && !math.IsInf(s.LogLikelihood, 0) {
			v := s.LogLikelihood
			out[i].Score = &v
		}
	}
	return out
}

func describeDetectError(err error) string {
	switch {
	case errors.Is(err, langid.ErrNoModels):
		return "no models"
	case errors.Is(err, langid.ErrDecode):
		return "undecodable audio"
	case errors.Is(err, langid.ErrNoDecision):
		return "no usable score"
	}
	return err.Error()
}
