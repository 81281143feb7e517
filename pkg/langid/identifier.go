package langid

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/langid/pkg/audio/mfcc"
)

// Score is one model's result for a clip.
type Score struct {
	Language string

	// LogLikelihood is the average per-frame log-likelihood. NaN when the
	// model failed to score the clip.
	LogLikelihood float64
}

// Decision is the full outcome of evaluating one clip.
type Decision struct {
	// RequestID correlates the decision with its log lines.
	RequestID string

	// Language is the winning label.
	Language string

	// Frames is the number of feature rows scored.
	Frames int

	// Scores holds every model's score, best first. Ties are ordered by
	// label; NaN scores come last.
	Scores []Score
}

// Identifier picks the best matching language for a clip. It holds no
// mutable state and is safe for concurrent use.
type Identifier struct {
	reg    *Registry
	ext    *Extractor
	logger *slog.Logger
}

// New creates an Identifier over reg and ext. A nil registry is treated as
// empty; ext must not be nil.
func New(reg *Registry, ext *Extractor, opts ...Option) *Identifier {
	o := buildOptions(opts)
	return &Identifier{reg: reg, ext: ext, logger: o.logger}
}

// Registry returns the registry the identifier scores against.
func (id *Identifier) Registry() *Registry { return id.reg }

// Detect returns the label of the best scoring model for the clip at path.
// It reports false, after logging the reason, when the registry is empty,
// the clip cannot be decoded, or no model produced a usable score.
func (id *Identifier) Detect(ctx context.Context, path string) (string, bool) {
	d, err := id.Evaluate(ctx, path)
	if err != nil {
		return "", false
	}
	return d.Language, true
}

// Evaluate scores the clip at path against every model. Errors wrap
// ErrNoModels, ErrDecode or ErrNoDecision.
func (id *Identifier) Evaluate(ctx context.Context, path string) (*Decision, error) {
	requestID := uuid.NewString()
	logger := id.logger.With("requestID", requestID, "path", path)

	if id.reg.Len() == 0 {
		logger.Warn("langid: no models available")
		return nil, ErrNoModels
	}

	start := time.Now()
	frames, err := id.ext.Extract(ctx, path)
	if err != nil {
		logger.Warn("langid: decode failure", "error", err)
		return nil, err
	}

	d, err := id.decide(frames, logger)
	if err != nil {
		return nil, err
	}
	d.RequestID = requestID
	logger.Info("langid: language detected",
		"language", d.Language,
		"score", d.Scores[0].LogLikelihood,
		"frames", d.Frames,
		"elapsed", time.Since(start),
	)
	return d, nil
}

// Classify scores an already extracted feature matrix.
func (id *Identifier) Classify(frames mfcc.Matrix) (*Decision, error) {
	if id.reg.Len() == 0 {
		return nil, ErrNoModels
	}
	if frames.Frames() == 0 {
		return nil, fmt.Errorf("%w: empty feature matrix", ErrDecode)
	}
	d, err := id.decide(frames, id.logger)
	if err != nil {
		return nil, err
	}
	d.RequestID = uuid.NewString()
	return d, nil
}

func (id *Identifier) decide(frames mfcc.Matrix, logger *slog.Logger) (*Decision, error) {
	labels := id.reg.Languages()
	scores := make([]Score, 0, len(labels))
	for _, label := range labels {
		m, _ := id.reg.Model(label)
		s, err := m.Score(frames)
		if err != nil {
			logger.Warn("langid: model failed to score", "language", label, "error", err)
			s = math.NaN()
		}
		logger.Debug("langid: model score", "language", label, "score", s)
		scores = append(scores, Score{Language: label, LogLikelihood: s})
	}

	rankScores(scores)
	if len(scores) == 0 || math.IsNaN(scores[0].LogLikelihood) {
		logger.Warn("langid: no usable scores")
		return nil, ErrNoDecision
	}
	return &Decision{
		Language: scores[0].Language,
		Frames:   frames.Frames(),
		Scores:   scores,
	}, nil
}

// rankScores sorts best first. Equal scores keep lexicographic label order
// so the smallest label wins a tie; NaN sorts after every number.
func rankScores(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i].LogLikelihood, scores[j].LogLikelihood
		switch {
		case math.IsNaN(a) && math.IsNaN(b):
			return scores[i].Language < scores[j].Language
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case a != b:
			return a > b
		}
		return scores[i].Language < scores[j].Language
	})
}
