// Package langid identifies the spoken language of a short audio clip.
//
// A clip is decoded, resampled to a fixed rate, truncated to a maximum
// duration and reduced to a matrix of 13 MFCC coefficients per analysis
// window. Every language model in a Registry scores the matrix as the
// average per-frame log-likelihood of a Gaussian mixture; the best scoring
// label is the decision.
//
// # Components
//
//   - [Load] and [LoadStore] build a [Registry] from a directory (or any
//     storage.FileStore) of <label>.gmm files. Unreadable or invalid model
//     files are logged and skipped; a missing directory yields an empty
//     registry.
//   - [Extractor] turns an audio file into an mfcc.Matrix.
//   - [Identifier] combines the two. [Identifier.Detect] returns a label or
//     no decision and never fails loudly; [Identifier.Evaluate] exposes the
//     individual scores.
//
// # Determinism
//
// Extraction has no random components and does not normalise against
// whole-clip statistics (unless CMVN is enabled), so audio beyond the
// maximum duration never influences the result. Ties between models are
// broken by the lexicographically smallest label.
//
// # Example
//
//	reg := langid.Load(ctx, "models")
//	ext, err := langid.NewExtractor(langid.DefaultExtractorConfig())
//	if err != nil {
//		return err
//	}
//	id := langid.New(reg, ext)
//	if lang, ok := id.Detect(ctx, "clip.wav"); ok {
//		fmt.Println(lang)
//	}
package langid
