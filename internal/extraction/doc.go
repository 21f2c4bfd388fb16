// Package extraction turns an intake call transcript into case features.
//
// Two extractors are provided:
//   - HeuristicExtractor: fixed regular expressions, always complete, never fails
//   - LLMExtractor: a structured-output model request, cached by content
//
// The model path is optional. When no provider is configured, or any step
// of the request fails, LLMExtractor.Extract returns an empty
// features.Partial and features.Merge keeps the heuristic values.
//
// # Usage
//
//	completer, err := extraction.NewCompleter(ctx, extraction.Config{
//	    Provider: extraction.ProviderOpenAI,
//	    APIKey:   key,
//	})
//	llm := extraction.NewLLMExtractor(completer, featurecache.NewMemoryCache(0, 0))
//	heur := extraction.NewHeuristicExtractor()
//
//	merged, _ := features.Merge(heur.Extract(t), llm.Extract(ctx, t, anchor))
//
// # Determinism
//
// Requests pin temperature 0, top_p 1 and seed 42. The cache key combines
// ScoringVersion, ExtractionRulesVersion, the model, the seed, the anchor
// date and the canonical transcript, so a repeat call never reaches the
// provider.
//
// # Admission of fault
//
// The model's admission_of_fault boolean is ignored. DecodeResponse
// recomputes it from admission_attribution, admission_rationale and
// admission_evidence; see features.AdmissionMeta.Admits.
package extraction
