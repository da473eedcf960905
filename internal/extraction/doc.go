// Package extraction turns unstructured email text into structured,
// confidence-scored field guesses.
//
// Every extractor is a pure function: text (or an email record) in,
// *FieldGuess out. A nil result means "no evidence", never an error —
// callers must not conflate a miss with a failure.
//
// Extractors work from ordered pattern lists. Order is a contract:
// earlier patterns are more specific, and for fields without per-match
// scoring (status, line of business) the first match wins. Confidence
// for pattern-scored fields comes from a shared helper: base 0.7, +0.1
// when the match starts within the first 200 characters, +0.1 when the
// pattern anchors on an explicit label, capped at MaxAutoConfidence.
package extraction
