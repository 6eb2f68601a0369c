// Package decode recovers JSON values from text produced by an untrusted
// generator.
//
// Generators wrap payloads in markdown fences, leave trailing commas, and
// stop mid-structure when they hit an output limit. Decoder runs a fixed
// pipeline of repairs over the text it is given and reports which ones it
// needed:
//
//   - direct parse of the trimmed text (OutcomeClean)
//   - fence stripping and trailing comma removal
//   - closing an open string literal, then brackets, then braces (OutcomeRepaired)
//   - a bounded scan of shorter prefixes, each closed the same way (OutcomeTruncated)
//
// If nothing parses, Decode returns a *DecodeError matching ErrMalformedPayload.
//
// Known limitations: bracket balance is counted over raw characters, so
// braces inside string values are counted as structure; and bracket closers
// are always appended before brace closers, which is right for the usual
// truncated array of objects but not for arbitrary nesting.
//
// Decoder values are immutable after construction and safe for concurrent use.
package decode
