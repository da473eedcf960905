// Package matcher is the reconciliation decision engine: it links
// incoming emails to existing cases, assigns high-confidence matches,
// infers status transitions from email text, creates new cases with
// duplicate suppression, and merges duplicate cases.
//
// Matching runs several independent strategies and unions their output.
// Each strategy carries a fixed confidence constant; ranking across
// strategies deliberately compares these constants to pick the best
// available evidence, it is not a calibrated probability. Matches are
// ephemeral: produced fresh per run, never persisted.
package matcher
