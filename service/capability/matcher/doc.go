// Package matcher provides reference matcher capabilities: FactsMatcher scores
// precomputed feature rows with a logistic model, ScriptMatcher delegates to
// an external scorer command.
//
// Both derive the verdict the same way: material issues (missing PO, vendor
// mismatch, amount gap, missing GRN) force a mismatch, otherwise the mismatch
// probability is bucketed into mismatch, partial or match.
package matcher
