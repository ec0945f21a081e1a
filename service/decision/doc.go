// Package decision fuses a matcher result with deterministic business rules
// into a proposed action and its justification.
//
// Rules form a strict priority chain; the first rule whose predicate holds
// wins. Additional materiality predicates are inserted at an explicit
// priority and never change the order of existing rules.
package decision
