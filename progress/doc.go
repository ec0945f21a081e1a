// Package progress keeps aggregated per-batch counters (tasks total, matched,
// drafted, failed) that observers can poll or subscribe to while a batch runs.
package progress
