// Package model defines the reconciliation data model: batch input rows,
// per invoice tasks, matcher results, the workflow context with its forward
// only status machine, and the batch summary handed to the approval gate.
package model
