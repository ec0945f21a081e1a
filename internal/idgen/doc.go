// Package idgen issues opaque identifiers for batches, audit entries and
// approval requests. It sits under internal so that callers treat identifiers
// as strings and tests can stub the generator.
package idgen
