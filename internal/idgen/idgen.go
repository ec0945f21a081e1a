package idgen

import "github.com/google/uuid"

// NewFunc generates a new identifier; override in tests for stable output.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier.
func New() string { return NewFunc() }

// NewWithPrefix returns prefix-<id>, used for human readable batch ids.
func NewWithPrefix(prefix string) string {
	if prefix == "" {
		return New()
	}
	return prefix + "-" + New()
}
