// Package gateway is the single choke point through which every external
// capability (matcher, email drafter) is invoked.
//
// A Gateway holds a Registry built once from a closed set of typed
// capabilities. Each call is checked against the registry and an optional
// policy, validated against the capability schema, invoked with panic and
// timeout protection, and recorded as exactly one audit entry. Failures are
// returned as *Error values whose Kind callers switch on.
package gateway
