// Package tracing wraps OpenTelemetry so that gateway calls and workflow
// stages can be traced without importing the SDK directly.
package tracing
