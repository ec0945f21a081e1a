// Package policy provides declarative rules narrowing which registered
// capabilities the gateway may invoke, on top of the registry allowlist.
package policy
