package gateway

import (
	"fmt"
	"sort"
)

// Registry is the fixed allowlist of capabilities. It is built once and
// passed by reference into a Gateway.
type Registry struct {
	capabilities map[Name]Capability
}

// NewRegistry builds a registry; nil and duplicate capabilities are rejected.
func NewRegistry(capabilities ...Capability) (*Registry, error) {
	ret := &Registry{capabilities: make(map[Name]Capability, len(capabilities))}
	for _, capability := range capabilities {
		if capability == nil {
			return nil, fmt.Errorf("capability was nil")
		}
		name := capability.Name()
		if _, ok := ret.capabilities[name]; ok {
			return nil, fmt.Errorf("capability %v already registered", name)
		}
		ret.capabilities[name] = capability
	}
	return ret, nil
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	if r == nil {
		return nil, false
	}
	capability, ok := r.capabilities[Name(name)]
	return capability, ok
}

// Names lists registered capabilities in lexical order.
func (r *Registry) Names() []Name {
	var ret []Name
	if r == nil {
		return ret
	}
	for name := range r.capabilities {
		ret = append(ret, name)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}
