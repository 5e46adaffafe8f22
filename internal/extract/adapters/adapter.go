// Package adapters holds region-specific phone canonicalizers.
//
// Canonicalization is a best-effort approximation for building messaging
// links. It is not a general phone-number library.
package adapters

import (
	"strings"
	"sync"
)

// Adapter canonicalizes a digit-only phone string for one region
type Adapter interface {
	// Region returns the region code (ISO 3166-1 alpha-2)
	Region() string

	// Canonicalize returns digits in international form without "+".
	// Unrecognized shapes are returned unmodified.
	Canonicalize(digits string) string
}

// Registry manages region adapters
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in regions
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make(map[string]Adapter),
		generic:  NewGenericAdapter(),
	}

	registry.Register(NewColombiaAdapter())

	return registry
}

// Register registers an adapter under its region code
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToUpper(adapter.Region())] = adapter
}

// FindAdapter returns the adapter for region, falling back to the
// pass-through adapter for unknown regions.
func (r *Registry) FindAdapter(region string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if adapter, ok := r.adapters[strings.ToUpper(strings.TrimSpace(region))]; ok {
		return adapter
	}
	return r.generic
}

// PrefixAdapter canonicalizes numbers of a country with a fixed
// national significant number length.
type PrefixAdapter struct {
	region      string
	countryCode string
	nationalLen int
}

// Region returns the region code
func (a *PrefixAdapter) Region() string {
	return a.region
}

// Canonicalize prefixes national numbers with the country code and trims
// trailing junk from already-prefixed numbers.
func (a *PrefixAdapter) Canonicalize(digits string) string {
	full := len(a.countryCode) + a.nationalLen
	switch {
	case len(digits) == a.nationalLen:
		return a.countryCode + digits
	case len(digits) == full && strings.HasPrefix(digits, a.countryCode):
		return digits
	case len(digits) > full && strings.HasPrefix(digits, a.countryCode):
		return digits[:full]
	default:
		return digits
	}
}
