package exporter

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]Builder)
	registryMu sync.RWMutex
)

// Register adds a builder to the registry under its target name.
// Panics if a builder for the same target is already registered.
func Register(b Builder) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := strings.ToLower(strings.TrimSpace(b.Target()))
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("exporter already registered: %s", key))
	}
	registry[key] = b
}

// Get returns the builder for a target platform. The error names the
// supported targets so callers can surface it directly.
func Get(target string) (Builder, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(target))
	b, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("target_platform must be one of: %s", strings.Join(targetsLocked(), ", "))
	}
	return b, nil
}

// Targets returns all registered target names in sorted order.
func Targets() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return targetsLocked()
}

func targetsLocked() []string {
	out := make([]string, 0, len(registry))
	for key := range registry {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register(shopifyBuilder{})
	Register(bigcommerceBuilder{})
	Register(wixBuilder{})
	Register(squarespaceBuilder{})
	Register(woocommerceBuilder{})
}
