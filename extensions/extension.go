// Package extensions resolves the optional capability modifier attached to a
// request. An extension interprets its own creation parameters and exposes
// extension specific state for the request snapshot.
package extensions

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Extension is a capability modifier bound to an on-ledger address.
type Extension interface {
	// ParseParameters turns raw creation parameters into the fixed-width
	// slots passed to the currency contract. An error aborts creation.
	ParseParameters(params []string) ([][32]byte, error)

	// FetchDetails returns the extension's view of requestID.
	FetchDetails(ctx context.Context, requestID common.Hash) (map[string]any, error)
}

// Registry maps extension addresses to implementations. It is populated once
// at construction and only read afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[common.Address]Extension
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[common.Address]Extension)}
}

// Register binds ext to addr.
func (r *Registry) Register(addr common.Address, ext Extension) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("extension address cannot be zero")
	}
	if ext == nil {
		return fmt.Errorf("extension for %s is nil", addr.Hex())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[addr]; exists {
		return fmt.Errorf("extension %s already registered", addr.Hex())
	}
	r.entries[addr] = ext
	return nil
}

// Resolve returns the extension bound to addr. A missing entry is the
// ordinary "no extension" case, not an error.
func (r *Registry) Resolve(addr common.Address) (Extension, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.entries[addr]
	return ext, ok
}

// Addresses lists the registered extension addresses.
func (r *Registry) Addresses() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Address, 0, len(r.entries))
	for addr := range r.entries {
		out = append(out, addr)
	}
	return out
}
