package facts

import (
	"go/types"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/YuitoSato/gosmartcast/smartcast/contract"
)

// Resolver produces the contract of fn. It returns (nil, nil) for a function
// without a contract.
type Resolver func(fn *types.Func) (*contract.Contract, error)

type cacheEntry struct {
	contract *contract.Contract
	err      error
}

// ContractCache resolves contracts lazily and remembers the outcome for the
// lifetime of one analysis pass. Concurrent lookups of the same function
// share a single resolution. A function whose contract failed to resolve
// stays excluded: every later Lookup returns the same error.
type ContractCache struct {
	resolve Resolver

	mu      sync.RWMutex
	entries map[*types.Func]cacheEntry
	group   singleflight.Group
}

// NewContractCache returns an empty cache backed by resolve.
func NewContractCache(resolve Resolver) *ContractCache {
	return &ContractCache{
		resolve: resolve,
		entries: make(map[*types.Func]cacheEntry),
	}
}

// Lookup returns the contract of fn. Instantiated generic functions share the
// entry of their origin.
func (c *ContractCache) Lookup(fn *types.Func) (*contract.Contract, error) {
	if fn == nil {
		return nil, nil
	}
	fn = fn.Origin()

	c.mu.RLock()
	e, ok := c.entries[fn]
	c.mu.RUnlock()
	if ok {
		return e.contract, e.err
	}

	v, _, _ := c.group.Do(key(fn), func() (any, error) {
		c.mu.RLock()
		e, ok := c.entries[fn]
		c.mu.RUnlock()
		if ok {
			return e, nil
		}
		ct, err := c.resolve(fn)
		e = cacheEntry{contract: ct, err: err}
		c.mu.Lock()
		c.entries[fn] = e
		c.mu.Unlock()
		return e, nil
	})
	e = v.(cacheEntry)
	return e.contract, e.err
}

// Store records a contract that was resolved elsewhere, such as one parsed
// from a declaration in the package under analysis.
func (c *ContractCache) Store(fn *types.Func, ct *contract.Contract, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fn.Origin()] = cacheEntry{contract: ct, err: err}
}

// Len returns the number of resolved functions.
func (c *ContractCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func key(fn *types.Func) string {
	if fn.Pkg() == nil {
		return fn.FullName()
	}
	return fn.Pkg().Path() + " " + fn.FullName()
}
