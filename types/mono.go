package types

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// InstanceKey identifies one monomorphization: a generic symbol plus a
// concrete type-argument list (spec.md §4.4 "The monomorphization cache is
// keyed on (symbol, type-argument list)").
type InstanceKey struct {
	Symbol   string
	TypeArgs string // TypeArgs rendered via argsKey, so the key is comparable
}

func argsKey(args []*Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}

// Instance is one cached monomorphized signature.
type Instance struct {
	Key     InstanceKey
	Func    *Type // the instantiated function type
}

// MonoCache is the generic-instantiation cache described in spec.md §4.4.
// It is guarded by golang.org/x/sync/singleflight so that a driver fanning
// out translation units in parallel (spec.md §5) never computes the same
// instantiation twice even if two units request it concurrently
// (SPEC_FULL.md §1 "types package: the monomorphization cache ... is
// singleflight-guarded").
type MonoCache struct {
	mu    sync.RWMutex
	cache map[InstanceKey]*Instance
	group singleflight.Group
}

// NewMonoCache returns an empty MonoCache.
func NewMonoCache() *MonoCache {
	return &MonoCache{cache: map[InstanceKey]*Instance{}}
}

// GetOrCreate returns the cached Instance for (symbol, typeArgs), computing
// it with build if absent. Concurrent calls for the same key block on one
// another and share the single build's result.
func (c *MonoCache) GetOrCreate(symbol string, typeArgs []*Type, build func() *Type) *Instance {
	key := InstanceKey{Symbol: symbol, TypeArgs: argsKey(typeArgs)}

	c.mu.RLock()
	if inst, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return inst
	}
	c.mu.RUnlock()

	sfKey := key.Symbol + "\x00" + key.TypeArgs
	v, _, _ := c.group.Do(sfKey, func() (any, error) {
		c.mu.RLock()
		if inst, ok := c.cache[key]; ok {
			c.mu.RUnlock()
			return inst, nil
		}
		c.mu.RUnlock()

		inst := &Instance{Key: key, Func: build()}
		c.mu.Lock()
		c.cache[key] = inst
		c.mu.Unlock()
		return inst, nil
	})
	return v.(*Instance)
}

// Len reports how many distinct instantiations have been cached.
func (c *MonoCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Substitute replaces generic parameter names appearing as KNamed
// zero-argument types inside t with their bound concrete types from
// bindings, used to instantiate a generic function's signature at a call
// site (spec.md §4.4 "Generic functions are monomorphized on demand").
func Substitute(t *Type, bindings map[string]*Type) *Type {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case KNamed:
		if len(t.TypeArgs) == 0 {
			if bound, ok := bindings[t.Name]; ok {
				return bound
			}
			return t
		}
		args := make([]*Type, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = Substitute(a, bindings)
		}
		return &Type{Kind: KNamed, Name: t.Name, TypeArgs: args}
	case KFunc:
		params := make([]*Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = Substitute(p, bindings)
		}
		return &Type{Kind: KFunc, Params: params, Return: Substitute(t.Return, bindings), Effects: t.Effects}
	case KTuple:
		elems := make([]*Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = Substitute(e, bindings)
		}
		return &Type{Kind: KTuple, Elems: elems}
	case KArray:
		return &Type{Kind: KArray, Elem: Substitute(t.Elem, bindings), Len: t.Len}
	case KSlice:
		return &Type{Kind: KSlice, Elem: Substitute(t.Elem, bindings)}
	case KRef:
		return &Type{Kind: KRef, Elem: Substitute(t.Elem, bindings), Mut: t.Mut, Lifetime: t.Lifetime}
	default:
		return t
	}
}
