package types

import "fmt"

// MethodInfo is one resolved method signature in an impl table (spec.md §3
// "Behavior impl table").
type MethodInfo struct {
	Name     string
	Params   []*Type
	Return   *Type
	FuncType *Type
}

// ImplEntry is the method table + associated-type bindings for one
// (type_name, behavior_name) pair. BehaviorName == "" marks an inherent
// impl.
type ImplEntry struct {
	TypeName     string
	BehaviorName string
	Methods      map[string]*MethodInfo
	AssocTypes   map[string]*Type
}

// ImplTable is the full `(type_name, behavior_name) -> impl` mapping used
// both for static method-call resolution and for materializing vtables when
// a value is coerced to `dyn Behavior` (spec.md §3 "Behavior impl table").
type ImplTable struct {
	entries map[string][]*ImplEntry // keyed by TypeName; a type may have many impls
}

// NewImplTable returns an empty ImplTable.
func NewImplTable() *ImplTable {
	return &ImplTable{entries: map[string][]*ImplEntry{}}
}

// Add registers an impl.
func (t *ImplTable) Add(e *ImplEntry) {
	t.entries[e.TypeName] = append(t.entries[e.TypeName], e)
}

// Inherent returns the inherent impl for typeName, if any.
func (t *ImplTable) Inherent(typeName string) *ImplEntry {
	for _, e := range t.entries[typeName] {
		if e.BehaviorName == "" {
			return e
		}
	}
	return nil
}

// Behavior returns the impl of behaviorName for typeName, if any.
func (t *ImplTable) Behavior(typeName, behaviorName string) *ImplEntry {
	for _, e := range t.entries[typeName] {
		if e.BehaviorName == behaviorName {
			return e
		}
	}
	return nil
}

// Implements reports whether typeName implements behaviorName.
func (t *ImplTable) Implements(typeName, behaviorName string) bool {
	return t.Behavior(typeName, behaviorName) != nil
}

// ResolveMethod implements spec.md §4.4 "Behavior resolution" steps (a) and
// (b): inherent impls first, then behavior impls registered under exactly
// typeName (matched by name, not by unification). Step (c), `Type::method`
// from imported modules, is not performed here or by the checker's
// method-call path, which calls only this method.
// Ambiguity (more than one behavior impl defines the method, with no
// inherent impl) is reported via the second return listing every
// candidate's behavior name.
func (t *ImplTable) ResolveMethod(typeName, methodName string) (*MethodInfo, []string, error) {
	if inh := t.Inherent(typeName); inh != nil {
		if m, ok := inh.Methods[methodName]; ok {
			return m, nil, nil
		}
	}
	var candidates []*ImplEntry
	for _, e := range t.entries[typeName] {
		if e.BehaviorName == "" {
			continue
		}
		if _, ok := e.Methods[methodName]; ok {
			candidates = append(candidates, e)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, nil, fmt.Errorf("unresolved method %q on type %q", methodName, typeName)
	case 1:
		return candidates[0].Methods[methodName], nil, nil
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.BehaviorName
		}
		return nil, names, fmt.Errorf("ambiguous method %q on type %q: implemented by %v", methodName, typeName, names)
	}
}

// SatisfiesWhere verifies a where-clause obligation `T: B1 + B2 + ...`
// (spec.md §4.4 "Where clauses") for a concrete instantiation typeName, and
// returns the names of any behaviors not implemented.
func (t *ImplTable) SatisfiesWhere(typeName string, behaviors []string) []string {
	var missing []string
	for _, b := range behaviors {
		if !t.Implements(typeName, b) {
			missing = append(missing, b)
		}
	}
	return missing
}
