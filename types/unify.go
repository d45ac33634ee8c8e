package types

import "fmt"

// Unifier is a union-find-based type-variable substitution table (spec.md
// §4.4 "A union-find-based unifier handles type variables; occurs-check
// prevents recursive types").
type Unifier struct {
	subst map[int]*Type
	next  int
}

// NewUnifier returns an empty Unifier.
func NewUnifier() *Unifier {
	return &Unifier{subst: map[int]*Type{}}
}

// Fresh allocates a new, unbound type variable.
func (u *Unifier) Fresh() *Type {
	u.next++
	return &Type{Kind: KVar, VarID: u.next}
}

// Resolve follows variable substitutions to a representative type. It does
// not recurse into compound types' children (callers that need a fully
// resolved tree use ResolveDeep).
func (u *Unifier) Resolve(t *Type) *Type {
	for t.Kind == KVar {
		next, ok := u.subst[t.VarID]
		if !ok {
			return t
		}
		t = next
	}
	return t
}

// ResolveDeep resolves t and recursively resolves every child type.
func (u *Unifier) ResolveDeep(t *Type) *Type {
	t = u.Resolve(t)
	switch t.Kind {
	case KNamed:
		args := make([]*Type, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = u.ResolveDeep(a)
		}
		return &Type{Kind: KNamed, Name: t.Name, TypeArgs: args}
	case KFunc:
		params := make([]*Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = u.ResolveDeep(p)
		}
		return &Type{Kind: KFunc, Params: params, Return: u.ResolveDeep(t.Return), Effects: t.Effects}
	case KTuple:
		elems := make([]*Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = u.ResolveDeep(e)
		}
		return &Type{Kind: KTuple, Elems: elems}
	case KArray:
		return &Type{Kind: KArray, Elem: u.ResolveDeep(t.Elem), Len: t.Len}
	case KSlice:
		return &Type{Kind: KSlice, Elem: u.ResolveDeep(t.Elem)}
	case KRef:
		return &Type{Kind: KRef, Elem: u.ResolveDeep(t.Elem), Mut: t.Mut, Lifetime: t.Lifetime}
	default:
		return t
	}
}

// occurs reports whether varID appears free anywhere inside t (after
// resolving substitutions), preventing infinite types from unification.
func (u *Unifier) occurs(varID int, t *Type) bool {
	t = u.Resolve(t)
	switch t.Kind {
	case KVar:
		return t.VarID == varID
	case KNamed:
		for _, a := range t.TypeArgs {
			if u.occurs(varID, a) {
				return true
			}
		}
	case KFunc:
		for _, p := range t.Params {
			if u.occurs(varID, p) {
				return true
			}
		}
		return u.occurs(varID, t.Return)
	case KTuple:
		for _, e := range t.Elems {
			if u.occurs(varID, e) {
				return true
			}
		}
	case KArray, KSlice, KRef:
		return u.occurs(varID, t.Elem)
	}
	return false
}

// UnifyError reports a failed unification (spec.md §4.4 "TypeMismatch").
type UnifyError struct {
	Expected, Found *Type
}

func (e *UnifyError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, found %s", e.Expected, e.Found)
}

// Unify attempts to make a and b equal, binding type variables as needed.
// Numeric widening is NOT performed here (spec.md §4.4 distinguishes
// unification from the separate, explicit widening-coercion step); callers
// that want widening call TryWiden when Unify fails, as
// Checker.checkAssignable does.
func (u *Unifier) Unify(a, b *Type) error {
	a, b = u.Resolve(a), u.Resolve(b)
	if a.Kind == KVar {
		return u.bind(a.VarID, b)
	}
	if b.Kind == KVar {
		return u.bind(b.VarID, a)
	}
	if a.Kind != b.Kind {
		return &UnifyError{Expected: a, Found: b}
	}
	switch a.Kind {
	case KPrimitive:
		if a.Prim != b.Prim {
			return &UnifyError{Expected: a, Found: b}
		}
		return nil
	case KNamed:
		if a.Name != b.Name || len(a.TypeArgs) != len(b.TypeArgs) {
			return &UnifyError{Expected: a, Found: b}
		}
		for i := range a.TypeArgs {
			if err := u.Unify(a.TypeArgs[i], b.TypeArgs[i]); err != nil {
				return err
			}
		}
		return nil
	case KFunc:
		if len(a.Params) != len(b.Params) {
			return &UnifyError{Expected: a, Found: b}
		}
		for i := range a.Params {
			if err := u.Unify(a.Params[i], b.Params[i]); err != nil {
				return err
			}
		}
		return u.Unify(a.Return, b.Return)
	case KTuple:
		if len(a.Elems) != len(b.Elems) {
			return &UnifyError{Expected: a, Found: b}
		}
		for i := range a.Elems {
			if err := u.Unify(a.Elems[i], b.Elems[i]); err != nil {
				return err
			}
		}
		return nil
	case KArray:
		if a.Len != b.Len {
			return &UnifyError{Expected: a, Found: b}
		}
		return u.Unify(a.Elem, b.Elem)
	case KSlice:
		return u.Unify(a.Elem, b.Elem)
	case KRef:
		if a.Mut != b.Mut {
			return &UnifyError{Expected: a, Found: b}
		}
		return u.Unify(a.Elem, b.Elem)
	case KDyn:
		if a.Behavior != b.Behavior {
			return &UnifyError{Expected: a, Found: b}
		}
		return nil
	default:
		return &UnifyError{Expected: a, Found: b}
	}
}

func (u *Unifier) bind(varID int, t *Type) error {
	t = u.Resolve(t)
	if t.Kind == KVar && t.VarID == varID {
		return nil
	}
	if u.occurs(varID, t) {
		return fmt.Errorf("occurs check failed: ?%d occurs in %s", varID, t)
	}
	u.subst[varID] = t
	return nil
}

// TryWiden reports whether `from` can be implicitly widened to `to` under
// spec.md §4.4 "Coercions: Numeric widening when unambiguous" — a narrower
// integer/float primitive of the same signedness widening to a wider one of
// the same primitive family.
func TryWiden(from, to *Type) bool {
	if from.Kind != KPrimitive || to.Kind != KPrimitive {
		return false
	}
	if from.IsInteger() && to.IsInteger() && from.IsUnsigned() == to.IsUnsigned() {
		return NumericWidth(from) <= NumericWidth(to)
	}
	if from.IsFloat() && to.IsFloat() {
		return NumericWidth(from) <= NumericWidth(to)
	}
	return false
}
