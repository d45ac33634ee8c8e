package types

import (
	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/resolver"
)

// StructDef is the semantic form of ast.StructDecl: an ordered field list
// plus a name-indexed lookup.
type StructDef struct {
	Name       string
	Generics   []string
	FieldOrder []string
	Fields     map[string]*Type
	Public     map[string]bool
}

// VariantDef is one enum variant's semantic shape: its source-order index
// (the future LLVM tag, spec.md §9 Open Question 2) and payload types.
type VariantDef struct {
	Name    string
	Index   int
	Payload []*Type
}

// EnumDef is the semantic form of ast.EnumDecl.
type EnumDef struct {
	Name     string
	Generics []string
	Variants []*VariantDef
	ByName   map[string]*VariantDef
}

// Registry holds every type/behavior/impl definition resolved from a
// resolver.Program, shared by the checker, the exhaustiveness matrix
// builder, and the IR canonicalizer/emitter.
type Registry struct {
	Structs   map[string]*StructDef
	Enums     map[string]*EnumDef
	Aliases   map[string]*Type
	Behaviors map[string]*ast.BehaviorDecl
	Impls     *ImplTable
	Funcs     map[string]*ast.FuncDecl // qualified "module::name"
}

// BuildRegistry resolves every type-level declaration across prog into a
// Registry. It never fails outright and reports nothing: a named type
// resolves to a KNamed by its last path segment whether or not any
// declaration defines it, and a missing or erroneous type expression
// resolves to Unit.
func BuildRegistry(prog *resolver.Program) *Registry {
	r := &Registry{
		Structs:   map[string]*StructDef{},
		Enums:     map[string]*EnumDef{},
		Aliases:   map[string]*Type{},
		Behaviors: map[string]*ast.BehaviorDecl{},
		Impls:     NewImplTable(),
		Funcs:     map[string]*ast.FuncDecl{},
	}

	// Pass 1: register every named type so field/signature resolution below
	// can forward-reference types declared later in source order or in
	// another module (spec.md §4.3 "forward references ... are allowed for
	// items").
	for _, m := range prog.Order {
		for _, d := range m.AST.Decls {
			switch v := d.(type) {
			case *ast.StructDecl:
				r.Structs[v.Name] = &StructDef{Name: v.Name, Generics: genericNames(v.Generics), Fields: map[string]*Type{}, Public: map[string]bool{}}
			case *ast.EnumDecl:
				r.Enums[v.Name] = &EnumDef{Name: v.Name, Generics: genericNames(v.Generics), ByName: map[string]*VariantDef{}}
			case *ast.BehaviorDecl:
				r.Behaviors[v.Name] = v
			case *ast.FuncDecl:
				r.Funcs[m.Path+"::"+v.Name] = v
			}
		}
	}

	// Pass 2: resolve field/variant/signature types now that every name is
	// known.
	for _, m := range prog.Order {
		for _, d := range m.AST.Decls {
			switch v := d.(type) {
			case *ast.StructDecl:
				sd := r.Structs[v.Name]
				for _, f := range v.Fields {
					sd.FieldOrder = append(sd.FieldOrder, f.Name)
					sd.Fields[f.Name] = r.Resolve(f.Type, sd.Generics)
					sd.Public[f.Name] = f.Public
				}
			case *ast.EnumDecl:
				ed := r.Enums[v.Name]
				for i, variant := range v.Variants {
					vd := &VariantDef{Name: variant.Name, Index: i}
					for _, p := range variant.Payload {
						vd.Payload = append(vd.Payload, r.Resolve(p, ed.Generics))
					}
					ed.Variants = append(ed.Variants, vd)
					ed.ByName[variant.Name] = vd
				}
			case *ast.AliasDecl:
				r.Aliases[v.Name] = r.Resolve(v.Target, genericNames(v.Generics))
			case *ast.ImplDecl:
				r.registerImpl(v)
			}
		}
	}
	return r
}

func genericNames(gens []ast.GenericParam) []string {
	out := make([]string, len(gens))
	for i, g := range gens {
		out[i] = g.Name
	}
	return out
}

// Resolve turns a syntactic ast.TypeExpr into a semantic *Type. A name in
// generics resolves to a bare KNamed placeholder carrying just its name
// (spec.md §3 "type variable produced by inference" for unbound generics at
// the definition site; the checker substitutes concrete types at each call
// site via Substitute).
func (r *Registry) Resolve(te ast.TypeExpr, generics []string) *Type {
	if te == nil {
		return Unit
	}
	switch v := te.(type) {
	case *ast.PrimitiveType:
		return Primitive(v.Name)
	case *ast.NamedType:
		name := v.Path[len(v.Path)-1]
		for _, g := range generics {
			if g == name && len(v.TypeArgs) == 0 {
				return &Type{Kind: KNamed, Name: name}
			}
		}
		args := make([]*Type, len(v.TypeArgs))
		for i, a := range v.TypeArgs {
			args[i] = r.Resolve(a, generics)
		}
		return &Type{Kind: KNamed, Name: name, TypeArgs: args}
	case *ast.FuncType:
		params := make([]*Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = r.Resolve(p, generics)
		}
		return &Type{Kind: KFunc, Params: params, Return: r.Resolve(v.Return, generics), Effects: v.Effects}
	case *ast.TupleType:
		elems := make([]*Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = r.Resolve(e, generics)
		}
		return &Type{Kind: KTuple, Elems: elems}
	case *ast.ArrayType:
		length := int64(-1)
		if lit, ok := v.Len.(*ast.IntLitExpr); ok {
			length = int64(lit.Value)
		}
		return &Type{Kind: KArray, Elem: r.Resolve(v.Elem, generics), Len: length}
	case *ast.SliceType:
		return &Type{Kind: KSlice, Elem: r.Resolve(v.Elem, generics)}
	case *ast.RefType:
		return &Type{Kind: KRef, Elem: r.Resolve(v.Elem, generics), Mut: v.Mut, Lifetime: v.Lifetime}
	case *ast.DynType:
		name := v.BehaviorPath[len(v.BehaviorPath)-1]
		return &Type{Kind: KDyn, Behavior: name}
	case ast.ErrorType:
		return Unit
	default:
		return Unit
	}
}

func (r *Registry) registerImpl(impl *ast.ImplDecl) {
	entry := &ImplEntry{TypeName: impl.Name, BehaviorName: impl.BehaviorName, Methods: map[string]*MethodInfo{}, AssocTypes: map[string]*Type{}}
	generics := genericNames(impl.Generics)
	for _, fn := range impl.Methods {
		params := make([]*Type, 0, len(fn.Params))
		for _, p := range fn.Params {
			params = append(params, r.Resolve(p.Type, generics))
		}
		ret := r.Resolve(fn.Return, generics)
		entry.Methods[fn.Name] = &MethodInfo{
			Name: fn.Name, Params: params, Return: ret,
			FuncType: &Type{Kind: KFunc, Params: params, Return: ret, Effects: fn.Effects},
		}
	}
	for _, at := range impl.AssocTypes {
		entry.AssocTypes[at.Name] = r.Resolve(at.Type, generics)
	}
	r.Impls.Add(entry)
}

// FuncSignature returns the KFunc Type for fn's declared signature.
func (r *Registry) FuncSignature(fn *ast.FuncDecl, generics []string) *Type {
	params := make([]*Type, 0, len(fn.Params))
	for _, p := range fn.Params {
		params = append(params, r.Resolve(p.Type, generics))
	}
	return &Type{Kind: KFunc, Params: params, Return: r.Resolve(fn.Return, generics), Effects: fn.Effects}
}
