// Package resolver implements the TML name resolver and module loader
// (spec.md §4.3): it turns a set of parsed files into a module dependency
// DAG, builds one ordered symbol table per module, and resolves `use` paths
// and identifier references against those tables, honoring `pub`
// visibility.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/btree"

	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/internal/ext/stringsx"
	"github.com/hivellm/tmlc/internal/toposort"
	"github.com/hivellm/tmlc/lexer"
	"github.com/hivellm/tmlc/parser"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/source"
)

// Symbol is one module-level name: a declaration plus the module that owns
// it. Local let-bindings never appear here (spec.md §4.3 "forward references
// apply only to module-level items").
type Symbol struct {
	Name   string
	Decl   ast.Decl
	Module *Module
}

// Module is one loaded, parsed, and symbol-indexed source file.
type Module struct {
	Path    string // dotted path, e.g. "app.net.http"
	File    source.FileID
	AST     *ast.Module
	Symbols btree.Map[string, *Symbol]
	Uses    []*UseEdge
	Caps    []string
}

// UseEdge is one resolved `use` dependency edge in the module DAG.
type UseEdge struct {
	Alias  string
	Target *Module // nil if the target failed to load
	Span   source.Span
}

// Program is the fully loaded module graph, with modules in dependency-first
// (topological) order: Order[i] never depends on Order[j] for j > i.
type Program struct {
	Modules map[string]*Module
	Order   []*Module
}

// Loader discovers and loads TML modules from a set of root directories,
// mirroring a conventional `mod.tml` / `<name>.tml` layout.
type Loader struct {
	sink   *reporter.Sink
	srcs   *source.Map
	roots  []string
	loaded map[string]*Module
}

// NewLoader returns a Loader that searches roots, in order, for module
// files, reporting diagnostics to sink and recording loaded file text in
// srcs for later position lookups.
func NewLoader(sink *reporter.Sink, srcs *source.Map, roots ...string) *Loader {
	return &Loader{sink: sink, srcs: srcs, roots: roots, loaded: make(map[string]*Module)}
}

// findFile locates the source file implementing the dotted module path,
// preferring "<path>/mod.tml" (a directory module) over "<path>.tml" (a leaf
// module), scanning each root with doublestar so a root may itself contain
// globbed subdirectories (spec.md §6 "module discovery").
func (l *Loader) findFile(path string) (string, error) {
	rel := filepath.Join(stringsx.SplitPath(path)...)
	for _, root := range l.roots {
		dirCandidate := filepath.Join(root, rel, "mod.tml")
		if matches, _ := doublestar.FilepathGlob(dirCandidate); len(matches) == 1 {
			return matches[0], nil
		}
		leafCandidate := filepath.Join(root, rel+".tml")
		if matches, _ := doublestar.FilepathGlob(leafCandidate); len(matches) == 1 {
			return matches[0], nil
		}
	}
	return "", fmt.Errorf("module %q not found under any root", path)
}

// Load parses and symbol-indexes the module at path, loading its transitive
// `use` dependencies as well, and returns a Program in dependency order.
// Cycles are reported as diagnostics rather than causing a panic.
func (l *Loader) Load(entryPath string) *Program {
	entry := l.loadTransitive(entryPath)

	prog := &Program{Modules: l.loaded}
	if entry == nil {
		return prog
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				l.sink.Errorf(reporter.CategoryResolve, "E0401", source.Span{}, "circular module dependency: %v", r)
			}
		}()
		prog.Order = toposort.Sort([]*Module{entry}, func(m *Module) string { return m.Path }, func(m *Module) []*Module {
			deps := make([]*Module, 0, len(m.Uses))
			for _, u := range m.Uses {
				if u.Target != nil {
					deps = append(deps, u.Target)
				}
			}
			return deps
		})
	}()
	return prog
}

// loadTransitive parses path and its transitive `use` dependencies,
// memoizing on dotted path so diamond dependencies are loaded once.
func (l *Loader) loadTransitive(path string) *Module {
	if m, ok := l.loaded[path]; ok {
		return m
	}

	file, err := l.findFile(path)
	if err != nil {
		l.sink.Errorf(reporter.CategoryResolve, "E0402", source.Span{}, "%s", err)
		return nil
	}
	text, err := os.ReadFile(file)
	if err != nil {
		l.sink.Errorf(reporter.CategoryResolve, "E0403", source.Span{}, "reading %s: %s", file, err)
		return nil
	}

	fid := l.srcs.AddFile(file, text)
	lx := lexer.New(l.sink, fid, text)
	p := parser.New(l.sink, fid, lx)
	tree := p.ParseModule(path)

	m := &Module{Path: path, File: fid, AST: tree, Caps: tree.Caps}
	l.loaded[path] = m
	indexSymbols(m)

	for _, use := range tree.Uses {
		depPath := strings.Join(use.Path[:len(use.Path)-1], ".")
		if depPath == "" {
			depPath = use.Path[0]
		}
		dep := l.loadTransitive(depPath)
		alias := use.Alias
		if alias == "" {
			alias = use.Path[len(use.Path)-1]
		}
		m.Uses = append(m.Uses, &UseEdge{Alias: alias, Target: dep, Span: use.Span})
	}
	return m
}

// indexSymbols builds a module's ordered symbol table in one pass over its
// declarations, before any cross-declaration checking happens, which is
// exactly what gives module-level items their forward-reference property
// (spec.md §4.3 "Name binding").
func indexSymbols(m *Module) {
	for _, decl := range m.AST.Decls {
		name := decl.DeclName()
		if name == "" {
			continue
		}
		m.Symbols.Set(name, &Symbol{Name: name, Decl: decl, Module: m})
	}
}

// Lookup resolves a possibly-qualified path (e.g. ["Thing"] or ["http",
// "Client"]) starting from module `from`, honoring `pub` visibility across
// module boundaries (spec.md §4.3 "Visibility").
func Lookup(from *Module, path []string) (*Symbol, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	if len(path) == 1 {
		sym, ok := from.Symbols.Get(path[0])
		if !ok {
			return nil, fmt.Errorf("unresolved name %q in module %q", path[0], from.Path)
		}
		return sym, nil
	}

	alias := path[0]
	var target *Module
	for _, u := range from.Uses {
		if u.Alias == alias {
			target = u.Target
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("unresolved module alias %q", alias)
	}
	sym, err := Lookup(target, path[1:])
	if err != nil {
		return nil, err
	}
	if !declPublic(sym.Decl) {
		return nil, fmt.Errorf("%q is not public in module %q", sym.Name, target.Path)
	}
	return sym, nil
}

func declPublic(d ast.Decl) bool {
	switch v := d.(type) {
	case *ast.FuncDecl:
		return v.Public
	case *ast.StructDecl:
		return v.Public
	case *ast.EnumDecl:
		return v.Public
	case *ast.AliasDecl:
		return v.Public
	case *ast.BehaviorDecl:
		return v.Public
	case *ast.ImplDecl:
		return v.Public
	case *ast.ConstDecl:
		return v.Public
	default:
		return false
	}
}
