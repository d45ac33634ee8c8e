/*
Tmlc drives the core compiler pipeline end to end for manual exercise: parse
a manifest (or a bare source tree), run every pass, and emit canonical IR
and/or LLVM IR text plus a diagnostics report.

Usage:

	tmlc build <manifest-or-root> [--emit-ir] [--emit-llvm] [--json] [--policy path]

It is explicitly not "the driver" (spec.md §1/§6): it implements none of the
package-manager, linker, or formatter functionality those sections place out
of scope, and it picks exactly one entry module per invocation rather than
orchestrating a multi-target build graph.
*/
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/hivellm/tmlc/effect"
	"github.com/hivellm/tmlc/ir"
	"github.com/hivellm/tmlc/llvmir"
	"github.com/hivellm/tmlc/manifest"
	"github.com/hivellm/tmlc/ownership"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/resolver"
	"github.com/hivellm/tmlc/session"
	"github.com/hivellm/tmlc/types"
)

// Exit codes per spec.md §6 "Exit codes (driver convention the core honors)".
const (
	ExitSuccess      = 0
	ExitUserError    = 1
	ExitInternalError = 2
)

var (
	emitIR   = pflag.Bool("emit-ir", false, "write the canonical S-expression IR to stdout")
	emitLLVM = pflag.Bool("emit-llvm", false, "write textual LLVM IR to stdout")
	jsonOut  = pflag.Bool("json", false, "render diagnostics as JSON instead of text")
	policy   = pflag.String("policy", "", "path to a tml.policy.toml capability ceiling")
)

func main() {
	pflag.Parse()
	if pflag.NArg() < 2 || pflag.Arg(0) != "build" {
		fmt.Fprintln(os.Stderr, "usage: tmlc build <manifest-or-root> [--emit-ir] [--emit-llvm] [--json] [--policy path]")
		os.Exit(ExitUserError)
	}
	os.Exit(runGuarded(pflag.Arg(1)))
}

// runGuarded wraps run in a panic recovery boundary so a compiler bug
// (rather than a diagnosed user error) surfaces as exit code 2, per spec.md
// §6's "2 internal error (compiler bug)" convention, instead of an
// unhandled Go panic and stack trace.
func runGuarded(target string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "INTERNAL ERROR:", r)
			code = ExitInternalError
		}
	}()
	return run(target)
}

func run(target string) int {
	entryPath, roots, err := resolveEntry(target)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		return ExitUserError
	}

	sess := session.New(session.Config{
		TargetTriple:    manifest.TargetTriple,
		EmitIR:          *emitIR,
		EmitLLVM:        *emitLLVM,
		JSONDiagnostics: *jsonOut,
		PolicyPath:      *policy,
	})

	loader := resolver.NewLoader(sess.Diags, sess.Sources, roots...)
	prog := loader.Load(entryPath)

	effect.NewChecker(sess.Diags, sess.Policy, prog).Check()

	reg := types.BuildRegistry(prog)
	checker := types.NewChecker(sess.Diags, prog, reg)
	checker.Check()

	own := ownership.NewAnalyzer(sess.Diags, prog, checker)
	own.Check()

	if !sess.Diags.HasErrors() && (*emitIR || *emitLLVM) {
		canon := ir.NewCanonicalizer(reg, checker, sess.StableID)
		tree := canon.Canonicalize(prog)
		if *emitIR {
			fmt.Println(tree.String())
		}
		if *emitLLVM {
			emitter := llvmir.NewEmitter(sess.Diags)
			fmt.Println(emitter.EmitProgram(tree, sess.Config.TargetTriple))
		}
	}

	renderDiagnostics(sess)

	if sess.Diags.HasErrors() {
		return ExitUserError
	}
	return ExitSuccess
}

func renderDiagnostics(sess *session.Session) {
	diags := sess.Diags.Diagnostics()
	if len(diags) == 0 {
		return
	}
	if sess.Config.JSONDiagnostics {
		out, err := reporter.RenderJSON(sess.Sources, diags)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR: rendering diagnostics:", err)
			return
		}
		fmt.Println(string(out))
		return
	}
	var b strings.Builder
	reporter.RenderText(&b, sess.Sources, diags)
	fmt.Fprint(os.Stderr, b.String())
}

// resolveEntry accepts either a tml.yaml manifest path or a bare directory
// of .tml files, and picks the first resolved source file as the single
// entry module this harness loads (SPEC_FULL.md §2.5: "smallest possible
// caller", not a full multi-target build driver).
func resolveEntry(target string) (entryPath string, roots []string, err error) {
	info, statErr := os.Stat(target)
	if statErr != nil {
		return "", nil, statErr
	}

	baseDir := target
	if !info.IsDir() {
		baseDir = filepath.Dir(target)
	}

	if !info.IsDir() && strings.HasSuffix(target, ".yaml") {
		m, err := manifest.Load(target)
		if err != nil {
			return "", nil, err
		}
		files, err := m.Resolve(baseDir)
		if err != nil {
			return "", nil, err
		}
		if len(files) == 0 {
			return "", nil, fmt.Errorf("manifest %s resolved to zero source files", target)
		}
		return filePathToModulePath(files[0], baseDir), []string{baseDir}, nil
	}

	return filePathToModulePath(target, baseDir), []string{baseDir}, nil
}

// filePathToModulePath converts a `.tml` file path under root into the
// dotted module path resolver.Loader expects (spec.md §6 "mod.tml in a
// directory, or <name>.tml alongside the parent").
func filePathToModulePath(file, root string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		rel = file
	}
	rel = strings.TrimSuffix(rel, ".tml")
	rel = strings.TrimSuffix(rel, string(filepath.Separator)+"mod")
	segments := strings.Split(filepath.ToSlash(rel), "/")
	return strings.Join(segments, ".")
}
