// Package manifest loads the driver-facing tml.yaml manifest and resolves
// it down to the list of source files the core pipeline actually consumes
// (SPEC_FULL.md §2.2, spec.md §6 "Manifest").
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/hivellm/tmlc/internal/ext/mapsx"
	"github.com/hivellm/tmlc/internal/ext/slicesx"
)

// CrateType is one of the four artifact kinds a manifest target may declare
// (spec.md §6 "crate-types").
type CrateType string

const (
	Bin       CrateType = "bin"
	StaticLib CrateType = "staticlib"
	CDyLib    CrateType = "cdylib"
	RLib      CrateType = "rlib"
)

// Target is one `src` entry point plus its crate type and exclude globs.
type Target struct {
	Name       string    `yaml:"name"`
	CrateType  CrateType `yaml:"crate_type"`
	Src        []string  `yaml:"src"`
	Exclude    []string  `yaml:"exclude"`
}

// Manifest is the parsed shape of tml.yaml.
type Manifest struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	Targets []Target `yaml:"targets"`
}

// Load parses the manifest file at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest %s: missing required field 'name'", path)
	}
	return &m, nil
}

// Resolve walks every target's src globs (relative to baseDir, the
// manifest's own directory) and returns the deterministically sorted,
// de-duplicated list of `.tml` source files the core should load, after
// removing anything matched by an exclude glob (spec.md §6: "The core
// consumes only the resolved list of source files").
func (m *Manifest) Resolve(baseDir string) ([]string, error) {
	files := map[string]bool{}
	for _, t := range m.Targets {
		excluded, err := expandAll(baseDir, t.Exclude)
		if err != nil {
			return nil, err
		}
		excludeSet := map[string]bool{}
		for _, e := range excluded {
			excludeSet[e] = true
		}

		matches, err := expandAll(baseDir, t.Src)
		if err != nil {
			return nil, err
		}
		// A target's own src globs may overlap (e.g. "src/**/*.tml" and
		// "src/main.tml"), so dedup within the target before merging it into
		// the cross-target file set.
		matches = slicesx.Dedup(matches, func(f string) string { return f })
		for _, f := range matches {
			if excludeSet[f] {
				continue
			}
			files[f] = true
		}
	}
	return mapsx.SortedKeys(files, func(a, b string) bool { return a < b }), nil
}

func expandAll(baseDir string, globs []string) ([]string, error) {
	var out []string
	for _, g := range globs {
		pattern := filepath.ToSlash(filepath.Join(baseDir, g))
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", g, err)
		}
		out = append(out, matches...)
	}
	return out, nil
}

// TargetTriple is the fixed default target triple a manifest does not
// override; SPEC_FULL.md §2.1 names the session Config field that carries
// it, but a manifest itself has no target-triple field (spec.md §6: the
// core consumes the resolved file list and the target triple as two
// independent inputs).
const TargetTriple = "x86_64-unknown-tml"
