// Package effect implements the TML effect lattice and the effect &
// capability checker (spec.md §4.6), plus the workspace-wide capability
// ceiling policy (SPEC_FULL.md §2.3).
package effect

import (
	"strings"

	"github.com/BurntSushi/toml"
)

// Row is a set of effect leaves, e.g. {"io.file.read", "system.alloc"}.
// Membership is tested with subeffect-aware Covers, not raw set lookup,
// because "io.file" in a declared row must cover "io.file.read" in an
// inferred one (spec.md §3 "Effect row": "Subeffects flow upward").
type Row map[string]struct{}

// NewRow builds a Row from a list of effect names.
func NewRow(names ...string) Row {
	r := make(Row, len(names))
	for _, n := range names {
		r[n] = struct{}{}
	}
	return r
}

// Add inserts eff into r.
func (r Row) Add(eff string) { r[eff] = struct{}{} }

// Names returns r's members in sorted order, for deterministic diagnostics
// and IR output.
func (r Row) Names() []string {
	out := make([]string, 0, len(r))
	for n := range r {
		out = append(out, n)
	}
	sortStrings(out)
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// isSubeffect reports whether leaf is covered by ceiling under the
// dotted-prefix lattice (spec.md §3: "io.file.read ⊑ io.file ⊑ io").
// "pure" covers only itself (the root of an empty row).
func isSubeffect(leaf, ceiling string) bool {
	if leaf == ceiling {
		return true
	}
	return strings.HasPrefix(leaf, ceiling+".")
}

// Covers reports whether every member of sub is a subeffect of some member
// of r (r ⊒ sub).
func (r Row) Covers(sub Row) bool {
	for leaf := range sub {
		if !r.coversLeaf(leaf) {
			return false
		}
	}
	return true
}

func (r Row) coversLeaf(leaf string) bool {
	for ceiling := range r {
		if isSubeffect(leaf, ceiling) {
			return true
		}
	}
	return false
}

// Missing returns the members of sub not covered by r, sorted, for
// diagnostic reporting (spec.md §4.6, §8 scenario (d)).
func (r Row) Missing(sub Row) []string {
	var missing []string
	for leaf := range sub {
		if !r.coversLeaf(leaf) {
			missing = append(missing, leaf)
		}
	}
	sortStrings(missing)
	return missing
}

// Union returns the set union of a and b without mutating either.
func Union(a, b Row) Row {
	out := make(Row, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

// Intersect returns a∩b under the subeffect lattice: a member of a survives
// if it is covered by b, and vice versa is not required (this implements
// SPEC_FULL.md §2.3's "declared_caps ∩ policy.max_caps", which narrows a
// module's declared caps down to what the policy ceiling allows).
func Intersect(declared, ceiling Row) Row {
	out := make(Row, len(declared))
	for leaf := range declared {
		if ceiling.coversLeaf(leaf) {
			out[leaf] = struct{}{}
		}
	}
	return out
}

// policyFile is the on-disk shape of tml.policy.toml (SPEC_FULL.md §2.3).
type policyFile struct {
	MaxCaps []string `toml:"max_caps"`
}

// Policy is a loaded, parsed workspace capability ceiling.
type Policy struct {
	MaxCaps Row
}

// LoadPolicy parses a tml.policy.toml file at path.
func LoadPolicy(path string) (*Policy, error) {
	var pf policyFile
	if _, err := toml.DecodeFile(path, &pf); err != nil {
		return nil, err
	}
	return &Policy{MaxCaps: NewRow(pf.MaxCaps...)}, nil
}

// Effective applies the policy ceiling to a module's declared caps, per
// SPEC_FULL.md §2.3. A nil Policy leaves declared unchanged.
func (p *Policy) Effective(declared Row) Row {
	if p == nil {
		return declared
	}
	return Intersect(declared, p.MaxCaps)
}
