// Package stableid computes the refactor-stable item identifiers described
// in spec.md §3 ("Stable ID") and §8 (invariant 3): an eight-hex-digit
// prefix of a hash of module path + item name + normalized signature,
// collision-resolved by appending a one-byte sequence, and always rendered
// with a leading '@'.
package stableid

import (
	"crypto/sha256"
	"encoding/hex"
)

// ID is a stable identifier, rendered as "@xxxxxxxx" or, on collision,
// "@xxxxxxxxyy".
type ID string

// Zero is the sentinel "no ID assigned yet" value.
const Zero ID = ""

// String renders the ID, or "<unassigned>" for the zero value so a stray
// unassigned ID is loud in diagnostics rather than silently printing "@".
func (id ID) String() string {
	if id == Zero {
		return "<unassigned>"
	}
	return string(id)
}

// base computes the raw 32-byte hash of the three key components.
func base(modulePath, itemName, normalizedSignature string) [32]byte {
	h := sha256.New()
	h.Write([]byte(modulePath))
	h.Write([]byte{0})
	h.Write([]byte(itemName))
	h.Write([]byte{0})
	h.Write([]byte(normalizedSignature))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Table assigns and tracks stable IDs for one Session, resolving collisions
// by extending the hex prefix one byte at a time.
type Table struct {
	assigned map[ID]bool
}

// NewTable returns an empty stable-ID table.
func NewTable() *Table {
	return &Table{assigned: map[ID]bool{}}
}

// Assign computes the stable ID for (modulePath, itemName,
// normalizedSignature), resolving any collision against previously assigned
// IDs in this table by appending successive bytes of the hash.
func (t *Table) Assign(modulePath, itemName, normalizedSignature string) ID {
	sum := base(modulePath, itemName, normalizedSignature)
	prefixLen := 4 // bytes -> 8 hex digits
	for prefixLen <= len(sum) {
		candidate := ID("@" + hex.EncodeToString(sum[:prefixLen]))
		if !t.assigned[candidate] {
			t.assigned[candidate] = true
			return candidate
		}
		prefixLen++
	}
	// Astronomically unlikely: every byte of the hash has been consumed.
	// Fall back to the full hash, which is unique by construction.
	full := ID("@" + hex.EncodeToString(sum[:]))
	t.assigned[full] = true
	return full
}

// Reserve marks an ID as already in use, e.g. one preserved verbatim from a
// source-level "@xxxxxxxx" annotation (spec.md §4.7.2: "persist if present
// in source ... and unchanged").
func (t *Table) Reserve(id ID) {
	t.assigned[id] = true
}
