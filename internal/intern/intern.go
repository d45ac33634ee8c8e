// Package intern provides a simple append-only string interning table,
// shared by a Session the way protocompile's internal/intern package is
// shared by a compiler run: identifiers and path segments are interned once
// so later passes can compare symbols by integer ID instead of string
// comparison, and so stable-ID hashing has a canonical byte representation
// of every name to hash.
package intern

// ID is an interned string handle. The zero value denotes the empty string.
type ID uint32

// Table is an append-only string interner. Writes never invalidate
// previously returned IDs, matching the Session's append-only resource
// discipline.
type Table struct {
	strs []string
	ids  map[string]ID
}

// NewTable returns an empty interning table.
func NewTable() *Table {
	return &Table{strs: []string{""}, ids: map[string]ID{"": 0}}
}

// Intern returns the ID for s, assigning a new one if s was not seen before.
func (t *Table) Intern(s string) ID {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := ID(len(t.strs))
	t.strs = append(t.strs, s)
	t.ids[s] = id
	return id
}

// Lookup returns the interned string for id, or "" if id is out of range.
func (t *Table) Lookup(id ID) string {
	if int(id) >= len(t.strs) {
		return ""
	}
	return t.strs[id]
}

// Len returns the number of distinct interned strings, including the empty
// string sentinel.
func (t *Table) Len() int {
	return len(t.strs)
}
