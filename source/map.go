// Package source implements the byte<->(file,line,col) source map shared by
// every later compiler pass. It is intentionally the smallest and most
// stable layer of the pipeline: every AST node, token, and IR node carries a
// Span resolvable through a Map.
package source

import (
	"fmt"
	"sort"
)

// FileID identifies one source file within a Session's Map. Zero is never a
// valid FileID.
type FileID uint32

// Pos is a single byte offset within a file.
type Pos struct {
	File   FileID
	Offset uint32
}

// Span is a half-open byte range [Start, End) within a single file.
type Span struct {
	Start Pos
	End   Pos
}

// IsZero reports whether the span carries no position information, as
// happens for synthetically constructed nodes.
func (s Span) IsZero() bool {
	return s.Start.File == 0 && s.End.File == 0
}

// Position is the decoded, human-facing form of a Pos: a 1-based line and
// column (column counted in UTF-8 bytes from line start, not runes, to keep
// the map itself allocation-free; callers that need rune columns decode the
// line text themselves).
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// fileInfo holds the decoded newline-offset table for one file, built once
// by newFileInfo when the file is added to the Map.
type fileInfo struct {
	name    string
	content []byte
	lines   []uint32 // byte offset of the start of each line; lines[0] == 0
}

func newFileInfo(name string, content []byte) *fileInfo {
	fi := &fileInfo{name: name, content: content, lines: []uint32{0}}
	for i, b := range content {
		if b == '\n' {
			fi.lines = append(fi.lines, uint32(i+1))
		}
	}
	return fi
}

func (fi *fileInfo) position(offset uint32) Position {
	idx := sort.Search(len(fi.lines), func(i int) bool { return fi.lines[i] > offset }) - 1
	if idx < 0 {
		idx = 0
	}
	return Position{
		File:   fi.name,
		Line:   idx + 1,
		Column: int(offset-fi.lines[idx]) + 1,
	}
}

// Map is the append-only registry of source files for one Session. Files are
// never removed or mutated once added (§5: "Shared resources ... are
// owned by the Session ... Writes ... are append-only").
type Map struct {
	files []*fileInfo
}

// NewMap returns an empty source map.
func NewMap() *Map {
	return &Map{files: []*fileInfo{nil}} // index 0 reserved as invalid FileID
}

// AddFile registers a new file and returns its FileID.
func (m *Map) AddFile(name string, content []byte) FileID {
	m.files = append(m.files, newFileInfo(name, content))
	return FileID(len(m.files) - 1)
}

// FileName returns the registered name for id.
func (m *Map) FileName(id FileID) string {
	if int(id) >= len(m.files) || m.files[id] == nil {
		return "<unknown>"
	}
	return m.files[id].name
}

// Content returns the registered bytes for id.
func (m *Map) Content(id FileID) []byte {
	if int(id) >= len(m.files) || m.files[id] == nil {
		return nil
	}
	return m.files[id].content
}

// Position resolves a byte Pos to a human-facing Position.
func (m *Map) Position(p Pos) Position {
	if int(p.File) >= len(m.files) || m.files[p.File] == nil {
		return Position{File: "<unknown>", Line: 0, Column: 0}
	}
	return m.files[p.File].position(p.Offset)
}

// Text returns the source text covered by a Span.
func (m *Map) Text(s Span) string {
	if s.Start.File != s.End.File || int(s.Start.File) >= len(m.files) || m.files[s.Start.File] == nil {
		return ""
	}
	c := m.files[s.Start.File].content
	if int(s.End.Offset) > len(c) || s.Start.Offset > s.End.Offset {
		return ""
	}
	return string(c[s.Start.Offset:s.End.Offset])
}

// SpanString renders a Span the way diagnostics do: "file:line:col".
func (m *Map) SpanString(s Span) string {
	return m.Position(s.Start).String()
}
