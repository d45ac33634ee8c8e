// Package reporter defines TML's diagnostic model and the pluggable sink
// that every compiler pass writes into. It generalizes the
// bufbuild/protocompile reporter package (ErrorWithPos, a Reporter
// interface, and a Handler that decides whether to keep going) to the
// richer diagnostic shape spec.md §6 requires: severities, error codes,
// related spans, suggested replacements, and an optional stable ID.
package reporter

import (
	"fmt"

	"github.com/hivellm/tmlc/source"
	"github.com/hivellm/tmlc/stableid"
)

// Severity is the fixed diagnostic severity lattice from spec.md §6.
type Severity int

const (
	Hint Severity = iota
	Info
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Hint:
		return "hint"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Category buckets a diagnostic by which pass produced it (spec.md §7).
type Category string

const (
	CategoryLex        Category = "lex"
	CategoryParse      Category = "parse"
	CategoryResolve    Category = "resolve"
	CategoryType       Category = "type"
	CategoryOwnership  Category = "ownership"
	CategoryEffect     Category = "effect"
	CategoryIREmit     Category = "ir-emit"
	CategoryInternal   Category = "internal"
)

// RelatedSpan annotates a secondary location on a diagnostic, e.g. the
// earlier borrow that conflicts with one reported at the primary span.
type RelatedSpan struct {
	Span  source.Span
	Label string
}

// Replacement is a suggested fix: replace the text covered by Span with New.
type Replacement struct {
	Span source.Span
	New  string
}

// Diagnostic is one structured record as specified in spec.md §6.
type Diagnostic struct {
	Severity    Severity
	Category    Category
	Code        string // "E####"
	Message     string
	Primary     source.Span
	Related     []RelatedSpan
	Suggestions []Replacement
	StableID    stableid.ID // zero value if not yet assigned / not applicable
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code, d.Message)
}

// GetPosition mirrors protocompile's reporter.ErrorWithPos so TML
// diagnostics satisfy the same "error with a location" shape.
func (d Diagnostic) GetPosition() source.Span { return d.Primary }

func (d Diagnostic) Unwrap() error { return fmt.Errorf("%s", d.Message) }

// Sink accumulates diagnostics for one Session. Unlike protocompile's
// Reporter (which can abort compilation by returning a non-nil error on
// Error), TML's pipeline always runs every pass whose inputs are available
// (spec.md §7); the Sink's only job is to record and later answer "did we
// see an error".
type Sink struct {
	diags   []Diagnostic
	hasErr  bool
}

// NewSink returns an empty diagnostic sink.
func NewSink() *Sink {
	return &Sink{}
}

// Report appends a diagnostic. Append-only, matching the Session's resource
// discipline (spec.md §5, §9).
func (s *Sink) Report(d Diagnostic) {
	s.diags = append(s.diags, d)
	if d.Severity == Error {
		s.hasErr = true
	}
}

// Errorf is a convenience for reporting a simple error-severity diagnostic.
func (s *Sink) Errorf(cat Category, code string, span source.Span, format string, args ...any) {
	s.Report(Diagnostic{
		Severity: Error,
		Category: cat,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Primary:  span,
	})
}

// HasErrors reports whether any error-severity diagnostic has been recorded.
func (s *Sink) HasErrors() bool {
	return s.hasErr
}

// Diagnostics returns all recorded diagnostics in report order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.diags
}

// ExitCode implements spec.md §6's exit-code convention for the core's
// portion of the decision (1 on user error; the internal-error code 2 is
// reserved for the caller to set when a pass panics/aborts outright).
func (s *Sink) ExitCode() int {
	if s.hasErr {
		return 1
	}
	return 0
}
