package reporter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/hivellm/tmlc/source"
)

// RenderText renders diags as human-facing text (SPEC_FULL.md §2.4): one
// block per diagnostic, span-anchored, with related spans indented beneath
// and suggested replacements shown as a unified diff against the original
// source text, mirroring how the teacher's golden-test helper reports a
// mismatch (internal/golden, internal/corpora).
func RenderText(w *strings.Builder, srcs *source.Map, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s: %s[%s]: %s\n", srcs.SpanString(d.Primary), d.Severity, d.Code, d.Message)
		if d.StableID != "" {
			fmt.Fprintf(w, "  stable id: %s\n", d.StableID)
		}
		for _, r := range d.Related {
			fmt.Fprintf(w, "  %s: %s\n", srcs.SpanString(r.Span), r.Label)
		}
		for _, sug := range d.Suggestions {
			renderSuggestion(w, srcs, sug)
		}
	}
}

func renderSuggestion(w *strings.Builder, srcs *source.Map, sug Replacement) {
	original := srcs.Text(sug.Span)
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(sug.New),
		FromFile: "original",
		ToFile:   "suggested",
		Context:  1,
	})
	if err != nil {
		fmt.Fprintf(w, "  suggestion: %s\n", sug.New)
		return
	}
	fmt.Fprintf(w, "  suggestion at %s:\n", srcs.SpanString(sug.Span))
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}

// jsonDiagnostic is the wire shape of one diagnostic in JSON mode
// (spec.md §6 "a machine-readable JSON renderer").
type jsonDiagnostic struct {
	Severity    string            `json:"severity"`
	Category    string            `json:"category"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Primary     string            `json:"primary"`
	Related     []jsonRelated     `json:"related,omitempty"`
	Suggestions []jsonReplacement `json:"suggestions,omitempty"`
	StableID    string            `json:"stable_id,omitempty"`
}

type jsonRelated struct {
	Span  string `json:"span"`
	Label string `json:"label"`
}

type jsonReplacement struct {
	Span string `json:"span"`
	New  string `json:"new"`
}

// jsonReport is the array-wrapped, run-id-stamped envelope RenderJSON
// produces (SPEC_FULL.md §2.4: "stamped with a google/uuid run id").
type jsonReport struct {
	RunID       string           `json:"run_id"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
}

// RenderJSON renders diags as one JSON object holding a fresh run id and
// the array of diagnostics, so a batch of diagnostics from one compilation can be
// correlated by external tooling (spec.md §6, SPEC_FULL.md §2.4).
func RenderJSON(srcs *source.Map, diags []Diagnostic) ([]byte, error) {
	report := jsonReport{RunID: uuid.NewString()}
	for _, d := range diags {
		jd := jsonDiagnostic{
			Severity: d.Severity.String(),
			Category: string(d.Category),
			Code:     d.Code,
			Message:  d.Message,
			Primary:  srcs.SpanString(d.Primary),
			StableID: string(d.StableID),
		}
		for _, r := range d.Related {
			jd.Related = append(jd.Related, jsonRelated{Span: srcs.SpanString(r.Span), Label: r.Label})
		}
		for _, sug := range d.Suggestions {
			jd.Suggestions = append(jd.Suggestions, jsonReplacement{Span: srcs.SpanString(sug.Span), New: sug.New})
		}
		report.Diagnostics = append(report.Diagnostics, jd)
	}
	return json.MarshalIndent(report, "", "  ")
}
