// Package session implements the TML Session: the single near-global value
// threaded explicitly through every pass (spec.md §9 "Global state"). It
// owns a source.Map, an intern.Table, a reporter.Sink, a stableid.Table, and
// a Config, all append-only, and nothing else in the pipeline carries
// process-wide state.
package session

import (
	"os"

	"github.com/petermattis/goid"

	"github.com/hivellm/tmlc/effect"
	"github.com/hivellm/tmlc/internal/intern"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/source"
	"github.com/hivellm/tmlc/stableid"
)

// Config carries the driver-facing knobs a Session is constructed with
// (SPEC_FULL.md §2.1). None of it is interpreted by the lexer/parser; later
// passes read the fields relevant to them.
type Config struct {
	TargetTriple    string
	EmitIR          bool
	EmitLLVM        bool
	JSONDiagnostics bool
	PolicyPath      string // "" if no tml.policy.toml is in effect
}

// Session owns the shared, append-only resources of one translation unit
// (spec.md §5: "each core pipeline instance owns its Session ... exclusively").
type Session struct {
	Config   Config
	Sources  *source.Map
	Interner *intern.Table
	Diags    *reporter.Sink
	StableID *stableid.Table
	Policy   *effect.Policy // nil if Config.PolicyPath == ""

	ownerGoroutine int64
}

// New constructs a Session with fresh, empty shared resources. If
// cfg.PolicyPath is set, the capability policy file is loaded immediately;
// a load failure is reported as a diagnostic and Policy stays nil, which is
// equivalent to "no policy" rather than aborting construction.
func New(cfg Config) *Session {
	s := &Session{
		Config:         cfg,
		Sources:        source.NewMap(),
		Interner:       intern.NewTable(),
		Diags:          reporter.NewSink(),
		StableID:       stableid.NewTable(),
		ownerGoroutine: currentGoroutineID(),
	}
	if cfg.PolicyPath != "" {
		pol, err := effect.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			s.Diags.Errorf(reporter.CategoryEffect, "E0601", source.Span{}, "loading capability policy %s: %s", cfg.PolicyPath, err)
		} else {
			s.Policy = pol
		}
	}
	return s
}

// AssertOwnerGoroutine panics if called from a goroutine other than the one
// that constructed s and TMLC_DEBUG_GOROUTINE=1 is set in the environment
// (SPEC_FULL.md §2.1: "enforces the single-owner invariant ... in debug
// builds"). It is a no-op otherwise, matching spec.md §5's description of
// the invariant as a property of correct embedding, not a hard runtime
// requirement in production.
func (s *Session) AssertOwnerGoroutine() {
	if os.Getenv("TMLC_DEBUG_GOROUTINE") != "1" {
		return
	}
	if got := currentGoroutineID(); got != s.ownerGoroutine {
		panic("session: accessed from goroutine " + itoa(got) + ", owned by " + itoa(s.ownerGoroutine))
	}
}

func currentGoroutineID() int64 { return goid.Get() }

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
