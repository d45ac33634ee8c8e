// Package linkshim models the shape of the linker-poisoning fallback
// decision (spec.md §5, §9) without implementing the linker itself: the
// actual invocation of LLD is out of scope (spec.md §1 Non-goals), but the
// core driver surface still needs to ask "is the in-process linker usable
// right now" and fall back to a subprocess when it answers no.
package linkshim

import (
	"fmt"
	"os/exec"
)

// Linker links a set of object files into an output artifact. The core
// never implements the object-file/link step itself; this interface is the
// seam a driver collaborator plugs a real backend into.
type Linker interface {
	// Link invokes the linker on inputs, writing to output.
	Link(inputs []string, output string) error

	// Poisoned reports whether a prior failed call has left the linker's
	// global state unusable, per spec.md §5: "the in-process linker
	// reports that its global state has been corrupted by a prior failed
	// call."
	Poisoned() bool
}

// InProcess models an embedded, non-reentrant linker (the normal case).
// Once a call fails, it marks itself poisoned and every subsequent call
// fails fast without attempting to link again, matching spec.md §5's
// description of in-process linker state as something a single failure can
// corrupt for the rest of the process's lifetime.
type InProcess struct {
	poisoned bool
}

// NewInProcess returns an unpoisoned in-process linker.
func NewInProcess() *InProcess { return &InProcess{} }

func (l *InProcess) Poisoned() bool { return l.poisoned }

// Link is a stub: the real LLD invocation is explicitly out of scope
// (spec.md §1). It exists only so the interface and the poisoning state
// machine have a concrete shape to exercise in tests.
func (l *InProcess) Link(inputs []string, output string) error {
	if l.poisoned {
		return fmt.Errorf("linkshim: in-process linker is poisoned, refusing to link")
	}
	if len(inputs) == 0 {
		l.poisoned = true
		return fmt.Errorf("linkshim: no input object files")
	}
	return nil
}

// Subprocess is the fallback linker a driver switches to once InProcess
// reports Poisoned(): it shells out to an external linker binary per link
// invocation, so one failure can never corrupt state for the next call
// (spec.md §5: "may gracefully fall back to a subprocess").
type Subprocess struct {
	// Binary is the external linker executable, e.g. "ld.lld".
	Binary string
}

// NewSubprocess returns a Subprocess fallback linker invoking binary.
func NewSubprocess(binary string) *Subprocess {
	return &Subprocess{Binary: binary}
}

// Poisoned is always false: a subprocess linker starts fresh on every
// invocation, so it has no persistent corruptible state to track.
func (l *Subprocess) Poisoned() bool { return false }

func (l *Subprocess) Link(inputs []string, output string) error {
	args := append(append([]string{}, inputs...), "-o", output)
	cmd := exec.Command(l.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("linkshim: subprocess link failed: %w\n%s", err, out)
	}
	return nil
}

// Fallback selects Subprocess when primary reports Poisoned(), otherwise
// returns primary unchanged, implementing the decision spec.md §5 and §9
// describe as the driver's responsibility to serialize and react to.
func Fallback(primary Linker, subprocessBinary string) Linker {
	if primary.Poisoned() {
		return NewSubprocess(subprocessBinary)
	}
	return primary
}

var (
	_ Linker = (*InProcess)(nil)
	_ Linker = (*Subprocess)(nil)
)
