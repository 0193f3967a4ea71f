package template

import (
	"errors"
	"sync"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

// Guard validates expanded content (spec §4.6). Guards are registered
// out-of-band by name and attached to a template (or inherited from the
// instantiation site / global configuration); Check receives the fully
// expanded subtree plus the Context it fired under.
type Guard interface {
	Name() string
	Check(content *specyaml.Node, ctx Context) error
}

// Context carries the expansion state a Guard's Check needs to evaluate
// its condition against: the lexical scope active at the instantiation
// site, the namespace path (for diagnostics), and the seed/attempt pair a
// guard can fold into its own eval.NewStream sampling if it needs fresh
// randomness (e.g. a guard that resamples rather than just checks).
type Context struct {
	Scope     scopeLookup
	Namespace string
	Seed      uint64
	Attempt   int
}

// FailMode selects what happens when a Guard's Check fails.
type FailMode string

const (
	// FailReject aborts the entire build with the violation (default).
	FailReject FailMode = "reject"
	// FailRetry re-derives a fresh RNG substream and re-expands, up to
	// MaxAttempts times, discarding all partial state between attempts.
	FailRetry FailMode = "retry"
	// FailPrune removes the offending elements and continues, for a guard
	// that implements Pruner; for any other guard it behaves as FailReject.
	FailPrune FailMode = "prune"
)

// GuardBinding pairs a guard with the failure-mode policy it was attached
// under at a particular instantiation site.
type GuardBinding struct {
	Guard       Guard
	Mode        FailMode
	MaxAttempts int // only meaningful under FailRetry; 1 if unset
}

func (b GuardBinding) maxAttempts() int {
	if b.MaxAttempts <= 0 {
		return 1
	}
	return b.MaxAttempts
}

// GuardRegistry maps guard names to implementations, for templates that
// reference a guard by name rather than attaching a Guard value directly.
type GuardRegistry struct {
	mu     sync.RWMutex
	guards map[string]Guard
}

// NewGuardRegistry returns an empty GuardRegistry.
func NewGuardRegistry() *GuardRegistry {
	return &GuardRegistry{guards: make(map[string]Guard)}
}

// Register adds or replaces a guard under its own Name().
func (r *GuardRegistry) Register(g Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards[g.Name()] = g
}

// Lookup returns the guard registered under name, if any.
func (r *GuardRegistry) Lookup(name string) (Guard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guards[name]
	return g, ok
}

// runGuards applies bindings in order against content. Bindings compose
// (spec §4.6: "guards compose: a template's guards add to, rather than
// replace, guards inherited from the instantiation site or from global
// configuration") — callers are expected to have already concatenated the
// inherited and local binding lists before calling this.
//
// Retry is handled by the caller (Expander.expandWithRetry), since satisfying a
// FailRetry binding requires re-running expansion itself with a fresh
// sub-seed, not just re-checking the same already-expanded content; this
// function reports ErrMaxAttempts-free FailReject/FailPrune outcomes
// directly and returns a *GuardViolation for FailRetry so the caller knows
// to re-expand.
func runGuards(content *specyaml.Node, bindings []GuardBinding, ctx Context) (*specyaml.Node, error) {
	for _, b := range bindings {
		err := b.Guard.Check(content, ctx)
		if err == nil {
			continue
		}
		violation := &GuardViolation{GuardName: b.Guard.Name(), Err: err}
		switch b.Mode {
		case FailPrune:
			// The guard itself is responsible for knowing what "prune" means
			// for its own violation; a guard that supports pruning implements
			// Pruner below. A guard that doesn't is treated as reject.
			if p, ok := b.Guard.(Pruner); ok {
				pruned, perr := p.Prune(content, ctx)
				if perr != nil {
					return nil, &GuardViolation{GuardName: b.Guard.Name(), Err: perr}
				}
				content = pruned
				continue
			}
			return nil, violation
		case FailRetry:
			return nil, violation
		default: // FailReject
			return nil, violation
		}
	}
	return content, nil
}

// Pruner is implemented by guards that know how to remove their own
// offending elements from already-expanded content rather than simply
// failing the whole build.
type Pruner interface {
	Prune(content *specyaml.Node, ctx Context) (*specyaml.Node, error)
}

// isRetry reports whether err is a GuardViolation whose binding mode was
// FailRetry — used by the caller to decide whether to re-expand.
func isRetry(err error, bindings []GuardBinding) bool {
	var v *GuardViolation
	if !errors.As(err, &v) {
		return false
	}
	for _, b := range bindings {
		if b.Guard.Name() == v.GuardName {
			return b.Mode == FailRetry
		}
	}
	return false
}

func guardFor(bindings []GuardBinding, name string) (GuardBinding, bool) {
	for _, b := range bindings {
		if b.Guard.Name() == name {
			return b, true
		}
	}
	return GuardBinding{}, false
}
