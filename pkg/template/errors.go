package template

import (
	"errors"
	"fmt"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

// Sentinel failure categories for template expansion, mirroring
// pkg/config/errors.go's one-sentinel-per-failure-category taxonomy.
var (
	ErrUnknownTemplate = errors.New("unknown template reference")
	ErrBadLoop         = errors.New("malformed index-loop syntax")
	ErrBadModify       = errors.New("malformed _modify_ directive")
	ErrBadPort         = errors.New("malformed port declaration")
	ErrUnknownGuard    = errors.New("unknown guard")
	ErrMaxAttempts     = errors.New("guard retry exhausted max_attempts")
)

// ExpandError carries source position and the namespace path active when
// expansion failed, the same wrap-with-position shape used throughout the
// spec engine (pkg/config/errors.go's LoadError, pkg/resolver.ResolveError).
type ExpandError struct {
	Pos       specyaml.Pos
	Namespace string
	Err       error
}

func (e *ExpandError) Error() string {
	return fmt.Sprintf("%s: expanding %q: %v", e.Pos, e.Namespace, e.Err)
}

func (e *ExpandError) Unwrap() error { return e.Err }

// GuardViolation is returned by a Guard's Check when content is rejected.
// Wrapping the guard's own error keeps the original cause visible through
// errors.Is/As while still naming which guard fired.
type GuardViolation struct {
	GuardName string
	Err       error
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("guard %q: %v", e.GuardName, e.Err)
}

func (e *GuardViolation) Unwrap() error { return e.Err }
