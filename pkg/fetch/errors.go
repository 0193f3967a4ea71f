package fetch

import (
	"errors"
	"fmt"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

// Sentinel failure categories, mirroring pkg/config/errors.go's
// one-sentinel-per-failure-category taxonomy.
var (
	ErrNotFound      = errors.New("specifier not found")
	ErrBadSpecifier  = errors.New("malformed specifier")
	ErrNoMember      = errors.New("value has no dereferenceable members")
	ErrUnsupportedGen = errors.New("unsupported generator form")
	ErrSchemaInvalid = errors.New("_spec_.yaml failed schema validation")
)

// FetchError carries the specifier and canonical path active when
// resolution failed, the same wrap-with-position shape used throughout
// the spec engine (pkg/resolver.ResolveError, pkg/config/errors.go's
// LoadError).
type FetchError struct {
	Specifier string
	Pos       specyaml.Pos
	Err       error
}

func (e *FetchError) Error() string {
	if e.Pos.File == "" && e.Pos.Line == 0 {
		return fmt.Sprintf("fetch %q: %v", e.Specifier, e.Err)
	}
	return fmt.Sprintf("%s: fetch %q: %v", e.Pos, e.Specifier, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
