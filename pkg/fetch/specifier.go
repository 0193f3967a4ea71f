package fetch

import "strings"

// specKind discriminates the four specifier forms spec §4.7 names, in
// resolution-order priority.
type specKind int

const (
	specAbsolute specKind = iota // begins with "/"
	specRelative                 // begins with "./"
	specPathSlash                // contains "/" but neither of the above
	specDotted                   // contains no "/" at all
)

// classify determines a specifier's syntactic form. Order matters: an
// absolute path is checked before relative, relative before "contains a
// slash", and only a specifier with no slash at all is dotted.
func classify(specifier string) specKind {
	switch {
	case strings.HasPrefix(specifier, "/"):
		return specAbsolute
	case strings.HasPrefix(specifier, "./"):
		return specRelative
	case strings.Contains(specifier, "/"):
		return specPathSlash
	default:
		return specDotted
	}
}

// splitDotted separates a dotted specifier ("bio.cells.glucose") into its
// first segment (checked against the in-memory module registry) and the
// remaining dotted path (dereferenced as member access, or converted to a
// filesystem path when the first segment isn't a registered module).
func splitDotted(specifier string) (head string, rest []string) {
	segs := strings.Split(specifier, ".")
	return segs[0], segs[1:]
}

// dottedToPath converts every segment but the last of a dotted specifier
// into path separators, leaving the final segment as the candidate file
// base name — spec §4.7 item 4: "converting dots before the final segment
// to path separators".
func dottedToPath(specifier string) (dir string, base string) {
	segs := strings.Split(specifier, ".")
	if len(segs) == 1 {
		return "", segs[0]
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1]
}

// splitTrailingDeref peels trailing dot-separated segments off the final
// path component of a path-form specifier ("a/b/c.x.y"): base is the
// actual DAT name ("c"), deref is the dotted path to look up inside its
// loaded content ("x.y", as its own segments) once loaded — spec §4.7:
// "load a/b/c's index and then dereference .x.y into its content (deref
// happens BEFORE hydration)".
func splitTrailingDeref(pathSpec string) (datPath string, deref []string) {
	dir, last := "", pathSpec
	if idx := strings.LastIndex(pathSpec, "/"); idx >= 0 {
		dir, last = pathSpec[:idx], pathSpec[idx+1:]
	}
	parts := strings.Split(last, ".")
	if len(parts) == 1 {
		return pathSpec, nil
	}
	base := parts[0]
	deref = parts[1:]
	if dir == "" {
		return base, deref
	}
	return dir + "/" + base, deref
}
