// Package fetch implements the Fetch & Lookup layer (spec §4.7): specifier
// resolution across absolute paths, relative paths, path-with-slash
// specifiers, and dotted names; DAT folder/single-file loading; identity
// caching keyed by canonical filesystem path; and the scope.Fallback hook
// that lets an unresolved dotted name fall through from the scope graph
// into this layer.
package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oblinger/alienbio/pkg/registry"
	"github.com/oblinger/alienbio/pkg/resolver"
	"github.com/oblinger/alienbio/pkg/scope"
	"github.com/oblinger/alienbio/pkg/specyaml"
)

// datLocation is the result of resolving a specifier down to a concrete
// filesystem target, before anything is parsed.
type datLocation struct {
	canonical string // absolute path; the identity-cache key
	indexPath string // file actually read (index.yaml, or the single file)
	specPath  string // _spec_.yaml path, if present (folder DATs only)
}

// Fetcher is the process-wide Fetch & Lookup implementation. It is safe
// for concurrent use; the fetch cache is the one process-wide mutable
// store the concurrency model (spec §5) calls out as needing
// serialization.
type Fetcher struct {
	mu       sync.Mutex
	Roots    []string       // configured filesystem roots, in search order
	Modules  map[string]any // registered in-memory modules, by dotted-name head
	Registry *registry.Registry

	resolver *resolver.Resolver
	cache    map[string]any            // identity cache: canonical[#deref] -> hydrated value
	rawCache map[string]*specyaml.Node // canonical -> resolved (unhydrated) tree
}

// New constructs a Fetcher rooted at roots, hydrating typed elements with
// reg. The fetch layer owns its own Reference Resolver, wired to load
// !include targets through this same specifier grammar.
func New(roots []string, reg *registry.Registry) *Fetcher {
	f := &Fetcher{
		Roots:    roots,
		Modules:  make(map[string]any),
		Registry: reg,
		cache:    make(map[string]any),
		rawCache: make(map[string]*specyaml.Node),
	}
	f.resolver = resolver.New(f.loadInclude)
	return f
}

// RegisterModule makes m visible as the first segment of a dotted
// specifier. Lookup MUST NOT dynamically import source modules (spec
// §4.7); this is the only way a dotted name's head resolves to something
// other than a filesystem root scan.
func (f *Fetcher) RegisterModule(name string, m any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Modules[name] = m
}

// Resolve implements scope.Fallback: consulted when a dotted name's first
// segment isn't found anywhere in the active scope chain.
func (f *Fetcher) Resolve(dotted string) (any, error) {
	return f.Fetch(dotted)
}

var _ scope.Fallback = (*Fetcher)(nil)

// Fetch resolves specifier per spec §4.7's five-step order and returns its
// built, hydrated value.
func (f *Fetcher) Fetch(specifier string) (any, error) {
	return f.fetchFrom("", specifier)
}

// FetchFrom resolves specifier the same way, treating "./"-relative forms
// as relative to baseDir (the directory of the DAT the caller is
// currently inside) rather than the process's working directory.
func (f *Fetcher) FetchFrom(baseDir, specifier string) (any, error) {
	return f.fetchFrom(baseDir, specifier)
}

func (f *Fetcher) fetchFrom(base, specifier string) (any, error) {
	switch classify(specifier) {
	case specAbsolute:
		return f.fetchPathSpecifier(specifier)
	case specRelative:
		rel := strings.TrimPrefix(specifier, "./")
		return f.fetchPathSpecifier(filepath.Join(base, rel))
	case specPathSlash:
		return f.fetchPathSpecifier(filepath.Join(base, specifier))
	default:
		return f.fetchDotted(specifier)
	}
}

// FetchRaw bypasses the identity cache and hydration, returning the
// reference-resolved (but not scope-built) tree a path specifier points
// at. Used by callers — the Template Expander's loader among them — that
// need a Node tree rather than a hydrated value.
func (f *Fetcher) FetchRaw(specifier string) (*specyaml.Node, error) {
	var pathSpec string
	switch classify(specifier) {
	case specAbsolute, specPathSlash:
		pathSpec = specifier
	case specRelative:
		pathSpec = strings.TrimPrefix(specifier, "./")
	default:
		return nil, &FetchError{Specifier: specifier, Err: fmt.Errorf("%w: FetchRaw requires a path specifier, got a dotted name", ErrBadSpecifier)}
	}

	datPath, deref := splitTrailingDeref(pathSpec)
	loc, err := locateDAT(datPath)
	if err != nil {
		return nil, &FetchError{Specifier: specifier, Err: err}
	}
	resolved, err := f.loadResolved(loc)
	if err != nil {
		return nil, &FetchError{Specifier: specifier, Err: err}
	}
	node := resolved
	for _, seg := range deref {
		node = node.Get(seg)
		if node == nil {
			return nil, &FetchError{Specifier: specifier, Err: fmt.Errorf("%w: %s", ErrNotFound, strings.Join(deref, "."))}
		}
	}
	return node, nil
}

func (f *Fetcher) fetchPathSpecifier(pathSpec string) (any, error) {
	datPath, deref := splitTrailingDeref(pathSpec)
	loc, err := locateDAT(datPath)
	if err != nil {
		return nil, &FetchError{Specifier: pathSpec, Err: err}
	}
	resolved, err := f.loadResolved(loc)
	if err != nil {
		return nil, &FetchError{Specifier: pathSpec, Err: err}
	}

	// Trailing dotted segments dereference into the still-raw content
	// before anything is hydrated (spec §4.7: "deref happens BEFORE
	// hydration — hydrated entities need not support arbitrary dict
	// access").
	node := resolved
	cacheKey := loc.canonical
	if len(deref) > 0 {
		for _, seg := range deref {
			node = node.Get(seg)
			if node == nil {
				return nil, &FetchError{Specifier: pathSpec, Err: fmt.Errorf("%w: %s", ErrNotFound, strings.Join(deref, "."))}
			}
		}
		cacheKey = loc.canonical + "#" + strings.Join(deref, ".")
	}
	return f.buildCached(cacheKey, node)
}

func (f *Fetcher) fetchDotted(specifier string) (any, error) {
	head, rest := splitDotted(specifier)

	f.mu.Lock()
	mod, ok := f.Modules[head]
	f.mu.Unlock()
	if ok {
		cur := mod
		for _, seg := range rest {
			m, ok := cur.(scope.Member)
			if !ok {
				return nil, &FetchError{Specifier: specifier, Err: fmt.Errorf("%w: segment %q", ErrNoMember, seg)}
			}
			next, ok := m.Member(seg)
			if !ok {
				return nil, &FetchError{Specifier: specifier, Err: fmt.Errorf("%w: %s", ErrNotFound, specifier)}
			}
			cur = next
		}
		return cur, nil
	}

	loc, err := f.resolveDottedPath(specifier)
	if err != nil {
		return nil, &FetchError{Specifier: specifier, Err: err}
	}
	resolved, err := f.loadResolved(loc)
	if err != nil {
		return nil, &FetchError{Specifier: specifier, Err: err}
	}
	return f.buildCached(loc.canonical, resolved)
}

// loadResolved loads and reference-resolves the DAT at loc, caching the
// resolved (but not yet hydrated) tree by canonical path — so multiple
// specifiers that deref into different parts of the same file share one
// parse+resolve pass.
func (f *Fetcher) loadResolved(loc datLocation) (*specyaml.Node, error) {
	f.mu.Lock()
	if n, ok := f.rawCache[loc.canonical]; ok {
		f.mu.Unlock()
		return n, nil
	}
	f.mu.Unlock()

	raw, err := specyaml.Load(loc.indexPath)
	if err != nil {
		return nil, err
	}
	resolved, err := f.resolver.Resolve(loc.canonical, raw)
	if err != nil {
		return nil, err
	}

	if loc.specPath != "" {
		if _, err := validateSpecFile(loc.specPath); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	f.rawCache[loc.canonical] = resolved
	f.mu.Unlock()
	return resolved, nil
}

// buildCached builds and hydrates node (scope.Build + registry.Hydrate),
// caching the result under key so repeat fetches of the same canonical
// target return the identical object instance (spec §4.7's ORM-style
// identity guarantee).
func (f *Fetcher) buildCached(key string, node *specyaml.Node) (any, error) {
	f.mu.Lock()
	if v, ok := f.cache[key]; ok {
		f.mu.Unlock()
		return v, nil
	}
	f.mu.Unlock()

	built, err := registry.BuildAndHydrate(node, key, nil, f.Registry)
	if err != nil {
		return nil, err
	}
	built.SetFallback(f)

	f.mu.Lock()
	f.cache[key] = built
	f.mu.Unlock()
	return built, nil
}

// Invalidate drops key (and any deref-suffixed variants of it) from both
// caches. Invalidation is always explicit (spec §4.7).
func (f *Fetcher) Invalidate(canonicalPath string) {
	abs, err := filepath.Abs(canonicalPath)
	if err != nil {
		abs = canonicalPath
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rawCache, abs)
	for k := range f.cache {
		if k == abs || strings.HasPrefix(k, abs+"#") {
			delete(f.cache, k)
		}
	}
}

// SpecOf loads and schema-validates the _spec_.yaml governing datPath
// (spec §6), returning its parsed build/run metadata. Used by the CLI
// layer's build/run subcommands rather than by ordinary fetch() calls,
// which only ever need a DAT's index.yaml content.
func (f *Fetcher) SpecOf(datPath string) (*DatSpec, error) {
	loc, err := locateDAT(datPath)
	if err != nil {
		return nil, &FetchError{Specifier: datPath, Err: err}
	}
	if loc.specPath == "" {
		return nil, &FetchError{Specifier: datPath, Err: fmt.Errorf("%w: no _spec_.yaml", ErrNotFound)}
	}
	spec, err := validateSpecFile(loc.specPath)
	if err != nil {
		return nil, &FetchError{Specifier: datPath, Err: err}
	}
	return spec, nil
}

// locateDAT resolves datPath (no trailing deref segments) to a concrete
// file to read: an explicit ".yaml" file, a folder containing
// "index.yaml" (optionally with a sibling "_spec_.yaml"), or datPath with
// ".yaml" appended.
func locateDAT(datPath string) (datLocation, error) {
	abs, err := filepath.Abs(datPath)
	if err != nil {
		return datLocation{}, err
	}

	if strings.HasSuffix(abs, ".yaml") {
		if _, err := os.Stat(abs); err != nil {
			return datLocation{}, fmt.Errorf("%w: %s", ErrNotFound, abs)
		}
		return datLocation{canonical: abs, indexPath: abs}, nil
	}

	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		idx := filepath.Join(abs, "index.yaml")
		if _, err := os.Stat(idx); err != nil {
			return datLocation{}, fmt.Errorf("%w: folder %q has no index.yaml", ErrNotFound, abs)
		}
		loc := datLocation{canonical: idx, indexPath: idx}
		if _, err := os.Stat(filepath.Join(abs, "_spec_.yaml")); err == nil {
			loc.specPath = filepath.Join(abs, "_spec_.yaml")
		}
		return loc, nil
	}

	single := abs + ".yaml"
	if _, err := os.Stat(single); err == nil {
		return datLocation{canonical: single, indexPath: single}, nil
	}
	return datLocation{}, fmt.Errorf("%w: %s", ErrNotFound, datPath)
}

// resolveDottedPath implements spec §4.7 item 4's filesystem scan: walk
// f.Roots in order, converting dots before the final segment to path
// separators, preferring "<name>.yaml" over "<name>.py" (and over a
// folder-form DAT) when more than one exists for the same name.
func (f *Fetcher) resolveDottedPath(specifier string) (datLocation, error) {
	dir, base := dottedToPath(specifier)
	for _, root := range f.Roots {
		candidateDir := root
		if dir != "" {
			candidateDir = filepath.Join(root, dir)
		}

		yamlPath := filepath.Join(candidateDir, base+".yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			return datLocation{canonical: yamlPath, indexPath: yamlPath}, nil
		}

		folderPath := filepath.Join(candidateDir, base)
		if info, err := os.Stat(folderPath); err == nil && info.IsDir() {
			if loc, err := locateDAT(folderPath); err == nil {
				return loc, nil
			}
		}

		pyPath := filepath.Join(candidateDir, base+".py")
		if _, err := os.Stat(pyPath); err == nil {
			return datLocation{}, fmt.Errorf("%w: %s", ErrUnsupportedGen, pyPath)
		}
	}
	return datLocation{}, fmt.Errorf("%w: %s", ErrNotFound, specifier)
}

// loadInclude implements resolver.IncludeLoader: an !include target is
// resolved through the same specifier grammar as any other fetch, rooted
// at the including file's own directory for relative/path forms.
func (f *Fetcher) loadInclude(fromFile, path string) (string, *specyaml.Node, error) {
	base := filepath.Dir(fromFile)

	var datPath string
	switch classify(path) {
	case specAbsolute:
		datPath = path
	case specRelative:
		datPath = filepath.Join(base, strings.TrimPrefix(path, "./"))
	case specPathSlash:
		datPath = filepath.Join(base, path)
	default:
		loc, err := f.resolveDottedPath(path)
		if err != nil {
			return "", nil, err
		}
		raw, err := specyaml.Load(loc.indexPath)
		if err != nil {
			return "", nil, err
		}
		return loc.canonical, raw, nil
	}

	loc, err := locateDAT(datPath)
	if err != nil {
		return "", nil, err
	}
	raw, err := specyaml.Load(loc.indexPath)
	if err != nil {
		return "", nil, err
	}
	return loc.canonical, raw, nil
}
