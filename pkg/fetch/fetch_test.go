package fetch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblinger/alienbio/pkg/registry"
	"github.com/oblinger/alienbio/pkg/scope"
	"github.com/oblinger/alienbio/pkg/specyaml"
)

type moleculeEntity struct {
	name    string
	formula string
}

func (m *moleculeEntity) TypeName() string { return "molecule" }
func (m *moleculeEntity) Member(name string) (any, bool) {
	if name == "formula" {
		return m.formula, true
	}
	return nil, false
}

func moleculeCtor(name string, body *specyaml.Node, parent *scope.Scope) (registry.Entity, error) {
	formula, _ := body.Get("formula").ScalarValue().(string)
	return &moleculeEntity{name: name, formula: formula}, nil
}

func newTestRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	reg.Register("molecule", moleculeCtor)
	return reg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFetch_SingleFileDAT(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sugar.yaml"), `
"molecule.glucose":
  formula: C6H12O6
`)
	f := New([]string{dir}, newTestRegistry())

	v, err := f.Fetch(filepath.Join(dir, "sugar"))
	require.NoError(t, err)
	sc, ok := v.(*scope.Scope)
	require.True(t, ok)

	entity, ok := sc.Lookup("glucose")
	require.True(t, ok)
	mol, ok := entity.(*moleculeEntity)
	require.True(t, ok)
	assert.Equal(t, "C6H12O6", mol.formula)
}

func TestFetch_FolderDATWithIndex(t *testing.T) {
	dir := t.TempDir()
	datDir := filepath.Join(dir, "cells", "ecoli")
	writeFile(t, filepath.Join(datDir, "index.yaml"), `
"molecule.glucose":
  formula: C6H12O6
`)
	f := New([]string{dir}, newTestRegistry())

	v, err := f.Fetch(datDir)
	require.NoError(t, err)
	sc := v.(*scope.Scope)
	_, ok := sc.Lookup("glucose")
	assert.True(t, ok)
}

func TestFetch_IdentityCaching(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sugar.yaml"), `
"molecule.glucose":
  formula: C6H12O6
`)
	f := New([]string{dir}, newTestRegistry())

	v1, err := f.Fetch(filepath.Join(dir, "sugar"))
	require.NoError(t, err)
	v2, err := f.Fetch(filepath.Join(dir, "sugar"))
	require.NoError(t, err)
	assert.Same(t, v1, v2)
}

func TestFetch_TrailingDerefBeforeHydration(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sugars.yaml"), `
a:
  b:
    "molecule.glucose":
      formula: C6H12O6
`)
	f := New([]string{dir}, newTestRegistry())

	v, err := f.Fetch(filepath.Join(dir, "sugars") + ".a.b")
	require.NoError(t, err)
	sc, ok := v.(*scope.Scope)
	require.True(t, ok, "expected a hydrated scope from the dereferenced subtree, got %T", v)
	_, ok = sc.Lookup("glucose")
	assert.True(t, ok)
}

func TestFetch_DottedResolvesAgainstRoots(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bio", "cells", "ecoli.yaml"), `
"molecule.glucose":
  formula: C6H12O6
`)
	f := New([]string{dir}, newTestRegistry())

	v, err := f.Fetch("bio.cells.ecoli")
	require.NoError(t, err)
	sc := v.(*scope.Scope)
	_, ok := sc.Lookup("glucose")
	assert.True(t, ok)
}

func TestFetch_DottedPrefersYAMLOverPy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "gen", "thing.yaml"), `name: from-yaml`)
	writeFile(t, filepath.Join(dir, "gen", "thing.py"), `# generator script`)
	f := New([]string{dir}, registry.NewRegistry())

	v, err := f.Fetch("gen.thing")
	require.NoError(t, err)
	sc := v.(*scope.Scope)
	name, ok := sc.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "from-yaml", name)
}

func TestFetch_DottedPyOnlyIsUnsupported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "gen", "only.py"), `# generator script`)
	f := New([]string{dir}, registry.NewRegistry())

	_, err := f.Fetch("gen.only")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedGen)
}

func TestFetch_RegisteredModuleTakesPriorityOverFilesystem(t *testing.T) {
	dir := t.TempDir()
	// Even though a file exists at this path, a registered module with the
	// same head name must win (spec §4.7 item 4: module check comes first).
	writeFile(t, filepath.Join(dir, "bio.yaml"), `name: from-disk`)
	f := New([]string{dir}, registry.NewRegistry())
	f.RegisterModule("bio", dictMember{"cells": "from-module"})

	v, err := f.Fetch("bio.cells")
	require.NoError(t, err)
	assert.Equal(t, "from-module", v)
}

// dictMember is a tiny scope.Member implementation for module-registry tests.
type dictMember map[string]any

func (d dictMember) Member(name string) (any, bool) {
	v, ok := d[name]
	return v, ok
}

func TestFetch_NotFound(t *testing.T) {
	dir := t.TempDir()
	f := New([]string{dir}, registry.NewRegistry())

	_, err := f.Fetch(filepath.Join(dir, "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_SpecSchemaValidation(t *testing.T) {
	dir := t.TempDir()
	datDir := filepath.Join(dir, "good")
	writeFile(t, filepath.Join(datDir, "index.yaml"), `value: 1`)
	writeFile(t, filepath.Join(datDir, "_spec_.yaml"), `
dat:
  kind: simulation
build:
  output.yaml: generator.make_output
run:
  - "biospec run"
`)
	f := New([]string{dir}, registry.NewRegistry())

	spec, err := f.SpecOf(datDir)
	require.NoError(t, err)
	assert.Equal(t, "simulation", spec.Kind)
	assert.Equal(t, "generator.make_output", spec.Build["output.yaml"])
	assert.Equal(t, []string{"biospec run"}, spec.Run)
}

func TestFetch_SpecSchemaValidationRejectsMissingKind(t *testing.T) {
	dir := t.TempDir()
	datDir := filepath.Join(dir, "bad")
	writeFile(t, filepath.Join(datDir, "index.yaml"), `value: 1`)
	writeFile(t, filepath.Join(datDir, "_spec_.yaml"), `
dat:
  path: "{name}"
`)
	f := New([]string{dir}, registry.NewRegistry())

	_, err := f.SpecOf(datDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaInvalid)
}
