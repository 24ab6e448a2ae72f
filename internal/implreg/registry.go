// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package implreg

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

// TraitRef identifies the single trait a registry documents.
type TraitRef struct {
	// Name is the trait's display name, e.g. "Clone". It keys the Catalog.
	Name string
	// Path is the fragment path relative to the implementors root,
	// e.g. "core/clone/trait.Clone.js".
	Path string
	// Href is the trait's documentation page, if known.
	Href string
}

// Registry is an immutable implementor registry snapshot for one trait.
type Registry struct {
	trait     TraitRef
	libraries []string
	entries   map[string][]Descriptor
}

// Trait returns the trait this snapshot documents.
func (r *Registry) Trait() TraitRef { return r.trait }

// Len returns the number of libraries in the snapshot.
func (r *Registry) Len() int { return len(r.libraries) }

// Libraries returns the library identifiers in insertion order.
func (r *Registry) Libraries() []string {
	return slices.Clone(r.libraries)
}

// Implementors returns a copy of the descriptors registered for lib.
func (r *Registry) Implementors(lib string) ([]Descriptor, bool) {
	descs, ok := r.entries[lib]
	if !ok {
		return nil, false
	}
	return slices.Clone(descs), true
}

// Each calls fn for every library in insertion order. Iteration stops at the
// first error, which is returned.
func (r *Registry) Each(fn func(lib string, descs []Descriptor) error) error {
	for _, lib := range r.libraries {
		if err := fn(lib, slices.Clone(r.entries[lib])); err != nil {
			return err
		}
	}
	return nil
}

// DescriptorCount returns the total number of descriptors across all libraries.
func (r *Registry) DescriptorCount() int {
	n := 0
	for _, descs := range r.entries {
		n += len(descs)
	}
	return n
}

// String implements fmt.Stringer for log output.
func (r *Registry) String() string {
	return fmt.Sprintf("registry{trait=%s libraries=%d descriptors=%d}", r.trait.Name, r.Len(), r.DescriptorCount())
}

// Entry is one raw (library, descriptors) pair as produced by a generator.
type Entry struct {
	Library     string
	Descriptors []Descriptor
}

// FromEntries builds a snapshot from raw generator output. Unlike Builder.Add,
// a repeated library here is a violation of key uniqueness and is rejected.
func FromEntries(trait TraitRef, entries []Entry) (*Registry, error) {
	b := NewBuilder(trait)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Library]; dup {
			b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrDuplicateLibrary, e.Library))
			continue
		}
		seen[e.Library] = struct{}{}
		b.Add(e.Library, e.Descriptors...)
	}
	return b.Build()
}

// ValidFragmentPath reports whether p is a relative slash path that stays
// inside the implementors directory.
func ValidFragmentPath(p string) bool {
	if p == "" || strings.Contains(p, `\`) {
		return false
	}
	clean := path.Clean(p)
	return !path.IsAbs(clean) && clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}
