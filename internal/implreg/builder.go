// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package implreg

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Builder accumulates registry entries in insertion order. It is not safe for
// concurrent use; a registry is produced by a single generator run.
type Builder struct {
	trait     TraitRef
	libraries []string
	entries   map[string][]Descriptor
	errs      []error
}

// NewBuilder returns an empty Builder for the given trait.
func NewBuilder(trait TraitRef) *Builder {
	return &Builder{
		trait:   trait,
		entries: make(map[string][]Descriptor),
	}
}

// Add appends descriptors to lib. A library keeps the position of its first
// insertion; later calls extend its sequence.
func (b *Builder) Add(lib string, descs ...Descriptor) *Builder {
	if strings.TrimSpace(lib) == "" {
		b.errs = append(b.errs, ErrEmptyLibrary)
		return b
	}
	for _, d := range descs {
		if strings.TrimSpace(d.markup) == "" {
			b.errs = append(b.errs, fmt.Errorf("library %q: %w", lib, ErrEmptyDescriptor))
			return b
		}
	}
	if _, ok := b.entries[lib]; !ok {
		b.libraries = append(b.libraries, lib)
		b.entries[lib] = nil
	}
	b.entries[lib] = append(b.entries[lib], descs...)
	return b
}

// Build validates the accumulated entries and returns an immutable snapshot.
// All violations are reported together.
func (b *Builder) Build() (*Registry, error) {
	errs := slices.Clone(b.errs)
	if strings.TrimSpace(b.trait.Name) == "" {
		errs = append(errs, ErrEmptyTrait)
	}
	for _, lib := range b.libraries {
		if len(b.entries[lib]) == 0 {
			errs = append(errs, fmt.Errorf("library %q: %w", lib, ErrEmptyImplementors))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid registry for trait %q: %w", b.trait.Name, errors.Join(errs...))
	}

	reg := &Registry{
		trait:     b.trait,
		libraries: slices.Clone(b.libraries),
		entries:   make(map[string][]Descriptor, len(b.entries)),
	}
	for lib, descs := range b.entries {
		reg.entries[lib] = slices.Clone(descs)
	}
	return reg, nil
}
