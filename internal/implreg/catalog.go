// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package implreg

import (
	"fmt"
	"slices"
)

// Catalog is an ordered set of registries, one per trait.
type Catalog struct {
	order  []string
	traits map[string]*Registry
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{traits: make(map[string]*Registry)}
}

// Add inserts reg. A second registry for the same trait is rejected.
func (c *Catalog) Add(reg *Registry) error {
	name := reg.Trait().Name
	if _, exists := c.traits[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTrait, name)
	}
	c.order = append(c.order, name)
	c.traits[name] = reg
	return nil
}

// Get returns the registry for a trait name.
func (c *Catalog) Get(trait string) (*Registry, bool) {
	reg, ok := c.traits[trait]
	return reg, ok
}

// Traits returns the trait names in insertion order.
func (c *Catalog) Traits() []string { return slices.Clone(c.order) }

// Registries returns the registries in insertion order.
func (c *Catalog) Registries() []*Registry {
	out := make([]*Registry, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.traits[name])
	}
	return out
}

// Len returns the number of traits.
func (c *Catalog) Len() int { return len(c.order) }
