// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package implreg models the implementor registry: for one trait, the mapping
// from a library identifier to the ordered list of descriptors documenting
// which of that library's types implement the trait.
//
// # Lifecycle
//
// A Registry is produced in full by a single load run through a Builder, then
// handed to a presentation layer exactly once. It is never updated, versioned
// or merged afterward. Every accessor returns copies, so a snapshot cannot be
// mutated by its consumers.
//
// # Invariants
//
//   - Library identifiers are non-empty and pairwise distinct within a snapshot.
//   - Every library maps to a non-empty sequence of descriptors.
//   - Descriptor order is insertion order. It carries display meaning only.
//
// A Catalog groups the registries of several traits, one per trait name.
package implreg
