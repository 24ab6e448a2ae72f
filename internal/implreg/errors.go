// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package implreg

import "errors"

var (
	// ErrEmptyLibrary is returned when a library identifier is blank.
	ErrEmptyLibrary = errors.New("library identifier must not be empty")
	// ErrEmptyImplementors is returned when a library has no descriptors.
	ErrEmptyImplementors = errors.New("library has no implementors")
	// ErrDuplicateLibrary is returned when a library appears twice in one snapshot.
	ErrDuplicateLibrary = errors.New("duplicate library identifier")
	// ErrEmptyTrait is returned when a registry is built without a trait name.
	ErrEmptyTrait = errors.New("trait name must not be empty")
	// ErrDuplicateTrait is returned when a catalog receives two registries for one trait.
	ErrDuplicateTrait = errors.New("duplicate trait")
	// ErrEmptyDescriptor is returned for a descriptor with no markup.
	ErrEmptyDescriptor = errors.New("descriptor markup must not be empty")
)
