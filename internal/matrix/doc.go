// Package matrix models a hosted-CI build template and expands its
// environment matrix into concrete jobs.
//
// A template declares an operating-system image, a matrix of
// (toolchain channel, target triple[, bit width]) entries, an install step
// sequence, an optionally disabled build phase and test steps. Test lines that
// exist only as YAML comments are kept as inert steps so that tooling can
// report them, but they are never executed.
//
// Expansion yields exactly one Job per matrix entry, in listed order. Each job
// carries its own copy of the install sequence, verbatim.
package matrix
