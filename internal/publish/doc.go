// Package publish provides registration callbacks that persist rendered
// fragments: a local directory tree and an S3 bucket. Every sink implements
// handoff.Receiver, so it can be attached to a hand-off slot directly.
//
// Fragments are stored below an "implementors/" prefix at the trait's path,
// matching the layout documentation pages load them from.
package publish

// Prefix is the directory every fragment is stored under.
const Prefix = "implementors"
