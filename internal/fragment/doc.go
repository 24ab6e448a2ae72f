// Package fragment renders an implementor registry as the documentation
// fragment script a browser page loads, and parses such scripts back.
//
// The script builds an `implementors` object, then offers it to
// `window.register_implementors` when the page has defined it. Otherwise it
// parks the object in `window.pending_implementors` for the page to collect
// later. Exactly one of the two happens.
package fragment
