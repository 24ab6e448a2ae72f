// Package manifest loads implementor registries from HCL files.
//
// A manifest declares one or more `trait` blocks. Each holds `library` blocks,
// which in turn hold `implementor` blocks:
//
//	trait "Clone" {
//	  path = "core/clone/trait.Clone.js"
//	  href = "${docs_root}/core/clone/trait.Clone.html"
//
//	  library "serde_json" {
//	    implementor "Error" {
//	      kind = "struct"
//	      href = "${docs_root}/serde_json/struct.Error.html"
//	    }
//	  }
//	}
//
// Files are read in lexical order and blocks in source order. That order
// becomes the registry's insertion order. Problems are reported as
// hcl.Diagnostics so that every message points back to a file and line.
package manifest
