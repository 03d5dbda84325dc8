// Package textutil provides text processing utilities for filename
// sanitization and markup preservation.
//
// The primary use cases are:
//   - Sanitizing filenames and path segments for safe filesystem use
//   - Masking inline markup with positional placeholders so machine
//     translation cannot mangle it, then restoring it afterwards
package textutil
