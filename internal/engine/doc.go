// Package engine converts payloads between an API's versioned wire shapes and
// its normalized shape.
//
// A Runtime is built once per API model. Normalize walks a versioned payload
// into a fresh normalized tree; Convert walks the other way. At each level the
// walk visits the versioned model's properties:
//
//   - removed properties are never written
//   - properties with conversion constraints run them (RenameTo, MoveTo,
//     DefaultValue, or anything registered on the Registry)
//   - manually converted properties without a constraint are skipped
//   - everything else is copied to the same-named property on the other side
//
// Copies dispatch on the destination kind. Complex members recurse through
// the same walk, so nested constraints run wherever the value lands. After
// the walk, defaulting constraints of the destination model fill in unset
// values.
//
// ERRORS:
//
// Schema defects (asking a scalar property for its nested model) panic.
// Everything caused by payload data is a soft error: logged, appended to
// Result.Errors, and the next property proceeds. A conflict never overwrites
// an existing destination value.
//
// The engine performs no I/O. Persisting runs is the store package's job.
package engine
