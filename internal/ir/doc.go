// Package ir provides the payload tree representation shared by every adl
// package.
//
// Payloads (versioned or normalized API resource instances) are plain
// key/value trees built from a sealed set of value types. This package imports
// nothing internal, so the schema, engine, store and cli layers can all depend
// on it without cycles.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64 (IRInt)
//   - An absent property is a missing key; an explicit null is IRNull{}
//   - Object iteration that must be deterministic uses SortedKeys()
//   - Canonical JSON (RFC 8785) is the only serialization used for hashing
package ir
