// Package schema is the in-memory description of API types that both the
// conversion engine and the conformance rules read.
//
// A model is built once by the compiler and never mutated afterwards, so any
// number of conversions may share it without locking.
package schema
