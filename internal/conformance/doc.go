// Package conformance checks API schemas against structural rules.
//
// Rules inspect the schema model, never payload instances. The Engine is a
// registry and dispatcher: it runs every registered rule whose scope matches
// and whose group passes the filter, and concatenates what they report.
// Traversal is each rule's own business.
//
// Results are data. Run never fails; callers decide whether an empty list is
// required before they proceed.
package conformance
