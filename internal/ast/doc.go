// Package ast defines the typed syntax tree of an rgxlog program.
//
// The tree is a closed tagged variant: every grammar node kind is a distinct
// Go type, and the Statement, BodyRelation and Term interfaces are sealed so
// that type switches over them are exhaustive by construction.
//
// Programs arrive from the external parser as a Labeled tree (JSON or YAML).
// Decode converts a Labeled tree into the typed tree and performs token
// normalization on the way: quote stripping, integer and span parsing,
// merging of multi-segment strings, removal of line continuations and NFC
// normalization.
package ast
