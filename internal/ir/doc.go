// Package ir provides the value and schema model shared by every rgxlog layer.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the value model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Three value types only: string, integer and span
//   - Spans are half-open intervals [start, stop)
//   - A term is either a constant or a free variable, never both
//   - Strings are NFC normalized before they are compared or keyed
package ir
