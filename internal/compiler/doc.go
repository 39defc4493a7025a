// Package compiler implements semantic analysis and lowering of rgxlog
// programs.
//
// A program is analyzed by a fixed, ordered sequence of passes. Each pass
// either validates the typed tree or rewrites it in place, consulting and
// updating the session symbol table:
//
//  1. Token normalization (ast.Decode, before the tree reaches this package)
//  2. Variable reference resolution
//  3. File check for read assignments
//  4. Reserved-name check
//  5. Relation reference and arity check
//  6. IE function existence check
//  7. Rule safety fixpoint
//  8. Type checking and unification
//  9. Body reordering
//
// Later passes assume earlier ones succeeded. The first failing pass aborts
// the program; symbol table changes made by the failed program are undone.
// Lower then converts the validated tree into term graph nodes.
package compiler
