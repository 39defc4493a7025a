// Package queryir provides a backend-neutral intermediate representation for
// the conjunctive queries that define derived relations.
//
// Every rule the engine hands to a backend has the shape
//
//	head(t1, ..., tn) <- body1(...), body2(...), ..., bodyk(...)
//
// and is lowered into a small relational algebra tree:
//
//	Project(head) ∘ Join(Join(Select(body1), Select(body2)), ...)
//
// Backends consume this tree instead of re-deriving join conditions from
// raw relations: the memory backend evaluates it directly, the SQLite
// backend compiles it to SQL (see querysql) and the Mangle backend renders
// it as a Datalog clause.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends can switch over
// them exhaustively:
//
//	switch q := query.(type) {
//	case *Select:
//	case *Join:
//	case *Project:
//	}
//
// SET SEMANTICS:
//
// Queries denote sets of bindings. Backends must deduplicate derived rows,
// and no node produces NULLs: every column of every relation holds a typed
// value.
package queryir
