// Package engine implements the rgxlog session: it compiles programs into
// the session's term graph and executes new graph nodes against a backend.
//
// ARCHITECTURE:
//
//	[ast.Program] → compiler.Compile → [termgraph nodes] → executor → [backend]
//
// A session owns one symbol table, one term graph and one backend. Every
// Load compiles a program into a fresh program_root subtree under the
// persistent global root, then runs the executor over the whole graph.
//
// Executor:
// The executor is a postorder DFS from the global root. COMPUTED nodes are
// skipped, so each statement reaches the backend once. Leaves dispatch
// directly to the backend; a rule folds its body (already in execution
// order) into one bounding relation and defines the head over it. A node
// that fails is marked DIRTY and is retried by the next traversal.
//
// Execution is strictly sequential. An Engine is not safe for concurrent
// use.
//
// CRITICAL PATTERNS:
//
// Deterministic results:
// Backends return query rows ordered by ir.CompareTuples and temporary
// relations are numbered by a session counter, so two sessions fed the
// same programs issue the same backend calls in the same order.
//
// Bounded IE work:
// The IE tuple quota caps the number of tuples IE functions may produce
// while one rule is evaluated.
package engine
