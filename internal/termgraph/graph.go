// Package termgraph implements the term graph intermediate representation.
//
// The graph is an arena of nodes indexed by NodeID. A single global root is
// created with the graph; every loaded program hangs below it as a
// program_root whose children are the program's statements. Edges run from
// parent to child and encode dependency only.
//
// Nodes are created once and never removed. After creation only a node's
// State changes, plus in-place replacement of rule body values with
// backend-computed temporary relations during execution.
package termgraph

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/rgxlog/internal/ir"
)

// NodeID is a handle into the graph arena.
type NodeID int

// Kind tags what a node represents.
type Kind string

const (
	KindRoot                Kind = "root"
	KindProgramRoot         Kind = "program_root"
	KindRelationDeclaration Kind = "relation_declaration"
	KindAddFact             Kind = "add_fact"
	KindRemoveFact          Kind = "remove_fact"
	KindQuery               Kind = "query"
	KindRule                Kind = "rule"
	KindRuleHead            Kind = "rule_head"
	KindRuleBody            Kind = "rule_body"
	KindRelation            Kind = "relation"
	KindIERelation          Kind = "ie_relation"
)

// State is the evaluation state of a node.
type State int

const (
	NotComputed State = iota
	Computed
	Dirty
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case NotComputed:
		return "not_computed"
	case Computed:
		return "computed"
	case Dirty:
		return "dirty"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Payload is a sealed interface for node values.
// Only RelationValue, IERelationValue and DeclarationValue implement it.
type Payload interface {
	payload()
	String() string
}

// RelationValue holds a relation (facts, queries, rule heads, body relations).
type RelationValue struct{ Relation ir.Relation }

// IERelationValue holds an IE relation of a rule body.
type IERelationValue struct{ IERelation ir.IERelation }

// DeclarationValue holds a relation declaration.
type DeclarationValue struct{ Declaration ir.RelationDeclaration }

func (RelationValue) payload()    {}
func (IERelationValue) payload()  {}
func (DeclarationValue) payload() {}

func (v RelationValue) String() string    { return v.Relation.String() }
func (v IERelationValue) String() string  { return v.IERelation.String() }
func (v DeclarationValue) String() string { return v.Declaration.String() }

// Node is one arena entry.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     Kind     `json:"kind"`
	Value    Payload  `json:"-"`
	State    State    `json:"state"`
	Children []NodeID `json:"children,omitempty"`
}

// Graph is the arena. It is not safe for concurrent use.
type Graph struct {
	nodes []*Node
}

// New creates a graph holding only the global root.
func New() *Graph {
	g := &Graph{}
	g.nodes = append(g.nodes, &Node{ID: 0, Kind: KindRoot})
	return g
}

// Root returns the global root.
func (g *Graph) Root() NodeID { return 0 }

// Len returns the number of nodes, root included.
func (g *Graph) Len() int { return len(g.nodes) }

func checkPayload(kind Kind, value Payload) error {
	switch kind {
	case KindRelationDeclaration:
		if _, ok := value.(DeclarationValue); !ok {
			return fmt.Errorf("%s node needs a declaration value, got %T", kind, value)
		}
	case KindAddFact, KindRemoveFact, KindQuery, KindRuleHead, KindRelation:
		if _, ok := value.(RelationValue); !ok {
			return fmt.Errorf("%s node needs a relation value, got %T", kind, value)
		}
	case KindIERelation:
		if _, ok := value.(IERelationValue); !ok {
			return fmt.Errorf("%s node needs an ie relation value, got %T", kind, value)
		}
	case KindProgramRoot, KindRule, KindRuleBody:
		if value != nil {
			return fmt.Errorf("%s node carries no value, got %T", kind, value)
		}
	default:
		return fmt.Errorf("cannot add a %q node", kind)
	}
	return nil
}

// AddTerm creates a detached node in state NotComputed.
func (g *Graph) AddTerm(kind Kind, value Payload) (NodeID, error) {
	if err := checkPayload(kind, value); err != nil {
		return 0, err
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{ID: id, Kind: kind, Value: value})
	return id, nil
}

// AddDependency appends child to parent's ordered child list.
func (g *Graph) AddDependency(parent, child NodeID) error {
	if !g.valid(parent) || !g.valid(child) {
		return fmt.Errorf("invalid edge %d -> %d", parent, child)
	}
	if parent == child || child == g.Root() {
		return fmt.Errorf("edge %d -> %d would create a cycle", parent, child)
	}
	p := g.nodes[parent]
	p.Children = append(p.Children, child)
	return nil
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// Node returns a copy of the node. It panics on an unknown id.
func (g *Graph) Node(id NodeID) Node {
	n := *g.nodes[id]
	n.Children = append([]NodeID(nil), n.Children...)
	return n
}

// Kind returns a node's kind.
func (g *Graph) Kind(id NodeID) Kind { return g.nodes[id].Kind }

// Value returns a node's payload.
func (g *Graph) Value(id NodeID) Payload { return g.nodes[id].Value }

// State returns a node's evaluation state.
func (g *Graph) State(id NodeID) State { return g.nodes[id].State }

// Children returns a node's children in order.
func (g *Graph) Children(id NodeID) []NodeID {
	return append([]NodeID(nil), g.nodes[id].Children...)
}

// SetState updates a node's evaluation state.
func (g *Graph) SetState(id NodeID, s State) {
	g.nodes[id].State = s
}

// SetValue replaces a node's payload. The payload must still fit the kind.
func (g *Graph) SetValue(id NodeID, value Payload) error {
	n := g.nodes[id]
	if err := checkPayload(n.Kind, value); err != nil {
		return err
	}
	n.Value = value
	return nil
}

// Relation returns the relation payload of a node.
func (g *Graph) Relation(id NodeID) (ir.Relation, bool) {
	v, ok := g.nodes[id].Value.(RelationValue)
	return v.Relation, ok
}

// IERelation returns the IE relation payload of a node.
func (g *Graph) IERelation(id NodeID) (ir.IERelation, bool) {
	v, ok := g.nodes[id].Value.(IERelationValue)
	return v.IERelation, ok
}

// Declaration returns the declaration payload of a node.
func (g *Graph) Declaration(id NodeID) (ir.RelationDeclaration, bool) {
	v, ok := g.nodes[id].Value.(DeclarationValue)
	return v.Declaration, ok
}

// Walk visits id and its descendants in preorder.
func (g *Graph) Walk(id NodeID, visit func(NodeID)) {
	visit(id)
	for _, c := range g.nodes[id].Children {
		g.Walk(c, visit)
	}
}

// Invalidate marks id, its descendants and its ancestors Dirty so the next
// execution reaches and re-runs them. The global root is never marked.
func (g *Graph) Invalidate(id NodeID) {
	mark := func(n NodeID) {
		if g.nodes[n].Kind != KindRoot {
			g.nodes[n].State = Dirty
		}
	}
	g.Walk(id, mark)
	for _, a := range g.ancestors(id) {
		mark(a)
	}
}

// ancestors returns the path from the root down to id, id excluded.
// Detached nodes have no ancestors.
func (g *Graph) ancestors(id NodeID) []NodeID {
	var path []NodeID
	var find func(n NodeID) bool
	find = func(n NodeID) bool {
		if n == id {
			return true
		}
		path = append(path, n)
		for _, c := range g.nodes[n].Children {
			if find(c) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if !find(g.Root()) {
		return nil
	}
	return path
}

// Pretty renders the subtree below id, one node per line.
func (g *Graph) Pretty(id NodeID) string {
	var b strings.Builder
	g.pretty(&b, id, 0)
	return b.String()
}

func (g *Graph) pretty(b *strings.Builder, id NodeID, depth int) {
	n := g.nodes[id]
	b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(b, "%d %s", n.ID, n.Kind)
	if n.Value != nil {
		b.WriteString(" ")
		b.WriteString(n.Value.String())
	}
	if n.Kind != KindRoot && n.Kind != KindProgramRoot {
		fmt.Fprintf(b, " [%s]", n.State)
	}
	b.WriteString("\n")
	for _, c := range n.Children {
		g.pretty(b, c, depth+1)
	}
}

type nodeJSON struct {
	Node
	Value string `json:"value,omitempty"`
}

// MarshalJSON encodes the arena as a list of nodes.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := make([]nodeJSON, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = nodeJSON{Node: *n}
		if n.Value != nil {
			out[i].Value = n.Value.String()
		}
	}
	return json.Marshal(out)
}
