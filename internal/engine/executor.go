package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/termgraph"
)

// executor is one traversal of the term graph.
type executor struct {
	engine  *Engine
	results []QueryResult
}

// run executes the subtree below id in postorder and stops at the first
// failing node.
func (x *executor) run(ctx context.Context, id termgraph.NodeID) error {
	g := x.engine.graph
	if g.State(id) == termgraph.Computed {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return x.engine.nodeError(id, err)
	}

	switch g.Kind(id) {
	case termgraph.KindRoot:
		for _, child := range g.Children(id) {
			if err := x.run(ctx, child); err != nil {
				return err
			}
		}
		return nil

	case termgraph.KindProgramRoot:
		for _, child := range g.Children(id) {
			if err := x.run(ctx, child); err != nil {
				return err
			}
		}
		g.SetState(id, termgraph.Computed)
		return nil

	case termgraph.KindRule:
		return x.mark(id, x.rule(ctx, id))

	default:
		return x.mark(id, x.leaf(ctx, id))
	}
}

// mark records the outcome of executing id.
func (x *executor) mark(id termgraph.NodeID, err error) error {
	g := x.engine.graph
	if err != nil {
		g.SetState(id, termgraph.Dirty)
		re := x.engine.nodeError(id, err)
		x.engine.logger.Warn("node failed",
			"node", id,
			"kind", string(g.Kind(id)),
			"code", string(re.Code),
			"error", re.Message)
		return re
	}
	g.SetState(id, termgraph.Computed)
	return nil
}

func (x *executor) leaf(ctx context.Context, id termgraph.NodeID) error {
	e := x.engine
	g := e.graph
	redo := g.State(id) == termgraph.Dirty

	switch g.Kind(id) {
	case termgraph.KindRelationDeclaration:
		decl, _ := g.Declaration(id)
		err := e.backend.DeclareRelation(ctx, decl)
		if redo && errors.Is(err, backend.ErrRelationExists) {
			return nil
		}
		return err

	case termgraph.KindAddFact:
		fact, _ := g.Relation(id)
		return e.backend.AddFact(ctx, fact)

	case termgraph.KindRemoveFact:
		fact, _ := g.Relation(id)
		return e.backend.RemoveFact(ctx, fact)

	case termgraph.KindQuery:
		q, _ := g.Relation(id)
		rows, err := e.backend.Query(ctx, q)
		if err != nil {
			return err
		}
		x.results = append(x.results, QueryResult{Query: q, Rows: rows})
		e.logger.Debug("query answered", "query", q.String(), "rows", len(rows))
		return nil

	default:
		return fmt.Errorf("cannot execute %s node", g.Kind(id))
	}
}

// rule folds the body into one bounding relation, left to right, and
// defines the head over it. The body is already in execution order, so
// every IE relation finds its inputs bound by what precedes it.
//
// On success each plain relation in the body is replaced by the temporary
// relation that computed it. On failure the temporaries created so far are
// dropped.
func (x *executor) rule(ctx context.Context, id termgraph.NodeID) error {
	e := x.engine
	g := e.graph
	children := g.Children(id)
	if len(children) != 2 {
		return fmt.Errorf("rule node %d has %d children, want head and body", id, len(children))
	}
	headID, bodyID := children[0], children[1]
	head, _ := g.Relation(headID)

	start := e.namer.Current()
	quota := NewQuotaEnforcer(e.maxIETuples)
	computed := make(map[termgraph.NodeID]ir.Relation)

	var bounding *ir.Relation
	for _, rel := range g.Children(bodyID) {
		var (
			temp ir.Relation
			err  error
		)
		switch g.Kind(rel) {
		case termgraph.KindRelation:
			r, _ := g.Relation(rel)
			temp, err = e.backend.ComputeRuleBodyRelation(ctx, r)
			if err == nil && bounding != nil {
				temp, err = backend.NaturalJoin(ctx, e.backend, e.namer, *bounding, temp)
			}
		case termgraph.KindIERelation:
			r, _ := g.IERelation(rel)
			fn, ok := e.registry.Lookup(r.Name)
			if !ok {
				err = &RuntimeError{
					Code:    ErrCodeUnknownIEFunction,
					Message: fmt.Sprintf("ie function %s is not registered", r.Name),
				}
				break
			}
			temp, err = e.backend.ComputeRuleBodyIERelation(ctx, r, quota.Wrap(fn, r.OutputTypes), bounding)
		default:
			err = fmt.Errorf("unexpected %s node in rule body", g.Kind(rel))
		}
		if err != nil {
			g.SetState(rel, termgraph.Dirty)
			x.dropTemps(start)
			return err
		}
		computed[rel] = temp
		bounding = &temp
	}
	if bounding == nil {
		return fmt.Errorf("rule %s has an empty body", head.Name)
	}

	if err := e.backend.AddRule(ctx, head, []ir.Relation{*bounding}); err != nil {
		x.dropTemps(start)
		return err
	}

	for rel, temp := range computed {
		if g.Kind(rel) == termgraph.KindRelation {
			if err := g.SetValue(rel, termgraph.RelationValue{Relation: temp}); err != nil {
				return err
			}
		}
		g.SetState(rel, termgraph.Computed)
	}
	g.SetState(headID, termgraph.Computed)
	g.SetState(bodyID, termgraph.Computed)
	e.logger.Debug("rule added",
		"head", head.String(),
		"bounding", bounding.Name,
		"ie_tuples", quota.Current())
	return nil
}

// dropTemps removes the temporary relations named after start.
// Failures are logged and otherwise ignored.
func (x *executor) dropTemps(start int64) {
	e := x.engine
	// The rule already failed; a cancelled ctx must not stop the cleanup.
	ctx := context.Background()
	for n := e.namer.Current(); n > start; n-- {
		rel := ir.Relation{Name: fmt.Sprintf("%s%d", ir.TempPrefix, n)}
		if err := e.backend.RemoveTempResult(ctx, rel); err != nil {
			e.logger.Debug("temp relation not removed", "relation", rel.Name, "error", err)
		}
	}
}
