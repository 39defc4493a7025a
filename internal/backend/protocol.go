package backend

import (
	"context"
	"fmt"

	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
)

// varRelation builds a relation whose terms are exactly vars.
func varRelation(name string, vars []string, types map[string]ir.Type) ir.Relation {
	rel := ir.Relation{Name: name, Terms: make([]ir.Term, len(vars)), Types: make(ir.Schema, len(vars))}
	for i, v := range vars {
		rel.Terms[i] = ir.Var(v)
		rel.Types[i] = types[v]
	}
	return rel
}

// Project defines a fresh temporary relation holding the rows of rel,
// projected onto its distinct free variables.
func Project(ctx context.Context, core Core, namer *Namer, rel ir.Relation) (ir.Relation, error) {
	temp := varRelation(namer.Next(), rel.FreeVars(), rel.FreeVarTypes())
	if err := core.AddRule(ctx, temp, []ir.Relation{rel}); err != nil {
		return ir.Relation{}, fmt.Errorf("project %s: %w", rel.Name, err)
	}
	return temp, nil
}

// NaturalJoin defines a fresh temporary relation over the union of the free
// variables of rels, holding the rows on which they all agree.
func NaturalJoin(ctx context.Context, core Core, namer *Namer, rels ...ir.Relation) (ir.Relation, error) {
	if len(rels) == 0 {
		return ir.Relation{}, fmt.Errorf("join of no relations")
	}
	var vars []string
	types := make(map[string]ir.Type)
	for _, rel := range rels {
		for v, t := range rel.FreeVarTypes() {
			if _, ok := types[v]; !ok {
				types[v] = t
			}
		}
		vars = append(vars, rel.FreeVars()...)
	}
	joined := varRelation(namer.Next(), ir.FreeVars(varTerms(vars)), types)
	if err := core.AddRule(ctx, joined, rels); err != nil {
		return ir.Relation{}, fmt.Errorf("join into %s: %w", joined.Name, err)
	}
	return joined, nil
}

func varTerms(vars []string) []ir.Term {
	terms := make([]ir.Term, len(vars))
	for i, v := range vars {
		terms[i] = ir.Var(v)
	}
	return terms
}

// ComputeIE materializes an IE relation:
//  1. project bounding onto the free input variables and query the result
//  2. call fn once per input tuple (once with the constant inputs when there
//     are no free inputs)
//  3. assert each output tuple that agrees with the output constants and
//     repeated variables into a fresh output relation whose columns are the
//     input free variables followed by the new output free variables
//  4. join bounding, the input relation and the output relation
//
// The returned relation binds every variable bound so far plus the IE
// relation's outputs.
func ComputeIE(ctx context.Context, core Core, namer *Namer, rel ir.IERelation, fn *iefunc.Function, bounding *ir.Relation) (ir.Relation, error) {
	if fn == nil {
		return ir.Relation{}, fmt.Errorf("ie function %s is not registered", rel.Name)
	}
	inputVars := rel.InputFreeVars()

	var join []ir.Relation
	if bounding != nil {
		join = append(join, *bounding)
	}

	rows := []ir.Tuple{{}}
	types := make(map[string]ir.Type)
	if len(inputVars) > 0 {
		if bounding == nil {
			return ir.Relation{}, fmt.Errorf("ie relation %s has unbound inputs %v", rel.Name, inputVars)
		}
		types = bounding.FreeVarTypes()
		for _, v := range inputVars {
			if _, ok := types[v]; !ok {
				return ir.Relation{}, fmt.Errorf("ie relation %s input %s is not bound by %s", rel.Name, v, bounding.Name)
			}
		}
		input := varRelation(namer.Next(), inputVars, types)
		if err := core.AddRule(ctx, input, []ir.Relation{*bounding}); err != nil {
			return ir.Relation{}, fmt.Errorf("project inputs of %s: %w", rel.Name, err)
		}
		var err error
		rows, err = core.Query(ctx, input)
		if err != nil {
			return ir.Relation{}, fmt.Errorf("query inputs of %s: %w", rel.Name, err)
		}
		join = append(join, input)
	}

	columns := append([]string(nil), inputVars...)
	index := make(map[string]int, len(columns))
	for i, v := range columns {
		index[v] = i
	}
	for i, t := range rel.OutputTerms {
		if !t.IsFreeVar() {
			continue
		}
		if _, ok := index[t.FreeVar]; !ok {
			index[t.FreeVar] = len(columns)
			columns = append(columns, t.FreeVar)
			types[t.FreeVar] = rel.OutputTypes[i]
		}
	}

	output := varRelation(namer.Next(), columns, types)
	decl := ir.RelationDeclaration{Name: output.Name, Schema: output.Types}
	if err := core.DeclareRelation(ctx, decl); err != nil {
		return ir.Relation{}, fmt.Errorf("declare output of %s: %w", rel.Name, err)
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return ir.Relation{}, err
		}
		args := make([]ir.Value, len(rel.InputTerms))
		for i, t := range rel.InputTerms {
			if t.IsFreeVar() {
				args[i] = row[index[t.FreeVar]]
			} else {
				args[i] = t.Value
			}
		}
		results, err := fn.Call(ctx, args)
		if err != nil {
			return ir.Relation{}, fmt.Errorf("call %s: %w", rel.Name, err)
		}
		for _, tuple := range results {
			if err := iefunc.CheckOutput(rel.Name, tuple, rel.OutputTypes); err != nil {
				return ir.Relation{}, err
			}
			fact, ok := outputFact(rel, output, row, tuple, index)
			if !ok {
				continue
			}
			if err := core.AddFact(ctx, fact); err != nil {
				return ir.Relation{}, fmt.Errorf("assert output of %s: %w", rel.Name, err)
			}
		}
	}
	join = append(join, output)

	return NaturalJoin(ctx, core, namer, join...)
}

// outputFact builds the output-relation fact for one (input row, output
// tuple) pair. It reports false when the tuple disagrees with an output
// constant, a repeated output variable or an output variable that is also
// an input.
func outputFact(rel ir.IERelation, output ir.Relation, row, tuple ir.Tuple, index map[string]int) (ir.Relation, bool) {
	values := make(ir.Tuple, len(output.Terms))
	copy(values, row)
	for i, t := range rel.OutputTerms {
		v := tuple[i]
		if !t.IsFreeVar() {
			if !ir.ValuesEqual(t.Value, v) {
				return ir.Relation{}, false
			}
			continue
		}
		col := index[t.FreeVar]
		if values[col] == nil {
			values[col] = v
		} else if !ir.ValuesEqual(values[col], v) {
			return ir.Relation{}, false
		}
	}
	fact := ir.Relation{Name: output.Name, Terms: make([]ir.Term, len(values)), Types: output.Types}
	for i, v := range values {
		fact.Terms[i] = ir.Const(v)
	}
	return fact, true
}
