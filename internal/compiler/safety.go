package compiler

import (
	"strings"

	"github.com/roach88/rgxlog/internal/ast"
)

// ResolutionOrder runs the binding fixpoint over a rule body.
//
// Starting with no bound variables, each sweep resolves every unresolved
// relation whose input free variables are all bound and binds its output
// free variables. The fixpoint stops when a sweep resolves nothing, so it
// takes at most len(body) sweeps. order lists body indexes in the order
// they were resolved; unbound lists, sorted, the input variables of the
// relations left unresolved that nothing binds.
func ResolutionOrder(body []ast.BodyRelation) (order []int, unbound []string) {
	bound := make(map[string]bool)
	resolved := make([]bool, len(body))

	for progress := true; progress && len(order) < len(body); {
		progress = false
		for i, rel := range body {
			if resolved[i] || !allBound(ast.InputFreeVars(rel), bound) {
				continue
			}
			resolved[i] = true
			progress = true
			order = append(order, i)
			for _, v := range ast.OutputFreeVars(rel) {
				bound[v] = true
			}
		}
	}

	missing := make(map[string]bool)
	for i, rel := range body {
		if resolved[i] {
			continue
		}
		for _, v := range ast.InputFreeVars(rel) {
			if !bound[v] {
				missing[v] = true
			}
		}
	}
	return order, sortedSet(missing)
}

func allBound(vars []string, bound map[string]bool) bool {
	for _, v := range vars {
		if !bound[v] {
			return false
		}
	}
	return true
}

// checkRuleSafety verifies every rule is safe and records its execution order.
func checkRuleSafety(a *Analysis) error {
	for _, stmt := range a.Program.Statements {
		rule, ok := stmt.(*ast.Rule)
		if !ok {
			continue
		}

		outputs := make(map[string]bool)
		for _, rel := range rule.Body {
			for _, v := range ast.OutputFreeVars(rel) {
				outputs[v] = true
			}
		}
		missing := make(map[string]bool)
		for _, v := range rule.Head.Vars {
			if !outputs[v.Name] {
				missing[v.Name] = true
			}
		}
		if len(missing) > 0 {
			vars := sortedSet(missing)
			err := newError(RuleNotSafe, rule.Pos, "head variables of %q are not bound by any body relation output: %s",
				rule.Head.Name, strings.Join(vars, ", "))
			err.Vars = vars
			return err
		}

		order, unbound := ResolutionOrder(rule.Body)
		if len(order) != len(rule.Body) {
			err := newError(RuleNotSafe, rule.Pos, "rule %q has unbound free variables: %s",
				rule.Head.Name, strings.Join(unbound, ", "))
			err.Vars = unbound
			return err
		}
		a.Orders[rule] = order
	}
	return nil
}

// reorderBodies rewrites each rule body into its safety-resolved order.
func reorderBodies(a *Analysis) error {
	for _, stmt := range a.Program.Statements {
		rule, ok := stmt.(*ast.Rule)
		if !ok {
			continue
		}
		order, ok := a.Orders[rule]
		if !ok {
			continue
		}
		reordered := make([]ast.BodyRelation, len(order))
		for i, idx := range order {
			reordered[i] = rule.Body[idx]
		}
		rule.Body = reordered
		a.logger.Debug("reordered rule body", "rule", rule.Head.Name, "order", order)
	}
	return nil
}
